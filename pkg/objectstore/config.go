package objectstore

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Config R2（S3 兼容）存储配置
type Config struct {
	AccountID       string `mapstructure:"account_id" json:"account_id"`
	AccessKeyID     string `mapstructure:"access_key_id" json:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key" json:"secret_access_key"`
	BucketName      string `mapstructure:"bucket_name" json:"bucket_name"`
	// PublicURL 对外访问前缀，拼接 key 得到图片地址
	PublicURL string `mapstructure:"public_url" json:"public_url"`

	// Endpoint 为空时使用 https://<account_id>.r2.cloudflarestorage.com
	Endpoint string `mapstructure:"endpoint" json:"endpoint"`
	Region   string `mapstructure:"region" json:"region"`
	// UsePathStyle 使用 <endpoint>/<bucket>/<key> 形式寻址
	UsePathStyle bool `mapstructure:"use_path_style" json:"use_path_style"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Region: "auto",
	}
}

// ResolveEndpoint 返回实际使用的端点
func (c *Config) ResolveEndpoint() string {
	if c.Endpoint != "" {
		return strings.TrimRight(c.Endpoint, "/")
	}
	return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
}

// Validate 检查必填项，错误信息列出所有缺失字段
func (c *Config) Validate() error {
	var missing []string
	if c.AccountID == "" && c.Endpoint == "" {
		missing = append(missing, "account_id")
	}
	if c.AccessKeyID == "" {
		missing = append(missing, "access_key_id")
	}
	if c.SecretAccessKey == "" {
		missing = append(missing, "secret_access_key")
	}
	if c.BucketName == "" {
		missing = append(missing, "bucket_name")
	}
	if c.PublicURL == "" {
		missing = append(missing, "public_url")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidConfig, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}

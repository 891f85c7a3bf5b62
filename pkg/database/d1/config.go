package d1

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// Config D1 HTTP API 配置
type Config struct {
	AccountID  string `mapstructure:"account_id" json:"account_id"`
	DatabaseID string `mapstructure:"database_id" json:"database_id"`
	APIToken   string `mapstructure:"api_token" json:"api_token"`

	// BaseURL Cloudflare API 根地址
	BaseURL string        `mapstructure:"base_url" json:"base_url"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		BaseURL: "https://api.cloudflare.com/client/v4",
		Timeout: 30 * time.Second,
	}
}

// Validate 检查必填项
func (c *Config) Validate() error {
	var missing []string
	if c.AccountID == "" {
		missing = append(missing, "account_id")
	}
	if c.DatabaseID == "" {
		missing = append(missing, "database_id")
	}
	if c.APIToken == "" {
		missing = append(missing, "api_token")
	}
	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidConfig, "missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// QueryURL 查询端点
func (c *Config) QueryURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/accounts/" + c.AccountID + "/d1/database/" + c.DatabaseID + "/query"
}

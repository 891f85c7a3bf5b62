package client

import (
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/hasher"
)

// Config 上传客户端配置
type Config struct {
	// Server imgsync 服务地址，如 http://localhost:8080
	Server string
	// Token 服务端开启认证时使用的 JWT
	Token      string
	Algorithm  hasher.Algorithm
	WindowSize int64
	// Jobs 并发计算摘要的文件数
	Jobs    int
	Timeout time.Duration
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:     "http://localhost:8080",
		Algorithm:  hasher.DefaultAlgorithm,
		WindowSize: hasher.DefaultWindowSize,
		Jobs:       4,
		Timeout:    5 * time.Minute,
	}
}

// Validate 检查配置
func (c *Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.Wrapf(ErrInvalidConfig, "server %q is not an absolute url", c.Server)
	}
	if !hasher.IsRegistered(c.Algorithm) {
		return errors.Wrapf(ErrInvalidConfig, "unknown algorithm %q", c.Algorithm)
	}
	if c.WindowSize <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "window size must be positive, got %d", c.WindowSize)
	}
	if c.Jobs <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "jobs must be positive, got %d", c.Jobs)
	}
	return nil
}

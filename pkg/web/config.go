package web

import (
	"time"

	"github.com/gin-gonic/gin"
)

// Config Web 服务配置
type Config struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port" validate:"min=0,max=65535"`
	Mode         string        `mapstructure:"mode" validate:"omitempty,oneof=debug release test"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	// ShutdownTimeout 优雅关闭等待时间
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxMultipartMemory multipart 表单在内存中保留的上限，超出部分写入临时文件
	MaxMultipartMemory int64 `mapstructure:"max_multipart_memory"`
	// DisableCompression 关闭 gzip 响应压缩
	DisableCompression bool   `mapstructure:"disable_compression"`
	EnableTLS          bool   `mapstructure:"enable_tls"`
	CertFile           string `mapstructure:"cert_file"`
	KeyFile            string `mapstructure:"key_file"`
}

// DefaultConfig 返回默认配置
// 上传大文件时写超时需要覆盖整个请求体接收时间
func DefaultConfig() *Config {
	return &Config{
		Port:               8080,
		Mode:               gin.ReleaseMode,
		ReadTimeout:        2 * time.Minute,
		WriteTimeout:       2 * time.Minute,
		IdleTimeout:        time.Minute,
		ShutdownTimeout:    10 * time.Second,
		MaxMultipartMemory: 8 << 20,
	}
}

package prometheus

import "time"

// Config Prometheus 配置
type Config struct {
	// Namespace 指标命名空间（应用名称）
	Namespace string `mapstructure:"namespace" json:"namespace"`

	// Subsystem 子系统（可选）
	Subsystem string `mapstructure:"subsystem" json:"subsystem"`

	// HTTPServer 独立的指标服务器，默认关闭，指标挂在业务服务的 /metrics 上
	HTTPServer HTTPServerConfig `mapstructure:"http_server" json:"http_server"`

	// DisableGoCollector 不注册 Go 运行时采集器
	DisableGoCollector bool `mapstructure:"disable_go_collector" json:"disable_go_collector"`

	// DisableProcessCollector 不注册进程采集器
	DisableProcessCollector bool `mapstructure:"disable_process_collector" json:"disable_process_collector"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Enabled bool          `mapstructure:"enabled" json:"enabled"`
	Addr    string        `mapstructure:"addr" json:"addr"`
	Path    string        `mapstructure:"path" json:"path"`
	Timeout time.Duration `mapstructure:"timeout" json:"timeout"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Namespace: "imgsync",
		HTTPServer: HTTPServerConfig{
			Addr:    ":9090",
			Path:    "/metrics",
			Timeout: 10 * time.Second,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.Namespace == "" {
		return ErrInvalidConfig
	}

	if c.HTTPServer.Enabled {
		if c.HTTPServer.Addr == "" {
			return ErrInvalidConfig
		}
		if c.HTTPServer.Path == "" {
			c.HTTPServer.Path = "/metrics"
		}
		if c.HTTPServer.Timeout == 0 {
			c.HTTPServer.Timeout = 10 * time.Second
		}
	}

	return nil
}

package app

import (
	"time"

	"github.com/lk2023060901/imgsync/pkg/logger"
)

// Options BaseApp 选项
type Options struct {
	// Name 日志器名称
	Name string
	// StopTimeout 等待各 Server 停止的最长时间，超时后直接释放资源
	StopTimeout time.Duration
	Logger      logger.Logger
}

// Option 选项函数
type Option func(*Options)

// DefaultOptions 默认选项：进程名、30s 停止超时、全局日志器
func DefaultOptions() Options {
	return Options{
		Name:        AppName,
		StopTimeout: 30 * time.Second,
		Logger:      logger.Default(),
	}
}

func WithLogger(l logger.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

func WithName(name string) Option {
	return func(o *Options) { o.Name = name }
}

func WithStopTimeout(t time.Duration) Option {
	return func(o *Options) {
		if t > 0 {
			o.StopTimeout = t
		}
	}
}

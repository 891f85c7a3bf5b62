package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/lk2023060901/imgsync/pkg/config"
)

var (
	defaultLogger   Logger
	defaultLoggerMu sync.RWMutex
)

// InitDefault 初始化默认 logger
func InitDefault(cfg *Config, opts ...Option) error {
	l, err := New(cfg, opts...)
	if err != nil {
		return err
	}
	SetDefault(l)
	return nil
}

// InitDefaultFromEnv 从环境变量初始化默认 logger
// 支持 IMGSYNC_LOG_LEVEL、IMGSYNC_LOG_FORMAT、IMGSYNC_LOG_PATH、
// IMGSYNC_LOG_CONSOLE、IMGSYNC_LOG_DEVELOPMENT
func InitDefaultFromEnv() error {
	envConfig := &Config{}

	if level := os.Getenv("IMGSYNC_LOG_LEVEL"); level != "" {
		envConfig.Level = Level(strings.ToLower(level))
	}
	if format := os.Getenv("IMGSYNC_LOG_FORMAT"); format != "" {
		envConfig.Format = Format(strings.ToLower(format))
	}
	if path := os.Getenv("IMGSYNC_LOG_PATH"); path != "" {
		envConfig.EnableFile = true
		envConfig.OutputPath = path
	}
	if os.Getenv("IMGSYNC_LOG_DEVELOPMENT") == "true" {
		envConfig.Development = true
	}

	merged, err := config.MergeConfig(DefaultConfig(), envConfig)
	if err != nil {
		return err
	}
	// false 是零值，MergeConfig 无法覆盖
	if os.Getenv("IMGSYNC_LOG_CONSOLE") == "false" {
		merged.EnableConsole = false
	}

	return InitDefault(merged)
}

// SetDefault 设置默认 logger
func SetDefault(l Logger) {
	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	defaultLogger = l
}

// Default 获取默认 logger，未初始化时懒加载仅控制台输出的 logger
func Default() Logger {
	defaultLoggerMu.RLock()
	l := defaultLogger
	defaultLoggerMu.RUnlock()
	if l != nil {
		return l
	}

	defaultLoggerMu.Lock()
	defer defaultLoggerMu.Unlock()
	if defaultLogger == nil {
		base, err := New(DefaultConfig())
		if err != nil {
			defaultLogger = NewNoop()
		} else {
			defaultLogger = base
		}
	}
	return defaultLogger
}

// Named 从默认 logger 派生具名 logger
func Named(name string) Logger {
	return Default().Named(name)
}

// Sync 同步默认 logger
func Sync() error {
	return Default().Sync()
}

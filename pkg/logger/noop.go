package logger

import "context"

var _ Logger = (*NoopLogger)(nil)

// NoopLogger 空日志记录器
// 作为各模块未注入 Logger 时的默认值，测试中也常用
type NoopLogger struct{}

// NewNoop 创建空日志记录器
func NewNoop() *NoopLogger {
	return &NoopLogger{}
}

func (l *NoopLogger) Debug(msg string, keysAndValues ...interface{}) {}
func (l *NoopLogger) Info(msg string, keysAndValues ...interface{}) {}
func (l *NoopLogger) Warn(msg string, keysAndValues ...interface{}) {}
func (l *NoopLogger) Error(msg string, keysAndValues ...interface{}) {}

func (l *NoopLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...interface{}) {}
func (l *NoopLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...interface{}) {}
func (l *NoopLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...interface{}) {}
func (l *NoopLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{}) {}

func (l *NoopLogger) Named(name string) Logger { return l }
func (l *NoopLogger) WithFields(keysAndValues ...interface{}) Logger { return l }
func (l *NoopLogger) Sync() error { return nil }

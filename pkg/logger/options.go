package logger

import "go.uber.org/zap/zapcore"

// Option 配置选项
type Option func(*BaseLogger)

// WithName 设置 logger 名称
func WithName(name string) Option {
	return func(l *BaseLogger) {
		l.name = name
	}
}

// WithGlobalFields 添加全局字段
func WithGlobalFields(fields ...interface{}) Option {
	return func(l *BaseLogger) {
		for i := 0; i+1 < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			l.globalFields[key] = fields[i+1]
		}
	}
}

// WithHooks 添加钩子
func WithHooks(hooks ...Hook) Option {
	return func(l *BaseLogger) {
		l.hooks = append(l.hooks, hooks...)
	}
}

// WithOutput 追加一个输出目标（测试中用于捕获日志）
func WithOutput(w zapcore.WriteSyncer) Option {
	return func(l *BaseLogger) {
		l.outputs = append(l.outputs, w)
	}
}

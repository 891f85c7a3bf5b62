package logger

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var _ Logger = (*BaseLogger)(nil)

// BaseLogger 基于 zap 的日志记录器实现
type BaseLogger struct {
	zl               *zap.Logger
	config           *Config
	name             string
	globalFields     map[string]interface{}
	hooks            []Hook
	outputs          []zapcore.WriteSyncer
	contextExtractor ContextFieldExtractor
}

// New 创建新的 BaseLogger
// 用户只传部分配置时，其余字段取 DefaultConfig
func New(cfg *Config, opts ...Option) (*BaseLogger, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge logger config")
	}

	l := &BaseLogger{
		config:           merged,
		globalFields:     make(map[string]interface{}),
		contextExtractor: merged.ContextExtractor,
	}
	for _, opt := range opts {
		opt(l)
	}

	// 提供了额外输出目标时允许关闭控制台和文件
	if err := merged.Validate(); err != nil {
		if len(l.outputs) == 0 || !errors.Is(err, ErrNoOutputEnabled) {
			return nil, err
		}
	}
	if l.contextExtractor == nil {
		l.contextExtractor = DefaultContextExtractor
	}

	for k, v := range merged.GlobalFields {
		l.globalFields[k] = v
	}

	zl, err := l.build()
	if err != nil {
		return nil, err
	}
	l.zl = zl
	return l, nil
}

func (l *BaseLogger) build() (*zap.Logger, error) {
	encoderConfig := l.buildEncoderConfig()

	var encoder zapcore.Encoder
	if l.config.Format == ConsoleFormat {
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	}

	writers := make([]zapcore.WriteSyncer, 0, 2+len(l.outputs))
	if l.config.EnableConsole {
		console := os.Stdout
		if l.config.ConsoleStderr {
			console = os.Stderr
		}
		writers = append(writers, zapcore.AddSync(console))
	}
	if l.config.EnableFile {
		fileWriter, err := NewRotationWriter(&l.config.Rotation, l.config.OutputPath)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create rotation writer")
		}
		writers = append(writers, zapcore.AddSync(fileWriter))
	}
	writers = append(writers, l.outputs...)

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(writers...), parseLevel(l.config.Level))

	if len(l.hooks) > 0 {
		core = NewHookedCore(core, l.hooks...)
	}
	if l.config.EnableSampling {
		core = zapcore.NewSamplerWithOptions(core, 1e9, l.config.SamplingInitial, l.config.SamplingThereafter)
	}

	options := []zap.Option{
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	}
	if l.config.EnableStacktrace {
		options = append(options, zap.AddStacktrace(parseLevel(l.config.StacktraceLevel)))
	}
	if l.config.Development {
		options = append(options, zap.Development())
	}

	zl := zap.New(core, options...)

	if len(l.globalFields) > 0 {
		fields := make([]zap.Field, 0, len(l.globalFields))
		for k, v := range l.globalFields {
			fields = append(fields, zap.Any(k, v))
		}
		zl = zl.With(fields...)
	}
	if l.name != "" {
		zl = zl.Named(l.name)
	}

	return zl, nil
}

func (l *BaseLogger) buildEncoderConfig() zapcore.EncoderConfig {
	cfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		LevelKey:       "level",
		TimeKey:        "time",
		NameKey:        "logger",
		CallerKey:      "caller",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if l.config.TimeFormat != "" {
		cfg.EncodeTime = zapcore.TimeEncoderOfLayout(l.config.TimeFormat)
	} else {
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if l.config.Development && l.config.Format == ConsoleFormat {
		cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	return cfg
}

func parseLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Zap 返回底层 zap.Logger
func (l *BaseLogger) Zap() *zap.Logger {
	return l.zl
}

func (l *BaseLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Info(msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) Error(msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) DebugContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Debug(msg, l.contextFields(ctx, keysAndValues)...)
}

func (l *BaseLogger) InfoContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Info(msg, l.contextFields(ctx, keysAndValues)...)
}

func (l *BaseLogger) WarnContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Warn(msg, l.contextFields(ctx, keysAndValues)...)
}

func (l *BaseLogger) ErrorContext(ctx context.Context, msg string, keysAndValues ...interface{}) {
	l.zl.Error(msg, l.contextFields(ctx, keysAndValues)...)
}

func (l *BaseLogger) contextFields(ctx context.Context, keysAndValues []interface{}) []zap.Field {
	return append(l.contextExtractor(ctx), toZapFields(keysAndValues...)...)
}

func (l *BaseLogger) clone(zl *zap.Logger, name string) *BaseLogger {
	return &BaseLogger{
		zl:               zl,
		config:           l.config,
		name:             name,
		globalFields:     l.globalFields,
		hooks:            l.hooks,
		outputs:          l.outputs,
		contextExtractor: l.contextExtractor,
	}
}

// Named 创建具名 logger，名称以 "." 连接
func (l *BaseLogger) Named(name string) Logger {
	if name == "" {
		return l
	}
	return l.clone(l.zl.Named(name), name)
}

// WithFields 添加固定字段
func (l *BaseLogger) WithFields(keysAndValues ...interface{}) Logger {
	fields := toZapFields(keysAndValues...)
	if len(fields) == 0 {
		return l
	}
	return l.clone(l.zl.With(fields...), l.name)
}

// Sync 同步日志
func (l *BaseLogger) Sync() error {
	return l.zl.Sync()
}

// toZapFields 将 key-value 对转换为 zap.Field
// 参数也可以直接是 zap.Field；奇数个参数时最后一个记为 "!BADKEY"
func toZapFields(keysAndValues ...interface{}) []zap.Field {
	if len(keysAndValues) == 0 {
		return nil
	}

	fields := make([]zap.Field, 0, len(keysAndValues)/2+1)
	for i := 0; i < len(keysAndValues); {
		if f, ok := keysAndValues[i].(zap.Field); ok {
			fields = append(fields, f)
			i++
			continue
		}

		key, ok := keysAndValues[i].(string)
		if !ok || i+1 >= len(keysAndValues) {
			fields = append(fields, zap.Any("!BADKEY", keysAndValues[i]))
			i++
			continue
		}

		value := keysAndValues[i+1]
		if err, isErr := value.(error); isErr {
			fields = append(fields, zap.NamedError(key, err))
		} else {
			fields = append(fields, zap.Any(key, value))
		}
		i += 2
	}
	return fields
}

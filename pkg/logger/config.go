package logger

import "github.com/cockroachdb/errors"

// Level 日志等级
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Format 日志格式
type Format string

const (
	JSONFormat    Format = "json"
	ConsoleFormat Format = "console"
)

// RotationType 轮换类型
type RotationType string

const (
	RotationBySize RotationType = "size"
	RotationByTime RotationType = "time"
)

// Config 日志配置
type Config struct {
	Level  Level  `mapstructure:"level"`  // 日志等级
	Format Format `mapstructure:"format"` // 输出格式 (json/console)

	EnableConsole bool   `mapstructure:"enable_console"` // 启用控制台输出
	ConsoleStderr bool   `mapstructure:"console_stderr"` // 控制台输出写到 stderr（命令行工具）
	EnableFile    bool   `mapstructure:"enable_file"`    // 启用文件输出
	OutputPath    string `mapstructure:"output_path"`    // 日志文件路径

	TimeFormat string `mapstructure:"time_format"` // 时间格式 (默认: 2006-01-02 15:04:05)

	Rotation RotationConfig `mapstructure:"rotation"`

	EnableStacktrace bool  `mapstructure:"enable_stacktrace"` // 启用堆栈跟踪
	StacktraceLevel  Level `mapstructure:"stacktrace_level"`  // 堆栈跟踪等级

	// 采样 (防止高频日志刷屏)
	EnableSampling     bool `mapstructure:"enable_sampling"`
	SamplingInitial    int  `mapstructure:"sampling_initial"`    // 每秒前 N 条日志
	SamplingThereafter int  `mapstructure:"sampling_thereafter"` // 之后每 N 条记录 1 条

	Development bool `mapstructure:"development"` // 开发模式 (彩色等级)

	GlobalFields map[string]interface{} `mapstructure:"global_fields"`

	// ContextExtractor 从 context 提取附加字段，为空时使用 DefaultContextExtractor
	ContextExtractor ContextFieldExtractor `mapstructure:"-"`
}

// RotationConfig 轮换配置
type RotationConfig struct {
	Type RotationType `mapstructure:"type"` // 轮换类型: size 或 time

	// 按大小轮换 (lumberjack)
	MaxSize    int  `mapstructure:"max_size"`    // 单文件最大大小 (MB)
	MaxBackups int  `mapstructure:"max_backups"` // 保留的旧文件数量
	MaxAge     int  `mapstructure:"max_age"`     // 保留天数
	Compress   bool `mapstructure:"compress"`

	// 按时间轮换 (file-rotatelogs)
	RotationTime    string `mapstructure:"rotation_time"`    // 轮换间隔: 1h, 24h
	MaxAgeTime      string `mapstructure:"max_age_time"`     // 保留时长: 168h
	RotationPattern string `mapstructure:"rotation_pattern"` // 文件名时间格式: .%Y%m%d
}

// DefaultConfig 默认配置：仅控制台输出
func DefaultConfig() *Config {
	return &Config{
		Level:         InfoLevel,
		Format:        ConsoleFormat,
		EnableConsole: true,
		TimeFormat:    "2006-01-02 15:04:05",
		Rotation: RotationConfig{
			Type:            RotationBySize,
			MaxSize:         100,
			MaxBackups:      5,
			MaxAge:          7,
			Compress:        true,
			RotationTime:    "24h",
			MaxAgeTime:      "168h",
			RotationPattern: ".%Y%m%d",
		},
		EnableStacktrace:   true,
		StacktraceLevel:    ErrorLevel,
		SamplingInitial:    100,
		SamplingThereafter: 100,
		GlobalFields:       make(map[string]interface{}),
		ContextExtractor:   DefaultContextExtractor,
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.EnableFile && c.OutputPath == "" {
		return ErrInvalidOutputPath
	}
	if !c.EnableConsole && !c.EnableFile {
		return ErrNoOutputEnabled
	}
	switch c.Level {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel:
	default:
		return errors.Wrapf(ErrInvalidLevel, "%q", c.Level)
	}
	return nil
}

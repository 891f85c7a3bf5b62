package conf

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/metrics"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/database/d1"
	"github.com/lk2023060901/imgsync/pkg/database/postgres"
	"github.com/lk2023060901/imgsync/pkg/hasher"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/lk2023060901/imgsync/pkg/objectstore"
	"github.com/lk2023060901/imgsync/pkg/otel"
	"github.com/lk2023060901/imgsync/pkg/prometheus"
	"github.com/lk2023060901/imgsync/pkg/security"
	"github.com/lk2023060901/imgsync/pkg/sentry"
	"github.com/lk2023060901/imgsync/pkg/web"
	"github.com/lk2023060901/imgsync/pkg/web/middleware"
)

// 元数据记录后端
const (
	DriverD1       = "d1"
	DriverPostgres = "postgres"
)

// Config imgsync 服务配置
type Config struct {
	Log logger.Config `mapstructure:"log"`
	Web web.Config    `mapstructure:"web"`

	Storage  objectstore.Config `mapstructure:"storage"`
	Recorder RecorderConfig     `mapstructure:"recorder"`
	Upload   UploadConfig       `mapstructure:"upload"`
	Hasher   HasherConfig       `mapstructure:"hasher"`

	Auth      security.JWTConfig         `mapstructure:"auth"`
	CORS      CORSConfig                 `mapstructure:"cors"`
	RateLimit middleware.RateLimitConfig `mapstructure:"rate_limit"`

	Prometheus prometheus.Config `mapstructure:"prometheus"`
	Metrics    metrics.Config    `mapstructure:"metrics"`
	Tracing    otel.Config       `mapstructure:"tracing"`
	Sentry     sentry.Config     `mapstructure:"sentry"`
}

// RecorderConfig 元数据记录配置
type RecorderConfig struct {
	// Driver d1 或 postgres
	Driver string `mapstructure:"driver" validate:"oneof=d1 postgres"`
	// Table 目标表
	Table string `mapstructure:"table" validate:"required"`
	// Returning 非空时 Postgres 插入追加 RETURNING <column>，结果写入 meta.last_row_id
	Returning string `mapstructure:"returning"`

	D1       d1.Config       `mapstructure:"d1"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

// UploadConfig 上传策略，支持热更新
type UploadConfig struct {
	MaxSize      config.ByteSize `mapstructure:"max_size" validate:"gt=0"`
	AllowedTypes []string        `mapstructure:"allowed_types" validate:"min=1"`
	VerifyDigest bool            `mapstructure:"verify_digest"`
	SkipExisting bool            `mapstructure:"skip_existing"`
}

// HasherConfig 服务端校验摘要使用的参数，需要与上传端一致
type HasherConfig struct {
	Algorithm  string          `mapstructure:"algorithm" validate:"hashalg"`
	WindowSize config.ByteSize `mapstructure:"window_size" validate:"gt=0"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Log: *logger.DefaultConfig(),
		Web: *web.DefaultConfig(),

		Storage: *objectstore.DefaultConfig(),
		Recorder: RecorderConfig{
			Driver:   DriverD1,
			Table:    "linsv_picture",
			D1:       *d1.DefaultConfig(),
			Postgres: *postgres.DefaultConfig(),
		},
		Upload: UploadConfig{
			MaxSize:      20 << 20,
			AllowedTypes: []string{"image/*"},
			VerifyDigest: true,
		},
		Hasher: HasherConfig{
			Algorithm:  string(hasher.MD5),
			WindowSize: config.ByteSize(hasher.DefaultWindowSize),
		},

		Auth:      *security.DefaultJWTConfig(),
		CORS:      CORSConfig{AllowOrigins: []string{"*"}},
		RateLimit: *middleware.DefaultRateLimitConfig(),

		Prometheus: *prometheus.DefaultConfig(),
		Metrics:    *metrics.DefaultConfig(),
		Tracing:    *otel.DefaultConfig(),
		Sentry:     *sentry.DefaultConfig(),
	}
}

// Defaults 将默认配置展开为以 "." 连接的 viper 默认值，使每个 key 都能被环境变量覆盖
func Defaults() map[string]any {
	nested := make(map[string]any)
	if err := mapstructure.Decode(DefaultConfig(), &nested); err != nil {
		panic(err)
	}
	out := make(map[string]any)
	flatten("", nested, out)
	return out
}

func flatten(prefix string, in, out map[string]any) {
	for key, value := range in {
		if prefix != "" {
			key = prefix + "." + key
		}
		if sub, ok := value.(map[string]any); ok && len(sub) > 0 {
			flatten(key, sub, out)
			continue
		}
		out[key] = value
	}
}

// EnvAliases 兼容无前缀的 R2_*、D1_* 环境变量
func EnvAliases() map[string][]string {
	return map[string][]string{
		"storage.account_id":        {"IMGSYNC_STORAGE_ACCOUNT_ID", "R2_ACCOUNT_ID"},
		"storage.access_key_id":     {"IMGSYNC_STORAGE_ACCESS_KEY_ID", "R2_ACCESS_KEY_ID"},
		"storage.secret_access_key": {"IMGSYNC_STORAGE_SECRET_ACCESS_KEY", "R2_SECRET_ACCESS_KEY"},
		"storage.bucket_name":       {"IMGSYNC_STORAGE_BUCKET_NAME", "R2_BUCKET_NAME"},
		"storage.public_url":        {"IMGSYNC_STORAGE_PUBLIC_URL", "R2_PUBLIC_URL"},
		"recorder.d1.account_id":    {"IMGSYNC_RECORDER_D1_ACCOUNT_ID", "D1_ACCOUNT_ID"},
		"recorder.d1.database_id":   {"IMGSYNC_RECORDER_D1_DATABASE_ID", "D1_DATABASE_ID"},
		"recorder.d1.api_token":     {"IMGSYNC_RECORDER_D1_API_TOKEN", "D1_API_TOKEN"},
	}
}

// LegacyKeys 旧版 config.json 的 r2.*、d1.* 键名
func LegacyKeys() map[string]string {
	return map[string]string{
		"r2.accountId":       "storage.account_id",
		"r2.accessKeyId":     "storage.access_key_id",
		"r2.secretAccessKey": "storage.secret_access_key",
		"r2.bucketName":      "storage.bucket_name",
		"r2.publicUrl":       "storage.public_url",
		"d1.accountId":       "recorder.d1.account_id",
		"d1.databaseId":      "recorder.d1.database_id",
		"d1.apiToken":        "recorder.d1.api_token",
	}
}

// Validate 校验配置，缺失项同时提示配置文件与环境变量两种途径
func Validate(cfg *Config) error {
	v := config.NewValidator()
	if err := v.RegisterValidation("hashalg", func(fl validator.FieldLevel) bool {
		return hasher.IsRegistered(hasher.Algorithm(fl.Field().String()))
	}); err != nil {
		return err
	}

	var errs []string
	for _, section := range []any{&cfg.Recorder, &cfg.Upload, &cfg.Hasher, &cfg.Web} {
		if err := v.Validate(section); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if err := cfg.Storage.Validate(); err != nil {
		errs = append(errs, "storage: "+err.Error()+" (config file storage.* or R2_* env)")
	}
	switch cfg.Recorder.Driver {
	case DriverD1:
		if err := cfg.Recorder.D1.Validate(); err != nil {
			errs = append(errs, "recorder.d1: "+err.Error()+" (config file recorder.d1.* or D1_* env)")
		}
	case DriverPostgres:
		if cfg.Recorder.Postgres.DSN == "" && cfg.Recorder.Postgres.Host == "" {
			errs = append(errs, "recorder.postgres: dsn or host is required")
		}
	}

	if len(errs) > 0 {
		return errors.Wrap(config.ErrValidationFailed, strings.Join(errs, "; "))
	}
	return nil
}

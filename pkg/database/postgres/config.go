package postgres

import (
	"time"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxConns          int32         `mapstructure:"max_conns" json:"max_conns"`                     // 最大连接数
	MinConns          int32         `mapstructure:"min_conns" json:"min_conns"`                     // 最小连接数
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime" json:"max_conn_lifetime"`     // 连接最大生命周期
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time" json:"max_conn_idle_time"`   // 连接最大空闲时间
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period" json:"health_check_period"` // 健康检查周期
}

// Config PostgreSQL 配置
// DSN 非空时优先使用，否则由各字段拼接
type Config struct {
	DSN      string `mapstructure:"dsn" json:"dsn"`
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	DBName   string `mapstructure:"db_name" json:"db_name"`
	SSLMode  string `mapstructure:"ssl_mode" json:"ssl_mode"` // disable, require, verify-ca, verify-full

	Pool PoolConfig `mapstructure:"pool" json:"pool"`

	ConnectTimeout time.Duration `mapstructure:"connect_timeout" json:"connect_timeout"`
	QueryTimeout   time.Duration `mapstructure:"query_timeout" json:"query_timeout"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Host:    "localhost",
		Port:    5432,
		User:    "postgres",
		DBName:  "imgsync",
		SSLMode: "disable",
		Pool: PoolConfig{
			MaxConns:          10,
			MinConns:          1,
			MaxConnLifetime:   time.Hour,
			MaxConnIdleTime:   30 * time.Minute,
			HealthCheckPeriod: time.Minute,
		},
		ConnectTimeout: 10 * time.Second,
		QueryTimeout:   30 * time.Second,
	}
}

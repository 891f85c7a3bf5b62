package postgres

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lk2023060901/imgsync/pkg/config"
)

// Client PostgreSQL 客户端
type Client struct {
	pool   *pgxpool.Pool
	cfg    *Config
	closed atomic.Bool
}

// New 创建 PostgreSQL 客户端并验证连通性
func New(ctx context.Context, cfg *Config) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge config")
	}
	if err := validateConfig(newCfg); err != nil {
		return nil, err
	}

	pool, err := createPool(ctx, newCfg)
	if err != nil {
		return nil, err
	}
	return &Client{pool: pool, cfg: newCfg}, nil
}

// Close 关闭客户端
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.pool.Close()
}

// Ping 检查数据库连接
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}
	if err := c.pool.Ping(ctx); err != nil {
		return errors.Wrap(err, "postgres ping failed")
	}
	return nil
}

// Stats 获取连接池状态
func (c *Client) Stats() *PoolStats {
	stat := c.pool.Stat()
	return &PoolStats{
		AcquireCount:    stat.AcquireCount(),
		AcquireDuration: stat.AcquireDuration(),
		AcquiredConns:   stat.AcquiredConns(),
		IdleConns:       stat.IdleConns(),
		MaxConns:        stat.MaxConns(),
		TotalConns:      stat.TotalConns(),
		NewConnsCount:   stat.NewConnsCount(),
	}
}

// validateConfig 验证配置
func validateConfig(cfg *Config) error {
	if cfg.DSN == "" {
		if cfg.Host == "" {
			return errors.Wrap(ErrInvalidConfig, "host is empty")
		}
		if cfg.Port <= 0 || cfg.Port > 65535 {
			return errors.Wrapf(ErrInvalidConfig, "invalid port %d", cfg.Port)
		}
		if cfg.User == "" {
			return errors.Wrap(ErrInvalidConfig, "user is empty")
		}
		if cfg.DBName == "" {
			return errors.Wrap(ErrInvalidConfig, "db_name is empty")
		}
	}

	if cfg.Pool.MaxConns <= 0 {
		return errors.Wrap(ErrInvalidConfig, "max_conns must be positive")
	}
	if cfg.Pool.MinConns < 0 {
		return errors.Wrap(ErrInvalidConfig, "min_conns must be non-negative")
	}
	if cfg.Pool.MinConns > cfg.Pool.MaxConns {
		return errors.Wrap(ErrInvalidConfig, "min_conns cannot be greater than max_conns")
	}
	return nil
}

// createPool 创建连接池
func createPool(ctx context.Context, cfg *Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(buildConnString(cfg))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse pool config")
	}

	poolConfig.MaxConns = cfg.Pool.MaxConns
	poolConfig.MinConns = cfg.Pool.MinConns
	poolConfig.MaxConnLifetime = cfg.Pool.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Pool.MaxConnIdleTime
	poolConfig.HealthCheckPeriod = cfg.Pool.HealthCheckPeriod

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to ping database")
	}
	return pool, nil
}

// buildConnString 构建连接字符串
func buildConnString(cfg *Config) string {
	if cfg.DSN != "" {
		return cfg.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s connect_timeout=%d",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DBName,
		cfg.SSLMode,
		int(cfg.ConnectTimeout.Seconds()),
	)
}

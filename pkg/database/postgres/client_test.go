package postgres

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
)

// 集成测试需要设置 IMGSYNC_TEST_POSTGRES_DSN
func testDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("IMGSYNC_TEST_POSTGRES_DSN")
	if dsn == "" || testing.Short() {
		t.Skip("IMGSYNC_TEST_POSTGRES_DSN not set")
	}
	return dsn
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "default", config: DefaultConfig()},
		{name: "dsn only", config: &Config{DSN: "postgres://u@h/db", Pool: PoolConfig{MaxConns: 1}}},
		{
			name:    "empty host",
			config:  &Config{Port: 5432, User: "u", DBName: "d", Pool: PoolConfig{MaxConns: 1}},
			wantErr: true,
		},
		{
			name:    "invalid port",
			config:  &Config{Host: "h", Port: 70000, User: "u", DBName: "d", Pool: PoolConfig{MaxConns: 1}},
			wantErr: true,
		},
		{
			name:    "min greater than max",
			config:  &Config{DSN: "x", Pool: PoolConfig{MaxConns: 1, MinConns: 2}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateConfig(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestNewNilConfig(t *testing.T) {
	if _, err := New(context.Background(), nil); !errors.Is(err, ErrNilConfig) {
		t.Errorf("expected ErrNilConfig, got %v", err)
	}
}

func TestBuildConnString(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Password = "secret"
	got := buildConnString(cfg)
	for _, part := range []string{"host=localhost", "port=5432", "dbname=imgsync", "password=secret", "connect_timeout=10"} {
		if !strings.Contains(got, part) {
			t.Errorf("conn string %q missing %q", got, part)
		}
	}

	cfg.DSN = "postgres://user@db:5432/pics"
	if got := buildConnString(cfg); got != cfg.DSN {
		t.Errorf("expected DSN passthrough, got %q", got)
	}
}

func TestApplyQueryTimeout(t *testing.T) {
	c := &Client{cfg: &Config{QueryTimeout: 50 * time.Millisecond}}
	ctx, cancel := c.applyQueryTimeout(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected deadline")
	}

	c.cfg.QueryTimeout = 0
	ctx, cancel = c.applyQueryTimeout(context.Background())
	defer cancel()
	if _, ok := ctx.Deadline(); ok {
		t.Error("expected no deadline")
	}
}

func TestClientIntegration(t *testing.T) {
	dsn := testDSN(t)
	ctx := context.Background()

	client, err := New(ctx, &Config{DSN: dsn})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}

	if _, err := client.Exec(ctx, `CREATE TABLE IF NOT EXISTS pg_client_test (id SERIAL PRIMARY KEY, name TEXT NOT NULL)`); err != nil {
		t.Fatalf("Exec(create) error = %v", err)
	}

	sql, args, err := QueryBuilder.Insert("pg_client_test").Columns("name").Values("cat").Suffix("RETURNING id").ToSql()
	if err != nil {
		t.Fatalf("ToSql() error = %v", err)
	}
	var id int64
	if err := client.QueryRow(ctx, sql, args...).Scan(&id); err != nil {
		t.Fatalf("QueryRow() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("expected positive id, got %d", id)
	}

	var name string
	err = client.QueryRow(ctx, `SELECT name FROM pg_client_test WHERE id = $1`, -1).Scan(&name)
	if !errors.Is(err, ErrNoRows) {
		t.Errorf("expected ErrNoRows, got %v", err)
	}

	if stats := client.Stats(); stats.MaxConns == 0 {
		t.Error("expected pool stats")
	}

	if _, err := client.Exec(ctx, `DROP TABLE pg_client_test`); err != nil {
		t.Errorf("Exec(drop) error = %v", err)
	}

	client.Close()
	if err := client.Ping(ctx); !errors.Is(err, ErrClientClosed) {
		t.Errorf("expected ErrClientClosed, got %v", err)
	}
}

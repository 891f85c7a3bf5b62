package postgres

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
)

// applyQueryTimeout 应用查询超时到 context
func (c *Client) applyQueryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, c.cfg.QueryTimeout)
	}
	return ctx, func() {}
}

// Exec 执行写操作（INSERT/UPDATE/DELETE），返回影响行数
func (c *Client) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if c.closed.Load() {
		return 0, ErrClientClosed
	}
	ctx, cancel := c.applyQueryTimeout(ctx)
	defer cancel()

	result, err := c.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec failed")
	}
	return result.RowsAffected(), nil
}

// Row 单行结果，Scan 完成后释放超时
type Row struct {
	row    pgx.Row
	cancel context.CancelFunc
}

// Scan 读取结果，无数据时返回 ErrNoRows
func (r *Row) Scan(dest ...any) error {
	defer r.cancel()
	if err := r.row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoRows
		}
		return errors.Wrap(err, "scan failed")
	}
	return nil
}

// QueryRow 查询单行（如 INSERT ... RETURNING）
func (c *Client) QueryRow(ctx context.Context, sql string, args ...any) *Row {
	ctx, cancel := c.applyQueryTimeout(ctx)
	return &Row{row: c.pool.QueryRow(ctx, sql, args...), cancel: cancel}
}

package dao

import (
	"context"
	"strconv"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/model"
	"github.com/lk2023060901/imgsync/pkg/database/d1"
	"github.com/lk2023060901/imgsync/pkg/database/postgres"
	"github.com/lk2023060901/imgsync/pkg/logger"
)

// Recorder 图片元数据记录器
type Recorder interface {
	// Insert 写入一条记录，create_time 由数据库生成
	Insert(ctx context.Context, p *model.Picture) (*model.Meta, error)
	// Driver 后端名称
	Driver() string
	Close() error
}

// buildInsert 生成插入语句
// desc 是 SQL 保留字，需要加引号
func buildInsert(format squirrel.PlaceholderFormat, table string, p *model.Picture, now string) squirrel.InsertBuilder {
	return squirrel.
		Insert(table).
		Columns("uid", "name", `"desc"`, "link", "order_id", "create_time").
		Values(p.UID, p.Name, p.Desc, p.Link, p.OrderID, squirrel.Expr(now)).
		PlaceholderFormat(format)
}

// D1PictureDAO 基于 Cloudflare D1 的记录器
type D1PictureDAO struct {
	db     *d1.Client
	table  string
	logger logger.Logger
}

// NewD1PictureDAO 创建 D1 记录器
func NewD1PictureDAO(db *d1.Client, table string, l logger.Logger) *D1PictureDAO {
	return &D1PictureDAO{
		db:     db,
		table:  table,
		logger: l.Named("dao.picture.d1"),
	}
}

// Insert 写入一条记录
func (d *D1PictureDAO) Insert(ctx context.Context, p *model.Picture) (*model.Meta, error) {
	query, args, err := buildInsert(squirrel.Question, d.table, p, "datetime('now')").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build insert")
	}

	meta, err := d.db.Exec(ctx, query, args...)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to insert picture",
			"link", p.Link,
			"uid", p.UID,
			"error", err,
		)
		return nil, err
	}

	return &model.Meta{
		ChangedDB:   meta.ChangedDB,
		Changes:     meta.Changes,
		Duration:    meta.Duration,
		LastRowID:   meta.LastRowID,
		RowsRead:    meta.RowsRead,
		RowsWritten: meta.RowsWritten,
		SizeAfter:   meta.SizeAfter,
	}, nil
}

// Driver 后端名称
func (d *D1PictureDAO) Driver() string {
	return "d1"
}

// Close D1 为无状态 HTTP 客户端，无需释放
func (d *D1PictureDAO) Close() error {
	return nil
}

// PGPictureDAO 基于 PostgreSQL 的记录器
type PGPictureDAO struct {
	db        *postgres.Client
	table     string
	returning string
	logger    logger.Logger
}

// NewPGPictureDAO 创建 PostgreSQL 记录器
// returning 非空时插入后取回该列作为 last_row_id
func NewPGPictureDAO(db *postgres.Client, table, returning string, l logger.Logger) *PGPictureDAO {
	return &PGPictureDAO{
		db:        db,
		table:     table,
		returning: returning,
		logger:    l.Named("dao.picture.postgres"),
	}
}

// Insert 写入一条记录
func (d *PGPictureDAO) Insert(ctx context.Context, p *model.Picture) (*model.Meta, error) {
	start := time.Now()

	builder := buildInsert(squirrel.Dollar, d.table, p, "now()")
	if d.returning != "" {
		builder = builder.Suffix("RETURNING " + strconv.Quote(d.returning))
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "failed to build insert")
	}

	meta := &model.Meta{ChangedDB: true}
	if d.returning != "" {
		if err := d.db.QueryRow(ctx, query, args...).Scan(&meta.LastRowID); err != nil {
			d.logger.ErrorContext(ctx, "failed to insert picture", "link", p.Link, "uid", p.UID, "error", err)
			return nil, err
		}
		meta.Changes = 1
	} else {
		affected, err := d.db.Exec(ctx, query, args...)
		if err != nil {
			d.logger.ErrorContext(ctx, "failed to insert picture", "link", p.Link, "uid", p.UID, "error", err)
			return nil, err
		}
		meta.Changes = affected
	}
	meta.RowsWritten = meta.Changes
	meta.Duration = float64(time.Since(start).Microseconds()) / 1000

	return meta, nil
}

// Driver 后端名称
func (d *PGPictureDAO) Driver() string {
	return "postgres"
}

// Close 关闭连接池
func (d *PGPictureDAO) Close() error {
	d.db.Close()
	return nil
}

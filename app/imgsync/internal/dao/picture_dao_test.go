package dao

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/model"
	"github.com/lk2023060901/imgsync/pkg/database/d1"
	"github.com/lk2023060901/imgsync/pkg/database/postgres"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPicture = &model.Picture{
	UID:     "u1",
	Name:    "cat",
	Link:    "5eb63bbbe01eeed093cb22bb8f5acdc3",
	OrderID: "3",
}

func TestBuildInsert(t *testing.T) {
	tests := []struct {
		name   string
		format squirrel.PlaceholderFormat
		now    string
		want   string
	}{
		{
			name:   "sqlite",
			format: squirrel.Question,
			now:    "datetime('now')",
			want:   `INSERT INTO linsv_picture (uid,name,"desc",link,order_id,create_time) VALUES (?,?,?,?,?,datetime('now'))`,
		},
		{
			name:   "postgres",
			format: squirrel.Dollar,
			now:    "now()",
			want:   `INSERT INTO linsv_picture (uid,name,"desc",link,order_id,create_time) VALUES ($1,$2,$3,$4,$5,now())`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args, err := buildInsert(tt.format, "linsv_picture", testPicture, tt.now).ToSql()
			require.NoError(t, err)
			assert.Equal(t, tt.want, query)
			// 未填写的 desc 以空串写入
			assert.Equal(t, []any{"u1", "cat", "", testPicture.Link, "3"}, args)
		})
	}
}

type d1Request struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params"`
}

func newD1DAO(t *testing.T, h http.HandlerFunc) *D1PictureDAO {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	db, err := d1.New(&d1.Config{
		AccountID:  "acct",
		DatabaseID: "db",
		APIToken:   "tok",
		BaseURL:    srv.URL,
	})
	require.NoError(t, err)
	return NewD1PictureDAO(db, "linsv_picture", logger.NewNoop())
}

func TestD1PictureDAO_Insert(t *testing.T) {
	var got d1Request
	dao := newD1DAO(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		_, _ = io.WriteString(w, `{"result":[{"results":[],"success":true,"meta":{"changes":1,"last_row_id":42,"rows_written":1,"duration":0.3}}],"success":true}`)
	})

	p := *testPicture
	p.Desc = "a cat"
	meta, err := dao.Insert(context.Background(), &p)
	require.NoError(t, err)

	assert.Equal(t, int64(1), meta.Changes)
	assert.Equal(t, int64(42), meta.LastRowID)
	assert.Equal(t, int64(1), meta.RowsWritten)
	assert.Contains(t, got.SQL, `"desc"`)
	assert.Contains(t, got.SQL, "datetime('now')")
	assert.Equal(t, []any{"u1", "cat", "a cat", p.Link, "3"}, got.Params)
	assert.Equal(t, "d1", dao.Driver())
}

func TestD1PictureDAO_InsertFailure(t *testing.T) {
	dao := newD1DAO(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"result":[],"success":false,"errors":[{"code":7500,"message":"no such table: linsv_picture"}]}`)
	})

	_, err := dao.Insert(context.Background(), testPicture)
	require.Error(t, err)

	var apiErr *d1.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Contains(t, err.Error(), "no such table")
}

// 需要真实数据库：IMGSYNC_TEST_POSTGRES_DSN=postgres://... go test ./...
func TestPGPictureDAO_Integration(t *testing.T) {
	dsn := os.Getenv("IMGSYNC_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("IMGSYNC_TEST_POSTGRES_DSN not set")
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, &postgres.Config{DSN: dsn})
	require.NoError(t, err)

	_, err = db.Exec(ctx, `CREATE TABLE IF NOT EXISTS imgsync_dao_test (
		id BIGSERIAL PRIMARY KEY,
		uid TEXT NOT NULL,
		name TEXT NOT NULL,
		"desc" TEXT NOT NULL DEFAULT '',
		link TEXT NOT NULL,
		order_id TEXT NOT NULL,
		create_time TIMESTAMPTZ NOT NULL
	)`)
	require.NoError(t, err)

	dao := NewPGPictureDAO(db, "imgsync_dao_test", "id", logger.NewNoop())
	meta, err := dao.Insert(ctx, testPicture)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Changes)
	assert.Positive(t, meta.LastRowID)

	plain := NewPGPictureDAO(db, "imgsync_dao_test", "", logger.NewNoop())
	meta, err = plain.Insert(ctx, testPicture)
	require.NoError(t, err)
	assert.Equal(t, int64(1), meta.Changes)

	_, err = db.Exec(ctx, "DROP TABLE imgsync_dao_test")
	require.NoError(t, err)
	require.NoError(t, dao.Close())
}

package d1

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/valyala/bytebufferpool"
)

// maxErrorBody 错误响应体最多保留的字节数
const maxErrorBody = 64 << 10

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Client D1 SQL-over-HTTP 客户端
type Client struct {
	cfg    *Config
	http   *http.Client
	logger logger.Logger
}

// New 创建客户端
func New(cfg *Config, opts ...Option) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	c := &Client{cfg: merged, logger: logger.NewNoop()}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: merged.Timeout}
	}
	c.logger = c.logger.Named("d1")
	return c, nil
}

// Query 执行一条参数化 SQL，返回第一条语句的结果
func (c *Client) Query(ctx context.Context, sql string, params ...any) (*Result, error) {
	if params == nil {
		params = []any{}
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if err := json.NewEncoder(buf).Encode(request{SQL: sql, Params: params}); err != nil {
		return nil, errors.Wrap(err, "d1: encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.QueryURL(), bytes.NewReader(buf.B))
	if err != nil {
		return nil, errors.Wrap(err, "d1: build request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "d1: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.WarnContext(ctx, "d1 api error", "status", resp.StatusCode, "body", string(body))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, errors.Wrap(err, "d1: decode response")
	}
	if !env.Success {
		c.logger.WarnContext(ctx, "d1 query failed", "errors", env.Errors)
		return nil, &APIError{StatusCode: resp.StatusCode, Errors: env.Errors}
	}
	if len(env.Result) == 0 {
		return nil, ErrEmptyResult
	}
	return &env.Result[0], nil
}

// Exec 执行写语句，返回元信息
func (c *Client) Exec(ctx context.Context, sql string, params ...any) (Meta, error) {
	res, err := c.Query(ctx, sql, params...)
	if err != nil {
		return Meta{}, err
	}
	return res.Meta, nil
}

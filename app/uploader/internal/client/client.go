// Package client 实现上传端流程：计算摘要、上传对象、记录元数据
package client

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/goccy/go-json"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/lk2023060901/imgsync/pkg/otel"
)

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

// Client imgsync 上传客户端
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
	c.logger = c.logger.Named("uploader")
	return c, nil
}

// response 服务端统一响应
type response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// UploadResult 上传结果
type UploadResult struct {
	Key          string `json:"key"`
	URL          string `json:"url"`
	Size         int64  `json:"size"`
	ContentType  string `json:"content_type"`
	Deduplicated bool   `json:"deduplicated"`
}

// Record 元数据
type Record struct {
	UID     string `json:"uid"`
	Name    string `json:"name"`
	Desc    string `json:"desc,omitempty"`
	Link    string `json:"link"`
	OrderID string `json:"orderId"`
}

// Meta 写入结果
type Meta struct {
	Changes   int64   `json:"changes"`
	LastRowID int64   `json:"last_row_id"`
	Duration  float64 `json:"duration"`
}

// Result 一次完整提交的结果
type Result struct {
	File   *File
	Upload *UploadResult
	Meta   *Meta
}

// Upload 以流式 multipart 上传文件，不把整个文件读入内存
func (c *Client) Upload(ctx context.Context, f *File) (*UploadResult, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	defer file.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(mw, file, f))
	}()

	req, err := c.newRequest(ctx, "/api/upload", pr)
	if err != nil {
		pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var res UploadResult
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func writeForm(mw *multipart.Writer, r io.Reader, f *File) error {
	if err := mw.WriteField("md5", f.Digest.Hex()); err != nil {
		return err
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", multipartDisposition("file", filepath.Base(f.Path)))
	h.Set("Content-Type", f.ContentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, r); err != nil {
		return errors.Wrap(err, "stream file")
	}
	return mw.Close()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func multipartDisposition(field, filename string) string {
	return `form-data; name="` + quoteEscaper.Replace(field) + `"; filename="` + quoteEscaper.Replace(filename) + `"`
}

// Save 记录元数据
func (c *Client) Save(ctx context.Context, rec *Record) (*Meta, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, errors.Wrap(err, "encode record")
	}

	req, err := c.newRequest(ctx, "/api/save", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var res struct {
		Meta *Meta `json:"meta"`
	}
	if err := c.do(req, &res); err != nil {
		return nil, err
	}
	return res.Meta, nil
}

// Submit 上传文件后记录元数据，link 为文件摘要
// 记录失败时返回 *OrphanError，已上传的对象不做补偿
func (c *Client) Submit(ctx context.Context, f *File, rec Record) (*Result, error) {
	up, err := c.Upload(ctx, f)
	if err != nil {
		return nil, errors.Wrapf(err, "upload %s", f.Path)
	}

	rec.Link = up.Key
	meta, err := c.Save(ctx, &rec)
	if err != nil {
		c.logger.WarnContext(ctx, "metadata not recorded", "key", up.Key, "path", f.Path, "error", err)
		return nil, &OrphanError{Key: up.Key, URL: up.URL, Err: err}
	}

	return &Result{File: f, Upload: up, Meta: meta}, nil
}

func (c *Client) newRequest(ctx context.Context, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(c.cfg.Server, "/")+path, body)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}
	otel.InjectHTTP(ctx, req.Header)
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer resp.Body.Close()

	var r response
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		if resp.StatusCode != http.StatusOK {
			return &APIError{StatusCode: resp.StatusCode}
		}
		return errors.Wrap(err, "decode response")
	}
	if resp.StatusCode != http.StatusOK || r.Code != 0 {
		return &APIError{StatusCode: resp.StatusCode, Code: r.Code, Message: r.Message}
	}

	if out == nil || len(r.Data) == 0 {
		return nil
	}
	return errors.Wrap(json.Unmarshal(r.Data, out), "decode data")
}

package objectstore

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/logger"
)

// Option 客户端选项
type Option func(*Client)

// WithHTTPClient 替换底层 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// Client R2 对象存储客户端
type Client struct {
	s3         *s3.Client
	cfg        *Config
	httpClient *http.Client
	logger     logger.Logger
}

// New 创建客户端，不发起网络请求
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
	c.logger = c.logger.Named("objectstore")

	awsCfg := aws.Config{
		Region:      merged.Region,
		Credentials: credentials.NewStaticCredentialsProvider(merged.AccessKeyID, merged.SecretAccessKey, ""),
		// 单次尝试，失败直接返回给调用方
		Retryer: func() aws.Retryer { return aws.NopRetryer{} },
	}
	if c.httpClient != nil {
		awsCfg.HTTPClient = c.httpClient
	}

	c.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(merged.ResolveEndpoint())
		o.UsePathStyle = merged.UsePathStyle
		// R2 不支持默认附加的 CRC 校验头
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	return c, nil
}

// Put 写入对象，同名 key 直接覆盖
func (c *Client) Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error {
	if key == "" {
		return ErrEmptyKey
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(c.cfg.BucketName),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.s3.PutObject(ctx, input); err != nil {
		c.logger.WarnContext(ctx, "put object failed", "key", key, "size", size, "error", err)
		return errors.Mark(errors.Wrapf(err, "put %s", key), ErrPutFailed)
	}

	c.logger.DebugContext(ctx, "object stored", "key", key, "size", size, "content_type", contentType)
	return nil
}

// Exists 检查对象是否存在
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrEmptyKey
	}

	_, err := c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.cfg.BucketName),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, errors.Mark(errors.Wrapf(err, "head %s", key), ErrHeadFailed)
}

// URL 返回对象的公开访问地址
func (c *Client) URL(key string) string {
	return strings.TrimRight(c.cfg.PublicURL, "/") + "/" + key
}

// Bucket 存储桶名称
func (c *Client) Bucket() string {
	return c.cfg.BucketName
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

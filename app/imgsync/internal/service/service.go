package service

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/lk2023060901/imgsync/app/imgsync/internal/conf"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/dao"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/metrics"
	"github.com/lk2023060901/imgsync/pkg/hasher"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/lk2023060901/imgsync/pkg/sentry"
)

const tracerName = "imgsync/service"

// ObjectStore 对象存储
type ObjectStore interface {
	Put(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) error
	Exists(ctx context.Context, key string) (bool, error)
	URL(key string) string
	Bucket() string
}

// PictureService 图片上传与元数据记录
type PictureService struct {
	store    ObjectStore
	recorder dao.Recorder
	table    string

	algorithm  hasher.Algorithm
	windowSize int64
	policy     atomic.Pointer[Policy]

	metrics  *metrics.Metrics
	reporter *sentry.Client
	logger   logger.Logger
}

// Option 服务选项
type Option func(*PictureService)

// WithReporter 设置错误上报，nil 表示不上报
func WithReporter(r *sentry.Client) Option {
	return func(s *PictureService) {
		s.reporter = r
	}
}

// NewPictureService 创建服务
func NewPictureService(cfg *conf.Config, store ObjectStore, recorder dao.Recorder, m *metrics.Metrics, l logger.Logger, opts ...Option) *PictureService {
	s := &PictureService{
		store:      store,
		recorder:   recorder,
		table:      cfg.Recorder.Table,
		algorithm:  hasher.Algorithm(cfg.Hasher.Algorithm),
		windowSize: cfg.Hasher.WindowSize.Int64(),
		metrics:    m,
		logger:     l.Named("service.picture"),
	}
	s.policy.Store(NewPolicy(cfg.Upload))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy 当前上传策略
func (s *PictureService) Policy() *Policy {
	return s.policy.Load()
}

// SetPolicy 替换上传策略，配置热更新时调用
func (s *PictureService) SetPolicy(p *Policy) {
	s.policy.Store(p)
	s.logger.Info("upload policy updated",
		"max_size", p.MaxSize,
		"allowed_types", p.AllowedTypes,
		"verify_digest", p.VerifyDigest,
		"skip_existing", p.SkipExisting,
	)
}

func (s *PictureService) report(ctx context.Context, err error, stage string) {
	if s.reporter == nil {
		return
	}
	s.reporter.CaptureError(ctx, err, map[string]string{"stage": stage})
}

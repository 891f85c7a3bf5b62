package main

import (
	"context"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/conf"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/dao"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/handler"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/metrics"
	"github.com/lk2023060901/imgsync/app/imgsync/internal/service"
	"github.com/lk2023060901/imgsync/pkg/app"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/database/d1"
	"github.com/lk2023060901/imgsync/pkg/database/postgres"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/lk2023060901/imgsync/pkg/objectstore"
	"github.com/lk2023060901/imgsync/pkg/otel"
	"github.com/lk2023060901/imgsync/pkg/prometheus"
	"github.com/lk2023060901/imgsync/pkg/security"
	"github.com/lk2023060901/imgsync/pkg/sentry"
	"github.com/lk2023060901/imgsync/pkg/web"
	webmetrics "github.com/lk2023060901/imgsync/pkg/web/metrics"
	"github.com/lk2023060901/imgsync/pkg/web/middleware"
)

// newServer 创建所有组件并注册到 base，资源按创建逆序释放
func newServer(ctx context.Context, base *app.BaseApp, mgr config.Manager, cfg *conf.Config, l logger.Logger) (*web.Server, error) {
	// 链路追踪，未启用时为 noop
	tp, err := otel.New(&cfg.Tracing)
	if err != nil {
		return nil, errors.Wrap(err, "init tracing")
	}
	base.AppendCloser(tp)

	// 错误上报，未配置 DSN 时不启用
	var reporter *sentry.Client
	if cfg.Sentry.Enabled() {
		if reporter, err = sentry.New(&cfg.Sentry); err != nil {
			return nil, errors.Wrap(err, "init sentry")
		}
		base.AppendCloser(reporter)
	}

	promClient, err := prometheus.New(&cfg.Prometheus, l)
	if err != nil {
		return nil, errors.Wrap(err, "init prometheus")
	}
	base.AppendCloser(promClient)

	httpMetrics := webmetrics.New(cfg.Prometheus.Namespace)
	if err := httpMetrics.Register(promClient.Registry()); err != nil {
		return nil, errors.Wrap(err, "register http metrics")
	}

	appMetrics, err := metrics.New(promClient, &cfg.Metrics)
	if err != nil {
		return nil, errors.Wrap(err, "init metrics")
	}
	base.AppendCloser(app.CloserFunc(func() error {
		appMetrics.Stop()
		return nil
	}))

	store, err := objectstore.New(&cfg.Storage, objectstore.WithLogger(l))
	if err != nil {
		return nil, errors.Wrap(err, "init object store")
	}

	recorder, err := newRecorder(ctx, cfg, l)
	if err != nil {
		return nil, err
	}
	base.AppendCloser(recorder)

	svc := service.NewPictureService(cfg, store, recorder, appMetrics, l, service.WithReporter(reporter))
	watchUploadPolicy(mgr, svc, l)

	// Web 服务与中间件
	var opts []web.Option
	if reporter != nil {
		opts = append(opts, web.WithPanicReporter(func(c *gin.Context, recovered any) {
			reporter.RecoverWithContext(c.Request.Context(), recovered)
		}))
	}
	srv := web.NewServer(&cfg.Web, l, opts...)
	r := srv.Router()
	r.Use(
		middleware.Tracing(cfg.Tracing.ServiceName),
		middleware.CORS(cfg.CORS.AllowOrigins),
		middleware.Metrics(httpMetrics),
		middleware.RateLimit(middleware.NewRateLimiter(l, &cfg.RateLimit)),
	)

	apiMws, err := authMiddlewares(&cfg.Auth)
	if err != nil {
		return nil, err
	}
	handler.NewPictureHandler(svc, l).Register(r, apiMws...)

	// 独立指标端口开启时不在业务端口暴露 /metrics
	var promHandler http.Handler
	if !cfg.Prometheus.HTTPServer.Enabled {
		promHandler = promClient.Handler()
	}
	handler.NewSystemHandler(appMetrics, recorder.Driver(), promHandler).Register(r)

	return srv, nil
}

// newRecorder 按配置创建元数据记录器
func newRecorder(ctx context.Context, cfg *conf.Config, l logger.Logger) (dao.Recorder, error) {
	switch cfg.Recorder.Driver {
	case conf.DriverPostgres:
		db, err := postgres.New(ctx, &cfg.Recorder.Postgres)
		if err != nil {
			return nil, errors.Wrap(err, "init postgres")
		}
		return dao.NewPGPictureDAO(db, cfg.Recorder.Table, cfg.Recorder.Returning, l), nil
	default:
		db, err := d1.New(&cfg.Recorder.D1, d1.WithLogger(l))
		if err != nil {
			return nil, errors.Wrap(err, "init d1")
		}
		return dao.NewD1PictureDAO(db, cfg.Recorder.Table, l), nil
	}
}

// authMiddlewares 配置了密钥时 /api 需要带 upload scope 的 Token
func authMiddlewares(cfg *security.JWTConfig) ([]gin.HandlerFunc, error) {
	if cfg.Secret == "" {
		return nil, nil
	}
	m, err := security.NewJWTManager(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init jwt")
	}
	return []gin.HandlerFunc{
		middleware.Auth(&middleware.AuthConfig{JWTManager: m}),
		middleware.RequireScope(uploadScope),
	}, nil
}

// watchUploadPolicy 配置文件变化时热更新上传策略
func watchUploadPolicy(mgr config.Manager, svc *service.PictureService, l logger.Logger) {
	validator := config.NewValidator()
	err := mgr.Watch(func() {
		// 整体解析以合并默认值，只取 upload 段
		var next conf.Config
		if err := mgr.Unmarshal(&next); err != nil {
			l.Warn("failed to reload upload policy", "error", err)
			return
		}
		if err := validator.Validate(&next.Upload); err != nil {
			l.Warn("rejected invalid upload policy", "error", err)
			return
		}
		svc.SetPolicy(service.NewPolicy(next.Upload))
	})
	if err != nil {
		l.Warn("config watch disabled", "error", err)
	}
}

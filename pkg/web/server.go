package web

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzhttp"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/lk2023060901/imgsync/pkg/web/middleware"
	"github.com/lk2023060901/imgsync/pkg/web/validator"
)

var initValidator sync.Once

// Option Server 选项
type Option func(*Server)

// WithPanicReporter 设置 panic 上报函数（如 Sentry）
func WithPanicReporter(r middleware.PanicReporter) Option {
	return func(s *Server) {
		s.reporter = r
	}
}

// Server Web 服务核心结构
type Server struct {
	engine   *gin.Engine
	config   *Config
	logger   logger.Logger
	reporter middleware.PanicReporter

	mu     sync.Mutex
	server *http.Server
}

// NewServer 创建 Web 服务
// 默认挂载 RequestID、Logger、Recovery 中间件，其余中间件由调用方按需添加
func NewServer(cfg *Config, l logger.Logger, opts ...Option) *Server {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		merged = DefaultConfig()
	}
	if l == nil {
		l = logger.Default()
	}

	s := &Server{
		config: merged,
		logger: l.Named("web.server"),
	}
	for _, opt := range opts {
		opt(s)
	}

	gin.SetMode(merged.Mode)
	initValidator.Do(validator.Init)
	engine := gin.New()
	engine.MaxMultipartMemory = merged.MaxMultipartMemory
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger(l.Named("web.access")))
	engine.Use(middleware.Recovery(l.Named("web.recovery"), s.reporter))
	s.engine = engine

	return s
}

// Router 返回 Gin 引擎，用于注册路由
func (s *Server) Router() *gin.Engine {
	return s.engine
}

// Handler 返回 http.Handler，默认包一层 gzip
func (s *Server) Handler() http.Handler {
	if s.config.DisableCompression {
		return s.engine
	}
	return gzhttp.GzipHandler(s.engine)
}

// Addr 监听地址
func (s *Server) Addr() string {
	return net.JoinHostPort(s.config.Host, fmt.Sprintf("%d", s.config.Port))
}

// Start 启动监听，阻塞直到 Stop 被调用或监听失败
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.Addr())
	}
	return s.Serve(ln)
}

// Serve 在已有 listener 上提供服务
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.server != nil {
		s.mu.Unlock()
		return ErrServerAlreadyStarted
	}
	s.server = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}
	srv := s.server
	s.mu.Unlock()

	var err error
	if s.config.EnableTLS {
		s.logger.Info("starting https server", "addr", ln.Addr().String())
		err = srv.ServeTLS(ln, s.config.CertFile, s.config.KeyFile)
	} else {
		s.logger.Info("starting http server", "addr", ln.Addr().String())
		err = srv.Serve(ln)
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "http server failed")
	}
	return nil
}

// Stop 优雅关闭
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()

	if srv == nil {
		return ErrServerNotStarted
	}

	if err := srv.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server forced to shutdown")
	}
	s.logger.Info("server exited")
	return nil
}

// Run 启动服务，ctx 结束时优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

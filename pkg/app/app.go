package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/logger"
)

var (
	ErrAppAlreadyRunning = errors.New("application is already running")
)

// Server 定义了服务接口（如 HTTP、独立的 metrics 端口）
// Start 阻塞直到服务停止
type Server interface {
	Start() error
	Stop(ctx context.Context) error
}

// Closer 定义了资源清理接口（如数据库连接池、Tracer）
type Closer interface {
	Close() error
}

// CloserFunc 将函数适配为 Closer
type CloserFunc func() error

func (f CloserFunc) Close() error { return f() }

// BaseApp 管理服务的启动、信号监听与资源逆序释放
type BaseApp struct {
	opts    Options
	logger  logger.Logger
	servers []Server
	closers []Closer

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex

	started atomic.Bool
	closed  atomic.Bool
}

// NewBaseApp 创建一个新的 BaseApp 实例
func NewBaseApp(opts ...Option) *BaseApp {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &BaseApp{
		opts:   o,
		logger: o.Logger.Named(o.Name),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Context 应用生命周期 context，Shutdown 时取消
func (a *BaseApp) Context() context.Context {
	return a.ctx
}

// Run 启动所有服务并阻塞，收到信号、ctx 取消或任一服务退出时关闭
func (a *BaseApp) Run() error {
	if !a.started.CompareAndSwap(false, true) {
		return ErrAppAlreadyRunning
	}

	info := GetInfo()
	fmt.Println(info.String())
	a.logger.Info("application starting",
		"name", info.AppName,
		"version", info.Version,
		"commit", info.GitCommit,
		"build_date", info.BuildDate,
		"go_version", info.GoVersion,
	)

	a.mu.Lock()
	servers := append([]Server(nil), a.servers...)
	a.mu.Unlock()

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func(s Server) {
			errCh <- s.Start()
		}(srv)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-a.ctx.Done():
		a.logger.Info("context cancelled, shutting down")
	case runErr = <-errCh:
		if runErr != nil {
			a.logger.Error("server exited with error", "error", runErr)
		}
	}

	if err := a.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

// Shutdown 停止所有服务并逆序释放资源
func (a *BaseApp) Shutdown() error {
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancel()
	a.logger.Info("application shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), a.opts.StopTimeout)
	defer cancel()

	var (
		wg       sync.WaitGroup
		errMu    sync.Mutex
		stopErrs error
	)
	for _, srv := range a.servers {
		wg.Add(1)
		go func(s Server) {
			defer wg.Done()
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("failed to stop server", "error", err)
				errMu.Lock()
				stopErrs = errors.CombineErrors(stopErrs, err)
				errMu.Unlock()
			}
		}(srv)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("all servers stopped")
	case <-ctx.Done():
		a.logger.Warn("shutdown timeout, forcing exit")
	}

	// 逆序关闭（LIFO）
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			a.logger.Error("failed to close component", "error", err)
		}
	}

	a.logger.Info("application exited")
	_ = a.logger.Sync()

	errMu.Lock()
	defer errMu.Unlock()
	return stopErrs
}

// AppendServer 添加服务器
func (a *BaseApp) AppendServer(srv ...Server) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.servers = append(a.servers, srv...)
}

// AppendCloser 添加资源清理组件
func (a *BaseApp) AppendCloser(closer ...Closer) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, closer...)
}

package prometheus

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Client Prometheus 客户端
type Client struct {
	config   *Config
	registry *prometheus.Registry
	logger   logger.Logger

	metrics sync.Map // name -> Collector

	httpServer *http.Server

	closed atomic.Bool
}

// New 创建 Prometheus 客户端
func New(cfg *Config, l logger.Logger) (*Client, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = logger.NewNoop()
	}

	c := &Client{
		config:   merged,
		registry: prometheus.NewRegistry(),
		logger:   l.Named("prometheus"),
	}

	if !merged.DisableGoCollector {
		c.registry.MustRegister(collectors.NewGoCollector())
	}
	if !merged.DisableProcessCollector {
		c.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	if merged.HTTPServer.Enabled {
		c.startHTTPServer()
	}

	return c, nil
}

// Registry 获取底层 Registry
func (c *Client) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 HTTP Handler（用于集成到现有 HTTP 服务器）
func (c *Client) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Config 获取配置
func (c *Client) Config() *Config {
	return c.config
}

// startHTTPServer 启动独立的 HTTP 服务器
func (c *Client) startHTTPServer() {
	mux := http.NewServeMux()
	mux.Handle(c.config.HTTPServer.Path, c.Handler())

	c.httpServer = &http.Server{
		Addr:         c.config.HTTPServer.Addr,
		Handler:      mux,
		ReadTimeout:  c.config.HTTPServer.Timeout,
		WriteTimeout: c.config.HTTPServer.Timeout,
	}

	go func() {
		c.logger.Info("metrics server listening", "addr", c.config.HTTPServer.Addr)
		if err := c.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Error("metrics server failed", "error", err)
		}
	}()
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return ErrClientClosed
	}

	if c.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return c.httpServer.Shutdown(ctx)
	}
	return nil
}

// IsClosed 检查客户端是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

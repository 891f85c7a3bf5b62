package sentry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"go.opentelemetry.io/otel/trace"
)

// Client Sentry 客户端
type Client struct {
	hub    *sentry.Hub
	config *Config
	closed atomic.Bool

	stats struct {
		eventsTotal    atomic.Uint64
		eventsCaptured atomic.Uint64
		eventsDropped  atomic.Uint64
	}
}

// New 创建 Sentry 客户端
func New(cfg *Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	clientOpts := merged.toClientOptions()
	for _, opt := range opts {
		opt(&clientOpts)
	}

	client, err := sentry.NewClient(clientOpts)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sentry client")
	}

	// 独立 Hub，不污染全局
	hub := sentry.NewHub(client, sentry.NewScope())
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for key, value := range merged.Tags {
			scope.SetTag(key, value)
		}
	})

	return &Client{hub: hub, config: merged}, nil
}

// CaptureException 捕获异常
func (c *Client) CaptureException(err error) *sentry.EventID {
	return c.CaptureError(context.Background(), err, nil)
}

// CaptureError 捕获异常，附带请求上下文（request_id、trace_id）和额外标签
func (c *Client) CaptureError(ctx context.Context, err error, tags map[string]string) *sentry.EventID {
	if err == nil {
		return nil
	}
	return c.capture(func(hub *sentry.Hub) *sentry.EventID {
		hub.ConfigureScope(func(scope *sentry.Scope) {
			applyContext(scope, ctx)
			for k, v := range tags {
				scope.SetTag(k, v)
			}
		})
		return hub.CaptureException(err)
	})
}

// CaptureMessage 捕获消息
func (c *Client) CaptureMessage(message string, level Level) *sentry.EventID {
	return c.capture(func(hub *sentry.Hub) *sentry.EventID {
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetLevel(level.toSentryLevel())
		})
		return hub.CaptureMessage(message)
	})
}

// RecoverWithContext 上报已恢复的 panic（不重新抛出）
func (c *Client) RecoverWithContext(ctx context.Context, recovered any) *sentry.EventID {
	if recovered == nil {
		return nil
	}
	return c.capture(func(hub *sentry.Hub) *sentry.EventID {
		hub.ConfigureScope(func(scope *sentry.Scope) {
			applyContext(scope, ctx)
			scope.SetLevel(sentry.LevelFatal)
		})
		return hub.RecoverWithContext(ctx, recovered)
	})
}

// capture 在克隆的 Hub 上执行上报，避免并发请求互相覆盖 scope
func (c *Client) capture(fn func(hub *sentry.Hub) *sentry.EventID) *sentry.EventID {
	if c.closed.Load() {
		return nil
	}

	c.stats.eventsTotal.Add(1)
	eventID := fn(c.hub.Clone())
	if eventID != nil && *eventID != "" {
		c.stats.eventsCaptured.Add(1)
	} else {
		c.stats.eventsDropped.Add(1)
	}
	return eventID
}

func applyContext(scope *sentry.Scope, ctx context.Context) {
	if ctx == nil {
		return
	}
	if id := logger.RequestIDFromContext(ctx); id != "" {
		scope.SetTag("request_id", id)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		scope.SetTag("trace_id", sc.TraceID().String())
	}
}

// Flush 等待所有事件上报完成
func (c *Client) Flush(timeout time.Duration) bool {
	return c.hub.Flush(timeout)
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return ErrClientClosed
	}
	c.hub.Flush(c.config.ShutdownTimeout)
	return nil
}

// Stats 获取统计信息
func (c *Client) Stats() Stats {
	return Stats{
		EventsTotal:    c.stats.eventsTotal.Load(),
		EventsCaptured: c.stats.eventsCaptured.Load(),
		EventsDropped:  c.stats.eventsDropped.Load(),
	}
}

// IsClosed 是否已关闭
func (c *Client) IsClosed() bool {
	return c.closed.Load()
}

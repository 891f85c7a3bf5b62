package otel

import (
	"context"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/app"
	"github.com/lk2023060901/imgsync/pkg/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// TracerProvider 进程级追踪提供者
// 未启用或导出器为 noop 时 sdk 为空，span 落到全局 noop provider
type TracerProvider struct {
	config *Config
	sdk    *sdktrace.TracerProvider
	closed atomic.Bool
}

// New 创建追踪提供者，启用时同时设置全局 provider 与传播器
func New(cfg *Config) (*TracerProvider, error) {
	merged, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, err
	}

	p := &TracerProvider{config: merged}
	if !merged.Enabled {
		return p, nil
	}

	exporter, err := createExporter(context.Background(), merged)
	if err != nil {
		return nil, err
	}
	if exporter == nil {
		return p, nil
	}

	p.sdk = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(merged.BatchExport.BatchTimeout),
			sdktrace.WithExportTimeout(merged.BatchExport.ExportTimeout),
			sdktrace.WithMaxExportBatchSize(merged.BatchExport.BatchSize),
			sdktrace.WithMaxQueueSize(merged.BatchExport.MaxQueueSize),
		),
		sdktrace.WithResource(newResource(merged)),
		sdktrace.WithSampler(newSampler(merged.Sampler)),
	)

	otel.SetTracerProvider(p.sdk)
	otel.SetTextMapPropagator(NewCompositeTextMapPropagator())
	return p, nil
}

func newResource(cfg *Config) *resource.Resource {
	attrs := make([]attribute.KeyValue, 0, len(cfg.Attributes)+2)
	attrs = append(attrs, semconv.ServiceName(cfg.ServiceName), semconv.ServiceVersion(app.Version))
	for k, v := range cfg.Attributes {
		attrs = append(attrs, attribute.String(k, v))
	}
	return resource.NewWithAttributes(semconv.SchemaURL, attrs...)
}

func newSampler(cfg SamplerConfig) sdktrace.Sampler {
	switch cfg.Type {
	case SamplerTypeAlways:
		return sdktrace.AlwaysSample()
	case SamplerTypeNever:
		return sdktrace.NeverSample()
	case SamplerTypeRatio:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Ratio))
	default:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	}
}

// Start 以服务名作为 tracer 名开始一个 span
func (p *TracerProvider) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	var tp trace.TracerProvider = otel.GetTracerProvider()
	if p.sdk != nil {
		tp = p.sdk
	}
	return tp.Tracer(p.config.ServiceName).Start(ctx, spanName, opts...)
}

// ForceFlush 导出缓冲中的 span
func (p *TracerProvider) ForceFlush(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown 关闭提供者，第二次调用返回 ErrProviderClosed
func (p *TracerProvider) Shutdown(ctx context.Context) error {
	if p.closed.Swap(true) {
		return ErrProviderClosed
	}
	if p.sdk == nil {
		return nil
	}
	if err := p.sdk.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "otel: shutdown")
	}
	return nil
}

// Close 以 ShutdownTimeout 关闭，实现 app.Closer，重复关闭不报错
func (p *TracerProvider) Close() error {
	if p.closed.Load() {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.config.ShutdownTimeout)
	defer cancel()
	return p.Shutdown(ctx)
}

// IsEnabled 是否有真实导出器在工作
func (p *TracerProvider) IsEnabled() bool {
	return p.sdk != nil
}

// Config 生效配置
func (p *TracerProvider) Config() *Config {
	return p.config
}

package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// 重导出常用类型，避免使用者直接依赖 go.opentelemetry.io/otel
type (
	Span            = trace.Span
	SpanKind        = trace.SpanKind
	SpanStartOption = trace.SpanStartOption
	TracerOption    = trace.TracerOption
	Attribute       = attribute.KeyValue
	Code            = codes.Code
)

// SpanKind 常量
const (
	SpanKindInternal = trace.SpanKindInternal
	SpanKindServer   = trace.SpanKindServer
	SpanKindClient   = trace.SpanKindClient
)

// Code 常量
const (
	CodeUnset = codes.Unset
	CodeError = codes.Error
	CodeOk    = codes.Ok
)

// Tracer 获取全局 Tracer
func Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return otel.Tracer(name, opts...)
}

// GetTracerProvider 获取全局 TracerProvider
func GetTracerProvider() trace.TracerProvider {
	return otel.GetTracerProvider()
}

// WithSpanKind 设置 span 类型
func WithSpanKind(kind SpanKind) SpanStartOption {
	return trace.WithSpanKind(kind)
}

// WithAttributes 设置 span 属性
func WithAttributes(attrs ...Attribute) SpanStartOption {
	return trace.WithAttributes(attrs...)
}

// SpanFromContext 获取上下文中的 span
func SpanFromContext(ctx context.Context) Span {
	return trace.SpanFromContext(ctx)
}

// StartSpan 在全局 Tracer 上开始一个内部 span
func StartSpan(ctx context.Context, tracer, name string, attrs ...Attribute) (context.Context, Span) {
	return otel.Tracer(tracer).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan 记录错误（如有）并结束 span
func EndSpan(span Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// 属性构造函数
var (
	String  = attribute.String
	Int     = attribute.Int
	Int64   = attribute.Int64
	Float64 = attribute.Float64
	Bool    = attribute.Bool
)

// 上传相关属性键
const (
	HashAlgorithmKey  = "imgsync.hash.algorithm"
	HashWindowSizeKey = "imgsync.hash.window_size"
	HashChunksKey     = "imgsync.hash.chunks"
	ObjectKeyKey      = "imgsync.object.key"
	ObjectSizeKey     = "imgsync.object.size"
	ObjectBucketKey   = "imgsync.object.bucket"
	RecordTableKey    = "imgsync.record.table"
	RecordBackendKey  = "imgsync.record.backend"
)

package otel

import (
	"context"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// stdoutWriter stdout 导出器的输出目标，测试中可替换
var stdoutWriter io.Writer = os.Stdout

// createExporter 根据配置创建导出器，noop 返回 nil
func createExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterTypeOTLPHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
		}
		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "otlp-http"), ErrExporterFailed)
		}
		return exp, nil

	case ExporterTypeOTLPGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		if len(cfg.Headers) > 0 {
			opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
		}
		exp, err := otlptracegrpc.New(ctx, opts...)
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "otlp-grpc"), ErrExporterFailed)
		}
		return exp, nil

	case ExporterTypeStdout:
		exp, err := stdouttrace.New(stdouttrace.WithWriter(stdoutWriter))
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "stdout"), ErrExporterFailed)
		}
		return exp, nil

	case ExporterTypeNoop:
		return nil, nil

	default:
		return nil, errors.Wrapf(ErrUnsupportedExporter, "%q", cfg.ExporterType)
	}
}

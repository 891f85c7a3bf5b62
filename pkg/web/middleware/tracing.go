package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/imgsync/pkg/otel"
)

// Tracing 分布式追踪中间件
func Tracing(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.ExtractHTTP(c.Request.Context(), c.Request.Header)

		route := c.FullPath()
		spanName := fmt.Sprintf("%s %s", c.Request.Method, route)
		if route == "" {
			spanName = fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)
		}

		ctx, span := otel.Tracer("web").Start(ctx, spanName,
			otel.WithSpanKind(otel.SpanKindServer),
			otel.WithAttributes(
				otel.String("http.method", c.Request.Method),
				otel.String("http.path", c.Request.URL.Path),
				otel.String("http.route", route),
				otel.String("service.name", serviceName),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(otel.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(otel.CodeError, fmt.Sprintf("HTTP status %d", status))
		}
		if len(c.Errors) > 0 {
			span.RecordError(c.Errors.Last().Err)
		}
	}
}

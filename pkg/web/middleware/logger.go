package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/imgsync/pkg/logger"
)

// Logger 适配 pkg/logger 的 Gin 日志中间件
func Logger(l logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		status := c.Writer.Status()
		fields := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"ip", c.ClientIP(),
			"latency", time.Since(start).String(),
			"size", c.Writer.Size(),
			"user_agent", c.Request.UserAgent(),
		}
		if claims, ok := GetClaims(c); ok {
			fields = append(fields, "uid", claims.Subject)
		}

		ctx := c.Request.Context()
		switch {
		case len(c.Errors) > 0:
			for _, e := range c.Errors {
				l.ErrorContext(ctx, "http request failed", append(fields, "error", e.Err)...)
			}
		case status >= 500:
			l.ErrorContext(ctx, "http request", fields...)
		case status >= 400:
			l.WarnContext(ctx, "http request", fields...)
		default:
			l.InfoContext(ctx, "http request", fields...)
		}
	}
}

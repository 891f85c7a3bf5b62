package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/imgsync/pkg/web/metrics"
)

// Metrics 接口监控中间件
func Metrics(m *metrics.HTTPMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.RequestsInFlight.Inc()
		defer m.RequestsInFlight.Dec()

		c.Next()

		// 使用路由模板，避免高基数
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}
		status := strconv.Itoa(c.Writer.Status())

		m.RequestsTotal.WithLabelValues(path, c.Request.Method, status).Inc()
		m.RequestDuration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			m.ResponseSize.WithLabelValues(path).Observe(float64(size))
		}
	}
}

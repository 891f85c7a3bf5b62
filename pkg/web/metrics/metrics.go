package metrics

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics HTTP 层通用指标
type HTTPMetrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	ResponseSize     *prometheus.HistogramVec
}

// New 创建 HTTP 指标，namespace 为空时使用 "http"
func New(namespace string) *HTTPMetrics {
	if namespace == "" {
		namespace = "http"
	}

	return &HTTPMetrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests.",
			},
			[]string{"path", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds.",
				Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"path", "method"},
		),
		RequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "requests_in_flight",
				Help:      "Number of HTTP requests being served.",
			},
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "server",
				Name:      "response_size_bytes",
				Help:      "HTTP response size in bytes.",
				Buckets:   prometheus.ExponentialBuckets(64, 4, 8),
			},
			[]string{"path"},
		),
	}
}

// Register 注册到指定的注册器
func (m *HTTPMetrics) Register(registerer prometheus.Registerer) error {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	for _, c := range []prometheus.Collector{m.RequestsTotal, m.RequestDuration, m.RequestsInFlight, m.ResponseSize} {
		if err := registerer.Register(c); err != nil {
			return errors.Wrap(err, "failed to register http metrics")
		}
	}
	return nil
}

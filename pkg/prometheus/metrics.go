package prometheus

import (
	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// register 以 name 去重后注册到客户端的 Registry
func register[T Collector](c *Client, name string, build func() T) (T, error) {
	var zero T
	if c.IsClosed() {
		return zero, ErrClientClosed
	}
	if _, loaded := c.metrics.LoadOrStore(name, nil); loaded {
		return zero, errors.Wrapf(ErrMetricExists, "%s", name)
	}

	m := build()
	if err := c.registry.Register(m); err != nil {
		c.metrics.Delete(name)
		return zero, errors.Wrapf(err, "register metric %s", name)
	}
	c.metrics.Store(name, m)
	return m, nil
}

// NewCounter 创建并注册 Counter，labels 为空时通过 WithLabelValues() 取值
func (c *Client) NewCounter(name, help string, labels []string) (*CounterVec, error) {
	return register(c, name, func() *CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
		}, labels)
	})
}

// NewHistogram 创建并注册 Histogram，buckets 为 nil 时使用默认分桶
func (c *Client) NewHistogram(name, help string, labels []string, buckets []float64) (*HistogramVec, error) {
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	return register(c, name, func() *HistogramVec {
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: c.config.Namespace,
			Subsystem: c.config.Subsystem,
			Name:      name,
			Help:      help,
			Buckets:   buckets,
		}, labels)
	})
}

// Lookup 按名称取已注册的指标
func (c *Client) Lookup(name string) (Collector, bool) {
	v, ok := c.metrics.Load(name)
	if !ok || v == nil {
		return nil, false
	}
	return v.(Collector), true
}

// RegisterCollector 注册自定义采集器（进程资源等）
func (c *Client) RegisterCollector(collector Collector) error {
	if c.IsClosed() {
		return ErrClientClosed
	}
	return c.registry.Register(collector)
}

package prometheus

import "github.com/prometheus/client_golang/prometheus"

type (
	// CounterVec 带标签的计数器
	CounterVec = prometheus.CounterVec
	// HistogramVec 带标签的直方图
	HistogramVec = prometheus.HistogramVec
	// Collector 可注册到 Registry 的采集器
	Collector = prometheus.Collector
)

package metrics

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/config"
	"github.com/lk2023060901/imgsync/pkg/metrics/sliding"
	"github.com/lk2023060901/imgsync/pkg/metrics/system"
	"github.com/lk2023060901/imgsync/pkg/prometheus"
)

// 接口名
const (
	EndpointUpload = "upload"
	EndpointSave   = "save"
)

// 请求结果
const (
	ResultSuccess  = "success"
	ResultSkipped  = "skipped"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Config 指标配置
type Config struct {
	// SystemCollectInterval 进程指标采集间隔
	SystemCollectInterval time.Duration `mapstructure:"system_collect_interval" json:"system_collect_interval"`
	// SlidingWindow 滑动窗口配置
	SlidingWindow sliding.WindowConfig `mapstructure:"sliding_window" json:"sliding_window"`
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		SystemCollectInterval: 5 * time.Second,
		SlidingWindow:         *sliding.DefaultWindowConfig(),
	}
}

// Metrics imgsync 业务指标
type Metrics struct {
	config *Config

	// RequestTotal 按接口与结果统计的请求数
	RequestTotal *prometheus.CounterVec
	// RequestDuration 接口处理耗时
	RequestDuration *prometheus.HistogramVec
	// HashBytes 服务端校验摘要读取的字节数
	HashBytes *prometheus.CounterVec
	// UploadBytes 写入对象存储的字节数
	UploadBytes *prometheus.CounterVec
	// OrphanedObjects 对象已上传但元数据写入失败的次数
	OrphanedObjects *prometheus.CounterVec

	systemCollector *system.Collector
	slidingWindow   *sliding.Window
}

// New 创建指标并注册到 client
func New(client *prometheus.Client, cfg *Config) (*Metrics, error) {
	newCfg, err := config.MergeConfig(DefaultConfig(), cfg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to merge metrics config")
	}

	sysCollector, err := system.New(client.Config().Namespace)
	if err != nil {
		return nil, err
	}
	if err := client.RegisterCollector(sysCollector); err != nil {
		return nil, err
	}

	window, err := sliding.NewWindow(&newCfg.SlidingWindow)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create sliding window")
	}

	m := &Metrics{
		config:          newCfg,
		systemCollector: sysCollector,
		slidingWindow:   window,
	}

	if m.RequestTotal, err = client.NewCounter("requests_total", "接口请求总数", []string{"endpoint", "result"}); err != nil {
		return nil, err
	}
	if m.RequestDuration, err = client.NewHistogram("request_duration_seconds", "接口处理耗时（秒）",
		[]string{"endpoint"}, []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}); err != nil {
		return nil, err
	}
	if m.HashBytes, err = client.NewCounter("hash_bytes_total", "校验摘要读取的字节数", nil); err != nil {
		return nil, err
	}
	if m.UploadBytes, err = client.NewCounter("upload_bytes_total", "写入对象存储的字节数", nil); err != nil {
		return nil, err
	}
	if m.OrphanedObjects, err = client.NewCounter("orphaned_objects_total", "已上传但未记录的对象数", nil); err != nil {
		return nil, err
	}

	sysCollector.Start(newCfg.SystemCollectInterval)
	return m, nil
}

// RecordRequest 记录一次接口请求
func (m *Metrics) RecordRequest(endpoint, result string, elapsed time.Duration) {
	m.RequestTotal.WithLabelValues(endpoint, result).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
	m.slidingWindow.Record(elapsed.Seconds(), result == ResultSuccess || result == ResultSkipped)
}

// AddHashBytes 累加校验读取字节数
func (m *Metrics) AddHashBytes(n int64) {
	m.HashBytes.WithLabelValues().Add(float64(n))
}

// AddUploadBytes 累加写入字节数
func (m *Metrics) AddUploadBytes(n int64) {
	m.UploadBytes.WithLabelValues().Add(float64(n))
}

// IncOrphaned 记录一个孤儿对象
func (m *Metrics) IncOrphaned() {
	m.OrphanedObjects.WithLabelValues().Inc()
}

// GetStats 获取统计数据
func (m *Metrics) GetStats() Stats {
	windowStats := m.slidingWindow.GetStats()
	sysStats := m.systemCollector.GetStats()

	return Stats{
		QPS:           windowStats.QPS,
		AvgLatency:    windowStats.AvgLatency,
		SuccessRate:   windowStats.SuccessRate,
		CPUPercent:    sysStats.CPUPercent,
		MemoryPercent: sysStats.MemoryPercent,
		MemoryBytes:   sysStats.MemoryBytes,
		Goroutines:    sysStats.Goroutines,
	}
}

// Stats 健康检查返回的统计数据
type Stats struct {
	QPS           float64 `json:"qps"`
	AvgLatency    float64 `json:"avg_latency"`
	SuccessRate   float64 `json:"success_rate"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryPercent float64 `json:"memory_percent"`
	MemoryBytes   uint64  `json:"memory_bytes"`
	Goroutines    int     `json:"goroutines"`
}

// Stop 停止指标采集
func (m *Metrics) Stop() {
	m.systemCollector.Stop()
}

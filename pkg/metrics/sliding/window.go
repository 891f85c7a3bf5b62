package sliding

import (
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/imgsync/pkg/config"
)

// WindowConfig 滑动窗口配置
type WindowConfig struct {
	// WindowSize 窗口大小
	WindowSize time.Duration `mapstructure:"window_size" json:"window_size"`
	// BucketCount 桶数量
	BucketCount int `mapstructure:"bucket_count" json:"bucket_count"`
}

// DefaultWindowConfig 默认配置
func DefaultWindowConfig() *WindowConfig {
	return &WindowConfig{
		WindowSize:  60 * time.Second,
		BucketCount: 60,
	}
}

// bucket 时间桶，epoch 为桶对应的时间片序号
type bucket struct {
	epoch      int64
	count      int64
	totalTime  float64
	minLatency float64
	maxLatency float64
	successCnt int64
	failureCnt int64
}

// Window 滑动窗口统计器
// 桶按时间片惰性轮转，不需要后台 goroutine
type Window struct {
	size    time.Duration
	span    time.Duration
	buckets []bucket
	now     func() time.Time
	mu      sync.Mutex
}

// NewWindow 创建滑动窗口统计器
func NewWindow(cfg *WindowConfig) (*Window, error) {
	newCfg, err := config.MergeConfig(DefaultWindowConfig(), cfg)
	if err != nil {
		return nil, err
	}
	if newCfg.BucketCount <= 0 || newCfg.WindowSize < time.Duration(newCfg.BucketCount) {
		return nil, errors.Newf("sliding: invalid window %s with %d buckets", newCfg.WindowSize, newCfg.BucketCount)
	}

	w := &Window{
		size:    newCfg.WindowSize,
		span:    newCfg.WindowSize / time.Duration(newCfg.BucketCount),
		buckets: make([]bucket, newCfg.BucketCount),
		now:     time.Now,
	}
	for i := range w.buckets {
		w.buckets[i].epoch = -1
	}
	return w, nil
}

func (w *Window) epoch(t time.Time) int64 {
	return t.UnixNano() / int64(w.span)
}

// Record 记录一次请求
func (w *Window) Record(latency float64, success bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	e := w.epoch(w.now())
	b := &w.buckets[e%int64(len(w.buckets))]
	if b.epoch != e {
		*b = bucket{epoch: e, minLatency: latency}
	}

	b.count++
	b.totalTime += latency
	if success {
		b.successCnt++
	} else {
		b.failureCnt++
	}
	if latency < b.minLatency {
		b.minLatency = latency
	}
	if latency > b.maxLatency {
		b.maxLatency = latency
	}
}

// Stats 统计结果
type Stats struct {
	// QPS 窗口内平均每秒请求数
	QPS float64 `json:"qps"`
	// AvgLatency 平均延迟（秒）
	AvgLatency float64 `json:"avg_latency"`
	MinLatency float64 `json:"min_latency"`
	MaxLatency float64 `json:"max_latency"`
	// SuccessRate 成功率 (0-100)
	SuccessRate  float64 `json:"success_rate"`
	TotalCount   int64   `json:"total_count"`
	SuccessCount int64   `json:"success_count"`
	FailureCount int64   `json:"failure_count"`
}

// GetStats 汇总窗口内仍有效的桶
func (w *Window) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	current := w.epoch(w.now())
	oldest := current - int64(len(w.buckets)) + 1

	var stats Stats
	var totalTime float64
	first := true
	for _, b := range w.buckets {
		if b.epoch < oldest || b.epoch > current || b.count == 0 {
			continue
		}
		stats.TotalCount += b.count
		stats.SuccessCount += b.successCnt
		stats.FailureCount += b.failureCnt
		totalTime += b.totalTime
		if first || b.minLatency < stats.MinLatency {
			stats.MinLatency = b.minLatency
		}
		if b.maxLatency > stats.MaxLatency {
			stats.MaxLatency = b.maxLatency
		}
		first = false
	}

	stats.QPS = float64(stats.TotalCount) / w.size.Seconds()
	if stats.TotalCount > 0 {
		stats.AvgLatency = totalTime / float64(stats.TotalCount)
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalCount) * 100
	}
	return stats
}

package system

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// Collector 进程资源采集器，定期刷新快照并作为 prometheus.Collector 暴露
type Collector struct {
	proc *process.Process

	mu    sync.RWMutex
	stats Stats

	cpuDesc        *prometheus.Desc
	memPercentDesc *prometheus.Desc
	memBytesDesc   *prometheus.Desc
	goroutinesDesc *prometheus.Desc

	cancel context.CancelFunc
	done   chan struct{}
}

// Stats 进程统计数据
type Stats struct {
	// CPU 使用率 (0-100)
	CPUPercent float64 `json:"cpu_percent"`
	// 内存占系统总内存的比例 (0-100)
	MemoryPercent float64 `json:"memory_percent"`
	// RSS 字节数
	MemoryBytes uint64    `json:"memory_bytes"`
	Goroutines  int       `json:"goroutines"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// New 创建采集器，namespace 为指标前缀
func New(namespace string) (*Collector, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, errors.Wrap(err, "failed to inspect current process")
	}

	fq := func(name string) string {
		return prometheus.BuildFQName(namespace, "process", name)
	}
	return &Collector{
		proc:           proc,
		cpuDesc:        prometheus.NewDesc(fq("cpu_percent"), "Process CPU usage percent.", nil, nil),
		memPercentDesc: prometheus.NewDesc(fq("memory_percent"), "Process RSS as percent of system memory.", nil, nil),
		memBytesDesc:   prometheus.NewDesc(fq("memory_rss_bytes"), "Process resident memory in bytes.", nil, nil),
		goroutinesDesc: prometheus.NewDesc(fq("goroutines"), "Number of goroutines.", nil, nil),
	}, nil
}

// Start 启动定期采集，重复调用无效
func (c *Collector) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.mu.Unlock()

	c.collect()

	go func() {
		defer close(c.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop 停止采集并等待后台 goroutine 退出
func (c *Collector) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

// collect 执行一次采集
func (c *Collector) collect() {
	var stats Stats

	if cpuPercent, err := c.proc.CPUPercent(); err == nil {
		stats.CPUPercent = cpuPercent
	}
	if memInfo, err := c.proc.MemoryInfo(); err == nil {
		stats.MemoryBytes = memInfo.RSS
		if vm, err := mem.VirtualMemory(); err == nil && vm.Total > 0 {
			stats.MemoryPercent = float64(memInfo.RSS) / float64(vm.Total) * 100
		}
	}
	stats.Goroutines = runtime.NumGoroutine()
	stats.UpdatedAt = time.Now()

	c.mu.Lock()
	c.stats = stats
	c.mu.Unlock()
}

// GetStats 获取当前快照
func (c *Collector) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// Describe 实现 prometheus.Collector
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.cpuDesc
	ch <- c.memPercentDesc
	ch <- c.memBytesDesc
	ch <- c.goroutinesDesc
}

// Collect 实现 prometheus.Collector
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.GetStats()
	ch <- prometheus.MustNewConstMetric(c.cpuDesc, prometheus.GaugeValue, s.CPUPercent)
	ch <- prometheus.MustNewConstMetric(c.memPercentDesc, prometheus.GaugeValue, s.MemoryPercent)
	ch <- prometheus.MustNewConstMetric(c.memBytesDesc, prometheus.GaugeValue, float64(s.MemoryBytes))
	ch <- prometheus.MustNewConstMetric(c.goroutinesDesc, prometheus.GaugeValue, float64(s.Goroutines))
}

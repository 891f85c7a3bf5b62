package sliding

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestWindow(t *testing.T) (*Window, *fakeClock) {
	t.Helper()
	w, err := NewWindow(&WindowConfig{WindowSize: 10 * time.Second, BucketCount: 10})
	require.NoError(t, err)
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	w.now = clock.now
	return w, clock
}

func TestWindow_Stats(t *testing.T) {
	w, clock := newTestWindow(t)

	w.Record(0.1, true)
	w.Record(0.3, false)
	clock.t = clock.t.Add(2 * time.Second)
	w.Record(0.2, true)

	s := w.GetStats()
	assert.Equal(t, int64(3), s.TotalCount)
	assert.Equal(t, int64(2), s.SuccessCount)
	assert.Equal(t, int64(1), s.FailureCount)
	assert.InDelta(t, 0.2, s.AvgLatency, 1e-9)
	assert.InDelta(t, 0.1, s.MinLatency, 1e-9)
	assert.InDelta(t, 0.3, s.MaxLatency, 1e-9)
	assert.InDelta(t, 0.3, s.QPS, 1e-9)
	assert.InDelta(t, 66.666, s.SuccessRate, 0.01)
}

func TestWindow_Expiry(t *testing.T) {
	w, clock := newTestWindow(t)

	w.Record(1, true)
	clock.t = clock.t.Add(9 * time.Second)
	assert.Equal(t, int64(1), w.GetStats().TotalCount)

	clock.t = clock.t.Add(time.Second)
	assert.Equal(t, int64(0), w.GetStats().TotalCount)

	// 复用同一个桶时旧数据被清空
	w.Record(2, false)
	s := w.GetStats()
	assert.Equal(t, int64(1), s.TotalCount)
	assert.Equal(t, int64(1), s.FailureCount)
	assert.InDelta(t, 2.0, s.MinLatency, 1e-9)
}

func TestNewWindow_Invalid(t *testing.T) {
	_, err := NewWindow(&WindowConfig{WindowSize: 5, BucketCount: 10})
	assert.Error(t, err)

	w, err := NewWindow(nil)
	require.NoError(t, err)
	assert.Equal(t, time.Second, w.span)
}

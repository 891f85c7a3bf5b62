package metrics

import (
	"testing"
	"time"

	"github.com/lk2023060901/imgsync/pkg/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Client) {
	t.Helper()
	client, err := prometheus.New(&prometheus.Config{
		Namespace:               "imgsync_test",
		DisableGoCollector:      true,
		DisableProcessCollector: true,
	}, nil)
	require.NoError(t, err)

	m, err := New(client, &Config{SystemCollectInterval: time.Hour})
	require.NoError(t, err)
	t.Cleanup(func() {
		m.Stop()
		client.Close()
	})
	return m, client
}

func TestRecordRequest(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordRequest(EndpointUpload, ResultSuccess, 10*time.Millisecond)
	m.RecordRequest(EndpointUpload, ResultSkipped, time.Millisecond)
	m.RecordRequest(EndpointUpload, ResultRejected, time.Millisecond)
	m.RecordRequest(EndpointSave, ResultFailed, time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestTotal.WithLabelValues(EndpointUpload, ResultSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestTotal.WithLabelValues(EndpointUpload, ResultRejected)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.RequestTotal.WithLabelValues(EndpointSave, ResultFailed)))

	// 成功率为百分比
	stats := m.GetStats()
	assert.InDelta(t, 50.0, stats.SuccessRate, 0.001)
}

func TestByteCounters(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.AddHashBytes(100)
	m.AddHashBytes(28)
	m.AddUploadBytes(1024)
	m.IncOrphaned()

	assert.Equal(t, float64(128), testutil.ToFloat64(m.HashBytes.WithLabelValues()))
	assert.Equal(t, float64(1024), testutil.ToFloat64(m.UploadBytes.WithLabelValues()))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OrphanedObjects.WithLabelValues()))
}

func TestMetricsExposedOnRegistry(t *testing.T) {
	m, client := newTestMetrics(t)
	m.RecordRequest(EndpointUpload, ResultSuccess, time.Millisecond)

	n, err := testutil.GatherAndCount(client.Registry(),
		"imgsync_test_requests_total", "imgsync_test_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

package prometheus

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&Config{Namespace: "test"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Namespace != "imgsync" {
		t.Errorf("Expected Namespace=imgsync, got %s", cfg.Namespace)
	}
	if cfg.HTTPServer.Enabled {
		t.Error("Expected HTTPServer.Enabled=false")
	}
	if cfg.HTTPServer.Path != "/metrics" {
		t.Errorf("Expected Path=/metrics, got %s", cfg.HTTPServer.Path)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{name: "valid config", config: DefaultConfig()},
		{name: "empty namespace", config: &Config{}, wantErr: true},
		{
			name: "http server enabled without addr",
			config: &Config{
				Namespace:  "test",
				HTTPServer: HTTPServerConfig{Enabled: true},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCounter(t *testing.T) {
	client := newTestClient(t)

	counter, err := client.NewCounter("uploads_total", "Total uploads", []string{"result"})
	if err != nil {
		t.Fatalf("NewCounter() error = %v", err)
	}
	counter.WithLabelValues("ok").Inc()

	_, err = client.NewCounter("uploads_total", "Total uploads", []string{"result"})
	if !errors.Is(err, ErrMetricExists) {
		t.Errorf("Expected ErrMetricExists, got %v", err)
	}

	retrieved, ok := client.Lookup("uploads_total")
	if !ok || retrieved != Collector(counter) {
		t.Error("Expected retrieved counter to match original")
	}
}

func TestNewHistogram(t *testing.T) {
	client := newTestClient(t)

	hist, err := client.NewHistogram("bytes", "Uploaded bytes", []string{"kind"}, prometheus.ExponentialBuckets(1024, 4, 6))
	if err != nil {
		t.Fatalf("NewHistogram() error = %v", err)
	}
	hist.WithLabelValues("image/png").Observe(4096)

	if _, ok := client.Lookup("bytes"); !ok {
		t.Error("Expected to find histogram")
	}
	if _, ok := client.Lookup("missing"); ok {
		t.Error("Expected missing metric")
	}
}

func TestClientClose(t *testing.T) {
	client, err := New(&Config{Namespace: "test"}, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !client.IsClosed() {
		t.Error("Expected client to be closed")
	}
	if err := client.Close(); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}
	if _, err := client.NewCounter("after_close", "After close", nil); !errors.Is(err, ErrClientClosed) {
		t.Errorf("Expected ErrClientClosed, got %v", err)
	}
}

func TestHandler(t *testing.T) {
	client := newTestClient(t)

	err := client.RegisterCollector(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: "test", Name: "started_at", Help: "Start time"},
		func() float64 { return float64(time.Now().Unix()) },
	))
	if err != nil {
		t.Fatalf("RegisterCollector() error = %v", err)
	}

	w := httptest.NewRecorder()
	client.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(w.Body)

	if !strings.Contains(string(body), "test_started_at") {
		t.Error("Expected custom collector in output")
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("Expected go collector in output")
	}
}

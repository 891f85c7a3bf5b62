package sentry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/getsentry/sentry-go"
	"github.com/lk2023060901/imgsync/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureTransport struct {
	mu     sync.Mutex
	events []*sentry.Event
}

func (t *captureTransport) Configure(sentry.ClientOptions)            {}
func (t *captureTransport) Flush(time.Duration) bool                  { return true }
func (t *captureTransport) FlushWithContext(ctx context.Context) bool { return true }
func (t *captureTransport) Close()                                    {}

func (t *captureTransport) SendEvent(e *sentry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, e)
}

func (t *captureTransport) last() *sentry.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.events) == 0 {
		return nil
	}
	return t.events[len(t.events)-1]
}

func newTestClient(t *testing.T) (*Client, *captureTransport) {
	t.Helper()
	tr := &captureTransport{}
	c, err := New(&Config{
		DSN:  "https://public@sentry.example.com/1",
		Tags: map[string]string{"service": "imgsync"},
	}, WithTransport(tr))
	require.NoError(t, err)
	return c, tr
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = New(&Config{})
	assert.ErrorIs(t, err, ErrInvalidDSN)

	_, err = New(&Config{DSN: "https://public@sentry.example.com/1", SampleRate: 2})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	assert.False(t, (&Config{}).Enabled())
	assert.True(t, (&Config{DSN: "x"}).Enabled())
}

func TestCaptureError_Tags(t *testing.T) {
	c, tr := newTestClient(t)

	ctx := logger.WithRequestID(context.Background(), "req-1")
	id := c.CaptureError(ctx, errors.New("upload failed"), map[string]string{"op": "upload"})
	require.NotNil(t, id)

	ev := tr.last()
	require.NotNil(t, ev)
	assert.Equal(t, "req-1", ev.Tags["request_id"])
	assert.Equal(t, "upload", ev.Tags["op"])
	assert.Equal(t, "imgsync", ev.Tags["service"])

	// 标签不泄漏到后续事件
	c.CaptureException(errors.New("other"))
	ev = tr.last()
	assert.Empty(t, ev.Tags["op"])

	assert.Nil(t, c.CaptureError(ctx, nil, nil))
	assert.Equal(t, uint64(2), c.Stats().EventsCaptured)
}

func TestRecoverWithContext(t *testing.T) {
	c, tr := newTestClient(t)

	id := c.RecoverWithContext(context.Background(), "boom")
	require.NotNil(t, id)
	assert.Equal(t, sentry.LevelFatal, tr.last().Level)

	assert.Nil(t, c.RecoverWithContext(context.Background(), nil))
}

func TestCaptureMessage(t *testing.T) {
	c, tr := newTestClient(t)
	c.CaptureMessage("orphaned object", LevelWarning)
	ev := tr.last()
	require.NotNil(t, ev)
	assert.Equal(t, "orphaned object", ev.Message)
	assert.Equal(t, sentry.LevelWarning, ev.Level)
}

func TestClose(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.Close())
	assert.True(t, c.IsClosed())
	assert.ErrorIs(t, c.Close(), ErrClientClosed)
	assert.Nil(t, c.CaptureException(errors.New("after close")))
}

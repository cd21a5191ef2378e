package liveness

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classline/classline/internal/common/httpclient"
	"github.com/classline/classline/internal/events"
	"github.com/classline/classline/internal/platform"
)

type testConfig struct {
	serverURL string
}

func (c *testConfig) GetServerURL() string { return c.serverURL }
func (c *testConfig) GetToken() string     { return "" }

func newPoller(srv *httptest.Server, bus *events.Bus, opts ...Option) *Poller {
	client := platform.New(httpclient.NewClient(&testConfig{serverURL: srv.URL}))
	return New(client, bus, "tok", opts...)
}

func TestBackoffMonotonicOnRateLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := newPoller(srv, events.New())
	require.Equal(t, 10*time.Second, p.Interval())

	wantIntervals := []time.Duration{15 * time.Second, 22500 * time.Millisecond, 30 * time.Second}
	for _, want := range wantIntervals {
		assert.True(t, p.pollOnce(context.Background()))
		assert.Equal(t, want, p.Interval())
	}
}

func TestBackoffOnNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	p := newPoller(srv, events.New())
	assert.True(t, p.pollOnce(context.Background()))
	assert.Equal(t, 12*time.Second, p.Interval())
	assert.True(t, p.pollOnce(context.Background()))
	assert.Equal(t, 14400*time.Millisecond, p.Interval())
}

func TestSuccessResetsIntervalAndRefreshes(t *testing.T) {
	status := int32(http.StatusTooManyRequests)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(atomic.LoadInt32(&status)))
	}))
	defer srv.Close()

	refreshed := int32(0)
	p := newPoller(srv, events.New(), WithSessionRefresh(func() { atomic.AddInt32(&refreshed, 1) }))

	p.pollOnce(context.Background())
	require.Equal(t, 15*time.Second, p.Interval())

	atomic.StoreInt32(&status, http.StatusOK)
	assert.True(t, p.pollOnce(context.Background()))
	assert.Equal(t, 10*time.Second, p.Interval())
	assert.Equal(t, int32(1), atomic.LoadInt32(&refreshed))
}

func TestEndedIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	bus := events.New()
	ch, unsub := bus.Subscribe(2)
	defer unsub()

	p := newPoller(srv, bus, WithIntervals(5*time.Millisecond, 30*time.Second))
	p.Start(context.Background())

	select {
	case ev := <-ch:
		_, ok := ev.(events.SessionEnded)
		require.True(t, ok, "expected SessionEnded, got %T", ev)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for SessionEnded")
	}

	// The loop exits on its own; Stop just joins it.
	p.Stop()
	assert.Equal(t, StateStopped, p.State())

	seen := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, atomic.LoadInt32(&calls), "no polls may be scheduled after ENDED")
}

func TestStopCancelsPolling(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newPoller(srv, events.New(), WithIntervals(5*time.Millisecond, 30*time.Second))
	p.Start(context.Background())

	time.Sleep(30 * time.Millisecond)
	p.Stop()
	assert.Equal(t, StateStopped, p.State())

	seen := atomic.LoadInt32(&calls)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, seen, atomic.LoadInt32(&calls), "no polls after Stop")
}

func TestStopIdempotent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	p := newPoller(srv, events.New(), WithIntervals(5*time.Millisecond, 30*time.Second))
	p.Start(context.Background())
	p.Stop()
	p.Stop()
	assert.Equal(t, StateStopped, p.State())
}

func TestStartAfterStopDoesNothing(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	p := newPoller(srv, events.New(), WithIntervals(5*time.Millisecond, 30*time.Second))
	p.Start(context.Background())
	p.Stop()

	p.Start(context.Background())
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateStopped, p.State())
}

package activitylog

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
	"github.com/classline/classline/pkg/api"
)

type testConfig struct {
	serverURL string
}

func (c *testConfig) GetServerURL() string { return c.serverURL }
func (c *testConfig) GetToken() string     { return "" }

func newDispatcher(srv *httptest.Server, bus *events.Bus, token string, opts ...Option) *Dispatcher {
	client := platform.New(httpclient.NewClient(&testConfig{serverURL: srv.URL}))
	return New(client, bus, token, opts...)
}

func entry(turn int) *api.TurnLogEntry {
	input := "student says"
	return &api.TurnLogEntry{ActivityKey: "socratic", TurnIndex: turn, StudentInput: &input}
}

func drainNotices(ch <-chan events.Event) []events.Notice {
	var notices []events.Notice
	for {
		select {
		case ev := <-ch:
			if n, ok := ev.(events.Notice); ok {
				notices = append(notices, n)
			}
		default:
			return notices
		}
	}
}

func TestSendSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	refreshed := false
	bus := events.New()
	d := newDispatcher(srv, bus, "tok", WithSessionRefresh(func() { refreshed = true }))

	assert.True(t, d.Send(context.Background(), entry(3)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, refreshed)

	last := d.LastLogged()
	require.NotNil(t, last)
	assert.Equal(t, "socratic", last.ActivityKey)
	assert.Equal(t, 3, last.TurnIndex)
}

func TestSendWithoutTokenShortCircuits(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	bus := events.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	d := newDispatcher(srv, bus, "")
	assert.False(t, d.Send(context.Background(), entry(0)))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls), "no network call without a token")

	notices := drainNotices(ch)
	require.Len(t, notices, 1)
	assert.Equal(t, events.LevelError, notices[0].Level)
}

func TestDuplicateTurnIsSuccess(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Write([]byte(`{"ok":true}`))
			return
		}
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	bus := events.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	d := newDispatcher(srv, bus, "tok")
	assert.True(t, d.Send(context.Background(), entry(1)))
	assert.True(t, d.Send(context.Background(), entry(1)), "409 duplicate must be treated as success")
	assert.Empty(t, drainNotices(ch), "duplicates must not surface user-visible errors")
}

func TestInFlightExclusion(t *testing.T) {
	var calls int32
	inHandler := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		close(inHandler)
		<-release
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	d := newDispatcher(srv, events.New(), "tok")

	firstDone := make(chan bool, 1)
	go func() { firstDone <- d.Send(context.Background(), entry(0)) }()

	<-inHandler
	assert.False(t, d.Send(context.Background(), entry(1)), "second send while first is unresolved must fail fast")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "no second network call")

	close(release)
	assert.True(t, <-firstDone)
}

func TestSessionEndedPublishesEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	}))
	defer srv.Close()

	bus := events.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	d := newDispatcher(srv, bus, "tok")
	assert.False(t, d.Send(context.Background(), entry(2)))

	var ended bool
	deadline := time.After(time.Second)
	for !ended {
		select {
		case ev := <-ch:
			if _, ok := ev.(events.SessionEnded); ok {
				ended = true
			}
		case <-deadline:
			t.Fatal("timeout waiting for SessionEnded event")
		}
	}
}

func TestTokenExpiredNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	bus := events.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	d := newDispatcher(srv, bus, "tok")
	assert.False(t, d.Send(context.Background(), entry(0)))

	notices := drainNotices(ch)
	require.Len(t, notices, 1)
	assert.Contains(t, notices[0].Message, "Rejoin")
}

func TestRateLimitedWarnsWithoutRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	bus := events.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	d := newDispatcher(srv, bus, "tok")
	assert.False(t, d.Send(context.Background(), entry(0)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "dispatcher must not retry internally")

	notices := drainNotices(ch)
	require.Len(t, notices, 1)
	assert.Equal(t, events.LevelWarn, notices[0].Level)
}

func TestNetworkErrorNotifies(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	bus := events.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	d := newDispatcher(srv, bus, "tok")
	assert.False(t, d.Send(context.Background(), entry(0)))

	notices := drainNotices(ch)
	require.Len(t, notices, 1)
	assert.Equal(t, events.LevelError, notices[0].Level)
}

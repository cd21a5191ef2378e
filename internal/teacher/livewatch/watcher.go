// Package livewatch polls the teacher-facing live snapshot of a run: who has
// joined, who was active within the observation window, and per-student turn
// counts. Each snapshot replaces the previous one wholesale. Polling shares
// the liveness backoff mechanics; changing the observation window triggers
// one immediate out-of-cycle poll in addition to the regular cadence.
package livewatch

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/classline/classline/internal/common/backoff"
	"github.com/classline/classline/internal/events"
	"github.com/classline/classline/internal/platform"
	"github.com/classline/classline/pkg/api"
)

const (
	defaultBaseline  = 10 * time.Second
	defaultCeiling   = 30 * time.Second
	defaultWindowSec = 300
)

// Watcher polls one run's live snapshot until the run ends or it is stopped.
type Watcher struct {
	client     *platform.Client
	bus        *events.Bus
	runID      int64
	onSnapshot func(*api.LiveSnapshot)

	windowSec atomic.Int64
	kick      chan struct{}

	mu       sync.Mutex
	backoff  *backoff.Backoff
	snapshot *api.LiveSnapshot

	started  atomic.Bool
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithIntervals overrides the baseline polling interval and the ceiling.
func WithIntervals(baseline, ceiling time.Duration) Option {
	return func(w *Watcher) {
		w.backoff = backoff.New(baseline, ceiling)
	}
}

// WithWindow sets the initial observation window in seconds.
func WithWindow(sec int) Option {
	return func(w *Watcher) {
		w.windowSec.Store(int64(sec))
	}
}

// WithOnSnapshot registers a callback invoked with every fresh snapshot.
func WithOnSnapshot(fn func(*api.LiveSnapshot)) Option {
	return func(w *Watcher) {
		w.onSnapshot = fn
	}
}

// New creates a watcher for the given run.
func New(client *platform.Client, bus *events.Bus, runID int64, opts ...Option) *Watcher {
	w := &Watcher{
		client:  client,
		bus:     bus,
		runID:   runID,
		backoff: backoff.New(defaultBaseline, defaultCeiling),
		kick:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.windowSec.Store(defaultWindowSec)
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the polling loop with one immediate poll. The watcher must
// be stopped on teardown.
func (w *Watcher) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	if !w.pollOnce(ctx) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
		case <-time.After(w.Interval()):
		}
		if !w.pollOnce(ctx) {
			return
		}
	}
}

// pollOnce fetches one snapshot. Returns false when polling must stop.
func (w *Watcher) pollOnce(ctx context.Context) bool {
	snap, status, err := w.client.LiveSnapshot(ctx, w.runID, int(w.windowSec.Load()))
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.mu.Lock()
		w.backoff.OnNetworkError()
		w.mu.Unlock()
		log.Warn().Err(err).Dur("interval", w.Interval()).Msg("live snapshot fetch failed")
		return true
	}

	switch {
	case status == http.StatusOK:
		w.mu.Lock()
		w.backoff.OnSuccess()
		w.snapshot = snap
		w.mu.Unlock()
		if w.onSnapshot != nil {
			w.onSnapshot(snap)
		}
		if snap.Status == api.RunStatusEnded {
			log.Info().Int64("run_id", w.runID).Msg("run ended, stopping live watch")
			w.bus.Publish(events.SessionEnded{})
			return false
		}
		return true

	case status == http.StatusGone:
		log.Info().Int64("run_id", w.runID).Msg("run ended, stopping live watch")
		w.bus.Publish(events.SessionEnded{})
		return false

	case status == http.StatusTooManyRequests:
		w.mu.Lock()
		w.backoff.OnRateLimit()
		w.mu.Unlock()
		log.Warn().Dur("interval", w.Interval()).Msg("snapshot polling rate limited, stretching interval")
		return true

	default:
		log.Warn().Int("status", status).Msg("live snapshot fetch failed")
		return true
	}
}

// SetWindow changes the observation window and triggers one immediate
// out-of-cycle poll.
func (w *Watcher) SetWindow(sec int) {
	w.windowSec.Store(int64(sec))
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the most recent snapshot, or nil before the first
// successful poll.
func (w *Watcher) Snapshot() *api.LiveSnapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshot
}

// Interval returns the current polling interval.
func (w *Watcher) Interval() time.Duration {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.backoff.Current()
}

// Stop cancels polling and waits for the loop to exit. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		if w.cancel != nil {
			w.cancel()
			<-w.done
		}
	})
}

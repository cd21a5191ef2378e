// Package liveness polls the platform to detect when the session a student
// participates in has ended. Polling is fixed-delay: each tick is a fresh
// request-await cycle and the next tick is scheduled after completion, so at
// most one poll is ever in flight per poller.
package liveness

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
)

// State is the poller lifecycle state. Backoff is not a separate state: rate
// limiting and network failures only stretch the polling interval.
type State int32

const (
	StateIdle State = iota
	StateActive
	StateStopped
)

const (
	defaultBaseline = 10 * time.Second
	defaultCeiling  = 30 * time.Second
)

// Poller periodically probes session liveness with one activity token.
// Stopped is terminal: it is reached on ENDED detection or explicit Stop,
// and no further polls are scheduled after it.
type Poller struct {
	client  *platform.Client
	bus     *events.Bus
	token   string
	refresh func()

	mu      sync.Mutex
	backoff *backoff.Backoff

	state    atomic.Int32
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Poller.
type Option func(*Poller)

// WithBaseline overrides the baseline polling interval.
func WithBaseline(d time.Duration) Option {
	return func(p *Poller) {
		p.backoff = backoff.New(d, defaultCeiling)
	}
}

// WithIntervals overrides both the baseline interval and the ceiling.
func WithIntervals(baseline, ceiling time.Duration) Option {
	return func(p *Poller) {
		p.backoff = backoff.New(baseline, ceiling)
	}
}

// WithSessionRefresh registers a session-cache refresh invoked on each
// successful liveness tick.
func WithSessionRefresh(fn func()) Option {
	return func(p *Poller) {
		p.refresh = fn
	}
}

// New creates a poller for the session bound to the activity token.
func New(client *platform.Client, bus *events.Bus, token string, opts ...Option) *Poller {
	p := &Poller{
		client:  client,
		bus:     bus,
		token:   token,
		backoff: backoff.New(defaultBaseline, defaultCeiling),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches the polling loop. The poller must be stopped on teardown;
// a leaked poller keeps polling a session the caller has left.
func (p *Poller) Start(ctx context.Context) {
	if !p.state.CompareAndSwap(int32(StateIdle), int32(StateActive)) {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	go p.run(ctx)
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	defer p.state.Store(int32(StateStopped))

	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval()):
		}
		if !p.pollOnce(ctx) {
			return
		}
	}
}

// pollOnce issues one liveness probe. Returns false when polling must stop.
func (p *Poller) pollOnce(ctx context.Context) bool {
	status, err := p.client.SessionStatus(ctx, p.token)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.mu.Lock()
		p.backoff.OnNetworkError()
		p.mu.Unlock()
		log.Warn().Err(err).Dur("interval", p.Interval()).Msg("session status check failed")
		return true
	}

	switch {
	case status == http.StatusGone:
		log.Info().Msg("session ended detected via status check")
		p.bus.Publish(events.SessionEnded{})
		return false

	case status == http.StatusTooManyRequests:
		p.mu.Lock()
		p.backoff.OnRateLimit()
		p.mu.Unlock()
		log.Warn().Dur("interval", p.Interval()).Msg("status polling rate limited, stretching interval")
		return true

	case status >= 200 && status < 300:
		p.mu.Lock()
		p.backoff.OnSuccess()
		p.mu.Unlock()
		if p.refresh != nil {
			p.refresh()
		}
		return true

	default:
		log.Warn().Int("status", status).Msg("unexpected session status response")
		return true
	}
}

// Stop cancels polling and waits for the loop to exit. Idempotent; safe to
// call whether or not the poller reached Stopped on its own.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
			<-p.done
		}
		p.state.Store(int32(StateStopped))
	})
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	return State(p.state.Load())
}

// Interval returns the current polling interval.
func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backoff.Current()
}

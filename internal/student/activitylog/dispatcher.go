// Package activitylog delivers turns of student/AI interaction to the
// platform. Delivery is fire-and-forget with no client-side persistence and
// no internal retries; idempotency is handled server-side, so a duplicate
// turn is a success, not an error.
package activitylog

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/classline/classline/internal/events"
	"github.com/classline/classline/internal/platform"
	"github.com/classline/classline/pkg/api"
)

// LoggedTurn marks the most recent durably accepted turn.
type LoggedTurn struct {
	ActivityKey string
	TurnIndex   int
	LoggedAt    time.Time
}

// Dispatcher sends activity-log entries for one session. A single in-flight
// flag serializes logical turns: a send arriving while another is unresolved
// is rejected, not queued. Callers serialize their own turns.
type Dispatcher struct {
	client  *platform.Client
	bus     *events.Bus
	token   string
	refresh func()

	inFlight atomic.Bool

	mu         sync.Mutex
	lastLogged *LoggedTurn
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSessionRefresh registers a session-cache refresh invoked after every
// durably accepted send.
func WithSessionRefresh(fn func()) Option {
	return func(d *Dispatcher) {
		d.refresh = fn
	}
}

// New creates a dispatcher bound to one activity token.
func New(client *platform.Client, bus *events.Bus, token string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		client: client,
		bus:    bus,
		token:  token,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Send delivers one turn. Returns true when the entry is durably accepted or
// already durably present server-side, false otherwise. Exactly one outbound
// HTTP call is made, and none at all when the token is missing or another
// send is in flight.
func (d *Dispatcher) Send(ctx context.Context, entry *api.TurnLogEntry) bool {
	if d.token == "" {
		log.Warn().Msg("activity token not available, cannot save turn")
		d.bus.Publish(events.Notice{Level: events.LevelError, Message: "No session token. Rejoin the session."})
		return false
	}

	if !d.inFlight.CompareAndSwap(false, true) {
		log.Warn().Str("activity_key", entry.ActivityKey).Int("turn_index", entry.TurnIndex).
			Msg("send already in flight, rejecting duplicate")
		return false
	}
	defer d.inFlight.Store(false)

	status, err := d.client.LogTurn(ctx, d.token, entry)
	if err != nil {
		log.Error().Err(err).Msg("network error while saving activity log")
		d.bus.Publish(events.Notice{Level: events.LevelError, Message: "Network error, could not save activity."})
		return false
	}

	switch {
	case status >= 200 && status < 300:
		d.mu.Lock()
		d.lastLogged = &LoggedTurn{
			ActivityKey: entry.ActivityKey,
			TurnIndex:   entry.TurnIndex,
			LoggedAt:    time.Now(),
		}
		d.mu.Unlock()
		if d.refresh != nil {
			d.refresh()
		}
		log.Debug().Str("activity_key", entry.ActivityKey).Int("turn_index", entry.TurnIndex).
			Msg("activity log saved")
		return true

	case status == http.StatusUnauthorized:
		log.Error().Msg("activity token expired or invalid")
		d.bus.Publish(events.Notice{Level: events.LevelError, Message: "Session expired. Rejoin the session."})
		return false

	case status == http.StatusGone:
		log.Error().Msg("session ended")
		d.bus.Publish(events.Notice{Level: events.LevelError, Message: "Session has ended."})
		d.bus.Publish(events.SessionEnded{})
		return false

	case status == http.StatusConflict:
		// Duplicate turn already recorded server-side, e.g. from a
		// double-invoked caller. Success, not an error.
		log.Debug().Str("activity_key", entry.ActivityKey).Int("turn_index", entry.TurnIndex).
			Msg("duplicate turn save")
		return true

	case status == http.StatusTooManyRequests:
		log.Warn().Msg("rate limit exceeded for activity logging")
		d.bus.Publish(events.Notice{Level: events.LevelWarn, Message: "Saving too fast. The next turn will retry."})
		return false

	default:
		log.Error().Int("status", status).Msg("activity log save failed")
		d.bus.Publish(events.Notice{Level: events.LevelError, Message: "Failed to save activity."})
		return false
	}
}

// LastLogged returns the marker of the most recent durably accepted turn,
// or nil if none has been accepted yet.
func (d *Dispatcher) LastLogged() *LoggedTurn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastLogged
}

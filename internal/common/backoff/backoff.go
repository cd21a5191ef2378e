// Package backoff implements the polling-interval adjustment shared by the
// liveness pollers. Rate limiting and network failures stretch the interval
// multiplicatively up to a ceiling; a successful poll snaps it back to the
// baseline.
package backoff

import "time"

const (
	rateLimitFactor    = 1.5
	networkErrorFactor = 1.2
)

// Backoff tracks the current polling interval. Not safe for concurrent use;
// each poller owns one instance.
type Backoff struct {
	baseline time.Duration
	ceiling  time.Duration
	current  time.Duration
}

// New creates a Backoff starting at baseline and capped at ceiling.
func New(baseline, ceiling time.Duration) *Backoff {
	return &Backoff{
		baseline: baseline,
		ceiling:  ceiling,
		current:  baseline,
	}
}

// Current returns the interval to wait before the next poll.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// OnSuccess resets the interval to the baseline.
func (b *Backoff) OnSuccess() {
	b.current = b.baseline
}

// OnRateLimit stretches the interval in response to a 429.
func (b *Backoff) OnRateLimit() {
	b.stretch(rateLimitFactor)
}

// OnNetworkError stretches the interval in response to a transport failure.
func (b *Backoff) OnNetworkError() {
	b.stretch(networkErrorFactor)
}

func (b *Backoff) stretch(factor float64) {
	next := time.Duration(float64(b.current) * factor)
	if next > b.ceiling {
		next = b.ceiling
	}
	b.current = next
}

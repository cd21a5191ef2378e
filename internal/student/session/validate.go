package session

import (
	"time"

	"github.com/rs/zerolog/log"
)

// Reason explains why a cached session is not usable.
type Reason string

const (
	ReasonNoSession        Reason = "no_session"
	ReasonIncomplete       Reason = "incomplete_session"
	ReasonIdentityMismatch Reason = "identity_mismatch"
	ReasonExpired          Reason = "expired"
)

// Result is the outcome of validating the cached session.
type Result struct {
	Valid   bool
	Reason  Reason
	Session *Record
}

// Validate decides whether the cached session is usable: the record must
// exist, be bound to this client's identity, be unexpired, and carry all
// required fields. An identity mismatch is a security boundary: a session
// cached by one client context must not be silently reused by another. It
// clears the store, as does expiry. Safe to call repeatedly.
func (s *Store) Validate() Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.readRaw()
	if rec == nil {
		return Result{Valid: false, Reason: ReasonNoSession}
	}

	if rec.ClientIdentity != s.identityLocked() {
		log.Warn().Msg("client identity mismatch, clearing session cache")
		s.clearLocked()
		return Result{Valid: false, Reason: ReasonIdentityMismatch}
	}

	if rec.expired(time.Now()) {
		s.clearLocked()
		return Result{Valid: false, Reason: ReasonExpired}
	}

	if !rec.complete() {
		return Result{Valid: false, Reason: ReasonIncomplete}
	}

	return Result{Valid: true, Session: rec}
}

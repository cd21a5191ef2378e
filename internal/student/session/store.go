// Package session manages the client-side cache of a student's participation
// in a running activity: one persistent record holding identity, rejoin PIN,
// and activity token, bound to the client identity that saved it and subject
// to two composed expiry policies (sliding inactivity TTL and a fixed
// maximum session age).
package session

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	recordFileName   = "session.json"
	identityFileName = "identity"

	// slidingTTL expires a session after this much inactivity.
	slidingTTL = 30 * time.Minute
	// maxSessionAge expires a session this long after first join regardless
	// of activity.
	maxSessionAge = 24 * time.Hour
	// touchInterval throttles interaction-driven refreshes.
	touchInterval = 60 * time.Second
)

// Record is the cached identity of a participant in a running activity.
type Record struct {
	RunID          int64     `json:"run_id"`
	StudentName    string    `json:"student_name"`
	RejoinPin      string    `json:"rejoin_pin,omitempty"`
	ActivityToken  string    `json:"activity_token,omitempty"`
	ClientIdentity string    `json:"client_identity"`
	JoinedAt       time.Time `json:"joined_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// ExpiresAt returns when the record will expire absent further activity:
// the earlier of the sliding-TTL deadline and the maximum session age.
func (r *Record) ExpiresAt() time.Time {
	sliding := r.LastActivityAt.Add(slidingTTL)
	hard := r.JoinedAt.Add(maxSessionAge)
	if hard.Before(sliding) {
		return hard
	}
	return sliding
}

func (r *Record) expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt())
}

func (r *Record) complete() bool {
	return r.RunID != 0 && r.StudentName != "" && r.ActivityToken != ""
}

// Store persists the session record and the volatile client identity.
// The record lives under the user config directory and survives restarts;
// the identity cache lives in volatile storage so a new login session gets
// a fresh identity. Safe for concurrent use within one process; concurrent
// processes race last-write-wins on the record file.
type Store struct {
	dir         string
	volatileDir string

	mu       sync.Mutex
	identity string
}

// NewStore creates a store rooted at the default locations.
func NewStore() (*Store, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve user config directory")
	}
	volatileBase := os.Getenv("XDG_RUNTIME_DIR")
	if volatileBase == "" {
		volatileBase = os.TempDir()
	}
	return NewStoreAt(filepath.Join(cfgDir, "classline"), filepath.Join(volatileBase, "classline")), nil
}

// NewStoreAt creates a store rooted at explicit directories.
func NewStoreAt(dir, volatileDir string) *Store {
	return &Store{dir: dir, volatileDir: volatileDir}
}

// Identity returns the client identity for this login session, deriving and
// caching it on first use. Subsequent calls return the cached value
// unchanged.
func (s *Store) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identityLocked()
}

func (s *Store) identityLocked() string {
	if s.identity != "" {
		return s.identity
	}

	path := filepath.Join(s.volatileDir, identityFileName)
	if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
		s.identity = string(data)
		return s.identity
	}

	s.identity = newIdentity(time.Now())
	if err := os.MkdirAll(s.volatileDir, 0o700); err != nil {
		log.Warn().Err(err).Msg("failed to create identity cache directory")
		return s.identity
	}
	if err := os.WriteFile(path, []byte(s.identity), 0o600); err != nil {
		log.Warn().Err(err).Msg("failed to cache client identity")
	}
	return s.identity
}

// Save persists the session record, merging with any existing record for the
// same (runID, studentName): the original join time is preserved, and a
// missing pin or token keeps the previously stored value. The activity
// timestamp is always refreshed. Storage failures are logged, never returned.
func (s *Store) Save(runID int64, studentName, rejoinPin, activityToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	rec := Record{
		RunID:          runID,
		StudentName:    studentName,
		RejoinPin:      rejoinPin,
		ActivityToken:  activityToken,
		ClientIdentity: s.identityLocked(),
		JoinedAt:       now,
		LastActivityAt: now,
	}

	if existing := s.readRaw(); existing != nil && existing.RunID == runID && existing.StudentName == studentName {
		rec.JoinedAt = existing.JoinedAt
		if rec.RejoinPin == "" {
			rec.RejoinPin = existing.RejoinPin
		}
		if rec.ActivityToken == "" {
			rec.ActivityToken = existing.ActivityToken
		}
	}

	if err := s.writeLocked(&rec); err != nil {
		log.Warn().Err(err).Msg("failed to save session cache")
		return
	}
	log.Debug().Int64("run_id", runID).Str("student", studentName).
		Time("expires_at", rec.ExpiresAt()).Msg("session cache updated")
}

// Load returns the cached record, or nil if none exists, deserialization
// fails, or the record has expired. Failed and expired records are cleared
// as a side effect.
func (s *Store) Load() *Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.readRaw()
	if rec == nil {
		return nil
	}
	if rec.expired(time.Now()) {
		log.Debug().Msg("session cache expired")
		s.clearLocked()
		return nil
	}
	return rec
}

// Refresh updates the last-activity timestamp unconditionally. Used on
// successful activity-log sends and liveness polling ticks.
func (s *Store) Refresh() {
	s.refresh(0)
}

// Touch updates the last-activity timestamp in response to user interaction,
// throttled to once per minute.
func (s *Store) Touch() {
	s.refresh(touchInterval)
}

func (s *Store) refresh(minGap time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.readRaw()
	if rec == nil {
		return
	}
	now := time.Now()
	if rec.expired(now) || now.Sub(rec.LastActivityAt) < minGap {
		return
	}
	rec.LastActivityAt = now
	if err := s.writeLocked(rec); err != nil {
		log.Warn().Err(err).Msg("failed to refresh session cache")
	}
}

// Clear removes the session record and the volatile identity cache.
// Idempotent; never fails visibly.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearLocked()
}

func (s *Store) clearLocked() {
	if err := os.Remove(filepath.Join(s.dir, recordFileName)); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("failed to remove session record")
	}
	if err := os.Remove(filepath.Join(s.volatileDir, identityFileName)); err != nil && !os.IsNotExist(err) {
		log.Debug().Err(err).Msg("failed to remove identity cache")
	}
	s.identity = ""
}

// readRaw loads the record from disk without applying expiry. A corrupt
// record is treated as absent.
func (s *Store) readRaw() *Record {
	data, err := os.ReadFile(filepath.Join(s.dir, recordFileName))
	if err != nil {
		return nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		log.Warn().Err(err).Msg("session cache is corrupt")
		s.clearLocked()
		return nil
	}
	return &rec
}

func (s *Store) writeLocked(rec *Record) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrap(err, "failed to create session cache directory")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to serialize session record")
	}
	if err := os.WriteFile(filepath.Join(s.dir, recordFileName), data, 0o600); err != nil {
		return errors.Wrap(err, "failed to write session record")
	}
	return nil
}

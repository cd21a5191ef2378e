// Package api defines the wire types exchanged with the classroom platform
// REST API: the student join flow, activity-log entries, session liveness,
// and teacher-facing live snapshots.
package api

import (
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RunStatus is the lifecycle state of a session run.
type RunStatus string

const (
	RunStatusReady RunStatus = "READY"
	RunStatusLive  RunStatus = "LIVE"
	RunStatusEnded RunStatus = "ENDED"
)

// JoinRequest is the body of POST /api/join. RejoinPin is only set when the
// server has signalled that the student name is already enrolled.
type JoinRequest struct {
	Code        string `json:"code" validate:"required,len=6,alphanum"`
	StudentName string `json:"student_name" validate:"required,max=20"`
	RejoinPin   string `json:"rejoin_pin,omitempty" validate:"omitempty,len=2,number"`
}

// JoinResponse is the successful response to a join or rejoin.
// RejoinPin is only issued on first join.
type JoinResponse struct {
	OK            bool   `json:"ok"`
	RunID         int64  `json:"run_id"`
	StudentName   string `json:"student_name"`
	RejoinPin     string `json:"rejoin_pin,omitempty"`
	ActivityToken string `json:"activity_token"`
}

// TurnLogEntry is one unit of student/AI interaction persisted server-side.
// TurnIndex starts at 0 for the initial AI message and is monotonic per
// activity. Evaluation holds an opaque JSON blob; it is spliced into the
// request body as-is rather than re-encoded.
type TurnLogEntry struct {
	ActivityKey  string  `json:"activity_key"`
	TurnIndex    int     `json:"turn_index"`
	StudentInput *string `json:"student_input"`
	AIOutput     *string `json:"ai_output"`
	Evaluation   string  `json:"-"`
}

// StudentSnapshot is one row of a live snapshot.
type StudentSnapshot struct {
	StudentName string     `json:"student_name"`
	LastSeenAt  *time.Time `json:"last_seen_at"`
	TurnsTotal  int        `json:"turns_total"`
}

// LiveSnapshot is the teacher-facing view of a running session. Each poll
// replaces the previous snapshot wholesale; snapshots are never merged.
type LiveSnapshot struct {
	Status      RunStatus         `json:"status"`
	WindowSec   int               `json:"window_sec"`
	JoinedTotal int               `json:"joined_total"`
	ActiveRecent int              `json:"active_recent"`
	Students    []StudentSnapshot `json:"students"`
}

// Marshal encodes v with the package's JSON configuration.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes data with the package's JSON configuration.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

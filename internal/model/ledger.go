package model

import "time"

// ActionRecord is an immutable fact: a subject performed an action in a period.
type ActionRecord struct {
	ID         string            `json:"id"`
	SubjectID  string            `json:"subject_id"`
	ActionKind string            `json:"action_kind"`
	PeriodKey  string            `json:"period_key"`
	Timestamp  time.Time         `json:"timestamp"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SessionRecord is an entry/exit pair. ExitAt stays nil while the session is open.
type SessionRecord struct {
	ID          string     `json:"id"`
	SubjectID   string     `json:"subject_id"`
	SessionKind string     `json:"session_kind"`
	PeriodKey   string     `json:"period_key"`
	EntryAt     time.Time  `json:"entry_at"`
	ExitAt      *time.Time `json:"exit_at,omitempty"`
	// AutoClosed marks sessions closed by the sweep rather than an exit scan.
	AutoClosed bool `json:"auto_closed,omitempty"`
}

// IsOpen reports whether the session has no exit yet.
func (s SessionRecord) IsOpen() bool {
	return s.ExitAt == nil
}

// Duration is zero for open sessions.
func (s SessionRecord) Duration() time.Duration {
	if s.ExitAt == nil {
		return 0
	}
	return s.ExitAt.Sub(s.EntryAt)
}

package model

import "time"

// ViolationRecord is an append-only rule breach counted toward suspension.
type ViolationRecord struct {
	ID          string    `json:"id"`
	SubjectID   string    `json:"subject_id"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
}

// Violation kinds raised by the gate.
const (
	ViolationAfterHoursEntry = "after_hours_entry"
	ViolationAfterHoursExit  = "after_hours_exit"
)

package model

import "time"

// SubjectStatus is the eligibility state of a subject.
type SubjectStatus string

const (
	SubjectActive    SubjectStatus = "active"
	SubjectSuspended SubjectStatus = "suspended"
)

// Roles a subject or staff account can hold.
const (
	RoleStudent    = "student"
	RoleAdmin      = "admin"
	RoleSecurity   = "security"
	RoleCafe       = "cafe"
	RoleLibrary    = "library"
	RoleDormitory  = "dormitory"
	RoleDiscipline = "discipline"
)

// Subject is a person tracked by the system.
type Subject struct {
	ID               string        `json:"id" validate:"required,max=64"`
	Name             string        `json:"name" validate:"required,max=128"`
	Email            string        `json:"email,omitempty" validate:"omitempty,email"`
	Role             string        `json:"role" validate:"required,oneof=student admin security cafe library dormitory discipline"`
	Status           SubjectStatus `json:"status"`
	SuspensionReason string        `json:"suspension_reason,omitempty"`
	SuspendedAt      *time.Time    `json:"suspended_at,omitempty"`
	LastEntryAt      *time.Time    `json:"last_entry_at,omitempty"`
	LastExitAt       *time.Time    `json:"last_exit_at,omitempty"`
	RegisteredAt     time.Time     `json:"registered_at"`
	RegisteredBy     string        `json:"registered_by,omitempty"`
}

// IsSuspended reports whether the subject failed eligibility.
func (s Subject) IsSuspended() bool {
	return s.Status == SubjectSuspended
}

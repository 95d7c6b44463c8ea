package model

import "time"

// PersonalItemStatus tracks where a registered belonging is.
type PersonalItemStatus string

const (
	PersonalItemActive     PersonalItemStatus = "active"
	PersonalItemExpired    PersonalItemStatus = "expired"
	PersonalItemCheckedOut PersonalItemStatus = "checked-out"
)

// PersonalItem is a belonging registered to a subject so the gate can let it
// leave and come back.
type PersonalItem struct {
	ID           string             `json:"id"`
	SubjectID    string             `json:"subject_id" validate:"required,max=64"`
	ItemType     string             `json:"item_type" validate:"required,max=64"`
	Brand        string             `json:"brand,omitempty" validate:"max=64"`
	Model        string             `json:"model,omitempty" validate:"max=64"`
	SerialNumber string             `json:"serial_number,omitempty" validate:"max=128"`
	Description  string             `json:"description,omitempty" validate:"max=512"`
	RegisteredAt time.Time          `json:"registered_at"`
	RegisteredBy string             `json:"registered_by,omitempty"`
	ExpiresAt    *time.Time         `json:"expires_at,omitempty"`
	Status       PersonalItemStatus `json:"status"`
	LastCheckIn  *time.Time         `json:"last_check_in,omitempty"`
	LastCheckOut *time.Time         `json:"last_check_out,omitempty"`
}

// ExpiredAt reports whether the registration has lapsed at now.
func (p PersonalItem) ExpiredAt(now time.Time) bool {
	return p.ExpiresAt != nil && !now.Before(*p.ExpiresAt)
}

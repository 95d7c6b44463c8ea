package model

import "time"

// PushSubscription holds the information for a staff browser push subscription.
// Role selects which alerts the dashboard receives; empty means every alert.
type PushSubscription struct {
	Endpoint  string    `gorm:"primaryKey"`
	P256DH    string    `gorm:"column:p256dh;not null"`
	Auth      string    `gorm:"not null"`
	StaffID   string    `gorm:"size:64;index"`
	Role      string    `gorm:"size:32;index"`
	CreatedAt time.Time `gorm:"not null"`
}

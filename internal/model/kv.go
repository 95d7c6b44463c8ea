package model

import (
	"time"

	"gorm.io/datatypes"
)

// KVEntry holds one serialized aggregate keyed by namespace.
type KVEntry struct {
	Key       string         `gorm:"primaryKey;size:128"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

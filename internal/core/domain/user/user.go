// Package user provides the user directory the notification pipeline
// resolves recipients against.
package user

import (
	"time"

	"gorm.io/gorm"

	"nestnotify/pkg/ulid"
)

// User represents a registered user able to subscribe to notifications.
type User struct {
	ID        ulid.ULID `json:"id" gorm:"type:char(26);primaryKey"`
	Email     string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	FirstName string    `json:"first_name" gorm:"size:255"`
	LastName  string    `json:"last_name" gorm:"size:255"`
	IsActive  bool      `json:"is_active" gorm:"not null"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

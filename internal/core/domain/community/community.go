// Package community provides the OWASP community entities the notification
// pipeline observes: chapters, events, and snapshots.
package community

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EntityKind identifies the kind of community entity a notification or
// subscription refers to.
type EntityKind string

const (
	KindChapter  EntityKind = "chapter"
	KindEvent    EntityKind = "event"
	KindSnapshot EntityKind = "snapshot"
)

// Chapter represents an OWASP chapter.
type Chapter struct {
	ID                int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Name              string `json:"name" gorm:"size:255;not null"`
	Country           string `json:"country" gorm:"size:255"`
	Region            string `json:"region" gorm:"size:255"`
	SuggestedLocation string `json:"suggested_location" gorm:"size:255"`
	Description       string `json:"description"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Event represents an OWASP event.
type Event struct {
	ID                int64           `json:"id" gorm:"primaryKey;autoIncrement"`
	Name              string          `json:"name" gorm:"size:255;not null"`
	StartDate         *datatypes.Date `json:"start_date,omitempty" gorm:"index"`
	EndDate           *datatypes.Date `json:"end_date,omitempty"`
	SuggestedLocation string          `json:"suggested_location" gorm:"size:255"`
	URL               string          `json:"url" gorm:"size:500"`
	Description       string          `json:"description"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// Snapshot represents a published community snapshot.
type Snapshot struct {
	ID    int64  `json:"id" gorm:"primaryKey;autoIncrement"`
	Key   string `json:"key" gorm:"size:100;not null;uniqueIndex"`
	Title string `json:"title" gorm:"size:255;not null"`

	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// FormatDate renders a date field the way it appears in change diffs and
// queries. Nil dates render as the empty string.
func FormatDate(d *datatypes.Date) string {
	if d == nil {
		return ""
	}
	return time.Time(*d).Format("2006-01-02")
}

// DateOf converts a time to the DATE column representation. The returned
// value still carries the time of day; it is dropped when the value is
// written to or compared in the database.
func DateOf(t time.Time) datatypes.Date {
	return datatypes.Date(t)
}

// Package notification provides the notification domain model: the stream
// event contract, the delivery ledger, subscriptions, and the dead-letter
// record format.
package notification

import (
	"time"

	"nestnotify/internal/core/domain/community"
	"nestnotify/pkg/ulid"
)

// Event type tags carried in the stream's "type" field.
const (
	TypeSnapshotPublished     = "snapshot_published"
	TypeChapterCreated        = "chapter_created"
	TypeChapterUpdated        = "chapter_updated"
	TypeEventCreated          = "event_created"
	TypeEventUpdated          = "event_updated"
	TypeEventDeadlineReminder = "event_deadline_reminder"
)

// Stream entry field keys.
const (
	FieldType          = "type"
	FieldTimestamp     = "timestamp"
	FieldSnapshotID    = "snapshot_id"
	FieldChapterID     = "chapter_id"
	FieldEventID       = "event_id"
	FieldDaysRemaining = "days_remaining"
	FieldChangedFields = "changed_fields"
)

// Notification is a delivery receipt. One row exists per successful email;
// the tuple (recipient, type, related link, message) is the idempotency key.
type Notification struct {
	ID          ulid.ULID `json:"id" gorm:"type:char(26);primaryKey"`
	RecipientID ulid.ULID `json:"recipient_id" gorm:"type:char(26);not null;index:idx_notifications_dedup,priority:1"`
	Type        string    `json:"type" gorm:"size:50;not null;index:idx_notifications_dedup,priority:2"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Message     string    `json:"message" gorm:"not null"`
	RelatedLink string    `json:"related_link" gorm:"size:500"`

	CreatedAt time.Time `json:"created_at"`
}

// Subscription records a user's interest in a community entity. ObjectID 0
// is the storage encoding for "all entities of this kind"; callers address
// subscriptions through Target instead of the raw sentinel.
type Subscription struct {
	ID         ulid.ULID            `json:"id" gorm:"type:char(26);primaryKey"`
	EntityType community.EntityKind `json:"entity_type" gorm:"size:20;not null;index:idx_subscriptions_target,priority:1"`
	ObjectID   int64                `json:"object_id" gorm:"not null;default:0;index:idx_subscriptions_target,priority:2"`
	UserID     ulid.ULID            `json:"user_id" gorm:"type:char(26);not null"`

	CreatedAt time.Time `json:"created_at"`
}

// Target addresses a set of subscriptions: every entity of a kind, or one
// specific entity.
type Target struct {
	Kind     community.EntityKind
	Global   bool
	EntityID int64
}

// GlobalTarget addresses subscribers to all entities of a kind.
func GlobalTarget(kind community.EntityKind) Target {
	return Target{Kind: kind, Global: true}
}

// EntityTarget addresses subscribers to one specific entity.
func EntityTarget(kind community.EntityKind, id int64) Target {
	return Target{Kind: kind, EntityID: id}
}

// ObjectID returns the storage sentinel for the target.
func (t Target) ObjectID() int64 {
	if t.Global {
		return 0
	}
	return t.EntityID
}

// Recipient is an active subscriber resolved for delivery.
type Recipient struct {
	UserID ulid.ULID
	Email  string
}

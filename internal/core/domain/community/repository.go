package community

import (
	"context"

	"gorm.io/datatypes"
)

// ChapterRepository defines persistence for chapters.
type ChapterRepository interface {
	Create(ctx context.Context, chapter *Chapter) error
	GetByID(ctx context.Context, id int64) (*Chapter, error)
	Update(ctx context.Context, chapter *Chapter) error
}

// EventRepository defines persistence for events.
type EventRepository interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id int64) (*Event, error)
	Update(ctx context.Context, event *Event) error

	// ListByStartDate returns events whose start_date equals the given
	// date. Used by the deadline scanner.
	ListByStartDate(ctx context.Context, date datatypes.Date) ([]*Event, error)
}

// SnapshotRepository defines persistence for snapshots.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *Snapshot) error
	GetByID(ctx context.Context, id int64) (*Snapshot, error)
	MarkPublished(ctx context.Context, id int64) (*Snapshot, error)
}

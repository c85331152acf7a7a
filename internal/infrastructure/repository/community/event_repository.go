package community

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	communityDomain "nestnotify/internal/core/domain/community"
)

// eventRepository implements communityDomain.EventRepository using GORM
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository instance
func NewEventRepository(db *gorm.DB) communityDomain.EventRepository {
	return &eventRepository{db: db}
}

// Create creates a new event
func (r *eventRepository) Create(ctx context.Context, event *communityDomain.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// GetByID retrieves an event by ID
func (r *eventRepository) GetByID(ctx context.Context, id int64) (*communityDomain.Event, error) {
	var event communityDomain.Event
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get event by ID %d: %w", id, communityDomain.ErrNotFound)
		}
		return nil, fmt.Errorf("database query failed for event ID %d: %w", id, err)
	}
	return &event, nil
}

// Update updates an event
func (r *eventRepository) Update(ctx context.Context, event *communityDomain.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// ListByStartDate retrieves events starting exactly on the given date
func (r *eventRepository) ListByStartDate(ctx context.Context, date datatypes.Date) ([]*communityDomain.Event, error) {
	var events []*communityDomain.Event
	err := r.db.WithContext(ctx).Where("start_date = ?", date).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("database query failed for events starting %v: %w", date, err)
	}
	return events, nil
}

package community

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	communityDomain "nestnotify/internal/core/domain/community"
)

// snapshotRepository implements communityDomain.SnapshotRepository using GORM
type snapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository creates a new snapshot repository instance
func NewSnapshotRepository(db *gorm.DB) communityDomain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Create creates a new snapshot
func (r *snapshotRepository) Create(ctx context.Context, snapshot *communityDomain.Snapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

// GetByID retrieves a snapshot by ID
func (r *snapshotRepository) GetByID(ctx context.Context, id int64) (*communityDomain.Snapshot, error) {
	var snapshot communityDomain.Snapshot
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get snapshot by ID %d: %w", id, communityDomain.ErrNotFound)
		}
		return nil, fmt.Errorf("database query failed for snapshot ID %d: %w", id, err)
	}
	return &snapshot, nil
}

// MarkPublished stamps the snapshot's publication time and returns the
// updated row
func (r *snapshotRepository) MarkPublished(ctx context.Context, id int64) (*communityDomain.Snapshot, error) {
	snapshot, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	snapshot.PublishedAt = &now
	if err := r.db.WithContext(ctx).Save(snapshot).Error; err != nil {
		return nil, fmt.Errorf("mark snapshot %d published: %w", id, err)
	}
	return snapshot, nil
}

package community

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	communityDomain "nestnotify/internal/core/domain/community"
)

// chapterRepository implements communityDomain.ChapterRepository using GORM
type chapterRepository struct {
	db *gorm.DB
}

// NewChapterRepository creates a new chapter repository instance
func NewChapterRepository(db *gorm.DB) communityDomain.ChapterRepository {
	return &chapterRepository{db: db}
}

// Create creates a new chapter
func (r *chapterRepository) Create(ctx context.Context, chapter *communityDomain.Chapter) error {
	return r.db.WithContext(ctx).Create(chapter).Error
}

// GetByID retrieves a chapter by ID
func (r *chapterRepository) GetByID(ctx context.Context, id int64) (*communityDomain.Chapter, error) {
	var chapter communityDomain.Chapter
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&chapter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("get chapter by ID %d: %w", id, communityDomain.ErrNotFound)
		}
		return nil, fmt.Errorf("database query failed for chapter ID %d: %w", id, err)
	}
	return &chapter, nil
}

// Update updates a chapter
func (r *chapterRepository) Update(ctx context.Context, chapter *communityDomain.Chapter) error {
	return r.db.WithContext(ctx).Save(chapter).Error
}

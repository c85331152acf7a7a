package community

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	communityDomain "nestnotify/internal/core/domain/community"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&communityDomain.Chapter{},
		&communityDomain.Event{},
		&communityDomain.Snapshot{},
	))
	return db
}

func TestEventRepository_ListByStartDate(t *testing.T) {
	db := newTestDB(t)
	repo := NewEventRepository(db)
	ctx := context.Background()

	day := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	onDay := communityDomain.DateOf(day)
	dayAfter := communityDomain.DateOf(day.AddDate(0, 0, 1))

	require.NoError(t, repo.Create(ctx, &communityDomain.Event{Name: "AppSec", StartDate: &onDay}))
	require.NoError(t, repo.Create(ctx, &communityDomain.Event{Name: "Later", StartDate: &dayAfter}))
	require.NoError(t, repo.Create(ctx, &communityDomain.Event{Name: "Undated"}))

	events, err := repo.ListByStartDate(ctx, communityDomain.DateOf(day))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "AppSec", events[0].Name)

	events, err = repo.ListByStartDate(ctx, communityDomain.DateOf(day.AddDate(0, 0, 5)))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestChapterRepository_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewChapterRepository(db)

	_, err := repo.GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, communityDomain.ErrNotFound)
}

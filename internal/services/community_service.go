package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"nestnotify/internal/core/domain/community"
	"nestnotify/internal/core/domain/notification"
)

// CommunityService owns the commit path for chapters, events, and
// snapshots. It reads the prior whitelisted field values before a commit,
// persists the change, and publishes the matching notification event after
// the commit. Publishing happens strictly after the row is written so a
// failed publish never rolls back the domain change.
type CommunityService struct {
	chapters  community.ChapterRepository
	events    community.EventRepository
	snapshots community.SnapshotRepository
	publisher *Publisher
	logger    *logrus.Logger
}

// NewCommunityService creates a new community service.
func NewCommunityService(
	chapters community.ChapterRepository,
	events community.EventRepository,
	snapshots community.SnapshotRepository,
	publisher *Publisher,
	logger *logrus.Logger,
) *CommunityService {
	return &CommunityService{
		chapters:  chapters,
		events:    events,
		snapshots: snapshots,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateChapter persists a new chapter and publishes chapter_created.
func (s *CommunityService) CreateChapter(ctx context.Context, chapter *community.Chapter) error {
	if err := s.chapters.Create(ctx, chapter); err != nil {
		return err
	}
	s.publisher.ChapterCreated(ctx, chapter)
	return nil
}

// UpdateChapter persists chapter changes and publishes chapter_updated
// carrying the whitelisted-field diff. When no prior row exists the diff
// is empty and no event is published; an update with no observed changes
// is also silent.
func (s *CommunityService) UpdateChapter(ctx context.Context, chapter *community.Chapter) error {
	prior, err := s.chapters.GetByID(ctx, chapter.ID)
	if err != nil && !errors.Is(err, community.ErrNotFound) {
		return err
	}

	if err := s.chapters.Update(ctx, chapter); err != nil {
		return err
	}

	if prior == nil {
		s.logger.WithField("chapter_id", chapter.ID).Warn("No prior chapter row, suppressing update notification")
		return nil
	}

	changes := notification.Diff(chapterFieldValues(prior), chapterFieldValues(chapter))
	if len(changes) == 0 {
		return nil
	}
	s.publisher.ChapterUpdated(ctx, chapter, changes)
	return nil
}

// CreateEvent persists a new event and publishes event_created.
func (s *CommunityService) CreateEvent(ctx context.Context, event *community.Event) error {
	if err := s.events.Create(ctx, event); err != nil {
		return err
	}
	s.publisher.EventCreated(ctx, event)
	return nil
}

// UpdateEvent persists event changes and publishes event_updated carrying
// the whitelisted-field diff.
func (s *CommunityService) UpdateEvent(ctx context.Context, event *community.Event) error {
	prior, err := s.events.GetByID(ctx, event.ID)
	if err != nil && !errors.Is(err, community.ErrNotFound) {
		return err
	}

	if err := s.events.Update(ctx, event); err != nil {
		return err
	}

	if prior == nil {
		s.logger.WithField("event_id", event.ID).Warn("No prior event row, suppressing update notification")
		return nil
	}

	changes := notification.Diff(eventFieldValues(prior), eventFieldValues(event))
	if len(changes) == 0 {
		return nil
	}
	s.publisher.EventUpdated(ctx, event, changes)
	return nil
}

// CreateSnapshot persists a new snapshot without publishing; snapshots
// notify on publication, not creation.
func (s *CommunityService) CreateSnapshot(ctx context.Context, snapshot *community.Snapshot) error {
	return s.snapshots.Create(ctx, snapshot)
}

// PublishSnapshot marks the snapshot published and publishes
// snapshot_published.
func (s *CommunityService) PublishSnapshot(ctx context.Context, id int64) (*community.Snapshot, error) {
	snapshot, err := s.snapshots.MarkPublished(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publisher.SnapshotPublished(ctx, snapshot)
	return snapshot, nil
}

package services

import (
	"context"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"nestnotify/internal/core/domain/community"
	"nestnotify/internal/core/domain/notification"
	"nestnotify/internal/infrastructure/streams"
)

// Publisher appends domain events to the main notification stream. Publish
// failures are logged and swallowed: a missed notification is acceptable, a
// crashed producer is not. This is the only place where producer-side
// errors are absorbed.
type Publisher struct {
	streams *streams.Client
	stream  string
	logger  *logrus.Logger
	now     func() time.Time
}

// NewPublisher creates a publisher bound to the main stream.
func NewPublisher(streamsClient *streams.Client, stream string, logger *logrus.Logger) *Publisher {
	return &Publisher{
		streams: streamsClient,
		stream:  stream,
		logger:  logger,
		now:     time.Now,
	}
}

// SnapshotPublished publishes a snapshot_published event.
func (p *Publisher) SnapshotPublished(ctx context.Context, snapshot *community.Snapshot) {
	values := map[string]interface{}{
		notification.FieldType:       notification.TypeSnapshotPublished,
		notification.FieldSnapshotID: strconv.FormatInt(snapshot.ID, 10),
		notification.FieldTimestamp:  p.timestamp(),
	}
	p.append(ctx, notification.TypeSnapshotPublished, values)
}

// ChapterCreated publishes a chapter_created event.
func (p *Publisher) ChapterCreated(ctx context.Context, chapter *community.Chapter) {
	values := map[string]interface{}{
		notification.FieldType:      notification.TypeChapterCreated,
		notification.FieldChapterID: strconv.FormatInt(chapter.ID, 10),
		notification.FieldTimestamp: p.timestamp(),
	}
	p.append(ctx, notification.TypeChapterCreated, values)
}

// ChapterUpdated publishes a chapter_updated event carrying the changed
// fields.
func (p *Publisher) ChapterUpdated(ctx context.Context, chapter *community.Chapter, changes notification.ChangedFields) {
	values := map[string]interface{}{
		notification.FieldType:      notification.TypeChapterUpdated,
		notification.FieldChapterID: strconv.FormatInt(chapter.ID, 10),
		notification.FieldTimestamp: p.timestamp(),
	}
	if !p.attachChanges(values, changes, notification.TypeChapterUpdated) {
		return
	}
	p.append(ctx, notification.TypeChapterUpdated, values)
}

// EventCreated publishes an event_created event.
func (p *Publisher) EventCreated(ctx context.Context, event *community.Event) {
	values := map[string]interface{}{
		notification.FieldType:      notification.TypeEventCreated,
		notification.FieldEventID:   strconv.FormatInt(event.ID, 10),
		notification.FieldTimestamp: p.timestamp(),
	}
	p.append(ctx, notification.TypeEventCreated, values)
}

// EventUpdated publishes an event_updated event carrying the changed
// fields.
func (p *Publisher) EventUpdated(ctx context.Context, event *community.Event, changes notification.ChangedFields) {
	values := map[string]interface{}{
		notification.FieldType:      notification.TypeEventUpdated,
		notification.FieldEventID:   strconv.FormatInt(event.ID, 10),
		notification.FieldTimestamp: p.timestamp(),
	}
	if !p.attachChanges(values, changes, notification.TypeEventUpdated) {
		return
	}
	p.append(ctx, notification.TypeEventUpdated, values)
}

// EventDeadlineReminder publishes an event_deadline_reminder event.
func (p *Publisher) EventDeadlineReminder(ctx context.Context, event *community.Event, daysRemaining int) {
	values := map[string]interface{}{
		notification.FieldType:          notification.TypeEventDeadlineReminder,
		notification.FieldEventID:       strconv.FormatInt(event.ID, 10),
		notification.FieldDaysRemaining: strconv.Itoa(daysRemaining),
		notification.FieldTimestamp:     p.timestamp(),
	}
	p.append(ctx, notification.TypeEventDeadlineReminder, values)
}

func (p *Publisher) attachChanges(values map[string]interface{}, changes notification.ChangedFields, msgType string) bool {
	if len(changes) == 0 {
		return true
	}
	encoded, err := changes.Encode()
	if err != nil {
		p.logger.WithError(err).WithField("type", msgType).Error("Failed to encode changed fields")
		return false
	}
	values[notification.FieldChangedFields] = encoded
	return true
}

func (p *Publisher) append(ctx context.Context, msgType string, values map[string]interface{}) {
	if _, err := p.streams.Append(ctx, p.stream, values); err != nil {
		p.logger.WithError(err).WithField("type", msgType).Error("Failed to publish notification event")
		return
	}
	p.logger.WithField("type", msgType).Info("Published notification event")
}

func (p *Publisher) timestamp() string {
	return strconv.FormatFloat(float64(p.now().UnixNano())/1e9, 'f', 6, 64)
}

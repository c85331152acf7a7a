package workers

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"nestnotify/internal/core/domain/community"
	"nestnotify/internal/core/domain/notification"
	"nestnotify/internal/infrastructure/streams"
	"nestnotify/pkg/ulid"
)

type fakeChapters struct {
	chapters map[int64]*community.Chapter
}

func (f *fakeChapters) Create(_ context.Context, c *community.Chapter) error { return nil }
func (f *fakeChapters) Update(_ context.Context, c *community.Chapter) error { return nil }
func (f *fakeChapters) GetByID(_ context.Context, id int64) (*community.Chapter, error) {
	if c, ok := f.chapters[id]; ok {
		return c, nil
	}
	return nil, community.ErrNotFound
}

type fakeEvents struct {
	events map[int64]*community.Event
}

func (f *fakeEvents) Create(_ context.Context, e *community.Event) error { return nil }
func (f *fakeEvents) Update(_ context.Context, e *community.Event) error { return nil }
func (f *fakeEvents) GetByID(_ context.Context, id int64) (*community.Event, error) {
	if e, ok := f.events[id]; ok {
		return e, nil
	}
	return nil, community.ErrNotFound
}
func (f *fakeEvents) ListByStartDate(_ context.Context, _ datatypes.Date) ([]*community.Event, error) {
	return nil, nil
}

type fakeSnapshots struct {
	snapshots map[int64]*community.Snapshot
}

func (f *fakeSnapshots) Create(_ context.Context, s *community.Snapshot) error { return nil }
func (f *fakeSnapshots) GetByID(_ context.Context, id int64) (*community.Snapshot, error) {
	if s, ok := f.snapshots[id]; ok {
		return s, nil
	}
	return nil, community.ErrNotFound
}
func (f *fakeSnapshots) MarkPublished(_ context.Context, _ int64) (*community.Snapshot, error) {
	return nil, community.ErrNotFound
}

type fakeSubscriptions struct {
	mu         sync.Mutex
	recipients []notification.Recipient
	err        error
	targets    []notification.Target
}

func (f *fakeSubscriptions) Create(_ context.Context, _ *notification.Subscription) error {
	return nil
}

func (f *fakeSubscriptions) ListActiveRecipients(_ context.Context, target notification.Target) ([]notification.Recipient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.targets = append(f.targets, target)
	if f.err != nil {
		return nil, f.err
	}
	return f.recipients, nil
}

type fakeDeliverer struct {
	mu         sync.Mutex
	err        error
	deliveries []Delivery
}

func (f *fakeDeliverer) Deliver(_ context.Context, d Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return f.err
}

func (f *fakeDeliverer) delivered() []Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Delivery(nil), f.deliveries...)
}

type workerFixture struct {
	worker        *NotificationWorker
	streams       *streams.Client
	rdb           *redis.Client
	mr            *miniredis.Miniredis
	chapters      *fakeChapters
	events        *fakeEvents
	snapshots     *fakeSnapshots
	subscriptions *fakeSubscriptions
	deliverer     *fakeDeliverer
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f := &workerFixture{
		streams:       streams.NewClient(rdb),
		rdb:           rdb,
		mr:            mr,
		chapters:      &fakeChapters{chapters: map[int64]*community.Chapter{}},
		events:        &fakeEvents{events: map[int64]*community.Event{}},
		snapshots:     &fakeSnapshots{snapshots: map[int64]*community.Snapshot{}},
		subscriptions: &fakeSubscriptions{},
		deliverer:     &fakeDeliverer{},
	}

	f.worker = NewNotificationWorker(
		f.streams,
		NotificationWorkerConfig{
			Stream:       "owasp_notifications",
			Group:        "notification_group",
			DLQStream:    "owasp_notifications_dlq",
			SiteURL:      "https://nest.owasp.org",
			ReadBlock:    20 * time.Millisecond,
			ClaimMinIdle: 5 * time.Minute,
			ClaimCount:   10,
			ErrorBackoff: 10 * time.Millisecond,
		},
		f.chapters,
		f.events,
		f.snapshots,
		f.subscriptions,
		f.deliverer,
		logger,
		io.Discard,
	)
	return f
}

func recipient(email string) notification.Recipient {
	return notification.Recipient{UserID: ulid.New(), Email: email}
}

func TestProcessMessage_UnknownTypeIsHandled(t *testing.T) {
	f := newWorkerFixture(t)

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID:     "1-0",
		Values: map[string]string{"type": "mystery"},
	})
	assert.NoError(t, err)
	assert.Empty(t, f.deliverer.delivered())
}

func TestProcessMessage_MissingIDIsHandled(t *testing.T) {
	f := newWorkerFixture(t)

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID:     "1-0",
		Values: map[string]string{"type": notification.TypeChapterUpdated},
	})
	assert.NoError(t, err)
	assert.Empty(t, f.subscriptions.targets)
}

func TestProcessMessage_EntityNotFoundIsHandled(t *testing.T) {
	f := newWorkerFixture(t)

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":       notification.TypeChapterUpdated,
			"chapter_id": "99",
		},
	})
	assert.NoError(t, err)
	assert.Empty(t, f.deliverer.delivered())
}

func TestProcessMessage_ChapterUpdateWithChanges(t *testing.T) {
	f := newWorkerFixture(t)
	f.chapters.chapters[5] = &community.Chapter{ID: 5, Name: "B"}
	f.subscriptions.recipients = []notification.Recipient{recipient("member@example.org")}

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":           notification.TypeChapterUpdated,
			"chapter_id":     "5",
			"changed_fields": `{"name":{"old":"A","new":"B"}}`,
			"timestamp":      "1722600000.000000",
		},
	})
	require.NoError(t, err)

	// Updates target the per-entity subscriber set
	require.Len(t, f.subscriptions.targets, 1)
	assert.Equal(t, notification.EntityTarget(community.KindChapter, 5), f.subscriptions.targets[0])

	deliveries := f.deliverer.delivered()
	require.Len(t, deliveries, 1)
	d := deliveries[0]
	assert.Equal(t, "member@example.org", d.Recipient.Email)
	assert.Equal(t, notification.TypeChapterUpdated, d.Type)
	assert.Equal(t, "Chapter Updated: B", d.Title)
	assert.Equal(t, "The OWASP chapter 'B' has been updated. Changes: Name: A → B", d.Message)
	assert.Equal(t, "https://nest.owasp.org/chapters/5", d.RelatedLink)
}

func TestProcessMessage_UpdateWithoutChangesOmitsSuffix(t *testing.T) {
	f := newWorkerFixture(t)
	f.events.events[10] = &community.Event{ID: 10, Name: "AppSec"}
	f.subscriptions.recipients = []notification.Recipient{recipient("member@example.org")}

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":     notification.TypeEventUpdated,
			"event_id": "10",
		},
	})
	require.NoError(t, err)

	deliveries := f.deliverer.delivered()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "The OWASP event 'AppSec' has been updated.", deliveries[0].Message)
}

func TestProcessMessage_CreatedTargetsGlobalSubscribers(t *testing.T) {
	f := newWorkerFixture(t)
	f.chapters.chapters[7] = &community.Chapter{ID: 7, Name: "Porto"}
	f.subscriptions.recipients = []notification.Recipient{recipient("member@example.org")}

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":       notification.TypeChapterCreated,
			"chapter_id": "7",
		},
	})
	require.NoError(t, err)

	require.Len(t, f.subscriptions.targets, 1)
	assert.Equal(t, notification.GlobalTarget(community.KindChapter), f.subscriptions.targets[0])

	deliveries := f.deliverer.delivered()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "New Chapter Created: Porto", deliveries[0].Title)
	assert.Equal(t, "A new OWASP chapter has been created: Porto", deliveries[0].Message)
}

func TestProcessMessage_SnapshotUsesTitleAndKey(t *testing.T) {
	f := newWorkerFixture(t)
	f.snapshots.snapshots[3] = &community.Snapshot{ID: 3, Key: "2025-q1", Title: "Q1"}
	f.subscriptions.recipients = []notification.Recipient{recipient("member@example.org")}

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":        notification.TypeSnapshotPublished,
			"snapshot_id": "3",
		},
	})
	require.NoError(t, err)

	require.Len(t, f.subscriptions.targets, 1)
	assert.Equal(t, notification.GlobalTarget(community.KindSnapshot), f.subscriptions.targets[0])

	deliveries := f.deliverer.delivered()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "New Snapshot Published: Q1", deliveries[0].Title)
	assert.Equal(t, "Check out the latest OWASP snapshot: Q1", deliveries[0].Message)
	assert.Equal(t, "https://nest.owasp.org/community/snapshots/2025-q1", deliveries[0].RelatedLink)
}

func TestProcessMessage_DeadlineReminder(t *testing.T) {
	f := newWorkerFixture(t)
	f.events.events[10] = &community.Event{ID: 10, Name: "AppSec"}
	f.subscriptions.recipients = []notification.Recipient{recipient("member@example.org")}

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":           notification.TypeEventDeadlineReminder,
			"event_id":       "10",
			"days_remaining": "3",
		},
	})
	require.NoError(t, err)

	require.Len(t, f.subscriptions.targets, 1)
	assert.Equal(t, notification.EntityTarget(community.KindEvent, 10), f.subscriptions.targets[0])

	deliveries := f.deliverer.delivered()
	require.Len(t, deliveries, 1)
	assert.Equal(t, "Event Deadline Approaching (3 days left): AppSec", deliveries[0].Title)
	assert.Equal(t, "Reminder: The OWASP event 'AppSec' deadline is approaching (3 days left).", deliveries[0].Message)
}

func TestProcessMessage_NoRecipients(t *testing.T) {
	f := newWorkerFixture(t)
	f.chapters.chapters[5] = &community.Chapter{ID: 5, Name: "Lisbon"}

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":       notification.TypeChapterUpdated,
			"chapter_id": "5",
		},
	})
	require.NoError(t, err)
	assert.Empty(t, f.deliverer.delivered())
}

func TestProcessMessage_SubscriberLookupFailureLeavesPending(t *testing.T) {
	f := newWorkerFixture(t)
	f.chapters.chapters[5] = &community.Chapter{ID: 5, Name: "Lisbon"}
	f.subscriptions.err = errors.New("db down")

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":       notification.TypeChapterUpdated,
			"chapter_id": "5",
		},
	})
	assert.Error(t, err)
}

func TestProcessMessage_TerminalFailureWritesDLQ(t *testing.T) {
	f := newWorkerFixture(t)
	f.events.events[10] = &community.Event{ID: 10, Name: "AppSec"}
	f.subscriptions.recipients = []notification.Recipient{recipient("member@example.org")}
	f.deliverer.err = errors.New("smtp unavailable")

	err := f.worker.processMessage(context.Background(), streams.Message{
		ID: "1-0",
		Values: map[string]string{
			"type":     notification.TypeEventUpdated,
			"event_id": "10",
		},
	})
	// DLQ hand-off counts as handled so the entry is acked
	require.NoError(t, err)

	messages, err := f.streams.Range(context.Background(), "owasp_notifications_dlq", "-", "+")
	require.NoError(t, err)
	require.Len(t, messages, 1)

	entry := notification.DLQEntryFromValues(messages[0].ID, messages[0].Values)
	assert.Equal(t, notification.DLQTypeFailedNotification, entry.Type)
	assert.Equal(t, notification.TypeEventUpdated, entry.NotificationType)
	assert.Equal(t, "member@example.org", entry.UserEmail)
	assert.Equal(t, "event", entry.EntityType)
	assert.Equal(t, "10", entry.EntityID)
	assert.Equal(t, "AppSec", entry.EntityName)
	assert.Equal(t, "Event Updated: AppSec", entry.Title)
	assert.NotEmpty(t, entry.Message)
	assert.Equal(t, "https://nest.owasp.org/events/10", entry.RelatedLink)
	assert.Equal(t, 0, entry.Retries)
}

func TestRecoverPending_SuccessAcksEntry(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	f.chapters.chapters[5] = &community.Chapter{ID: 5, Name: "Lisbon"}
	f.subscriptions.recipients = []notification.Recipient{recipient("member@example.org")}

	require.NoError(t, f.streams.CreateGroup(ctx, "owasp_notifications", "notification_group"))
	_, err := f.streams.Append(ctx, "owasp_notifications", map[string]interface{}{
		"type":       notification.TypeChapterUpdated,
		"chapter_id": "5",
	})
	require.NoError(t, err)

	// Deliver to a consumer that dies before acking
	_, err = f.streams.ReadGroup(ctx, "owasp_notifications", "notification_group", "dead", 1, 10*time.Millisecond)
	require.NoError(t, err)
	f.mr.SetTime(time.Now().Add(6 * time.Minute))

	f.worker.recoverPending(ctx)

	require.Len(t, f.deliverer.delivered(), 1)

	pending, err := f.rdb.XPending(ctx, "owasp_notifications", "notification_group").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	// Successful recovery leaves the DLQ empty
	messages, err := f.streams.Range(ctx, "owasp_notifications_dlq", "-", "+")
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestRecoverPending_FailureWritesRecoveryFailedAndAcks(t *testing.T) {
	f := newWorkerFixture(t)
	ctx := context.Background()
	f.chapters.chapters[5] = &community.Chapter{ID: 5, Name: "Lisbon"}
	f.subscriptions.err = errors.New("db down")

	require.NoError(t, f.streams.CreateGroup(ctx, "owasp_notifications", "notification_group"))
	id, err := f.streams.Append(ctx, "owasp_notifications", map[string]interface{}{
		"type":       notification.TypeChapterUpdated,
		"chapter_id": "5",
	})
	require.NoError(t, err)

	_, err = f.streams.ReadGroup(ctx, "owasp_notifications", "notification_group", "dead", 1, 10*time.Millisecond)
	require.NoError(t, err)
	f.mr.SetTime(time.Now().Add(6 * time.Minute))

	f.worker.recoverPending(ctx)

	// Entry acked despite the failure so the PEL cannot grow unboundedly
	pending, err := f.rdb.XPending(ctx, "owasp_notifications", "notification_group").Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	messages, err := f.streams.Range(ctx, "owasp_notifications_dlq", "-", "+")
	require.NoError(t, err)
	require.Len(t, messages, 1)
	entry := notification.DLQEntryFromValues(messages[0].ID, messages[0].Values)
	assert.Equal(t, notification.DLQTypeRecoveryFailed, entry.Type)
	assert.Equal(t, id, entry.MessageID)
	assert.NotEmpty(t, entry.Error)
}

func TestRun_ConsumesAndAcks(t *testing.T) {
	f := newWorkerFixture(t)
	f.chapters.chapters[5] = &community.Chapter{ID: 5, Name: "Lisbon"}
	f.subscriptions.recipients = []notification.Recipient{recipient("member@example.org")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = f.worker.Run(ctx)
	}()

	_, err := f.streams.Append(ctx, "owasp_notifications", map[string]interface{}{
		"type":       notification.TypeChapterCreated,
		"chapter_id": "5",
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(f.deliverer.delivered()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		pending, err := f.rdb.XPending(context.Background(), "owasp_notifications", "notification_group").Result()
		return err == nil && pending.Count == 0
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancellation")
	}
}

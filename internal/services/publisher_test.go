package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nestnotify/internal/core/domain/community"
	"nestnotify/internal/core/domain/notification"
	"nestnotify/internal/infrastructure/streams"
)

func newTestPublisher(t *testing.T) (*Publisher, *streams.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	client := streams.NewClient(rdb)
	publisher := NewPublisher(client, "owasp_notifications", logger)
	publisher.now = func() time.Time { return time.Unix(1722600000, 0) }
	return publisher, client
}

func readAll(t *testing.T, client *streams.Client) []streams.Message {
	t.Helper()
	messages, err := client.Range(context.Background(), "owasp_notifications", "-", "+")
	require.NoError(t, err)
	return messages
}

func TestPublisher_SnapshotPublished(t *testing.T) {
	publisher, client := newTestPublisher(t)

	publisher.SnapshotPublished(context.Background(), &community.Snapshot{ID: 3, Key: "2025-q1", Title: "Q1"})

	messages := readAll(t, client)
	require.Len(t, messages, 1)
	assert.Equal(t, map[string]string{
		"type":        "snapshot_published",
		"snapshot_id": "3",
		"timestamp":   "1722600000.000000",
	}, messages[0].Values)
}

func TestPublisher_ChapterCreated(t *testing.T) {
	publisher, client := newTestPublisher(t)

	publisher.ChapterCreated(context.Background(), &community.Chapter{ID: 5, Name: "Lisbon"})

	messages := readAll(t, client)
	require.Len(t, messages, 1)
	assert.Equal(t, "chapter_created", messages[0].Values["type"])
	assert.Equal(t, "5", messages[0].Values["chapter_id"])
	assert.NotContains(t, messages[0].Values, "changed_fields")
}

func TestPublisher_ChapterUpdatedCarriesChanges(t *testing.T) {
	publisher, client := newTestPublisher(t)

	changes := notification.ChangedFields{
		"name": {Old: strPtr("A"), New: strPtr("B")},
	}
	publisher.ChapterUpdated(context.Background(), &community.Chapter{ID: 5, Name: "B"}, changes)

	messages := readAll(t, client)
	require.Len(t, messages, 1)
	assert.Equal(t, "chapter_updated", messages[0].Values["type"])
	assert.Equal(t, "5", messages[0].Values["chapter_id"])
	assert.JSONEq(t, `{"name":{"old":"A","new":"B"}}`, messages[0].Values["changed_fields"])
}

func TestPublisher_EventDeadlineReminder(t *testing.T) {
	publisher, client := newTestPublisher(t)

	publisher.EventDeadlineReminder(context.Background(), &community.Event{ID: 10, Name: "AppSec"}, 3)

	messages := readAll(t, client)
	require.Len(t, messages, 1)
	assert.Equal(t, "event_deadline_reminder", messages[0].Values["type"])
	assert.Equal(t, "10", messages[0].Values["event_id"])
	assert.Equal(t, "3", messages[0].Values["days_remaining"])
}

func TestPublisher_BrokerFailureIsSwallowed(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	publisher := NewPublisher(streams.NewClient(rdb), "owasp_notifications", logger)

	// A dead broker must not panic or propagate from the commit path
	mr.Close()
	publisher.ChapterCreated(context.Background(), &community.Chapter{ID: 5, Name: "Lisbon"})
}

func strPtr(s string) *string {
	return &s
}

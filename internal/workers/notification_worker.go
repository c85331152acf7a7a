// Package workers contains the long-running notification consumer and its
// delivery engine.
package workers

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"nestnotify/internal/core/domain/community"
	"nestnotify/internal/core/domain/notification"
	"nestnotify/internal/infrastructure/streams"
)

// NotificationWorkerConfig holds the consumer's stream bindings and
// tuning.
type NotificationWorkerConfig struct {
	Stream    string
	Group     string
	DLQStream string
	SiteURL   string

	ReadBlock    time.Duration
	ClaimMinIdle time.Duration
	ClaimCount   int64
	ErrorBackoff time.Duration
}

// NotificationWorker consumes the main stream as part of a consumer group,
// routes each entry to its entity handler, fans deliveries out to
// subscribers, and quarantines terminal failures in the DLQ.
type NotificationWorker struct {
	streams       *streams.Client
	cfg           NotificationWorkerConfig
	consumer      string
	chapters      community.ChapterRepository
	events        community.EventRepository
	snapshots     community.SnapshotRepository
	subscriptions notification.SubscriptionRepository
	deliverer     Deliverer
	logger        *logrus.Logger
	out           io.Writer
	now           func() time.Time
}

// NewNotificationWorker creates a new notification worker. The consumer
// name is derived from the host and pid so each process owns a distinct
// pending-entry list.
func NewNotificationWorker(
	streamsClient *streams.Client,
	cfg NotificationWorkerConfig,
	chapters community.ChapterRepository,
	events community.EventRepository,
	snapshots community.SnapshotRepository,
	subscriptions notification.SubscriptionRepository,
	deliverer Deliverer,
	logger *logrus.Logger,
	out io.Writer,
) *NotificationWorker {
	return &NotificationWorker{
		streams:       streamsClient,
		cfg:           cfg,
		consumer:      consumerName(),
		chapters:      chapters,
		events:        events,
		snapshots:     snapshots,
		subscriptions: subscriptions,
		deliverer:     deliverer,
		logger:        logger,
		out:           out,
		now:           time.Now,
	}
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s_%d", host, os.Getpid())
}

// Run starts the consumer. It ensures the group exists, recovers stuck
// pending entries once, then reads new entries until the context is
// cancelled. Entries are acked only after a successful dispatch or a DLQ
// hand-off, so a crash mid-dispatch leaves them recoverable.
func (w *NotificationWorker) Run(ctx context.Context) error {
	fmt.Fprintln(w.out, "Starting notification worker...")

	w.ensureGroup(ctx)
	w.recoverPending(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		messages, err := w.streams.ReadGroup(ctx, w.cfg.Stream, w.cfg.Group, w.consumer, 1, w.cfg.ReadBlock)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if streams.IsNoGroup(err) {
				w.logger.Warn("Consumer group missing, attempting to recreate...")
				w.ensureGroup(ctx)
			} else {
				w.logger.WithError(err).Error("Error reading from stream group")
			}
			w.sleepCtx(ctx, w.cfg.ErrorBackoff)
			continue
		}

		for _, msg := range messages {
			if err := w.processMessage(ctx, msg); err != nil {
				// Leave the entry pending; auto-claim recovery picks it
				// up after a restart.
				dispatchErrors.Inc()
				w.logger.WithError(err).WithField("message_id", msg.ID).Error("Error processing message")
				continue
			}
			if err := w.streams.Ack(ctx, w.cfg.Stream, w.cfg.Group, msg.ID); err != nil {
				w.logger.WithError(err).WithField("message_id", msg.ID).Warn("Failed to acknowledge message")
				continue
			}
			w.logger.Info("Message processed successfully.")
		}
	}
}

// ensureGroup creates the consumer group if it does not exist.
func (w *NotificationWorker) ensureGroup(ctx context.Context) {
	if err := w.streams.CreateGroup(ctx, w.cfg.Stream, w.cfg.Group); err != nil {
		fmt.Fprintf(w.out, "Error creating group: %v\n", err)
		return
	}
	fmt.Fprintf(w.out, "Consumer group '%s' ready.\n", w.cfg.Group)
}

// recoverPending claims and reprocesses entries stuck in the pending-entry
// list. Entries are acked whether or not the re-dispatch succeeds; a
// failed re-dispatch is recorded in the DLQ as recovery_failed so the
// pipeline cannot stall on a poison message.
func (w *NotificationWorker) recoverPending(ctx context.Context) {
	fmt.Fprintln(w.out, "Checking for stuck messages in PEL...")

	_, claimed, err := w.streams.AutoClaim(ctx, w.cfg.Stream, w.cfg.Group, w.consumer,
		w.cfg.ClaimMinIdle, "0-0", w.cfg.ClaimCount)
	if err != nil {
		w.logger.WithError(err).Error("Error checking PEL for stuck messages")
		return
	}

	if len(claimed) == 0 {
		fmt.Fprintln(w.out, "No stuck messages found.")
		return
	}

	for _, msg := range claimed {
		fmt.Fprintf(w.out, "Recovering stuck message: %s\n", msg.ID)

		if err := w.processMessage(ctx, msg); err != nil {
			w.logger.WithError(err).WithField("message_id", msg.ID).Error("Failed to recover message")

			entry := &notification.DLQEntry{
				Type:      notification.DLQTypeRecoveryFailed,
				MessageID: msg.ID,
				Error:     err.Error(),
				Timestamp: w.timestamp(),
			}
			if _, dlqErr := w.streams.Append(ctx, w.cfg.DLQStream, entry.Values()); dlqErr != nil {
				w.logger.WithError(dlqErr).WithField("message_id", msg.ID).Error("Failed to record recovery failure in DLQ")
			} else {
				dlqEntries.Inc()
			}
		} else {
			fmt.Fprintf(w.out, "Successfully recovered message %s\n", msg.ID)
		}

		if err := w.streams.Ack(ctx, w.cfg.Stream, w.cfg.Group, msg.ID); err != nil {
			w.logger.WithError(err).WithField("message_id", msg.ID).Warn("Failed to acknowledge recovered message")
		}
	}
}

// handlerSpec describes how one event type resolves its entity and
// subscribers.
type handlerSpec struct {
	notificationType string
	idField          string
	kind             community.EntityKind
	global           bool
}

var handlers = map[string]handlerSpec{
	notification.TypeSnapshotPublished: {
		notificationType: notification.TypeSnapshotPublished,
		idField:          notification.FieldSnapshotID,
		kind:             community.KindSnapshot,
		global:           true,
	},
	notification.TypeChapterCreated: {
		notificationType: notification.TypeChapterCreated,
		idField:          notification.FieldChapterID,
		kind:             community.KindChapter,
		global:           true,
	},
	notification.TypeChapterUpdated: {
		notificationType: notification.TypeChapterUpdated,
		idField:          notification.FieldChapterID,
		kind:             community.KindChapter,
	},
	notification.TypeEventCreated: {
		notificationType: notification.TypeEventCreated,
		idField:          notification.FieldEventID,
		kind:             community.KindEvent,
		global:           true,
	},
	notification.TypeEventUpdated: {
		notificationType: notification.TypeEventUpdated,
		idField:          notification.FieldEventID,
		kind:             community.KindEvent,
	},
	notification.TypeEventDeadlineReminder: {
		notificationType: notification.TypeEventDeadlineReminder,
		idField:          notification.FieldEventID,
		kind:             community.KindEvent,
	},
}

// processMessage routes one decoded stream entry. A nil return means the
// entry is handled and safe to ack; a non-nil return leaves it pending.
func (w *NotificationWorker) processMessage(ctx context.Context, msg streams.Message) error {
	msgType := msg.Values[notification.FieldType]

	spec, ok := handlers[msgType]
	if !ok {
		w.logger.WithField("type", msgType).Warn("Unknown message type")
		messagesProcessed.WithLabelValues("unknown").Inc()
		return nil
	}

	err := w.handleEntityNotification(ctx, msg.Values, spec)
	if err != nil {
		return err
	}
	messagesProcessed.WithLabelValues(msgType).Inc()
	return nil
}

// entityView is the consumer-side projection of a community entity used
// for payload composition.
type entityView struct {
	id    int64
	name  string
	title string
	key   string
}

// handleEntityNotification resolves the entity and its subscribers, builds
// the payload, and fans deliveries out. Stale references (missing id,
// entity gone) are swallowed so they never block the pipeline; failures of
// the delivery engine become DLQ entries.
func (w *NotificationWorker) handleEntityNotification(ctx context.Context, values map[string]string, spec handlerSpec) error {
	rawID := values[spec.idField]
	if rawID == "" {
		return nil
	}
	entityID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		w.logger.WithField("id", rawID).Warn("Malformed entity id in message")
		return nil
	}

	entity, err := w.loadEntity(ctx, spec.kind, entityID)
	if err != nil {
		if community.IsNotFound(err) {
			w.logger.WithFields(logrus.Fields{
				"kind": spec.kind,
				"id":   entityID,
			}).Error("Entity matching ID not found.")
			return nil
		}
		return fmt.Errorf("load %s %d: %w", spec.kind, entityID, err)
	}

	target := notification.EntityTarget(spec.kind, entityID)
	if spec.global {
		target = notification.GlobalTarget(spec.kind)
	}
	recipients, err := w.subscriptions.ListActiveRecipients(ctx, target)
	if err != nil {
		return fmt.Errorf("resolve subscribers: %w", err)
	}
	if len(recipients) == 0 {
		w.logger.WithField("type", spec.notificationType).Info("No recipients found.")
		return nil
	}

	w.logger.WithFields(logrus.Fields{
		"type":  spec.notificationType,
		"users": len(recipients),
	}).Info("Sending notification")

	payload, ok := w.composePayload(values, spec, entity)
	if !ok {
		return nil
	}

	var failed []notification.Recipient
	for _, recipient := range recipients {
		err := w.deliverer.Deliver(ctx, Delivery{
			Recipient:   recipient,
			Type:        spec.notificationType,
			Title:       payload.title,
			Message:     payload.message,
			RelatedLink: payload.relatedLink,
		})
		if err != nil {
			failed = append(failed, recipient)
		}
	}

	if len(failed) > 0 {
		for _, recipient := range failed {
			entry := &notification.DLQEntry{
				Type:             notification.DLQTypeFailedNotification,
				NotificationType: spec.notificationType,
				UserID:           recipient.UserID.String(),
				UserEmail:        recipient.Email,
				EntityType:       string(spec.kind),
				EntityID:         strconv.FormatInt(entityID, 10),
				EntityName:       entity.name,
				Title:            payload.title,
				Message:          payload.message,
				RelatedLink:      payload.relatedLink,
				Timestamp:        w.timestamp(),
			}
			if _, err := w.streams.Append(ctx, w.cfg.DLQStream, entry.Values()); err != nil {
				return fmt.Errorf("append DLQ entry for %s: %w", recipient.Email, err)
			}
			dlqEntries.Inc()
		}
		w.logger.WithField("count", len(failed)).Warn("Sent failed notifications to DLQ")
	}

	return nil
}

func (w *NotificationWorker) loadEntity(ctx context.Context, kind community.EntityKind, id int64) (entityView, error) {
	switch kind {
	case community.KindChapter:
		chapter, err := w.chapters.GetByID(ctx, id)
		if err != nil {
			return entityView{}, err
		}
		return entityView{id: chapter.ID, name: chapter.Name}, nil
	case community.KindEvent:
		event, err := w.events.GetByID(ctx, id)
		if err != nil {
			return entityView{}, err
		}
		return entityView{id: event.ID, name: event.Name}, nil
	case community.KindSnapshot:
		snapshot, err := w.snapshots.GetByID(ctx, id)
		if err != nil {
			return entityView{}, err
		}
		return entityView{id: snapshot.ID, name: snapshot.Title, title: snapshot.Title, key: snapshot.Key}, nil
	default:
		return entityView{}, fmt.Errorf("unknown entity kind %q", kind)
	}
}

// payload is the composed human-readable notification.
type payload struct {
	title       string
	message     string
	relatedLink string
}

// composePayload builds the title, message, and related link for the
// notification. The bool result is false when the message carried an
// undecodable changed_fields value; the entry is then considered handled.
func (w *NotificationWorker) composePayload(values map[string]string, spec handlerSpec, entity entityView) (payload, bool) {
	daysInfo := ""
	if days := values[notification.FieldDaysRemaining]; days != "" {
		daysInfo = fmt.Sprintf(" (%s days left)", days)
	}

	changesDescription := ""
	if raw := values[notification.FieldChangedFields]; raw != "" {
		changes, err := notification.DecodeChangedFields(raw)
		if err != nil {
			w.logger.WithError(err).WithField("type", spec.notificationType).Error("Malformed changed_fields in message")
			return payload{}, false
		}
		changesDescription = changes.Describe()
	}

	entityTitle := entity.title
	if entityTitle == "" {
		entityTitle = entity.name
	}

	var title, message string
	switch spec.notificationType {
	case notification.TypeSnapshotPublished:
		title = fmt.Sprintf("New Snapshot Published: %s", entityTitle)
		message = fmt.Sprintf("Check out the latest OWASP snapshot: %s", entityTitle)
	case notification.TypeChapterCreated:
		title = fmt.Sprintf("New Chapter Created: %s", entity.name)
		message = fmt.Sprintf("A new OWASP chapter has been created: %s", entity.name)
	case notification.TypeChapterUpdated:
		title = fmt.Sprintf("Chapter Updated: %s", entity.name)
		message = fmt.Sprintf("The OWASP chapter '%s' has been updated.", entity.name)
		if changesDescription != "" {
			message += fmt.Sprintf(" Changes: %s", changesDescription)
		}
	case notification.TypeEventCreated:
		title = fmt.Sprintf("New Event Published: %s", entity.name)
		message = fmt.Sprintf("A new OWASP event has been published: %s", entity.name)
	case notification.TypeEventUpdated:
		title = fmt.Sprintf("Event Updated: %s", entity.name)
		message = fmt.Sprintf("The OWASP event '%s' has been updated.", entity.name)
		if changesDescription != "" {
			message += fmt.Sprintf(" Changes: %s", changesDescription)
		}
	case notification.TypeEventDeadlineReminder:
		title = fmt.Sprintf("Event Deadline Approaching%s: %s", daysInfo, entity.name)
		message = fmt.Sprintf("Reminder: The OWASP event '%s' deadline is approaching%s.", entity.name, daysInfo)
	default:
		title = fmt.Sprintf("Notification: %s", entity.name)
		message = fmt.Sprintf("Update for %s", entity.name)
	}

	return payload{
		title:       title,
		message:     message,
		relatedLink: w.relatedLink(spec.kind, entity),
	}, true
}

// relatedLink composes the link shown in the notification. Unknown kinds
// fall back to the site root.
func (w *NotificationWorker) relatedLink(kind community.EntityKind, entity entityView) string {
	switch kind {
	case community.KindSnapshot:
		return fmt.Sprintf("%s/community/snapshots/%s", w.cfg.SiteURL, entity.key)
	case community.KindChapter:
		return fmt.Sprintf("%s/chapters/%d", w.cfg.SiteURL, entity.id)
	case community.KindEvent:
		return fmt.Sprintf("%s/events/%d", w.cfg.SiteURL, entity.id)
	default:
		return w.cfg.SiteURL
	}
}

func (w *NotificationWorker) timestamp() string {
	return strconv.FormatFloat(float64(w.now().UnixNano())/1e9, 'f', 6, 64)
}

func (w *NotificationWorker) sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"nestnotify/internal/core/domain/notification"
	"nestnotify/internal/infrastructure/streams"
	"nestnotify/pkg/email"
)

// DLQAdmin provides the operator surface over the dead-letter stream:
// list, retry, and remove.
type DLQAdmin struct {
	streams *streams.Client
	stream  string
	sender  email.Sender
	logger  *logrus.Logger
	out     io.Writer
}

// NewDLQAdmin creates a new DLQ administrator.
func NewDLQAdmin(streamsClient *streams.Client, stream string, sender email.Sender, logger *logrus.Logger, out io.Writer) *DLQAdmin {
	return &DLQAdmin{
		streams: streamsClient,
		stream:  stream,
		sender:  sender,
		logger:  logger,
		out:     out,
	}
}

// List prints a table of all failed notifications in the DLQ.
func (a *DLQAdmin) List(ctx context.Context) error {
	messages, err := a.streams.Range(ctx, a.stream, "-", "+")
	if err != nil {
		return fmt.Errorf("list DLQ: %w", err)
	}

	if len(messages) == 0 {
		fmt.Fprintln(a.out, "DLQ is empty - no failed notifications")
		return nil
	}

	rule := strings.Repeat("=", 100)
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "%-20s | %-25s | %-18s | %-15s | %-8s\n",
		"ID", "Email", "Type", "Entity", "Retries")
	fmt.Fprintln(a.out, rule)

	for _, msg := range messages {
		entry := notification.DLQEntryFromValues(msg.ID, msg.Values)
		fmt.Fprintf(a.out, "%-20s | %-25s | %-18s | %-15s | %-8d\n",
			entry.ID,
			valueOrUnknown(entry.UserEmail),
			valueOrUnknown(entry.NotificationType),
			truncate(valueOrUnknown(entry.EntityName), 15),
			entry.Retries)
	}

	fmt.Fprintln(a.out, rule)
	fmt.Fprintf(a.out, "Total: %d failed notification(s)\n\n", len(messages))
	return nil
}

// Retry re-sends failed notification(s). A successful send deletes the
// entry; a failed send deletes the original and appends a copy with its
// retry counter incremented. Entries missing the email, title, or message
// fields are skipped.
func (a *DLQAdmin) Retry(ctx context.Context, id string, all bool) error {
	messages, err := a.targeted(ctx, id, all)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintln(a.out, "Message(s) not found")
		return nil
	}

	successCount := 0
	errorCount := 0

	for _, msg := range messages {
		if len(msg.Values) == 0 {
			continue
		}
		entry := notification.DLQEntryFromValues(msg.ID, msg.Values)

		if entry.UserEmail == "" || entry.Title == "" || entry.Message == "" {
			fmt.Fprintf(a.out, "Skipped (missing data): %s\n", msg.ID)
			errorCount++
			continue
		}

		body := entry.Message
		if entry.RelatedLink != "" {
			body = entry.Message + "\n\nView: " + entry.RelatedLink
		}

		err := a.sender.Send(ctx, email.SendParams{
			To:      []string{entry.UserEmail},
			Subject: entry.Title,
			Text:    body,
		})
		if err != nil {
			errorCount++
			if requeueErr := a.requeue(ctx, entry); requeueErr != nil {
				a.logger.WithError(requeueErr).WithField("message_id", msg.ID).Error("Failed to requeue DLQ entry")
				continue
			}
			fmt.Fprintf(a.out, "Failed to retry %s: %v, incremented retries\n", msg.ID, err)
			continue
		}

		if err := a.streams.Delete(ctx, a.stream, msg.ID); err != nil {
			a.logger.WithError(err).WithField("message_id", msg.ID).Warn("Failed to delete DLQ entry after retry")
		}
		successCount++
		fmt.Fprintf(a.out, "Retried: %s -> %s\n", msg.ID, entry.UserEmail)
	}

	fmt.Fprintf(a.out, "\nRetry complete: %d succeeded, %d failed/retried\n", successCount, errorCount)
	return nil
}

// Remove deletes failed notification(s) from the DLQ.
func (a *DLQAdmin) Remove(ctx context.Context, id string, all bool) error {
	messages, err := a.targeted(ctx, id, all)
	if err != nil {
		return err
	}
	if len(messages) == 0 {
		fmt.Fprintln(a.out, "No messages found")
		return nil
	}

	count := 0
	for _, msg := range messages {
		if err := a.streams.Delete(ctx, a.stream, msg.ID); err != nil {
			return fmt.Errorf("remove DLQ entry %s: %w", msg.ID, err)
		}
		count++
		fmt.Fprintf(a.out, "Removed: %s\n", msg.ID)
	}

	fmt.Fprintf(a.out, "\nRemoved %d message(s) from DLQ\n", count)
	return nil
}

// requeue replaces a DLQ entry with a copy whose retry counter is
// incremented by one.
func (a *DLQAdmin) requeue(ctx context.Context, entry *notification.DLQEntry) error {
	copied := *entry
	copied.Retries++

	if err := a.streams.Delete(ctx, a.stream, entry.ID); err != nil {
		return err
	}
	if _, err := a.streams.Append(ctx, a.stream, copied.Values()); err != nil {
		return err
	}
	return nil
}

func (a *DLQAdmin) targeted(ctx context.Context, id string, all bool) ([]streams.Message, error) {
	if all {
		return a.streams.Range(ctx, a.stream, "-", "+")
	}
	return a.streams.Range(ctx, a.stream, id, id)
}

func valueOrUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

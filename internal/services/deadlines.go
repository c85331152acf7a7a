package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"nestnotify/internal/core/domain/community"
)

// reminderDays are the lead times, in days, at which deadline reminders
// are published.
var reminderDays = []int{7, 3, 1}

// DeadlineScanner publishes event_deadline_reminder events for events
// starting in 7, 3, or 1 days. It is meant to run once per calendar day;
// rerunning it may duplicate stream entries, which the delivery engine's
// idempotency check absorbs.
type DeadlineScanner struct {
	events    community.EventRepository
	publisher *Publisher
	logger    *logrus.Logger
	out       io.Writer
	now       func() time.Time
}

// NewDeadlineScanner creates a new deadline scanner.
func NewDeadlineScanner(events community.EventRepository, publisher *Publisher, logger *logrus.Logger, out io.Writer) *DeadlineScanner {
	return &DeadlineScanner{
		events:    events,
		publisher: publisher,
		logger:    logger,
		out:       out,
		now:       time.Now,
	}
}

// Run scans for approaching deadlines and returns the number of reminders
// queued.
func (s *DeadlineScanner) Run(ctx context.Context) (int, error) {
	fmt.Fprintln(s.out, "Checking for approaching event deadlines...")

	today := s.now()
	total := 0

	for _, days := range reminderDays {
		target := community.DateOf(today.AddDate(0, 0, days))
		s.logger.WithField("days", days).Debug("Scanning deadline window")

		events, err := s.events.ListByStartDate(ctx, target)
		if err != nil {
			return total, fmt.Errorf("deadline scan for +%d days: %w", days, err)
		}

		for _, event := range events {
			fmt.Fprintf(s.out, "  Event '%s' starts in %d days (%s)\n",
				event.Name, days, community.FormatDate(&target))
			s.publisher.EventDeadlineReminder(ctx, event, days)
			total++
		}
	}

	fmt.Fprintf(s.out, "Queued %d deadline reminder(s).\n", total)
	return total, nil
}

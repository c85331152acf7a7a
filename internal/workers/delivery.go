package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"nestnotify/internal/core/domain/notification"
	"nestnotify/pkg/email"
	"nestnotify/pkg/ulid"
)

// Delivery is one notification addressed to one recipient.
type Delivery struct {
	Recipient   notification.Recipient
	Type        string
	Title       string
	Message     string
	RelatedLink string
}

// Deliverer sends a single notification. A non-nil error means the
// delivery failed terminally and the caller owns the dead-letter hand-off.
type Deliverer interface {
	Deliver(ctx context.Context, d Delivery) error
}

// DeliveryEngine sends notifications with exponential-backoff retry and a
// ledger-backed idempotency check. The engine never writes the DLQ; it
// reports terminal failure to the caller.
type DeliveryEngine struct {
	ledger notification.Repository
	sender email.Sender
	logger *logrus.Logger

	maxRetries      int
	baseDelay       time.Duration
	delayMultiplier int

	sleep func(time.Duration)
}

// DeliveryEngineConfig holds the retry policy.
type DeliveryEngineConfig struct {
	MaxRetries      int
	BaseDelay       time.Duration
	DelayMultiplier int
}

// NewDeliveryEngine creates a new delivery engine.
func NewDeliveryEngine(ledger notification.Repository, sender email.Sender, logger *logrus.Logger, cfg DeliveryEngineConfig) *DeliveryEngine {
	return &DeliveryEngine{
		ledger:          ledger,
		sender:          sender,
		logger:          logger,
		maxRetries:      cfg.MaxRetries,
		baseDelay:       cfg.BaseDelay,
		delayMultiplier: cfg.DelayMultiplier,
		sleep:           time.Sleep,
	}
}

// Deliver sends the notification, retrying transport failures with delays
// of baseDelay * multiplier^(n-1). A recipient already recorded in the
// ledger for the same (type, related link, message) is skipped silently.
func (e *DeliveryEngine) Deliver(ctx context.Context, d Delivery) error {
	retryCount := 0
	var lastErr error

	for retryCount <= e.maxRetries {
		err := e.sendOnce(ctx, d)
		if err == nil {
			if retryCount > 0 {
				e.logger.WithFields(logrus.Fields{
					"email":   d.Recipient.Email,
					"retries": retryCount,
				}).Info("Email succeeded after retries")
			}
			return nil
		}

		retryCount++
		lastErr = err
		if retryCount <= e.maxRetries {
			delay := e.delayFor(retryCount)
			e.logger.WithFields(logrus.Fields{
				"email":   d.Recipient.Email,
				"attempt": retryCount,
				"max":     e.maxRetries,
				"delay":   delay,
				"error":   lastErr.Error(),
			}).Warn("Email failed, retrying")
			e.sleep(delay)
		} else {
			e.logger.WithError(lastErr).WithFields(logrus.Fields{
				"email":   d.Recipient.Email,
				"retries": e.maxRetries,
			}).Error("Email failed after retries")
		}
	}

	return fmt.Errorf("delivery to %s failed after %d retries: %w", d.Recipient.Email, e.maxRetries, lastErr)
}

// sendOnce performs one delivery attempt: the idempotency check, the
// transport call, and the ledger write. The check runs per attempt so a
// concurrent duplicate delivery observed mid-retry is still skipped.
func (e *DeliveryEngine) sendOnce(ctx context.Context, d Delivery) error {
	exists, err := e.ledger.Exists(ctx, notification.IdempotencyKey{
		RecipientID: d.Recipient.UserID.String(),
		Type:        d.Type,
		RelatedLink: d.RelatedLink,
		Message:     d.Message,
	})
	if err != nil {
		return fmt.Errorf("ledger lookup: %w", err)
	}
	if exists {
		e.logger.WithFields(logrus.Fields{
			"email": d.Recipient.Email,
			"type":  d.Type,
		}).Info("Already notified, skipping")
		return nil
	}

	err = e.sender.Send(ctx, email.SendParams{
		To:      []string{d.Recipient.Email},
		Subject: d.Title,
		Text:    d.Message,
	})
	if err != nil {
		return err
	}

	e.logger.WithFields(logrus.Fields{
		"email": d.Recipient.Email,
		"type":  d.Type,
	}).Info("Sent notification email")

	return e.ledger.Create(ctx, &notification.Notification{
		ID:          ulid.New(),
		RecipientID: d.Recipient.UserID,
		Type:        d.Type,
		Title:       d.Title,
		Message:     d.Message,
		RelatedLink: d.RelatedLink,
	})
}

func (e *DeliveryEngine) delayFor(retryCount int) time.Duration {
	delay := e.baseDelay
	for i := 1; i < retryCount; i++ {
		delay *= time.Duration(e.delayMultiplier)
	}
	return delay
}

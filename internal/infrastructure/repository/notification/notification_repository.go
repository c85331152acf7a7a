package notification

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	notificationDomain "nestnotify/internal/core/domain/notification"
)

// notificationRepository implements the ledger interface using GORM
type notificationRepository struct {
	db *gorm.DB
}

// NewNotificationRepository creates a new notification ledger instance
func NewNotificationRepository(db *gorm.DB) notificationDomain.Repository {
	return &notificationRepository{db: db}
}

// Create appends a delivery receipt
func (r *notificationRepository) Create(ctx context.Context, n *notificationDomain.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

// Exists reports whether a receipt with the idempotency key is recorded
func (r *notificationRepository) Exists(ctx context.Context, key notificationDomain.IdempotencyKey) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&notificationDomain.Notification{}).
		Where("recipient_id = ? AND type = ? AND related_link = ? AND message = ?",
			key.RecipientID, key.Type, key.RelatedLink, key.Message).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("ledger lookup failed for recipient %s: %w", key.RecipientID, err)
	}
	return count > 0, nil
}

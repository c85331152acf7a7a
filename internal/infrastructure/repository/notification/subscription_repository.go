package notification

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	notificationDomain "nestnotify/internal/core/domain/notification"
)

// subscriptionRepository implements the subscription directory using GORM.
// The object_id = 0 sentinel for global subscriptions is confined to this
// layer; callers address subscriptions through notificationDomain.Target.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) notificationDomain.SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

// Create creates a new subscription
func (r *subscriptionRepository) Create(ctx context.Context, s *notificationDomain.Subscription) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// ListActiveRecipients resolves the active users subscribed to the target
func (r *subscriptionRepository) ListActiveRecipients(ctx context.Context, target notificationDomain.Target) ([]notificationDomain.Recipient, error) {
	var recipients []notificationDomain.Recipient
	err := r.db.WithContext(ctx).
		Table("subscriptions").
		Select("users.id AS user_id, users.email AS email").
		Joins("JOIN users ON users.id = subscriptions.user_id").
		Where("subscriptions.entity_type = ? AND subscriptions.object_id = ?", target.Kind, target.ObjectID()).
		Where("users.is_active = ? AND users.deleted_at IS NULL", true).
		Scan(&recipients).Error
	if err != nil {
		return nil, fmt.Errorf("subscription query failed for %s: %w", target.Kind, err)
	}
	return recipients, nil
}

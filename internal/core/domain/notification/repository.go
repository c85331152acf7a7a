package notification

import (
	"context"
)

// Repository defines the interface for the delivery ledger. The ledger is
// append-only; no deletion path is exposed.
type Repository interface {
	Create(ctx context.Context, n *Notification) error

	// Exists reports whether a receipt with the given idempotency key is
	// already recorded.
	Exists(ctx context.Context, key IdempotencyKey) (bool, error)
}

// IdempotencyKey identifies one logical delivery. At most one ledger row
// exists per key no matter how many times the same stream entry is
// dispatched.
type IdempotencyKey struct {
	RecipientID string
	Type        string
	RelatedLink string
	Message     string
}

// SubscriptionRepository defines the interface for the subscription
// directory.
type SubscriptionRepository interface {
	Create(ctx context.Context, s *Subscription) error

	// ListActiveRecipients resolves the active users subscribed to the
	// target.
	ListActiveRecipients(ctx context.Context, target Target) ([]Recipient, error)
}

package subscription

import "context"

// Repository defines the interface for detailed subscription persistence.
type Repository interface {
	// Upsert inserts or replaces the record keyed by the external
	// subscription id
	Upsert(ctx context.Context, sub *Subscription) error

	// GetByStripeID retrieves a subscription by external subscription id
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*Subscription, error)

	// ListByTenant retrieves all subscription records for a tenant, newest
	// first
	ListByTenant(ctx context.Context, tenantID string) ([]*Subscription, error)
}

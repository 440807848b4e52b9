package tenant

import "context"

// Repository defines the interface for tenant persistence operations.
type Repository interface {
	// Create creates a new tenant
	Create(ctx context.Context, t *Tenant) error

	// Get retrieves a tenant by ID
	Get(ctx context.Context, id string) (*Tenant, error)

	// GetByStripeCustomerID resolves a tenant from the provider customer
	// back-reference
	GetByStripeCustomerID(ctx context.Context, customerID string) (*Tenant, error)

	// Update persists all mutable subscription, dunning and entitlement
	// fields in a single write
	Update(ctx context.Context, t *Tenant) error
}

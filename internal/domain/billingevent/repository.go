package billingevent

import "context"

// Repository defines the interface for the event log and the idempotency
// ledger. The two are append-only and contention-free: unique-key inserts,
// never updates.
type Repository interface {
	// Append inserts an audit record. Failures here must not roll back the
	// state transition that already committed.
	Append(ctx context.Context, event *BillingEvent) error

	// ListByTenant retrieves audit records for a tenant, newest first.
	ListByTenant(ctx context.Context, tenantID string, limit int) ([]*BillingEvent, error)

	// MarkProcessed records a provider event id in the idempotency ledger.
	// The check and the insert are a single atomically-visible operation:
	// it returns false if the id was already present, in which case the
	// caller must short-circuit before any side effect.
	MarkProcessed(ctx context.Context, stripeEventID string) (bool, error)

	// IsProcessed reports whether an event id is already in the ledger
	// without recording it.
	IsProcessed(ctx context.Context, stripeEventID string) (bool, error)
}

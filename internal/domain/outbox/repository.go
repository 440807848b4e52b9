package outbox

import (
	"context"
	"time"
)

// Repository defines the interface for outbox command persistence.
type Repository interface {
	// Enqueue inserts a pending command, joining the caller's transaction
	// when one is active.
	Enqueue(ctx context.Context, cmd *Command) error

	// ClaimDue returns pending commands whose next attempt is due, oldest
	// first, up to limit.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]*Command, error)

	// MarkDispatched finalizes a successfully executed command.
	MarkDispatched(ctx context.Context, id string) error

	// RecordFailure bumps the attempt counter and schedules the next
	// attempt, or parks the command as failed when parked is true.
	RecordFailure(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastError string, parked bool) error

	// CountPendingByKindAndTenant reports how many pending commands of a
	// kind exist for a tenant.
	CountPendingByKindAndTenant(ctx context.Context, kind string, tenantID string) (int, error)
}

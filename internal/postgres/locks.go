package postgres

import (
	"context"
	"fmt"
)

// LockTenant acquires a transaction-scoped advisory lock on the tenant's
// subscription state, serializing concurrent webhook deliveries for the same
// tenant. Lock scope never spans tenants. Auto released on tx
// commit/rollback. Must be called inside a transaction.
func (c *Client) LockTenant(ctx context.Context, tenantID string) error {
	tx := c.TxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("LockTenant must be called inside transaction")
	}

	_, err := tx.ExecContext(ctx, `
		SELECT pg_advisory_xact_lock(hashtext($1))
	`, "tenant:"+tenantID)
	if err != nil {
		return fmt.Errorf("failed to acquire tenant lock: %w", err)
	}

	return nil
}

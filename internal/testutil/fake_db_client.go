package testutil

import (
	"context"
	"database/sql"

	"github.com/kinderbill/kinderbill/internal/postgres"
)

// FakeDBClient implements postgres.IClient for service tests backed by
// in-memory stores. Transactions collapse to plain function calls and
// advisory locks are no-ops; the stores are individually thread-safe.
type FakeDBClient struct {
	// LockedTenants records every advisory lock request, in order.
	LockedTenants []string

	// TxErr, when set, is returned from WithTx before fn runs.
	TxErr error

	// LockHook, when set, runs inside LockTenant before it returns. Tests
	// use it to commit state on behalf of a concurrent event that held the
	// lock first, so lock-then-reread discipline can be asserted.
	LockHook func(ctx context.Context, tenantID string) error
}

// NewFakeDBClient creates a fake database client.
func NewFakeDBClient() *FakeDBClient {
	return &FakeDBClient{}
}

func (c *FakeDBClient) Querier(_ context.Context) postgres.Querier {
	return nil
}

func (c *FakeDBClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if c.TxErr != nil {
		return c.TxErr
	}
	return fn(ctx)
}

func (c *FakeDBClient) TxFromContext(_ context.Context) *sql.Tx {
	return nil
}

func (c *FakeDBClient) LockTenant(ctx context.Context, tenantID string) error {
	c.LockedTenants = append(c.LockedTenants, tenantID)
	if c.LockHook != nil {
		return c.LockHook(ctx, tenantID)
	}
	return nil
}

func (c *FakeDBClient) Close() error {
	return nil
}

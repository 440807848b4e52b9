package service

import (
	"context"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/types"
)

// resolveTenant resolves the tenant for a provider event: an explicit tenant
// id in the event metadata wins, then the stored provider-customer
// back-reference. Always a durable-storage lookup inside the caller's
// transaction, never a process-local cache.
func resolveTenant(ctx context.Context, p ServiceParams, metadata map[string]string, customerID string) (*tenant.Tenant, error) {
	if id := metadata["tenant_id"]; id != "" {
		t, err := p.TenantRepo.Get(ctx, id)
		if err == nil {
			return t, nil
		}
		if !ierr.IsNotFound(err) {
			return nil, err
		}
		p.Logger.Warnw("tenant id from event metadata not found, falling back to customer lookup",
			"tenant_id", id,
			"customer_id", customerID,
		)
	}

	if customerID == "" {
		return nil, ierr.NewError("no tenant reference on event").
			Mark(ierr.ErrNotFound)
	}

	return p.TenantRepo.GetByStripeCustomerID(ctx, customerID)
}

// resolveLockedTenant resolves the tenant and returns its row read under the
// per-tenant advisory lock. The initial lookup only establishes identity; the
// row is re-read once the lock is held, so a mutation never derives from
// state another in-flight event committed while this one waited on the lock.
func resolveLockedTenant(ctx context.Context, p ServiceParams, metadata map[string]string, customerID string) (*tenant.Tenant, error) {
	t, err := resolveTenant(ctx, p, metadata, customerID)
	if err != nil {
		return nil, err
	}

	if err := p.DB.LockTenant(ctx, t.ID); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}

	return p.TenantRepo.Get(ctx, t.ID)
}

// enqueueNotification queues a notification command addressed to the
// tenant's billing contact. Commits with the caller's transaction.
func enqueueNotification(ctx context.Context, p ServiceParams, t *tenant.Tenant, kind types.NotificationKind, params map[string]string) error {
	cmd, err := outbox.NewCommand(types.OutboxCommandSendNotification, t.ID, outbox.SendNotificationPayload{
		RecipientEmail: t.ContactEmail,
		Kind:           kind,
		Params:         params,
	})
	if err != nil {
		return err
	}
	return p.OutboxRepo.Enqueue(ctx, cmd)
}

package service

import (
	"context"

	"github.com/kinderbill/kinderbill/internal/domain/billingevent"
	"github.com/kinderbill/kinderbill/internal/domain/subscription"
	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/types"
)

const defaultEventListLimit = 50

// TenantBillingService exposes the read side of tenant billing state for
// the product's admin surfaces.
type TenantBillingService interface {
	GetBillingState(ctx context.Context, tenantID string) (*TenantBillingState, error)
	ListSubscriptions(ctx context.Context, tenantID string) ([]*subscription.Subscription, error)
	ListBillingEvents(ctx context.Context, tenantID string, limit int) ([]*billingevent.BillingEvent, error)
	ListOrphanedEvents(ctx context.Context, limit int) ([]*billingevent.BillingEvent, error)
}

// TenantBillingState pairs the tenant row with flags derived from queued
// downstream work.
type TenantBillingState struct {
	Tenant *tenant.Tenant

	// ProviderCancelPending reports whether a cancel-at-period-end command
	// is still waiting to reach the provider, so the admin surface can show
	// the cancellation as in flight rather than silently absent.
	ProviderCancelPending bool
}

type tenantBillingService struct {
	ServiceParams
}

// NewTenantBillingService creates a new tenant billing read service.
func NewTenantBillingService(params ServiceParams) TenantBillingService {
	return &tenantBillingService{ServiceParams: params}
}

func (s *tenantBillingService) GetBillingState(ctx context.Context, tenantID string) (*TenantBillingState, error) {
	if tenantID == "" {
		return nil, ierr.NewError("tenant id is required").
			WithHint("Tenant ID is required").
			Mark(ierr.ErrValidation)
	}

	t, err := s.TenantRepo.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	pendingCancels, err := s.OutboxRepo.CountPendingByKindAndTenant(ctx, string(types.OutboxCommandCancelSubscription), tenantID)
	if err != nil {
		return nil, err
	}

	return &TenantBillingState{
		Tenant:                t,
		ProviderCancelPending: pendingCancels > 0,
	}, nil
}

func (s *tenantBillingService) ListSubscriptions(ctx context.Context, tenantID string) ([]*subscription.Subscription, error) {
	if tenantID == "" {
		return nil, ierr.NewError("tenant id is required").
			WithHint("Tenant ID is required").
			Mark(ierr.ErrValidation)
	}
	return s.SubscriptionRepo.ListByTenant(ctx, tenantID)
}

func (s *tenantBillingService) ListBillingEvents(ctx context.Context, tenantID string, limit int) ([]*billingevent.BillingEvent, error) {
	if tenantID == "" {
		return nil, ierr.NewError("tenant id is required").
			WithHint("Tenant ID is required").
			Mark(ierr.ErrValidation)
	}
	if limit <= 0 {
		limit = defaultEventListLimit
	}
	return s.EventRepo.ListByTenant(ctx, tenantID, limit)
}

// ListOrphanedEvents surfaces events that never resolved to a tenant so an
// operator can reconcile them by hand.
func (s *tenantBillingService) ListOrphanedEvents(ctx context.Context, limit int) ([]*billingevent.BillingEvent, error) {
	if limit <= 0 {
		limit = defaultEventListLimit
	}
	return s.EventRepo.ListByTenant(ctx, billingevent.OrphanTenantID, limit)
}

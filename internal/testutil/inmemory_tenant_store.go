package testutil

import (
	"context"
	"time"

	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
)

// InMemoryTenantStore implements tenant.Repository
type InMemoryTenantStore struct {
	*InMemoryStore[*tenant.Tenant]
}

// NewInMemoryTenantStore creates a new in-memory tenant store
func NewInMemoryTenantStore() *InMemoryTenantStore {
	return &InMemoryTenantStore{
		InMemoryStore: NewInMemoryStore[*tenant.Tenant](),
	}
}

func copyTenant(t *tenant.Tenant) *tenant.Tenant {
	if t == nil {
		return nil
	}
	copied := *t
	return &copied
}

func (s *InMemoryTenantStore) Create(ctx context.Context, t *tenant.Tenant) error {
	if t == nil {
		return ierr.NewError("tenant cannot be nil").
			WithHint("Tenant cannot be nil").
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	return s.InMemoryStore.Create(ctx, t.ID, copyTenant(t))
}

func (s *InMemoryTenantStore) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	t, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Tenant not found").
			Mark(ierr.ErrNotFound)
	}
	return copyTenant(t), nil
}

func (s *InMemoryTenantStore) GetByStripeCustomerID(ctx context.Context, customerID string) (*tenant.Tenant, error) {
	matches := s.InMemoryStore.List(ctx, func(t *tenant.Tenant) bool {
		return t.StripeCustomerID == customerID
	})
	if len(matches) == 0 {
		return nil, ierr.NewError("tenant not found for customer").
			WithHint("Tenant not found").
			Mark(ierr.ErrNotFound)
	}
	return copyTenant(matches[0]), nil
}

func (s *InMemoryTenantStore) Update(ctx context.Context, t *tenant.Tenant) error {
	if t == nil {
		return ierr.NewError("tenant cannot be nil").
			WithHint("Tenant cannot be nil").
			Mark(ierr.ErrValidation)
	}
	t.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, t.ID, copyTenant(t))
}

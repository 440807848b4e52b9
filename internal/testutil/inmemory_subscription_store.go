package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/kinderbill/kinderbill/internal/domain/subscription"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/types"
	"github.com/samber/lo"
)

// InMemorySubscriptionStore implements subscription.Repository
type InMemorySubscriptionStore struct {
	*InMemoryStore[*subscription.Subscription]
}

// NewInMemorySubscriptionStore creates a new in-memory subscription store
func NewInMemorySubscriptionStore() *InMemorySubscriptionStore {
	return &InMemorySubscriptionStore{
		InMemoryStore: NewInMemoryStore[*subscription.Subscription](),
	}
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	if sub == nil {
		return nil
	}
	copied := *sub
	copied.Metadata = lo.Assign(map[string]string{}, sub.Metadata)
	return &copied
}

func (s *InMemorySubscriptionStore) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	if sub == nil {
		return ierr.NewError("subscription cannot be nil").
			WithHint("Subscription cannot be nil").
			Mark(ierr.ErrValidation)
	}

	now := time.Now().UTC()
	sub.UpdatedAt = now

	existing := s.InMemoryStore.List(ctx, func(item *subscription.Subscription) bool {
		return item.StripeSubscriptionID == sub.StripeSubscriptionID
	})
	if len(existing) > 0 {
		sub.ID = existing[0].ID
		sub.CreatedAt = existing[0].CreatedAt
		return s.InMemoryStore.Update(ctx, sub.ID, copySubscription(sub))
	}

	if sub.ID == "" {
		sub.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION)
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	return s.InMemoryStore.Create(ctx, sub.ID, copySubscription(sub))
}

func (s *InMemorySubscriptionStore) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(item *subscription.Subscription) bool {
		return item.StripeSubscriptionID == stripeSubscriptionID
	})
	if len(matches) == 0 {
		return nil, ierr.NewError("subscription not found").
			WithHint("Subscription not found").
			Mark(ierr.ErrNotFound)
	}
	return copySubscription(matches[0]), nil
}

func (s *InMemorySubscriptionStore) ListByTenant(ctx context.Context, tenantID string) ([]*subscription.Subscription, error) {
	matches := s.InMemoryStore.List(ctx, func(item *subscription.Subscription) bool {
		return item.TenantID == tenantID
	})
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return lo.Map(matches, func(item *subscription.Subscription, _ int) *subscription.Subscription {
		return copySubscription(item)
	}), nil
}

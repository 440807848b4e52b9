package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/kinderbill/kinderbill/internal/domain/billingevent"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
)

// InMemoryBillingEventStore implements billingevent.Repository
type InMemoryBillingEventStore struct {
	*InMemoryStore[*billingevent.BillingEvent]

	mu        sync.Mutex
	processed map[string]bool
}

// NewInMemoryBillingEventStore creates a new in-memory billing event store
func NewInMemoryBillingEventStore() *InMemoryBillingEventStore {
	return &InMemoryBillingEventStore{
		InMemoryStore: NewInMemoryStore[*billingevent.BillingEvent](),
		processed:     make(map[string]bool),
	}
}

func copyBillingEvent(e *billingevent.BillingEvent) *billingevent.BillingEvent {
	if e == nil {
		return nil
	}
	copied := *e
	return &copied
}

func (s *InMemoryBillingEventStore) Append(ctx context.Context, e *billingevent.BillingEvent) error {
	if e == nil {
		return ierr.NewError("event cannot be nil").
			WithHint("Event cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, e.ID, copyBillingEvent(e))
}

func (s *InMemoryBillingEventStore) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*billingevent.BillingEvent, error) {
	matches := s.InMemoryStore.List(ctx, func(e *billingevent.BillingEvent) bool {
		return e.TenantID == tenantID
	})
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].ProcessedAt.After(matches[j].ProcessedAt)
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]*billingevent.BillingEvent, 0, len(matches))
	for _, e := range matches {
		out = append(out, copyBillingEvent(e))
	}
	return out, nil
}

func (s *InMemoryBillingEventStore) MarkProcessed(_ context.Context, stripeEventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.processed[stripeEventID] {
		return false, nil
	}
	s.processed[stripeEventID] = true
	return true, nil
}

func (s *InMemoryBillingEventStore) IsProcessed(_ context.Context, stripeEventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[stripeEventID], nil
}

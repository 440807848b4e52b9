package testutil

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/kinderbill/kinderbill/internal/domain/payment"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
)

// InMemoryPaymentStore implements payment.Repository
type InMemoryPaymentStore struct {
	*InMemoryStore[*payment.OneTimePayment]
}

// NewInMemoryPaymentStore creates a new in-memory payment store
func NewInMemoryPaymentStore() *InMemoryPaymentStore {
	return &InMemoryPaymentStore{
		InMemoryStore: NewInMemoryStore[*payment.OneTimePayment](),
	}
}

func copyPayment(p *payment.OneTimePayment) *payment.OneTimePayment {
	if p == nil {
		return nil
	}
	copied := *p
	return &copied
}

func (s *InMemoryPaymentStore) Create(ctx context.Context, p *payment.OneTimePayment) error {
	if p == nil {
		return ierr.NewError("payment cannot be nil").
			WithHint("Payment cannot be nil").
			Mark(ierr.ErrValidation)
	}

	duplicates := s.InMemoryStore.List(ctx, func(item *payment.OneTimePayment) bool {
		return item.StripeCheckoutSessionID == p.StripeCheckoutSessionID
	})
	if len(duplicates) > 0 {
		return ierr.NewError("payment already recorded for checkout session").
			Mark(ierr.ErrAlreadyExists)
	}

	return s.InMemoryStore.Create(ctx, p.ID, copyPayment(p))
}

func (s *InMemoryPaymentStore) TotalPaidForInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, p := range s.InMemoryStore.List(ctx, func(item *payment.OneTimePayment) bool {
		return item.InvoiceID == invoiceID
	}) {
		total = total.Add(p.Amount)
	}
	return total, nil
}

func (s *InMemoryPaymentStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.OneTimePayment, error) {
	matches := s.InMemoryStore.List(ctx, func(item *payment.OneTimePayment) bool {
		return item.InvoiceID == invoiceID
	})
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].PaidAt.Before(matches[j].PaidAt)
	})
	out := make([]*payment.OneTimePayment, 0, len(matches))
	for _, p := range matches {
		out = append(out, copyPayment(p))
	}
	return out, nil
}

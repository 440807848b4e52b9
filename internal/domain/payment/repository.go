package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Repository defines the interface for one-time payment persistence.
type Repository interface {
	// Create inserts a payment record. Exactly one insert per successful
	// checkout completion.
	Create(ctx context.Context, p *OneTimePayment) error

	// TotalPaidForInvoice sums the recorded payments against an invoice.
	TotalPaidForInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error)

	// ListByInvoice retrieves payments for an invoice, oldest first.
	ListByInvoice(ctx context.Context, invoiceID string) ([]*OneTimePayment, error)
}

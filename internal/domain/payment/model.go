package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/kinderbill/kinderbill/internal/types"
)

// OneTimePayment records a completed ad hoc checkout against a family
// invoice. Separate from recurring subscriptions: the payer is a family,
// not a tenant subscription.
type OneTimePayment struct {
	ID                      string                     `json:"id"`
	InvoiceID               string                     `json:"invoice_id"`
	FamilyID                string                     `json:"family_id"`
	Amount                  decimal.Decimal            `json:"amount"`
	Currency                string                     `json:"currency"`
	ResultingInvoiceStatus  types.InvoicePaymentStatus `json:"resulting_invoice_status"`
	StripeCheckoutSessionID string                     `json:"stripe_checkout_session_id"`
	PaidAt                  time.Time                  `json:"paid_at"`
}

// ResolveInvoiceStatus derives the monotonic invoice status from the total
// paid so far against the amount due. Paid amounts only ever increase, so
// the status can only move open -> partial -> paid.
func ResolveInvoiceStatus(totalPaid, amountDue decimal.Decimal) types.InvoicePaymentStatus {
	switch {
	case amountDue.IsPositive() && totalPaid.GreaterThanOrEqual(amountDue):
		return types.InvoicePaymentStatusPaid
	case totalPaid.IsPositive():
		return types.InvoicePaymentStatusPartial
	default:
		return types.InvoicePaymentStatusOpen
	}
}

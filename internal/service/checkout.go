package service

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/kinderbill/kinderbill/internal/domain/payment"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/types"
)

// CheckoutService records completed one-time checkouts against family
// invoices. These payments ride the same webhook pipeline as subscriptions
// but never touch tenant lifecycle state.
type CheckoutService interface {
	HandleSessionCompleted(ctx context.Context, event *stripe.Event) (*EventOutcome, error)
}

type checkoutService struct {
	ServiceParams
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(params ServiceParams) CheckoutService {
	return &checkoutService{ServiceParams: params}
}

// HandleSessionCompleted records the payment and derives the invoice's
// monotonic status from the running total. Sessions that are not paid
// one-time payments, or that lack the invoice reference, are ignored rather
// than bounced back to the provider.
func (s *checkoutService) HandleSessionCompleted(ctx context.Context, event *stripe.Event) (*EventOutcome, error) {
	var session stripe.CheckoutSessionObject
	if err := json.Unmarshal(event.Data, &session); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed checkout session payload").
			Mark(ierr.ErrValidation)
	}

	outcome := &EventOutcome{}

	if session.Mode != "payment" || session.PaymentStatus != "paid" {
		s.Logger.Debugw("ignoring checkout session",
			"event_id", event.ID,
			"session_id", session.ID,
			"mode", session.Mode,
			"payment_status", session.PaymentStatus,
		)
		outcome.Ignored = true
		return outcome, nil
	}

	invoiceID := session.Metadata["invoice_id"]
	familyID := session.Metadata["family_id"]
	if invoiceID == "" || familyID == "" {
		s.Logger.Warnw("checkout session missing invoice reference",
			"event_id", event.ID,
			"session_id", session.ID,
		)
		outcome.Orphaned = true
		return outcome, nil
	}

	// Provider amounts are integer minor units.
	amount := decimal.New(session.AmountTotal, -2)

	amountDue := decimal.Zero
	if raw := session.Metadata["amount_due"]; raw != "" {
		due, err := decimal.NewFromString(raw)
		if err != nil {
			s.Logger.Warnw("unparseable amount_due on checkout session",
				"event_id", event.ID,
				"session_id", session.ID,
				"amount_due", raw,
			)
		} else {
			amountDue = due
		}
	}

	totalPaid, err := s.PaymentRepo.TotalPaidForInvoice(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	totalPaid = totalPaid.Add(amount)

	status := payment.ResolveInvoiceStatus(totalPaid, amountDue)

	record := &payment.OneTimePayment{
		ID:                      types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT),
		InvoiceID:               invoiceID,
		FamilyID:                familyID,
		Amount:                  amount,
		Currency:                session.Currency,
		ResultingInvoiceStatus:  status,
		StripeCheckoutSessionID: session.ID,
		PaidAt:                  event.CreatedAt,
	}
	if err := s.PaymentRepo.Create(ctx, record); err != nil {
		// The session id is unique per payment. A redelivery under a fresh
		// event id slips past the event-id ledger but lands here.
		if ierr.IsAlreadyExists(err) {
			s.Logger.Infow("checkout session already recorded",
				"event_id", event.ID,
				"session_id", session.ID,
			)
			outcome.Duplicate = true
			return outcome, nil
		}
		return nil, err
	}

	s.Logger.Infow("recorded one-time payment",
		"event_id", event.ID,
		"session_id", session.ID,
		"invoice_id", invoiceID,
		"family_id", familyID,
		"amount", amount,
		"invoice_status", status,
	)

	if tenantID := session.Metadata["tenant_id"]; tenantID != "" {
		outcome.TenantID = tenantID
	}
	return outcome, nil
}

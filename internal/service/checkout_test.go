package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/testutil"
	"github.com/kinderbill/kinderbill/internal/types"
)

type CheckoutServiceSuite struct {
	testutil.BaseServiceTestSuite
	checkout CheckoutService
}

func TestCheckoutService(t *testing.T) {
	suite.Run(t, new(CheckoutServiceSuite))
}

func (s *CheckoutServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.checkout = NewCheckoutService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *CheckoutServiceSuite) sessionEvent(eventID, sessionID string, amountCents int64, metadata map[string]string) *stripe.Event {
	data, err := json.Marshal(map[string]any{
		"id":             sessionID,
		"mode":           "payment",
		"payment_status": "paid",
		"amount_total":   amountCents,
		"currency":       "usd",
		"metadata":       metadata,
	})
	s.Require().NoError(err)
	return &stripe.Event{
		ID:        eventID,
		Type:      types.WebhookEventCheckoutCompleted,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	}
}

func (s *CheckoutServiceSuite) TestRecordsPaymentAndResolvesStatus() {
	meta := map[string]string{
		"invoice_id": "inv_100",
		"family_id":  "fam_7",
		"amount_due": "350.00",
	}

	_, err := s.checkout.HandleSessionCompleted(s.GetContext(),
		s.sessionEvent("evt_c1", "cs_1", 15000, meta))
	s.NoError(err)

	payments, err := s.GetStores().Payment.ListByInvoice(s.GetContext(), "inv_100")
	s.NoError(err)
	s.Require().Len(payments, 1)
	s.True(payments[0].Amount.Equal(decimal.NewFromFloat(150.00)))
	s.Equal(types.InvoicePaymentStatusPartial, payments[0].ResultingInvoiceStatus)

	// Second payment settles the invoice.
	_, err = s.checkout.HandleSessionCompleted(s.GetContext(),
		s.sessionEvent("evt_c2", "cs_2", 20000, meta))
	s.NoError(err)

	payments, err = s.GetStores().Payment.ListByInvoice(s.GetContext(), "inv_100")
	s.NoError(err)
	s.Require().Len(payments, 2)
	s.Equal(types.InvoicePaymentStatusPaid, payments[1].ResultingInvoiceStatus)

	total, err := s.GetStores().Payment.TotalPaidForInvoice(s.GetContext(), "inv_100")
	s.NoError(err)
	s.True(total.Equal(decimal.NewFromFloat(350.00)))
}

func (s *CheckoutServiceSuite) TestDuplicateSessionIsAbsorbed() {
	meta := map[string]string{"invoice_id": "inv_100", "family_id": "fam_7"}

	_, err := s.checkout.HandleSessionCompleted(s.GetContext(),
		s.sessionEvent("evt_c1", "cs_1", 15000, meta))
	s.NoError(err)

	outcome, err := s.checkout.HandleSessionCompleted(s.GetContext(),
		s.sessionEvent("evt_c1_redelivery", "cs_1", 15000, meta))
	s.NoError(err)
	s.True(outcome.Duplicate)

	payments, err := s.GetStores().Payment.ListByInvoice(s.GetContext(), "inv_100")
	s.NoError(err)
	s.Len(payments, 1)
}

func (s *CheckoutServiceSuite) TestIgnoresSubscriptionModeSessions() {
	data, err := json.Marshal(map[string]any{
		"id":             "cs_sub",
		"mode":           "subscription",
		"payment_status": "paid",
	})
	s.Require().NoError(err)

	outcome, err := s.checkout.HandleSessionCompleted(s.GetContext(), &stripe.Event{
		ID:        "evt_c1",
		Type:      types.WebhookEventCheckoutCompleted,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	})
	s.NoError(err)
	s.True(outcome.Ignored)
	s.Zero(s.GetStores().Payment.Count())
}

func (s *CheckoutServiceSuite) TestMissingInvoiceReferenceIsOrphaned() {
	outcome, err := s.checkout.HandleSessionCompleted(s.GetContext(),
		s.sessionEvent("evt_c1", "cs_1", 15000, map[string]string{"family_id": "fam_7"}))
	s.NoError(err)
	s.True(outcome.Orphaned)
	s.Zero(s.GetStores().Payment.Count())
}

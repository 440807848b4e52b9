package stripe

import (
	"encoding/json"
	"time"

	"github.com/kinderbill/kinderbill/internal/types"
)

// Event is the verified, strongly typed envelope of an inbound webhook
// event. Data carries the raw nested object payload for per-kind decoding.
type Event struct {
	ID        string                 `json:"id"`
	Type      types.WebhookEventType `json:"type"`
	CreatedAt time.Time              `json:"created_at"`
	Data      json.RawMessage        `json:"data"`
}

// SubscriptionObject is the subscription payload carried on
// customer.subscription.* events. In webhook payloads the customer
// reference is always an id string.
type SubscriptionObject struct {
	ID                 string            `json:"id"`
	Customer           string            `json:"customer"`
	Status             string            `json:"status"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	TrialEnd           int64             `json:"trial_end"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	CanceledAt         int64             `json:"canceled_at"`
	Metadata           map[string]string `json:"metadata"`
	Items              struct {
		Data []SubscriptionItem `json:"data"`
	} `json:"items"`
}

// SubscriptionItem is one billable line item on a subscription.
type SubscriptionItem struct {
	Quantity int64 `json:"quantity"`
	Price    struct {
		ID         string `json:"id"`
		LookupKey  string `json:"lookup_key"`
		UnitAmount int64  `json:"unit_amount"`
		Recurring  *struct {
			Interval string `json:"interval"`
		} `json:"recurring"`
	} `json:"price"`
}

// HasBillableItem reports whether the subscription carries at least one
// line item with a positive unit amount.
func (s *SubscriptionObject) HasBillableItem() bool {
	for _, item := range s.Items.Data {
		if item.Price.UnitAmount > 0 {
			return true
		}
	}
	return false
}

// BillingCycle derives the local billing cycle from the first recurring
// line item. Defaults to monthly when the interval is absent.
func (s *SubscriptionObject) BillingCycle() types.BillingCycle {
	for _, item := range s.Items.Data {
		if item.Price.Recurring == nil {
			continue
		}
		if item.Price.Recurring.Interval == "year" {
			return types.BillingCycleAnnual
		}
		return types.BillingCycleMonthly
	}
	return types.BillingCycleMonthly
}

// InvoiceObject is the invoice payload carried on invoice.* events.
type InvoiceObject struct {
	ID           string            `json:"id"`
	Customer     string            `json:"customer"`
	Subscription string            `json:"subscription"`
	AttemptCount int               `json:"attempt_count"`
	AmountPaid   int64             `json:"amount_paid"`
	AmountDue    int64             `json:"amount_due"`
	Currency     string            `json:"currency"`
	Metadata     map[string]string `json:"metadata"`
}

// CheckoutSessionObject is the payload carried on
// checkout.session.completed events. Only mode=payment sessions (one-time
// invoices) are handled by this service.
type CheckoutSessionObject struct {
	ID            string            `json:"id"`
	Mode          string            `json:"mode"`
	PaymentStatus string            `json:"payment_status"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	Metadata      map[string]string `json:"metadata"`
}

// UnixTime converts a provider unix timestamp into *time.Time, mapping the
// zero value to nil.
func UnixTime(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

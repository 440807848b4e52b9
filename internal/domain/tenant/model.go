package tenant

import (
	"time"

	"github.com/kinderbill/kinderbill/internal/types"
)

// Tenant is one childcare organization together with its subscription
// state. This service is the exclusive writer of the subscription, dunning
// and entitlement fields; the rest of the product only reads them.
type Tenant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`

	// Subscription identity at the billing provider
	StripeCustomerID     string `json:"stripe_customer_id"`
	StripeSubscriptionID string `json:"stripe_subscription_id"`

	// Plan and lifecycle
	Status       types.TenantStatus `json:"status"`
	PlanTier     types.PlanTier     `json:"plan_tier"`
	BillingCycle types.BillingCycle `json:"billing_cycle"`

	// Period bounds
	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`

	// Cancellation flags
	CancelAtPeriodEnd bool       `json:"cancel_at_period_end"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`

	// Dunning counters: the dunning engine is the only writer
	PaymentFailureCount  int        `json:"payment_failure_count"`
	LastPaymentFailureAt *time.Time `json:"last_payment_failure_at,omitempty"`

	// Entitlements derived from plan and status, never hand-edited
	MaxChildren int `json:"max_children"`
	MaxStaff    int `json:"max_staff"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProjectEntitlements recomputes the enforced limits from the current plan
// and status.
func (t *Tenant) ProjectEntitlements() {
	limits := types.ProjectEntitlements(t.PlanTier, t.Status)
	t.MaxChildren = limits.MaxChildren
	t.MaxStaff = limits.MaxStaff
}

// ResetDunning clears the failure counters. Called on every transition into
// active via a successful payment or subscription update.
func (t *Tenant) ResetDunning() {
	t.PaymentFailureCount = 0
	t.LastPaymentFailureAt = nil
}

// MarkCancelled applies the terminal cancellation state: entitlements are
// zeroed, the cancel-at-period-end flag is cleared (nothing left to cancel)
// and dunning counters stop being tracked.
func (t *Tenant) MarkCancelled(at time.Time) {
	t.Status = types.TenantStatusCancelled
	t.PlanTier = types.PlanTierCancelled
	t.CancelAtPeriodEnd = false
	t.CancelledAt = &at
	t.ResetDunning()
	t.ProjectEntitlements()
}

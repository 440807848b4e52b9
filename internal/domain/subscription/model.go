package subscription

import (
	"time"

	"github.com/kinderbill/kinderbill/internal/types"
)

// Subscription is the detailed provider-subscription record kept alongside
// the tenant row, keyed by the external subscription id. It backs billing
// history displays and reconciliation; the tenant row remains the canonical
// access-control surface.
type Subscription struct {
	ID                   string                           `json:"id"`
	TenantID             string                           `json:"tenant_id"`
	StripeSubscriptionID string                           `json:"stripe_subscription_id"`
	StripeCustomerID     string                           `json:"stripe_customer_id"`
	ProviderStatus       types.ProviderSubscriptionStatus `json:"provider_status"`
	PlanTier             types.PlanTier                   `json:"plan_tier"`
	BillingCycle         types.BillingCycle               `json:"billing_cycle"`
	CurrentPeriodStart   *time.Time                       `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time                       `json:"current_period_end,omitempty"`
	TrialEnd             *time.Time                       `json:"trial_end,omitempty"`
	CancelAtPeriodEnd    bool                             `json:"cancel_at_period_end"`
	CancelledAt          *time.Time                       `json:"cancelled_at,omitempty"`
	Metadata             map[string]string                `json:"metadata,omitempty"`
	CreatedAt            time.Time                        `json:"created_at"`
	UpdatedAt            time.Time                        `json:"updated_at"`
}

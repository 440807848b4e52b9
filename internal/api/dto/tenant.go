package dto

import (
	"encoding/json"
	"time"

	"github.com/kinderbill/kinderbill/internal/domain/billingevent"
	"github.com/kinderbill/kinderbill/internal/domain/subscription"
	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	"github.com/kinderbill/kinderbill/internal/types"
)

// TenantBillingResponse is the tenant's subscription state as exposed to
// the product's admin surfaces.
type TenantBillingResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`

	Status       types.TenantStatus `json:"status"`
	PlanTier     types.PlanTier     `json:"plan_tier"`
	BillingCycle types.BillingCycle `json:"billing_cycle,omitempty"`

	CurrentPeriodStart *time.Time `json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end,omitempty"`
	TrialEnd           *time.Time `json:"trial_end,omitempty"`

	CancelAtPeriodEnd     bool       `json:"cancel_at_period_end"`
	ProviderCancelPending bool       `json:"provider_cancel_pending"`
	CancelledAt           *time.Time `json:"cancelled_at,omitempty"`

	PaymentFailureCount  int        `json:"payment_failure_count"`
	LastPaymentFailureAt *time.Time `json:"last_payment_failure_at,omitempty"`

	Entitlements EntitlementsResponse `json:"entitlements"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntitlementsResponse carries the enforced plan limits.
type EntitlementsResponse struct {
	MaxChildren int `json:"max_children"`
	MaxStaff    int `json:"max_staff"`
}

// NewTenantBillingResponse maps a tenant domain object to its response.
func NewTenantBillingResponse(t *tenant.Tenant, providerCancelPending bool) *TenantBillingResponse {
	return &TenantBillingResponse{
		ID:                    t.ID,
		Name:                  t.Name,
		ContactEmail:          t.ContactEmail,
		Status:                t.Status,
		PlanTier:              t.PlanTier,
		BillingCycle:          t.BillingCycle,
		CurrentPeriodStart:    t.CurrentPeriodStart,
		CurrentPeriodEnd:      t.CurrentPeriodEnd,
		TrialEnd:              t.TrialEnd,
		CancelAtPeriodEnd:     t.CancelAtPeriodEnd,
		ProviderCancelPending: providerCancelPending,
		CancelledAt:           t.CancelledAt,
		PaymentFailureCount:   t.PaymentFailureCount,
		LastPaymentFailureAt:  t.LastPaymentFailureAt,
		Entitlements: EntitlementsResponse{
			MaxChildren: t.MaxChildren,
			MaxStaff:    t.MaxStaff,
		},
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

// SubscriptionResponse is one provider subscription record.
type SubscriptionResponse struct {
	ID                   string                           `json:"id"`
	StripeSubscriptionID string                           `json:"stripe_subscription_id"`
	ProviderStatus       types.ProviderSubscriptionStatus `json:"provider_status"`
	PlanTier             types.PlanTier                   `json:"plan_tier"`
	BillingCycle         types.BillingCycle               `json:"billing_cycle"`
	CurrentPeriodStart   *time.Time                       `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time                       `json:"current_period_end,omitempty"`
	TrialEnd             *time.Time                       `json:"trial_end,omitempty"`
	CancelAtPeriodEnd    bool                             `json:"cancel_at_period_end"`
	CancelledAt          *time.Time                       `json:"cancelled_at,omitempty"`
	CreatedAt            time.Time                        `json:"created_at"`
	UpdatedAt            time.Time                        `json:"updated_at"`
}

// NewSubscriptionResponse maps a subscription domain object to its response.
func NewSubscriptionResponse(s *subscription.Subscription) *SubscriptionResponse {
	return &SubscriptionResponse{
		ID:                   s.ID,
		StripeSubscriptionID: s.StripeSubscriptionID,
		ProviderStatus:       s.ProviderStatus,
		PlanTier:             s.PlanTier,
		BillingCycle:         s.BillingCycle,
		CurrentPeriodStart:   s.CurrentPeriodStart,
		CurrentPeriodEnd:     s.CurrentPeriodEnd,
		TrialEnd:             s.TrialEnd,
		CancelAtPeriodEnd:    s.CancelAtPeriodEnd,
		CancelledAt:          s.CancelledAt,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
	}
}

// BillingEventResponse is one audit trail entry.
type BillingEventResponse struct {
	ID              string             `json:"id"`
	TenantID        string             `json:"tenant_id"`
	StripeEventID   string             `json:"stripe_event_id"`
	EventType       string             `json:"event_type"`
	Payload         json.RawMessage    `json:"payload,omitempty"`
	ResultingStatus types.TenantStatus `json:"resulting_status,omitempty"`
	ProcessedAt     time.Time          `json:"processed_at"`
}

// NewBillingEventResponse maps an audit record to its response.
func NewBillingEventResponse(e *billingevent.BillingEvent) *BillingEventResponse {
	return &BillingEventResponse{
		ID:              e.ID,
		TenantID:        e.TenantID,
		StripeEventID:   e.StripeEventID,
		EventType:       e.EventType,
		Payload:         e.Payload,
		ResultingStatus: e.ResultingStatus,
		ProcessedAt:     e.ProcessedAt,
	}
}

// ListBillingEventsResponse wraps a page of audit entries.
type ListBillingEventsResponse struct {
	Items []*BillingEventResponse `json:"items"`
	Total int                     `json:"total"`
}

// NewListBillingEventsResponse maps audit records to a list response.
func NewListBillingEventsResponse(events []*billingevent.BillingEvent) *ListBillingEventsResponse {
	items := make([]*BillingEventResponse, 0, len(events))
	for _, e := range events {
		items = append(items, NewBillingEventResponse(e))
	}
	return &ListBillingEventsResponse{Items: items, Total: len(items)}
}

package types

import (
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/samber/lo"
)

// TenantStatus is the lifecycle status of a tenant's subscription as owned
// by this service. Only the canonical set below is ever written; provider
// payment-trouble statuses (past_due, unpaid, incomplete) collapse into
// pending on the way in.
type TenantStatus string

const (
	TenantStatusTrialing  TenantStatus = "trialing"
	TenantStatusActive    TenantStatus = "active"
	TenantStatusPending   TenantStatus = "pending"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusCancelled TenantStatus = "cancelled"
)

// ProviderSubscriptionStatus is the status string carried on the provider's
// subscription object.
type ProviderSubscriptionStatus string

const (
	ProviderSubscriptionStatusActive            ProviderSubscriptionStatus = "active"
	ProviderSubscriptionStatusTrialing          ProviderSubscriptionStatus = "trialing"
	ProviderSubscriptionStatusPastDue           ProviderSubscriptionStatus = "past_due"
	ProviderSubscriptionStatusUnpaid            ProviderSubscriptionStatus = "unpaid"
	ProviderSubscriptionStatusCanceled          ProviderSubscriptionStatus = "canceled"
	ProviderSubscriptionStatusIncomplete        ProviderSubscriptionStatus = "incomplete"
	ProviderSubscriptionStatusIncompleteExpired ProviderSubscriptionStatus = "incomplete_expired"
)

// ToTenantStatus maps a provider status onto the local lifecycle status.
// Active and trialing both entitle full feature access; cancellation is
// terminal; payment-trouble states collapse into pending, where the dunning
// counters carry the escalation detail.
func (s ProviderSubscriptionStatus) ToTenantStatus() TenantStatus {
	switch s {
	case ProviderSubscriptionStatusActive, ProviderSubscriptionStatusTrialing:
		return TenantStatusActive
	case ProviderSubscriptionStatusCanceled, ProviderSubscriptionStatusIncompleteExpired:
		return TenantStatusCancelled
	default:
		return TenantStatusPending
	}
}

// BillingCycle is the billing interval of a subscription.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleAnnual  BillingCycle = "annual"
)

func (c BillingCycle) Validate() error {
	allowed := []BillingCycle{BillingCycleMonthly, BillingCycleAnnual}
	if !lo.Contains(allowed, c) {
		return ierr.NewErrorf("invalid billing cycle: %s", c).
			WithHint("Billing cycle must be monthly or annual").
			Mark(ierr.ErrValidation)
	}
	return nil
}

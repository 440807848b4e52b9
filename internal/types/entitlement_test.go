package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProjectEntitlements(t *testing.T) {
	tests := []struct {
		name   string
		tier   PlanTier
		status TenantStatus
		want   PlanLimits
	}{
		{
			name:   "trial tier",
			tier:   PlanTierTrial,
			status: TenantStatusTrialing,
			want:   PlanLimits{MaxChildren: 15, MaxStaff: 5},
		},
		{
			name:   "professional tier active",
			tier:   PlanTierProfessional,
			status: TenantStatusActive,
			want:   PlanLimits{MaxChildren: 75, MaxStaff: 25},
		},
		{
			name:   "suspended keeps plan limits",
			tier:   PlanTierEnterprise,
			status: TenantStatusSuspended,
			want:   PlanLimits{MaxChildren: 250, MaxStaff: 75},
		},
		{
			name:   "pending keeps plan limits",
			tier:   PlanTierStarter,
			status: TenantStatusPending,
			want:   PlanLimits{MaxChildren: 30, MaxStaff: 10},
		},
		{
			name:   "cancelled zeroes limits regardless of tier",
			tier:   PlanTierEnterprise,
			status: TenantStatusCancelled,
			want:   PlanLimits{},
		},
		{
			name:   "unknown tier falls back to most restrictive",
			tier:   PlanTier("legacy_gold"),
			status: TenantStatusActive,
			want:   PlanLimits{MaxChildren: 15, MaxStaff: 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectEntitlements(tt.tier, tt.status))
		})
	}
}

func TestToTenantStatus(t *testing.T) {
	tests := []struct {
		provider ProviderSubscriptionStatus
		want     TenantStatus
	}{
		{ProviderSubscriptionStatusActive, TenantStatusActive},
		{ProviderSubscriptionStatusTrialing, TenantStatusActive},
		{ProviderSubscriptionStatusCanceled, TenantStatusCancelled},
		{ProviderSubscriptionStatusIncompleteExpired, TenantStatusCancelled},
		{ProviderSubscriptionStatusPastDue, TenantStatusPending},
		{ProviderSubscriptionStatusUnpaid, TenantStatusPending},
		{ProviderSubscriptionStatusIncomplete, TenantStatusPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.provider), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.provider.ToTenantStatus())
		})
	}
}

package service

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	"github.com/kinderbill/kinderbill/internal/testutil"
	"github.com/kinderbill/kinderbill/internal/types"
)

type TenantBillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	billing TenantBillingService
}

func TestTenantBillingService(t *testing.T) {
	suite.Run(t, new(TenantBillingServiceSuite))
}

func (s *TenantBillingServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.billing = NewTenantBillingService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *TenantBillingServiceSuite) seedTenant() *tenant.Tenant {
	t := &tenant.Tenant{
		ID:                   "tnnt_test_1",
		Name:                 "Little Sprouts",
		ContactEmail:         "admin@littlesprouts.example",
		StripeCustomerID:     "cus_123",
		StripeSubscriptionID: "sub_1",
		Status:               types.TenantStatusActive,
		PlanTier:             types.PlanTierStarter,
	}
	t.ProjectEntitlements()
	s.Require().NoError(s.GetStores().Tenant.Create(s.GetContext(), t))
	return t
}

func (s *TenantBillingServiceSuite) TestBillingStateWithoutQueuedCancel() {
	t := s.seedTenant()

	state, err := s.billing.GetBillingState(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(t.ID, state.Tenant.ID)
	s.False(state.ProviderCancelPending)
}

func (s *TenantBillingServiceSuite) TestBillingStateSurfacesInFlightCancel() {
	t := s.seedTenant()

	cmd, err := outbox.NewCommand(types.OutboxCommandCancelSubscription, t.ID, outbox.CancelSubscriptionPayload{
		StripeSubscriptionID: t.StripeSubscriptionID,
		Reason:               "payment_retries_exhausted",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().Outbox.Enqueue(s.GetContext(), cmd))

	state, err := s.billing.GetBillingState(s.GetContext(), t.ID)
	s.NoError(err)
	s.True(state.ProviderCancelPending)

	// Once the command reaches the provider the flag clears.
	s.Require().NoError(s.GetStores().Outbox.MarkDispatched(s.GetContext(), cmd.ID))

	state, err = s.billing.GetBillingState(s.GetContext(), t.ID)
	s.NoError(err)
	s.False(state.ProviderCancelPending)
}

func (s *TenantBillingServiceSuite) TestBillingStateRequiresTenantID() {
	_, err := s.billing.GetBillingState(s.GetContext(), "")
	s.Error(err)
}

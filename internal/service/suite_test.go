package service

import (
	"github.com/kinderbill/kinderbill/internal/testutil"
)

// newTestParams assembles ServiceParams from the suite's in-memory
// infrastructure.
func newTestParams(s *testutil.BaseServiceTestSuite) ServiceParams {
	stores := s.GetStores()
	return ServiceParams{
		Logger:           s.GetLogger(),
		Config:           s.GetConfig(),
		DB:               s.GetDB(),
		TenantRepo:       stores.Tenant,
		SubscriptionRepo: stores.Subscription,
		EventRepo:        stores.BillingEvent,
		PaymentRepo:      stores.Payment,
		OutboxRepo:       stores.Outbox,
		StripeClient:     s.GetStripe(),
		EmailService:     s.GetEmail(),
	}
}

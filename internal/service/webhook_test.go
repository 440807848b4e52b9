package service

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/kinderbill/kinderbill/internal/domain/billingevent"
	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/testutil"
	"github.com/kinderbill/kinderbill/internal/types"
)

type WebhookServiceSuite struct {
	testutil.BaseServiceTestSuite
	webhookService BillingWebhookService
}

func TestWebhookService(t *testing.T) {
	suite.Run(t, new(WebhookServiceSuite))
}

func (s *WebhookServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.webhookService = NewBillingWebhookService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *WebhookServiceSuite) seedTenant() *tenant.Tenant {
	t := &tenant.Tenant{
		ID:               "tnnt_test_1",
		Name:             "Little Sprouts",
		ContactEmail:     "admin@littlesprouts.example",
		StripeCustomerID: "cus_123",
		Status:           types.TenantStatusTrialing,
		PlanTier:         types.PlanTierTrial,
	}
	t.ProjectEntitlements()
	s.Require().NoError(s.GetStores().Tenant.Create(s.GetContext(), t))
	return t
}

func (s *WebhookServiceSuite) deliver(eventID string, eventType types.WebhookEventType, obj any) (*EventOutcome, error) {
	data, err := json.Marshal(obj)
	s.Require().NoError(err)
	payload, err := json.Marshal(stripe.Event{
		ID:        eventID,
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	})
	s.Require().NoError(err)
	return s.webhookService.ProcessEvent(s.GetContext(), payload, "sig_valid")
}

func (s *WebhookServiceSuite) TestRejectsMissingSignature() {
	_, err := s.webhookService.ProcessEvent(s.GetContext(), []byte(`{}`), "")
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))
}

func (s *WebhookServiceSuite) TestRejectsBadSignature() {
	s.GetStripe().Signature = "sig_expected"

	_, err := s.webhookService.ProcessEvent(s.GetContext(), []byte(`{"id":"evt_1"}`), "sig_wrong")
	s.Error(err)
	s.True(ierr.IsPermissionDenied(err))

	// Nothing was recorded: a forged delivery leaves no trace.
	processed, err := s.GetStores().BillingEvent.IsProcessed(s.GetContext(), "evt_1")
	s.NoError(err)
	s.False(processed)
}

func (s *WebhookServiceSuite) TestIgnoresUnrecognizedEventType() {
	outcome, err := s.deliver("evt_unknown", "customer.created", map[string]any{"id": "cus_1"})
	s.NoError(err)
	s.True(outcome.Ignored)
}

func (s *WebhookServiceSuite) TestDuplicateDeliveryIsAbsorbed() {
	t := s.seedTenant()

	sub := map[string]any{
		"id":       "sub_1",
		"customer": t.StripeCustomerID,
		"status":   "active",
		"metadata": map[string]string{"plan": "professional"},
	}

	first, err := s.deliver("evt_dup", types.WebhookEventSubscriptionCreated, sub)
	s.NoError(err)
	s.False(first.Duplicate)
	s.Equal(types.TenantStatusActive, first.ResultingStatus)

	second, err := s.deliver("evt_dup", types.WebhookEventSubscriptionCreated, sub)
	s.NoError(err)
	s.True(second.Duplicate)

	// Exactly one audit record in spite of two deliveries.
	events, err := s.GetStores().BillingEvent.ListByTenant(s.GetContext(), t.ID, 10)
	s.NoError(err)
	s.Len(events, 1)
}

func (s *WebhookServiceSuite) TestOrphanedEventIsArchivedNotApplied() {
	outcome, err := s.deliver("evt_orphan", types.WebhookEventSubscriptionCreated, map[string]any{
		"id":       "sub_ghost",
		"customer": "cus_unknown",
		"status":   "active",
	})
	s.NoError(err)
	s.True(outcome.Orphaned)

	orphans, err := s.GetStores().BillingEvent.ListByTenant(s.GetContext(), billingevent.OrphanTenantID, 10)
	s.NoError(err)
	s.Len(orphans, 1)
	s.Equal("evt_orphan", orphans[0].StripeEventID)
}

func (s *WebhookServiceSuite) TestFailedTransactionReleasesDedupMarker() {
	s.GetDB().TxErr = ierr.NewError("connection lost").Mark(ierr.ErrDatabase)

	sub := map[string]any{"id": "sub_1", "customer": "cus_123", "status": "active"}
	_, err := s.deliver("evt_retry", types.WebhookEventSubscriptionCreated, sub)
	s.Error(err)

	// The marker never committed, so the provider's redelivery applies
	// cleanly.
	s.GetDB().TxErr = nil
	s.seedTenant()

	outcome, err := s.deliver("evt_retry", types.WebhookEventSubscriptionCreated, sub)
	s.NoError(err)
	s.False(outcome.Duplicate)
	s.Equal(types.TenantStatusActive, outcome.ResultingStatus)
}

func (s *WebhookServiceSuite) TestLocksTenantDuringMutation() {
	t := s.seedTenant()

	_, err := s.deliver("evt_lock", types.WebhookEventSubscriptionCreated, map[string]any{
		"id":       "sub_1",
		"customer": t.StripeCustomerID,
		"status":   "active",
	})
	s.NoError(err)
	s.Contains(s.GetDB().LockedTenants, t.ID)
}

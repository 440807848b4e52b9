package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/testutil"
	"github.com/kinderbill/kinderbill/internal/types"
)

type ReconcilerServiceSuite struct {
	testutil.BaseServiceTestSuite
	reconciler ReconcilerService
}

func TestReconcilerService(t *testing.T) {
	suite.Run(t, new(ReconcilerServiceSuite))
}

func (s *ReconcilerServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.reconciler = NewReconcilerService(newTestParams(&s.BaseServiceTestSuite))
}

func (s *ReconcilerServiceSuite) seedTenant(mutate func(*tenant.Tenant)) *tenant.Tenant {
	t := &tenant.Tenant{
		ID:               "tnnt_test_1",
		Name:             "Little Sprouts",
		ContactEmail:     "admin@littlesprouts.example",
		StripeCustomerID: "cus_123",
		Status:           types.TenantStatusTrialing,
		PlanTier:         types.PlanTierTrial,
	}
	if mutate != nil {
		mutate(t)
	}
	t.ProjectEntitlements()
	s.Require().NoError(s.GetStores().Tenant.Create(s.GetContext(), t))
	return t
}

func (s *ReconcilerServiceSuite) event(id string, eventType types.WebhookEventType, obj map[string]any) *stripe.Event {
	data, err := json.Marshal(obj)
	s.Require().NoError(err)
	return &stripe.Event{
		ID:        id,
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	}
}

func (s *ReconcilerServiceSuite) TestUpsertActivatesTenantWithMetadataPlan() {
	t := s.seedTenant(nil)
	periodEnd := time.Now().AddDate(0, 1, 0).Unix()

	outcome, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_1", types.WebhookEventSubscriptionCreated, map[string]any{
			"id":                 "sub_1",
			"customer":           "cus_123",
			"status":             "active",
			"current_period_end": periodEnd,
			"metadata":           map[string]string{"plan": "professional"},
		}))
	s.NoError(err)
	s.Equal(types.TenantStatusActive, outcome.ResultingStatus)

	updated, err := s.GetStores().Tenant.Get(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.PlanTierProfessional, updated.PlanTier)
	s.Equal("sub_1", updated.StripeSubscriptionID)
	s.Equal(75, updated.MaxChildren)
	s.Equal(25, updated.MaxStaff)
}

func (s *ReconcilerServiceSuite) TestTrialingMapsToActiveStatus() {
	t := s.seedTenant(nil)

	_, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_1", types.WebhookEventSubscriptionCreated, map[string]any{
			"id":        "sub_1",
			"customer":  "cus_123",
			"status":    "trialing",
			"trial_end": time.Now().AddDate(0, 0, 14).Unix(),
			"metadata":  map[string]string{"plan": "starter"},
		}))
	s.NoError(err)

	updated, err := s.GetStores().Tenant.Get(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.TenantStatusActive, updated.Status)
	s.NotNil(updated.TrialEnd)
}

func (s *ReconcilerServiceSuite) TestBillableItemDefaultsToLowestPaidTier() {
	t := s.seedTenant(nil)

	_, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_1", types.WebhookEventSubscriptionCreated, map[string]any{
			"id":       "sub_1",
			"customer": "cus_123",
			"status":   "active",
			"items": map[string]any{
				"data": []map[string]any{{
					"quantity": 1,
					"price": map[string]any{
						"id":          "price_1",
						"unit_amount": 2900,
						"recurring":   map[string]any{"interval": "month"},
					},
				}},
			},
		}))
	s.NoError(err)

	updated, err := s.GetStores().Tenant.Get(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.PlanTierStarter, updated.PlanTier)
	s.Equal(types.BillingCycleMonthly, updated.BillingCycle)
}

func (s *ReconcilerServiceSuite) TestStaleUpdateIsDiscarded() {
	newer := time.Now().AddDate(0, 2, 0).UTC().Truncate(time.Second)
	t := s.seedTenant(func(t *tenant.Tenant) {
		t.Status = types.TenantStatusActive
		t.PlanTier = types.PlanTierProfessional
		t.CurrentPeriodEnd = &newer
	})

	outcome, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_stale", types.WebhookEventSubscriptionUpdated, map[string]any{
			"id":                 "sub_1",
			"customer":           "cus_123",
			"status":             "past_due",
			"current_period_end": time.Now().AddDate(0, 1, 0).Unix(),
		}))
	s.NoError(err)
	s.True(outcome.Stale)

	updated, err := s.GetStores().Tenant.Get(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.TenantStatusActive, updated.Status)
	s.Equal(types.PlanTierProfessional, updated.PlanTier)
	s.True(updated.CurrentPeriodEnd.Equal(newer))
}

func (s *ReconcilerServiceSuite) TestActivationResetsDunningCounters() {
	lastFailure := time.Now().Add(-time.Hour)
	s.seedTenant(func(t *tenant.Tenant) {
		t.Status = types.TenantStatusPending
		t.PlanTier = types.PlanTierStarter
		t.PaymentFailureCount = 2
		t.LastPaymentFailureAt = &lastFailure
	})

	_, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_1", types.WebhookEventSubscriptionUpdated, map[string]any{
			"id":       "sub_1",
			"customer": "cus_123",
			"status":   "active",
			"metadata": map[string]string{"plan": "starter"},
		}))
	s.NoError(err)

	updated, err := s.GetStores().Tenant.Get(s.GetContext(), "tnnt_test_1")
	s.NoError(err)
	s.Zero(updated.PaymentFailureCount)
	s.Nil(updated.LastPaymentFailureAt)
}

func (s *ReconcilerServiceSuite) TestUpsertBuildsOnRowReadUnderLock() {
	t := s.seedTenant(func(t *tenant.Tenant) {
		t.Status = types.TenantStatusActive
		t.PlanTier = types.PlanTierStarter
	})

	// A concurrent payment failure commits its counter increment while this
	// update waits on the lock. A non-activating update must carry that
	// counter forward instead of writing back its pre-lock read.
	s.GetDB().LockHook = func(ctx context.Context, tenantID string) error {
		s.GetDB().LockHook = nil
		locked, err := s.GetStores().Tenant.Get(ctx, tenantID)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		locked.PaymentFailureCount = 2
		locked.LastPaymentFailureAt = &now
		locked.Status = types.TenantStatusPending
		return s.GetStores().Tenant.Update(ctx, locked)
	}

	_, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_1", types.WebhookEventSubscriptionUpdated, map[string]any{
			"id":       "sub_1",
			"customer": "cus_123",
			"status":   "past_due",
			"metadata": map[string]string{"plan": "starter"},
		}))
	s.NoError(err)

	updated, err := s.GetStores().Tenant.Get(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.TenantStatusPending, updated.Status)
	s.Equal(2, updated.PaymentFailureCount)
	s.NotNil(updated.LastPaymentFailureAt)
}

func (s *ReconcilerServiceSuite) TestUnknownMetadataPlanKeepsCanonicalTier() {
	t := s.seedTenant(func(t *tenant.Tenant) {
		t.Status = types.TenantStatusActive
		t.PlanTier = types.PlanTierProfessional
	})

	_, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_1", types.WebhookEventSubscriptionUpdated, map[string]any{
			"id":       "sub_1",
			"customer": "cus_123",
			"status":   "active",
			"metadata": map[string]string{"plan": "gold"},
		}))
	s.NoError(err)

	// The bogus value is never persisted; the stored tier stays within the
	// known set and entitlements project from it.
	updated, err := s.GetStores().Tenant.Get(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.PlanTierProfessional, updated.PlanTier)
	s.Equal(75, updated.MaxChildren)
}

func (s *ReconcilerServiceSuite) TestUnresolvedTenantIsOrphaned() {
	outcome, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_1", types.WebhookEventSubscriptionCreated, map[string]any{
			"id":       "sub_1",
			"customer": "cus_unknown",
			"status":   "active",
		}))
	s.NoError(err)
	s.True(outcome.Orphaned)
}

func (s *ReconcilerServiceSuite) TestMetadataTenantIDWinsOverCustomerLookup() {
	s.seedTenant(nil)
	other := &tenant.Tenant{
		ID:               "tnnt_test_2",
		Name:             "Sunny Days",
		StripeCustomerID: "cus_other",
		Status:           types.TenantStatusTrialing,
		PlanTier:         types.PlanTierTrial,
	}
	s.Require().NoError(s.GetStores().Tenant.Create(s.GetContext(), other))

	outcome, err := s.reconciler.HandleSubscriptionUpsert(s.GetContext(), s.event(
		"evt_1", types.WebhookEventSubscriptionCreated, map[string]any{
			"id":       "sub_2",
			"customer": "cus_123",
			"status":   "active",
			"metadata": map[string]string{"tenant_id": other.ID, "plan": "starter"},
		}))
	s.NoError(err)
	s.Equal(other.ID, outcome.TenantID)
}

func (s *ReconcilerServiceSuite) TestDeletedMarksTerminalAndZeroesEntitlements() {
	t := s.seedTenant(func(t *tenant.Tenant) {
		t.Status = types.TenantStatusActive
		t.PlanTier = types.PlanTierProfessional
		t.StripeSubscriptionID = "sub_1"
	})

	outcome, err := s.reconciler.HandleSubscriptionDeleted(s.GetContext(), s.event(
		"evt_del", types.WebhookEventSubscriptionDeleted, map[string]any{
			"id":          "sub_1",
			"customer":    "cus_123",
			"status":      "canceled",
			"canceled_at": time.Now().Unix(),
		}))
	s.NoError(err)
	s.Equal(types.TenantStatusCancelled, outcome.ResultingStatus)

	updated, err := s.GetStores().Tenant.Get(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.PlanTierCancelled, updated.PlanTier)
	s.Zero(updated.MaxChildren)
	s.Zero(updated.MaxStaff)
	s.NotNil(updated.CancelledAt)

	notifications := s.GetStores().Outbox.Commands(types.OutboxCommandSendNotification)
	s.Require().Len(notifications, 1)

	var payload outbox.SendNotificationPayload
	s.Require().NoError(json.Unmarshal(notifications[0].Payload, &payload))
	s.Equal(types.NotificationCancelled, payload.Kind)
	s.Equal(t.ContactEmail, payload.RecipientEmail)
}

func (s *ReconcilerServiceSuite) TestTrialWillEndQueuesReminderWithoutMutation() {
	t := s.seedTenant(nil)

	_, err := s.reconciler.HandleTrialWillEnd(s.GetContext(), s.event(
		"evt_trial", types.WebhookEventSubscriptionTrialEnd, map[string]any{
			"id":        "sub_1",
			"customer":  "cus_123",
			"status":    "trialing",
			"trial_end": time.Now().AddDate(0, 0, 3).Unix(),
		}))
	s.NoError(err)

	updated, err := s.GetStores().Tenant.Get(s.GetContext(), t.ID)
	s.NoError(err)
	s.Equal(types.TenantStatusTrialing, updated.Status)

	notifications := s.GetStores().Outbox.Commands(types.OutboxCommandSendNotification)
	s.Require().Len(notifications, 1)

	var payload outbox.SendNotificationPayload
	s.Require().NoError(json.Unmarshal(notifications[0].Payload, &payload))
	s.Equal(types.NotificationTrialEnding, payload.Kind)
}

package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kinderbill/kinderbill/internal/domain/subscription"
	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/types"
)

// ReconcilerService maps provider subscription objects onto the canonical
// tenant subscription record.
type ReconcilerService interface {
	HandleSubscriptionUpsert(ctx context.Context, event *stripe.Event) (*EventOutcome, error)
	HandleSubscriptionDeleted(ctx context.Context, event *stripe.Event) (*EventOutcome, error)
	HandleTrialWillEnd(ctx context.Context, event *stripe.Event) (*EventOutcome, error)
}

type reconcilerService struct {
	ServiceParams
}

// NewReconcilerService creates a new reconciler service.
func NewReconcilerService(params ServiceParams) ReconcilerService {
	return &reconcilerService{ServiceParams: params}
}

func (s *reconcilerService) HandleSubscriptionUpsert(ctx context.Context, event *stripe.Event) (*EventOutcome, error) {
	var sub stripe.SubscriptionObject
	if err := json.Unmarshal(event.Data, &sub); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed subscription payload").
			Mark(ierr.ErrValidation)
	}

	t, err := resolveLockedTenant(ctx, s.ServiceParams, sub.Metadata, sub.Customer)
	if err != nil {
		if ierr.IsNotFound(err) {
			return orphanOutcome(event), nil
		}
		return nil, err
	}

	// Monotonicity guard: an update whose period-end is older than what is
	// stored is a lagging redelivery and must not overwrite newer state.
	incomingPeriodEnd := stripe.UnixTime(sub.CurrentPeriodEnd)
	if incomingPeriodEnd != nil && t.CurrentPeriodEnd != nil && incomingPeriodEnd.Before(*t.CurrentPeriodEnd) {
		s.Logger.Warnw("discarding stale subscription update",
			"event_id", event.ID,
			"tenant_id", t.ID,
			"incoming_period_end", incomingPeriodEnd,
			"stored_period_end", t.CurrentPeriodEnd,
		)
		return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status, Stale: true}, nil
	}

	newStatus := types.ProviderSubscriptionStatus(sub.Status).ToTenantStatus()

	t.StripeCustomerID = sub.Customer
	t.StripeSubscriptionID = sub.ID
	t.Status = newStatus
	t.PlanTier = s.resolvePlan(t, &sub)
	t.BillingCycle = sub.BillingCycle()
	t.CurrentPeriodStart = stripe.UnixTime(sub.CurrentPeriodStart)
	t.CurrentPeriodEnd = incomingPeriodEnd
	t.TrialEnd = stripe.UnixTime(sub.TrialEnd)
	t.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	t.CancelledAt = stripe.UnixTime(sub.CanceledAt)

	// A successful subscription update into active clears the dunning axis.
	if newStatus == types.TenantStatusActive {
		t.ResetDunning()
	}

	t.ProjectEntitlements()

	if err := s.TenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	if err := s.upsertDetailedRecord(ctx, t, &sub); err != nil {
		return nil, err
	}

	s.Logger.Infow("reconciled subscription",
		"event_id", event.ID,
		"tenant_id", t.ID,
		"status", t.Status,
		"plan", t.PlanTier,
	)

	return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status}, nil
}

// resolvePlan takes the plan from event metadata when it names a known tier;
// otherwise a subscription with billable line items defaults to the lowest
// paid tier so plan fidelity is never silently lost to free. The stored tier
// stays within the canonical set: an unrecognized metadata value is logged
// and the fallback chain decides instead.
func (s *reconcilerService) resolvePlan(t *tenant.Tenant, sub *stripe.SubscriptionObject) types.PlanTier {
	if raw := sub.Metadata["plan"]; raw != "" {
		tier := types.PlanTier(raw)
		if err := tier.Validate(); err == nil {
			return tier
		}
		s.Logger.Warnw("unrecognized plan tier in subscription metadata",
			"plan", raw,
			"tenant_id", t.ID,
		)
	}

	if sub.HasBillableItem() {
		return types.LowestPaidTier
	}

	if t.PlanTier != "" {
		return t.PlanTier
	}
	return types.PlanTierTrial
}

func (s *reconcilerService) upsertDetailedRecord(ctx context.Context, t *tenant.Tenant, sub *stripe.SubscriptionObject) error {
	return s.SubscriptionRepo.Upsert(ctx, &subscription.Subscription{
		TenantID:             t.ID,
		StripeSubscriptionID: sub.ID,
		StripeCustomerID:     sub.Customer,
		ProviderStatus:       types.ProviderSubscriptionStatus(sub.Status),
		PlanTier:             t.PlanTier,
		BillingCycle:         t.BillingCycle,
		CurrentPeriodStart:   stripe.UnixTime(sub.CurrentPeriodStart),
		CurrentPeriodEnd:     stripe.UnixTime(sub.CurrentPeriodEnd),
		TrialEnd:             stripe.UnixTime(sub.TrialEnd),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		CancelledAt:          stripe.UnixTime(sub.CanceledAt),
		Metadata:             sub.Metadata,
	})
}

func (s *reconcilerService) HandleSubscriptionDeleted(ctx context.Context, event *stripe.Event) (*EventOutcome, error) {
	var sub stripe.SubscriptionObject
	if err := json.Unmarshal(event.Data, &sub); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed subscription payload").
			Mark(ierr.ErrValidation)
	}

	t, err := resolveLockedTenant(ctx, s.ServiceParams, sub.Metadata, sub.Customer)
	if err != nil {
		if ierr.IsNotFound(err) {
			return orphanOutcome(event), nil
		}
		return nil, err
	}

	cancelledAt := time.Now().UTC()
	if at := stripe.UnixTime(sub.CanceledAt); at != nil {
		cancelledAt = *at
	}
	t.MarkCancelled(cancelledAt)

	if err := s.TenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	if err := s.upsertDetailedRecord(ctx, t, &sub); err != nil {
		return nil, err
	}

	if err := enqueueNotification(ctx, s.ServiceParams, t, types.NotificationCancelled, map[string]string{
		"tenant_name": t.Name,
	}); err != nil {
		return nil, err
	}

	s.Logger.Infow("cancelled tenant subscription",
		"event_id", event.ID,
		"tenant_id", t.ID,
	)

	return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status}, nil
}

// HandleTrialWillEnd mutates no subscription state; it only queues a
// reminder carrying the trial end date and the active plan name. Duplicate
// deliveries are absorbed by the dedup guard upstream.
func (s *reconcilerService) HandleTrialWillEnd(ctx context.Context, event *stripe.Event) (*EventOutcome, error) {
	var sub stripe.SubscriptionObject
	if err := json.Unmarshal(event.Data, &sub); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed subscription payload").
			Mark(ierr.ErrValidation)
	}

	t, err := resolveTenant(ctx, s.ServiceParams, sub.Metadata, sub.Customer)
	if err != nil {
		if ierr.IsNotFound(err) {
			return orphanOutcome(event), nil
		}
		return nil, err
	}

	params := map[string]string{
		"tenant_name": t.Name,
		"plan":        string(t.PlanTier),
	}
	if trialEnd := stripe.UnixTime(sub.TrialEnd); trialEnd != nil {
		params["trial_end"] = trialEnd.Format("January 2, 2006")
	}

	if err := enqueueNotification(ctx, s.ServiceParams, t, types.NotificationTrialEnding, params); err != nil {
		return nil, err
	}

	return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status}, nil
}

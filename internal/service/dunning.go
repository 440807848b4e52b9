package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/types"
)

// DunningService drives the payment-failure escalation ladder: counted
// failures, suspension at the retry ceiling, and recovery on payment.
type DunningService interface {
	HandleInvoicePaid(ctx context.Context, event *stripe.Event) (*EventOutcome, error)
	HandleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) (*EventOutcome, error)
}

type dunningService struct {
	ServiceParams
}

// NewDunningService creates a new dunning service.
func NewDunningService(params ServiceParams) DunningService {
	return &dunningService{ServiceParams: params}
}

// HandleInvoicePaid resets the dunning axis unconditionally: any successful
// payment returns the tenant to active, whether one failure was recorded or
// the tenant was already suspended. Cancelled is terminal and is never
// revived by a trailing invoice settlement.
func (s *dunningService) HandleInvoicePaid(ctx context.Context, event *stripe.Event) (*EventOutcome, error) {
	var inv stripe.InvoiceObject
	if err := json.Unmarshal(event.Data, &inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed invoice payload").
			Mark(ierr.ErrValidation)
	}

	t, err := resolveLockedTenant(ctx, s.ServiceParams, inv.Metadata, inv.Customer)
	if err != nil {
		if ierr.IsNotFound(err) {
			return orphanOutcome(event), nil
		}
		return nil, err
	}

	if t.Status == types.TenantStatusCancelled {
		s.Logger.Infow("ignoring payment success for cancelled tenant",
			"event_id", event.ID,
			"tenant_id", t.ID,
			"invoice_id", inv.ID,
		)
		return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status}, nil
	}

	recovered := t.Status == types.TenantStatusSuspended || t.Status == types.TenantStatusPending
	wasSuspended := t.Status == types.TenantStatusSuspended
	t.Status = types.TenantStatusActive
	t.ResetDunning()
	t.ProjectEntitlements()

	if err := s.TenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	// Suspension asked the provider to stop auto-renewing. A recovered
	// payment has to revoke that flag or the subscription still terminates
	// at period end and a trailing deletion cancels the recovered tenant.
	if wasSuspended {
		resumeCmd, err := outbox.NewCommand(types.OutboxCommandResumeSubscription, t.ID, outbox.ResumeSubscriptionPayload{
			StripeSubscriptionID: t.StripeSubscriptionID,
		})
		if err != nil {
			return nil, err
		}
		if err := s.OutboxRepo.Enqueue(ctx, resumeCmd); err != nil {
			return nil, err
		}
	}

	s.Logger.Infow("payment succeeded, dunning reset",
		"event_id", event.ID,
		"tenant_id", t.ID,
		"invoice_id", inv.ID,
		"recovered", recovered,
	)

	return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status}, nil
}

// HandleInvoicePaymentFailed advances the escalation ladder by exactly one
// step per distinct failure. Redeliveries of an already-counted attempt are
// detected by comparing the provider's attempt counter with ours, not just
// by event id, because the provider issues a fresh event id per redelivery
// channel.
func (s *dunningService) HandleInvoicePaymentFailed(ctx context.Context, event *stripe.Event) (*EventOutcome, error) {
	var inv stripe.InvoiceObject
	if err := json.Unmarshal(event.Data, &inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Malformed invoice payload").
			Mark(ierr.ErrValidation)
	}

	t, err := resolveLockedTenant(ctx, s.ServiceParams, inv.Metadata, inv.Customer)
	if err != nil {
		if ierr.IsNotFound(err) {
			return orphanOutcome(event), nil
		}
		return nil, err
	}

	if t.Status == types.TenantStatusCancelled {
		s.Logger.Infow("ignoring payment failure for cancelled tenant",
			"event_id", event.ID,
			"tenant_id", t.ID,
			"invoice_id", inv.ID,
		)
		return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status}, nil
	}

	if inv.AttemptCount > 0 && inv.AttemptCount <= t.PaymentFailureCount {
		s.Logger.Warnw("discarding already-counted payment failure",
			"event_id", event.ID,
			"tenant_id", t.ID,
			"invoice_id", inv.ID,
			"attempt_count", inv.AttemptCount,
			"failure_count", t.PaymentFailureCount,
		)
		return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status, Stale: true}, nil
	}

	now := time.Now().UTC()
	t.PaymentFailureCount++
	t.LastPaymentFailureAt = &now

	maxRetries := s.Config.Billing.MaxPaymentRetries
	alreadySuspended := t.Status == types.TenantStatusSuspended

	if t.PaymentFailureCount < maxRetries {
		t.Status = types.TenantStatusPending
		if err := s.TenantRepo.Update(ctx, t); err != nil {
			return nil, err
		}

		if err := enqueueNotification(ctx, s.ServiceParams, t, types.NotificationPaymentFailed, map[string]string{
			"tenant_name":   t.Name,
			"invoice_id":    inv.ID,
			"attempt":       fmt.Sprintf("%d", t.PaymentFailureCount),
			"attempts_left": fmt.Sprintf("%d", maxRetries-t.PaymentFailureCount),
		}); err != nil {
			return nil, err
		}

		s.Logger.Warnw("payment failed, tenant pending",
			"event_id", event.ID,
			"tenant_id", t.ID,
			"invoice_id", inv.ID,
			"failure_count", t.PaymentFailureCount,
		)
		return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status}, nil
	}

	// Retry ceiling reached. Entitlements stay at the plan's limits while
	// suspended so a recovered payment restores service without a re-sync.
	t.Status = types.TenantStatusSuspended
	if err := s.TenantRepo.Update(ctx, t); err != nil {
		return nil, err
	}

	// The provider-side cancel and the urgent notice fire only on the first
	// crossing into suspended; further failures while suspended only bump
	// the counter.
	if !alreadySuspended {
		cancelCmd, err := outbox.NewCommand(types.OutboxCommandCancelSubscription, t.ID, outbox.CancelSubscriptionPayload{
			StripeSubscriptionID: t.StripeSubscriptionID,
			Reason:               "payment_retries_exhausted",
		})
		if err != nil {
			return nil, err
		}
		if err := s.OutboxRepo.Enqueue(ctx, cancelCmd); err != nil {
			return nil, err
		}

		if err := enqueueNotification(ctx, s.ServiceParams, t, types.NotificationSuspended, map[string]string{
			"tenant_name": t.Name,
			"invoice_id":  inv.ID,
		}); err != nil {
			return nil, err
		}
	}

	s.Logger.Errorw("payment retries exhausted, tenant suspended",
		"event_id", event.ID,
		"tenant_id", t.ID,
		"invoice_id", inv.ID,
		"failure_count", t.PaymentFailureCount,
		"first_crossing", !alreadySuspended,
	)

	return &EventOutcome{TenantID: t.ID, ResultingStatus: t.Status}, nil
}

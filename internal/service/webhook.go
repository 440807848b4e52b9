package service

import (
	"context"

	"github.com/kinderbill/kinderbill/internal/domain/billingevent"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/types"
)

// EventOutcome records what processing a single provider event did. The
// webhook handler uses it to shape the acknowledgement without leaking
// internal state to the provider.
type EventOutcome struct {
	EventID         string
	EventType       types.WebhookEventType
	TenantID        string
	ResultingStatus types.TenantStatus

	// Duplicate means the dedup guard had already recorded this event id.
	Duplicate bool
	// Ignored means the event type is not one we act on.
	Ignored bool
	// Orphaned means no tenant could be resolved; the event was archived
	// under the orphan bucket for operator review.
	Orphaned bool
	// Stale means a monotonicity guard discarded the event as a lagging
	// redelivery of older state.
	Stale bool
}

func orphanOutcome(event *stripe.Event) *EventOutcome {
	return &EventOutcome{
		EventID:   event.ID,
		EventType: event.Type,
		Orphaned:  true,
	}
}

// BillingWebhookService is the single entry point for provider webhook
// deliveries: verify, deduplicate, apply, archive.
type BillingWebhookService interface {
	ProcessEvent(ctx context.Context, payload []byte, signature string) (*EventOutcome, error)
}

type billingWebhookService struct {
	ServiceParams
	reconciler ReconcilerService
	dunning    DunningService
	checkout   CheckoutService
}

// NewBillingWebhookService creates the webhook processing service.
func NewBillingWebhookService(params ServiceParams) BillingWebhookService {
	return &billingWebhookService{
		ServiceParams: params,
		reconciler:    NewReconcilerService(params),
		dunning:       NewDunningService(params),
		checkout:      NewCheckoutService(params),
	}
}

// ProcessEvent verifies the delivery and applies it inside one transaction.
// The dedup marker, the tenant mutation, and any queued side effects commit
// or roll back together, so a failed delivery leaves no trace and the
// provider's retry starts clean. The audit archive write happens after
// commit and is best-effort: it never fails the delivery.
func (s *billingWebhookService) ProcessEvent(ctx context.Context, payload []byte, signature string) (*EventOutcome, error) {
	event, err := s.StripeClient.VerifyWebhook(payload, signature)
	if err != nil {
		return nil, err
	}

	outcome := &EventOutcome{EventID: event.ID, EventType: event.Type}

	if !event.Type.IsRecognized() {
		s.Logger.Debugw("ignoring unrecognized event type",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		outcome.Ignored = true
		return outcome, nil
	}

	err = s.DB.WithTx(ctx, func(txCtx context.Context) error {
		fresh, err := s.EventRepo.MarkProcessed(txCtx, event.ID)
		if err != nil {
			return err
		}
		if !fresh {
			outcome.Duplicate = true
			return nil
		}

		applied, err := s.apply(txCtx, event)
		if err != nil {
			return err
		}

		applied.EventID = event.ID
		applied.EventType = event.Type
		*outcome = *applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Duplicate {
		s.Logger.Infow("duplicate event delivery absorbed",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return outcome, nil
	}

	s.archive(ctx, event, outcome)
	return outcome, nil
}

func (s *billingWebhookService) apply(ctx context.Context, event *stripe.Event) (*EventOutcome, error) {
	switch event.Type {
	case types.WebhookEventSubscriptionCreated, types.WebhookEventSubscriptionUpdated:
		return s.reconciler.HandleSubscriptionUpsert(ctx, event)
	case types.WebhookEventSubscriptionDeleted:
		return s.reconciler.HandleSubscriptionDeleted(ctx, event)
	case types.WebhookEventSubscriptionTrialEnd:
		return s.reconciler.HandleTrialWillEnd(ctx, event)
	case types.WebhookEventInvoicePaid:
		return s.dunning.HandleInvoicePaid(ctx, event)
	case types.WebhookEventInvoicePaymentFailed:
		return s.dunning.HandleInvoicePaymentFailed(ctx, event)
	case types.WebhookEventCheckoutCompleted:
		return s.checkout.HandleSessionCompleted(ctx, event)
	default:
		return nil, ierr.NewErrorf("no handler for event type %s", event.Type).
			Mark(ierr.ErrInternal)
	}
}

// archive appends the event to the immutable audit trail. Orphaned events
// land under a reserved bucket so operators can find deliveries that never
// resolved to a tenant.
func (s *billingWebhookService) archive(ctx context.Context, event *stripe.Event, outcome *EventOutcome) {
	tenantID := outcome.TenantID
	if outcome.Orphaned || tenantID == "" {
		tenantID = billingevent.OrphanTenantID
	}

	record := billingevent.New(tenantID, event.ID, string(event.Type), event.Data, outcome.ResultingStatus)

	if err := s.EventRepo.Append(ctx, record); err != nil {
		s.Logger.Errorw("failed to archive billing event",
			"event_id", event.ID,
			"tenant_id", tenantID,
			"error", err,
		)
	}
}

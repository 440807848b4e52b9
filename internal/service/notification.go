package service

import (
	"context"
	"fmt"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	"github.com/kinderbill/kinderbill/internal/email"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/types"
)

// NotificationService renders and sends lifecycle notifications queued by
// the webhook pipeline.
type NotificationService interface {
	Send(ctx context.Context, payload outbox.SendNotificationPayload) error
}

type notificationService struct {
	ServiceParams
}

// NewNotificationService creates a new notification service.
func NewNotificationService(params ServiceParams) NotificationService {
	return &notificationService{ServiceParams: params}
}

func (s *notificationService) Send(ctx context.Context, payload outbox.SendNotificationPayload) error {
	if payload.RecipientEmail == "" {
		s.Logger.Warnw("dropping notification with no recipient",
			"kind", payload.Kind,
		)
		return nil
	}

	subject, text := renderNotification(payload.Kind, payload.Params)
	if subject == "" {
		return ierr.NewErrorf("unknown notification kind %s", payload.Kind).
			Mark(ierr.ErrInternal)
	}

	resp, err := s.EmailService.SendEmail(ctx, email.SendEmailRequest{
		ToAddress: payload.RecipientEmail,
		Subject:   subject,
		Text:      text,
	})
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to deliver notification email").
			Mark(ierr.ErrIntegration)
	}
	if !resp.Success {
		// Disabled sink: treat as delivered so commands do not pile up in
		// environments without email credentials.
		s.Logger.Warnw("notification skipped by disabled email sink",
			"kind", payload.Kind,
			"to", payload.RecipientEmail,
		)
	}
	return nil
}

// renderNotification produces the subject and plain-text body for a
// notification kind. Params are best-effort: missing values render as
// generic phrasing rather than failing the send.
func renderNotification(kind types.NotificationKind, params map[string]string) (subject, text string) {
	name := params["tenant_name"]
	if name == "" {
		name = "your center"
	}

	switch kind {
	case types.NotificationTrialEnding:
		subject = "Your Kinderbill trial is ending soon"
		when := params["trial_end"]
		if when == "" {
			when = "in a few days"
		} else {
			when = "on " + when
		}
		text = fmt.Sprintf(
			"Hi,\n\nThe free trial for %s ends %s. Add a payment method to keep your plan active without interruption.\n\nThe Kinderbill team",
			name, when,
		)

	case types.NotificationPaymentFailed:
		subject = "Payment failed for your Kinderbill subscription"
		attemptsLeft := params["attempts_left"]
		urgency := "We will retry automatically."
		if attemptsLeft != "" {
			urgency = fmt.Sprintf("We will retry automatically %s more time(s) before access is suspended.", attemptsLeft)
		}
		text = fmt.Sprintf(
			"Hi,\n\nA subscription payment for %s could not be collected (invoice %s). %s Please check your payment method.\n\nThe Kinderbill team",
			name, params["invoice_id"], urgency,
		)

	case types.NotificationSuspended:
		subject = "Action required: your Kinderbill account is suspended"
		text = fmt.Sprintf(
			"Hi,\n\nAfter repeated failed payment attempts, access for %s has been suspended. Settle the outstanding invoice (%s) to restore access immediately.\n\nThe Kinderbill team",
			name, params["invoice_id"],
		)

	case types.NotificationCancelled:
		subject = "Your Kinderbill subscription has been cancelled"
		text = fmt.Sprintf(
			"Hi,\n\nThe subscription for %s has been cancelled and access has ended. You can restart your plan at any time from the billing page.\n\nThe Kinderbill team",
			name,
		)
	}
	return subject, text
}

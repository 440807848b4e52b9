package stripe

import (
	"context"
	"time"

	stripego "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/subscription"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/kinderbill/kinderbill/internal/config"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/types"
)

// Client is the outbound surface to the billing processor plus webhook
// verification.
type Client interface {
	// VerifyWebhook authenticates a raw payload against the shared secret
	// and returns the decoded envelope. Fails closed when the secret is
	// unconfigured.
	VerifyWebhook(payload []byte, signature string) (*Event, error)

	// CancelAtPeriodEnd flags the provider subscription to stop
	// auto-renewing, carrying a metadata reason code.
	CancelAtPeriodEnd(ctx context.Context, subscriptionID string, reason string) error

	// ResumeAutoRenewal clears a previously set cancel-at-period-end flag so
	// a recovered subscription keeps renewing.
	ResumeAutoRenewal(ctx context.Context, subscriptionID string) error
}

type client struct {
	cfg    config.StripeConfig
	logger *logger.Logger
}

// NewClient creates a Stripe-backed billing client.
func NewClient(cfg *config.Configuration, log *logger.Logger) Client {
	if cfg.Stripe.SecretKey != "" {
		stripego.Key = cfg.Stripe.SecretKey
	}
	return &client{
		cfg:    cfg.Stripe,
		logger: log,
	}
}

func (c *client) VerifyWebhook(payload []byte, signature string) (*Event, error) {
	if !c.cfg.IsConfigured() {
		return nil, ierr.NewError("billing integration is not configured").
			WithHint("Stripe secret key and webhook secret must be set").
			Mark(ierr.ErrSystem)
	}

	if len(payload) == 0 || signature == "" {
		return nil, ierr.NewError("missing webhook payload or signature").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}

	// ConstructEvent performs constant-time HMAC verification and rejects
	// stale timestamps. API version mismatches are tolerated because the
	// event payloads below decode only stable fields.
	event, err := webhook.ConstructEventWithOptions(payload, signature, c.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}

	return &Event{
		ID:        event.ID,
		Type:      types.WebhookEventType(event.Type),
		CreatedAt: time.Unix(event.Created, 0).UTC(),
		Data:      event.Data.Raw,
	}, nil
}

func (c *client) CancelAtPeriodEnd(ctx context.Context, subscriptionID string, reason string) error {
	if !c.cfg.IsConfigured() {
		return ierr.NewError("billing integration is not configured").
			WithHint("Stripe secret key must be set").
			Mark(ierr.ErrSystem)
	}

	params := &stripego.SubscriptionParams{
		CancelAtPeriodEnd: stripego.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("cancellation_reason", reason)

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to flag provider subscription for cancellation").
			WithReportableDetails(map[string]any{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrIntegration)
	}

	c.logger.Infow("issued cancel-at-period-end to provider",
		"subscription_id", subscriptionID,
		"reason", reason,
	)
	return nil
}

func (c *client) ResumeAutoRenewal(ctx context.Context, subscriptionID string) error {
	if !c.cfg.IsConfigured() {
		return ierr.NewError("billing integration is not configured").
			WithHint("Stripe secret key must be set").
			Mark(ierr.ErrSystem)
	}

	params := &stripego.SubscriptionParams{
		CancelAtPeriodEnd: stripego.Bool(false),
	}
	params.Context = ctx

	if _, err := subscription.Update(subscriptionID, params); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to clear provider cancellation flag").
			WithReportableDetails(map[string]any{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrIntegration)
	}

	c.logger.Infow("cleared cancel-at-period-end at provider",
		"subscription_id", subscriptionID,
	)
	return nil
}

package testutil

import (
	"context"
	"encoding/json"
	"sync"

	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
)

// StubStripeClient implements stripe.Client without touching the network.
// Events are fed in directly; VerifyWebhook decodes the payload as the event
// envelope and checks the signature against a fixed token.
type StubStripeClient struct {
	mu sync.Mutex

	// Signature is the only accepted signature value. Empty accepts any
	// non-empty signature.
	Signature string

	// CancelErr, when set, is returned from CancelAtPeriodEnd.
	CancelErr error

	// ResumeErr, when set, is returned from ResumeAutoRenewal.
	ResumeErr error

	cancelled []string
	resumed   []string
}

// NewStubStripeClient creates a stub billing client.
func NewStubStripeClient() *StubStripeClient {
	return &StubStripeClient{}
}

func (c *StubStripeClient) VerifyWebhook(payload []byte, signature string) (*stripe.Event, error) {
	if len(payload) == 0 || signature == "" {
		return nil, ierr.NewError("missing webhook payload or signature").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}
	if c.Signature != "" && signature != c.Signature {
		return nil, ierr.NewError("signature mismatch").
			WithHint("Invalid webhook signature").
			Mark(ierr.ErrPermissionDenied)
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid webhook payload").
			Mark(ierr.ErrValidation)
	}
	return &event, nil
}

func (c *StubStripeClient) CancelAtPeriodEnd(_ context.Context, subscriptionID string, _ string) error {
	if c.CancelErr != nil {
		return c.CancelErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelled = append(c.cancelled, subscriptionID)
	return nil
}

func (c *StubStripeClient) ResumeAutoRenewal(_ context.Context, subscriptionID string) error {
	if c.ResumeErr != nil {
		return c.ResumeErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resumed = append(c.resumed, subscriptionID)
	return nil
}

// CancelledSubscriptions returns the subscription ids cancelled so far.
func (c *StubStripeClient) CancelledSubscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.cancelled))
	copy(out, c.cancelled)
	return out
}

// ResumedSubscriptions returns the subscription ids resumed so far.
func (c *StubStripeClient) ResumedSubscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.resumed))
	copy(out, c.resumed)
	return out
}

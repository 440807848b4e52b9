package email

import (
	"context"

	"github.com/resend/resend-go/v2"

	"github.com/kinderbill/kinderbill/internal/config"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
)

// EmailClient wraps the Resend SDK. When disabled (no API key) sends are
// skipped, not failed.
type EmailClient struct {
	client      *resend.Client
	enabled     bool
	fromAddress string
}

// NewEmailClient creates a Resend-backed email client.
func NewEmailClient(cfg *config.Configuration) *EmailClient {
	enabled := cfg.Email.Enabled && cfg.Email.APIKey != ""

	var client *resend.Client
	if enabled {
		client = resend.NewClient(cfg.Email.APIKey)
	}

	return &EmailClient{
		client:      client,
		enabled:     enabled,
		fromAddress: cfg.Email.FromAddress,
	}
}

func (c *EmailClient) IsEnabled() bool {
	return c.enabled
}

func (c *EmailClient) GetFromAddress() string {
	return c.fromAddress
}

// SendEmail sends a single email and returns the provider message id.
func (c *EmailClient) SendEmail(ctx context.Context, from, to, subject, html, text string) (string, error) {
	if !c.enabled {
		return "", ierr.NewError("email client is disabled").
			Mark(ierr.ErrSystem)
	}

	req := &resend.SendEmailRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Text:    text,
	}

	sent, err := c.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to send email").
			Mark(ierr.ErrIntegration)
	}

	return sent.Id, nil
}

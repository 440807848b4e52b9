package email

import (
	"context"

	"github.com/kinderbill/kinderbill/internal/logger"
)

// SendEmailRequest is a single outbound email.
type SendEmailRequest struct {
	ToAddress string
	Subject   string
	Html      string
	Text      string
}

// SendEmailResponse reports the outcome of a send.
type SendEmailResponse struct {
	MessageID string
	Success   bool
	Error     string
}

// Email is the notification sink adapter. Send failures are reported to the
// caller but are never a reason to fail event processing.
type Email struct {
	client *EmailClient
	logger *logger.Logger
}

// NewEmail creates a new email service.
func NewEmail(client *EmailClient, log *logger.Logger) *Email {
	return &Email{
		client: client,
		logger: log,
	}
}

// SendEmail sends one email through the configured sink.
func (s *Email) SendEmail(ctx context.Context, req SendEmailRequest) (*SendEmailResponse, error) {
	if !s.client.IsEnabled() {
		s.logger.Warnw("email client is disabled, skipping email send",
			"to", req.ToAddress,
			"subject", req.Subject,
		)
		return &SendEmailResponse{
			Success: false,
			Error:   "email client is disabled",
		}, nil
	}

	messageID, err := s.client.SendEmail(ctx, s.client.GetFromAddress(), req.ToAddress, req.Subject, req.Html, req.Text)
	if err != nil {
		s.logger.Errorw("failed to send email",
			"error", err,
			"to", req.ToAddress,
			"subject", req.Subject,
		)
		return &SendEmailResponse{
			Success: false,
			Error:   err.Error(),
		}, err
	}

	s.logger.Infow("email sent successfully",
		"message_id", messageID,
		"to", req.ToAddress,
		"subject", req.Subject,
	)

	return &SendEmailResponse{
		MessageID: messageID,
		Success:   true,
	}, nil
}

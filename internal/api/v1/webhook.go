package v1

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/service"
	"github.com/kinderbill/kinderbill/internal/types"
)

// WebhookHandler receives provider webhook deliveries.
type WebhookHandler struct {
	webhookService service.BillingWebhookService
	logger         *logger.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(webhookService service.BillingWebhookService, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		webhookService: webhookService,
		logger:         log,
	}
}

// HandleStripeWebhook verifies and processes one delivery. The response
// discipline is what the provider's redelivery machinery expects: 2xx means
// absorbed for good (including duplicates, unrecognized types, orphans and
// stale events), 400 means the signature was bad and a redelivery of the
// same bytes is pointless, 5xx means we failed before durably recording the
// event and the provider must redeliver.
func (h *WebhookHandler) HandleStripeWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Failed to read webhook payload").
			Mark(ierr.ErrValidation))
		return
	}

	signature := c.GetHeader(types.HeaderStripeSignature)

	outcome, err := h.webhookService.ProcessEvent(c.Request.Context(), payload, signature)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"received": true,
		"event_id": outcome.EventID,
	})
}

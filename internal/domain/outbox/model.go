package outbox

import (
	"encoding/json"
	"time"

	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/types"
)

// Command is a persisted downstream action: a provider cancel call or a
// notification send. The webhook transaction only inserts the row; dispatch
// happens asynchronously with its own retry/backoff, so a downstream outage
// never blocks or rolls back local state.
type Command struct {
	ID            string                  `json:"id"`
	Kind          types.OutboxCommandKind `json:"kind"`
	TenantID      string                  `json:"tenant_id"`
	Payload       json.RawMessage         `json:"payload"`
	Status        types.OutboxStatus      `json:"status"`
	Attempts      int                     `json:"attempts"`
	NextAttemptAt time.Time               `json:"next_attempt_at"`
	LastError     *string                 `json:"last_error,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// CancelSubscriptionPayload is the payload for a provider-side
// cancel-at-period-end command.
type CancelSubscriptionPayload struct {
	StripeSubscriptionID string `json:"stripe_subscription_id"`
	Reason               string `json:"reason"`
}

// ResumeSubscriptionPayload is the payload for revoking a previously issued
// cancel-at-period-end after payment recovery.
type ResumeSubscriptionPayload struct {
	StripeSubscriptionID string `json:"stripe_subscription_id"`
}

// SendNotificationPayload is the payload for a notification send.
type SendNotificationPayload struct {
	RecipientEmail string                 `json:"recipient_email"`
	Kind           types.NotificationKind `json:"kind"`
	Params         map[string]string      `json:"params,omitempty"`
}

// NewCommand builds a pending command with a marshalled payload.
func NewCommand(kind types.OutboxCommandKind, tenantID string, payload any) (*Command, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode outbox command payload").
			Mark(ierr.ErrInternal)
	}

	now := time.Now().UTC()
	return &Command{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_OUTBOX),
		Kind:          kind,
		TenantID:      tenantID,
		Payload:       raw,
		Status:        types.OutboxStatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

package billingevent

import (
	"encoding/json"
	"time"

	"github.com/kinderbill/kinderbill/internal/types"
)

// OrphanTenantID is the synthetic bucket under which events whose tenant
// could not be resolved are recorded for manual operator reconciliation.
const OrphanTenantID = "orphaned"

// BillingEvent is one append-only audit record of a processed lifecycle
// event. Never mutated or deleted, and never consulted for control flow
// after creation.
type BillingEvent struct {
	ID              string             `json:"id"`
	TenantID        string             `json:"tenant_id"`
	StripeEventID   string             `json:"stripe_event_id"`
	EventType       string             `json:"event_type"`
	Payload         json.RawMessage    `json:"payload"`
	ResultingStatus types.TenantStatus `json:"resulting_status"`
	ProcessedAt     time.Time          `json:"processed_at"`
}

// New builds an audit record for a processed event.
func New(tenantID, stripeEventID, eventType string, payload json.RawMessage, resultingStatus types.TenantStatus) *BillingEvent {
	return &BillingEvent{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_BILLING_EVENT),
		TenantID:        tenantID,
		StripeEventID:   stripeEventID,
		EventType:       eventType,
		Payload:         payload,
		ResultingStatus: resultingStatus,
		ProcessedAt:     time.Now().UTC(),
	}
}

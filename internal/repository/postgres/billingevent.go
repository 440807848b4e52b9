package postgres

import (
	"context"
	"time"

	"github.com/lib/pq"

	"github.com/kinderbill/kinderbill/internal/domain/billingevent"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/postgres"
	"github.com/kinderbill/kinderbill/internal/types"
)

type billingEventRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewBillingEventRepository creates a new billing event repository.
func NewBillingEventRepository(client postgres.IClient, log *logger.Logger) billingevent.Repository {
	return &billingEventRepository{
		client: client,
		logger: log,
	}
}

func (r *billingEventRepository) Append(ctx context.Context, event *billingevent.BillingEvent) error {
	q := r.client.Querier(ctx)

	_, err := q.ExecContext(ctx, `
		INSERT INTO billing_events (id, tenant_id, stripe_event_id, event_type, payload, resulting_status, processed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.TenantID, event.StripeEventID, event.EventType,
		[]byte(event.Payload), string(event.ResultingStatus), event.ProcessedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to append billing event").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *billingEventRepository) ListByTenant(ctx context.Context, tenantID string, limit int) ([]*billingevent.BillingEvent, error) {
	q := r.client.Querier(ctx)

	if limit <= 0 {
		limit = 100
	}

	rows, err := q.QueryContext(ctx, `
		SELECT id, tenant_id, stripe_event_id, event_type, payload, resulting_status, processed_at
		FROM billing_events WHERE tenant_id = $1
		ORDER BY processed_at DESC
		LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list billing events").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var events []*billingevent.BillingEvent
	for rows.Next() {
		event := &billingevent.BillingEvent{}
		var payload []byte
		var resultingStatus string
		if err := rows.Scan(
			&event.ID, &event.TenantID, &event.StripeEventID, &event.EventType,
			&payload, &resultingStatus, &event.ProcessedAt,
		); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to read billing event").
				Mark(ierr.ErrDatabase)
		}
		event.Payload = payload
		event.ResultingStatus = types.TenantStatus(resultingStatus)
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return events, nil
}

// MarkProcessed is the atomic idempotency check-and-set: a primary-key
// insert that either claims the event id or reports it as already seen.
// Never a read-then-write pair with a gap.
func (r *billingEventRepository) MarkProcessed(ctx context.Context, stripeEventID string) (bool, error) {
	q := r.client.Querier(ctx)

	_, err := q.ExecContext(ctx, `
		INSERT INTO processed_events (stripe_event_id, first_seen_at)
		VALUES ($1, $2)`,
		stripeEventID, time.Now().UTC(),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return false, nil
		}
		return false, ierr.WithError(err).
			WithHint("Failed to record processed event").
			Mark(ierr.ErrDatabase)
	}
	return true, nil
}

func (r *billingEventRepository) IsProcessed(ctx context.Context, stripeEventID string) (bool, error) {
	q := r.client.Querier(ctx)

	var exists bool
	err := q.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM processed_events WHERE stripe_event_id = $1)`,
		stripeEventID,
	).Scan(&exists)
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("Failed to check processed event").
			Mark(ierr.ErrDatabase)
	}
	return exists, nil
}

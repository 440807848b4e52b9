package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/postgres"
	"github.com/kinderbill/kinderbill/internal/types"
)

type outboxRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(client postgres.IClient, log *logger.Logger) outbox.Repository {
	return &outboxRepository{
		client: client,
		logger: log,
	}
}

func (r *outboxRepository) Enqueue(ctx context.Context, cmd *outbox.Command) error {
	q := r.client.Querier(ctx)

	_, err := q.ExecContext(ctx, `
		INSERT INTO outbox_commands
			(id, kind, tenant_id, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		cmd.ID, string(cmd.Kind), cmd.TenantID, []byte(cmd.Payload),
		string(cmd.Status), cmd.Attempts, cmd.NextAttemptAt, cmd.LastError,
		cmd.CreatedAt, cmd.UpdatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to enqueue outbox command").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

// ClaimDue selects due pending commands with SKIP LOCKED so concurrent
// dispatchers never double-claim a command.
func (r *outboxRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*outbox.Command, error) {
	q := r.client.Querier(ctx)

	rows, err := q.QueryContext(ctx, `
		SELECT id, kind, tenant_id, payload, status, attempts, next_attempt_at, last_error, created_at, updated_at
		FROM outbox_commands
		WHERE status = 'pending' AND next_attempt_at <= $1
		ORDER BY next_attempt_at ASC
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, now, limit)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to claim outbox commands").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var cmds []*outbox.Command
	for rows.Next() {
		cmd := &outbox.Command{}
		var kind, status string
		var payload []byte
		var lastError sql.NullString
		if err := rows.Scan(
			&cmd.ID, &kind, &cmd.TenantID, &payload, &status,
			&cmd.Attempts, &cmd.NextAttemptAt, &lastError,
			&cmd.CreatedAt, &cmd.UpdatedAt,
		); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to read outbox command").
				Mark(ierr.ErrDatabase)
		}
		cmd.Kind = types.OutboxCommandKind(kind)
		cmd.Status = types.OutboxStatus(status)
		cmd.Payload = payload
		if lastError.Valid {
			cmd.LastError = &lastError.String
		}
		cmds = append(cmds, cmd)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return cmds, nil
}

func (r *outboxRepository) MarkDispatched(ctx context.Context, id string) error {
	q := r.client.Querier(ctx)

	_, err := q.ExecContext(ctx, `
		UPDATE outbox_commands
		SET status = 'dispatched', updated_at = $1
		WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to mark outbox command dispatched").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *outboxRepository) RecordFailure(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastError string, parked bool) error {
	q := r.client.Querier(ctx)

	status := string(types.OutboxStatusPending)
	if parked {
		status = string(types.OutboxStatusFailed)
	}

	_, err := q.ExecContext(ctx, `
		UPDATE outbox_commands
		SET status = $1, attempts = $2, next_attempt_at = $3, last_error = $4, updated_at = $5
		WHERE id = $6`,
		status, attempts, nextAttemptAt, lastError, time.Now().UTC(), id)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to record outbox command failure").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *outboxRepository) CountPendingByKindAndTenant(ctx context.Context, kind string, tenantID string) (int, error) {
	q := r.client.Querier(ctx)

	var count int
	err := q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM outbox_commands
		WHERE kind = $1 AND tenant_id = $2 AND status = 'pending'`,
		kind, tenantID,
	).Scan(&count)
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count outbox commands").
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

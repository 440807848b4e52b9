package testutil

import (
	"context"
	"sort"
	"time"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/types"
)

// InMemoryOutboxStore implements outbox.Repository
type InMemoryOutboxStore struct {
	*InMemoryStore[*outbox.Command]
}

// NewInMemoryOutboxStore creates a new in-memory outbox store
func NewInMemoryOutboxStore() *InMemoryOutboxStore {
	return &InMemoryOutboxStore{
		InMemoryStore: NewInMemoryStore[*outbox.Command](),
	}
}

func copyCommand(cmd *outbox.Command) *outbox.Command {
	if cmd == nil {
		return nil
	}
	copied := *cmd
	return &copied
}

func (s *InMemoryOutboxStore) Enqueue(ctx context.Context, cmd *outbox.Command) error {
	if cmd == nil {
		return ierr.NewError("command cannot be nil").
			WithHint("Command cannot be nil").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, cmd.ID, copyCommand(cmd))
}

func (s *InMemoryOutboxStore) ClaimDue(ctx context.Context, now time.Time, limit int) ([]*outbox.Command, error) {
	due := s.InMemoryStore.List(ctx, func(cmd *outbox.Command) bool {
		return cmd.Status == types.OutboxStatusPending && !cmd.NextAttemptAt.After(now)
	})
	sort.Slice(due, func(i, j int) bool {
		return due[i].NextAttemptAt.Before(due[j].NextAttemptAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	out := make([]*outbox.Command, 0, len(due))
	for _, cmd := range due {
		out = append(out, copyCommand(cmd))
	}
	return out, nil
}

func (s *InMemoryOutboxStore) MarkDispatched(ctx context.Context, id string) error {
	cmd, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	updated := copyCommand(cmd)
	updated.Status = types.OutboxStatusDispatched
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, updated)
}

func (s *InMemoryOutboxStore) RecordFailure(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastError string, parked bool) error {
	cmd, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return err
	}
	updated := copyCommand(cmd)
	updated.Attempts = attempts
	updated.NextAttemptAt = nextAttemptAt
	updated.LastError = &lastError
	if parked {
		updated.Status = types.OutboxStatusFailed
	}
	updated.UpdatedAt = time.Now().UTC()
	return s.InMemoryStore.Update(ctx, id, updated)
}

func (s *InMemoryOutboxStore) CountPendingByKindAndTenant(ctx context.Context, kind string, tenantID string) (int, error) {
	return len(s.InMemoryStore.List(ctx, func(cmd *outbox.Command) bool {
		return cmd.Status == types.OutboxStatusPending &&
			string(cmd.Kind) == kind &&
			cmd.TenantID == tenantID
	})), nil
}

// Commands returns all commands of a kind, for assertions.
func (s *InMemoryOutboxStore) Commands(kind types.OutboxCommandKind) []*outbox.Command {
	cmds := s.InMemoryStore.List(context.Background(), func(cmd *outbox.Command) bool {
		return cmd.Kind == kind
	})
	sort.Slice(cmds, func(i, j int) bool {
		return cmds[i].CreatedAt.Before(cmds[j].CreatedAt)
	})
	return cmds
}

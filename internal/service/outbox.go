package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/types"
)

const outboxClaimBatchSize = 25

// OutboxDispatcher drains persisted downstream commands: provider-side
// cancels and notification sends. Each command executes at-least-once with
// per-command retry state, so a provider or sink outage delays side effects
// without losing them.
type OutboxDispatcher struct {
	ServiceParams
	notifier NotificationService
}

// NewOutboxDispatcher creates a new outbox dispatcher.
func NewOutboxDispatcher(params ServiceParams) *OutboxDispatcher {
	return &OutboxDispatcher{
		ServiceParams: params,
		notifier:      NewNotificationService(params),
	}
}

// Run polls for due commands until the context is cancelled.
func (d *OutboxDispatcher) Run(ctx context.Context) {
	interval := time.Duration(d.Config.Billing.OutboxPollIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	d.Logger.Infow("outbox dispatcher started", "poll_interval", interval)

	for {
		select {
		case <-ctx.Done():
			d.Logger.Infow("outbox dispatcher stopped")
			return
		case <-ticker.C:
			if n, err := d.DispatchDue(ctx); err != nil {
				d.Logger.Errorw("outbox dispatch cycle failed", "error", err)
			} else if n > 0 {
				d.Logger.Infow("outbox dispatch cycle complete", "dispatched", n)
			}
		}
	}
}

// DispatchDue claims and executes one batch of due commands. The claim uses
// row locks with skip-locked semantics, so concurrent replicas never execute
// the same command twice within a cycle.
func (d *OutboxDispatcher) DispatchDue(ctx context.Context) (int, error) {
	dispatched := 0
	err := d.DB.WithTx(ctx, func(txCtx context.Context) error {
		commands, err := d.OutboxRepo.ClaimDue(txCtx, time.Now().UTC(), outboxClaimBatchSize)
		if err != nil {
			return err
		}

		for _, cmd := range commands {
			if execErr := d.execute(txCtx, cmd); execErr != nil {
				if err := d.recordFailure(txCtx, cmd, execErr); err != nil {
					return err
				}
				continue
			}
			if err := d.OutboxRepo.MarkDispatched(txCtx, cmd.ID); err != nil {
				return err
			}
			dispatched++
		}
		return nil
	})
	return dispatched, err
}

// execute runs one command, retrying transient failures in-process a couple
// of times before handing the command back to the persistent schedule.
func (d *OutboxDispatcher) execute(ctx context.Context, cmd *outbox.Command) error {
	op := func() error {
		switch cmd.Kind {
		case types.OutboxCommandCancelSubscription:
			return d.executeCancel(ctx, cmd)
		case types.OutboxCommandResumeSubscription:
			return d.executeResume(ctx, cmd)
		case types.OutboxCommandSendNotification:
			return d.executeNotification(ctx, cmd)
		default:
			return backoff.Permanent(ierr.NewErrorf("unknown outbox command kind %s", cmd.Kind).
				Mark(ierr.ErrInternal))
		}
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx)
	return backoff.Retry(op, bo)
}

func (d *OutboxDispatcher) executeCancel(ctx context.Context, cmd *outbox.Command) error {
	var payload outbox.CancelSubscriptionPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return backoff.Permanent(ierr.WithError(err).
			WithHint("Malformed cancel command payload").
			Mark(ierr.ErrInternal))
	}
	if payload.StripeSubscriptionID == "" {
		d.Logger.Warnw("cancel command without subscription id, nothing to cancel",
			"command_id", cmd.ID,
			"tenant_id", cmd.TenantID,
		)
		return nil
	}

	if err := d.StripeClient.CancelAtPeriodEnd(ctx, payload.StripeSubscriptionID, payload.Reason); err != nil {
		return err
	}

	d.Logger.Infow("requested provider-side cancellation",
		"command_id", cmd.ID,
		"tenant_id", cmd.TenantID,
		"subscription_id", payload.StripeSubscriptionID,
	)
	return nil
}

func (d *OutboxDispatcher) executeResume(ctx context.Context, cmd *outbox.Command) error {
	var payload outbox.ResumeSubscriptionPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return backoff.Permanent(ierr.WithError(err).
			WithHint("Malformed resume command payload").
			Mark(ierr.ErrInternal))
	}
	if payload.StripeSubscriptionID == "" {
		d.Logger.Warnw("resume command without subscription id, nothing to resume",
			"command_id", cmd.ID,
			"tenant_id", cmd.TenantID,
		)
		return nil
	}

	if err := d.StripeClient.ResumeAutoRenewal(ctx, payload.StripeSubscriptionID); err != nil {
		return err
	}

	d.Logger.Infow("revoked provider-side cancellation",
		"command_id", cmd.ID,
		"tenant_id", cmd.TenantID,
		"subscription_id", payload.StripeSubscriptionID,
	)
	return nil
}

func (d *OutboxDispatcher) executeNotification(ctx context.Context, cmd *outbox.Command) error {
	var payload outbox.SendNotificationPayload
	if err := json.Unmarshal(cmd.Payload, &payload); err != nil {
		return backoff.Permanent(ierr.WithError(err).
			WithHint("Malformed notification command payload").
			Mark(ierr.ErrInternal))
	}
	return d.notifier.Send(ctx, payload)
}

// recordFailure advances the command's persistent retry schedule with an
// exponential delay, parking it once attempts are exhausted.
func (d *OutboxDispatcher) recordFailure(ctx context.Context, cmd *outbox.Command, execErr error) error {
	attempts := cmd.Attempts + 1
	parked := attempts >= d.Config.Billing.OutboxMaxAttempts

	delay := time.Duration(1<<uint(min(attempts, 8))) * time.Minute
	nextAttemptAt := time.Now().UTC().Add(delay)

	logFn := d.Logger.Warnw
	if parked {
		logFn = d.Logger.Errorw
	}
	logFn("outbox command failed",
		"command_id", cmd.ID,
		"kind", cmd.Kind,
		"tenant_id", cmd.TenantID,
		"attempts", attempts,
		"parked", parked,
		"error", execErr,
	)

	return d.OutboxRepo.RecordFailure(ctx, cmd.ID, attempts, nextAttemptAt, execErr.Error(), parked)
}

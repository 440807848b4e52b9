package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/kinderbill/kinderbill/internal/domain/subscription"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/postgres"
	"github.com/kinderbill/kinderbill/internal/types"
)

type subscriptionRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewSubscriptionRepository creates a new subscription repository.
func NewSubscriptionRepository(client postgres.IClient, log *logger.Logger) subscription.Repository {
	return &subscriptionRepository{
		client: client,
		logger: log,
	}
}

const subscriptionColumns = `
	id, tenant_id, stripe_subscription_id, stripe_customer_id,
	provider_status, plan_tier, billing_cycle,
	current_period_start, current_period_end, trial_end,
	cancel_at_period_end, cancelled_at, metadata, created_at, updated_at`

func (r *subscriptionRepository) Upsert(ctx context.Context, sub *subscription.Subscription) error {
	q := r.client.Querier(ctx)

	metadataJSON, err := json.Marshal(sub.Metadata)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to encode subscription metadata").
			Mark(ierr.ErrInternal)
	}

	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	if sub.ID == "" {
		sub.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SUBSCRIPTION)
	}

	_, err = q.ExecContext(ctx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (stripe_subscription_id) DO UPDATE SET
			tenant_id = EXCLUDED.tenant_id,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			provider_status = EXCLUDED.provider_status,
			plan_tier = EXCLUDED.plan_tier,
			billing_cycle = EXCLUDED.billing_cycle,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			trial_end = EXCLUDED.trial_end,
			cancel_at_period_end = EXCLUDED.cancel_at_period_end,
			cancelled_at = EXCLUDED.cancelled_at,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`,
		sub.ID, sub.TenantID, sub.StripeSubscriptionID, sub.StripeCustomerID,
		string(sub.ProviderStatus), string(sub.PlanTier), string(sub.BillingCycle),
		sub.CurrentPeriodStart, sub.CurrentPeriodEnd, sub.TrialEnd,
		sub.CancelAtPeriodEnd, sub.CancelledAt, metadataJSON, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert subscription").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *subscriptionRepository) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*subscription.Subscription, error) {
	q := r.client.Querier(ctx)

	row := q.QueryRowContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions WHERE stripe_subscription_id = $1`, stripeSubscriptionID)

	sub, err := scanSubscription(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("subscription not found").
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read subscription").
			Mark(ierr.ErrDatabase)
	}
	return sub, nil
}

func (r *subscriptionRepository) ListByTenant(ctx context.Context, tenantID string) ([]*subscription.Subscription, error) {
	q := r.client.Querier(ctx)

	rows, err := q.QueryContext(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions WHERE tenant_id = $1
		ORDER BY created_at DESC`, tenantID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list subscriptions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var subs []*subscription.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows.Scan)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to read subscription").
				Mark(ierr.ErrDatabase)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return subs, nil
}

func scanSubscription(scan func(dest ...any) error) (*subscription.Subscription, error) {
	sub := &subscription.Subscription{}
	var (
		providerStatus, planTier, billingCycle string
		periodStart, periodEnd, trialEnd       sql.NullTime
		cancelledAt                            sql.NullTime
		metadataJSON                           []byte
	)

	err := scan(
		&sub.ID, &sub.TenantID, &sub.StripeSubscriptionID, &sub.StripeCustomerID,
		&providerStatus, &planTier, &billingCycle,
		&periodStart, &periodEnd, &trialEnd,
		&sub.CancelAtPeriodEnd, &cancelledAt, &metadataJSON, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &sub.Metadata); err != nil {
			return nil, err
		}
	}

	sub.ProviderStatus = types.ProviderSubscriptionStatus(providerStatus)
	sub.PlanTier = types.PlanTier(planTier)
	sub.BillingCycle = types.BillingCycle(billingCycle)
	sub.CurrentPeriodStart = nullTimePtr(periodStart)
	sub.CurrentPeriodEnd = nullTimePtr(periodEnd)
	sub.TrialEnd = nullTimePtr(trialEnd)
	sub.CancelledAt = nullTimePtr(cancelledAt)

	return sub, nil
}

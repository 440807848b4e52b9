package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/postgres"
	"github.com/kinderbill/kinderbill/internal/types"
)

type tenantRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(client postgres.IClient, log *logger.Logger) tenant.Repository {
	return &tenantRepository{
		client: client,
		logger: log,
	}
}

const tenantColumns = `
	id, name, contact_email, stripe_customer_id, stripe_subscription_id,
	status, plan_tier, billing_cycle,
	current_period_start, current_period_end, trial_end,
	cancel_at_period_end, cancelled_at,
	payment_failure_count, last_payment_failure_at,
	max_children, max_staff, created_at, updated_at`

func (r *tenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	q := r.client.Querier(ctx)

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err := q.ExecContext(ctx, `
		INSERT INTO tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`,
		t.ID, t.Name, t.ContactEmail, t.StripeCustomerID, t.StripeSubscriptionID,
		string(t.Status), string(t.PlanTier), string(t.BillingCycle),
		t.CurrentPeriodStart, t.CurrentPeriodEnd, t.TrialEnd,
		t.CancelAtPeriodEnd, t.CancelledAt,
		t.PaymentFailureCount, t.LastPaymentFailureAt,
		t.MaxChildren, t.MaxStaff, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ierr.WithError(err).
				WithHint("A tenant with this id already exists").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create tenant").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *tenantRepository) Get(ctx context.Context, id string) (*tenant.Tenant, error) {
	q := r.client.Querier(ctx)
	return r.scanTenant(q.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants WHERE id = $1`, id))
}

func (r *tenantRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*tenant.Tenant, error) {
	q := r.client.Querier(ctx)
	return r.scanTenant(q.QueryRowContext(ctx, `
		SELECT `+tenantColumns+`
		FROM tenants WHERE stripe_customer_id = $1`, customerID))
}

func (r *tenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	q := r.client.Querier(ctx)

	t.UpdatedAt = time.Now().UTC()

	result, err := q.ExecContext(ctx, `
		UPDATE tenants SET
			name = $1, contact_email = $2,
			stripe_customer_id = $3, stripe_subscription_id = $4,
			status = $5, plan_tier = $6, billing_cycle = $7,
			current_period_start = $8, current_period_end = $9, trial_end = $10,
			cancel_at_period_end = $11, cancelled_at = $12,
			payment_failure_count = $13, last_payment_failure_at = $14,
			max_children = $15, max_staff = $16, updated_at = $17
		WHERE id = $18`,
		t.Name, t.ContactEmail,
		t.StripeCustomerID, t.StripeSubscriptionID,
		string(t.Status), string(t.PlanTier), string(t.BillingCycle),
		t.CurrentPeriodStart, t.CurrentPeriodEnd, t.TrialEnd,
		t.CancelAtPeriodEnd, t.CancelledAt,
		t.PaymentFailureCount, t.LastPaymentFailureAt,
		t.MaxChildren, t.MaxStaff, t.UpdatedAt,
		t.ID,
	)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update tenant").
			Mark(ierr.ErrDatabase)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	if rows == 0 {
		return ierr.NewError("tenant not found").
			WithReportableDetails(map[string]any{"tenant_id": t.ID}).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *tenantRepository) scanTenant(row *sql.Row) (*tenant.Tenant, error) {
	t := &tenant.Tenant{}
	var (
		status, planTier, billingCycle   string
		periodStart, periodEnd, trialEnd sql.NullTime
		cancelledAt, lastFailureAt       sql.NullTime
	)

	err := row.Scan(
		&t.ID, &t.Name, &t.ContactEmail, &t.StripeCustomerID, &t.StripeSubscriptionID,
		&status, &planTier, &billingCycle,
		&periodStart, &periodEnd, &trialEnd,
		&t.CancelAtPeriodEnd, &cancelledAt,
		&t.PaymentFailureCount, &lastFailureAt,
		&t.MaxChildren, &t.MaxStaff, &t.CreatedAt, &t.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ierr.NewError("tenant not found").
			Mark(ierr.ErrNotFound)
	}
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read tenant").
			Mark(ierr.ErrDatabase)
	}

	t.Status = types.TenantStatus(status)
	t.PlanTier = types.PlanTier(planTier)
	t.BillingCycle = types.BillingCycle(billingCycle)
	t.CurrentPeriodStart = nullTimePtr(periodStart)
	t.CurrentPeriodEnd = nullTimePtr(periodEnd)
	t.TrialEnd = nullTimePtr(trialEnd)
	t.CancelledAt = nullTimePtr(cancelledAt)
	t.LastPaymentFailureAt = nullTimePtr(lastFailureAt)

	return t, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

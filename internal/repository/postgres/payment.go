package postgres

import (
	"context"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/kinderbill/kinderbill/internal/domain/payment"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/postgres"
	"github.com/kinderbill/kinderbill/internal/types"
)

type paymentRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewPaymentRepository creates a new one-time payment repository.
func NewPaymentRepository(client postgres.IClient, log *logger.Logger) payment.Repository {
	return &paymentRepository{
		client: client,
		logger: log,
	}
}

func (r *paymentRepository) Create(ctx context.Context, p *payment.OneTimePayment) error {
	q := r.client.Querier(ctx)

	_, err := q.ExecContext(ctx, `
		INSERT INTO one_time_payments
			(id, invoice_id, family_id, amount, currency, resulting_invoice_status, stripe_checkout_session_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.InvoiceID, p.FamilyID, p.Amount.String(), p.Currency,
		string(p.ResultingInvoiceStatus), p.StripeCheckoutSessionID, p.PaidAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ierr.WithError(err).
				WithHint("A payment for this checkout session is already recorded").
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to record one-time payment").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *paymentRepository) TotalPaidForInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	q := r.client.Querier(ctx)

	var total string
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM one_time_payments WHERE invoice_id = $1`,
		invoiceID,
	).Scan(&total)
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Failed to sum invoice payments").
			Mark(ierr.ErrDatabase)
	}

	amount, err := decimal.NewFromString(total)
	if err != nil {
		return decimal.Zero, ierr.WithError(err).
			WithHint("Invalid amount stored for invoice").
			Mark(ierr.ErrInternal)
	}
	return amount, nil
}

func (r *paymentRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*payment.OneTimePayment, error) {
	q := r.client.Querier(ctx)

	rows, err := q.QueryContext(ctx, `
		SELECT id, invoice_id, family_id, amount, currency, resulting_invoice_status, stripe_checkout_session_id, paid_at
		FROM one_time_payments WHERE invoice_id = $1
		ORDER BY paid_at ASC`, invoiceID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list invoice payments").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var payments []*payment.OneTimePayment
	for rows.Next() {
		p := &payment.OneTimePayment{}
		var amount, status string
		if err := rows.Scan(
			&p.ID, &p.InvoiceID, &p.FamilyID, &amount, &p.Currency,
			&status, &p.StripeCheckoutSessionID, &p.PaidAt,
		); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to read one-time payment").
				Mark(ierr.ErrDatabase)
		}
		p.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, ierr.WithError(err).Mark(ierr.ErrInternal)
		}
		p.ResultingInvoiceStatus = types.InvoicePaymentStatus(status)
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, ierr.WithError(err).Mark(ierr.ErrDatabase)
	}
	return payments, nil
}

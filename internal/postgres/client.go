package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/kinderbill/kinderbill/internal/config"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/types"
)

// Querier is the subset of database/sql used by repositories. Both *sql.DB
// and *sql.Tx satisfy it, so repository code is transaction-agnostic.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// IClient is the database client used by repositories and services.
type IClient interface {
	Querier(ctx context.Context) Querier
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	TxFromContext(ctx context.Context) *sql.Tx
	LockTenant(ctx context.Context, tenantID string) error
	Close() error
}

// Client wraps *sql.DB with transaction propagation through context.
type Client struct {
	db     *sql.DB
	logger *logger.Logger
}

// NewClient opens a Postgres connection pool from configuration.
func NewClient(cfg *config.Configuration, log *logger.Logger) (*Client, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Postgres.Host,
		cfg.Postgres.Port,
		cfg.Postgres.User,
		cfg.Postgres.Password,
		cfg.Postgres.DBName,
		cfg.Postgres.SSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to open database connection").
			Mark(ierr.ErrDatabase)
	}

	db.SetMaxOpenConns(cfg.Postgres.MaxOpen)
	db.SetMaxIdleConns(cfg.Postgres.MaxIdle)

	if err := db.Ping(); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to connect to database").
			Mark(ierr.ErrDatabase)
	}

	log.Infow("connected to postgres",
		"host", cfg.Postgres.Host,
		"database", cfg.Postgres.DBName,
	)

	return &Client{db: db, logger: log}, nil
}

// Querier returns the transaction bound to the context if present,
// otherwise the pool.
func (c *Client) Querier(ctx context.Context) Querier {
	if tx := c.TxFromContext(ctx); tx != nil {
		return tx
	}
	return c.db
}

// TxFromContext returns the transaction carried by the context, or nil.
func (c *Client) TxFromContext(ctx context.Context) *sql.Tx {
	if tx, ok := ctx.Value(types.CtxDBTx).(*sql.Tx); ok {
		return tx
	}
	return nil
}

// WithTx runs fn inside a transaction bound to the derived context. Nested
// calls reuse the outer transaction.
func (c *Client) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := c.TxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Failed to begin transaction").
			Mark(ierr.ErrDatabase)
	}

	txCtx := context.WithValue(ctx, types.CtxDBTx, tx)

	if err := fn(txCtx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.logger.Errorw("failed to rollback transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to commit transaction").
			Mark(ierr.ErrDatabase)
	}

	return nil
}

// Close closes the underlying pool.
func (c *Client) Close() error {
	return c.db.Close()
}

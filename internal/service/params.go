package service

import (
	"github.com/kinderbill/kinderbill/internal/config"
	"github.com/kinderbill/kinderbill/internal/domain/billingevent"
	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	"github.com/kinderbill/kinderbill/internal/domain/payment"
	"github.com/kinderbill/kinderbill/internal/domain/subscription"
	"github.com/kinderbill/kinderbill/internal/domain/tenant"
	"github.com/kinderbill/kinderbill/internal/email"
	"github.com/kinderbill/kinderbill/internal/integration/stripe"
	"github.com/kinderbill/kinderbill/internal/logger"
	"github.com/kinderbill/kinderbill/internal/postgres"
)

// ServiceParams bundles the dependencies shared by the services in this
// package.
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	DB     postgres.IClient

	TenantRepo       tenant.Repository
	SubscriptionRepo subscription.Repository
	EventRepo        billingevent.Repository
	PaymentRepo      payment.Repository
	OutboxRepo       outbox.Repository

	StripeClient stripe.Client
	EmailService *email.Email
}

package testutil

import (
	"context"

	"github.com/stretchr/testify/suite"

	"github.com/kinderbill/kinderbill/internal/config"
	"github.com/kinderbill/kinderbill/internal/email"
	"github.com/kinderbill/kinderbill/internal/logger"
)

// Stores bundles the in-memory repositories backing a test suite.
type Stores struct {
	Tenant       *InMemoryTenantStore
	Subscription *InMemorySubscriptionStore
	BillingEvent *InMemoryBillingEventStore
	Payment      *InMemoryPaymentStore
	Outbox       *InMemoryOutboxStore
}

// BaseServiceTestSuite provides fresh in-memory infrastructure per test.
// Suites assemble their service parameters from the accessors.
type BaseServiceTestSuite struct {
	suite.Suite

	ctx    context.Context
	cfg    *config.Configuration
	log    *logger.Logger
	stores Stores
	db     *FakeDBClient
	stripe *StubStripeClient
	email  *email.Email
}

// SetupTest rebuilds all state before each test.
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = config.GetDefaultConfig()

	log, err := logger.NewLogger(s.cfg)
	s.Require().NoError(err)
	s.log = log

	s.stores = Stores{
		Tenant:       NewInMemoryTenantStore(),
		Subscription: NewInMemorySubscriptionStore(),
		BillingEvent: NewInMemoryBillingEventStore(),
		Payment:      NewInMemoryPaymentStore(),
		Outbox:       NewInMemoryOutboxStore(),
	}
	s.db = NewFakeDBClient()
	s.stripe = NewStubStripeClient()
	s.email = email.NewEmail(email.NewEmailClient(s.cfg), log)
}

// GetContext returns the test context.
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetConfig returns the test configuration.
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.cfg
}

// GetLogger returns the test logger.
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.log
}

// GetStores returns the in-memory repositories.
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetDB returns the fake database client.
func (s *BaseServiceTestSuite) GetDB() *FakeDBClient {
	return s.db
}

// GetStripe returns the stub billing client.
func (s *BaseServiceTestSuite) GetStripe() *StubStripeClient {
	return s.stripe
}

// GetEmail returns the email service wired to the disabled sink.
func (s *BaseServiceTestSuite) GetEmail() *email.Email {
	return s.email
}

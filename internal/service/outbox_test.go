package service

import (
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/suite"

	"github.com/kinderbill/kinderbill/internal/domain/outbox"
	ierr "github.com/kinderbill/kinderbill/internal/errors"
	"github.com/kinderbill/kinderbill/internal/testutil"
	"github.com/kinderbill/kinderbill/internal/types"
)

type OutboxDispatcherSuite struct {
	testutil.BaseServiceTestSuite
	dispatcher *OutboxDispatcher
}

func TestOutboxDispatcher(t *testing.T) {
	suite.Run(t, new(OutboxDispatcherSuite))
}

func (s *OutboxDispatcherSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.dispatcher = NewOutboxDispatcher(newTestParams(&s.BaseServiceTestSuite))
}

func (s *OutboxDispatcherSuite) enqueueCancel(subscriptionID string) *outbox.Command {
	cmd, err := outbox.NewCommand(types.OutboxCommandCancelSubscription, "tnnt_test_1", outbox.CancelSubscriptionPayload{
		StripeSubscriptionID: subscriptionID,
		Reason:               "payment_retries_exhausted",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().Outbox.Enqueue(s.GetContext(), cmd))
	return cmd
}

func (s *OutboxDispatcherSuite) TestDispatchesCancelCommand() {
	cmd := s.enqueueCancel("sub_1")

	n, err := s.dispatcher.DispatchDue(s.GetContext())
	s.NoError(err)
	s.Equal(1, n)

	s.Equal([]string{"sub_1"}, s.GetStripe().CancelledSubscriptions())

	stored, err := s.GetStores().Outbox.Get(s.GetContext(), cmd.ID)
	s.NoError(err)
	s.Equal(types.OutboxStatusDispatched, stored.Status)
}

func (s *OutboxDispatcherSuite) TestDispatchesNotificationCommand() {
	cmd, err := outbox.NewCommand(types.OutboxCommandSendNotification, "tnnt_test_1", outbox.SendNotificationPayload{
		RecipientEmail: "admin@littlesprouts.example",
		Kind:           types.NotificationSuspended,
		Params:         map[string]string{"tenant_name": "Little Sprouts", "invoice_id": "in_1"},
	})
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().Outbox.Enqueue(s.GetContext(), cmd))

	n, err := s.dispatcher.DispatchDue(s.GetContext())
	s.NoError(err)
	s.Equal(1, n)

	stored, err := s.GetStores().Outbox.Get(s.GetContext(), cmd.ID)
	s.NoError(err)
	s.Equal(types.OutboxStatusDispatched, stored.Status)
}

func (s *OutboxDispatcherSuite) TestDispatchesResumeCommand() {
	cmd, err := outbox.NewCommand(types.OutboxCommandResumeSubscription, "tnnt_test_1", outbox.ResumeSubscriptionPayload{
		StripeSubscriptionID: "sub_1",
	})
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().Outbox.Enqueue(s.GetContext(), cmd))

	n, err := s.dispatcher.DispatchDue(s.GetContext())
	s.NoError(err)
	s.Equal(1, n)

	s.Equal([]string{"sub_1"}, s.GetStripe().ResumedSubscriptions())

	stored, err := s.GetStores().Outbox.Get(s.GetContext(), cmd.ID)
	s.NoError(err)
	s.Equal(types.OutboxStatusDispatched, stored.Status)
}

func (s *OutboxDispatcherSuite) TestFailedCommandIsRescheduled() {
	s.GetStripe().CancelErr = backoffPermanent()

	cmd := s.enqueueCancel("sub_1")

	n, err := s.dispatcher.DispatchDue(s.GetContext())
	s.NoError(err)
	s.Zero(n)

	stored, err := s.GetStores().Outbox.Get(s.GetContext(), cmd.ID)
	s.NoError(err)
	s.Equal(types.OutboxStatusPending, stored.Status)
	s.Equal(1, stored.Attempts)
	s.True(stored.NextAttemptAt.After(time.Now()))
	s.NotNil(stored.LastError)
}

func (s *OutboxDispatcherSuite) TestCommandIsParkedAfterMaxAttempts() {
	s.GetStripe().CancelErr = backoffPermanent()
	maxAttempts := s.GetConfig().Billing.OutboxMaxAttempts

	cmd := s.enqueueCancel("sub_1")

	for i := 0; i < maxAttempts; i++ {
		// Pull the schedule forward so the command is due again.
		stored, err := s.GetStores().Outbox.Get(s.GetContext(), cmd.ID)
		s.Require().NoError(err)
		s.Require().NoError(s.GetStores().Outbox.RecordFailure(
			s.GetContext(), cmd.ID, stored.Attempts, time.Now().Add(-time.Minute), "forced due", stored.Status == types.OutboxStatusFailed))

		_, err = s.dispatcher.DispatchDue(s.GetContext())
		s.Require().NoError(err)
	}

	stored, err := s.GetStores().Outbox.Get(s.GetContext(), cmd.ID)
	s.NoError(err)
	s.Equal(types.OutboxStatusFailed, stored.Status)
	s.Equal(maxAttempts, stored.Attempts)

	// Parked commands are never claimed again.
	n, err := s.dispatcher.DispatchDue(s.GetContext())
	s.NoError(err)
	s.Zero(n)
}

func (s *OutboxDispatcherSuite) TestCancelWithoutSubscriptionIDCompletes() {
	cmd, err := outbox.NewCommand(types.OutboxCommandCancelSubscription, "tnnt_test_1", outbox.CancelSubscriptionPayload{})
	s.Require().NoError(err)
	s.Require().NoError(s.GetStores().Outbox.Enqueue(s.GetContext(), cmd))

	n, err := s.dispatcher.DispatchDue(s.GetContext())
	s.NoError(err)
	s.Equal(1, n)
	s.Empty(s.GetStripe().CancelledSubscriptions())
}

// backoffPermanent skips the dispatcher's in-process retry so failure tests
// run without backoff sleeps.
func backoffPermanent() error {
	return backoff.Permanent(ierr.NewError("provider rejected request").
		Mark(ierr.ErrIntegration))
}

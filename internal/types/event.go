package types

// WebhookEventType is the provider event type string on the inbound
// envelope. Unrecognized types are accepted and ignored so the provider
// never sees a retryable error for events this service does not handle.
type WebhookEventType string

const (
	WebhookEventSubscriptionCreated  WebhookEventType = "customer.subscription.created"
	WebhookEventSubscriptionUpdated  WebhookEventType = "customer.subscription.updated"
	WebhookEventSubscriptionDeleted  WebhookEventType = "customer.subscription.deleted"
	WebhookEventSubscriptionTrialEnd WebhookEventType = "customer.subscription.trial_will_end"
	WebhookEventInvoicePaid          WebhookEventType = "invoice.paid"
	WebhookEventInvoicePaymentFailed WebhookEventType = "invoice.payment_failed"
	WebhookEventCheckoutCompleted    WebhookEventType = "checkout.session.completed"
)

// IsRecognized reports whether the event type is handled by this service.
func (t WebhookEventType) IsRecognized() bool {
	switch t {
	case WebhookEventSubscriptionCreated,
		WebhookEventSubscriptionUpdated,
		WebhookEventSubscriptionDeleted,
		WebhookEventSubscriptionTrialEnd,
		WebhookEventInvoicePaid,
		WebhookEventInvoicePaymentFailed,
		WebhookEventCheckoutCompleted:
		return true
	}
	return false
}

// NotificationKind identifies a notification template.
type NotificationKind string

const (
	NotificationTrialEnding   NotificationKind = "trial_ending"
	NotificationPaymentFailed NotificationKind = "payment_failed"
	NotificationSuspended     NotificationKind = "suspended"
	NotificationCancelled     NotificationKind = "cancelled"
)

// OutboxCommandKind identifies a downstream command persisted to the outbox.
type OutboxCommandKind string

const (
	OutboxCommandCancelSubscription OutboxCommandKind = "cancel_subscription"
	OutboxCommandResumeSubscription OutboxCommandKind = "resume_subscription"
	OutboxCommandSendNotification   OutboxCommandKind = "send_notification"
)

// OutboxStatus is the dispatch state of an outbox command.
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusDispatched OutboxStatus = "dispatched"
	OutboxStatusFailed     OutboxStatus = "failed"
)

// InvoicePaymentStatus is the monotonic status of a one-time invoice.
type InvoicePaymentStatus string

const (
	InvoicePaymentStatusOpen    InvoicePaymentStatus = "open"
	InvoicePaymentStatusPartial InvoicePaymentStatus = "partial"
	InvoicePaymentStatusPaid    InvoicePaymentStatus = "paid"
)

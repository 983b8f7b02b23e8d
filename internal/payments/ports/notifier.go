package ports

import "context"

// NotificationKind names the customer-facing notifications scheduled by
// webhook processing.
type NotificationKind string

const (
	NotifyPaymentConfirmed NotificationKind = "payment.confirmed"
	NotifyPaymentFailed    NotificationKind = "payment.failed"
)

// Notifier schedules an outbound notification for an order. Fire-and-forget:
// implementations log their own failures and never propagate them, so webhook
// acknowledgment cannot be held hostage by a notification outage.
type Notifier interface {
	Notify(ctx context.Context, orderID string, kind NotificationKind)
}

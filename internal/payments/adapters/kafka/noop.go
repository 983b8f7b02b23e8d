package kafka

import (
	"context"
	"log/slog"

	"github.com/dejobratic/payflow/internal/payments/ports"
)

// NoopNotifier logs notifications without sending them. Useful for local dev
// before wiring Kafka.
type NoopNotifier struct{}

// NewNoopNotifier returns a new no-op notifier.
func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (n *NoopNotifier) Notify(_ context.Context, orderID string, kind ports.NotificationKind) {
	slog.Debug("notification::"+string(kind), "order_id", orderID)
}

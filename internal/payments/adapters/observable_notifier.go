package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/payflow/internal/payments/adapters/kafka"
	"github.com/dejobratic/payflow/internal/payments/ports"
	"github.com/dejobratic/payflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableNotifier struct {
	notifier ports.Notifier
	metrics  *kafka.Metrics
}

func NewObservableNotifier(notifier ports.Notifier, metrics *kafka.Metrics) *ObservableNotifier {
	return &ObservableNotifier{
		notifier: notifier,
		metrics:  metrics,
	}
}

func (n *ObservableNotifier) Notify(ctx context.Context, orderID string, kind ports.NotificationKind) {
	ctx, span := telemetry.StartSpan(ctx, "Notifier.Notify")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("notification.kind", string(kind)),
	)

	start := time.Now()
	n.notifier.Notify(ctx, orderID, kind)
	n.metrics.RecordNotify(ctx, string(kind), time.Since(start).Seconds())

	telemetry.SetSpanSuccess(span)
}

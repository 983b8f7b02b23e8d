package kafka

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	notificationLatency metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.notificationLatency, err = meter.Float64Histogram(
		"notification_publish_latency_seconds",
		metric.WithDescription("Notification publish latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create notification_publish_latency histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordNotify(ctx context.Context, kind string, durationSeconds float64) {
	m.notificationLatency.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("kind", kind),
	))
}

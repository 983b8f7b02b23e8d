package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	intentsResolvedTotal metric.Int64Counter
	webhookEventsTotal   metric.Int64Counter
	refundsTotal         metric.Int64Counter
	operationDuration    metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.intentsResolvedTotal, err = meter.Int64Counter(
		"payment_intents_resolved_total",
		metric.WithDescription("Total payment intent resolutions"),
		metric.WithUnit("{intent}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_intents_resolved_total counter: %w", err)
	}

	m.webhookEventsTotal, err = meter.Int64Counter(
		"payment_webhook_events_total",
		metric.WithDescription("Total processed provider webhook deliveries"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_webhook_events_total counter: %w", err)
	}

	m.refundsTotal, err = meter.Int64Counter(
		"payment_refunds_total",
		metric.WithDescription("Total refund attempts"),
		metric.WithUnit("{refund}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_refunds_total counter: %w", err)
	}

	m.operationDuration, err = meter.Float64Histogram(
		"payment_operation_duration_seconds",
		metric.WithDescription("Duration of payment lifecycle operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_operation_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordIntentResolved(ctx context.Context, outcome string) {
	m.intentsResolvedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordWebhookProcessed(ctx context.Context, outcome string) {
	m.webhookEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordRefundIssued(ctx context.Context, outcome string) {
	m.refundsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (m *Metrics) RecordOperationDuration(ctx context.Context, operation string, durationSeconds float64) {
	m.operationDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("operation", operation),
	))
}

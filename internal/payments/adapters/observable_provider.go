package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/metrics"
	"github.com/dejobratic/payflow/internal/payments/ports"
	"github.com/dejobratic/payflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ObservableProvider traces and times every remote provider call. Webhook
// verification is purely local and cheap, so it passes through untouched.
type ObservableProvider struct {
	provider ports.ProviderClient
	metrics  *metrics.Metrics
}

func NewObservableProvider(provider ports.ProviderClient, metrics *metrics.Metrics) *ObservableProvider {
	return &ObservableProvider{
		provider: provider,
		metrics:  metrics,
	}
}

func (p *ObservableProvider) CreateIntent(ctx context.Context, amountCents int64, currency string, meta ports.IntentMetadata) (*domain.Intent, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProviderClient.CreateIntent")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", meta.OrderID),
		attribute.Int64("intent.amount_cents", amountCents),
		attribute.String("intent.currency", currency),
	)

	start := time.Now()
	intent, err := p.provider.CreateIntent(ctx, amountCents, currency, meta)
	p.metrics.RecordOperationDuration(ctx, "provider_create_intent", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.String("intent.id", intent.ID))
	telemetry.SetSpanSuccess(span)
	return intent, nil
}

func (p *ObservableProvider) GetIntent(ctx context.Context, id string) (*domain.Intent, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProviderClient.GetIntent")
	defer span.End()

	telemetry.AddSpanAttributes(span, attribute.String("intent.id", id))

	start := time.Now()
	intent, err := p.provider.GetIntent(ctx, id)
	p.metrics.RecordOperationDuration(ctx, "provider_get_intent", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.String("intent.status", string(intent.Status)))
	telemetry.SetSpanSuccess(span)
	return intent, nil
}

func (p *ObservableProvider) CreateRefund(ctx context.Context, intentID string, amountCents *int64, reason string) (*domain.Refund, error) {
	ctx, span := telemetry.StartSpan(ctx, "ProviderClient.CreateRefund")
	defer span.End()

	attrs := []attribute.KeyValue{attribute.String("intent.id", intentID)}
	if amountCents != nil {
		attrs = append(attrs, attribute.Int64("refund.amount_cents", *amountCents))
	}
	telemetry.AddSpanAttributes(span, attrs...)

	start := time.Now()
	refund, err := p.provider.CreateRefund(ctx, intentID, amountCents, reason)
	p.metrics.RecordOperationDuration(ctx, "provider_create_refund", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return nil, err
	}

	telemetry.AddSpanAttributes(span, attribute.String("refund.id", refund.ID))
	telemetry.SetSpanSuccess(span)
	return refund, nil
}

func (p *ObservableProvider) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	return p.provider.VerifyWebhook(payload, signature)
}

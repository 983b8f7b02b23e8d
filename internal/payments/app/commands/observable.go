package commands

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/metrics"
	"github.com/dejobratic/payflow/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Observable decorators wrap the core handlers with tracing, logging, and
// domain metrics, keeping the handlers themselves free of instrumentation.

type ObservableResolveIntentHandler struct {
	handler ResolveIntentHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableResolveIntentHandler(handler ResolveIntentHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableResolveIntentHandler {
	return &ObservableResolveIntentHandler{handler: handler, logger: logger, metrics: metrics}
}

func (o *ObservableResolveIntentHandler) Handle(ctx context.Context, cmd ResolveIntentCommand) (*ResolveIntentResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "ResolveIntentCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span, attribute.String("order.id", cmd.OrderID))

	start := time.Now()
	result, err := o.handler.Handle(ctx, cmd)
	o.metrics.RecordOperationDuration(ctx, "resolve_intent", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.metrics.RecordIntentResolved(ctx, "error")
		o.logger.ErrorContext(ctx, "failed to resolve payment intent",
			"order_id", cmd.OrderID,
			"error", err,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("intent.id", result.IntentID),
		attribute.Int64("intent.amount_cents", result.AmountCents),
	)
	telemetry.SetSpanSuccess(span)

	o.metrics.RecordIntentResolved(ctx, "ok")
	o.logger.InfoContext(ctx, "payment intent resolved",
		"order_id", result.OrderID,
		"intent_id", result.IntentID,
	)

	return result, nil
}

type ObservableProcessWebhookHandler struct {
	handler ProcessWebhookHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableProcessWebhookHandler(handler ProcessWebhookHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableProcessWebhookHandler {
	return &ObservableProcessWebhookHandler{handler: handler, logger: logger, metrics: metrics}
}

func (o *ObservableProcessWebhookHandler) Handle(ctx context.Context, cmd ProcessWebhookCommand) error {
	ctx, span := telemetry.StartSpan(ctx, "ProcessWebhookCommand.Handle")
	defer span.End()

	start := time.Now()
	err := o.handler.Handle(ctx, cmd)
	o.metrics.RecordOperationDuration(ctx, "process_webhook", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.metrics.RecordWebhookProcessed(ctx, "rejected")
		o.logger.WarnContext(ctx, "webhook delivery rejected", "error", err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	o.metrics.RecordWebhookProcessed(ctx, "acknowledged")
	return nil
}

type ObservableIssueRefundHandler struct {
	handler IssueRefundHandler
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewObservableIssueRefundHandler(handler IssueRefundHandler, logger *slog.Logger, metrics *metrics.Metrics) *ObservableIssueRefundHandler {
	return &ObservableIssueRefundHandler{handler: handler, logger: logger, metrics: metrics}
}

func (o *ObservableIssueRefundHandler) Handle(ctx context.Context, cmd IssueRefundCommand) (*domain.Refund, error) {
	ctx, span := telemetry.StartSpan(ctx, "IssueRefundCommand.Handle")
	defer span.End()

	telemetry.AddSpanAttributes(span, attribute.String("order.id", cmd.OrderID))

	start := time.Now()
	refund, err := o.handler.Handle(ctx, cmd)
	o.metrics.RecordOperationDuration(ctx, "issue_refund", time.Since(start).Seconds())

	if err != nil {
		telemetry.RecordSpanError(span, err)
		o.metrics.RecordRefundIssued(ctx, "error")
		o.logger.ErrorContext(ctx, "failed to issue refund",
			"order_id", cmd.OrderID,
			"error", err,
		)
		return nil, err
	}

	telemetry.AddSpanAttributes(span,
		attribute.String("refund.id", refund.ID),
		attribute.Int64("refund.amount_cents", refund.AmountCents),
	)
	telemetry.SetSpanSuccess(span)

	o.metrics.RecordRefundIssued(ctx, "ok")
	o.logger.InfoContext(ctx, "refund issued",
		"order_id", cmd.OrderID,
		"refund_id", refund.ID,
		"refund_status", refund.Status,
	)

	return refund, nil
}

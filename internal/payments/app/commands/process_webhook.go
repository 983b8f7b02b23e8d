package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
)

// ProcessWebhookCommand carries one raw provider delivery.
type ProcessWebhookCommand struct {
	Payload   []byte
	Signature string
}

// ProcessWebhookHandler verifies, deduplicates, and applies provider events
// onto order state.
type ProcessWebhookHandler interface {
	Handle(ctx context.Context, cmd ProcessWebhookCommand) error
}

type processWebhookHandler struct {
	repo     ports.OrderRepository
	provider ports.ProviderClient
	events   ports.EventStore
	notifier ports.Notifier
	logger   *slog.Logger
}

// NewProcessWebhookHandler constructs the core webhook processor.
func NewProcessWebhookHandler(
	repo ports.OrderRepository,
	provider ports.ProviderClient,
	events ports.EventStore,
	notifier ports.Notifier,
	logger *slog.Logger,
) ProcessWebhookHandler {
	return &processWebhookHandler{
		repo:     repo,
		provider: provider,
		events:   events,
		notifier: notifier,
		logger:   logger,
	}
}

// Handle returns an error only when the delivery cannot be authenticated.
// Everything after verification is acknowledged: failing the response would
// make the provider redeliver, and redelivery cannot fix a local fault.
func (h *processWebhookHandler) Handle(ctx context.Context, cmd ProcessWebhookCommand) error {
	if strings.TrimSpace(cmd.Signature) == "" {
		return fmt.Errorf("missing signature header: %w", domain.ErrInvalidSignature)
	}

	event, err := h.provider.VerifyWebhook(cmd.Payload, cmd.Signature)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			return err
		}
		h.logger.ErrorContext(ctx, "webhook decode failed after verification", "error", err)
		return nil
	}

	h.apply(ctx, event)
	return nil
}

func (h *processWebhookHandler) apply(ctx context.Context, event *domain.WebhookEvent) {
	if event.Type == domain.EventUnrecognized {
		h.logger.InfoContext(ctx, "ignoring unrecognized webhook event",
			"event_id", event.ID,
		)
		return
	}

	first, err := h.events.MarkProcessed(ctx, event.ID)
	if err != nil {
		h.logger.ErrorContext(ctx, "webhook dedup check failed",
			"event_id", event.ID,
			"error", err,
		)
		return
	}
	if !first {
		h.logger.DebugContext(ctx, "skipping already-processed webhook event",
			"event_id", event.ID,
		)
		return
	}

	if event.OrderID == "" {
		h.logger.WarnContext(ctx, "webhook event carries no order id",
			"event_id", event.ID,
			"intent_id", event.IntentID,
		)
		return
	}

	if err := h.transition(ctx, event); err != nil {
		h.logger.ErrorContext(ctx, "failed to apply webhook event",
			"event_id", event.ID,
			"order_id", event.OrderID,
			"event_type", string(event.Type),
			"error", err,
		)
	}
}

// transition moves the order's payment state, retrying the version race once.
func (h *processWebhookHandler) transition(ctx context.Context, event *domain.WebhookEvent) error {
	err := h.transitionOnce(ctx, event)
	if errors.Is(err, domain.ErrConflict) {
		err = h.transitionOnce(ctx, event)
	}
	return err
}

func (h *processWebhookHandler) transitionOnce(ctx context.Context, event *domain.WebhookEvent) error {
	order, err := h.repo.GetByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// The provider does not need to know about local lookup
			// failures; acknowledging stops its retry loop.
			h.logger.WarnContext(ctx, "webhook event references unknown order",
				"event_id", event.ID,
				"order_id", event.OrderID,
			)
			return nil
		}
		return err
	}

	var fields ports.PaymentFields
	var kind ports.NotificationKind

	switch event.Type {
	case domain.EventIntentSucceeded:
		if order.PaymentStatus == domain.PaymentCompleted {
			return nil
		}
		completed := domain.PaymentCompleted
		processing := domain.OrderProcessing
		fields = ports.PaymentFields{PaymentStatus: &completed, OrderStatus: &processing}
		kind = ports.NotifyPaymentConfirmed

	case domain.EventIntentFailed:
		if order.PaymentStatus == domain.PaymentCompleted {
			// Events arrive out of order; a success already applied wins
			// over a straggling failure.
			h.logger.InfoContext(ctx, "ignoring failure event for completed payment",
				"event_id", event.ID,
				"order_id", order.ID,
			)
			return nil
		}
		if order.PaymentStatus == domain.PaymentFailed {
			return nil
		}
		failed := domain.PaymentFailed
		fields = ports.PaymentFields{PaymentStatus: &failed}
		kind = ports.NotifyPaymentFailed

	default:
		return nil
	}

	if _, err := h.repo.UpdatePaymentFields(ctx, order.ID, order.Version, fields); err != nil {
		return err
	}

	h.notifier.Notify(ctx, order.ID, kind)
	return nil
}

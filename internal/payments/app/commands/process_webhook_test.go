package commands_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/dejobratic/payflow/internal/payments/app/commands"
	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func paidableOrder() *domain.Order {
	return &domain.Order{
		ID:               "order-1",
		OwnerID:          "cust-1",
		TotalAmountCents: 10000,
		Status:           domain.OrderPending,
		PaymentStatus:    domain.PaymentPending,
		PaymentIntentID:  "pi_1",
		Version:          2,
	}
}

func succeededEvent() *domain.WebhookEvent {
	return &domain.WebhookEvent{
		ID:       "evt_1",
		Type:     domain.EventIntentSucceeded,
		IntentID: "pi_1",
		OrderID:  "order-1",
		OwnerID:  "cust-1",
	}
}

func TestProcessWebhook(t *testing.T) {
	t.Run("rejects missing signature before touching the payload", func(t *testing.T) {
		verifyCalls := 0
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				verifyCalls++
				return succeededEvent(), nil
			},
		}

		handler := commands.NewProcessWebhookHandler(&mockRepository{}, provider, &mockEventStore{}, &mockNotifier{}, discardLogger())

		err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload: []byte(`{}`),
		})

		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
		if verifyCalls != 0 {
			t.Errorf("expected no verification attempt, got %d", verifyCalls)
		}
	})

	t.Run("rejects a payload that fails verification", func(t *testing.T) {
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				return nil, domain.ErrInvalidSignature
			},
		}

		handler := commands.NewProcessWebhookHandler(&mockRepository{}, provider, &mockEventStore{}, &mockNotifier{}, discardLogger())

		err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=bad",
		})

		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("applies a success event and notifies once", func(t *testing.T) {
		order := paidableOrder()
		notifier := &mockNotifier{}

		var written ports.PaymentFields
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return order, nil
			},
			updatePaymentFieldsFn: func(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
				if expectedVersion != order.Version {
					t.Errorf("expected version %d, got %d", order.Version, expectedVersion)
				}
				written = fields
				updated := *order
				updated.PaymentStatus = *fields.PaymentStatus
				updated.Status = *fields.OrderStatus
				updated.Version++
				return &updated, nil
			},
		}
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				return succeededEvent(), nil
			},
		}

		handler := commands.NewProcessWebhookHandler(repo, provider, &mockEventStore{}, notifier, discardLogger())

		err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		})

		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if written.PaymentStatus == nil || *written.PaymentStatus != domain.PaymentCompleted {
			t.Errorf("expected payment status completed, got %+v", written.PaymentStatus)
		}
		if written.OrderStatus == nil || *written.OrderStatus != domain.OrderProcessing {
			t.Errorf("expected order status processing, got %+v", written.OrderStatus)
		}
		if kinds := notifier.kinds(); len(kinds) != 1 || kinds[0] != ports.NotifyPaymentConfirmed {
			t.Errorf("expected one payment.confirmed notification, got %v", kinds)
		}
	})

	t.Run("applies a failure event without touching order status", func(t *testing.T) {
		order := paidableOrder()
		notifier := &mockNotifier{}

		var written ports.PaymentFields
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return order, nil
			},
			updatePaymentFieldsFn: func(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
				written = fields
				updated := *order
				updated.PaymentStatus = *fields.PaymentStatus
				updated.Version++
				return &updated, nil
			},
		}
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				event := succeededEvent()
				event.Type = domain.EventIntentFailed
				return event, nil
			},
		}

		handler := commands.NewProcessWebhookHandler(repo, provider, &mockEventStore{}, notifier, discardLogger())

		if err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if written.PaymentStatus == nil || *written.PaymentStatus != domain.PaymentFailed {
			t.Errorf("expected payment status failed, got %+v", written.PaymentStatus)
		}
		if written.OrderStatus != nil {
			t.Errorf("expected order status untouched, got %v", *written.OrderStatus)
		}
		if kinds := notifier.kinds(); len(kinds) != 1 || kinds[0] != ports.NotifyPaymentFailed {
			t.Errorf("expected one payment.failed notification, got %v", kinds)
		}
	})

	t.Run("skips a duplicate event id", func(t *testing.T) {
		updates := 0
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return paidableOrder(), nil
			},
			updatePaymentFieldsFn: func(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
				updates++
				return paidableOrder(), nil
			},
		}
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				return succeededEvent(), nil
			},
		}
		events := &mockEventStore{
			markProcessedFn: func(ctx context.Context, eventID string) (bool, error) {
				return false, nil
			},
		}
		notifier := &mockNotifier{}

		handler := commands.NewProcessWebhookHandler(repo, provider, events, notifier, discardLogger())

		if err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if updates != 0 {
			t.Errorf("expected no state update for duplicate, got %d", updates)
		}
		if len(notifier.kinds()) != 0 {
			t.Errorf("expected no notifications for duplicate, got %v", notifier.kinds())
		}
	})

	t.Run("completed payment wins over a late failure event", func(t *testing.T) {
		order := paidableOrder()
		order.PaymentStatus = domain.PaymentCompleted
		order.Status = domain.OrderProcessing

		updates := 0
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return order, nil
			},
			updatePaymentFieldsFn: func(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
				updates++
				return order, nil
			},
		}
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				event := succeededEvent()
				event.ID = "evt_late_failure"
				event.Type = domain.EventIntentFailed
				return event, nil
			},
		}
		notifier := &mockNotifier{}

		handler := commands.NewProcessWebhookHandler(repo, provider, &mockEventStore{}, notifier, discardLogger())

		if err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if updates != 0 {
			t.Errorf("expected completed payment left untouched, got %d updates", updates)
		}
		if len(notifier.kinds()) != 0 {
			t.Errorf("expected no notification, got %v", notifier.kinds())
		}
	})

	t.Run("acknowledges an event for an unknown order", func(t *testing.T) {
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				return succeededEvent(), nil
			},
		}

		handler := commands.NewProcessWebhookHandler(&mockRepository{}, provider, &mockEventStore{}, &mockNotifier{}, discardLogger())

		if err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		}); err != nil {
			t.Errorf("expected nil for unknown order, got %v", err)
		}
	})

	t.Run("acknowledges an unrecognized event without dedup", func(t *testing.T) {
		dedupCalls := 0
		events := &mockEventStore{
			markProcessedFn: func(ctx context.Context, eventID string) (bool, error) {
				dedupCalls++
				return true, nil
			},
		}
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				return &domain.WebhookEvent{ID: "evt_odd", Type: domain.EventUnrecognized}, nil
			},
		}

		handler := commands.NewProcessWebhookHandler(&mockRepository{}, provider, events, &mockNotifier{}, discardLogger())

		if err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		}); err != nil {
			t.Errorf("expected nil for unrecognized event, got %v", err)
		}
		if dedupCalls != 0 {
			t.Errorf("expected dedup store untouched, got %d calls", dedupCalls)
		}
	})

	t.Run("acknowledges an event without order metadata", func(t *testing.T) {
		updates := 0
		repo := &mockRepository{
			updatePaymentFieldsFn: func(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
				updates++
				return nil, nil
			},
		}
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				event := succeededEvent()
				event.OrderID = ""
				return event, nil
			},
		}

		handler := commands.NewProcessWebhookHandler(repo, provider, &mockEventStore{}, &mockNotifier{}, discardLogger())

		if err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		}); err != nil {
			t.Errorf("expected nil for event without order id, got %v", err)
		}
		if updates != 0 {
			t.Errorf("expected no updates, got %d", updates)
		}
	})

	t.Run("retries the version race once", func(t *testing.T) {
		order := paidableOrder()
		attempts := 0
		repo := &mockRepository{
			getByIDFn: func(ctx context.Context, id string) (*domain.Order, error) {
				return order, nil
			},
			updatePaymentFieldsFn: func(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
				attempts++
				if attempts == 1 {
					return nil, domain.ErrConflict
				}
				updated := *order
				updated.PaymentStatus = domain.PaymentCompleted
				updated.Version++
				return &updated, nil
			},
		}
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				return succeededEvent(), nil
			},
		}
		notifier := &mockNotifier{}

		handler := commands.NewProcessWebhookHandler(repo, provider, &mockEventStore{}, notifier, discardLogger())

		if err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		}); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}

		if attempts != 2 {
			t.Errorf("expected 2 update attempts, got %d", attempts)
		}
		if len(notifier.kinds()) != 1 {
			t.Errorf("expected one notification after retry, got %v", notifier.kinds())
		}
	})

	t.Run("swallows dedup store failures", func(t *testing.T) {
		events := &mockEventStore{
			markProcessedFn: func(ctx context.Context, eventID string) (bool, error) {
				return false, errors.New("store down")
			},
		}
		provider := &mockProvider{
			verifyWebhookFn: func(payload []byte, signature string) (*domain.WebhookEvent, error) {
				return succeededEvent(), nil
			},
		}

		handler := commands.NewProcessWebhookHandler(&mockRepository{}, provider, events, &mockNotifier{}, discardLogger())

		if err := handler.Handle(context.Background(), commands.ProcessWebhookCommand{
			Payload:   []byte(`{}`),
			Signature: "t=1,v1=good",
		}); err != nil {
			t.Errorf("expected nil despite dedup failure, got %v", err)
		}
	})
}

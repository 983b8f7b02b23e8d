package commands_test

import (
	"context"
	"sync"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
)

type mockRepository struct {
	getByIDFn             func(ctx context.Context, id string) (*domain.Order, error)
	updatePaymentFieldsFn func(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error)
}

func (m *mockRepository) Create(ctx context.Context, order domain.Order) error {
	return nil
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockRepository) UpdatePaymentFields(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
	if m.updatePaymentFieldsFn != nil {
		return m.updatePaymentFieldsFn(ctx, id, expectedVersion, fields)
	}
	return nil, domain.ErrNotFound
}

type mockProvider struct {
	createIntentFn  func(ctx context.Context, amountCents int64, currency string, meta ports.IntentMetadata) (*domain.Intent, error)
	getIntentFn     func(ctx context.Context, id string) (*domain.Intent, error)
	createRefundFn  func(ctx context.Context, intentID string, amountCents *int64, reason string) (*domain.Refund, error)
	verifyWebhookFn func(payload []byte, signature string) (*domain.WebhookEvent, error)
}

func (m *mockProvider) CreateIntent(ctx context.Context, amountCents int64, currency string, meta ports.IntentMetadata) (*domain.Intent, error) {
	if m.createIntentFn != nil {
		return m.createIntentFn(ctx, amountCents, currency, meta)
	}
	return nil, domain.ErrUnavailable
}

func (m *mockProvider) GetIntent(ctx context.Context, id string) (*domain.Intent, error) {
	if m.getIntentFn != nil {
		return m.getIntentFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockProvider) CreateRefund(ctx context.Context, intentID string, amountCents *int64, reason string) (*domain.Refund, error) {
	if m.createRefundFn != nil {
		return m.createRefundFn(ctx, intentID, amountCents, reason)
	}
	return nil, domain.ErrUnavailable
}

func (m *mockProvider) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	if m.verifyWebhookFn != nil {
		return m.verifyWebhookFn(payload, signature)
	}
	return nil, domain.ErrInvalidSignature
}

type mockEventStore struct {
	markProcessedFn func(ctx context.Context, eventID string) (bool, error)
}

func (m *mockEventStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	if m.markProcessedFn != nil {
		return m.markProcessedFn(ctx, eventID)
	}
	return true, nil
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []ports.NotificationKind
}

func (m *mockNotifier) Notify(ctx context.Context, orderID string, kind ports.NotificationKind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, kind)
}

func (m *mockNotifier) kinds() []ports.NotificationKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.NotificationKind(nil), m.calls...)
}

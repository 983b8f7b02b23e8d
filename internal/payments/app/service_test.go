package app_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dejobratic/payflow/internal/payments/adapters/memory"
	"github.com/dejobratic/payflow/internal/payments/app"
	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/metrics"
	"github.com/dejobratic/payflow/internal/payments/ports"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// fakeProvider simulates the remote provider with stateful intents so the
// whole lifecycle can run against real handlers and the in-memory store.
type fakeProvider struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*domain.Intent
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{intents: make(map[string]*domain.Intent)}
}

func (p *fakeProvider) CreateIntent(_ context.Context, amountCents int64, currency string, meta ports.IntentMetadata) (*domain.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	intent := &domain.Intent{
		ID:           fmt.Sprintf("pi_%d", p.seq),
		AmountCents:  amountCents,
		Currency:     currency,
		Status:       domain.IntentRequiresPaymentMethod,
		ClientSecret: fmt.Sprintf("pi_%d_secret", p.seq),
		OrderID:      meta.OrderID,
		OwnerID:      meta.OwnerID,
	}
	p.intents[intent.ID] = intent
	return intent, nil
}

func (p *fakeProvider) GetIntent(_ context.Context, id string) (*domain.Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := *intent
	return &copy, nil
}

func (p *fakeProvider) CreateRefund(_ context.Context, intentID string, amountCents *int64, reason string) (*domain.Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	intent, ok := p.intents[intentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	amount := intent.AmountCents
	if amountCents != nil {
		amount = *amountCents
	}
	return &domain.Refund{
		ID:          "re_" + intentID,
		IntentID:    intentID,
		AmountCents: amount,
		Status:      "succeeded",
		Reason:      reason,
	}, nil
}

// VerifyWebhook accepts the fixed signature "sig" and decodes payloads of
// the form "<event_id> <type> <intent_id>", so tests can drive deliveries
// without real signing.
func (p *fakeProvider) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	if signature != "sig" {
		return nil, domain.ErrInvalidSignature
	}

	var eventID, eventType, intentID string
	if _, err := fmt.Sscanf(string(payload), "%s %s %s", &eventID, &eventType, &intentID); err != nil {
		return nil, domain.ErrInvalidSignature
	}

	p.mu.Lock()
	intent, ok := p.intents[intentID]
	p.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown intent %s: %w", intentID, domain.ErrInvalidSignature)
	}

	var kind domain.EventType
	switch eventType {
	case "succeeded":
		kind = domain.EventIntentSucceeded
		p.mu.Lock()
		intent.Status = domain.IntentSucceeded
		p.mu.Unlock()
	case "failed":
		kind = domain.EventIntentFailed
	default:
		kind = domain.EventUnrecognized
	}

	return &domain.WebhookEvent{
		ID:       eventID,
		Type:     kind,
		IntentID: intent.ID,
		OrderID:  intent.OrderID,
		OwnerID:  intent.OwnerID,
	}, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	kinds []ports.NotificationKind
}

func (n *recordingNotifier) Notify(_ context.Context, orderID string, kind ports.NotificationKind) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.kinds = append(n.kinds, kind)
}

func newTestService(t *testing.T, repo ports.OrderRepository, provider ports.ProviderClient) (*app.Service, *recordingNotifier) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("test")
	m, err := metrics.NewMetrics(meter)
	if err != nil {
		t.Fatalf("NewMetrics() failed: %v", err)
	}

	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := app.NewService(repo, provider, memory.NewEventStore(), notifier, logger, m, app.Config{
		Currency:       "usd",
		PublishableKey: "pk_test_123",
	})
	return svc, notifier
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	owner := domain.Principal{ID: "cust-1", Role: domain.RoleCustomer}
	admin := domain.Principal{ID: "admin-1", Role: domain.RoleAdmin}

	t.Run("checkout, webhook, and refund flow end to end", func(t *testing.T) {
		repo := memory.NewRepository()
		provider := newFakeProvider()
		svc, notifier := newTestService(t, repo, provider)

		if err := repo.Create(ctx, domain.Order{
			ID:               "order-1",
			OwnerID:          "cust-1",
			TotalAmountCents: 10000,
			Status:           domain.OrderPending,
			PaymentStatus:    domain.PaymentPending,
		}); err != nil {
			t.Fatalf("seed order: %v", err)
		}

		creds, err := svc.ResolveIntent(ctx, "order-1", owner)
		if err != nil {
			t.Fatalf("ResolveIntent() failed: %v", err)
		}
		if creds.Amount != 100.00 {
			t.Errorf("expected amount 100.00, got %v", creds.Amount)
		}
		if creds.ClientSecret == "" {
			t.Error("expected a client secret")
		}

		// A second resolve before payment reuses the same intent.
		again, err := svc.ResolveIntent(ctx, "order-1", owner)
		if err != nil {
			t.Fatalf("second ResolveIntent() failed: %v", err)
		}
		if again.IntentID != creds.IntentID {
			t.Errorf("expected reused intent %s, got %s", creds.IntentID, again.IntentID)
		}

		payload := fmt.Sprintf("evt_1 succeeded %s", creds.IntentID)
		if err := svc.ProcessWebhook(ctx, []byte(payload), "sig"); err != nil {
			t.Fatalf("ProcessWebhook() failed: %v", err)
		}

		order, err := repo.GetByID(ctx, "order-1")
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if order.PaymentStatus != domain.PaymentCompleted {
			t.Errorf("expected payment completed, got %s", order.PaymentStatus)
		}
		if order.Status != domain.OrderProcessing {
			t.Errorf("expected order processing, got %s", order.Status)
		}

		// Redelivery of the same event is a no-op.
		if err := svc.ProcessWebhook(ctx, []byte(payload), "sig"); err != nil {
			t.Fatalf("redelivered ProcessWebhook() failed: %v", err)
		}
		if len(notifier.kinds) != 1 {
			t.Errorf("expected one notification, got %v", notifier.kinds)
		}

		status, err := svc.IntentStatus(ctx, creds.IntentID, owner)
		if err != nil {
			t.Fatalf("IntentStatus() failed: %v", err)
		}
		if status.Status != string(domain.IntentSucceeded) {
			t.Errorf("expected intent succeeded, got %s", status.Status)
		}
		if status.OrderID != "order-1" {
			t.Errorf("expected order-1, got %s", status.OrderID)
		}

		refund, err := svc.IssueRefund(ctx, "order-1", nil, "requested_by_customer", admin)
		if err != nil {
			t.Fatalf("IssueRefund() failed: %v", err)
		}
		if refund.Amount != 100.00 {
			t.Errorf("expected full refund of 100.00, got %v", refund.Amount)
		}

		order, err = repo.GetByID(ctx, "order-1")
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if order.PaymentStatus != domain.PaymentRefunded {
			t.Errorf("expected payment refunded, got %s", order.PaymentStatus)
		}
	})

	t.Run("customer cannot issue a refund", func(t *testing.T) {
		repo := memory.NewRepository()
		provider := newFakeProvider()
		svc, _ := newTestService(t, repo, provider)

		amount := 10.00
		_, err := svc.IssueRefund(ctx, "order-1", &amount, "", owner)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
	})

	t.Run("publishable key is exposed to clients", func(t *testing.T) {
		svc, _ := newTestService(t, memory.NewRepository(), newFakeProvider())

		if got := svc.PublishableKey(); got != "pk_test_123" {
			t.Errorf("PublishableKey() = %q, want %q", got, "pk_test_123")
		}
	})
}

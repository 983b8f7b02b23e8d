package app

import (
	"context"
	"log/slog"

	"github.com/dejobratic/payflow/internal/payments/app/commands"
	"github.com/dejobratic/payflow/internal/payments/app/queries"
	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/metrics"
	"github.com/dejobratic/payflow/internal/payments/ports"
)

// Config carries the service-level payment settings.
type Config struct {
	// Currency is the ISO 4217 code used for every intent, lowercase.
	Currency string
	// PublishableKey is handed to browser clients for the provider's JS SDK.
	PublishableKey string
}

// Service is the payment lifecycle façade exposed to the HTTP boundary. All
// amounts crossing it are major-unit decimals; everything below works in
// minor units.
type Service struct {
	resolveIntent  commands.ResolveIntentHandler
	processWebhook commands.ProcessWebhookHandler
	issueRefund    commands.IssueRefundHandler
	intentStatus   *queries.GetIntentStatusHandler
	publishableKey string
}

// NewService wires required dependencies.
func NewService(
	repo ports.OrderRepository,
	provider ports.ProviderClient,
	events ports.EventStore,
	notifier ports.Notifier,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	cfg Config,
) *Service {
	resolve := commands.NewResolveIntentHandler(repo, provider, cfg.Currency)
	webhook := commands.NewProcessWebhookHandler(repo, provider, events, notifier, logger)
	refund := commands.NewIssueRefundHandler(repo, provider)

	return &Service{
		resolveIntent:  commands.NewObservableResolveIntentHandler(resolve, logger, metrics),
		processWebhook: commands.NewObservableProcessWebhookHandler(webhook, logger, metrics),
		issueRefund:    commands.NewObservableIssueRefundHandler(refund, logger, metrics),
		intentStatus:   queries.NewGetIntentStatusHandler(repo, provider),
		publishableKey: cfg.PublishableKey,
	}
}

// CheckoutCredentials is what the payer's client needs to complete checkout.
type CheckoutCredentials struct {
	ClientSecret string  `json:"clientSecret"`
	IntentID     string  `json:"intentId"`
	Amount       float64 `json:"amount"`
	OrderID      string  `json:"orderId"`
}

// ResolveIntent returns payment credentials for an order, creating or
// reusing a remote intent as needed.
func (s *Service) ResolveIntent(ctx context.Context, orderID string, principal domain.Principal) (*CheckoutCredentials, error) {
	result, err := s.resolveIntent.Handle(ctx, commands.ResolveIntentCommand{
		OrderID:   orderID,
		Principal: principal,
	})
	if err != nil {
		return nil, err
	}

	return &CheckoutCredentials{
		ClientSecret: result.ClientSecret,
		IntentID:     result.IntentID,
		Amount:       ToMajorUnits(result.AmountCents),
		OrderID:      result.OrderID,
	}, nil
}

// ProcessWebhook applies one raw provider delivery. The returned error is
// non-nil only for authentication failures.
func (s *Service) ProcessWebhook(ctx context.Context, payload []byte, signature string) error {
	return s.processWebhook.Handle(ctx, commands.ProcessWebhookCommand{
		Payload:   payload,
		Signature: signature,
	})
}

// RefundView is the audit-display view of an issued refund.
type RefundView struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
	Reason string  `json:"reason,omitempty"`
}

// IssueRefund refunds a paid order, fully when amount is nil.
func (s *Service) IssueRefund(ctx context.Context, orderID string, amount *float64, reason string, principal domain.Principal) (*RefundView, error) {
	var amountCents *int64
	if amount != nil {
		cents := ToMinorUnits(*amount)
		amountCents = &cents
	}

	refund, err := s.issueRefund.Handle(ctx, commands.IssueRefundCommand{
		OrderID:     orderID,
		AmountCents: amountCents,
		Reason:      reason,
		Principal:   principal,
	})
	if err != nil {
		return nil, err
	}

	return &RefundView{
		ID:     refund.ID,
		Amount: ToMajorUnits(refund.AmountCents),
		Status: refund.Status,
		Reason: refund.Reason,
	}, nil
}

// IntentStatusView is the caller-facing view of a remote intent.
type IntentStatusView struct {
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	OrderID       string  `json:"orderId"`
	PaymentMethod string  `json:"paymentMethod,omitempty"`
}

// IntentStatus fetches the current state of an intent owned by the principal.
func (s *Service) IntentStatus(ctx context.Context, intentID string, principal domain.Principal) (*IntentStatusView, error) {
	result, err := s.intentStatus.Handle(ctx, queries.GetIntentStatusQuery{
		IntentID:  intentID,
		Principal: principal,
	})
	if err != nil {
		return nil, err
	}

	return &IntentStatusView{
		Status:        string(result.Status),
		Amount:        ToMajorUnits(result.AmountCents),
		Currency:      result.Currency,
		OrderID:       result.OrderID,
		PaymentMethod: result.PaymentMethod,
	}, nil
}

// PublishableKey returns the provider key browser clients initialize with.
func (s *Service) PublishableKey() string {
	return s.publishableKey
}

package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// Metadata keys attached to every intent at creation time. Webhook handling
// depends on these to correlate provider events back to local orders.
const (
	metaOrderID = "order_id"
	metaOwnerID = "owner_id"
)

// Client implements ports.ProviderClient against the Stripe API. Every remote
// call runs under a bounded timeout; timeouts and Stripe-side outages surface
// as domain.ErrUnavailable.
type Client struct {
	api           *client.API
	webhookSecret string
	timeout       time.Duration
}

// NewClient constructs a Stripe-backed provider client.
func NewClient(secretKey, webhookSecret string, timeout time.Duration) *Client {
	api := &client.API{}
	api.Init(secretKey, nil)

	return &Client{
		api:           api,
		webhookSecret: webhookSecret,
		timeout:       timeout,
	}
}

func (c *Client) CreateIntent(ctx context.Context, amountCents int64, currency string, meta ports.IntentMetadata) (*domain.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripeapi.PaymentIntentParams{
		Params:   stripeapi.Params{Context: ctx},
		Amount:   stripeapi.Int64(amountCents),
		Currency: stripeapi.String(currency),
		AutomaticPaymentMethods: &stripeapi.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripeapi.Bool(true),
		},
	}
	params.AddMetadata(metaOrderID, meta.OrderID)
	params.AddMetadata(metaOwnerID, meta.OwnerID)

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return nil, translateErr("create payment intent", err)
	}

	return toIntent(intent), nil
}

func (c *Client) GetIntent(ctx context.Context, id string) (*domain.Intent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripeapi.PaymentIntentParams{
		Params: stripeapi.Params{Context: ctx},
	}

	intent, err := c.api.PaymentIntents.Get(id, params)
	if err != nil {
		return nil, translateErr("get payment intent", err)
	}

	return toIntent(intent), nil
}

func (c *Client) CreateRefund(ctx context.Context, intentID string, amountCents *int64, reason string) (*domain.Refund, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripeapi.RefundParams{
		Params:        stripeapi.Params{Context: ctx},
		PaymentIntent: stripeapi.String(intentID),
	}
	if amountCents != nil {
		params.Amount = stripeapi.Int64(*amountCents)
	}
	if reason != "" {
		// Stripe's reason field is a closed enum; free-text reasons travel
		// as metadata instead.
		params.AddMetadata("reason", reason)
	}

	refund, err := c.api.Refunds.New(params)
	if err != nil {
		return nil, translateErr("create refund", err)
	}

	return &domain.Refund{
		ID:          refund.ID,
		IntentID:    intentID,
		AmountCents: refund.Amount,
		Status:      string(refund.Status),
		Reason:      reason,
	}, nil
}

// VerifyWebhook authenticates the delivery against the endpoint secret and
// decodes it into the event union in one step. The payload is never parsed
// before verification succeeds.
func (c *Client) VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", domain.ErrInvalidSignature)
	}

	var eventType domain.EventType
	switch event.Type {
	case "payment_intent.succeeded":
		eventType = domain.EventIntentSucceeded
	case "payment_intent.payment_failed":
		eventType = domain.EventIntentFailed
	default:
		return &domain.WebhookEvent{ID: event.ID, Type: domain.EventUnrecognized}, nil
	}

	var intent stripeapi.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", event.Type, err)
	}

	return &domain.WebhookEvent{
		ID:       event.ID,
		Type:     eventType,
		IntentID: intent.ID,
		OrderID:  intent.Metadata[metaOrderID],
		OwnerID:  intent.Metadata[metaOwnerID],
	}, nil
}

func toIntent(intent *stripeapi.PaymentIntent) *domain.Intent {
	out := &domain.Intent{
		ID:           intent.ID,
		AmountCents:  intent.Amount,
		Currency:     string(intent.Currency),
		Status:       domain.IntentStatus(intent.Status),
		ClientSecret: intent.ClientSecret,
		OrderID:      intent.Metadata[metaOrderID],
		OwnerID:      intent.Metadata[metaOwnerID],
	}
	if intent.PaymentMethod != nil {
		out.PaymentMethod = intent.PaymentMethod.ID
	}
	return out
}

// translateErr maps transport and Stripe-side failures onto the shared error
// taxonomy so callers can decide retryability with errors.Is.
func translateErr(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrUnavailable)
	}

	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.HTTPStatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("%s: %v: %w", op, err, domain.ErrUnavailable)
		}
		if stripeErr.HTTPStatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	// Anything that never produced an HTTP response is a transport fault.
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrUnavailable)
}

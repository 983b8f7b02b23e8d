package stripe

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dejobratic/payflow/internal/payments/domain"
	stripeapi "github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload produces the Stripe-Signature header value for a payload, the
// same way Stripe's servers do.
func signPayload(t *testing.T, payload []byte) string {
	t.Helper()

	now := time.Now()
	signature := webhook.ComputeSignature(now, payload, testWebhookSecret)
	return fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature))
}

func eventPayload(eventType string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"api_version": "2023-10-16",
		"type": %q,
		"data": {
			"object": {
				"id": "pi_1",
				"metadata": {
					"order_id": "order-1",
					"owner_id": "cust-1"
				}
			}
		}
	}`, eventType))
}

func TestVerifyWebhook(t *testing.T) {
	client := NewClient("sk_test_key", testWebhookSecret, 5*time.Second)

	t.Run("decodes a signed success event", func(t *testing.T) {
		payload := eventPayload("payment_intent.succeeded")

		event, err := client.VerifyWebhook(payload, signPayload(t, payload))
		if err != nil {
			t.Fatalf("VerifyWebhook() failed: %v", err)
		}

		if event.ID != "evt_1" {
			t.Errorf("id = %s, want evt_1", event.ID)
		}
		if event.Type != domain.EventIntentSucceeded {
			t.Errorf("type = %s, want %s", event.Type, domain.EventIntentSucceeded)
		}
		if event.IntentID != "pi_1" {
			t.Errorf("intent id = %s, want pi_1", event.IntentID)
		}
		if event.OrderID != "order-1" {
			t.Errorf("order id = %s, want order-1", event.OrderID)
		}
		if event.OwnerID != "cust-1" {
			t.Errorf("owner id = %s, want cust-1", event.OwnerID)
		}
	})

	t.Run("decodes a signed failure event", func(t *testing.T) {
		payload := eventPayload("payment_intent.payment_failed")

		event, err := client.VerifyWebhook(payload, signPayload(t, payload))
		if err != nil {
			t.Fatalf("VerifyWebhook() failed: %v", err)
		}

		if event.Type != domain.EventIntentFailed {
			t.Errorf("type = %s, want %s", event.Type, domain.EventIntentFailed)
		}
	})

	t.Run("maps unknown event types to unrecognized", func(t *testing.T) {
		payload := eventPayload("charge.dispute.created")

		event, err := client.VerifyWebhook(payload, signPayload(t, payload))
		if err != nil {
			t.Fatalf("VerifyWebhook() failed: %v", err)
		}

		if event.Type != domain.EventUnrecognized {
			t.Errorf("type = %s, want %s", event.Type, domain.EventUnrecognized)
		}
		if event.ID != "evt_1" {
			t.Errorf("id = %s, want evt_1", event.ID)
		}
	})

	t.Run("rejects a forged signature", func(t *testing.T) {
		payload := eventPayload("payment_intent.succeeded")

		_, err := client.VerifyWebhook(payload, "t=1,v1=deadbeef")
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("rejects a payload signed with a different secret", func(t *testing.T) {
		payload := eventPayload("payment_intent.succeeded")
		now := time.Now()
		signature := webhook.ComputeSignature(now, payload, "whsec_other_secret")
		header := fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(signature))

		_, err := client.VerifyWebhook(payload, header)
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})

	t.Run("rejects a tampered payload", func(t *testing.T) {
		payload := eventPayload("payment_intent.succeeded")
		header := signPayload(t, payload)

		tampered := eventPayload("payment_intent.payment_failed")
		_, err := client.VerifyWebhook(tampered, header)
		if !errors.Is(err, domain.ErrInvalidSignature) {
			t.Errorf("expected ErrInvalidSignature, got %v", err)
		}
	})
}

func TestTranslateErr(t *testing.T) {
	t.Run("deadline exceeded maps to unavailable", func(t *testing.T) {
		err := translateErr("get payment intent", context.DeadlineExceeded)
		if !errors.Is(err, domain.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("stripe 5xx maps to unavailable", func(t *testing.T) {
		err := translateErr("create refund", &stripeapi.Error{HTTPStatusCode: 503})
		if !errors.Is(err, domain.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})

	t.Run("stripe 404 maps to not found", func(t *testing.T) {
		err := translateErr("get payment intent", &stripeapi.Error{HTTPStatusCode: 404})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("stripe 4xx passes through", func(t *testing.T) {
		stripeErr := &stripeapi.Error{HTTPStatusCode: 402}
		err := translateErr("create payment intent", stripeErr)

		if errors.Is(err, domain.ErrUnavailable) || errors.Is(err, domain.ErrNotFound) {
			t.Errorf("4xx must not be retryable or not-found: %v", err)
		}
		var got *stripeapi.Error
		if !errors.As(err, &got) {
			t.Errorf("expected the stripe error preserved in the chain, got %v", err)
		}
	})

	t.Run("transport faults map to unavailable", func(t *testing.T) {
		err := translateErr("create payment intent", errors.New("connection refused"))
		if !errors.Is(err, domain.ErrUnavailable) {
			t.Errorf("expected ErrUnavailable, got %v", err)
		}
	})
}

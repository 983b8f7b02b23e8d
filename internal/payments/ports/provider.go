package ports

import (
	"context"

	"github.com/dejobratic/payflow/internal/payments/domain"
)

// IntentMetadata is attached to every intent at creation time and echoed back
// in webhook payloads. It is the only correlation between remote intents and
// local orders.
type IntentMetadata struct {
	OrderID string
	OwnerID string
}

// ProviderClient wraps the remote payment provider. Implementations must
// bound every call with a timeout and surface timeouts and provider outages
// as domain.ErrUnavailable.
type ProviderClient interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, meta IntentMetadata) (*domain.Intent, error)
	GetIntent(ctx context.Context, id string) (*domain.Intent, error)
	// CreateRefund issues a refund against an intent. A nil amount means a
	// full refund of the charged amount.
	CreateRefund(ctx context.Context, intentID string, amountCents *int64, reason string) (*domain.Refund, error)
	// VerifyWebhook authenticates and decodes a raw webhook delivery as a
	// single step; the payload is never parsed before its signature checks
	// out. Fails with domain.ErrInvalidSignature.
	VerifyWebhook(payload []byte, signature string) (*domain.WebhookEvent, error)
}

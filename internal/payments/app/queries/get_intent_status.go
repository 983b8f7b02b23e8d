package queries

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
)

// GetIntentStatusQuery requests the current state of a remote payment intent
// on behalf of the order's owner.
type GetIntentStatusQuery struct {
	IntentID  string
	Principal domain.Principal
}

// Validate ensures the query has valid parameters.
func (q GetIntentStatusQuery) Validate() error {
	if strings.TrimSpace(q.IntentID) == "" {
		return errors.New("intent_id is required")
	}
	if strings.TrimSpace(q.Principal.ID) == "" {
		return fmt.Errorf("missing principal: %w", domain.ErrForbidden)
	}
	return nil
}

// IntentStatusResult is the point-in-time view of an intent. AmountCents is
// in minor units; conversion happens at the service boundary.
type IntentStatusResult struct {
	Status        domain.IntentStatus
	AmountCents   int64
	Currency      string
	OrderID       string
	PaymentMethod string
}

// GetIntentStatusHandler fetches the remote intent, resolves the owning order
// via intent metadata, and enforces ownership.
type GetIntentStatusHandler struct {
	repo     ports.OrderRepository
	provider ports.ProviderClient
}

// NewGetIntentStatusHandler constructs a GetIntentStatusHandler.
func NewGetIntentStatusHandler(repo ports.OrderRepository, provider ports.ProviderClient) *GetIntentStatusHandler {
	return &GetIntentStatusHandler{repo: repo, provider: provider}
}

func (h *GetIntentStatusHandler) Handle(ctx context.Context, query GetIntentStatusQuery) (*IntentStatusResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	intent, err := h.provider.GetIntent(ctx, query.IntentID)
	if err != nil {
		return nil, err
	}
	if intent.OrderID == "" {
		// No order correlation means nothing local to authorize against.
		return nil, fmt.Errorf("intent %s carries no order metadata: %w", intent.ID, domain.ErrNotFound)
	}

	order, err := h.repo.GetByID(ctx, intent.OrderID)
	if err != nil {
		return nil, err
	}
	if order.OwnerID != query.Principal.ID {
		return nil, fmt.Errorf("order %s does not belong to principal %s: %w", order.ID, query.Principal.ID, domain.ErrForbidden)
	}

	return &IntentStatusResult{
		Status:        intent.Status,
		AmountCents:   intent.AmountCents,
		Currency:      intent.Currency,
		OrderID:       order.ID,
		PaymentMethod: intent.PaymentMethod,
	}, nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
)

// ResolveIntentCommand requests payment credentials for an order on behalf of
// its owner.
type ResolveIntentCommand struct {
	OrderID   string
	Principal domain.Principal
}

// Validate ensures the command has valid parameters.
func (c ResolveIntentCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return errors.New("order_id is required")
	}
	if strings.TrimSpace(c.Principal.ID) == "" {
		return fmt.Errorf("missing principal: %w", domain.ErrForbidden)
	}
	return nil
}

// ResolveIntentResult carries the credentials the payer's client needs to
// complete checkout. Amount is in minor units; conversion to major units
// happens at the service boundary.
type ResolveIntentResult struct {
	ClientSecret string
	IntentID     string
	OrderID      string
	AmountCents  int64
}

// ResolveIntentHandler decides whether to reuse, refresh, or create a payment
// intent for an order.
type ResolveIntentHandler interface {
	Handle(ctx context.Context, cmd ResolveIntentCommand) (*ResolveIntentResult, error)
}

type resolveIntentHandler struct {
	repo     ports.OrderRepository
	provider ports.ProviderClient
	currency string
}

// NewResolveIntentHandler constructs the core resolve-intent handler.
func NewResolveIntentHandler(repo ports.OrderRepository, provider ports.ProviderClient, currency string) ResolveIntentHandler {
	return &resolveIntentHandler{
		repo:     repo,
		provider: provider,
		currency: currency,
	}
}

// Handle runs one read-decide-write cycle, retrying exactly once if a
// concurrent writer won the version race. On retry the fresh read observes
// the winner's intent, so a usable intent attached by the other request is
// returned rather than duplicated.
func (h *resolveIntentHandler) Handle(ctx context.Context, cmd ResolveIntentCommand) (*ResolveIntentResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result, err := h.attempt(ctx, cmd)
	if errors.Is(err, domain.ErrConflict) {
		result, err = h.attempt(ctx, cmd)
	}
	return result, err
}

func (h *resolveIntentHandler) attempt(ctx context.Context, cmd ResolveIntentCommand) (*ResolveIntentResult, error) {
	order, err := h.repo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if order.OwnerID != cmd.Principal.ID {
		return nil, fmt.Errorf("order %s does not belong to principal %s: %w", order.ID, cmd.Principal.ID, domain.ErrForbidden)
	}
	if err := order.Payable(); err != nil {
		return nil, err
	}

	if order.PaymentIntentID != "" {
		intent, err := h.provider.GetIntent(ctx, order.PaymentIntentID)
		if err != nil {
			return nil, err
		}
		if intent.AmountCents != order.TotalAmountCents {
			// Never silently corrected: a drifted amount means local and
			// remote state disagree about what is being charged.
			return nil, fmt.Errorf("intent %s amount %d does not match order %s total %d",
				intent.ID, intent.AmountCents, order.ID, order.TotalAmountCents)
		}
		if intent.Reusable() {
			return &ResolveIntentResult{
				ClientSecret: intent.ClientSecret,
				IntentID:     intent.ID,
				OrderID:      order.ID,
				AmountCents:  order.TotalAmountCents,
			}, nil
		}
		// Canceled, or succeeded without the webhook having landed yet:
		// abandon it and attach a fresh intent.
	}

	intent, err := h.provider.CreateIntent(ctx, order.TotalAmountCents, h.currency, ports.IntentMetadata{
		OrderID: order.ID,
		OwnerID: order.OwnerID,
	})
	if err != nil {
		return nil, err
	}

	updated, err := h.repo.UpdatePaymentFields(ctx, order.ID, order.Version, ports.PaymentFields{
		PaymentIntentID: &intent.ID,
	})
	if err != nil {
		return nil, err
	}

	return &ResolveIntentResult{
		ClientSecret: intent.ClientSecret,
		IntentID:     intent.ID,
		OrderID:      updated.ID,
		AmountCents:  updated.TotalAmountCents,
	}, nil
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
)

// IssueRefundCommand requests a refund for a paid order. A nil AmountCents
// means a full refund.
type IssueRefundCommand struct {
	OrderID     string
	AmountCents *int64
	Reason      string
	Principal   domain.Principal
}

// Validate ensures the command has valid parameters.
func (c IssueRefundCommand) Validate() error {
	if strings.TrimSpace(c.OrderID) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

// IssueRefundHandler validates refund requests against order and role state,
// then issues them against the remote intent.
type IssueRefundHandler interface {
	Handle(ctx context.Context, cmd IssueRefundCommand) (*domain.Refund, error)
}

type issueRefundHandler struct {
	repo     ports.OrderRepository
	provider ports.ProviderClient
}

// NewIssueRefundHandler constructs the core refund handler.
func NewIssueRefundHandler(repo ports.OrderRepository, provider ports.ProviderClient) IssueRefundHandler {
	return &issueRefundHandler{repo: repo, provider: provider}
}

func (h *issueRefundHandler) Handle(ctx context.Context, cmd IssueRefundCommand) (*domain.Refund, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}
	if !cmd.Principal.IsAdmin() {
		return nil, fmt.Errorf("refunds require the admin role: %w", domain.ErrForbidden)
	}

	order, err := h.repo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if err := order.Refundable(); err != nil {
		return nil, err
	}

	if cmd.AmountCents != nil {
		if *cmd.AmountCents <= 0 {
			return nil, fmt.Errorf("refund amount must be positive: %w", domain.ErrInvalidState)
		}
		if *cmd.AmountCents > order.TotalAmountCents {
			return nil, fmt.Errorf("refund amount %d exceeds order total %d: %w",
				*cmd.AmountCents, order.TotalAmountCents, domain.ErrInvalidState)
		}
	}

	refund, err := h.provider.CreateRefund(ctx, order.PaymentIntentID, cmd.AmountCents, cmd.Reason)
	if err != nil {
		return nil, err
	}

	// Partial refunds adjust the sale without reversing it; only a full
	// refund moves the payment to its terminal refunded state.
	full := cmd.AmountCents == nil || *cmd.AmountCents == order.TotalAmountCents
	if full {
		if err := h.markRefunded(ctx, order); err != nil {
			return nil, err
		}
	}

	return refund, nil
}

func (h *issueRefundHandler) markRefunded(ctx context.Context, order *domain.Order) error {
	refunded := domain.PaymentRefunded
	fields := ports.PaymentFields{PaymentStatus: &refunded}

	_, err := h.repo.UpdatePaymentFields(ctx, order.ID, order.Version, fields)
	if !errors.Is(err, domain.ErrConflict) {
		return err
	}

	fresh, err := h.repo.GetByID(ctx, order.ID)
	if err != nil {
		return err
	}
	_, err = h.repo.UpdatePaymentFields(ctx, fresh.ID, fresh.Version, fields)
	return err
}

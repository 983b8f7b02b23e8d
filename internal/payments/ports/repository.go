package ports

import (
	"context"

	"github.com/dejobratic/payflow/internal/payments/domain"
)

// PaymentFields carries the payment-related fields of an order that this
// service is allowed to write. Nil members are left untouched.
type PaymentFields struct {
	PaymentIntentID *string
	PaymentStatus   *domain.PaymentStatus
	OrderStatus     *domain.OrderStatus
}

// OrderRepository exposes the narrow persistence contract the payment core
// depends on. UpdatePaymentFields is a compare-and-swap on the order's
// version: if the row has moved past expectedVersion the call fails with
// domain.ErrConflict, and the caller re-runs its read-decide-write cycle.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdatePaymentFields(ctx context.Context, id string, expectedVersion int64, fields PaymentFields) (*domain.Order, error)
}

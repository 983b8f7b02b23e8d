package domain

import (
	"fmt"
	"time"
)

// OrderStatus captures the fulfillment lifecycle of an order.
type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
)

// PaymentStatus captures the payment lifecycle of an order, tracked
// independently of fulfillment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Order holds the payment-related view of an order. The order subsystem owns
// the record; this service only mutates payment fields, and only through a
// version-checked update.
type Order struct {
	ID string `json:"id"`
	// OwnerID identifies the purchasing principal. Immutable.
	OwnerID string `json:"owner_id"`
	// TotalAmountCents is the authoritative charge amount in minor units.
	// Immutable once any intent exists for the order.
	TotalAmountCents int64         `json:"total_amount_cents"`
	Status           OrderStatus   `json:"status"`
	PaymentStatus    PaymentStatus `json:"payment_status"`
	// PaymentIntentID references the remote intent. Empty means no intent has
	// been attached yet. Once set it is only ever replaced with a newer
	// intent id, never cleared.
	PaymentIntentID string    `json:"payment_intent_id,omitempty"`
	Version         int64     `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Payable reports whether the order may still collect a payment.
func (o Order) Payable() error {
	if o.PaymentStatus == PaymentCompleted {
		return fmt.Errorf("order %s is already paid: %w", o.ID, ErrInvalidState)
	}
	if o.Status == OrderCancelled {
		return fmt.Errorf("order %s is cancelled: %w", o.ID, ErrInvalidState)
	}
	return nil
}

// Refundable reports whether a refund may be issued against the order.
func (o Order) Refundable() error {
	if o.PaymentIntentID == "" {
		return fmt.Errorf("order %s has no payment intent: %w", o.ID, ErrInvalidState)
	}
	if o.PaymentStatus != PaymentCompleted {
		return fmt.Errorf("order %s payment status is %s: %w", o.ID, o.PaymentStatus, ErrInvalidState)
	}
	return nil
}

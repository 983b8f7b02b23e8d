package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, order domain.Order) error {
	query := `
		INSERT INTO orders (id, owner_id, total_amount_cents, status, payment_status, payment_intent_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		order.ID,
		order.OwnerID,
		order.TotalAmountCents,
		order.Status,
		order.PaymentStatus,
		order.PaymentIntentID,
		order.Version,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := `
		SELECT id, owner_id, total_amount_cents, status, payment_status, payment_intent_id, version, created_at, updated_at
		FROM orders
		WHERE id = $1
	`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	return order, nil
}

// UpdatePaymentFields performs the version-checked write that serializes all
// payment mutations for an order. The version predicate makes concurrent
// writers lose cleanly instead of clobbering each other, including writers in
// other process instances.
func (r *Repository) UpdatePaymentFields(ctx context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
	query := `
		UPDATE orders
		SET payment_intent_id = COALESCE($1, payment_intent_id),
		    payment_status    = COALESCE($2, payment_status),
		    status            = COALESCE($3, status),
		    version           = version + 1,
		    updated_at        = $4
		WHERE id = $5 AND version = $6
		RETURNING id, owner_id, total_amount_cents, status, payment_status, payment_intent_id, version, created_at, updated_at
	`

	var paymentStatus, orderStatus *string
	if fields.PaymentStatus != nil {
		s := string(*fields.PaymentStatus)
		paymentStatus = &s
	}
	if fields.OrderStatus != nil {
		s := string(*fields.OrderStatus)
		orderStatus = &s
	}

	order, err := scanOrder(r.pool.QueryRow(ctx, query,
		fields.PaymentIntentID,
		paymentStatus,
		orderStatus,
		time.Now().UTC(),
		id,
		expectedVersion,
	))
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("update payment fields: %w", err)
	}

	// No row matched: either the order is gone or the version moved.
	if _, err := r.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("order %s version %d: %w", id, expectedVersion, domain.ErrConflict)
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var order domain.Order
	err := row.Scan(
		&order.ID,
		&order.OwnerID,
		&order.TotalAmountCents,
		&order.Status,
		&order.PaymentStatus,
		&order.PaymentIntentID,
		&order.Version,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &order, nil
}

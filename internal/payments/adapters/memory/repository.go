package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dejobratic/payflow/internal/payments/domain"
	"github.com/dejobratic/payflow/internal/payments/ports"
)

// Repository provides an in-memory order store useful for local development
// and tests. It honors the same version-checked update contract as the
// postgres adapter.
type Repository struct {
	mu     sync.Mutex
	orders map[string]domain.Order
}

// NewRepository constructs a new in-memory repository.
func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order)}
}

// Create stores a new order instance.
func (r *Repository) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if order.Version == 0 {
		order.Version = 1
	}
	r.orders[order.ID] = order
	return nil
}

// GetByID fetches a single order by identifier.
func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copy := order
	return &copy, nil
}

// UpdatePaymentFields applies the payment fields if the stored version still
// matches, bumping the version on success.
func (r *Repository) UpdatePaymentFields(_ context.Context, id string, expectedVersion int64, fields ports.PaymentFields) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if order.Version != expectedVersion {
		return nil, domain.ErrConflict
	}

	if fields.PaymentIntentID != nil {
		order.PaymentIntentID = *fields.PaymentIntentID
	}
	if fields.PaymentStatus != nil {
		order.PaymentStatus = *fields.PaymentStatus
	}
	if fields.OrderStatus != nil {
		order.Status = *fields.OrderStatus
	}

	order.Version++
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order

	copy := order
	return &copy, nil
}

package domain

import "errors"

// Error taxonomy shared across the payment lifecycle. Callers classify with
// errors.Is; lower layers add context with fmt.Errorf("...: %w", err).
var (
	// ErrNotFound is returned when the referenced order does not exist.
	ErrNotFound = errors.New("order not found")

	// ErrForbidden is returned when the requesting principal may not act on
	// the order.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidState is returned on a business-rule violation, e.g. paying
	// an already-paid order or refunding an unpaid one.
	ErrInvalidState = errors.New("invalid payment state")

	// ErrInvalidSignature is returned when a webhook payload fails
	// authenticity verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrConflict is returned after losing a concurrent update race on the
	// order's payment fields.
	ErrConflict = errors.New("concurrent update conflict")

	// ErrUnavailable is returned when the remote provider or store timed out
	// or is unreachable. Safe for the caller to retry.
	ErrUnavailable = errors.New("payment provider unavailable")
)

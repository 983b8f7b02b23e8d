package domain

// IntentStatus mirrors the provider's payment intent states. Statuses other
// than the named ones pass through untouched.
type IntentStatus string

const (
	IntentRequiresPaymentMethod IntentStatus = "requires_payment_method"
	IntentRequiresConfirmation  IntentStatus = "requires_confirmation"
	IntentProcessing            IntentStatus = "processing"
	IntentSucceeded             IntentStatus = "succeeded"
	IntentCanceled              IntentStatus = "canceled"
)

// Intent is an immutable snapshot of a remote payment intent taken at read
// time. The provider owns the intent; nothing here is written back.
type Intent struct {
	ID          string
	AmountCents int64
	Currency    string
	Status      IntentStatus
	// ClientSecret is the single-use credential handed to the payer's client.
	ClientSecret  string
	PaymentMethod string
	// OrderID and OwnerID come from intent metadata set at creation time and
	// are the only correlation channel back to local state.
	OrderID string
	OwnerID string
}

// Reusable reports whether the intent can still collect a payment for a
// retried checkout attempt. Canceled intents are dead; succeeded intents
// belong to an earlier charge and must never be handed out again.
func (i Intent) Reusable() bool {
	switch i.Status {
	case IntentCanceled, IntentSucceeded:
		return false
	default:
		return true
	}
}

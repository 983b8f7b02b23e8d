package domain

// Refund is the provider's record of an issued refund. Created once, never
// mutated locally.
type Refund struct {
	ID          string
	IntentID    string
	AmountCents int64
	Status      string
	Reason      string
}

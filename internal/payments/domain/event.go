package domain

// EventType discriminates provider webhook events. Provider event names are
// mapped once, at the verification boundary; anything unmapped becomes
// EventUnrecognized.
type EventType string

const (
	EventIntentSucceeded EventType = "intent.succeeded"
	EventIntentFailed    EventType = "intent.payment_failed"
	EventUnrecognized    EventType = "unrecognized"
)

// WebhookEvent is a verified, decoded provider notification. ID is
// provider-assigned and serves as the deduplication key. OrderID and OwnerID
// are carried in intent metadata and may be empty for events that predate
// metadata tagging.
type WebhookEvent struct {
	ID       string
	Type     EventType
	IntentID string
	OrderID  string
	OwnerID  string
}

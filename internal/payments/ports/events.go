package ports

import "context"

// EventStore records which provider event ids have already been applied.
// MarkProcessed is first-writer-wins: it returns true exactly once per event
// id across all process instances, which makes redelivered webhooks a no-op.
type EventStore interface {
	MarkProcessed(ctx context.Context, eventID string) (bool, error)
}

package memory

import (
	"context"
	"sync"
)

// EventStore tracks processed webhook event ids in memory.
type EventStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewEventStore creates a new in-memory event store.
func NewEventStore() *EventStore {
	return &EventStore{seen: make(map[string]struct{})}
}

// MarkProcessed returns true the first time an event id is recorded.
func (s *EventStore) MarkProcessed(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[eventID]; ok {
		return false, nil
	}
	s.seen[eventID] = struct{}{}
	return true, nil
}

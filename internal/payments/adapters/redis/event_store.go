package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// EventStore records processed webhook event ids in Redis via SETNX. Keys
// expire after the retention window, which only needs to outlast the
// provider's redelivery horizon.
type EventStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewEventStore constructs a Redis-backed event store.
func NewEventStore(client *redis.Client, prefix string, ttl time.Duration) *EventStore {
	return &EventStore{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *EventStore) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	first, err := s.client.SetNX(ctx, s.prefix+eventID, "1", s.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return first, nil
}

package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dejobratic/payflow/internal/payments/ports"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type notification struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	Kind       string    `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier publishes order notifications to a Kafka topic. Fire-and-forget
// per the notifier contract: publish failures are logged here and never
// returned, so a broker outage cannot fail webhook acknowledgment.
type Notifier struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewNotifier constructs a Kafka-backed notifier.
func NewNotifier(brokers []string, topic string, logger *slog.Logger) *Notifier {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}

	return &Notifier{
		writer: writer,
		logger: logger,
	}
}

func (n *Notifier) Notify(ctx context.Context, orderID string, kind ports.NotificationKind) {
	msg := notification{
		ID:         uuid.NewString(),
		OrderID:    orderID,
		Kind:       string(kind),
		OccurredAt: time.Now().UTC(),
	}

	value, err := json.Marshal(msg)
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to encode notification",
			"order_id", orderID,
			"kind", string(kind),
			"error", err,
		)
		return
	}

	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(orderID),
		Value: value,
	})
	if err != nil {
		n.logger.ErrorContext(ctx, "failed to publish notification",
			"order_id", orderID,
			"kind", string(kind),
			"error", err,
		)
		return
	}

	n.logger.DebugContext(ctx, "notification published",
		"order_id", orderID,
		"kind", string(kind),
	)
}

// Close flushes and closes the underlying writer.
func (n *Notifier) Close() error {
	return n.writer.Close()
}

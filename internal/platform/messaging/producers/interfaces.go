package producers

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/campus-finance-ledger/internal/domain/outbox"
)

// EventPublisher publishes finance events to the primary topic
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
	Close() error
}

// DeadLetterPublisher publishes undeliverable events to the dead-letter topic
type DeadLetterPublisher interface {
	PublishToDLQ(ctx context.Context, key string, originalMessageValue []byte, reason string) error
	Close() error
}

// KafkaWriter wraps kafka.Writer methods for testing
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

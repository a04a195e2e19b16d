package producers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/campus-finance-ledger/internal/config"
	"github.com/campus-finance-ledger/internal/domain/outbox"
)

// FinanceEventProducer publishes outbox finance events to the events topic.
// Writes are synchronous with full acks: the poller must not mark a message
// PROCESSED until the broker has it.
type FinanceEventProducer struct {
	logger *slog.Logger
	writer KafkaWriter
	topic  string
}

// NewFinanceEventProducer creates the producer and ensures the topic exists
func NewFinanceEventProducer(ctx context.Context, logger *slog.Logger, cfg *config.KafkaConfig) (*FinanceEventProducer, error) {
	if cfg.EventsTopic == "" {
		return nil, fmt.Errorf("kafka events topic is not configured")
	}

	conn, err := kafka.Dial("tcp", cfg.Brokers)
	if err != nil {
		return nil, fmt.Errorf("failed to dial kafka for finance event producer: %w", err)
	}
	defer conn.Close()

	err = ensureTopicExists(conn, cfg.EventsTopic, cfg.NumPartitions, cfg.ReplicationFactor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure events topic %s exists: %w", cfg.EventsTopic, err)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers),
		Topic:        cfg.EventsTopic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &FinanceEventProducer{
		logger: logger,
		writer: writer,
		topic:  cfg.EventsTopic,
	}, nil
}

// PublishEvent writes one outbox message to the events topic, keyed by
// aggregate id so events for the same entity stay ordered.
func (p *FinanceEventProducer) PublishEvent(ctx context.Context, message *outbox.Message) error {
	msg := kafka.Message{
		Key:   []byte(message.AggregateID.String()),
		Value: message.Payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(message.EventType)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish finance event",
			"topic", p.topic,
			"outbox_id", message.ID,
			"event_type", string(message.EventType),
			"error", err,
		)
		return fmt.Errorf("failed to publish finance event to %s: %w", p.topic, err)
	}

	p.logger.Debug("Published finance event",
		"topic", p.topic,
		"outbox_id", message.ID,
		"event_type", string(message.EventType),
	)
	return nil
}

func (p *FinanceEventProducer) Close() error {
	p.logger.Info("Closing finance event producer", "topic", p.topic)
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer for topic %s: %w", p.topic, err)
	}
	return nil
}

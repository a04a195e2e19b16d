// Package outbox_poller drains the transactional outbox: pending finance
// events are published to the events topic, failures are retried, and events
// that exhaust their attempts are dead-lettered.
package outbox_poller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campus-finance-ledger/internal/config"
	"github.com/campus-finance-ledger/internal/domain/outbox"
	"github.com/campus-finance-ledger/internal/domain/shared"
	"github.com/campus-finance-ledger/internal/platform/messaging/producers"
)

// Poller processes pending outbox messages on a fixed interval
type Poller struct {
	outboxRepo       outbox.Repository
	publisher        producers.EventPublisher
	dlq              producers.DeadLetterPublisher
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	outboxRepo outbox.Repository,
	publisher producers.EventPublisher,
	dlq producers.DeadLetterPublisher,
	logger *slog.Logger,
) *Poller {
	return &Poller{
		outboxRepo:       outboxRepo,
		publisher:        publisher,
		dlq:              dlq,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}
}

// Start begins polling until the context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox poller",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox poller stopping")
			return
		case <-ticker.C:
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error processing pending outbox messages", "error", err)
			}
		}
	}
}

func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		return nil
	}

	p.logger.Debug("Fetched pending outbox messages", "count", len(messages))

	for _, msg := range messages {
		if err := p.publisher.PublishEvent(ctx, msg); err != nil {
			p.handlePublishFailure(ctx, msg, err)
			continue
		}

		if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusProcessed); err != nil {
			p.logger.Error("Published event but failed to mark outbox message PROCESSED",
				"outbox_id", msg.ID, "event_type", string(msg.EventType), "error", err)
			continue
		}
		p.logger.Info("Outbox message published",
			"outbox_id", msg.ID, "event_type", string(msg.EventType), "aggregate_id", msg.AggregateID.String())
	}
	return nil
}

func (p *Poller) handlePublishFailure(ctx context.Context, msg *outbox.Message, pubErr error) {
	p.logger.Error("Failed to publish outbox message",
		"outbox_id", msg.ID, "event_type", string(msg.EventType), "attempts", msg.Attempts, "error", pubErr)

	if err := p.outboxRepo.IncrementAttempts(ctx, msg.ID); err != nil {
		p.logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", err)
		return
	}

	if msg.Attempts+1 < p.maxRetryAttempts {
		return
	}

	p.logger.Warn("Max retry attempts reached for outbox message, dead-lettering",
		"outbox_id", msg.ID, "event_type", string(msg.EventType), "attempts_made", msg.Attempts+1)

	if p.dlq != nil {
		reason := fmt.Sprintf("publish failed after %d attempts: %v", msg.Attempts+1, pubErr)
		if err := p.dlq.PublishToDLQ(ctx, msg.AggregateID.String(), msg.Payload, reason); err != nil {
			p.logger.Error("Failed to dead-letter outbox message", "outbox_id", msg.ID, "error", err)
		}
	}

	if err := p.outboxRepo.UpdateStatus(ctx, msg.ID, shared.OutboxStatusFailedToPublish); err != nil {
		p.logger.Error("Failed to mark outbox message FAILED_TO_PUBLISH", "outbox_id", msg.ID, "error", err)
	}
}

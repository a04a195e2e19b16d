package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/campus-finance-ledger/internal/domain/shared"
)

// Message stores a finance event for reliable publishing. Appended in the
// same database transaction as the state change it announces; a poller
// publishes it to the messaging topic afterwards.
type Message struct {
	ID            int64               `json:"id"`
	EventType     shared.EventType    `json:"event_type"`
	AggregateID   uuid.UUID           `json:"aggregate_id"`
	Payload       json.RawMessage     `json:"payload"`
	Status        shared.OutboxStatus `json:"status"`
	Attempts      int                 `json:"attempts"`
	CreatedAt     time.Time           `json:"created_at"`
	LastAttemptAt *time.Time          `json:"last_attempt_at,omitempty"`
}

// NewMessage builds a pending message carrying the marshalled event payload
func NewMessage(eventType shared.EventType, aggregateID uuid.UUID, payload any) (*Message, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Message{
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     body,
		Status:      shared.OutboxStatusPending,
		Attempts:    0,
		CreatedAt:   time.Now(),
	}, nil
}

func (m *Message) IncrementAttempts() {
	m.Attempts++
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsProcessed() {
	m.Status = shared.OutboxStatusProcessed
	now := time.Now()
	m.LastAttemptAt = &now
}

func (m *Message) MarkAsFailed() {
	m.Status = shared.OutboxStatusFailedToPublish
	now := time.Now()
	m.LastAttemptAt = &now
}

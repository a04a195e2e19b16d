// Package audit defines the audit trail record every state-changing operation
// emits. Records are written inside the same database transaction as the
// change they describe, so the trail can never show a change that was rolled
// back.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Record is one audit trail row
type Record struct {
	ID         uuid.UUID       `json:"id"`
	UserID     uuid.UUID       `json:"user_id"`
	ActionType string          `json:"action_type"`
	TableName  string          `json:"table_name"`
	RecordID   uuid.UUID       `json:"record_id"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewRecord builds a record, marshalling the old/new value snapshots.
// oldValues may be nil for creations.
func NewRecord(userID uuid.UUID, actionType, tableName string, recordID uuid.UUID, oldValues, newValues any) (*Record, error) {
	rec := &Record{
		ID:         uuid.New(),
		UserID:     userID,
		ActionType: actionType,
		TableName:  tableName,
		RecordID:   recordID,
		CreatedAt:  time.Now(),
	}
	if oldValues != nil {
		b, err := json.Marshal(oldValues)
		if err != nil {
			return nil, err
		}
		rec.OldValues = b
	}
	b, err := json.Marshal(newValues)
	if err != nil {
		return nil, err
	}
	rec.NewValues = b
	return rec, nil
}

// Repository defines audit trail persistence
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	WithTx(tx pgx.Tx) Repository
}

package approval

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines approval workflow persistence operations
type Repository interface {
	CreateRequest(ctx context.Context, req *Request) error
	GetRequest(ctx context.Context, id uuid.UUID) (*Request, error)

	// LockRequest acquires a row lock so concurrent decisions on the same
	// request serialize
	LockRequest(ctx context.Context, id uuid.UUID) (*Request, error)

	// UpdateRequest persists status/current_level/final decision changes
	UpdateRequest(ctx context.Context, req *Request) error

	CreateLevels(ctx context.Context, levels []*Level) error
	GetLevel(ctx context.Context, requestID uuid.UUID, level int) (*Level, error)
	UpdateLevel(ctx context.Context, lvl *Level) error

	// ListLevels returns all levels of a request ordered ascending
	ListLevels(ctx context.Context, requestID uuid.UUID) ([]*Level, error)

	// ListQueue returns PENDING requests sitting at the given current level,
	// optionally filtered by type, newest first
	ListQueue(ctx context.Context, level int, requestType *RequestType) ([]*Request, error)

	// ListActiveConfigurations returns the active amount brackets for a type
	ListActiveConfigurations(ctx context.Context, requestType RequestType) ([]*Configuration, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrRequestNotFound indicates a missing approval request row
type ErrRequestNotFound struct {
	RequestID uuid.UUID
}

func (e ErrRequestNotFound) Error() string {
	return "approval request not found: " + e.RequestID.String()
}

// Is matches any ErrRequestNotFound when the target carries a nil ID
func (e ErrRequestNotFound) Is(target error) bool {
	t, ok := target.(ErrRequestNotFound)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID
}

// ErrLevelNotFound indicates a missing approval level row
type ErrLevelNotFound struct {
	RequestID uuid.UUID
	Level     int
}

func (e ErrLevelNotFound) Error() string {
	return "approval level not found for request " + e.RequestID.String()
}

// Is matches any ErrLevelNotFound when the target carries a nil ID
func (e ErrLevelNotFound) Is(target error) bool {
	t, ok := target.(ErrLevelNotFound)
	if !ok {
		return false
	}
	if t.RequestID == uuid.Nil {
		return true
	}
	return e.RequestID == t.RequestID && e.Level == t.Level
}

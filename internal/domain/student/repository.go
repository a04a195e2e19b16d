package student

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines student persistence operations used by the finance core.
// Student records themselves are owned by the registry subsystem; the core
// only reads them and adjusts the credit balance cache.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Student, error)

	// LockForUpdate acquires a row lock so concurrent payments for the same
	// student serialize on the credit balance
	LockForUpdate(ctx context.Context, id uuid.UUID) (*Student, error)

	// AdjustCreditBalance applies a signed delta to the credit balance cache
	AdjustCreditBalance(ctx context.Context, id uuid.UUID, delta int64) error

	WithTx(tx pgx.Tx) Repository
}

// ErrStudentNotFound indicates a missing student row
type ErrStudentNotFound struct {
	StudentID uuid.UUID
}

func (e ErrStudentNotFound) Error() string {
	return "student not found: " + e.StudentID.String()
}

// Is matches any ErrStudentNotFound when the target carries a nil ID
func (e ErrStudentNotFound) Is(target error) bool {
	t, ok := target.(ErrStudentNotFound)
	if !ok {
		return false
	}
	if t.StudentID == uuid.Nil {
		return true
	}
	return e.StudentID == t.StudentID
}

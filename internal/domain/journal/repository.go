package journal

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines journal entry persistence operations
type Repository interface {
	// CreateEntry stores the entry and all of its lines
	CreateEntry(ctx context.Context, entry *Entry) error

	// VoidBySourceTransaction marks all POSTED entries linked to the given
	// ledger transaction as VOIDED. Returns the number of entries voided.
	VoidBySourceTransaction(ctx context.Context, sourceTxnID uuid.UUID, voidedAt time.Time) (int64, error)

	GetAccountByCode(ctx context.Context, code string) (*Account, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrAccountNotFound indicates a missing GL account row
type ErrAccountNotFound struct {
	Code string
}

func (e ErrAccountNotFound) Error() string {
	return "gl account not found: " + e.Code
}

package invoice

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines fee invoice persistence operations
type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// LockByID acquires a row lock on a single invoice
	LockByID(ctx context.Context, id uuid.UUID) (*Invoice, error)

	// ListSettleableByStudent returns the student's OUTSTANDING and
	// PARTIALLY_PAID invoices ordered by due date ascending
	ListSettleableByStudent(ctx context.Context, studentID uuid.UUID) ([]*Invoice, error)

	// LockSettleableByStudent is ListSettleableByStudent with row locks, for
	// use inside an allocating transaction
	LockSettleableByStudent(ctx context.Context, studentID uuid.UUID) ([]*Invoice, error)

	// UpdateSettlement persists a recomputed amount_paid/status pair
	UpdateSettlement(ctx context.Context, inv *Invoice) error

	// FindRecentDuplicate returns an invoice identical in student, term,
	// dates, total and creator recorded within the given window, or nil.
	// Guards against double-submit from the UI.
	FindRecentDuplicate(ctx context.Context, inv *Invoice, window time.Duration) (*Invoice, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrInvoiceNotFound indicates a missing invoice row
type ErrInvoiceNotFound struct {
	InvoiceID uuid.UUID
}

func (e ErrInvoiceNotFound) Error() string {
	return "invoice not found: " + e.InvoiceID.String()
}

// Is matches any ErrInvoiceNotFound when the target carries a nil ID
func (e ErrInvoiceNotFound) Is(target error) bool {
	t, ok := target.(ErrInvoiceNotFound)
	if !ok {
		return false
	}
	if t.InvoiceID == uuid.Nil {
		return true
	}
	return e.InvoiceID == t.InvoiceID
}

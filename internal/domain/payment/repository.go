package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/shared"
)

// Repository defines payment and allocation persistence operations
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// LockByID acquires a row lock so concurrent voids of the same payment
	// serialize
	LockByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindRecentDuplicate returns an ACTIVE payment with the same student,
	// amount, method and reference recorded within the given window, or nil
	FindRecentDuplicate(ctx context.Context, studentID uuid.UUID, amount int64, method shared.PaymentMethod, reference string, window time.Duration) (*Payment, error)

	// MarkVoided transitions an ACTIVE payment to VOIDED with its metadata.
	// Fails with ErrPaymentAlreadyVoided if the row is not ACTIVE.
	MarkVoided(ctx context.Context, id uuid.UUID, reason string, voidedBy uuid.UUID, voidedAt time.Time) error

	CreateAllocation(ctx context.Context, a *Allocation) error
	ListAllocations(ctx context.Context, paymentID uuid.UUID) ([]*Allocation, error)

	CreateVoidAudit(ctx context.Context, va *VoidAudit) error

	WithTx(tx pgx.Tx) Repository
}

// ErrPaymentNotFound indicates a missing payment row
type ErrPaymentNotFound struct {
	PaymentID uuid.UUID
}

func (e ErrPaymentNotFound) Error() string {
	return "payment not found: " + e.PaymentID.String()
}

// Is matches any ErrPaymentNotFound when the target carries a nil ID
func (e ErrPaymentNotFound) Is(target error) bool {
	t, ok := target.(ErrPaymentNotFound)
	if !ok {
		return false
	}
	if t.PaymentID == uuid.Nil {
		return true
	}
	return e.PaymentID == t.PaymentID
}

// ErrPaymentAlreadyVoided indicates a void attempt on a non-ACTIVE payment
type ErrPaymentAlreadyVoided struct {
	PaymentID uuid.UUID
}

func (e ErrPaymentAlreadyVoided) Error() string {
	return "payment already voided: " + e.PaymentID.String()
}

// Is matches any ErrPaymentAlreadyVoided when the target carries a nil ID
func (e ErrPaymentAlreadyVoided) Is(target error) bool {
	t, ok := target.(ErrPaymentAlreadyVoided)
	if !ok {
		return false
	}
	if t.PaymentID == uuid.Nil {
		return true
	}
	return e.PaymentID == t.PaymentID
}

package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines credit transaction persistence operations
type Repository interface {
	Create(ctx context.Context, t *Transaction) error

	// ListBySourcePayment returns credit transactions spawned by a payment
	// (the overpayment remainder), used when voiding that payment
	ListBySourcePayment(ctx context.Context, paymentID uuid.UUID) ([]*Transaction, error)

	WithTx(tx pgx.Tx) Repository
}

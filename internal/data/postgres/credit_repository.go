package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/credit"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// CreditRepository implements the credit.Repository interface for PostgreSQL
type CreditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewCreditRepository creates a new PostgreSQL credit transaction repository
func NewCreditRepository(logger *slog.Logger, db *persistence.PostgresDB) credit.Repository {
	return &CreditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *CreditRepository) WithTx(tx pgx.Tx) credit.Repository {
	return &CreditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new credit transaction
func (r *CreditRepository) Create(ctx context.Context, t *credit.Transaction) error {
	query := `
		INSERT INTO credit_transactions (id, student_id, type, amount, source_payment_id, invoice_id, description, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.querier.Exec(ctx, query,
		t.ID,
		t.StudentID,
		t.Type,
		t.Amount,
		t.SourcePaymentID,
		t.InvoiceID,
		t.Description,
		t.CreatedBy,
		t.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create credit transaction", "student_id", t.StudentID.String(), "error", err)
		return fmt.Errorf("failed to create credit transaction: %w", err)
	}

	return nil
}

// ListBySourcePayment returns credit transactions spawned by a payment
func (r *CreditRepository) ListBySourcePayment(ctx context.Context, paymentID uuid.UUID) ([]*credit.Transaction, error) {
	query := `
		SELECT id, student_id, type, amount, source_payment_id, invoice_id, description, created_by, created_at
		FROM credit_transactions
		WHERE source_payment_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, paymentID)
	if err != nil {
		r.logger.Error("Failed to list credit transactions by payment", "payment_id", paymentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list credit transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*credit.Transaction
	for rows.Next() {
		var t credit.Transaction
		err := rows.Scan(
			&t.ID,
			&t.StudentID,
			&t.Type,
			&t.Amount,
			&t.SourcePaymentID,
			&t.InvoiceID,
			&t.Description,
			&t.CreatedBy,
			&t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan credit transaction row: %w", err)
		}
		transactions = append(transactions, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credit transaction rows: %w", err)
	}

	return transactions, nil
}

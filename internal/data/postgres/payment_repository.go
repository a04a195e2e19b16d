package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/payment"
	"github.com/campus-finance-ledger/internal/domain/shared"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// PaymentRepository implements the payment.Repository interface for PostgreSQL
type PaymentRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewPaymentRepository creates a new PostgreSQL payment repository
func NewPaymentRepository(logger *slog.Logger, db *persistence.PostgresDB) payment.Repository {
	return &PaymentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *PaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return &PaymentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const paymentColumns = `id, student_id, type, amount, method, transaction_date, reference, transaction_ref, receipt_number, status, void_reason, voided_by, voided_at, recorded_by, created_at`

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	var voidReason *string
	err := row.Scan(
		&p.ID,
		&p.StudentID,
		&p.Type,
		&p.Amount,
		&p.Method,
		&p.TransactionDate,
		&p.Reference,
		&p.TransactionRef,
		&p.ReceiptNumber,
		&p.Status,
		&voidReason,
		&p.VoidedBy,
		&p.VoidedAt,
		&p.RecordedBy,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if voidReason != nil {
		p.VoidReason = *voidReason
	}
	return &p, nil
}

// Create stores a new ledger transaction row
func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	query := `
		INSERT INTO ledger_transactions (id, student_id, type, amount, method, transaction_date, reference, transaction_ref, receipt_number, status, recorded_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		p.ID,
		p.StudentID,
		p.Type,
		p.Amount,
		p.Method,
		p.TransactionDate,
		p.Reference,
		p.TransactionRef,
		p.ReceiptNumber,
		p.Status,
		p.RecordedBy,
		p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create payment", "id", p.ID.String(), "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

// GetByID retrieves a payment by id
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM ledger_transactions
		WHERE id = $1
	`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{PaymentID: id}
		}
		r.logger.Error("Failed to get payment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return p, nil
}

// LockByID obtains a row lock on the payment. Must be used within a
// transaction.
func (r *PaymentRepository) LockByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM ledger_transactions
		WHERE id = $1
		FOR UPDATE
	`

	p, err := scanPayment(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound{PaymentID: id}
		}
		r.logger.Error("Failed to lock payment", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}

	return p, nil
}

// FindRecentDuplicate returns an ACTIVE payment with the same student,
// amount, method and reference recorded within the window, or nil. Locks the
// matched row so two identical submissions cannot both pass the check.
func (r *PaymentRepository) FindRecentDuplicate(ctx context.Context, studentID uuid.UUID, amount int64, method shared.PaymentMethod, reference string, window time.Duration) (*payment.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM ledger_transactions
		WHERE student_id = $1
		  AND amount = $2
		  AND method = $3
		  AND reference = $4
		  AND status = $5
		  AND created_at > $6
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`

	p, err := scanPayment(r.querier.QueryRow(ctx, query,
		studentID,
		amount,
		method,
		reference,
		shared.PaymentStatusActive,
		time.Now().Add(-window),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to check for duplicate payment", "student_id", studentID.String(), "error", err)
		return nil, fmt.Errorf("failed to check for duplicate payment: %w", err)
	}

	return p, nil
}

// MarkVoided transitions an ACTIVE payment to VOIDED. The status guard in the
// WHERE clause makes double-voiding fail even under concurrent attempts.
func (r *PaymentRepository) MarkVoided(ctx context.Context, id uuid.UUID, reason string, voidedBy uuid.UUID, voidedAt time.Time) error {
	query := `
		UPDATE ledger_transactions
		SET status = $1, void_reason = $2, voided_by = $3, voided_at = $4
		WHERE id = $5 AND status = $6
	`

	result, err := r.querier.Exec(ctx, query,
		shared.PaymentStatusVoided,
		reason,
		voidedBy,
		voidedAt,
		id,
		shared.PaymentStatusActive,
	)
	if err != nil {
		r.logger.Error("Failed to mark payment voided", "id", id.String(), "error", err)
		return fmt.Errorf("failed to mark payment voided: %w", err)
	}

	if result.RowsAffected() == 0 {
		return payment.ErrPaymentAlreadyVoided{PaymentID: id}
	}

	return nil
}

// CreateAllocation stores a payment-to-invoice allocation row
func (r *PaymentRepository) CreateAllocation(ctx context.Context, a *payment.Allocation) error {
	query := `
		INSERT INTO payment_allocations (id, payment_id, invoice_id, applied_amount, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.querier.Exec(ctx, query, a.ID, a.PaymentID, a.InvoiceID, a.AppliedAmount, a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create payment allocation", "payment_id", a.PaymentID.String(), "error", err)
		return fmt.Errorf("failed to create payment allocation: %w", err)
	}

	return nil
}

// ListAllocations returns a payment's allocations in creation order
func (r *PaymentRepository) ListAllocations(ctx context.Context, paymentID uuid.UUID) ([]*payment.Allocation, error) {
	query := `
		SELECT id, payment_id, invoice_id, applied_amount, created_at
		FROM payment_allocations
		WHERE payment_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, paymentID)
	if err != nil {
		r.logger.Error("Failed to list payment allocations", "payment_id", paymentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list payment allocations: %w", err)
	}
	defer rows.Close()

	var allocations []*payment.Allocation
	for rows.Next() {
		var a payment.Allocation
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.InvoiceID, &a.AppliedAmount, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan allocation row: %w", err)
		}
		allocations = append(allocations, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read allocation rows: %w", err)
	}

	return allocations, nil
}

// CreateVoidAudit stores the pre-void snapshot for forensic recovery
func (r *PaymentRepository) CreateVoidAudit(ctx context.Context, va *payment.VoidAudit) error {
	query := `
		INSERT INTO void_audits (id, payment_id, snapshot, reason, voided_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.querier.Exec(ctx, query, va.ID, va.PaymentID, va.Snapshot, va.Reason, va.VoidedBy, va.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create void audit", "payment_id", va.PaymentID.String(), "error", err)
		return fmt.Errorf("failed to create void audit: %w", err)
	}

	return nil
}

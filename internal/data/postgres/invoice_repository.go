package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/invoice"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// InvoiceRepository implements the invoice.Repository interface for PostgreSQL
type InvoiceRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewInvoiceRepository creates a new PostgreSQL invoice repository
func NewInvoiceRepository(logger *slog.Logger, db *persistence.PostgresDB) invoice.Repository {
	return &InvoiceRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *InvoiceRepository) WithTx(tx pgx.Tx) invoice.Repository {
	return &InvoiceRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const invoiceColumns = `id, student_id, term, total_amount, amount_paid, invoice_date, due_date, status, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (*invoice.Invoice, error) {
	var inv invoice.Invoice
	err := row.Scan(
		&inv.ID,
		&inv.StudentID,
		&inv.Term,
		&inv.TotalAmount,
		&inv.AmountPaid,
		&inv.InvoiceDate,
		&inv.DueDate,
		&inv.Status,
		&inv.CreatedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Create stores a new fee invoice
func (r *InvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		INSERT INTO fee_invoices (id, student_id, term, total_amount, amount_paid, invoice_date, due_date, status, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		inv.ID,
		inv.StudentID,
		inv.Term,
		inv.TotalAmount,
		inv.AmountPaid,
		inv.InvoiceDate,
		inv.DueDate,
		inv.Status,
		inv.CreatedBy,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create invoice", "error", err)
		return fmt.Errorf("failed to create invoice: %w", err)
	}

	return nil
}

// GetByID retrieves an invoice by id
func (r *InvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM fee_invoices
		WHERE id = $1
	`

	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound{InvoiceID: id}
		}
		r.logger.Error("Failed to get invoice", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return inv, nil
}

// LockByID obtains a row lock on a single invoice
func (r *InvoiceRepository) LockByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM fee_invoices
		WHERE id = $1
		FOR UPDATE
	`

	inv, err := scanInvoice(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, invoice.ErrInvoiceNotFound{InvoiceID: id}
		}
		r.logger.Error("Failed to lock invoice", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock invoice: %w", err)
	}

	return inv, nil
}

func (r *InvoiceRepository) listSettleable(ctx context.Context, studentID uuid.UUID, forUpdate bool) ([]*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM fee_invoices
		WHERE student_id = $1 AND status IN ('OUTSTANDING', 'PARTIALLY_PAID')
		ORDER BY due_date ASC, created_at ASC
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	rows, err := r.querier.Query(ctx, query, studentID)
	if err != nil {
		r.logger.Error("Failed to list settleable invoices", "student_id", studentID.String(), "error", err)
		return nil, fmt.Errorf("failed to list settleable invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice row: %w", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoice rows: %w", err)
	}

	return invoices, nil
}

// ListSettleableByStudent returns the student's unsettled invoices ordered by
// due date ascending
func (r *InvoiceRepository) ListSettleableByStudent(ctx context.Context, studentID uuid.UUID) ([]*invoice.Invoice, error) {
	return r.listSettleable(ctx, studentID, false)
}

// LockSettleableByStudent returns the student's unsettled invoices with row
// locks held. Must be used within a transaction.
func (r *InvoiceRepository) LockSettleableByStudent(ctx context.Context, studentID uuid.UUID) ([]*invoice.Invoice, error) {
	return r.listSettleable(ctx, studentID, true)
}

// UpdateSettlement persists a recomputed amount_paid/status pair
func (r *InvoiceRepository) UpdateSettlement(ctx context.Context, inv *invoice.Invoice) error {
	query := `
		UPDATE fee_invoices
		SET amount_paid = $1, status = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.querier.Exec(ctx, query, inv.AmountPaid, inv.Status, inv.ID)
	if err != nil {
		r.logger.Error("Failed to update invoice settlement", "id", inv.ID.String(), "error", err)
		return fmt.Errorf("failed to update invoice settlement: %w", err)
	}

	if result.RowsAffected() == 0 {
		return invoice.ErrInvoiceNotFound{InvoiceID: inv.ID}
	}

	return nil
}

// FindRecentDuplicate returns an invoice identical in student, term, dates,
// total and creator recorded within the window, or nil. Locks the matched row
// so two identical submissions cannot both pass the check.
func (r *InvoiceRepository) FindRecentDuplicate(ctx context.Context, inv *invoice.Invoice, window time.Duration) (*invoice.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM fee_invoices
		WHERE student_id = $1
		  AND term = $2
		  AND invoice_date = $3
		  AND due_date = $4
		  AND total_amount = $5
		  AND created_by = $6
		  AND created_at > $7
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`

	existing, err := scanInvoice(r.querier.QueryRow(ctx, query,
		inv.StudentID,
		inv.Term,
		inv.InvoiceDate,
		inv.DueDate,
		inv.TotalAmount,
		inv.CreatedBy,
		time.Now().Add(-window),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to check for duplicate invoice", "student_id", inv.StudentID.String(), "error", err)
		return nil, fmt.Errorf("failed to check for duplicate invoice: %w", err)
	}

	return existing, nil
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campus-finance-ledger/internal/domain/reconciliation"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// ReconciliationRepository implements the reconciliation.Source interface for
// PostgreSQL. All queries are read-only aggregates over the financial tables;
// the battery tolerates rows changing between individual checks, so no
// snapshot transaction is taken.
type ReconciliationRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewReconciliationRepository creates a new PostgreSQL reconciliation source
func NewReconciliationRepository(logger *slog.Logger, db *persistence.PostgresDB) reconciliation.Source {
	return &ReconciliationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// StudentCreditFigures derives each student's credit balance from transaction
// history and pairs it with the stored balance. Students with no history and
// a zero stored balance are skipped.
func (r *ReconciliationRepository) StudentCreditFigures(ctx context.Context) ([]reconciliation.CreditFigure, error) {
	query := `
		SELECT s.id, s.full_name, s.credit_balance,
		       COALESCE(SUM(CASE WHEN ct.type = 'CREDIT_RECEIVED' THEN ct.amount ELSE -ct.amount END), 0) AS derived
		FROM students s
		LEFT JOIN credit_transactions ct ON ct.student_id = s.id
		WHERE s.active = TRUE
		GROUP BY s.id, s.full_name, s.credit_balance
		HAVING s.credit_balance <> 0 OR COUNT(ct.id) > 0
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query student credit figures", "error", err)
		return nil, fmt.Errorf("failed to query student credit figures: %w", err)
	}
	defer rows.Close()

	var figures []reconciliation.CreditFigure
	for rows.Next() {
		var f reconciliation.CreditFigure
		if err := rows.Scan(&f.StudentID, &f.FullName, &f.Stored, &f.Derived); err != nil {
			return nil, fmt.Errorf("failed to scan credit figure: %w", err)
		}
		figures = append(figures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read credit figures: %w", err)
	}

	return figures, nil
}

// TrialBalance sums debit and credit legs across posted lines of non-voided
// journal entries.
func (r *ReconciliationRepository) TrialBalance(ctx context.Context) (int64, int64, error) {
	query := `
		SELECT COALESCE(SUM(l.debit_amount), 0), COALESCE(SUM(l.credit_amount), 0)
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.status = 'POSTED'
	`

	var debits, credits int64
	if err := r.querier.QueryRow(ctx, query).Scan(&debits, &credits); err != nil {
		r.logger.Error("Failed to query trial balance", "error", err)
		return 0, 0, fmt.Errorf("failed to query trial balance: %w", err)
	}

	return debits, credits, nil
}

// CountOrphanedPayments counts fee payment rows whose student id does not
// resolve to an existing student. Foreign keys make this structurally rare,
// but imported historical data has produced such rows before.
func (r *ReconciliationRepository) CountOrphanedPayments(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM ledger_transactions lt
		LEFT JOIN students s ON s.id = lt.student_id
		WHERE lt.type = 'FEE_PAYMENT'
		  AND s.id IS NULL
	`

	var count int64
	if err := r.querier.QueryRow(ctx, query).Scan(&count); err != nil {
		r.logger.Error("Failed to count orphaned payments", "error", err)
		return 0, fmt.Errorf("failed to count orphaned payments: %w", err)
	}

	return count, nil
}

// InvoiceSettlementFigures returns invoices whose recorded amount_paid
// differs from the allocation sum over non-voided payments, or from that sum
// plus applied credits. Tolerance judgement belongs to the caller.
func (r *ReconciliationRepository) InvoiceSettlementFigures(ctx context.Context) ([]reconciliation.InvoiceFigure, error) {
	query := `
		SELECT i.id, i.status, i.total_amount, i.amount_paid,
		       COALESCE((SELECT SUM(pa.applied_amount)
		                 FROM payment_allocations pa
		                 JOIN ledger_transactions lt ON lt.id = pa.payment_id
		                 WHERE pa.invoice_id = i.id AND lt.status = 'ACTIVE'), 0) AS allocated,
		       COALESCE((SELECT SUM(ct.amount)
		                 FROM credit_transactions ct
		                 WHERE ct.invoice_id = i.id AND ct.type = 'CREDIT_APPLIED'), 0) AS credit_applied
		FROM fee_invoices i
		WHERE i.status <> 'CANCELLED'
	`

	figures, err := r.queryInvoiceFigures(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query invoice settlement figures", "error", err)
		return nil, err
	}

	var mismatched []reconciliation.InvoiceFigure
	for _, f := range figures {
		if f.AmountPaid != f.AllocatedTotal || f.AmountPaid != f.AllocatedTotal+f.CreditApplied {
			mismatched = append(mismatched, f)
		}
	}
	return mismatched, nil
}

// AbnormalAccountFigures returns ASSET and LIABILITY accounts whose net
// balance sits more than 100 minor units on the wrong side of their normal
// balance. A heuristic, not a hard invariant.
func (r *ReconciliationRepository) AbnormalAccountFigures(ctx context.Context) ([]reconciliation.AccountFigure, error) {
	query := `
		SELECT a.code, a.name, a.type,
		       CASE WHEN a.type = 'ASSET'
		            THEN COALESCE(SUM(l.debit_amount - l.credit_amount), 0)
		            ELSE COALESCE(SUM(l.credit_amount - l.debit_amount), 0)
		       END AS net_balance
		FROM gl_accounts a
		LEFT JOIN (
			SELECT jl.account_id, jl.debit_amount, jl.credit_amount
			FROM journal_entry_lines jl
			JOIN journal_entries je ON je.id = jl.entry_id
			WHERE je.status = 'POSTED'
		) l ON l.account_id = a.id
		WHERE a.type IN ('ASSET', 'LIABILITY')
		GROUP BY a.code, a.name, a.type
		HAVING CASE WHEN a.type = 'ASSET'
		            THEN COALESCE(SUM(l.debit_amount - l.credit_amount), 0)
		            ELSE COALESCE(SUM(l.credit_amount - l.debit_amount), 0)
		       END < -100
	`

	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query abnormal account figures", "error", err)
		return nil, fmt.Errorf("failed to query abnormal account figures: %w", err)
	}
	defer rows.Close()

	var figures []reconciliation.AccountFigure
	for rows.Next() {
		var f reconciliation.AccountFigure
		if err := rows.Scan(&f.Code, &f.Name, &f.AccountType, &f.NetBalance); err != nil {
			return nil, fmt.Errorf("failed to scan account figure: %w", err)
		}
		figures = append(figures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read account figures: %w", err)
	}

	return figures, nil
}

// UnlinkedPayments returns transaction references of active payments recorded
// at or after since with no journal entry bearing their transaction id.
func (r *ReconciliationRepository) UnlinkedPayments(ctx context.Context, since time.Time) ([]string, error) {
	query := `
		SELECT lt.transaction_ref
		FROM ledger_transactions lt
		WHERE lt.type = 'FEE_PAYMENT'
		  AND lt.status = 'ACTIVE'
		  AND lt.created_at >= $1
		  AND NOT EXISTS (SELECT 1 FROM journal_entries e WHERE e.source_ledger_txn_id = lt.id)
		ORDER BY lt.created_at ASC
	`

	rows, err := r.querier.Query(ctx, query, since)
	if err != nil {
		r.logger.Error("Failed to query unlinked payments", "error", err)
		return nil, fmt.Errorf("failed to query unlinked payments: %w", err)
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("failed to scan transaction ref: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transaction refs: %w", err)
	}

	return refs, nil
}

func (r *ReconciliationRepository) queryInvoiceFigures(ctx context.Context, query string) ([]reconciliation.InvoiceFigure, error) {
	rows, err := r.querier.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice figures: %w", err)
	}
	defer rows.Close()

	var figures []reconciliation.InvoiceFigure
	for rows.Next() {
		var f reconciliation.InvoiceFigure
		if err := rows.Scan(&f.InvoiceID, &f.Status, &f.TotalAmount, &f.AmountPaid, &f.AllocatedTotal, &f.CreditApplied); err != nil {
			return nil, fmt.Errorf("failed to scan invoice figure: %w", err)
		}
		figures = append(figures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read invoice figures: %w", err)
	}

	return figures, nil
}

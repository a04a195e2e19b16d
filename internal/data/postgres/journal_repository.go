package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/journal"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// JournalRepository implements the journal.Repository interface for PostgreSQL
type JournalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewJournalRepository creates a new PostgreSQL journal repository
func NewJournalRepository(logger *slog.Logger, db *persistence.PostgresDB) journal.Repository {
	return &JournalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *JournalRepository) WithTx(tx pgx.Tx) journal.Repository {
	return &JournalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// CreateEntry stores the entry header and all of its lines. Lines reference
// GL accounts by code; the insert resolves codes to ids so an unknown account
// fails the whole posting.
func (r *JournalRepository) CreateEntry(ctx context.Context, entry *journal.Entry) error {
	headerQuery := `
		INSERT INTO journal_entries (id, entry_date, description, status, source_ledger_txn_id, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.querier.Exec(ctx, headerQuery,
		entry.ID,
		entry.EntryDate,
		entry.Description,
		entry.Status,
		entry.SourceLedgerTxnID,
		entry.CreatedBy,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create journal entry", "id", entry.ID.String(), "error", err)
		return fmt.Errorf("failed to create journal entry: %w", err)
	}

	lineQuery := `
		INSERT INTO journal_entry_lines (id, entry_id, account_id, debit_amount, credit_amount)
		SELECT $1, $2, a.id, $4, $5
		FROM gl_accounts a
		WHERE a.code = $3
	`

	for _, line := range entry.Lines {
		result, err := r.querier.Exec(ctx, lineQuery,
			line.ID,
			entry.ID,
			line.AccountCode,
			line.DebitAmount,
			line.CreditAmount,
		)
		if err != nil {
			r.logger.Error("Failed to create journal entry line", "entry_id", entry.ID.String(), "account", line.AccountCode, "error", err)
			return fmt.Errorf("failed to create journal entry line: %w", err)
		}
		if result.RowsAffected() == 0 {
			return journal.ErrAccountNotFound{Code: line.AccountCode}
		}
	}

	return nil
}

// VoidBySourceTransaction marks all POSTED entries linked to the given ledger
// transaction as VOIDED
func (r *JournalRepository) VoidBySourceTransaction(ctx context.Context, sourceTxnID uuid.UUID, voidedAt time.Time) (int64, error) {
	query := `
		UPDATE journal_entries
		SET status = 'VOIDED', voided_at = $1
		WHERE source_ledger_txn_id = $2 AND status = 'POSTED'
	`

	result, err := r.querier.Exec(ctx, query, voidedAt, sourceTxnID)
	if err != nil {
		r.logger.Error("Failed to void journal entries", "source_txn_id", sourceTxnID.String(), "error", err)
		return 0, fmt.Errorf("failed to void journal entries: %w", err)
	}

	return result.RowsAffected(), nil
}

// GetAccountByCode retrieves a GL account by its code
func (r *JournalRepository) GetAccountByCode(ctx context.Context, code string) (*journal.Account, error) {
	query := `
		SELECT id, code, name, type, active, created_at
		FROM gl_accounts
		WHERE code = $1
	`

	var acc journal.Account
	err := r.querier.QueryRow(ctx, query, code).Scan(
		&acc.ID,
		&acc.Code,
		&acc.Name,
		&acc.Type,
		&acc.Active,
		&acc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, journal.ErrAccountNotFound{Code: code}
		}
		r.logger.Error("Failed to get gl account", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get gl account: %w", err)
	}

	return &acc, nil
}

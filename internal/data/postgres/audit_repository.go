package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/audit"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// AuditRepository implements the audit.Repository interface for PostgreSQL.
// Records are written with WithTx inside the transaction of the change they
// describe, so a rolled-back operation leaves no trail.
type AuditRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewAuditRepository creates a new PostgreSQL audit repository
func NewAuditRepository(logger *slog.Logger, db *persistence.PostgresDB) audit.Repository {
	return &AuditRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *AuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return &AuditRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores one audit trail row
func (r *AuditRepository) Create(ctx context.Context, rec *audit.Record) error {
	query := `
		INSERT INTO audit_log (id, user_id, action_type, table_name, record_id, old_values, new_values, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.querier.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.ActionType,
		rec.TableName,
		rec.RecordID,
		rec.OldValues,
		rec.NewValues,
		rec.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create audit record", "action", rec.ActionType, "error", err)
		return fmt.Errorf("failed to create audit record: %w", err)
	}

	return nil
}

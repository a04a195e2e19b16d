package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/approval"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// ApprovalRepository implements the approval.Repository interface for PostgreSQL
type ApprovalRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewApprovalRepository creates a new PostgreSQL approval repository
func NewApprovalRepository(logger *slog.Logger, db *persistence.PostgresDB) approval.Repository {
	return &ApprovalRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *ApprovalRepository) WithTx(tx pgx.Tx) approval.Repository {
	return &ApprovalRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const requestColumns = `id, request_type, entity_kind, entity_id, amount, status, current_level, max_level, requested_by, final_decision, completed_at, created_at, updated_at`

func scanRequest(row pgx.Row) (*approval.Request, error) {
	var req approval.Request
	var finalDecision *string
	err := row.Scan(
		&req.ID,
		&req.RequestType,
		&req.Entity.Kind,
		&req.Entity.ID,
		&req.Amount,
		&req.Status,
		&req.CurrentLevel,
		&req.MaxLevel,
		&req.RequestedBy,
		&finalDecision,
		&req.CompletedAt,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if finalDecision != nil {
		req.FinalDecision = approval.Decision(*finalDecision)
	}
	return &req, nil
}

// CreateRequest stores a new approval request
func (r *ApprovalRepository) CreateRequest(ctx context.Context, req *approval.Request) error {
	query := `
		INSERT INTO approval_requests (id, request_type, entity_kind, entity_id, amount, status, current_level, max_level, requested_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.querier.Exec(ctx, query,
		req.ID,
		req.RequestType,
		req.Entity.Kind,
		req.Entity.ID,
		req.Amount,
		req.Status,
		req.CurrentLevel,
		req.MaxLevel,
		req.RequestedBy,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create approval request", "id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to create approval request: %w", err)
	}

	return nil
}

// GetRequest retrieves an approval request by id
func (r *ApprovalRepository) GetRequest(ctx context.Context, id uuid.UUID) (*approval.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE id = $1
	`

	req, err := scanRequest(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approval.ErrRequestNotFound{RequestID: id}
		}
		r.logger.Error("Failed to get approval request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get approval request: %w", err)
	}

	return req, nil
}

// LockRequest obtains a row lock on the request. Must be used within a
// transaction.
func (r *ApprovalRepository) LockRequest(ctx context.Context, id uuid.UUID) (*approval.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE id = $1
		FOR UPDATE
	`

	req, err := scanRequest(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approval.ErrRequestNotFound{RequestID: id}
		}
		r.logger.Error("Failed to lock approval request", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock approval request: %w", err)
	}

	return req, nil
}

// UpdateRequest persists status, level and final decision changes
func (r *ApprovalRepository) UpdateRequest(ctx context.Context, req *approval.Request) error {
	var finalDecision *string
	if req.FinalDecision != "" {
		d := string(req.FinalDecision)
		finalDecision = &d
	}

	query := `
		UPDATE approval_requests
		SET status = $1, current_level = $2, final_decision = $3, completed_at = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query,
		req.Status,
		req.CurrentLevel,
		finalDecision,
		req.CompletedAt,
		req.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update approval request", "id", req.ID.String(), "error", err)
		return fmt.Errorf("failed to update approval request: %w", err)
	}

	if result.RowsAffected() == 0 {
		return approval.ErrRequestNotFound{RequestID: req.ID}
	}

	return nil
}

// CreateLevels stores the pre-created level rows of a new request
func (r *ApprovalRepository) CreateLevels(ctx context.Context, levels []*approval.Level) error {
	query := `
		INSERT INTO approval_levels (id, request_id, level, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, lvl := range levels {
		if _, err := r.querier.Exec(ctx, query, lvl.ID, lvl.RequestID, lvl.Level, lvl.Status, lvl.CreatedAt); err != nil {
			r.logger.Error("Failed to create approval level", "request_id", lvl.RequestID.String(), "level", lvl.Level, "error", err)
			return fmt.Errorf("failed to create approval level: %w", err)
		}
	}

	return nil
}

const levelColumns = `id, request_id, level, status, approver_id, comments, decided_at, created_at`

func scanLevel(row pgx.Row) (*approval.Level, error) {
	var lvl approval.Level
	var comments *string
	err := row.Scan(
		&lvl.ID,
		&lvl.RequestID,
		&lvl.Level,
		&lvl.Status,
		&lvl.ApproverID,
		&comments,
		&lvl.DecidedAt,
		&lvl.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if comments != nil {
		lvl.Comments = *comments
	}
	return &lvl, nil
}

// GetLevel retrieves one level row of a request
func (r *ApprovalRepository) GetLevel(ctx context.Context, requestID uuid.UUID, level int) (*approval.Level, error) {
	query := `
		SELECT ` + levelColumns + `
		FROM approval_levels
		WHERE request_id = $1 AND level = $2
	`

	lvl, err := scanLevel(r.querier.QueryRow(ctx, query, requestID, level))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, approval.ErrLevelNotFound{RequestID: requestID, Level: level}
		}
		r.logger.Error("Failed to get approval level", "request_id", requestID.String(), "level", level, "error", err)
		return nil, fmt.Errorf("failed to get approval level: %w", err)
	}

	return lvl, nil
}

// UpdateLevel persists a decided level
func (r *ApprovalRepository) UpdateLevel(ctx context.Context, lvl *approval.Level) error {
	query := `
		UPDATE approval_levels
		SET status = $1, approver_id = $2, comments = $3, decided_at = $4
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query, lvl.Status, lvl.ApproverID, lvl.Comments, lvl.DecidedAt, lvl.ID)
	if err != nil {
		r.logger.Error("Failed to update approval level", "id", lvl.ID.String(), "error", err)
		return fmt.Errorf("failed to update approval level: %w", err)
	}

	if result.RowsAffected() == 0 {
		return approval.ErrLevelNotFound{RequestID: lvl.RequestID, Level: lvl.Level}
	}

	return nil
}

// ListLevels returns all levels of a request ordered ascending
func (r *ApprovalRepository) ListLevels(ctx context.Context, requestID uuid.UUID) ([]*approval.Level, error) {
	query := `
		SELECT ` + levelColumns + `
		FROM approval_levels
		WHERE request_id = $1
		ORDER BY level ASC
	`

	rows, err := r.querier.Query(ctx, query, requestID)
	if err != nil {
		r.logger.Error("Failed to list approval levels", "request_id", requestID.String(), "error", err)
		return nil, fmt.Errorf("failed to list approval levels: %w", err)
	}
	defer rows.Close()

	var levels []*approval.Level
	for rows.Next() {
		lvl, err := scanLevel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval level row: %w", err)
		}
		levels = append(levels, lvl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read approval level rows: %w", err)
	}

	return levels, nil
}

// ListQueue returns PENDING requests sitting at the given level, optionally
// filtered by type, newest first
func (r *ApprovalRepository) ListQueue(ctx context.Context, level int, requestType *approval.RequestType) ([]*approval.Request, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM approval_requests
		WHERE status = 'PENDING' AND current_level = $1
	`
	args := []any{level}
	if requestType != nil {
		query += ` AND request_type = $2`
		args = append(args, *requestType)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list approval queue", "level", level, "error", err)
		return nil, fmt.Errorf("failed to list approval queue: %w", err)
	}
	defer rows.Close()

	var requests []*approval.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval request row: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read approval request rows: %w", err)
	}

	return requests, nil
}

// ListActiveConfigurations returns the active amount brackets for a type
func (r *ApprovalRepository) ListActiveConfigurations(ctx context.Context, requestType approval.RequestType) ([]*approval.Configuration, error) {
	query := `
		SELECT id, request_type, min_amount, max_amount, required_level, active, created_at
		FROM approval_configurations
		WHERE request_type = $1 AND active
		ORDER BY required_level ASC
	`

	rows, err := r.querier.Query(ctx, query, requestType)
	if err != nil {
		r.logger.Error("Failed to list approval configurations", "request_type", string(requestType), "error", err)
		return nil, fmt.Errorf("failed to list approval configurations: %w", err)
	}
	defer rows.Close()

	var configs []*approval.Configuration
	for rows.Next() {
		var c approval.Configuration
		err := rows.Scan(
			&c.ID,
			&c.RequestType,
			&c.MinAmount,
			&c.MaxAmount,
			&c.RequiredLevel,
			&c.Active,
			&c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan approval configuration row: %w", err)
		}
		configs = append(configs, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read approval configuration rows: %w", err)
	}

	return configs, nil
}

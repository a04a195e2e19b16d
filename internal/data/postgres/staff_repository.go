package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/staff"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// StaffRepository implements the staff.Repository interface for PostgreSQL
type StaffRepository struct {
	querier persistence.Querier
	logger  *slog.Logger
}

// NewStaffRepository creates a new PostgreSQL staff repository
func NewStaffRepository(logger *slog.Logger, db *persistence.PostgresDB) staff.Repository {
	return &StaffRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction
func (r *StaffRepository) WithTx(tx pgx.Tx) staff.Repository {
	return &StaffRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByID retrieves a user by id
func (r *StaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*staff.User, error) {
	query := `
		SELECT id, full_name, active, created_at
		FROM users
		WHERE id = $1
	`

	var u staff.User
	err := r.querier.QueryRow(ctx, query, id).Scan(&u.ID, &u.FullName, &u.Active, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, staff.ErrUserNotFound{UserID: id}
		}
		r.logger.Error("Failed to get user", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &u, nil
}

// Exists reports whether an active user row exists for id
func (r *StaffRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND active)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		r.logger.Error("Failed to check user existence", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

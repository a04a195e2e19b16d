// Package postgres provides PostgreSQL implementations of the domain
// repositories. It handles all database operations while maintaining
// transaction safety and proper error handling for the finance core.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/campus-finance-ledger/internal/domain/student"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// StudentRepository implements the student.Repository interface for PostgreSQL
type StudentRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewStudentRepository creates a new PostgreSQL student repository
func NewStudentRepository(logger *slog.Logger, db *persistence.PostgresDB) student.Repository {
	return &StudentRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing for atomic
// operations across multiple repository calls
func (r *StudentRepository) WithTx(tx pgx.Tx) student.Repository {
	return &StudentRepository{
		querier: tx,
		logger:  r.logger,
	}
}

const studentColumns = `id, full_name, active, credit_balance, created_at, updated_at`

func scanStudent(row pgx.Row) (*student.Student, error) {
	var s student.Student
	err := row.Scan(
		&s.ID,
		&s.FullName,
		&s.Active,
		&s.CreditBalance,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// GetByID retrieves a student by id
func (r *StudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE id = $1
	`

	s, err := scanStudent(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, student.ErrStudentNotFound{StudentID: id}
		}
		r.logger.Error("Failed to get student", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get student: %w", err)
	}

	return s, nil
}

// LockForUpdate obtains a row lock on the student and returns its current
// state. Must be used within a transaction.
func (r *StudentRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students
		WHERE id = $1
		FOR UPDATE
	`

	s, err := scanStudent(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, student.ErrStudentNotFound{StudentID: id}
		}
		r.logger.Error("Failed to lock student for update", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to lock student for update: %w", err)
	}

	return s, nil
}

// AdjustCreditBalance applies a signed delta to the credit balance cache
func (r *StudentRepository) AdjustCreditBalance(ctx context.Context, id uuid.UUID, delta int64) error {
	query := `
		UPDATE students
		SET credit_balance = credit_balance + $1, updated_at = NOW()
		WHERE id = $2
	`

	result, err := r.querier.Exec(ctx, query, delta, id)
	if err != nil {
		r.logger.Error("Failed to adjust student credit balance", "id", id.String(), "error", err)
		return fmt.Errorf("failed to adjust student credit balance: %w", err)
	}

	if result.RowsAffected() == 0 {
		return student.ErrStudentNotFound{StudentID: id}
	}

	return nil
}

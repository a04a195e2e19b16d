package postgres

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-finance-ledger/internal/domain/student"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestStudentRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StudentRepository{querier: mock, logger: logger}
	studentID := uuid.New()
	now := time.Now()

	expectedStudent := &student.Student{
		ID:            studentID,
		FullName:      "Amina Diallo",
		Active:        true,
		CreditBalance: 2500,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		SELECT id, full_name, active, credit_balance, created_at, updated_at
		FROM students
		WHERE id = \$1
	`
	rows := pgxmock.NewRows([]string{"id", "full_name", "active", "credit_balance", "created_at", "updated_at"}).
		AddRow(expectedStudent.ID, expectedStudent.FullName, expectedStudent.Active, expectedStudent.CreditBalance, expectedStudent.CreatedAt, expectedStudent.UpdatedAt)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(studentID).WillReturnRows(rows)

		s, err := repo.GetByID(ctx, studentID)
		assert.NoError(t, err)
		assert.Equal(t, expectedStudent, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(studentID).WillReturnError(pgx.ErrNoRows)

		s, err := repo.GetByID(ctx, studentID)
		assert.Error(t, err)
		assert.Nil(t, s)
		var notFoundErr student.ErrStudentNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, studentID, notFoundErr.StudentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("some db error")
		mock.ExpectQuery(query).WithArgs(studentID).WillReturnError(dbErr)

		s, err := repo.GetByID(ctx, studentID)
		assert.Error(t, err)
		assert.Nil(t, s)
		assert.Contains(t, err.Error(), "failed to get student")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStudentRepository_LockForUpdate(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StudentRepository{querier: mock, logger: logger}
	studentID := uuid.New()
	now := time.Now()

	expectedStudent := &student.Student{
		ID:            studentID,
		FullName:      "Joris Vermeer",
		Active:        true,
		CreditBalance: 0,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	query := `
		SELECT id, full_name, active, credit_balance, created_at, updated_at
		FROM students
		WHERE id = \$1
		FOR UPDATE
	`
	rows := pgxmock.NewRows([]string{"id", "full_name", "active", "credit_balance", "created_at", "updated_at"}).
		AddRow(expectedStudent.ID, expectedStudent.FullName, expectedStudent.Active, expectedStudent.CreditBalance, expectedStudent.CreatedAt, expectedStudent.UpdatedAt)

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(studentID).WillReturnRows(rows)

		s, err := repo.LockForUpdate(ctx, studentID)
		assert.NoError(t, err)
		assert.Equal(t, expectedStudent, s)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs(studentID).WillReturnError(pgx.ErrNoRows)

		s, err := repo.LockForUpdate(ctx, studentID)
		assert.Error(t, err)
		assert.Nil(t, s)
		var notFoundErr student.ErrStudentNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, studentID, notFoundErr.StudentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("lock db error")
		mock.ExpectQuery(query).WithArgs(studentID).WillReturnError(dbErr)

		s, err := repo.LockForUpdate(ctx, studentID)
		assert.Error(t, err)
		assert.Nil(t, s)
		assert.Contains(t, err.Error(), "failed to lock student for update")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStudentRepository_AdjustCreditBalance(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := &StudentRepository{querier: mock, logger: logger}
	studentID := uuid.New()
	delta := int64(-1500)

	query := `
		UPDATE students
		SET credit_balance = credit_balance \+ \$1, updated_at = NOW\(\)
		WHERE id = \$2
	`

	t.Run("success", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(delta, studentID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.AdjustCreditBalance(ctx, studentID, delta)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing student", func(t *testing.T) {
		mock.ExpectExec(query).
			WithArgs(delta, studentID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.AdjustCreditBalance(ctx, studentID, delta)
		assert.Error(t, err)
		var notFoundErr student.ErrStudentNotFound
		assert.ErrorAs(t, err, &notFoundErr)
		assert.Equal(t, studentID, notFoundErr.StudentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("db error", func(t *testing.T) {
		dbErr := errors.New("update db error")
		mock.ExpectExec(query).
			WithArgs(delta, studentID).
			WillReturnError(dbErr)

		err := repo.AdjustCreditBalance(ctx, studentID, delta)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to adjust student credit balance")
		assert.ErrorIs(t, err, dbErr)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStudentRepository_WithTx(t *testing.T) {
	logger := newTestLogger()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mockPool.Close()

	originalRepo := &StudentRepository{querier: mockPool, logger: logger}

	mockPool.ExpectBegin()
	pgxTx, err := mockPool.Begin(context.Background())
	require.NoError(t, err)

	txRepo := originalRepo.WithTx(pgxTx)

	assert.NotNil(t, txRepo)
	assert.Equal(t, originalRepo.logger, txRepo.(*StudentRepository).logger)
	assert.Equal(t, pgxTx, txRepo.(*StudentRepository).querier, "Querier in new repo should be the transaction")

	assert.NoError(t, mockPool.ExpectationsWereMet())
}

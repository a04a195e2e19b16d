// Package staff exposes the minimal view of system users the finance core
// needs: every state-changing operation must be attributable to an existing,
// non-anonymous actor. Account management lives upstream.
package staff

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is a system user able to record or approve financial operations
type User struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository defines user lookups
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	WithTx(tx pgx.Tx) Repository
}

// ErrUserNotFound indicates a missing user row
type ErrUserNotFound struct {
	UserID uuid.UUID
}

func (e ErrUserNotFound) Error() string {
	return "user not found: " + e.UserID.String()
}

package student

import (
	"time"

	"github.com/google/uuid"
)

// Student carries the identity fields the finance core needs plus the
// denormalized credit balance. CreditBalance is a materialized cache of the
// net credit transaction effects; reconciliation checks it, nothing enforces it.
type Student struct {
	ID            uuid.UUID `json:"id"`
	FullName      string    `json:"full_name"`
	Active        bool      `json:"active"`
	CreditBalance int64     `json:"credit_balance"` // Stored in minor currency units
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

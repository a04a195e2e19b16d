package approval

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the kind of monetary action being approved
type RequestType string

const (
	RequestTypePayment     RequestType = "PAYMENT"
	RequestTypeExpense     RequestType = "EXPENSE"
	RequestTypeScholarship RequestType = "SCHOLARSHIP"
)

// RequestStatus is the approval request lifecycle state
type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCancelled RequestStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected || s == RequestStatusCancelled
}

// Decision is the outcome recorded on a single approval level
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// LevelStatus is the state of one approval level row
type LevelStatus string

const (
	LevelStatusPending  LevelStatus = "PENDING"
	LevelStatusApproved LevelStatus = "APPROVED"
	LevelStatusRejected LevelStatus = "REJECTED"
)

// EntityKind tags the thing an approval request points at
type EntityKind string

const (
	EntityKindPayment EntityKind = "payment"
	EntityKindInvoice EntityKind = "invoice"
	EntityKindExpense EntityKind = "expense"
)

// EntityRef is a typed reference to the entity being approved. Kept as a
// tagged union so call sites are checked instead of passing a bare
// (string, id) pair around.
type EntityRef struct {
	Kind EntityKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

// Validate rejects unknown kinds and nil ids
func (r EntityRef) Validate() error {
	switch r.Kind {
	case EntityKindPayment, EntityKindInvoice, EntityKindExpense:
	default:
		return fmt.Errorf("unknown approval entity kind: %q", r.Kind)
	}
	if r.ID == uuid.Nil {
		return fmt.Errorf("approval entity id is required")
	}
	return nil
}

// Request is a multi-level monetary approval. It starts PENDING at level 1,
// advances one level at a time, and is immutable once terminal.
type Request struct {
	ID            uuid.UUID     `json:"id"`
	RequestType   RequestType   `json:"request_type"`
	Entity        EntityRef     `json:"entity"`
	Amount        int64         `json:"amount"` // Stored in minor currency units
	Status        RequestStatus `json:"status"`
	CurrentLevel  int           `json:"current_level"`
	MaxLevel      int           `json:"max_level"`
	RequestedBy   uuid.UUID     `json:"requested_by"`
	FinalDecision Decision      `json:"final_decision,omitempty"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Level is one required sign-off step of a request. Levels are decided
// strictly in ascending order; a level may only be decided while
// request.current_level equals its level.
type Level struct {
	ID         uuid.UUID   `json:"id"`
	RequestID  uuid.UUID   `json:"request_id"`
	Level      int         `json:"level"`
	Status     LevelStatus `json:"status"`
	ApproverID *uuid.UUID  `json:"approver_id,omitempty"`
	Comments   string      `json:"comments,omitempty"`
	DecidedAt  *time.Time  `json:"decided_at,omitempty"`
	CreatedAt  time.Time   `json:"created_at"`
}

// Configuration maps an amount bracket to the approval depth it requires.
// MinAmount is inclusive; MaxAmount is exclusive, nil meaning unbounded.
// Multiple rows per request type form an escalating ladder.
type Configuration struct {
	ID            uuid.UUID   `json:"id"`
	RequestType   RequestType `json:"request_type"`
	MinAmount     int64       `json:"min_amount"`
	MaxAmount     *int64      `json:"max_amount,omitempty"`
	RequiredLevel int         `json:"required_level"`
	Active        bool        `json:"active"`
	CreatedAt     time.Time   `json:"created_at"`
}

// Matches reports whether amount falls inside the [MinAmount, MaxAmount)
// bracket of this configuration
func (c *Configuration) Matches(amount int64) bool {
	if amount < c.MinAmount {
		return false
	}
	if c.MaxAmount != nil && amount >= *c.MaxAmount {
		return false
	}
	return true
}

// RequiredLevelFor returns the highest required level among the active
// configurations whose bracket contains amount, or 0 when none match.
func RequiredLevelFor(configs []*Configuration, amount int64) int {
	maxLevel := 0
	for _, c := range configs {
		if !c.Active || !c.Matches(amount) {
			continue
		}
		if c.RequiredLevel > maxLevel {
			maxLevel = c.RequiredLevel
		}
	}
	return maxLevel
}

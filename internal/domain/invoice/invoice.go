package invoice

import (
	"time"

	"github.com/google/uuid"
)

// Status reflects how much of the invoice has been settled. It is a pure
// function of AmountPaid vs TotalAmount, never set independently.
type Status string

const (
	StatusOutstanding   Status = "OUTSTANDING"
	StatusPartiallyPaid Status = "PARTIALLY_PAID"
	StatusPaid          Status = "PAID"
	StatusCancelled     Status = "CANCELLED"
)

// Invoice is a fee invoice owned by one student. AmountPaid is a materialized
// cache of allocation and credit-application bookkeeping; the reconciliation
// service audits it for drift.
type Invoice struct {
	ID          uuid.UUID `json:"id"`
	StudentID   uuid.UUID `json:"student_id"`
	Term        string    `json:"term"`
	TotalAmount int64     `json:"total_amount"` // Stored in minor currency units
	AmountPaid  int64     `json:"amount_paid"`
	InvoiceDate time.Time `json:"invoice_date"`
	DueDate     time.Time `json:"due_date"`
	Status      Status    `json:"status"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Balance returns the unsettled remainder, never negative
func (i *Invoice) Balance() int64 {
	if i.AmountPaid >= i.TotalAmount {
		return 0
	}
	return i.TotalAmount - i.AmountPaid
}

// Settleable reports whether the invoice can still absorb payments
func (i *Invoice) Settleable() bool {
	return i.Status == StatusOutstanding || i.Status == StatusPartiallyPaid
}

// StatusFor derives the status for a given paid amount against a total
func StatusFor(amountPaid, totalAmount int64) Status {
	switch {
	case amountPaid <= 0:
		return StatusOutstanding
	case amountPaid < totalAmount:
		return StatusPartiallyPaid
	default:
		return StatusPaid
	}
}

// Apply adds amount to AmountPaid and recomputes the status
func (i *Invoice) Apply(amount int64) {
	i.AmountPaid += amount
	i.Status = StatusFor(i.AmountPaid, i.TotalAmount)
	i.UpdatedAt = time.Now()
}

// Reverse subtracts amount from AmountPaid, flooring at zero, and recomputes
// the status. Used by the void processor when unwinding allocations.
func (i *Invoice) Reverse(amount int64) {
	i.AmountPaid -= amount
	if i.AmountPaid < 0 {
		i.AmountPaid = 0
	}
	i.Status = StatusFor(i.AmountPaid, i.TotalAmount)
	i.UpdatedAt = time.Now()
}

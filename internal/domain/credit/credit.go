package credit

import (
	"time"

	"github.com/google/uuid"
)

// Type categorizes credit transaction events. RECEIVED adds to the student's
// credit balance; APPLIED and REFUNDED subtract from it.
type Type string

const (
	TypeCreditReceived Type = "CREDIT_RECEIVED"
	TypeCreditApplied  Type = "CREDIT_APPLIED"
	TypeCreditRefunded Type = "CREDIT_REFUNDED"
)

// BalanceEffect returns the signed contribution of a transaction of this type
// to the student's credit balance.
func (t Type) BalanceEffect(amount int64) int64 {
	if t == TypeCreditReceived {
		return amount
	}
	return -amount
}

// Transaction records a single credit event for a student. Amount is always
// positive; the type carries the sign.
type Transaction struct {
	ID              uuid.UUID  `json:"id"`
	StudentID       uuid.UUID  `json:"student_id"`
	Type            Type       `json:"type"`
	Amount          int64      `json:"amount"` // Stored in minor currency units
	SourcePaymentID *uuid.UUID `json:"source_payment_id,omitempty"`
	InvoiceID       *uuid.UUID `json:"invoice_id,omitempty"`
	Description     string     `json:"description,omitempty"`
	CreatedBy       uuid.UUID  `json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
}

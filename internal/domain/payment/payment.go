package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/campus-finance-ledger/internal/domain/shared"
)

// Payment is a FEE_PAYMENT ledger transaction. Immutable once created apart
// from the ACTIVE -> VOIDED transition and its void metadata. Never deleted;
// receipt numbers are legal documents.
type Payment struct {
	ID              uuid.UUID            `json:"id"`
	StudentID       uuid.UUID            `json:"student_id"`
	Type            shared.TransactionType `json:"type"`
	Amount          int64                `json:"amount"` // Stored in minor currency units
	Method          shared.PaymentMethod `json:"method"`
	TransactionDate time.Time            `json:"transaction_date"`
	Reference       string               `json:"reference"`
	TransactionRef  string               `json:"transaction_ref"`
	ReceiptNumber   string               `json:"receipt_number"`
	Status          shared.PaymentStatus `json:"status"`
	VoidReason      string               `json:"void_reason,omitempty"`
	VoidedBy        *uuid.UUID           `json:"voided_by,omitempty"`
	VoidedAt        *time.Time           `json:"voided_at,omitempty"`
	RecordedBy      uuid.UUID            `json:"recorded_by"`
	CreatedAt       time.Time            `json:"created_at"`
}

// Allocation is the portion of one payment applied to one invoice. The sum
// of a payment's allocations never exceeds its amount; the remainder, if any,
// becomes student credit.
type Allocation struct {
	ID            uuid.UUID `json:"id"`
	PaymentID     uuid.UUID `json:"payment_id"`
	InvoiceID     uuid.UUID `json:"invoice_id"`
	AppliedAmount int64     `json:"applied_amount"`
	CreatedAt     time.Time `json:"created_at"`
}

// VoidAudit captures the pre-void state of a payment and everything it
// touched, for forensic recovery. Written once per void, never updated.
type VoidAudit struct {
	ID        uuid.UUID `json:"id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Snapshot  []byte    `json:"snapshot"` // JSON: payment, allocations, invoice balances
	Reason    string    `json:"reason"`
	VoidedBy  uuid.UUID `json:"voided_by"`
	CreatedAt time.Time `json:"created_at"`
}

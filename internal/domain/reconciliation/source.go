package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CreditFigure pairs a student's stored credit balance with the balance
// derived by replaying their credit transaction history.
type CreditFigure struct {
	StudentID uuid.UUID
	FullName  string
	Stored    int64
	Derived   int64
}

// InvoiceFigure pairs an invoice's recorded amount_paid with the sum of
// active payment allocations and applied credits targeting it.
type InvoiceFigure struct {
	InvoiceID      uuid.UUID
	Status         string
	TotalAmount    int64
	AmountPaid     int64
	AllocatedTotal int64
	CreditApplied  int64
}

// AccountFigure carries the net balance of a GL account, signed by the
// account's normal side (positive means the balance sits on the expected
// side).
type AccountFigure struct {
	Code        string
	Name        string
	AccountType string
	NetBalance  int64
}

// Source is the read-side view of the books that the check battery runs
// over. Implementations must not mutate data.
type Source interface {
	// StudentCreditFigures returns one figure per student that has a
	// non-zero stored balance or any credit transaction history.
	StudentCreditFigures(ctx context.Context) ([]CreditFigure, error)
	// TrialBalance sums debit and credit legs over posted lines of
	// non-voided journal entries.
	TrialBalance(ctx context.Context) (debits int64, credits int64, err error)
	// CountOrphanedPayments counts fee payment rows whose student id does
	// not resolve to an existing student.
	CountOrphanedPayments(ctx context.Context) (int64, error)
	// InvoiceSettlementFigures returns figures for invoices whose recorded
	// amount_paid disagrees with either the allocation sum alone or with
	// allocations plus applied credits.
	InvoiceSettlementFigures(ctx context.Context) ([]InvoiceFigure, error)
	// AbnormalAccountFigures returns GL accounts whose net balance sits on
	// the wrong side of their normal balance by more than the tolerance.
	AbnormalAccountFigures(ctx context.Context) ([]AccountFigure, error)
	// UnlinkedPayments returns references of active payments recorded at or
	// after since that have no journal entry bearing their transaction id.
	UnlinkedPayments(ctx context.Context, since time.Time) ([]string, error)
}

// ReportStore persists battery runs as append-only history.
type ReportStore interface {
	Save(ctx context.Context, report *Report) error
	Latest(ctx context.Context) (*Report, error)
	List(ctx context.Context, limit int64) ([]*Report, error)
}

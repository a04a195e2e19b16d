// Package validator answers the question "what would a payment of this
// amount settle for this student?". It is read-only: the payment processor
// owns all mutation.
package validator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campus-finance-ledger/internal/domain/invoice"
)

// Result is the validator's verdict on a proposed payment
type Result struct {
	Valid    bool
	Message  string
	Invoices []*invoice.Invoice
}

// Validator checks a proposed payment against the student's open invoices
type Validator interface {
	// ValidatePayment returns the student's settleable invoices ordered by
	// due date ascending. When tx is non-nil the invoice rows are locked so
	// the caller can allocate against them safely.
	ValidatePayment(ctx context.Context, tx pgx.Tx, studentID uuid.UUID, amount int64) (*Result, error)
}

// InvoiceValidator implements Validator against the invoice repository
type InvoiceValidator struct {
	invoiceRepo invoice.Repository
	logger      *slog.Logger
}

// NewInvoiceValidator creates a new invoice validator
func NewInvoiceValidator(invoiceRepo invoice.Repository, logger *slog.Logger) Validator {
	return &InvoiceValidator{
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// ValidatePayment rejects non-positive amounts and reports which invoices the
// payment would settle. A positive amount with zero open invoices is valid:
// the full amount becomes student credit.
func (v *InvoiceValidator) ValidatePayment(ctx context.Context, tx pgx.Tx, studentID uuid.UUID, amount int64) (*Result, error) {
	if amount <= 0 {
		return &Result{Valid: false, Message: "payment amount must be greater than zero"}, nil
	}

	repo := v.invoiceRepo
	if tx != nil {
		repo = repo.WithTx(tx)
	}

	var invoices []*invoice.Invoice
	var err error
	if tx != nil {
		invoices, err = repo.LockSettleableByStudent(ctx, studentID)
	} else {
		invoices, err = repo.ListSettleableByStudent(ctx, studentID)
	}
	if err != nil {
		v.logger.Error("Failed to fetch settleable invoices", "student_id", studentID.String(), "error", err)
		return nil, fmt.Errorf("failed to fetch settleable invoices: %w", err)
	}

	if len(invoices) == 0 {
		return &Result{
			Valid:   true,
			Message: "no outstanding invoices; full amount will be recorded as student credit",
		}, nil
	}

	var outstanding int64
	for _, inv := range invoices {
		outstanding += inv.Balance()
	}

	message := fmt.Sprintf("%d open invoice(s), %d outstanding", len(invoices), outstanding)
	if amount > outstanding {
		message = fmt.Sprintf("%s; excess %d will be recorded as student credit", message, amount-outstanding)
	}

	return &Result{Valid: true, Message: message, Invoices: invoices}, nil
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campus-finance-ledger/internal/domain/approval"
	"github.com/campus-finance-ledger/internal/domain/audit"
	"github.com/campus-finance-ledger/internal/domain/credit"
	"github.com/campus-finance-ledger/internal/domain/invoice"
	"github.com/campus-finance-ledger/internal/domain/journal"
	"github.com/campus-finance-ledger/internal/domain/outbox"
	"github.com/campus-finance-ledger/internal/domain/payment"
	"github.com/campus-finance-ledger/internal/domain/shared"
	"github.com/campus-finance-ledger/internal/domain/student"
)

type paymentRecordedEvent struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	TransactionRef string    `json:"transaction_ref"`
	ReceiptNumber  string    `json:"receipt_number"`
	StudentID      uuid.UUID `json:"student_id"`
	Amount         int64     `json:"amount"`
	Allocated      int64     `json:"allocated"`
	CreditCreated  int64     `json:"credit_created"`
}

// RecordPayment records a fee payment and settles it against the student's
// open invoices oldest-due-first, turning any remainder into student credit.
// The whole operation is one transaction; a failure in any step, including the
// double-entry posting, rolls everything back.
func (s *ServiceImpl) RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*RecordPaymentResult, error) {
	if err := validateRecordRequest(req); err != nil {
		return nil, err
	}

	var result *RecordPaymentResult
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		r, err := s.recordPaymentTx(ctx, tx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment recorded",
		"transaction_id", result.Payment.ID.String(),
		"student_id", req.StudentID.String(),
		"amount", req.Amount,
		"allocated", result.Allocated,
		"credit_created", result.CreditCreated,
		"duplicate", result.Duplicate)
	return result, nil
}

func validateRecordRequest(req *RecordPaymentRequest) error {
	if req.StudentID == uuid.Nil {
		return shared.NewValidationError("student id is required")
	}
	if req.Amount <= 0 {
		return shared.NewValidationError("payment amount must be greater than zero")
	}
	if req.TransactionDate.IsZero() {
		return shared.NewValidationError("transaction date is required")
	}
	if req.TransactionDate.After(time.Now()) {
		return shared.NewValidationError("transaction date cannot be in the future")
	}
	if !shared.ValidPaymentMethod(req.Method) {
		return shared.NewValidationError(fmt.Sprintf("unknown payment method: %s", req.Method))
	}
	return nil
}

func (s *ServiceImpl) recordPaymentTx(ctx context.Context, tx pgx.Tx, req *RecordPaymentRequest) (*RecordPaymentResult, error) {
	studentRepo := s.studentRepo.WithTx(tx)
	paymentRepo := s.paymentRepo.WithTx(tx)
	invoiceRepo := s.invoiceRepo.WithTx(tx)

	// Lock the student row so concurrent payments for the same student
	// serialize on the credit balance.
	stu, err := studentRepo.LockForUpdate(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, student.ErrStudentNotFound{}) {
			return nil, shared.NewValidationError("student does not exist")
		}
		return nil, err
	}

	if err := s.requireActor(ctx, tx, req.RecordedBy, "recording user"); err != nil {
		return nil, err
	}

	if req.ApprovalRequestID != nil {
		if err := s.checkApprovalGate(ctx, tx, *req.ApprovalRequestID, req.Amount); err != nil {
			return nil, err
		}
	}

	// Double-submit guard. An identical active payment inside the window
	// short-circuits and hands back the existing row.
	existing, err := paymentRepo.FindRecentDuplicate(ctx, req.StudentID, req.Amount, req.Method, req.Reference, DuplicateWindow)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		allocations, err := paymentRepo.ListAllocations(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
		var allocated int64
		for _, a := range allocations {
			allocated += a.AppliedAmount
		}
		return &RecordPaymentResult{
			Payment:       existing,
			Allocated:     allocated,
			CreditCreated: existing.Amount - allocated,
			Duplicate:     true,
		}, nil
	}

	// A targeted invoice is allocated before the oldest-due-first sweep.
	var targeted *invoice.Invoice
	if req.InvoiceID != nil {
		targeted, err = invoiceRepo.LockByID(ctx, *req.InvoiceID)
		if err != nil {
			if errors.Is(err, invoice.ErrInvoiceNotFound{}) {
				return nil, shared.NewValidationError("targeted invoice does not exist")
			}
			return nil, err
		}
		if targeted.StudentID != req.StudentID {
			return nil, shared.NewValidationError("targeted invoice does not belong to the student")
		}
		if !targeted.Settleable() {
			return nil, shared.NewValidationError("targeted invoice is not open for payment")
		}
	}

	verdict, err := s.validator.ValidatePayment(ctx, tx, req.StudentID, req.Amount)
	if err != nil {
		return nil, err
	}
	if !verdict.Valid {
		return nil, shared.NewValidationError(verdict.Message)
	}

	p := &payment.Payment{
		ID:              uuid.New(),
		StudentID:       req.StudentID,
		Type:            shared.TransactionTypeFeePayment,
		Amount:          req.Amount,
		Method:          req.Method,
		TransactionDate: req.TransactionDate,
		Reference:       req.Reference,
		TransactionRef:  transactionRef(req.TransactionDate),
		ReceiptNumber:   receiptNumber(req.TransactionDate),
		Status:          shared.PaymentStatusActive,
		RecordedBy:      req.RecordedBy,
		CreatedAt:       time.Now(),
	}
	if err := paymentRepo.Create(ctx, p); err != nil {
		return nil, err
	}

	allocated, err := s.allocate(ctx, tx, p, targeted, verdict.Invoices)
	if err != nil {
		return nil, err
	}

	remainder := req.Amount - allocated
	if remainder > 0 {
		ct := &credit.Transaction{
			ID:              uuid.New(),
			StudentID:       req.StudentID,
			Type:            credit.TypeCreditReceived,
			Amount:          remainder,
			SourcePaymentID: &p.ID,
			Description:     "overpayment on receipt " + p.ReceiptNumber,
			CreatedBy:       req.RecordedBy,
			CreatedAt:       time.Now(),
		}
		if err := s.creditRepo.WithTx(tx).Create(ctx, ct); err != nil {
			return nil, err
		}
		if err := studentRepo.AdjustCreditBalance(ctx, stu.ID, remainder); err != nil {
			return nil, err
		}
	}

	entry, err := journal.NewEntry(
		req.TransactionDate,
		"fee payment "+p.ReceiptNumber,
		&p.ID,
		req.RecordedBy,
		[]journal.Line{
			journal.Debit(journal.AccountCash, req.Amount),
			journal.Credit(journal.AccountAccountsReceivable, allocated),
			journal.Credit(journal.AccountStudentCredit, remainder),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build journal entry for %s: %w", p.TransactionRef, err)
	}
	if err := s.journalRepo.WithTx(tx).CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	rec, err := audit.NewRecord(req.RecordedBy, "PAYMENT_RECORDED", "ledger_transactions", p.ID, nil, p)
	if err != nil {
		return nil, fmt.Errorf("failed to build audit record: %w", err)
	}
	if err := s.auditRepo.WithTx(tx).Create(ctx, rec); err != nil {
		return nil, err
	}

	msg, err := outbox.NewMessage(shared.EventPaymentRecorded, p.ID, paymentRecordedEvent{
		TransactionID:  p.ID,
		TransactionRef: p.TransactionRef,
		ReceiptNumber:  p.ReceiptNumber,
		StudentID:      p.StudentID,
		Amount:         p.Amount,
		Allocated:      allocated,
		CreditCreated:  remainder,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := s.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
		return nil, err
	}

	return &RecordPaymentResult{
		Payment:       p,
		Allocated:     allocated,
		CreditCreated: remainder,
	}, nil
}

// allocate spreads the payment over the invoices, targeted one first, the
// rest in due-date order, writing one allocation row per touched invoice.
func (s *ServiceImpl) allocate(ctx context.Context, tx pgx.Tx, p *payment.Payment, targeted *invoice.Invoice, open []*invoice.Invoice) (int64, error) {
	invoiceRepo := s.invoiceRepo.WithTx(tx)
	paymentRepo := s.paymentRepo.WithTx(tx)

	ordered := make([]*invoice.Invoice, 0, len(open)+1)
	if targeted != nil {
		ordered = append(ordered, targeted)
	}
	for _, inv := range open {
		if targeted != nil && inv.ID == targeted.ID {
			continue
		}
		ordered = append(ordered, inv)
	}

	remaining := p.Amount
	var allocated int64
	for _, inv := range ordered {
		if remaining == 0 {
			break
		}
		applied := min(remaining, inv.Balance())
		if applied == 0 {
			continue
		}

		a := &payment.Allocation{
			ID:            uuid.New(),
			PaymentID:     p.ID,
			InvoiceID:     inv.ID,
			AppliedAmount: applied,
			CreatedAt:     time.Now(),
		}
		if err := paymentRepo.CreateAllocation(ctx, a); err != nil {
			return 0, err
		}

		inv.Apply(applied)
		if err := invoiceRepo.UpdateSettlement(ctx, inv); err != nil {
			return 0, err
		}

		remaining -= applied
		allocated += applied
	}

	return allocated, nil
}

// checkApprovalGate enforces that a referenced approval request is terminally
// approved and covers exactly this amount
func (s *ServiceImpl) checkApprovalGate(ctx context.Context, tx pgx.Tx, requestID uuid.UUID, amount int64) error {
	req, err := s.approvalRepo.WithTx(tx).GetRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, approval.ErrRequestNotFound{}) {
			return shared.NewValidationError("approval request does not exist")
		}
		return err
	}
	if req.Status != approval.RequestStatusApproved {
		return shared.NewValidationError(fmt.Sprintf("approval request %s is not approved", requestID.String()))
	}
	if req.Amount != amount {
		return shared.NewValidationError("approval request amount does not match the payment amount")
	}
	return nil
}

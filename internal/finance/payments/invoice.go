package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campus-finance-ledger/internal/domain/audit"
	"github.com/campus-finance-ledger/internal/domain/credit"
	"github.com/campus-finance-ledger/internal/domain/invoice"
	"github.com/campus-finance-ledger/internal/domain/journal"
	"github.com/campus-finance-ledger/internal/domain/outbox"
	"github.com/campus-finance-ledger/internal/domain/shared"
	"github.com/campus-finance-ledger/internal/domain/student"
)

type invoiceCreatedEvent struct {
	InvoiceID     uuid.UUID `json:"invoice_id"`
	StudentID     uuid.UUID `json:"student_id"`
	Term          string    `json:"term"`
	TotalAmount   int64     `json:"total_amount"`
	CreditApplied int64     `json:"credit_applied"`
}

type creditAppliedEvent struct {
	StudentID    uuid.UUID `json:"student_id"`
	Applied      int64     `json:"applied"`
	InvoiceCount int       `json:"invoice_count"`
}

// CreateInvoice issues a fee invoice, posts it to the general ledger and
// immediately settles it with any credit the student has on file. A second
// identical submission inside the duplicate window returns the first invoice.
func (s *ServiceImpl) CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*CreateInvoiceResult, error) {
	if err := validateInvoiceRequest(req); err != nil {
		return nil, err
	}

	var result *CreateInvoiceResult
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		r, err := s.createInvoiceTx(ctx, tx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Invoice created",
		"invoice_id", result.Invoice.ID.String(),
		"student_id", req.StudentID.String(),
		"total", req.TotalAmount,
		"credit_applied", result.CreditApplied,
		"duplicate", result.Duplicate)
	return result, nil
}

func validateInvoiceRequest(req *CreateInvoiceRequest) error {
	if req.StudentID == uuid.Nil {
		return shared.NewValidationError("student id is required")
	}
	if req.Term == "" {
		return shared.NewValidationError("term is required")
	}
	if req.TotalAmount <= 0 {
		return shared.NewValidationError("invoice total must be greater than zero")
	}
	if req.InvoiceDate.IsZero() || req.DueDate.IsZero() {
		return shared.NewValidationError("invoice date and due date are required")
	}
	if req.DueDate.Before(req.InvoiceDate) {
		return shared.NewValidationError("due date cannot be before the invoice date")
	}
	return nil
}

func (s *ServiceImpl) createInvoiceTx(ctx context.Context, tx pgx.Tx, req *CreateInvoiceRequest) (*CreateInvoiceResult, error) {
	invoiceRepo := s.invoiceRepo.WithTx(tx)
	studentRepo := s.studentRepo.WithTx(tx)

	stu, err := studentRepo.LockForUpdate(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, student.ErrStudentNotFound{}) {
			return nil, shared.NewValidationError("student does not exist")
		}
		return nil, err
	}

	if err := s.requireActor(ctx, tx, req.CreatedBy, "creating user"); err != nil {
		return nil, err
	}

	now := time.Now()
	inv := &invoice.Invoice{
		ID:          uuid.New(),
		StudentID:   req.StudentID,
		Term:        req.Term,
		TotalAmount: req.TotalAmount,
		AmountPaid:  0,
		InvoiceDate: req.InvoiceDate,
		DueDate:     req.DueDate,
		Status:      invoice.StatusOutstanding,
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	existing, err := invoiceRepo.FindRecentDuplicate(ctx, inv, DuplicateWindow)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &CreateInvoiceResult{Invoice: existing, Duplicate: true}, nil
	}

	if err := invoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}

	// Issuance posting: the student now owes the school.
	entry, err := journal.NewEntry(
		req.InvoiceDate,
		fmt.Sprintf("fee invoice %s term %s", inv.ID.String(), req.Term),
		nil,
		req.CreatedBy,
		[]journal.Line{
			journal.Debit(journal.AccountAccountsReceivable, req.TotalAmount),
			journal.Credit(journal.AccountFeeRevenue, req.TotalAmount),
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build journal entry for invoice %s: %w", inv.ID.String(), err)
	}
	if err := s.journalRepo.WithTx(tx).CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	var creditApplied int64
	if stu.CreditBalance > 0 {
		creditApplied, _, err = s.applyCreditTo(ctx, tx, stu, []*invoice.Invoice{inv}, req.CreatedBy)
		if err != nil {
			return nil, err
		}
	}

	rec, err := audit.NewRecord(req.CreatedBy, "INVOICE_CREATED", "fee_invoices", inv.ID, nil, inv)
	if err != nil {
		return nil, fmt.Errorf("failed to build audit record: %w", err)
	}
	if err := s.auditRepo.WithTx(tx).Create(ctx, rec); err != nil {
		return nil, err
	}

	msg, err := outbox.NewMessage(shared.EventInvoiceCreated, inv.ID, invoiceCreatedEvent{
		InvoiceID:     inv.ID,
		StudentID:     inv.StudentID,
		Term:          inv.Term,
		TotalAmount:   inv.TotalAmount,
		CreditApplied: creditApplied,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := s.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
		return nil, err
	}

	return &CreateInvoiceResult{Invoice: inv, CreditApplied: creditApplied}, nil
}

// ApplyCredit spreads the student's available credit over their open invoices
// oldest-due-first. It is a no-op, not an error, when there is no credit or
// nothing open to settle.
func (s *ServiceImpl) ApplyCredit(ctx context.Context, studentID, appliedBy uuid.UUID) (*ApplyCreditResult, error) {
	if studentID == uuid.Nil {
		return nil, shared.NewValidationError("student id is required")
	}

	var result *ApplyCreditResult
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		studentRepo := s.studentRepo.WithTx(tx)
		invoiceRepo := s.invoiceRepo.WithTx(tx)

		stu, err := studentRepo.LockForUpdate(ctx, studentID)
		if err != nil {
			if errors.Is(err, student.ErrStudentNotFound{}) {
				return shared.NewValidationError("student does not exist")
			}
			return err
		}

		if err := s.requireActor(ctx, tx, appliedBy, "applying user"); err != nil {
			return err
		}

		if stu.CreditBalance <= 0 {
			result = &ApplyCreditResult{}
			return nil
		}

		invoices, err := invoiceRepo.LockSettleableByStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if len(invoices) == 0 {
			result = &ApplyCreditResult{}
			return nil
		}

		applied, count, err := s.applyCreditTo(ctx, tx, stu, invoices, appliedBy)
		if err != nil {
			return err
		}

		if applied > 0 {
			rec, err := audit.NewRecord(appliedBy, "CREDIT_APPLIED", "students", studentID, nil, map[string]int64{"applied": applied})
			if err != nil {
				return fmt.Errorf("failed to build audit record: %w", err)
			}
			if err := s.auditRepo.WithTx(tx).Create(ctx, rec); err != nil {
				return err
			}

			msg, err := outbox.NewMessage(shared.EventCreditApplied, studentID, creditAppliedEvent{
				StudentID:    studentID,
				Applied:      applied,
				InvoiceCount: count,
			})
			if err != nil {
				return fmt.Errorf("failed to build outbox message: %w", err)
			}
			if err := s.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
				return err
			}
		}

		result = &ApplyCreditResult{Applied: applied, InvoiceCount: count}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Credit applied",
		"student_id", studentID.String(),
		"applied", result.Applied,
		"invoices", result.InvoiceCount)
	return result, nil
}

// applyCreditTo consumes the student's credit against the given locked
// invoices in order, writing CREDIT_APPLIED rows, settlement updates, the
// balance decrement and one journal entry for the total. The caller holds the
// student row lock.
func (s *ServiceImpl) applyCreditTo(ctx context.Context, tx pgx.Tx, stu *student.Student, invoices []*invoice.Invoice, appliedBy uuid.UUID) (int64, int, error) {
	invoiceRepo := s.invoiceRepo.WithTx(tx)
	creditRepo := s.creditRepo.WithTx(tx)

	available := stu.CreditBalance
	now := time.Now()
	var applied int64
	var count int
	for _, inv := range invoices {
		if available == 0 {
			break
		}
		amount := min(available, inv.Balance())
		if amount == 0 {
			continue
		}

		invID := inv.ID
		ct := &credit.Transaction{
			ID:          uuid.New(),
			StudentID:   stu.ID,
			Type:        credit.TypeCreditApplied,
			Amount:      amount,
			InvoiceID:   &invID,
			Description: "credit applied to invoice " + invID.String(),
			CreatedBy:   appliedBy,
			CreatedAt:   now,
		}
		if err := creditRepo.Create(ctx, ct); err != nil {
			return 0, 0, err
		}

		inv.Apply(amount)
		if err := invoiceRepo.UpdateSettlement(ctx, inv); err != nil {
			return 0, 0, err
		}

		available -= amount
		applied += amount
		count++
	}

	if applied == 0 {
		return 0, 0, nil
	}

	if err := s.studentRepo.WithTx(tx).AdjustCreditBalance(ctx, stu.ID, -applied); err != nil {
		return 0, 0, err
	}
	stu.CreditBalance = available

	entry, err := journal.NewEntry(
		now,
		"student credit applied for "+stu.ID.String(),
		nil,
		appliedBy,
		[]journal.Line{
			journal.Debit(journal.AccountStudentCredit, applied),
			journal.Credit(journal.AccountAccountsReceivable, applied),
		},
	)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build credit journal entry: %w", err)
	}
	if err := s.journalRepo.WithTx(tx).CreateEntry(ctx, entry); err != nil {
		return 0, 0, err
	}

	return applied, count, nil
}

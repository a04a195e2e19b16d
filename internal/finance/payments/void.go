package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campus-finance-ledger/internal/domain/audit"
	"github.com/campus-finance-ledger/internal/domain/credit"
	"github.com/campus-finance-ledger/internal/domain/invoice"
	"github.com/campus-finance-ledger/internal/domain/outbox"
	"github.com/campus-finance-ledger/internal/domain/payment"
	"github.com/campus-finance-ledger/internal/domain/shared"
)

type paymentVoidedEvent struct {
	TransactionID  uuid.UUID `json:"transaction_id"`
	TransactionRef string    `json:"transaction_ref"`
	StudentID      uuid.UUID `json:"student_id"`
	Amount         int64     `json:"amount"`
	Reason         string    `json:"reason"`
	VoidedBy       uuid.UUID `json:"voided_by"`
}

// voidSnapshot is the forensic pre-void state stored on the VoidAudit row
type voidSnapshot struct {
	Payment     *payment.Payment      `json:"payment"`
	Allocations []*payment.Allocation `json:"allocations"`
	Invoices    []voidInvoiceState    `json:"invoices"`
}

type voidInvoiceState struct {
	InvoiceID  uuid.UUID      `json:"invoice_id"`
	AmountPaid int64          `json:"amount_paid"`
	Status     invoice.Status `json:"status"`
}

// VoidPayment reverses a payment without deleting anything: the row flips to
// VOIDED, its allocations are subtracted back out of their invoices, the
// unspent portion of any overpayment credit it spawned is refunded, and its
// journal entries are marked VOIDED. Credit the student has already applied
// to other invoices stays applied; those settlements were made with real
// funds and remain valid after the void. Voiding an already voided payment
// fails.
func (s *ServiceImpl) VoidPayment(ctx context.Context, req *VoidPaymentRequest) (*VoidPaymentResult, error) {
	if req.TransactionID == uuid.Nil {
		return nil, shared.NewValidationError("transaction id is required")
	}
	if req.Reason == "" {
		return nil, shared.NewValidationError("void reason is required")
	}

	var result *VoidPaymentResult
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		r, err := s.voidPaymentTx(ctx, tx, req)
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Payment voided",
		"transaction_id", req.TransactionID.String(),
		"reversed", result.ReversedAmount,
		"credit_reversed", result.CreditReversed,
		"voided_by", req.VoidedBy.String())
	return result, nil
}

func (s *ServiceImpl) voidPaymentTx(ctx context.Context, tx pgx.Tx, req *VoidPaymentRequest) (*VoidPaymentResult, error) {
	paymentRepo := s.paymentRepo.WithTx(tx)
	invoiceRepo := s.invoiceRepo.WithTx(tx)
	studentRepo := s.studentRepo.WithTx(tx)
	creditRepo := s.creditRepo.WithTx(tx)

	if err := s.requireActor(ctx, tx, req.VoidedBy, "voiding user"); err != nil {
		return nil, err
	}

	p, err := paymentRepo.LockByID(ctx, req.TransactionID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			return nil, shared.NewValidationError("payment does not exist")
		}
		return nil, err
	}
	if p.Status == shared.PaymentStatusVoided {
		return nil, shared.NewValidationError("payment is already voided")
	}

	// Student lock serializes against concurrent payments touching the same
	// credit balance and invoices.
	st, err := studentRepo.LockForUpdate(ctx, p.StudentID)
	if err != nil {
		return nil, err
	}

	allocations, err := paymentRepo.ListAllocations(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	snapshot := voidSnapshot{Payment: p, Allocations: allocations}
	var reversed int64
	for _, a := range allocations {
		inv, err := invoiceRepo.LockByID(ctx, a.InvoiceID)
		if err != nil {
			return nil, err
		}
		snapshot.Invoices = append(snapshot.Invoices, voidInvoiceState{
			InvoiceID:  inv.ID,
			AmountPaid: inv.AmountPaid,
			Status:     inv.Status,
		})

		inv.Reverse(a.AppliedAmount)
		if err := invoiceRepo.UpdateSettlement(ctx, inv); err != nil {
			return nil, err
		}
		reversed += a.AppliedAmount
	}

	// Refund the overpayment credit this payment created, if any. The refund
	// is capped at the student's remaining balance: credit already consumed
	// by later invoices cannot be clawed back without unwinding unrelated
	// settlements, and the balance must not go below the schema's
	// non-negative CHECK.
	credits, err := creditRepo.ListBySourcePayment(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	available := st.CreditBalance
	var creditReversed int64
	for _, ct := range credits {
		if ct.Type != credit.TypeCreditReceived {
			continue
		}
		amount := min(ct.Amount, available)
		if amount <= 0 {
			continue
		}
		refund := &credit.Transaction{
			ID:              uuid.New(),
			StudentID:       p.StudentID,
			Type:            credit.TypeCreditRefunded,
			Amount:          amount,
			SourcePaymentID: &p.ID,
			Description:     "reversal of overpayment credit on void of " + p.ReceiptNumber,
			CreatedBy:       req.VoidedBy,
			CreatedAt:       now,
		}
		if err := creditRepo.Create(ctx, refund); err != nil {
			return nil, err
		}
		if err := studentRepo.AdjustCreditBalance(ctx, p.StudentID, -amount); err != nil {
			return nil, err
		}
		available -= amount
		creditReversed += amount
	}

	if err := paymentRepo.MarkVoided(ctx, p.ID, req.Reason, req.VoidedBy, now); err != nil {
		return nil, err
	}

	if _, err := s.journalRepo.WithTx(tx).VoidBySourceTransaction(ctx, p.ID, now); err != nil {
		return nil, err
	}

	snap, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal void snapshot: %w", err)
	}
	va := &payment.VoidAudit{
		ID:        uuid.New(),
		PaymentID: p.ID,
		Snapshot:  snap,
		Reason:    req.Reason,
		VoidedBy:  req.VoidedBy,
		CreatedAt: now,
	}
	if err := paymentRepo.CreateVoidAudit(ctx, va); err != nil {
		return nil, err
	}

	voided := *p
	voided.Status = shared.PaymentStatusVoided
	voided.VoidReason = req.Reason
	voided.VoidedBy = &req.VoidedBy
	voided.VoidedAt = &now

	rec, err := audit.NewRecord(req.VoidedBy, "PAYMENT_VOIDED", "ledger_transactions", p.ID, p, &voided)
	if err != nil {
		return nil, fmt.Errorf("failed to build audit record: %w", err)
	}
	if err := s.auditRepo.WithTx(tx).Create(ctx, rec); err != nil {
		return nil, err
	}

	msg, err := outbox.NewMessage(shared.EventPaymentVoided, p.ID, paymentVoidedEvent{
		TransactionID:  p.ID,
		TransactionRef: p.TransactionRef,
		StudentID:      p.StudentID,
		Amount:         p.Amount,
		Reason:         req.Reason,
		VoidedBy:       req.VoidedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := s.outboxRepo.WithTx(tx).Create(ctx, msg); err != nil {
		return nil, err
	}

	return &VoidPaymentResult{
		Payment:        &voided,
		ReversedAmount: reversed,
		CreditReversed: creditReversed,
	}, nil
}

// Package payments implements the money-moving core: recording fee payments
// with invoice allocation, voiding, invoice creation and credit application.
// Every public operation runs as one database transaction; partial financial
// state is never visible.
package payments

import (
	"context"
	"fmt"
	"log/slog"
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
	"github.com/campus-finance-ledger/internal/domain/staff"
	"github.com/campus-finance-ledger/internal/domain/student"
	"github.com/campus-finance-ledger/internal/finance/validator"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// DuplicateWindow is how far back the double-submit guards look for an
// identical payment or invoice.
const DuplicateWindow = 15 * time.Second

// RecordPaymentRequest carries everything needed to record a fee payment
type RecordPaymentRequest struct {
	StudentID       uuid.UUID
	Amount          int64
	TransactionDate time.Time
	Method          shared.PaymentMethod
	Reference       string
	RecordedBy      uuid.UUID
	// InvoiceID optionally targets one invoice to be allocated first
	InvoiceID *uuid.UUID
	// ApprovalRequestID, when set, must reference a terminally approved
	// request matching the payment amount
	ApprovalRequestID *uuid.UUID
}

// RecordPaymentResult reports what a recorded payment settled
type RecordPaymentResult struct {
	Payment       *payment.Payment
	Allocated     int64
	CreditCreated int64
	// Duplicate is true when an identical recent payment short-circuited
	// the operation and Payment is the existing row
	Duplicate bool
}

// VoidPaymentRequest identifies the payment to void and why
type VoidPaymentRequest struct {
	TransactionID uuid.UUID
	Reason        string
	VoidedBy      uuid.UUID
}

// VoidPaymentResult reports what the void unwound
type VoidPaymentResult struct {
	Payment        *payment.Payment
	ReversedAmount int64
	CreditReversed int64
}

// CreateInvoiceRequest carries a new fee invoice
type CreateInvoiceRequest struct {
	StudentID   uuid.UUID
	Term        string
	TotalAmount int64
	InvoiceDate time.Time
	DueDate     time.Time
	CreatedBy   uuid.UUID
}

// CreateInvoiceResult reports the created (or pre-existing) invoice
type CreateInvoiceResult struct {
	Invoice       *invoice.Invoice
	CreditApplied int64
	Duplicate     bool
}

// ApplyCreditResult reports how much credit was spread over which invoices
type ApplyCreditResult struct {
	Applied      int64
	InvoiceCount int
}

// Service is the payment processing API
type Service interface {
	RecordPayment(ctx context.Context, req *RecordPaymentRequest) (*RecordPaymentResult, error)
	VoidPayment(ctx context.Context, req *VoidPaymentRequest) (*VoidPaymentResult, error)
	CreateInvoice(ctx context.Context, req *CreateInvoiceRequest) (*CreateInvoiceResult, error)
	ApplyCredit(ctx context.Context, studentID, appliedBy uuid.UUID) (*ApplyCreditResult, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, []*payment.Allocation, error)
}

// ServiceImpl implements Service on the Postgres repositories
type ServiceImpl struct {
	beginTx      func(ctx context.Context) (pgx.Tx, error)
	paymentRepo  payment.Repository
	invoiceRepo  invoice.Repository
	studentRepo  student.Repository
	staffRepo    staff.Repository
	creditRepo   credit.Repository
	journalRepo  journal.Repository
	approvalRepo approval.Repository
	auditRepo    audit.Repository
	outboxRepo   outbox.Repository
	validator    validator.Validator
	logger       *slog.Logger
}

// NewService creates a new payment service
func NewService(
	pgDB *persistence.PostgresDB,
	paymentRepo payment.Repository,
	invoiceRepo invoice.Repository,
	studentRepo student.Repository,
	staffRepo staff.Repository,
	creditRepo credit.Repository,
	journalRepo journal.Repository,
	approvalRepo approval.Repository,
	auditRepo audit.Repository,
	outboxRepo outbox.Repository,
	paymentValidator validator.Validator,
	logger *slog.Logger,
) Service {
	return &ServiceImpl{
		beginTx:      pgDB.Pool().Begin,
		paymentRepo:  paymentRepo,
		invoiceRepo:  invoiceRepo,
		studentRepo:  studentRepo,
		staffRepo:    staffRepo,
		creditRepo:   creditRepo,
		journalRepo:  journalRepo,
		approvalRepo: approvalRepo,
		auditRepo:    auditRepo,
		outboxRepo:   outboxRepo,
		validator:    paymentValidator,
		logger:       logger,
	}
}

// GetPayment returns a payment with its allocations
func (s *ServiceImpl) GetPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, []*payment.Allocation, error) {
	p, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	allocations, err := s.paymentRepo.ListAllocations(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return p, allocations, nil
}

// inTx runs fn inside one transaction with rollback on error or panic
func (s *ServiceImpl) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			s.logger.Error("Failed to rollback transaction", "rollback_error", rbErr, "original_error", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// requireActor verifies the acting user exists, returning a ValidationError
// naming the role otherwise
func (s *ServiceImpl) requireActor(ctx context.Context, tx pgx.Tx, userID uuid.UUID, role string) error {
	if userID == uuid.Nil {
		return shared.NewValidationError(role + " is required")
	}
	exists, err := s.staffRepo.WithTx(tx).Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to check user %s: %w", userID.String(), err)
	}
	if !exists {
		return shared.NewValidationError(role + " does not reference an existing user")
	}
	return nil
}

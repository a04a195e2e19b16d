package payments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/campus-finance-ledger/internal/domain/credit"
	"github.com/campus-finance-ledger/internal/domain/invoice"
	"github.com/campus-finance-ledger/internal/domain/journal"
	"github.com/campus-finance-ledger/internal/domain/shared"
	"github.com/campus-finance-ledger/internal/domain/student"
)

func TestCreateInvoice_ValidationErrors(t *testing.T) {
	now := time.Now()

	testCases := []struct {
		name    string
		req     *CreateInvoiceRequest
		message string
	}{
		{
			name:    "missing term",
			req:     &CreateInvoiceRequest{StudentID: uuid.New(), TotalAmount: 5000, InvoiceDate: now, DueDate: now},
			message: "term is required",
		},
		{
			name:    "zero total",
			req:     &CreateInvoiceRequest{StudentID: uuid.New(), Term: "2026-T1", InvoiceDate: now, DueDate: now},
			message: "invoice total must be greater than zero",
		},
		{
			name:    "due before invoice date",
			req:     &CreateInvoiceRequest{StudentID: uuid.New(), Term: "2026-T1", TotalAmount: 5000, InvoiceDate: now, DueDate: now.AddDate(0, 0, -1)},
			message: "due date cannot be before the invoice date",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t)

			result, err := svc.CreateInvoice(context.Background(), tc.req)

			assert.Nil(t, result)
			var vErr *shared.ValidationError
			assert.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.message, vErr.Message)
		})
	}
}

func TestCreateInvoice_DuplicateReturnsExisting(t *testing.T) {
	svc, m := newTestService(t)
	studentID := uuid.New()
	createdBy := uuid.New()
	now := time.Now()

	existing := openInvoice(studentID, 5000, 0, now.AddDate(0, 1, 0))

	m.students.On("LockForUpdate", mock.Anything, studentID).
		Return(&student.Student{ID: studentID, Active: true}, nil)
	m.staff.On("Exists", mock.Anything, createdBy).Return(true, nil)
	m.invoices.On("FindRecentDuplicate", mock.Anything, mock.AnythingOfType("*invoice.Invoice"), DuplicateWindow).
		Return(existing, nil)

	result, err := svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		StudentID:   studentID,
		Term:        "2026-T1",
		TotalAmount: 5000,
		InvoiceDate: now,
		DueDate:     now.AddDate(0, 1, 0),
		CreatedBy:   createdBy,
	})

	assert.NoError(t, err)
	assert.True(t, result.Duplicate)
	assert.Equal(t, existing.ID, result.Invoice.ID)
	m.invoices.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	m.journal.AssertNotCalled(t, "CreateEntry", mock.Anything, mock.Anything)
}

func TestCreateInvoice_PostsIssuanceAndAppliesCredit(t *testing.T) {
	svc, m := newTestService(t)
	studentID := uuid.New()
	createdBy := uuid.New()
	now := time.Now()

	m.students.On("LockForUpdate", mock.Anything, studentID).
		Return(&student.Student{ID: studentID, Active: true, CreditBalance: 3000}, nil)
	m.staff.On("Exists", mock.Anything, createdBy).Return(true, nil)
	m.invoices.On("FindRecentDuplicate", mock.Anything, mock.AnythingOfType("*invoice.Invoice"), DuplicateWindow).
		Return(nil, nil)
	m.invoices.On("Create", mock.Anything, mock.AnythingOfType("*invoice.Invoice")).Return(nil)

	var entries []*journal.Entry
	m.journal.On("CreateEntry", mock.Anything, mock.AnythingOfType("*journal.Entry")).
		Run(func(args mock.Arguments) {
			entries = append(entries, args.Get(1).(*journal.Entry))
		}).Return(nil)

	var applied *credit.Transaction
	m.credits.On("Create", mock.Anything, mock.AnythingOfType("*credit.Transaction")).
		Run(func(args mock.Arguments) {
			applied = args.Get(1).(*credit.Transaction)
		}).Return(nil)
	m.invoices.On("UpdateSettlement", mock.Anything, mock.AnythingOfType("*invoice.Invoice")).Return(nil)
	m.students.On("AdjustCreditBalance", mock.Anything, studentID, int64(-3000)).Return(nil)
	m.audits.On("Create", mock.Anything, mock.AnythingOfType("*audit.Record")).Return(nil)
	m.outbox.On("Create", mock.Anything, mock.AnythingOfType("*outbox.Message")).Return(nil)

	result, err := svc.CreateInvoice(context.Background(), &CreateInvoiceRequest{
		StudentID:   studentID,
		Term:        "2026-T1",
		TotalAmount: 10000,
		InvoiceDate: now,
		DueDate:     now.AddDate(0, 1, 0),
		CreatedBy:   createdBy,
	})

	assert.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, int64(3000), result.CreditApplied)
	assert.Equal(t, invoice.StatusPartiallyPaid, result.Invoice.Status)
	assert.Equal(t, int64(3000), result.Invoice.AmountPaid)

	// One issuance posting plus one credit-application posting.
	assert.Len(t, entries, 2)
	if assert.NotNil(t, applied) {
		assert.Equal(t, credit.TypeCreditApplied, applied.Type)
		assert.Equal(t, int64(3000), applied.Amount)
	}
}

func TestApplyCredit_NoCreditIsNoop(t *testing.T) {
	svc, m := newTestService(t)
	studentID := uuid.New()
	appliedBy := uuid.New()

	m.students.On("LockForUpdate", mock.Anything, studentID).
		Return(&student.Student{ID: studentID, Active: true, CreditBalance: 0}, nil)
	m.staff.On("Exists", mock.Anything, appliedBy).Return(true, nil)

	result, err := svc.ApplyCredit(context.Background(), studentID, appliedBy)

	assert.NoError(t, err)
	assert.Equal(t, int64(0), result.Applied)
	assert.Equal(t, 0, result.InvoiceCount)
	m.invoices.AssertNotCalled(t, "LockSettleableByStudent", mock.Anything, mock.Anything)
}

func TestApplyCredit_SpreadsOverOpenInvoices(t *testing.T) {
	svc, m := newTestService(t)
	studentID := uuid.New()
	appliedBy := uuid.New()
	now := time.Now()

	first := openInvoice(studentID, 4000, 0, now.AddDate(0, 0, -3))
	second := openInvoice(studentID, 5000, 0, now.AddDate(0, 0, 7))

	m.students.On("LockForUpdate", mock.Anything, studentID).
		Return(&student.Student{ID: studentID, Active: true, CreditBalance: 6000}, nil)
	m.staff.On("Exists", mock.Anything, appliedBy).Return(true, nil)
	m.invoices.On("LockSettleableByStudent", mock.Anything, studentID).
		Return([]*invoice.Invoice{first, second}, nil)
	m.credits.On("Create", mock.Anything, mock.AnythingOfType("*credit.Transaction")).Return(nil)
	m.invoices.On("UpdateSettlement", mock.Anything, mock.AnythingOfType("*invoice.Invoice")).Return(nil)
	m.students.On("AdjustCreditBalance", mock.Anything, studentID, int64(-6000)).Return(nil)
	m.journal.On("CreateEntry", mock.Anything, mock.AnythingOfType("*journal.Entry")).Return(nil)
	m.audits.On("Create", mock.Anything, mock.AnythingOfType("*audit.Record")).Return(nil)
	m.outbox.On("Create", mock.Anything, mock.AnythingOfType("*outbox.Message")).Return(nil)

	result, err := svc.ApplyCredit(context.Background(), studentID, appliedBy)

	assert.NoError(t, err)
	assert.Equal(t, int64(6000), result.Applied)
	assert.Equal(t, 2, result.InvoiceCount)
	assert.Equal(t, invoice.StatusPaid, first.Status)
	assert.Equal(t, invoice.StatusPartiallyPaid, second.Status)
	assert.Equal(t, int64(2000), second.AmountPaid)
}

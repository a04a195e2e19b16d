package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"

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
)

// Mock implementations of the service dependencies. WithTx returns the mock
// itself so expectations set on the mock hold inside transactions too.

// MockTx implements the pgx.Tx interface for testing
type MockTx struct {
	mock.Mock
}

func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}

func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return &pgconn.StatementDescription{}, nil
}

func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func (m *MockTx) LargeObjects() pgx.LargeObjects {
	return pgx.LargeObjects{}
}

func (m *MockTx) Conn() *pgx.Conn {
	return nil
}

type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) LockByID(ctx context.Context, id uuid.UUID) (*payment.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) FindRecentDuplicate(ctx context.Context, studentID uuid.UUID, amount int64, method shared.PaymentMethod, reference string, window time.Duration) (*payment.Payment, error) {
	args := m.Called(ctx, studentID, amount, method, reference, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payment.Payment), args.Error(1)
}

func (m *MockPaymentRepository) MarkVoided(ctx context.Context, id uuid.UUID, reason string, voidedBy uuid.UUID, voidedAt time.Time) error {
	args := m.Called(ctx, id, reason, voidedBy, voidedAt)
	return args.Error(0)
}

func (m *MockPaymentRepository) CreateAllocation(ctx context.Context, a *payment.Allocation) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockPaymentRepository) ListAllocations(ctx context.Context, paymentID uuid.UUID) ([]*payment.Allocation, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*payment.Allocation), args.Error(1)
}

func (m *MockPaymentRepository) CreateVoidAudit(ctx context.Context, va *payment.VoidAudit) error {
	args := m.Called(ctx, va)
	return args.Error(0)
}

func (m *MockPaymentRepository) WithTx(tx pgx.Tx) payment.Repository {
	return m
}

type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) GetByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) LockByID(ctx context.Context, id uuid.UUID) (*invoice.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ListSettleableByStudent(ctx context.Context, studentID uuid.UUID) ([]*invoice.Invoice, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) LockSettleableByStudent(ctx context.Context, studentID uuid.UUID) ([]*invoice.Invoice, error) {
	args := m.Called(ctx, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) UpdateSettlement(ctx context.Context, inv *invoice.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockInvoiceRepository) FindRecentDuplicate(ctx context.Context, inv *invoice.Invoice, window time.Duration) (*invoice.Invoice, error) {
	args := m.Called(ctx, inv, window)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*invoice.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) WithTx(tx pgx.Tx) invoice.Repository {
	return m
}

type MockStudentRepository struct {
	mock.Mock
}

func (m *MockStudentRepository) GetByID(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.Student), args.Error(1)
}

func (m *MockStudentRepository) LockForUpdate(ctx context.Context, id uuid.UUID) (*student.Student, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*student.Student), args.Error(1)
}

func (m *MockStudentRepository) AdjustCreditBalance(ctx context.Context, id uuid.UUID, delta int64) error {
	args := m.Called(ctx, id, delta)
	return args.Error(0)
}

func (m *MockStudentRepository) WithTx(tx pgx.Tx) student.Repository {
	return m
}

type MockStaffRepository struct {
	mock.Mock
}

func (m *MockStaffRepository) GetByID(ctx context.Context, id uuid.UUID) (*staff.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*staff.User), args.Error(1)
}

func (m *MockStaffRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStaffRepository) WithTx(tx pgx.Tx) staff.Repository {
	return m
}

type MockCreditRepository struct {
	mock.Mock
}

func (m *MockCreditRepository) Create(ctx context.Context, t *credit.Transaction) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockCreditRepository) ListBySourcePayment(ctx context.Context, paymentID uuid.UUID) ([]*credit.Transaction, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*credit.Transaction), args.Error(1)
}

func (m *MockCreditRepository) WithTx(tx pgx.Tx) credit.Repository {
	return m
}

type MockJournalRepository struct {
	mock.Mock
}

func (m *MockJournalRepository) CreateEntry(ctx context.Context, entry *journal.Entry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockJournalRepository) VoidBySourceTransaction(ctx context.Context, sourceTxnID uuid.UUID, voidedAt time.Time) (int64, error) {
	args := m.Called(ctx, sourceTxnID, voidedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockJournalRepository) GetAccountByCode(ctx context.Context, code string) (*journal.Account, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*journal.Account), args.Error(1)
}

func (m *MockJournalRepository) WithTx(tx pgx.Tx) journal.Repository {
	return m
}

type MockApprovalRepository struct {
	mock.Mock
}

func (m *MockApprovalRepository) CreateRequest(ctx context.Context, req *approval.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockApprovalRepository) GetRequest(ctx context.Context, id uuid.UUID) (*approval.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Request), args.Error(1)
}

func (m *MockApprovalRepository) LockRequest(ctx context.Context, id uuid.UUID) (*approval.Request, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Request), args.Error(1)
}

func (m *MockApprovalRepository) UpdateRequest(ctx context.Context, req *approval.Request) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockApprovalRepository) CreateLevels(ctx context.Context, levels []*approval.Level) error {
	args := m.Called(ctx, levels)
	return args.Error(0)
}

func (m *MockApprovalRepository) GetLevel(ctx context.Context, requestID uuid.UUID, level int) (*approval.Level, error) {
	args := m.Called(ctx, requestID, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*approval.Level), args.Error(1)
}

func (m *MockApprovalRepository) UpdateLevel(ctx context.Context, lvl *approval.Level) error {
	args := m.Called(ctx, lvl)
	return args.Error(0)
}

func (m *MockApprovalRepository) ListLevels(ctx context.Context, requestID uuid.UUID) ([]*approval.Level, error) {
	args := m.Called(ctx, requestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Level), args.Error(1)
}

func (m *MockApprovalRepository) ListQueue(ctx context.Context, level int, requestType *approval.RequestType) ([]*approval.Request, error) {
	args := m.Called(ctx, level, requestType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Request), args.Error(1)
}

func (m *MockApprovalRepository) ListActiveConfigurations(ctx context.Context, requestType approval.RequestType) ([]*approval.Configuration, error) {
	args := m.Called(ctx, requestType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*approval.Configuration), args.Error(1)
}

func (m *MockApprovalRepository) WithTx(tx pgx.Tx) approval.Repository {
	return m
}

type MockAuditRepository struct {
	mock.Mock
}

func (m *MockAuditRepository) Create(ctx context.Context, rec *audit.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockAuditRepository) WithTx(tx pgx.Tx) audit.Repository {
	return m
}

type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) Create(ctx context.Context, message *outbox.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockOutboxRepository) GetPending(ctx context.Context, limit int) ([]*outbox.Message, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*outbox.Message), args.Error(1)
}

func (m *MockOutboxRepository) UpdateStatus(ctx context.Context, id int64, status shared.OutboxStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockOutboxRepository) IncrementAttempts(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOutboxRepository) WithTx(tx pgx.Tx) outbox.Repository {
	return m
}

type MockValidator struct {
	mock.Mock
}

func (m *MockValidator) ValidatePayment(ctx context.Context, tx pgx.Tx, studentID uuid.UUID, amount int64) (*validator.Result, error) {
	args := m.Called(ctx, tx, studentID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*validator.Result), args.Error(1)
}

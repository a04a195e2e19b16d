package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/campus-finance-ledger/internal/domain/invoice"
	"github.com/campus-finance-ledger/internal/domain/payment"
	"github.com/campus-finance-ledger/internal/domain/shared"
	"github.com/campus-finance-ledger/internal/finance/payments"
)

type MockPaymentService struct {
	mock.Mock
}

func (m *MockPaymentService) RecordPayment(ctx context.Context, req *payments.RecordPaymentRequest) (*payments.RecordPaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.RecordPaymentResult), args.Error(1)
}

func (m *MockPaymentService) VoidPayment(ctx context.Context, req *payments.VoidPaymentRequest) (*payments.VoidPaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.VoidPaymentResult), args.Error(1)
}

func (m *MockPaymentService) CreateInvoice(ctx context.Context, req *payments.CreateInvoiceRequest) (*payments.CreateInvoiceResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.CreateInvoiceResult), args.Error(1)
}

func (m *MockPaymentService) ApplyCredit(ctx context.Context, studentID, appliedBy uuid.UUID) (*payments.ApplyCreditResult, error) {
	args := m.Called(ctx, studentID, appliedBy)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*payments.ApplyCreditResult), args.Error(1)
}

func (m *MockPaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*payment.Payment, []*payment.Allocation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*payment.Payment), args.Get(1).([]*payment.Allocation), args.Error(2)
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.Default()
	return r
}

func activePayment(studentID uuid.UUID, amount int64) *payment.Payment {
	return &payment.Payment{
		ID:              uuid.New(),
		StudentID:       studentID,
		Type:            shared.TransactionTypeFeePayment,
		Amount:          amount,
		Method:          shared.PaymentMethodCash,
		TransactionDate: time.Now(),
		TransactionRef:  "TXN-20260830-1A2B3C",
		ReceiptNumber:   "RCT-20260830-1A2B3C",
		Status:          shared.PaymentStatusActive,
		RecordedBy:      uuid.New(),
		CreatedAt:       time.Now(),
	}
}

func decodeData[T any](t *testing.T, body []byte) T {
	t.Helper()
	var topLevel Response
	require.NoError(t, json.Unmarshal(body, &topLevel))
	require.NotNil(t, topLevel.Data, "'data' field should not be nil")

	dataBytes, err := json.Marshal(topLevel.Data)
	require.NoError(t, err)
	var out T
	require.NoError(t, json.Unmarshal(dataBytes, &out))
	return out
}

func TestPaymentHandler_RecordPayment(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		studentID := uuid.New()
		recordedBy := uuid.New()
		p := activePayment(studentID, 10000)
		result := &payments.RecordPaymentResult{
			Payment:       p,
			Allocated:     8000,
			CreditCreated: 2000,
		}

		mockService.On("RecordPayment", mock.Anything, mock.MatchedBy(func(req *payments.RecordPaymentRequest) bool {
			return req.StudentID == studentID &&
				req.Amount == 10000 &&
				req.Method == shared.PaymentMethodCash &&
				req.RecordedBy == recordedBy &&
				req.TransactionDate.Format("2006-01-02") == "2026-08-30"
		})).Return(result, nil)

		router := setupTestRouter()
		router.POST("/payments", handler.RecordPayment)

		reqBody := RecordPaymentRequest{
			StudentID:       studentID.String(),
			Amount:          10000,
			TransactionDate: "2026-08-30",
			Method:          "CASH",
			RecordedBy:      recordedBy.String(),
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)

		resp := decodeData[PaymentResponse](t, rr.Body.Bytes())
		assert.Equal(t, p.ID.String(), resp.TransactionID)
		assert.Equal(t, p.ReceiptNumber, resp.ReceiptNumber)
		assert.Equal(t, int64(8000), resp.Allocated)
		assert.Equal(t, int64(2000), resp.CreditCreated)
		assert.False(t, resp.Duplicate)

		mockService.AssertExpectations(t)
	})

	t.Run("DuplicateReturnsOK", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		studentID := uuid.New()
		p := activePayment(studentID, 10000)
		result := &payments.RecordPaymentResult{Payment: p, Allocated: 10000, Duplicate: true}

		mockService.On("RecordPayment", mock.Anything, mock.Anything).Return(result, nil)

		router := setupTestRouter()
		router.POST("/payments", handler.RecordPayment)

		reqBody := RecordPaymentRequest{
			StudentID:       studentID.String(),
			Amount:          10000,
			TransactionDate: "2026-08-30",
			Method:          "CASH",
			RecordedBy:      uuid.New().String(),
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code, "duplicate short-circuit is not a creation")
		resp := decodeData[PaymentResponse](t, rr.Body.Bytes())
		assert.True(t, resp.Duplicate)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidRequestBody", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/payments", handler.RecordPayment)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBufferString(`{"invalid`))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("UnknownMethodRejectedByBinding", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/payments", handler.RecordPayment)

		reqBody := RecordPaymentRequest{
			StudentID:       uuid.New().String(),
			Amount:          10000,
			TransactionDate: "2026-08-30",
			Method:          "BARTER",
			RecordedBy:      uuid.New().String(),
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("BadDateFormat", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/payments", handler.RecordPayment)

		reqBody := RecordPaymentRequest{
			StudentID:       uuid.New().String(),
			Amount:          10000,
			TransactionDate: "30/08/2026",
			Method:          "CASH",
			RecordedBy:      uuid.New().String(),
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("ValidationErrorFromService", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		mockService.On("RecordPayment", mock.Anything, mock.Anything).
			Return(nil, &shared.ValidationError{Message: "student does not exist"})

		router := setupTestRouter()
		router.POST("/payments", handler.RecordPayment)

		reqBody := RecordPaymentRequest{
			StudentID:       uuid.New().String(),
			Amount:          10000,
			TransactionDate: "2026-08-30",
			Method:          "CASH",
			RecordedBy:      uuid.New().String(),
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "student does not exist")
		mockService.AssertExpectations(t)
	})

	t.Run("ServiceError", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		mockService.On("RecordPayment", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		router := setupTestRouter()
		router.POST("/payments", handler.RecordPayment)

		reqBody := RecordPaymentRequest{
			StudentID:       uuid.New().String(),
			Amount:          10000,
			TransactionDate: "2026-08-30",
			Method:          "CASH",
			RecordedBy:      uuid.New().String(),
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusInternalServerError, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestPaymentHandler_VoidPayment(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		p := activePayment(uuid.New(), 10000)
		p.Status = shared.PaymentStatusVoided
		now := time.Now()
		p.VoidedAt = &now
		voidedBy := uuid.New()

		mockService.On("VoidPayment", mock.Anything, mock.MatchedBy(func(req *payments.VoidPaymentRequest) bool {
			return req.TransactionID == p.ID && req.Reason == "entered twice" && req.VoidedBy == voidedBy
		})).Return(&payments.VoidPaymentResult{
			Payment:        p,
			ReversedAmount: 8000,
			CreditReversed: 2000,
		}, nil)

		router := setupTestRouter()
		router.POST("/payments/:id/void", handler.VoidPayment)

		reqBody := VoidPaymentRequest{Reason: "entered twice", VoidedBy: voidedBy.String()}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments/"+p.ID.String()+"/void", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		resp := decodeData[VoidPaymentResponse](t, rr.Body.Bytes())
		assert.Equal(t, "VOIDED", resp.Status)
		assert.Equal(t, int64(8000), resp.ReversedAmount)
		assert.Equal(t, int64(2000), resp.CreditReversed)
		assert.NotEmpty(t, resp.VoidedAt)
		mockService.AssertExpectations(t)
	})

	t.Run("InvalidPaymentID", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/payments/:id/void", handler.VoidPayment)

		reqBody := VoidPaymentRequest{Reason: "entered twice", VoidedBy: uuid.New().String()}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments/not-a-uuid/void", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("MissingReason", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		router := setupTestRouter()
		router.POST("/payments/:id/void", handler.VoidPayment)

		reqBody := VoidPaymentRequest{VoidedBy: uuid.New().String()}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/payments/"+uuid.New().String()+"/void", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestPaymentHandler_GetPayment(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("NotFound", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		paymentID := uuid.New()
		mockService.On("GetPayment", mock.Anything, paymentID).
			Return(nil, nil, payment.ErrPaymentNotFound{PaymentID: paymentID})

		router := setupTestRouter()
		router.GET("/payments/:id", handler.GetPayment)

		req, _ := http.NewRequest(http.MethodGet, "/payments/"+paymentID.String(), nil)
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusNotFound, rr.Code)
		mockService.AssertExpectations(t)
	})
}

func TestPaymentHandler_CreateInvoice(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	t.Run("Success", func(t *testing.T) {
		mockService := new(MockPaymentService)
		handler := NewPaymentHandler(logger, mockService)

		studentID := uuid.New()
		createdBy := uuid.New()
		invoiceDate, _ := time.Parse("2006-01-02", "2026-09-01")
		dueDate, _ := time.Parse("2006-01-02", "2026-09-30")

		mockService.On("CreateInvoice", mock.Anything, mock.MatchedBy(func(req *payments.CreateInvoiceRequest) bool {
			return req.StudentID == studentID &&
				req.Term == "2026-FALL" &&
				req.TotalAmount == 250000 &&
				req.InvoiceDate.Equal(invoiceDate) &&
				req.DueDate.Equal(dueDate)
		})).Return(&payments.CreateInvoiceResult{
			Invoice: &invoice.Invoice{
				ID:          uuid.New(),
				StudentID:   studentID,
				Term:        "2026-FALL",
				TotalAmount: 250000,
				InvoiceDate: invoiceDate,
				DueDate:     dueDate,
				Status:      invoice.StatusOutstanding,
				CreatedBy:   createdBy,
				CreatedAt:   time.Now(),
			},
		}, nil)

		router := setupTestRouter()
		router.POST("/invoices", handler.CreateInvoice)

		reqBody := CreateInvoiceRequest{
			StudentID:   studentID.String(),
			Term:        "2026-FALL",
			TotalAmount: 250000,
			InvoiceDate: "2026-09-01",
			DueDate:     "2026-09-30",
			CreatedBy:   createdBy.String(),
		}
		jsonBody, _ := json.Marshal(reqBody)

		req, _ := http.NewRequest(http.MethodPost, "/invoices", bytes.NewBuffer(jsonBody))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()

		router.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusCreated, rr.Code)
		resp := decodeData[InvoiceResponse](t, rr.Body.Bytes())
		assert.Equal(t, "2026-FALL", resp.Term)
		assert.Equal(t, int64(250000), resp.TotalAmount)
		assert.Equal(t, "OUTSTANDING", resp.Status)
		mockService.AssertExpectations(t)
	})
}

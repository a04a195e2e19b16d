package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campus-finance-ledger/internal/domain/payment"
	"github.com/campus-finance-ledger/internal/domain/shared"
	"github.com/campus-finance-ledger/internal/finance/payments"
)

// dateLayout is the wire format for pure dates
const dateLayout = "2006-01-02"

// PaymentHandler handles HTTP requests for payments, invoices and credit
type PaymentHandler struct {
	paymentSvc payments.Service
	logger     *slog.Logger
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentSvc payments.Service) *PaymentHandler {
	return &PaymentHandler{
		paymentSvc: paymentSvc,
		logger:     logger,
	}
}

// respondServiceError maps service errors onto the envelope: validation and
// configuration failures are the caller's fault, everything else is ours.
func respondServiceError(c *gin.Context, logger *slog.Logger, err error) {
	var vErr *shared.ValidationError
	if errors.As(err, &vErr) {
		RespondBadRequest(c, vErr.Message)
		return
	}
	var cErr *shared.ConfigurationError
	if errors.As(err, &cErr) {
		RespondBadRequest(c, cErr.Message)
		return
	}
	logger.Error("Request failed", "error", err)
	RespondInternalError(c)
}

// RecordPayment records a fee payment
func (h *PaymentHandler) RecordPayment(c *gin.Context) {
	var req RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	txnDate, err := time.Parse(dateLayout, req.TransactionDate)
	if err != nil {
		RespondBadRequest(c, "transaction_date must be a date in YYYY-MM-DD form")
		return
	}

	svcReq := &payments.RecordPaymentRequest{
		StudentID:       uuid.MustParse(req.StudentID),
		Amount:          req.Amount,
		TransactionDate: txnDate,
		Method:          shared.PaymentMethod(req.Method),
		Reference:       req.Reference,
		RecordedBy:      uuid.MustParse(req.RecordedBy),
	}
	if req.InvoiceID != "" {
		id := uuid.MustParse(req.InvoiceID)
		svcReq.InvoiceID = &id
	}
	if req.ApprovalRequestID != "" {
		id := uuid.MustParse(req.ApprovalRequestID)
		svcReq.ApprovalRequestID = &id
	}

	result, err := h.paymentSvc.RecordPayment(c.Request.Context(), svcReq)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	resp := mapPaymentResult(result)
	if result.Duplicate {
		RespondOK(c, resp)
		return
	}
	RespondCreated(c, resp)
}

// VoidPayment voids a recorded payment
func (h *PaymentHandler) VoidPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid payment ID")
		return
	}

	var req VoidPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentSvc.VoidPayment(c.Request.Context(), &payments.VoidPaymentRequest{
		TransactionID: paymentID,
		Reason:        req.Reason,
		VoidedBy:      uuid.MustParse(req.VoidedBy),
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	resp := VoidPaymentResponse{
		TransactionID:  result.Payment.ID.String(),
		Status:         string(result.Payment.Status),
		ReversedAmount: result.ReversedAmount,
		CreditReversed: result.CreditReversed,
	}
	if result.Payment.VoidedAt != nil {
		resp.VoidedAt = result.Payment.VoidedAt.UTC().Format(time.RFC3339)
	}
	RespondOK(c, resp)
}

// GetPayment returns a payment with its allocations
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid payment ID")
		return
	}

	p, allocations, err := h.paymentSvc.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		if errors.Is(err, payment.ErrPaymentNotFound{}) {
			RespondNotFound(c, "Payment not found")
			return
		}
		h.logger.Error("Failed to get payment", "payment_id", paymentID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	var allocated int64
	for _, a := range allocations {
		allocated += a.AppliedAmount
	}
	RespondOK(c, gin.H{
		"payment":     mapPayment(p, allocated, p.Amount-allocated, false),
		"allocations": allocations,
	})
}

// CreateInvoice issues a fee invoice
func (h *PaymentHandler) CreateInvoice(c *gin.Context) {
	var req CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	invoiceDate, err := time.Parse(dateLayout, req.InvoiceDate)
	if err != nil {
		RespondBadRequest(c, "invoice_date must be a date in YYYY-MM-DD form")
		return
	}
	dueDate, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		RespondBadRequest(c, "due_date must be a date in YYYY-MM-DD form")
		return
	}

	result, err := h.paymentSvc.CreateInvoice(c.Request.Context(), &payments.CreateInvoiceRequest{
		StudentID:   uuid.MustParse(req.StudentID),
		Term:        req.Term,
		TotalAmount: req.TotalAmount,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		CreatedBy:   uuid.MustParse(req.CreatedBy),
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	inv := result.Invoice
	resp := InvoiceResponse{
		ID:            inv.ID.String(),
		StudentID:     inv.StudentID.String(),
		Term:          inv.Term,
		TotalAmount:   inv.TotalAmount,
		AmountPaid:    inv.AmountPaid,
		Status:        string(inv.Status),
		InvoiceDate:   inv.InvoiceDate.Format(dateLayout),
		DueDate:       inv.DueDate.Format(dateLayout),
		CreditApplied: result.CreditApplied,
		Duplicate:     result.Duplicate,
	}
	if result.Duplicate {
		RespondOK(c, resp)
		return
	}
	RespondCreated(c, resp)
}

// ApplyCredit spreads a student's credit over their open invoices
func (h *PaymentHandler) ApplyCredit(c *gin.Context) {
	var req ApplyCreditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.paymentSvc.ApplyCredit(c.Request.Context(), uuid.MustParse(req.StudentID), uuid.MustParse(req.AppliedBy))
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	RespondOK(c, ApplyCreditResponse{
		StudentID:    req.StudentID,
		Applied:      result.Applied,
		InvoiceCount: result.InvoiceCount,
	})
}

func mapPaymentResult(result *payments.RecordPaymentResult) PaymentResponse {
	return mapPayment(result.Payment, result.Allocated, result.CreditCreated, result.Duplicate)
}

func mapPayment(p *payment.Payment, allocated, creditCreated int64, duplicate bool) PaymentResponse {
	return PaymentResponse{
		TransactionID:  p.ID.String(),
		TransactionRef: p.TransactionRef,
		ReceiptNumber:  p.ReceiptNumber,
		StudentID:      p.StudentID.String(),
		Amount:         p.Amount,
		Method:         string(p.Method),
		Status:         string(p.Status),
		Allocated:      allocated,
		CreditCreated:  creditCreated,
		Duplicate:      duplicate,
		CreatedAt:      p.CreatedAt.UTC().Format(time.RFC3339),
	}
}

package handler

// RecordPaymentRequest is the POST /payments body
type RecordPaymentRequest struct {
	StudentID         string `json:"student_id" binding:"required,uuid"`
	Amount            int64  `json:"amount" binding:"required,gt=0"`
	TransactionDate   string `json:"transaction_date" binding:"required"`
	Method            string `json:"method" binding:"required,oneof=CASH BANK_TRANSFER MOBILE_MONEY CHEQUE"`
	Reference         string `json:"reference,omitempty"`
	RecordedBy        string `json:"recorded_by" binding:"required,uuid"`
	InvoiceID         string `json:"invoice_id,omitempty" binding:"omitempty,uuid"`
	ApprovalRequestID string `json:"approval_request_id,omitempty" binding:"omitempty,uuid"`
}

// PaymentResponse describes a recorded payment
type PaymentResponse struct {
	TransactionID  string `json:"transaction_id"`
	TransactionRef string `json:"transaction_ref"`
	ReceiptNumber  string `json:"receipt_number"`
	StudentID      string `json:"student_id"`
	Amount         int64  `json:"amount"`
	Method         string `json:"method"`
	Status         string `json:"status"`
	Allocated      int64  `json:"allocated"`
	CreditCreated  int64  `json:"credit_created"`
	Duplicate      bool   `json:"duplicate"`
	CreatedAt      string `json:"created_at"`
}

// VoidPaymentRequest is the POST /payments/:id/void body
type VoidPaymentRequest struct {
	Reason   string `json:"reason" binding:"required"`
	VoidedBy string `json:"voided_by" binding:"required,uuid"`
}

// VoidPaymentResponse describes the outcome of a void
type VoidPaymentResponse struct {
	TransactionID  string `json:"transaction_id"`
	Status         string `json:"status"`
	ReversedAmount int64  `json:"reversed_amount"`
	CreditReversed int64  `json:"credit_reversed"`
	VoidedAt       string `json:"voided_at,omitempty"`
}

// CreateInvoiceRequest is the POST /invoices body
type CreateInvoiceRequest struct {
	StudentID   string `json:"student_id" binding:"required,uuid"`
	Term        string `json:"term" binding:"required"`
	TotalAmount int64  `json:"total_amount" binding:"required,gt=0"`
	InvoiceDate string `json:"invoice_date" binding:"required"`
	DueDate     string `json:"due_date" binding:"required"`
	CreatedBy   string `json:"created_by" binding:"required,uuid"`
}

// InvoiceResponse describes a fee invoice
type InvoiceResponse struct {
	ID            string `json:"id"`
	StudentID     string `json:"student_id"`
	Term          string `json:"term"`
	TotalAmount   int64  `json:"total_amount"`
	AmountPaid    int64  `json:"amount_paid"`
	Status        string `json:"status"`
	InvoiceDate   string `json:"invoice_date"`
	DueDate       string `json:"due_date"`
	CreditApplied int64  `json:"credit_applied,omitempty"`
	Duplicate     bool   `json:"duplicate,omitempty"`
}

// ApplyCreditRequest is the POST /credits/apply body
type ApplyCreditRequest struct {
	StudentID string `json:"student_id" binding:"required,uuid"`
	AppliedBy string `json:"applied_by" binding:"required,uuid"`
}

// ApplyCreditResponse describes how much credit was consumed
type ApplyCreditResponse struct {
	StudentID    string `json:"student_id"`
	Applied      int64  `json:"applied"`
	InvoiceCount int    `json:"invoice_count"`
}

// CreateApprovalRequest is the POST /approvals body
type CreateApprovalRequest struct {
	RequestType string `json:"request_type" binding:"required,oneof=PAYMENT EXPENSE SCHOLARSHIP"`
	EntityKind  string `json:"entity_kind" binding:"required,oneof=payment invoice expense"`
	EntityID    string `json:"entity_id" binding:"required,uuid"`
	Amount      int64  `json:"amount" binding:"min=0"`
	RequestedBy string `json:"requested_by" binding:"required,uuid"`
}

// ApprovalDecisionRequest is the POST /approvals/:id/decisions body
type ApprovalDecisionRequest struct {
	Level      int    `json:"level" binding:"required,min=1"`
	Decision   string `json:"decision" binding:"required,oneof=APPROVED REJECTED"`
	ApproverID string `json:"approver_id" binding:"required,uuid"`
	Comments   string `json:"comments,omitempty"`
}

// ApprovalRequestResponse describes an approval request
type ApprovalRequestResponse struct {
	ID            string `json:"id"`
	RequestType   string `json:"request_type"`
	EntityKind    string `json:"entity_kind"`
	EntityID      string `json:"entity_id"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	CurrentLevel  int    `json:"current_level"`
	MaxLevel      int    `json:"max_level"`
	RequestedBy   string `json:"requested_by"`
	FinalDecision string `json:"final_decision,omitempty"`
	CompletedAt   string `json:"completed_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// ApprovalLevelResponse describes one sign-off step
type ApprovalLevelResponse struct {
	Level      int    `json:"level"`
	Status     string `json:"status"`
	ApproverID string `json:"approver_id,omitempty"`
	Comments   string `json:"comments,omitempty"`
	DecidedAt  string `json:"decided_at,omitempty"`
}

// ApprovalHistoryResponse is a request plus its level trail
type ApprovalHistoryResponse struct {
	Request ApprovalRequestResponse `json:"request"`
	Levels  []ApprovalLevelResponse `json:"levels"`
}

// ApprovalQueueParams filters the GET /approvals/queue listing
type ApprovalQueueParams struct {
	Level int    `form:"level" binding:"required,min=1"`
	Type  string `form:"type" binding:"omitempty,oneof=PAYMENT EXPENSE SCHOLARSHIP"`
}

// RunReconciliationRequest is the POST /reconciliation/runs body
type RunReconciliationRequest struct {
	TriggeredBy string `json:"triggered_by" binding:"required,uuid"`
}

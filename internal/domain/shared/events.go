package shared

// EventType identifies a finance event appended to the outbox and published
// to the messaging topic for downstream ERP subsystems (receipts, SMS).
type EventType string

const (
	EventPaymentRecorded         EventType = "payment.recorded"
	EventPaymentVoided           EventType = "payment.voided"
	EventInvoiceCreated          EventType = "invoice.created"
	EventCreditApplied           EventType = "credit.applied"
	EventApprovalRequested       EventType = "approval.requested"
	EventApprovalDecided         EventType = "approval.decided"
	EventReconciliationCompleted EventType = "reconciliation.completed"
)

package shared

// PaymentMethod defines accepted payment channels
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodMobileMoney  PaymentMethod = "MOBILE_MONEY"
	PaymentMethodCheque       PaymentMethod = "CHEQUE"
)

// ValidPaymentMethod reports whether m is one of the accepted payment channels
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodMobileMoney, PaymentMethodCheque:
		return true
	}
	return false
}

// TransactionType defines ledger transaction categories
type TransactionType string

const (
	TransactionTypeFeePayment TransactionType = "FEE_PAYMENT"
)

// PaymentStatus defines ledger transaction states. Payments are immutable
// once created apart from the ACTIVE -> VOIDED transition.
type PaymentStatus string

const (
	PaymentStatusActive PaymentStatus = "ACTIVE"
	PaymentStatusVoided PaymentStatus = "VOIDED"
)

// OutboxStatus defines event publishing states
type OutboxStatus string

const (
	OutboxStatusPending         OutboxStatus = "PENDING"
	OutboxStatusProcessed       OutboxStatus = "PROCESSED"
	OutboxStatusFailedToPublish OutboxStatus = "FAILED_TO_PUBLISH"
)

// Tolerance is the rounding slack, in minor currency units, allowed on any
// derived-vs-stored money comparison.
const Tolerance int64 = 1

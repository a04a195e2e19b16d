// Package reconciliation defines the consistency-check report model and the
// data-access contracts the reconciliation battery runs against. The checks
// are purely diagnostic: they describe the state of the books and never
// mutate financial data.
package reconciliation

import (
	"time"

	"github.com/google/uuid"
)

// CheckStatus is the severity of a single check outcome
type CheckStatus string

const (
	StatusPass    CheckStatus = "PASS"
	StatusWarning CheckStatus = "WARNING"
	StatusFail    CheckStatus = "FAIL"
)

// Check names, stable identifiers used in reports and dashboards
const (
	CheckStudentCreditBalances  = "student_credit_balances"
	CheckTrialBalance           = "trial_balance"
	CheckOrphanedTransactions   = "orphaned_transactions"
	CheckInvoicePayments        = "invoice_payments"
	CheckInvoiceSettlementDrift = "invoice_settlement_drift"
	CheckAbnormalBalances       = "abnormal_balances"
	CheckLedgerJournalLinkage   = "ledger_journal_linkage"
)

// CheckResult is the outcome of one consistency check
type CheckResult struct {
	CheckName string      `json:"check_name" bson:"check_name"`
	Status    CheckStatus `json:"status" bson:"status"`
	Message   string      `json:"message" bson:"message"`
	Variance  int64       `json:"variance,omitempty" bson:"variance,omitempty"`
	Details   []string    `json:"details,omitempty" bson:"details,omitempty"`
}

// Report is a point-in-time snapshot of a full battery run. Reports are
// append-only history; a FAIL finding never prevents the report from being
// saved.
type Report struct {
	ID          uuid.UUID     `json:"id" bson:"_id"`
	StartedAt   time.Time     `json:"started_at" bson:"started_at"`
	FinishedAt  time.Time     `json:"finished_at" bson:"finished_at"`
	Overall     CheckStatus   `json:"overall" bson:"overall"`
	TriggeredBy uuid.UUID     `json:"triggered_by" bson:"triggered_by"`
	Checks      []CheckResult `json:"checks" bson:"checks"`
}

// OverallStatus folds check outcomes: any FAIL wins, then any WARNING, else PASS
func OverallStatus(checks []CheckResult) CheckStatus {
	overall := StatusPass
	for _, c := range checks {
		switch c.Status {
		case StatusFail:
			return StatusFail
		case StatusWarning:
			overall = StatusWarning
		}
	}
	return overall
}

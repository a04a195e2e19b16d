package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/campus-finance-ledger/internal/domain/reconciliation"
	"github.com/campus-finance-ledger/internal/domain/shared"
)

const detailCap = 20

// nowFunc is swapped out by tests
var nowFunc = time.Now

// failedToRun converts an infrastructure error into a FAIL result so one
// broken check never aborts the battery or blocks the report.
func failedToRun(name string, err error) reconciliation.CheckResult {
	return reconciliation.CheckResult{
		CheckName: name,
		Status:    reconciliation.StatusFail,
		Message:   "check could not run: " + err.Error(),
	}
}

// checkStudentCreditBalances compares each active student's stored credit
// balance against the balance replayed from their credit transactions.
func (s *ServiceImpl) checkStudentCreditBalances(ctx context.Context) reconciliation.CheckResult {
	figures, err := s.source.StudentCreditFigures(ctx)
	if err != nil {
		return failedToRun(reconciliation.CheckStudentCreditBalances, err)
	}

	var details []string
	var variance int64
	for _, f := range figures {
		diff := f.Stored - f.Derived
		if diff < 0 {
			diff = -diff
		}
		if diff > shared.Tolerance {
			variance += diff
			if len(details) < detailCap {
				details = append(details, fmt.Sprintf("student %s (%s): stored %d, derived %d", f.StudentID, f.FullName, f.Stored, f.Derived))
			}
		}
	}

	if len(details) == 0 {
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckStudentCreditBalances,
			Status:    reconciliation.StatusPass,
			Message:   fmt.Sprintf("%d student credit balances verified", len(figures)),
		}
	}
	return reconciliation.CheckResult{
		CheckName: reconciliation.CheckStudentCreditBalances,
		Status:    reconciliation.StatusFail,
		Message:   fmt.Sprintf("%d student(s) with credit balance drift", len(details)),
		Variance:  variance,
		Details:   details,
	}
}

// checkTrialBalance verifies total debits equal total credits across posted
// journal lines. This is a hard accounting invariant.
func (s *ServiceImpl) checkTrialBalance(ctx context.Context) reconciliation.CheckResult {
	debits, credits, err := s.source.TrialBalance(ctx)
	if err != nil {
		return failedToRun(reconciliation.CheckTrialBalance, err)
	}

	diff := debits - credits
	if diff < 0 {
		diff = -diff
	}
	if diff <= shared.Tolerance {
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckTrialBalance,
			Status:    reconciliation.StatusPass,
			Message:   fmt.Sprintf("trial balance holds: debits %d, credits %d", debits, credits),
		}
	}
	return reconciliation.CheckResult{
		CheckName: reconciliation.CheckTrialBalance,
		Status:    reconciliation.StatusFail,
		Message:   fmt.Sprintf("trial balance broken: debits %d, credits %d", debits, credits),
		Variance:  diff,
	}
}

// checkOrphanedTransactions counts fee payments with no resolvable student
func (s *ServiceImpl) checkOrphanedTransactions(ctx context.Context) reconciliation.CheckResult {
	count, err := s.source.CountOrphanedPayments(ctx)
	if err != nil {
		return failedToRun(reconciliation.CheckOrphanedTransactions, err)
	}

	switch {
	case count == 0:
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckOrphanedTransactions,
			Status:    reconciliation.StatusPass,
			Message:   "no orphaned fee payments",
		}
	case count <= OrphanFailThreshold:
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckOrphanedTransactions,
			Status:    reconciliation.StatusWarning,
			Message:   fmt.Sprintf("%d fee payment(s) reference no existing student", count),
			Variance:  count,
		}
	default:
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckOrphanedTransactions,
			Status:    reconciliation.StatusFail,
			Message:   fmt.Sprintf("%d fee payment(s) reference no existing student", count),
			Variance:  count,
		}
	}
}

// checkInvoicePayments compares each invoice's amount_paid against the sum of
// its allocations from non-voided payments. A gap fully covered by applied
// credit is normal bookkeeping (amount_paid includes credit, allocations never
// do) and is reported as WARNING; FAIL is reserved for gaps nothing accounts
// for. The settlement drift check verifies the full identity.
func (s *ServiceImpl) checkInvoicePayments(ctx context.Context) reconciliation.CheckResult {
	figures, err := s.source.InvoiceSettlementFigures(ctx)
	if err != nil {
		return failedToRun(reconciliation.CheckInvoicePayments, err)
	}

	var details, creditDetails []string
	var variance int64
	for _, f := range figures {
		diff := f.AmountPaid - f.AllocatedTotal
		if diff < 0 {
			diff = -diff
		}
		if diff <= shared.Tolerance {
			continue
		}

		residual := f.AmountPaid - f.AllocatedTotal - f.CreditApplied
		if residual < 0 {
			residual = -residual
		}
		if residual <= shared.Tolerance {
			if len(creditDetails) < detailCap {
				creditDetails = append(creditDetails, fmt.Sprintf("invoice %s: amount_paid %d, allocations %d, applied credit %d", f.InvoiceID, f.AmountPaid, f.AllocatedTotal, f.CreditApplied))
			}
			continue
		}

		variance += diff
		if len(details) < detailCap {
			details = append(details, fmt.Sprintf("invoice %s: amount_paid %d, allocations %d", f.InvoiceID, f.AmountPaid, f.AllocatedTotal))
		}
	}

	switch {
	case len(details) > 0:
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckInvoicePayments,
			Status:    reconciliation.StatusFail,
			Message:   fmt.Sprintf("%d invoice(s) disagree with their payment allocations", len(details)),
			Variance:  variance,
			Details:   details,
		}
	case len(creditDetails) > 0:
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckInvoicePayments,
			Status:    reconciliation.StatusWarning,
			Message:   fmt.Sprintf("%d invoice(s) settled partly by applied credit", len(creditDetails)),
			Details:   creditDetails,
		}
	default:
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckInvoicePayments,
			Status:    reconciliation.StatusPass,
			Message:   "invoice paid amounts match payment allocations",
		}
	}
}

// checkInvoiceSettlementDrift compares amount_paid against allocations plus
// applied credits. Catches code paths that bump amount_paid without writing
// the bookkeeping rows.
func (s *ServiceImpl) checkInvoiceSettlementDrift(ctx context.Context) reconciliation.CheckResult {
	figures, err := s.source.InvoiceSettlementFigures(ctx)
	if err != nil {
		return failedToRun(reconciliation.CheckInvoiceSettlementDrift, err)
	}

	var details []string
	var variance int64
	for _, f := range figures {
		attributed := f.AllocatedTotal + f.CreditApplied
		diff := f.AmountPaid - attributed
		if diff < 0 {
			diff = -diff
		}
		if diff > shared.Tolerance {
			variance += diff
			if len(details) < detailCap {
				details = append(details, fmt.Sprintf("invoice %s: amount_paid %d, attributable %d", f.InvoiceID, f.AmountPaid, attributed))
			}
		}
	}

	if len(details) == 0 {
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckInvoiceSettlementDrift,
			Status:    reconciliation.StatusPass,
			Message:   "no invoice settlement drift",
		}
	}
	return reconciliation.CheckResult{
		CheckName: reconciliation.CheckInvoiceSettlementDrift,
		Status:    reconciliation.StatusFail,
		Message:   fmt.Sprintf("%d invoice(s) drifted from allocation and credit bookkeeping", len(details)),
		Variance:  variance,
		Details:   details,
	}
}

// checkAbnormalBalances flags accounts sitting on the wrong side of their
// normal balance
func (s *ServiceImpl) checkAbnormalBalances(ctx context.Context) reconciliation.CheckResult {
	figures, err := s.source.AbnormalAccountFigures(ctx)
	if err != nil {
		return failedToRun(reconciliation.CheckAbnormalBalances, err)
	}

	if len(figures) == 0 {
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckAbnormalBalances,
			Status:    reconciliation.StatusPass,
			Message:   "no abnormal account balances",
		}
	}

	details := make([]string, 0, len(figures))
	for _, f := range figures {
		details = append(details, fmt.Sprintf("%s %s (%s): net balance %d", f.Code, f.Name, f.AccountType, f.NetBalance))
	}
	return reconciliation.CheckResult{
		CheckName: reconciliation.CheckAbnormalBalances,
		Status:    reconciliation.StatusWarning,
		Message:   fmt.Sprintf("%d account(s) carry an abnormal balance", len(figures)),
		Details:   details,
	}
}

// checkLedgerJournalLinkage looks for recent payments with no journal entry.
// Informational: historical rows can predate journal integration.
func (s *ServiceImpl) checkLedgerJournalLinkage(ctx context.Context) reconciliation.CheckResult {
	since := nowFunc().Add(-LinkageWindow)
	refs, err := s.source.UnlinkedPayments(ctx, since)
	if err != nil {
		return failedToRun(reconciliation.CheckLedgerJournalLinkage, err)
	}

	if len(refs) == 0 {
		return reconciliation.CheckResult{
			CheckName: reconciliation.CheckLedgerJournalLinkage,
			Status:    reconciliation.StatusPass,
			Message:   "all recent payments are linked to journal entries",
		}
	}
	total := len(refs)
	if len(refs) > detailCap {
		refs = refs[:detailCap]
	}
	return reconciliation.CheckResult{
		CheckName: reconciliation.CheckLedgerJournalLinkage,
		Status:    reconciliation.StatusWarning,
		Message:   fmt.Sprintf("%d recent payment(s) have no journal entry", total),
		Details:   refs,
	}
}

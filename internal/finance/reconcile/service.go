// Package reconcile runs the consistency-check battery over the books and
// persists the findings. It is purely diagnostic: discrepancies are reported
// for human remediation, never auto-corrected.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/campus-finance-ledger/internal/domain/audit"
	"github.com/campus-finance-ledger/internal/domain/outbox"
	"github.com/campus-finance-ledger/internal/domain/reconciliation"
	"github.com/campus-finance-ledger/internal/domain/shared"
)

// LinkageWindow is how far back the ledger-journal linkage check looks.
// Older payments may legitimately predate journal integration.
const LinkageWindow = 7 * 24 * time.Hour

// OrphanFailThreshold is the orphan count above which the check escalates
// from WARNING to FAIL.
const OrphanFailThreshold = 10

type reconciliationCompletedEvent struct {
	ReportID uuid.UUID                  `json:"report_id"`
	Overall  reconciliation.CheckStatus `json:"overall"`
	Checks   int                        `json:"checks"`
}

// Service is the reconciliation API
type Service interface {
	// RunAllChecks executes the battery and persists the report. The report
	// is saved regardless of findings; only infrastructure faults error.
	RunAllChecks(ctx context.Context, triggeredBy uuid.UUID) (*reconciliation.Report, error)
	LatestReport(ctx context.Context) (*reconciliation.Report, error)
	ListReports(ctx context.Context, limit int64) ([]*reconciliation.Report, error)
	Shutdown()
}

// ServiceImpl implements Service, running checks concurrently on a bounded
// worker pool. Checks are independent and read-only, so they need no shared
// snapshot.
type ServiceImpl struct {
	source     reconciliation.Source
	store      reconciliation.ReportStore
	auditRepo  audit.Repository
	outboxRepo outbox.Repository
	pool       *ants.Pool
	logger     *slog.Logger
}

// NewService creates a new reconciliation service with a worker pool of the
// given size
func NewService(
	source reconciliation.Source,
	store reconciliation.ReportStore,
	auditRepo audit.Repository,
	outboxRepo outbox.Repository,
	poolSize int,
	logger *slog.Logger,
) (*ServiceImpl, error) {
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create reconciliation worker pool: %w", err)
	}

	return &ServiceImpl{
		source:     source,
		store:      store,
		auditRepo:  auditRepo,
		outboxRepo: outboxRepo,
		pool:       pool,
		logger:     logger,
	}, nil
}

// RunAllChecks runs the full battery and saves the report
func (s *ServiceImpl) RunAllChecks(ctx context.Context, triggeredBy uuid.UUID) (*reconciliation.Report, error) {
	started := time.Now()
	s.logger.Info("Reconciliation run started", "triggered_by", triggeredBy.String())

	checks := []func(context.Context) reconciliation.CheckResult{
		s.checkStudentCreditBalances,
		s.checkTrialBalance,
		s.checkOrphanedTransactions,
		s.checkInvoicePayments,
		s.checkInvoiceSettlementDrift,
		s.checkAbnormalBalances,
		s.checkLedgerJournalLinkage,
	}

	results := make([]reconciliation.CheckResult, len(checks))
	var wg sync.WaitGroup
	for i, check := range checks {
		i, check := i, check
		wg.Add(1)
		if err := s.pool.Submit(func() {
			defer wg.Done()
			results[i] = check(ctx)
		}); err != nil {
			// Pool refused the task; run inline rather than dropping a check.
			results[i] = check(ctx)
			wg.Done()
		}
	}
	wg.Wait()

	report := &reconciliation.Report{
		ID:          uuid.New(),
		StartedAt:   started,
		FinishedAt:  time.Now(),
		Overall:     reconciliation.OverallStatus(results),
		TriggeredBy: triggeredBy,
		Checks:      results,
	}

	if err := s.store.Save(ctx, report); err != nil {
		return nil, err
	}

	rec, err := audit.NewRecord(triggeredBy, "RECONCILIATION_RUN", "reconciliation_reports", report.ID, nil, report)
	if err != nil {
		return nil, fmt.Errorf("failed to build audit record: %w", err)
	}
	if err := s.auditRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	msg, err := outbox.NewMessage(shared.EventReconciliationCompleted, report.ID, reconciliationCompletedEvent{
		ReportID: report.ID,
		Overall:  report.Overall,
		Checks:   len(report.Checks),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build outbox message: %w", err)
	}
	if err := s.outboxRepo.Create(ctx, msg); err != nil {
		return nil, err
	}

	s.logger.Info("Reconciliation run finished",
		"report_id", report.ID.String(),
		"overall", string(report.Overall),
		"duration", report.FinishedAt.Sub(report.StartedAt).String())
	return report, nil
}

// LatestReport returns the most recent run, or nil when none exists
func (s *ServiceImpl) LatestReport(ctx context.Context) (*reconciliation.Report, error) {
	return s.store.Latest(ctx)
}

// ListReports returns up to limit runs, newest first
func (s *ServiceImpl) ListReports(ctx context.Context, limit int64) ([]*reconciliation.Report, error) {
	return s.store.List(ctx, limit)
}

// Shutdown releases the worker pool
func (s *ServiceImpl) Shutdown() {
	s.pool.Release()
}

package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campus-finance-ledger/internal/finance/reconcile"
)

// ReconciliationHandler handles HTTP requests for reconciliation runs
type ReconciliationHandler struct {
	reconcileSvc reconcile.Service
	logger       *slog.Logger
}

// NewReconciliationHandler creates a new reconciliation handler
func NewReconciliationHandler(logger *slog.Logger, reconcileSvc reconcile.Service) *ReconciliationHandler {
	return &ReconciliationHandler{
		reconcileSvc: reconcileSvc,
		logger:       logger,
	}
}

// Run executes the check battery on demand
func (h *ReconciliationHandler) Run(c *gin.Context) {
	var req RunReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	report, err := h.reconcileSvc.RunAllChecks(c.Request.Context(), uuid.MustParse(req.TriggeredBy))
	if err != nil {
		h.logger.Error("Reconciliation run failed", "error", err)
		RespondInternalError(c)
		return
	}

	RespondCreated(c, report)
}

// Latest returns the most recent run
func (h *ReconciliationHandler) Latest(c *gin.Context) {
	report, err := h.reconcileSvc.LatestReport(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to fetch latest reconciliation report", "error", err)
		RespondInternalError(c)
		return
	}
	if report == nil {
		RespondNotFound(c, "No reconciliation run recorded yet")
		return
	}
	RespondOK(c, report)
}

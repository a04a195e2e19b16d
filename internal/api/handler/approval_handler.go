package handler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/campus-finance-ledger/internal/domain/approval"
	"github.com/campus-finance-ledger/internal/finance/approvals"
)

// ApprovalHandler handles HTTP requests for the approval workflow
type ApprovalHandler struct {
	engine approvals.Engine
	logger *slog.Logger
}

// NewApprovalHandler creates a new approval handler
func NewApprovalHandler(logger *slog.Logger, engine approvals.Engine) *ApprovalHandler {
	return &ApprovalHandler{
		engine: engine,
		logger: logger,
	}
}

// Create opens a new approval request
func (h *ApprovalHandler) Create(c *gin.Context) {
	var req CreateApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.engine.CreateRequest(c.Request.Context(), &approvals.CreateRequestInput{
		Type: approval.RequestType(req.RequestType),
		Entity: approval.EntityRef{
			Kind: approval.EntityKind(req.EntityKind),
			ID:   uuid.MustParse(req.EntityID),
		},
		Amount:      req.Amount,
		RequestedBy: uuid.MustParse(req.RequestedBy),
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	RespondCreated(c, mapApprovalRequest(request))
}

// Decide records one approver's verdict on the request's current level
func (h *ApprovalHandler) Decide(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid approval request ID")
		return
	}

	var req ApprovalDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	request, err := h.engine.ProcessDecision(c.Request.Context(), &approvals.DecisionInput{
		RequestID:  requestID,
		Level:      req.Level,
		Decision:   approval.Decision(req.Decision),
		ApproverID: uuid.MustParse(req.ApproverID),
		Comments:   req.Comments,
	})
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	RespondOK(c, mapApprovalRequest(request))
}

// Queue lists PENDING requests waiting at a level
func (h *ApprovalHandler) Queue(c *gin.Context) {
	var params ApprovalQueueParams
	if err := c.ShouldBindQuery(&params); err != nil {
		RespondBadRequest(c, "Invalid query parameters: "+err.Error())
		return
	}

	var requestType *approval.RequestType
	if params.Type != "" {
		t := approval.RequestType(params.Type)
		requestType = &t
	}

	requests, err := h.engine.GetQueue(c.Request.Context(), params.Level, requestType)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	out := make([]ApprovalRequestResponse, 0, len(requests))
	for _, r := range requests {
		out = append(out, mapApprovalRequest(r))
	}
	RespondOK(c, gin.H{"requests": out})
}

// History returns a request with its full level trail
func (h *ApprovalHandler) History(c *gin.Context) {
	requestID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondBadRequest(c, "Invalid approval request ID")
		return
	}

	history, err := h.engine.GetHistory(c.Request.Context(), requestID)
	if err != nil {
		if errors.Is(err, approval.ErrRequestNotFound{}) {
			RespondNotFound(c, "Approval request not found")
			return
		}
		h.logger.Error("Failed to get approval history", "request_id", requestID.String(), "error", err)
		RespondInternalError(c)
		return
	}

	resp := ApprovalHistoryResponse{Request: mapApprovalRequest(history.Request)}
	for _, lvl := range history.Levels {
		l := ApprovalLevelResponse{
			Level:    lvl.Level,
			Status:   string(lvl.Status),
			Comments: lvl.Comments,
		}
		if lvl.ApproverID != nil {
			l.ApproverID = lvl.ApproverID.String()
		}
		if lvl.DecidedAt != nil {
			l.DecidedAt = lvl.DecidedAt.UTC().Format(time.RFC3339)
		}
		resp.Levels = append(resp.Levels, l)
	}
	RespondOK(c, resp)
}

func mapApprovalRequest(r *approval.Request) ApprovalRequestResponse {
	resp := ApprovalRequestResponse{
		ID:            r.ID.String(),
		RequestType:   string(r.RequestType),
		EntityKind:    string(r.Entity.Kind),
		EntityID:      r.Entity.ID.String(),
		Amount:        r.Amount,
		Status:        string(r.Status),
		CurrentLevel:  r.CurrentLevel,
		MaxLevel:      r.MaxLevel,
		RequestedBy:   r.RequestedBy.String(),
		FinalDecision: string(r.FinalDecision),
		CreatedAt:     r.CreatedAt.UTC().Format(time.RFC3339),
	}
	if r.CompletedAt != nil {
		resp.CompletedAt = r.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// Package approvals implements the multi-level approval workflow: amount
// brackets decide how many sign-offs a monetary action needs, and decisions
// advance strictly one level at a time.
package approvals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campus-finance-ledger/internal/domain/approval"
	"github.com/campus-finance-ledger/internal/domain/audit"
	"github.com/campus-finance-ledger/internal/domain/outbox"
	"github.com/campus-finance-ledger/internal/domain/shared"
	"github.com/campus-finance-ledger/internal/domain/staff"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

// CreateRequestInput describes a new approval request
type CreateRequestInput struct {
	Type        approval.RequestType
	Entity      approval.EntityRef
	Amount      int64
	RequestedBy uuid.UUID
}

// DecisionInput is one approver's verdict on one level
type DecisionInput struct {
	RequestID  uuid.UUID
	Level      int
	Decision   approval.Decision
	ApproverID uuid.UUID
	Comments   string
}

// History is a request together with its level trail, levels ascending
type History struct {
	Request *approval.Request
	Levels  []*approval.Level
}

type approvalRequestedEvent struct {
	RequestID   uuid.UUID            `json:"request_id"`
	RequestType approval.RequestType `json:"request_type"`
	Amount      int64                `json:"amount"`
	MaxLevel    int                  `json:"max_level"`
	RequestedBy uuid.UUID            `json:"requested_by"`
}

type approvalDecidedEvent struct {
	RequestID  uuid.UUID              `json:"request_id"`
	Level      int                    `json:"level"`
	Decision   approval.Decision      `json:"decision"`
	Status     approval.RequestStatus `json:"status"`
	ApproverID uuid.UUID              `json:"approver_id"`
}

// Engine is the approval workflow API
type Engine interface {
	CreateRequest(ctx context.Context, in *CreateRequestInput) (*approval.Request, error)
	ProcessDecision(ctx context.Context, in *DecisionInput) (*approval.Request, error)
	GetQueue(ctx context.Context, level int, requestType *approval.RequestType) ([]*approval.Request, error)
	GetHistory(ctx context.Context, requestID uuid.UUID) (*History, error)
}

// EngineImpl implements Engine on the Postgres repositories
type EngineImpl struct {
	beginTx      func(ctx context.Context) (pgx.Tx, error)
	approvalRepo approval.Repository
	staffRepo    staff.Repository
	auditRepo    audit.Repository
	outboxRepo   outbox.Repository
	logger       *slog.Logger
}

// NewEngine creates a new approval workflow engine
func NewEngine(
	pgDB *persistence.PostgresDB,
	approvalRepo approval.Repository,
	staffRepo staff.Repository,
	auditRepo audit.Repository,
	outboxRepo outbox.Repository,
	logger *slog.Logger,
) Engine {
	return &EngineImpl{
		beginTx:      pgDB.Pool().Begin,
		approvalRepo: approvalRepo,
		staffRepo:    staffRepo,
		auditRepo:    auditRepo,
		outboxRepo:   outboxRepo,
		logger:       logger,
	}
}

// CreateRequest resolves the required approval depth from the active amount
// brackets and creates the request PENDING at level 1 with one PENDING level
// row per required sign-off.
func (e *EngineImpl) CreateRequest(ctx context.Context, in *CreateRequestInput) (*approval.Request, error) {
	if in.Amount < 0 {
		return nil, shared.NewValidationError("approval amount must not be negative")
	}
	if err := in.Entity.Validate(); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	if in.RequestedBy == uuid.Nil {
		return nil, shared.NewValidationError("requesting user is required")
	}

	var req *approval.Request
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		approvalRepo := e.approvalRepo.WithTx(tx)

		exists, err := e.staffRepo.WithTx(tx).Exists(ctx, in.RequestedBy)
		if err != nil {
			return err
		}
		if !exists {
			return shared.NewValidationError("requesting user does not reference an existing user")
		}

		configs, err := approvalRepo.ListActiveConfigurations(ctx, in.Type)
		if err != nil {
			return err
		}
		maxLevel := approval.RequiredLevelFor(configs, in.Amount)
		if maxLevel == 0 {
			return &shared.ConfigurationError{
				Message: fmt.Sprintf("no approval configuration found for %s amount %d", in.Type, in.Amount),
			}
		}

		now := time.Now()
		req = &approval.Request{
			ID:           uuid.New(),
			RequestType:  in.Type,
			Entity:       in.Entity,
			Amount:       in.Amount,
			Status:       approval.RequestStatusPending,
			CurrentLevel: 1,
			MaxLevel:     maxLevel,
			RequestedBy:  in.RequestedBy,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := approvalRepo.CreateRequest(ctx, req); err != nil {
			return err
		}

		levels := make([]*approval.Level, 0, maxLevel)
		for i := 1; i <= maxLevel; i++ {
			levels = append(levels, &approval.Level{
				ID:        uuid.New(),
				RequestID: req.ID,
				Level:     i,
				Status:    approval.LevelStatusPending,
				CreatedAt: now,
			})
		}
		if err := approvalRepo.CreateLevels(ctx, levels); err != nil {
			return err
		}

		rec, err := audit.NewRecord(in.RequestedBy, "APPROVAL_REQUESTED", "approval_requests", req.ID, nil, req)
		if err != nil {
			return fmt.Errorf("failed to build audit record: %w", err)
		}
		if err := e.auditRepo.WithTx(tx).Create(ctx, rec); err != nil {
			return err
		}

		msg, err := outbox.NewMessage(shared.EventApprovalRequested, req.ID, approvalRequestedEvent{
			RequestID:   req.ID,
			RequestType: req.RequestType,
			Amount:      req.Amount,
			MaxLevel:    req.MaxLevel,
			RequestedBy: req.RequestedBy,
		})
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return e.outboxRepo.WithTx(tx).Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Approval request created",
		"request_id", req.ID.String(),
		"type", string(req.RequestType),
		"amount", req.Amount,
		"max_level", req.MaxLevel)
	return req, nil
}

// ProcessDecision records one approver's verdict. Approval at a non-final
// level advances the request; approval at the final level or rejection
// anywhere makes it terminal. Levels are decided strictly in order.
func (e *EngineImpl) ProcessDecision(ctx context.Context, in *DecisionInput) (*approval.Request, error) {
	if in.RequestID == uuid.Nil {
		return nil, shared.NewValidationError("request id is required")
	}
	if in.Decision != approval.DecisionApproved && in.Decision != approval.DecisionRejected {
		return nil, shared.NewValidationError(fmt.Sprintf("unknown decision: %s", in.Decision))
	}
	if in.ApproverID == uuid.Nil {
		return nil, shared.NewValidationError("approver id is required")
	}

	var req *approval.Request
	err := e.inTx(ctx, func(tx pgx.Tx) error {
		approvalRepo := e.approvalRepo.WithTx(tx)

		exists, err := e.staffRepo.WithTx(tx).Exists(ctx, in.ApproverID)
		if err != nil {
			return err
		}
		if !exists {
			return shared.NewValidationError("approver does not reference an existing user")
		}

		req, err = approvalRepo.LockRequest(ctx, in.RequestID)
		if err != nil {
			if errors.Is(err, approval.ErrRequestNotFound{}) {
				return shared.NewValidationError("approval request does not exist")
			}
			return err
		}

		if req.Status != approval.RequestStatusPending {
			return shared.NewValidationError(fmt.Sprintf("request is already %s", req.Status))
		}
		if in.Level != req.CurrentLevel {
			return shared.NewValidationError(fmt.Sprintf("request is not at approval level %d", in.Level))
		}

		lvl, err := approvalRepo.GetLevel(ctx, req.ID, in.Level)
		if err != nil {
			if errors.Is(err, approval.ErrLevelNotFound{}) {
				return shared.NewValidationError(fmt.Sprintf("approval level %d does not exist for this request", in.Level))
			}
			return err
		}
		if lvl.Status != approval.LevelStatusPending {
			return shared.NewValidationError(fmt.Sprintf("approval level %d is already decided", in.Level))
		}

		before := *req
		now := time.Now()
		lvl.ApproverID = &in.ApproverID
		lvl.Comments = in.Comments
		lvl.DecidedAt = &now

		if in.Decision == approval.DecisionRejected {
			lvl.Status = approval.LevelStatusRejected
			req.Status = approval.RequestStatusRejected
			req.FinalDecision = approval.DecisionRejected
			req.CompletedAt = &now
		} else {
			lvl.Status = approval.LevelStatusApproved
			if req.CurrentLevel == req.MaxLevel {
				req.Status = approval.RequestStatusApproved
				req.FinalDecision = approval.DecisionApproved
				req.CompletedAt = &now
			} else {
				req.CurrentLevel++
			}
		}
		req.UpdatedAt = now

		if err := approvalRepo.UpdateLevel(ctx, lvl); err != nil {
			return err
		}
		if err := approvalRepo.UpdateRequest(ctx, req); err != nil {
			return err
		}

		rec, err := audit.NewRecord(in.ApproverID, "APPROVAL_DECIDED", "approval_requests", req.ID, &before, req)
		if err != nil {
			return fmt.Errorf("failed to build audit record: %w", err)
		}
		if err := e.auditRepo.WithTx(tx).Create(ctx, rec); err != nil {
			return err
		}

		msg, err := outbox.NewMessage(shared.EventApprovalDecided, req.ID, approvalDecidedEvent{
			RequestID:  req.ID,
			Level:      in.Level,
			Decision:   in.Decision,
			Status:     req.Status,
			ApproverID: in.ApproverID,
		})
		if err != nil {
			return fmt.Errorf("failed to build outbox message: %w", err)
		}
		return e.outboxRepo.WithTx(tx).Create(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Approval decision processed",
		"request_id", req.ID.String(),
		"level", in.Level,
		"decision", string(in.Decision),
		"status", string(req.Status))
	return req, nil
}

// GetQueue lists PENDING requests waiting at the given level, newest first
func (e *EngineImpl) GetQueue(ctx context.Context, level int, requestType *approval.RequestType) ([]*approval.Request, error) {
	if level < 1 {
		return nil, shared.NewValidationError("approval level must be at least 1")
	}
	return e.approvalRepo.ListQueue(ctx, level, requestType)
}

// GetHistory returns a request with its full level trail
func (e *EngineImpl) GetHistory(ctx context.Context, requestID uuid.UUID) (*History, error) {
	req, err := e.approvalRepo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	levels, err := e.approvalRepo.ListLevels(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return &History{Request: req, Levels: levels}, nil
}

func (e *EngineImpl) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := e.beginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			e.logger.Error("Failed to rollback transaction", "rollback_error", rbErr, "original_error", err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

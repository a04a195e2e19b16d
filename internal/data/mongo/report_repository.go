package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/campus-finance-ledger/internal/domain/reconciliation"
)

const (
	// ReportCollectionName is the name of the reconciliation report collection
	ReportCollectionName = "reconciliation_reports"
)

// ReportRepository implements the reconciliation.ReportStore interface for
// MongoDB. Reports are append-only; nothing here updates or deletes.
type ReportRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

// NewReportRepository creates a new MongoDB reconciliation report repository
func NewReportRepository(logger *slog.Logger, db *mongo.Database) reconciliation.ReportStore {
	return &ReportRepository{
		db:     db,
		logger: logger,
	}
}

// Save stores one battery run
func (r *ReportRepository) Save(ctx context.Context, report *reconciliation.Report) error {
	collection := r.db.Collection(ReportCollectionName)

	_, err := collection.InsertOne(ctx, report)
	if err != nil {
		r.logger.Error("Failed to save reconciliation report",
			"report_id", report.ID.String(),
			"error", err)
		return fmt.Errorf("failed to save reconciliation report: %w", err)
	}

	return nil
}

// Latest returns the most recently started report, or nil when no run has
// been recorded yet.
func (r *ReportRepository) Latest(ctx context.Context) (*reconciliation.Report, error) {
	collection := r.db.Collection(ReportCollectionName)

	opts := options.FindOne().SetSort(bson.D{{Key: "started_at", Value: -1}})
	var report reconciliation.Report
	err := collection.FindOne(ctx, bson.M{}, opts).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		r.logger.Error("Failed to get latest reconciliation report", "error", err)
		return nil, fmt.Errorf("failed to get latest reconciliation report: %w", err)
	}

	return &report, nil
}

// List returns up to limit reports, newest first
func (r *ReportRepository) List(ctx context.Context, limit int64) ([]*reconciliation.Report, error) {
	collection := r.db.Collection(ReportCollectionName)

	opts := options.Find().
		SetSort(bson.D{{Key: "started_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("Failed to list reconciliation reports", "error", err)
		return nil, fmt.Errorf("failed to list reconciliation reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []*reconciliation.Report
	if err := cursor.All(ctx, &reports); err != nil {
		r.logger.Error("Failed to decode reconciliation reports", "error", err)
		return nil, fmt.Errorf("failed to decode reconciliation reports: %w", err)
	}

	return reports, nil
}

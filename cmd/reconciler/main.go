package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/campus-finance-ledger/internal/config"
	"github.com/campus-finance-ledger/internal/data/mongo"
	"github.com/campus-finance-ledger/internal/data/postgres"
	"github.com/campus-finance-ledger/internal/finance/reconcile"
	"github.com/campus-finance-ledger/internal/logger"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("reconciler")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Reconciler",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
		"interval", cfg.Reconciliation.Interval.String(),
	)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	auditRepo := postgres.NewAuditRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	reconciliationSource := postgres.NewReconciliationRepository(log, postgresDB)
	reportStore := mongo.NewReportRepository(log, mongoDB.Database())

	// Initialize reconciliation service
	reconcileService, err := reconcile.NewService(
		reconciliationSource,
		reportStore,
		auditRepo,
		outboxRepo,
		cfg.WorkerPool.Size,
		log,
	)
	if err != nil {
		log.Error("Failed to initialize reconciliation service", "error", err)
		os.Exit(1)
	}

	// Scheduled runs are attributed to the system actor
	runBattery := func() {
		report, err := reconcileService.RunAllChecks(appCtx, uuid.Nil)
		if err != nil {
			log.Error("Scheduled reconciliation run failed", "error", err)
			return
		}
		log.Info("Scheduled reconciliation run completed",
			"report_id", report.ID.String(),
			"overall", string(report.Overall),
		)
	}

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})

	go func() {
		defer close(done)

		if cfg.Reconciliation.RunOnStart {
			runBattery()
		}

		ticker := time.NewTicker(cfg.Reconciliation.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				runBattery()
			}
		}
	}()

	<-quit
	log.Info("Shutdown signal received")

	// Cancel the application context and wait for the runner to stop
	cancelAppCtx()
	<-done

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Release the reconciliation worker pool
	reconcileService.Shutdown()

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	log.Info("Reconciler shutdown completed")
}

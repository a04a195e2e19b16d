package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/campus-finance-ledger/internal/api"
	"github.com/campus-finance-ledger/internal/config"
	"github.com/campus-finance-ledger/internal/data/mongo"
	"github.com/campus-finance-ledger/internal/data/postgres"
	"github.com/campus-finance-ledger/internal/finance/approvals"
	"github.com/campus-finance-ledger/internal/finance/payments"
	"github.com/campus-finance-ledger/internal/finance/reconcile"
	"github.com/campus-finance-ledger/internal/finance/validator"
	"github.com/campus-finance-ledger/internal/logger"
	"github.com/campus-finance-ledger/internal/outbox_poller"
	"github.com/campus-finance-ledger/internal/platform/messaging/producers"
	"github.com/campus-finance-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("finance_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Finance API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
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

	// Initialize Kafka producer for finance events
	eventProducer, err := producers.NewFinanceEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize finance event producer", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Poller is nil-safe.

	// Initialize repositories
	studentRepo := postgres.NewStudentRepository(log, postgresDB)
	staffRepo := postgres.NewStaffRepository(log, postgresDB)
	invoiceRepo := postgres.NewInvoiceRepository(log, postgresDB)
	paymentRepo := postgres.NewPaymentRepository(log, postgresDB)
	creditRepo := postgres.NewCreditRepository(log, postgresDB)
	journalRepo := postgres.NewJournalRepository(log, postgresDB)
	approvalRepo := postgres.NewApprovalRepository(log, postgresDB)
	auditRepo := postgres.NewAuditRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)
	reconciliationSource := postgres.NewReconciliationRepository(log, postgresDB)
	reportStore := mongo.NewReportRepository(log, mongoDB.Database())

	// Initialize services
	paymentValidator := validator.NewInvoiceValidator(invoiceRepo, log)
	paymentService := payments.NewService(
		postgresDB,
		paymentRepo,
		invoiceRepo,
		studentRepo,
		staffRepo,
		creditRepo,
		journalRepo,
		approvalRepo,
		auditRepo,
		outboxRepo,
		paymentValidator,
		log,
	)
	approvalEngine := approvals.NewEngine(postgresDB, approvalRepo, staffRepo, auditRepo, outboxRepo, log)
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

	// Initialize outbox poller
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, eventProducer, dlqProducer, log)

	// Initialize REST server
	server := api.NewServer(log, cfg, paymentService, approvalEngine, reconcileService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Outbox Poller",
			"interval", cfg.Outbox.PollingInterval.String(),
			"batch_size", cfg.Outbox.BatchSize,
		)
		poller.Start(appCtx)
	}()

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for the poller to drain
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("Outbox poller stopped")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Release the reconciliation worker pool
	reconcileService.Shutdown()

	if err = eventProducer.Close(); err != nil {
		log.Error("Error closing finance event producer", "error", err)
	}

	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

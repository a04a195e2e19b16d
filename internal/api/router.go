package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campus-finance-ledger/internal/api/handler"
	"github.com/campus-finance-ledger/internal/api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	paymentHandler *handler.PaymentHandler,
	approvalHandler *handler.ApprovalHandler,
	reconciliationHandler *handler.ReconciliationHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		payments := v1.Group("/payments")
		{
			payments.POST("", paymentHandler.RecordPayment)
			payments.GET("/:id", paymentHandler.GetPayment)
			payments.POST("/:id/void", paymentHandler.VoidPayment)
		}

		invoices := v1.Group("/invoices")
		{
			invoices.POST("", paymentHandler.CreateInvoice)
		}

		credits := v1.Group("/credits")
		{
			credits.POST("/apply", paymentHandler.ApplyCredit)
		}

		approvals := v1.Group("/approvals")
		{
			approvals.POST("", approvalHandler.Create)
			approvals.POST("/:id/decisions", approvalHandler.Decide)
			approvals.GET("/queue", approvalHandler.Queue)
			approvals.GET("/:id/history", approvalHandler.History)
		}

		reconciliation := v1.Group("/reconciliation")
		{
			reconciliation.POST("/runs", reconciliationHandler.Run)
			reconciliation.GET("/runs/latest", reconciliationHandler.Latest)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}

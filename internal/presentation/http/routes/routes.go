package routes

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/config"
	"github.com/sangkips/brokerdesk-api/internal/domain/enum"
	domainRepo "github.com/sangkips/brokerdesk-api/internal/domain/repository"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/handler"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/middleware"
	"github.com/sangkips/brokerdesk-api/pkg/utils"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Customer *handler.CustomerHandler
	Policy   *handler.PolicyHandler
	Payment  *handler.PaymentHandler
	Receipt  *handler.ReceiptHandler
	Import   *handler.ImportHandler
	Report   *handler.ReportHandler
	Audit    *handler.AuditHandler
	User     *handler.UserHandler
	Printer  *handler.PrinterHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	JWTManager      *utils.JWTManager
	Cfg             *config.Config
	Logger          *slog.Logger
	Principals      middleware.PrincipalResolver
	Gate            *service.AuthorizationGate
	IdempotencyRepo domainRepo.IdempotencyRepository
	RateLimiter     *middleware.PrincipalRateLimiter
}

// NewRateLimiter builds the per-principal limiter from config
func NewRateLimiter(cfg config.RateLimitConfig) *middleware.PrincipalRateLimiter {
	duration := cfg.Duration
	if duration <= 0 {
		duration = 60
	}
	return middleware.NewPrincipalRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: float64(cfg.Requests) / float64(duration),
		BurstSize:         cfg.Requests,
		CleanupInterval:   5 * time.Minute,
		EntryTTL:          10 * time.Minute,
	})
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Logger))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	router.GET("/health", func(c *gin.Context) {
		body := gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		}
		if deps.RateLimiter != nil {
			body["rate_limiter"] = deps.RateLimiter.Stats()
		}
		c.JSON(200, body)
	})

	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTManager, deps.Principals))
	if deps.RateLimiter != nil {
		v1.Use(deps.RateLimiter.Middleware())
	}

	registerRoutes(v1, h, deps)
	return router
}

func registerRoutes(v1 *gin.RouterGroup, h *Handlers, deps *Deps) {
	can := func(permission string) gin.HandlerFunc {
		return middleware.RequirePermission(deps.Gate, permission)
	}

	v1.GET("/me", h.User.Me)

	// Customers
	customers := v1.Group("/customers")
	{
		customers.GET("", can(enum.PermViewPolicies), h.Customer.List)
		customers.GET("/:id", can(enum.PermViewPolicies), h.Customer.Get)
		customers.POST("", can(enum.PermManageCustomers), h.Customer.Create)
		customers.PUT("/:id", can(enum.PermManageCustomers), h.Customer.Update)
	}

	// Policies
	v1.GET("/coverage-types", can(enum.PermViewPolicies), h.Policy.ListCoverageTypes)
	policies := v1.Group("/policies")
	{
		policies.GET("", can(enum.PermViewPolicies), h.Policy.List)
		policies.GET("/:id", can(enum.PermViewPolicies), h.Policy.Get)
		policies.GET("/:id/payments", can(enum.PermViewPolicies), h.Payment.ListByPolicy)
		policies.GET("/:id/ledger-check", can(enum.PermViewReports), h.Policy.CheckLedger)
		policies.POST("", can(enum.PermManagePolicies), h.Policy.Create)
		policies.POST("/:id/renew", can(enum.PermManagePolicies), h.Policy.Renew)
		policies.PUT("/:id/premium", can(enum.PermManagePolicies), h.Policy.UpdatePremium)
		policies.PUT("/:id/status", can(enum.PermManagePolicies), h.Policy.UpdateStatus)
	}

	// Payments
	payments := v1.Group("/payments")
	{
		payments.POST("", can(enum.PermCreatePayment),
			middleware.Idempotency(middleware.IdempotencyConfig{Repo: deps.IdempotencyRepo}),
			h.Payment.Create)
		payments.GET("/:id", can(enum.PermViewPolicies), h.Payment.Get)
	}

	// Receipts; void/restore is authorised by the receipt service itself
	receipts := v1.Group("/receipts")
	{
		receipts.GET("", can(enum.PermViewPolicies), h.Receipt.List)
		receipts.GET("/number/:number", can(enum.PermViewPolicies), h.Receipt.GetByNumber)
		receipts.GET("/:id", can(enum.PermViewPolicies), h.Receipt.Get)
		receipts.PATCH("/:id/status", h.Receipt.UpdateStatus)
		receipts.POST("/:id/print", can(enum.PermViewPolicies), h.Printer.PrintReceipt)
	}
	v1.GET("/printer/status", can(enum.PermViewPolicies), h.Printer.GetStatus)

	// Imports
	imports := v1.Group("/imports", can(enum.PermImportPayments))
	{
		imports.POST("/payments", h.Import.Import)
		imports.POST("/payments/stream", h.Import.Stream)
	}

	// Reports
	reports := v1.Group("/reports", can(enum.PermViewReports))
	{
		reports.GET("/receipts", h.Report.ReceiptSummary)
		reports.GET("/audit-logs", h.Audit.List)
	}

	// Users
	users := v1.Group("/users", can(enum.PermManageUsers))
	{
		users.POST("", h.User.Create)
		users.GET("/:id", h.User.Get)
		users.POST("/permissions/refresh", h.User.RefreshPermissions)
	}
}

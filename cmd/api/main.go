package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/brokerdesk-api/internal/application/service"
	"github.com/sangkips/brokerdesk-api/internal/config"
	"github.com/sangkips/brokerdesk-api/internal/infrastructure/cache"
	"github.com/sangkips/brokerdesk-api/internal/infrastructure/database"
	"github.com/sangkips/brokerdesk-api/internal/infrastructure/event"
	"github.com/sangkips/brokerdesk-api/internal/infrastructure/repository"
	"github.com/sangkips/brokerdesk-api/internal/infrastructure/storage"
	"github.com/sangkips/brokerdesk-api/internal/logging"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/handler"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/middleware"
	"github.com/sangkips/brokerdesk-api/internal/presentation/http/routes"
	"github.com/sangkips/brokerdesk-api/pkg/printer"
	"github.com/sangkips/brokerdesk-api/pkg/utils"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger := logging.New(cfg.Logging)
	slog.SetDefault(logger)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Connect to database
	db, err := database.Open(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	// Seed default data
	if err := database.SeedDefaultData(db); err != nil {
		logger.Warn("failed to seed default data", "error", err)
	}

	jwtManager := utils.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ExpiryHours)

	// Optional infrastructure
	var permCache service.PermissionSnapshotCache
	if cfg.Redis.Enabled {
		client, err := cache.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, permission table will not be shared", "error", err)
		} else {
			defer client.Close()
			permCache = cache.NewPermissionCache(client, cfg.Redis.PermissionCacheTTL)
		}
	}

	var auditPublisher service.AuditPublisher
	if cfg.RabbitMQ.Enabled {
		conn, err := event.ConnectRabbitMQ(cfg.RabbitMQ)
		if err != nil {
			logger.Warn("rabbitmq unavailable, audit events stay local", "error", err)
		} else {
			defer conn.Close()
			publisher, err := event.NewAuditPublisher(conn, cfg.RabbitMQ.AuditExchange)
			if err != nil {
				logger.Warn("failed to set up audit publisher", "error", err)
			} else {
				auditPublisher = publisher
			}
		}
	}

	var importArchive service.ImportArchiver
	if cfg.Import.ArchiveEnabled {
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			logger.Warn("minio unavailable, import files will not be archived", "error", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			archive, err := storage.NewImportArchive(ctx, client, cfg.Minio.Bucket)
			cancel()
			if err != nil {
				logger.Warn("failed to set up import archive", "error", err)
			} else {
				importArchive = archive
			}
		}
	}

	counterPrinter, err := printer.New(cfg.Printer.Type, cfg.Printer.DevicePath, cfg.Printer.Address)
	if err != nil {
		logger.Warn("failed to initialize printer", "error", err)
		counterPrinter = printer.NewNullPrinter()
		cfg.Printer.Type = printer.TypeNone
	}

	// Initialize repositories
	transactor := repository.NewTransactor(db)
	userRepo := repository.NewUserRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	coverageRepo := repository.NewCoverageTypeRepository(db)
	policyRepo := repository.NewPolicyRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	receiptRepo := repository.NewReceiptRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	idempotencyRepo := repository.NewIdempotencyRepository(db)

	// Authorization
	permTable := service.NewRolePermissionTable(roleRepo, permCache)
	if err := permTable.Load(context.Background()); err != nil {
		logger.Error("failed to load role permissions", "error", err)
		os.Exit(1)
	}
	gate := service.NewAuthorizationGate(permTable)

	// Initialize services
	auditService := service.NewAuditService(auditRepo, auditPublisher)
	issuer := service.NewReceiptIssuer(paymentRepo, cfg.Ledger.ReceiptPrefix, cfg.Ledger.DefaultLocation)
	paymentService := service.NewPaymentService(transactor, policyRepo, paymentRepo, receiptRepo,
		gate, issuer, auditService, cfg.Ledger.MaxRetries)
	receiptService := service.NewReceiptService(receiptRepo, gate, auditService)
	policyService := service.NewPolicyService(transactor, policyRepo, paymentRepo, customerRepo,
		coverageRepo, auditService, cfg.Ledger.MaxRetries)
	customerService := service.NewCustomerService(customerRepo, auditService)
	importService := service.NewImportService(policyRepo, paymentRepo, paymentService, importArchive, auditService, cfg.Ledger.Location())
	reportService := service.NewReportService(receiptRepo)
	userService := service.NewUserService(userRepo, roleRepo, auditService)
	printerService := service.NewPrinterService(counterPrinter, receiptRepo, auditService, service.ReceiptHeader{
		Company: cfg.Printer.Company,
		Address: cfg.Printer.Office,
		Phone:   cfg.Printer.Phone,
	}, cfg.Printer.Type, cfg.Printer.Width)

	// Initialize handlers
	handlers := &routes.Handlers{
		Customer: handler.NewCustomerHandler(customerService),
		Policy:   handler.NewPolicyHandler(policyService),
		Payment:  handler.NewPaymentHandler(paymentService),
		Receipt:  handler.NewReceiptHandler(receiptService),
		Import:   handler.NewImportHandler(importService, cfg.Import.MaxUploadSize),
		Report:   handler.NewReportHandler(reportService),
		Audit:    handler.NewAuditHandler(auditService),
		User:     handler.NewUserHandler(userService, permTable),
		Printer:  handler.NewPrinterHandler(printerService),
	}

	rateLimiter := routes.NewRateLimiter(cfg.RateLimit)
	defer rateLimiter.Close()

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go middleware.PurgeExpiredIdempotencyKeys(purgeCtx, idempotencyRepo, time.Hour)

	// Setup routes
	router := routes.Setup(handlers, &routes.Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		Logger:          logger,
		Principals:      userService,
		Gate:            gate,
		IdempotencyRepo: idempotencyRepo,
		RateLimiter:     rateLimiter,
	})

	port := cfg.App.Port
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", "name", cfg.App.Name, "port", port, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
}

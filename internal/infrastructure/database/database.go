package database

import (
	"fmt"
	"log/slog"

	"github.com/sangkips/brokerdesk-api/internal/config"
	"github.com/sangkips/brokerdesk-api/internal/domain/entity"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to the database selected by cfg.Database.Driver
func Open(cfg *config.Config) (*gorm.DB, error) {
	logLevel := logger.Warn
	if cfg.App.Debug {
		logLevel = logger.Info
	}

	switch cfg.Database.Driver {
	case "sqlite":
		return NewSQLiteDB(cfg.Database.SQLitePath, logLevel)
	case "", "postgres":
		return NewPostgresDB(&cfg.Database, logLevel)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	slog.Info("connected to PostgreSQL database", "host", cfg.Host, "name", cfg.Name)
	return db, nil
}

// NewSQLiteDB opens a SQLite database at path (":memory:" for an in-memory
// one). SQLite has a single writer, so the pool is pinned to one connection;
// this also keeps an in-memory database alive for the life of the pool.
func NewSQLiteDB(path string, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	slog.Info("opened SQLite database", "path", path)
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	slog.Info("running database migrations")

	err := db.AutoMigrate(
		// Staff and RBAC
		&entity.User{},
		&entity.Role{},
		&entity.Permission{},

		// Book of business
		&entity.CoverageType{},
		&entity.Customer{},
		&entity.Policy{},
		&entity.PolicyHolder{},

		// Ledger
		&entity.Payment{},
		&entity.Receipt{},

		// System
		&entity.AuditLog{},
		&entity.IdempotencyKey{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("database migrations completed")
	return nil
}

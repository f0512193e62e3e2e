package config

import (
	"log"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Ledger    LedgerConfig
	Import    ImportConfig
	Redis     RedisConfig
	RabbitMQ  RabbitMQConfig
	Minio     MinioConfig
	Printer   PrinterConfig
	Logging   LoggingConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
}

type DatabaseConfig struct {
	Driver     string // postgres | sqlite
	Host       string
	Port       string
	Name       string
	User       string
	Password   string
	SSLMode    string
	Timezone   string
	SQLitePath string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// LedgerConfig tunes the payment application service
type LedgerConfig struct {
	MaxRetries      int
	DefaultLocation string
	ReceiptPrefix   string
	Timezone        string // business calendar day for duplicate detection
}

// Location resolves Timezone, falling back to UTC when it is unknown
func (c LedgerConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Warning: unknown LEDGER_TIMEZONE %q, using UTC: %v", c.Timezone, err)
		return time.UTC
	}
	return loc
}

type ImportConfig struct {
	MaxUploadSize  int64
	ArchiveEnabled bool
}

type RedisConfig struct {
	Enabled            bool
	Host               string
	Port               string
	Password           string
	DB                 int
	PermissionCacheTTL time.Duration
}

type RabbitMQConfig struct {
	Enabled       bool
	Host          string
	Port          string
	Username      string
	Password      string
	AuditExchange string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// PrinterConfig describes the counter receipt printer and the letterhead
type PrinterConfig struct {
	Type       string // none | usb | network
	DevicePath string
	Address    string
	Width      int
	Company    string
	Office     string
	Phone      string
}

type LoggingConfig struct {
	Level  string
	Format string // text|json
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	viper.SetDefault("APP_NAME", "brokerdesk-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("DB_DRIVER", "postgres")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "brokerdesk")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "America/St_Lucia")
	viper.SetDefault("DB_SQLITE_PATH", "./brokerdesk.db")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 12)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("LEDGER_MAX_RETRIES", 5)
	viper.SetDefault("LEDGER_DEFAULT_LOCATION", "Castries")
	viper.SetDefault("LEDGER_RECEIPT_PREFIX", "RCT")
	viper.SetDefault("LEDGER_TIMEZONE", "America/St_Lucia")
	viper.SetDefault("IMPORT_MAX_UPLOAD_SIZE", 20971520)
	viper.SetDefault("IMPORT_ARCHIVE_ENABLED", false)
	viper.SetDefault("REDIS_ENABLED", false)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_PERMISSION_CACHE_TTL_SECONDS", 300)
	viper.SetDefault("RABBITMQ_ENABLED", false)
	viper.SetDefault("RABBITMQ_HOST", "localhost")
	viper.SetDefault("RABBITMQ_PORT", "5672")
	viper.SetDefault("RABBITMQ_USERNAME", "guest")
	viper.SetDefault("RABBITMQ_PASSWORD", "guest")
	viper.SetDefault("RABBITMQ_AUDIT_EXCHANGE", "brokerdesk.audit")
	viper.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	viper.SetDefault("MINIO_BUCKET", "payment-imports")
	viper.SetDefault("MINIO_USE_SSL", false)
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_WIDTH", 32)
	viper.SetDefault("PRINTER_COMPANY", "BrokerDesk Insurance Brokers")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Database: DatabaseConfig{
			Driver:     viper.GetString("DB_DRIVER"),
			Host:       viper.GetString("DB_HOST"),
			Port:       viper.GetString("DB_PORT"),
			Name:       viper.GetString("DB_NAME"),
			User:       viper.GetString("DB_USER"),
			Password:   viper.GetString("DB_PASSWORD"),
			SSLMode:    viper.GetString("DB_SSL_MODE"),
			Timezone:   viper.GetString("DB_TIMEZONE"),
			SQLitePath: viper.GetString("DB_SQLITE_PATH"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Ledger: LedgerConfig{
			MaxRetries:      viper.GetInt("LEDGER_MAX_RETRIES"),
			DefaultLocation: viper.GetString("LEDGER_DEFAULT_LOCATION"),
			ReceiptPrefix:   viper.GetString("LEDGER_RECEIPT_PREFIX"),
			Timezone:        viper.GetString("LEDGER_TIMEZONE"),
		},
		Import: ImportConfig{
			MaxUploadSize:  viper.GetInt64("IMPORT_MAX_UPLOAD_SIZE"),
			ArchiveEnabled: viper.GetBool("IMPORT_ARCHIVE_ENABLED"),
		},
		Redis: RedisConfig{
			Enabled:            viper.GetBool("REDIS_ENABLED"),
			Host:               viper.GetString("REDIS_HOST"),
			Port:               viper.GetString("REDIS_PORT"),
			Password:           viper.GetString("REDIS_PASSWORD"),
			DB:                 viper.GetInt("REDIS_DB"),
			PermissionCacheTTL: time.Duration(viper.GetInt("REDIS_PERMISSION_CACHE_TTL_SECONDS")) * time.Second,
		},
		RabbitMQ: RabbitMQConfig{
			Enabled:       viper.GetBool("RABBITMQ_ENABLED"),
			Host:          viper.GetString("RABBITMQ_HOST"),
			Port:          viper.GetString("RABBITMQ_PORT"),
			Username:      viper.GetString("RABBITMQ_USERNAME"),
			Password:      viper.GetString("RABBITMQ_PASSWORD"),
			AuditExchange: viper.GetString("RABBITMQ_AUDIT_EXCHANGE"),
		},
		Minio: MinioConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
		},
		Printer: PrinterConfig{
			Type:       viper.GetString("PRINTER_TYPE"),
			DevicePath: viper.GetString("PRINTER_DEVICE_PATH"),
			Address:    viper.GetString("PRINTER_ADDRESS"),
			Width:      viper.GetInt("PRINTER_WIDTH"),
			Company:    viper.GetString("PRINTER_COMPANY"),
			Office:     viper.GetString("PRINTER_OFFICE_ADDRESS"),
			Phone:      viper.GetString("PRINTER_PHONE"),
		},
		Logging: LoggingConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}

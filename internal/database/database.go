package database

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/TridentTech8969/ASA/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connection pool configuration
const (
	DefaultMaxIdleConns    = 10
	DefaultMaxOpenConns    = 100
	DefaultConnMaxLifetime = time.Hour
	DefaultConnMaxIdleTime = 10 * time.Minute
)

const sqlitePrefix = "sqlite:"

// Connect opens the message store. URLs starting with "sqlite:" use an
// embedded SQLite file, anything else is handed to the PostgreSQL driver.
func Connect(databaseURL, appEnv string, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}

	cfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	}

	if path, ok := strings.CutPrefix(databaseURL, sqlitePrefix); ok {
		return connectSQLite(path, cfg, log)
	}

	// Validate SSL mode in production
	if appEnv == "production" {
		if err := validateSSLMode(databaseURL); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(postgres.Open(databaseURL), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	if err := configureConnectionPool(db, DefaultMaxIdleConns, DefaultMaxOpenConns); err != nil {
		return nil, err
	}

	log.Info("connected to database", slog.String("driver", "postgres"))
	return db, nil
}

func connectSQLite(path string, cfg *gorm.Config, log *slog.Logger) (*gorm.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}

	db, err := gorm.Open(sqlite.Open(path+"?_foreign_keys=on&_busy_timeout=5000"), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite serializes writers; one connection avoids SQLITE_BUSY between
	// the sync loop and request handlers.
	if err := configureConnectionPool(db, 1, 1); err != nil {
		return nil, err
	}

	log.Info("connected to database", slog.String("driver", "sqlite"), slog.String("path", path))
	return db, nil
}

// validateSSLMode ensures SSL is enabled in production
func validateSSLMode(databaseURL string) error {
	// Check if sslmode is explicitly disabled
	if strings.Contains(databaseURL, "sslmode=disable") {
		return fmt.Errorf("SSL mode cannot be disabled in production")
	}

	// If no sslmode specified, it's okay (defaults to prefer/require depending on server)
	return nil
}

// configureConnectionPool sets up connection pool limits
func configureConnectionPool(db *gorm.DB, maxIdle, maxOpen int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	return nil
}

// Migrate runs auto-migration for all models
func Migrate(db *gorm.DB, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	log.Info("running database migrations")

	err := db.AutoMigrate(
		&models.Message{},
		&models.Attachment{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("database migrations completed")
	return nil
}

// Ping checks that the database answers.
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

package database

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/welldanyogia/rampup-email-reviewer/internal/models"
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

// Supported drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Connect opens the comment database with the given driver
func Connect(driver, databaseURL string) (*gorm.DB, error) {
	dialector, err := dialectorFor(driver, databaseURL)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	if err := configureConnectionPool(db, driver); err != nil {
		return nil, err
	}

	slog.Info("Connected to database successfully", slog.String("driver", driver))
	return db, nil
}

// dialectorFor picks the gorm dialector for a driver name
func dialectorFor(driver, databaseURL string) (gorm.Dialector, error) {
	switch driver {
	case DriverPostgres, "":
		// Validate SSL mode in production
		if os.Getenv("APP_ENV") == "production" {
			if err := validateSSLMode(databaseURL); err != nil {
				return nil, err
			}
		}
		return postgres.Open(databaseURL), nil
	case DriverSQLite:
		return sqlite.Open(databaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
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
func configureConnectionPool(db *gorm.DB, driver string) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// SQLite allows a single writer
	if driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
		return nil
	}

	// Set connection pool limits
	sqlDB.SetMaxIdleConns(DefaultMaxIdleConns)
	sqlDB.SetMaxOpenConns(DefaultMaxOpenConns)
	sqlDB.SetConnMaxLifetime(DefaultConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(DefaultConnMaxIdleTime)

	return nil
}

// Migrate runs auto-migration for all models
func Migrate(db *gorm.DB) error {
	slog.Info("Running database migrations...")

	err := db.AutoMigrate(
		&models.Comment{},
		&models.Reviewer{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("Database migrations completed successfully")
	return nil
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kendall-kelly/agency-sales-api/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var DB *gorm.DB

// ErrNoDatabaseURL is returned when no database is configured
var ErrNoDatabaseURL = errors.New("DATABASE_URL is required")

// ConnectDatabase opens the database named by databaseURL. URLs starting
// with "sqlite:" open a SQLite file (or ":memory:"); anything else is
// handed to the PostgreSQL driver.
func ConnectDatabase(databaseURL string, logger *zap.Logger) error {
	if databaseURL == "" {
		return ErrNoDatabaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dialector := dialectorFor(databaseURL)
	db, err := gorm.Open(dialector, &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	DB = db
	logger.Info("Database connection established", zap.String("driver", dialector.Name()))
	return nil
}

func dialectorFor(databaseURL string) gorm.Dialector {
	if path, ok := strings.CutPrefix(databaseURL, "sqlite:"); ok {
		return sqlite.Open(strings.TrimPrefix(path, "//"))
	}
	return postgres.Open(databaseURL)
}

// Migrate creates or updates the tables for every model
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

// SetDB sets the database instance (primarily for testing)
func SetDB(db *gorm.DB) {
	DB = db
}

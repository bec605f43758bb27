package database

import (
	"fmt"
	"time"

	"github.com/voyara/backend/internal/config"
	"github.com/voyara/backend/internal/database/migrations"
	"github.com/voyara/backend/internal/models"
	"github.com/voyara/backend/internal/queue"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB initializes the database connection with configuration
func InitDB(dbConfig config.DatabaseConfig) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// Surface unique-index violations as gorm.ErrDuplicatedKey so the
		// accrual path can map a lost insert race to its sentinel.
		TranslateError: true,
	}

	db, err := gorm.Open(postgres.Open(dbConfig.URL), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	sqlDB.SetMaxIdleConns(dbConfig.MaxIdle)
	sqlDB.SetMaxOpenConns(dbConfig.MaxConns)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := migrations.RunMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to run auto migrations: %w", err)
	}

	return db, nil
}

// Migrate runs database auto migrations for models not covered by the
// versioned migration list (dev convenience; versioned migrations are the
// source of truth for the engine tables).
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Affiliate{},
		&models.Referral{},
		&models.Commission{},
		&models.Payout{},
		&models.ActivityLog{},
		&queue.Job{},
	)
}

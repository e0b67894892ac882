package database

import (
	"fmt"

	"casestudy-app/internal/domain/billing"
	"casestudy-app/internal/domain/content"
	"casestudy-app/internal/domain/plans"
	"casestudy-app/internal/domain/profiles"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Connect opens the postgres connection and migrates the schema. The
// returned handle is injected into the store and handlers; there is no
// package-level singleton.
func Connect(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	// Required for UUID generation
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto;`).Error; err != nil {
		return nil, fmt.Errorf("enable pgcrypto: %w", err)
	}

	if err := db.AutoMigrate(
		&profiles.Profile{},
		&profiles.VerificationToken{},
		&plans.Plan{},
		&billing.Payment{},
		&content.CaseStudy{},
		&content.Question{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

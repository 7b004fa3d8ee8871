package database

import (
	"fmt"

	"github.com/franciscosanchezn/gin-recipe-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for every persistent model
func Migrate(db *gorm.DB) error {
	log.Info("Running schema migration")
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// OpenInMemory opens a migrated, single-connection in-memory SQLite database.
// Used by package tests across the module.
func OpenInMemory() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), gormConfig())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

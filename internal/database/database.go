package database

import (
	"fmt"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/config"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase creates a new database connection and performs auto-migration.
func NewDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(cfg.Database.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate the schema
	if err := AutoMigrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// AutoMigrate creates or updates the tables for all settlement-engine models.
// Bots, trades and ledger transactions are audit data, so existing tables are
// never dropped.
func AutoMigrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.TradingBot{},
		&models.BotTrade{},
		&models.LedgerTransaction{},
		&models.PriceSample{},
	)
	if err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

package models

import "time"

// PriceSample is one observation from the price-history feed. The table is
// append-only and read-only to the settlement engine.
type PriceSample struct {
	ID        uint      `gorm:"primaryKey"`
	Symbol    string    `gorm:"size:20;not null;index:idx_symbol_time"`
	Price     float64   `gorm:"not null"`
	Volume    float64
	Change24h float64
	Timestamp time.Time `gorm:"not null;index:idx_symbol_time"`
}

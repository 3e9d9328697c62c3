package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade direction values.
const (
	DirectionLong  = "long"
	DirectionShort = "short"
)

// BotTrade status values.
const (
	TradeStatusCompleted = "completed"
	TradeStatusFailed    = "failed"
)

// BotTrade is the immutable settlement record for one bot. The unique index on
// BotID enforces at most one trade per bot at the storage level.
type BotTrade struct {
	gorm.Model
	BotID         uint    `gorm:"uniqueIndex;not null"`
	Direction     string  `gorm:"size:10;not null"`
	EntryPrice    float64 `gorm:"not null"`
	ExitPrice     float64 `gorm:"not null"`
	Leverage      int     `gorm:"not null"`
	Principal     float64 `gorm:"not null"`
	ProfitAmount  float64 `gorm:"not null"`
	ProfitPercent float64 `gorm:"not null"`
	Status        string  `gorm:"size:20;not null"`
	StartedAt     time.Time
	CompletedAt   time.Time
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// Bot status values. Only active bots are eligible for settlement; processing
// marks a bot claimed by a running settlement pass.
const (
	BotStatusActive     = "active"
	BotStatusPaused     = "paused"
	BotStatusStopped    = "stopped"
	BotStatusProcessing = "processing"
	BotStatusCompleted  = "completed"
)

// TradingBot represents a simulated leveraged trading position. Bots are never
// deleted; a completed bot serves as the audit record of its settlement.
// CurrentBalance mirrors the principal until settlement writes the final value.
type TradingBot struct {
	gorm.Model
	UserID             uint      `gorm:"index;not null"`
	Symbol             string    `gorm:"size:20;not null;index"`
	Principal          float64   `gorm:"not null"`
	CurrentBalance     float64
	Status             string    `gorm:"size:20;not null;index;default:'active'"`
	ExpectedCompletion time.Time `gorm:"index"`
	EntryPrice         float64
	ExitPrice          float64
	Leverage           int
	Direction          string `gorm:"size:10"`
}

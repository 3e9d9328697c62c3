package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerTransaction is an append-only balance change. Rows are never updated or
// deleted; the user's current balance is the NewBalance of their latest row.
// The invariant NewBalance = PreviousBalance + Amount holds for every row.
type LedgerTransaction struct {
	gorm.Model
	UserID          uint            `gorm:"index;not null"`
	Amount          decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	PreviousBalance decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	NewBalance      decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Reference       string          `gorm:"size:64;uniqueIndex;not null"`
	Description     string          `gorm:"size:255"`
}

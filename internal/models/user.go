package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User carries the current balance mirror. The balance is only ever written by
// the ledger, inside the same transaction that appends the LedgerTransaction
// row, so it always equals the NewBalance of the user's latest transaction.
type User struct {
	gorm.Model
	Email   string          `gorm:"size:255;uniqueIndex"`
	Balance decimal.Decimal `gorm:"type:numeric(30,10);not null"`
}

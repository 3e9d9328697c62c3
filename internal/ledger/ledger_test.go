package ledger

import (
	"context"
	"testing"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTest creates an isolated in-memory database with one funded user.
func setupTest(t *testing.T) (*Ledger, *gorm.DB, uint) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)

	sqlDB, err := db.DB()
	assert.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&models.User{}, &models.LedgerTransaction{})
	assert.NoError(t, err)

	user := models.User{Email: "trader@example.com", Balance: decimal.NewFromInt(500)}
	assert.NoError(t, db.Create(&user).Error)

	return New(db, zap.NewNop()), db, user.ID
}

func TestCredit_AppendsTransaction(t *testing.T) {
	// Arrange
	l, db, userID := setupTest(t)

	// Act
	newBalance, err := l.Credit(context.Background(), userID, decimal.NewFromInt(250), "dep-1", "test deposit")

	// Assert
	assert.NoError(t, err)
	assert.True(t, newBalance.Equal(decimal.NewFromInt(750)))

	var txn models.LedgerTransaction
	assert.NoError(t, db.Where("reference = ?", "dep-1").First(&txn).Error)
	assert.True(t, txn.PreviousBalance.Equal(decimal.NewFromInt(500)))
	assert.True(t, txn.NewBalance.Equal(txn.PreviousBalance.Add(txn.Amount)))

	var user models.User
	assert.NoError(t, db.First(&user, userID).Error)
	assert.True(t, user.Balance.Equal(newBalance))
}

func TestCredit_DuplicateReference(t *testing.T) {
	l, db, userID := setupTest(t)

	_, err := l.Credit(context.Background(), userID, decimal.NewFromInt(100), "once", "first")
	assert.NoError(t, err)

	// A retried credit with the same reference must not append a second row.
	_, err = l.Credit(context.Background(), userID, decimal.NewFromInt(100), "once", "retry")
	assert.ErrorIs(t, err, ErrDuplicateReference)

	var count int64
	assert.NoError(t, db.Model(&models.LedgerTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	balance, err := l.Balance(context.Background(), userID)
	assert.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(600)))
}

func TestDebit_InsufficientFunds(t *testing.T) {
	l, db, userID := setupTest(t)

	_, err := l.Debit(context.Background(), userID, decimal.NewFromInt(501), "", "too much")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Nothing appended, balance untouched.
	var count int64
	assert.NoError(t, db.Model(&models.LedgerTransaction{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	balance, err := l.Balance(context.Background(), userID)
	assert.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500)))
}

func TestCreditDebit_InvalidAmount(t *testing.T) {
	l, _, userID := setupTest(t)

	_, err := l.Credit(context.Background(), userID, decimal.Zero, "", "zero")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = l.Debit(context.Background(), userID, decimal.NewFromInt(-5), "", "negative")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestLedger_UserNotFound(t *testing.T) {
	l, _, _ := setupTest(t)

	_, err := l.Credit(context.Background(), 9999, decimal.NewFromInt(10), "", "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = l.Balance(context.Background(), 9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLedger_InvariantOverSequence(t *testing.T) {
	// Arrange
	l, db, userID := setupTest(t)
	ctx := context.Background()

	deltas := []int64{100, -50, 300, -25, 75}

	// Act
	for _, d := range deltas {
		var err error
		if d > 0 {
			_, err = l.Credit(ctx, userID, decimal.NewFromInt(d), "", "credit")
		} else {
			_, err = l.Debit(ctx, userID, decimal.NewFromInt(-d), "", "debit")
		}
		assert.NoError(t, err)
	}

	// Assert: final balance is the initial balance plus the sum of all deltas,
	// and every row satisfies new = previous + amount.
	var sum int64
	for _, d := range deltas {
		sum += d
	}

	balance, err := l.Balance(ctx, userID)
	assert.NoError(t, err)
	assert.True(t, balance.Equal(decimal.NewFromInt(500+sum)))

	var txns []models.LedgerTransaction
	assert.NoError(t, db.Where("user_id = ?", userID).Order("id ASC").Find(&txns).Error)
	assert.Len(t, txns, len(deltas))

	prev := decimal.NewFromInt(500)
	for _, txn := range txns {
		assert.True(t, txn.PreviousBalance.Equal(prev))
		assert.True(t, txn.NewBalance.Equal(txn.PreviousBalance.Add(txn.Amount)))
		prev = txn.NewBalance
	}
	assert.True(t, prev.Equal(balance))
}

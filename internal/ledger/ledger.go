package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrDuplicateReference = errors.New("duplicate transaction reference")
)

// Ledger is the durable, append-only record of balance changes. Every change
// goes through a single database transaction that reads the current balance,
// appends a LedgerTransaction row and updates the user's balance mirror, so
// NewBalance = PreviousBalance + Amount holds for every row.
type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a new Ledger backed by the given database.
func New(db *gorm.DB, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// Credit adds amount to the user's balance and returns the new balance.
// The reference must be unique across all transactions; crediting the same
// reference twice returns ErrDuplicateReference without a second append, which
// makes retried settlement credits idempotent. An empty reference gets a
// generated one.
func (l *Ledger) Credit(ctx context.Context, userID uint, amount decimal.Decimal, reference, description string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return l.apply(ctx, userID, amount, reference, description)
}

// Debit subtracts amount from the user's balance and returns the new balance.
// Fails with ErrInsufficientFunds if the balance would go negative.
func (l *Ledger) Debit(ctx context.Context, userID uint, amount decimal.Decimal, reference, description string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return l.apply(ctx, userID, amount.Neg(), reference, description)
}

// Balance returns the user's current balance.
func (l *Ledger) Balance(ctx context.Context, userID uint) (decimal.Decimal, error) {
	var user models.User
	if err := l.db.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, ErrUserNotFound
		}
		return decimal.Zero, err
	}
	return user.Balance, nil
}

func (l *Ledger) apply(ctx context.Context, userID uint, amount decimal.Decimal, reference, description string) (decimal.Decimal, error) {
	if reference == "" {
		reference = uuid.NewString()
	}

	var newBalance decimal.Decimal
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to load user %d: %w", userID, err)
		}

		var count int64
		if err := tx.Model(&models.LedgerTransaction{}).Where("reference = ?", reference).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check reference: %w", err)
		}
		if count > 0 {
			return ErrDuplicateReference
		}

		previous := user.Balance
		newBalance = previous.Add(amount)
		if newBalance.IsNegative() {
			return ErrInsufficientFunds
		}

		txn := models.LedgerTransaction{
			UserID:          userID,
			Amount:          amount,
			PreviousBalance: previous,
			NewBalance:      newBalance,
			Reference:       reference,
			Description:     description,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return fmt.Errorf("failed to append ledger transaction: %w", err)
		}

		if err := tx.Model(&user).Update("balance", newBalance).Error; err != nil {
			return fmt.Errorf("failed to update balance mirror: %w", err)
		}

		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	l.logger.Info("Ledger transaction applied",
		zap.Uint("user_id", userID),
		zap.String("amount", amount.String()),
		zap.String("new_balance", newBalance.String()),
		zap.String("reference", reference),
	)

	return newBalance, nil
}

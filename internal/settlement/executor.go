package settlement

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/ledger"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/models"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/notify"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/pricestore"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/scenario"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Outcome classifies one bot's settlement attempt.
type Outcome string

const (
	// OutcomeCompleted means the trade, bot transition and credit all persisted.
	OutcomeCompleted Outcome = "completed"
	// OutcomeSkippedNoData means the price window held fewer than two samples.
	// The bot stays active and is retried next cycle.
	OutcomeSkippedNoData Outcome = "skipped_no_data"
	// OutcomeSkippedNoScenario means no candidate landed in the profit band.
	OutcomeSkippedNoScenario Outcome = "skipped_no_scenario"
	// OutcomeSkippedNotClaimed means the bot was not active at claim time,
	// typically because a concurrent pass already settled it.
	OutcomeSkippedNotClaimed Outcome = "skipped_not_claimed"
	// OutcomePartial means the trade and bot transition persisted but the
	// ledger credit failed. The credit must be reconciled out-of-band.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed means nothing persisted; the bot was released back to
	// active and is retried next cycle.
	OutcomeFailed Outcome = "failed"
)

// ErrNotClaimed is returned when the conditional claim update matches no row.
var ErrNotClaimed = errors.New("bot is not claimable")

// BalanceCrediter is the slice of the ledger the executor needs.
type BalanceCrediter interface {
	Credit(ctx context.Context, userID uint, amount decimal.Decimal, reference, description string) (decimal.Decimal, error)
}

// Executor settles a single bot: it claims the bot row, searches the price
// window for a scenario, persists the trade and bot transition atomically,
// credits the user's ledger and emits a completion event.
type Executor struct {
	db       *gorm.DB
	prices   pricestore.Source
	ledger   BalanceCrediter
	notifier notify.Notifier
	params   scenario.Params
	logger   *zap.Logger

	// rand.Rand is not safe for concurrent use; the scheduler settles bots in
	// parallel, so the scenario pick is serialized.
	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewExecutor creates a new Executor. Pass a seeded rng for deterministic
// scenario picks; nil uses a time-seeded source.
func NewExecutor(db *gorm.DB, prices pricestore.Source, l BalanceCrediter, notifier notify.Notifier, params scenario.Params, logger *zap.Logger, rng *rand.Rand) *Executor {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Executor{
		db:       db,
		prices:   prices,
		ledger:   l,
		notifier: notifier,
		params:   params,
		logger:   logger,
		rng:      rng,
	}
}

// SettlementReference is the idempotency key for a bot's settlement credit.
// The unique index on ledger references guarantees at most one credit per bot
// even if the credit is retried during reconciliation.
func SettlementReference(botID uint) string {
	return fmt.Sprintf("bot:%d:settlement", botID)
}

// Settle completes one bot. The claim step is a conditional update, so two
// concurrent passes over the same bot settle it exactly once: the loser of the
// race observes zero affected rows and skips.
func (e *Executor) Settle(ctx context.Context, bot *models.TradingBot) (Outcome, error) {
	l := e.logger.With(
		zap.Uint("bot_id", bot.ID),
		zap.Uint("user_id", bot.UserID),
		zap.String("symbol", bot.Symbol),
	)

	// 1. Claim: active -> processing, only if still active.
	res := e.db.WithContext(ctx).
		Model(&models.TradingBot{}).
		Where("id = ? AND status = ?", bot.ID, models.BotStatusActive).
		Update("status", models.BotStatusProcessing)
	if res.Error != nil {
		return OutcomeFailed, fmt.Errorf("failed to claim bot %d: %w", bot.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		l.Debug("Bot not claimable, skipping", zap.String("status", bot.Status))
		return OutcomeSkippedNotClaimed, ErrNotClaimed
	}

	now := time.Now()

	// 2. Fetch the price window and search for a scenario.
	samples, err := e.prices.GetPrices(ctx, bot.Symbol, bot.CreatedAt, now)
	if err != nil {
		e.release(bot.ID, l)
		return OutcomeFailed, fmt.Errorf("failed to fetch price window for bot %d: %w", bot.ID, err)
	}

	e.rngMu.Lock()
	sc, err := scenario.Analyze(samples, e.params, e.rng)
	e.rngMu.Unlock()
	if err != nil {
		e.release(bot.ID, l)
		switch {
		case errors.Is(err, scenario.ErrInsufficientData):
			l.Info("Not enough price data to settle, will retry next cycle",
				zap.Int("samples", len(samples)))
			return OutcomeSkippedNoData, err
		case errors.Is(err, scenario.ErrNoProfitableScenario):
			l.Warn("No profitable scenario in window, will retry next cycle",
				zap.Int("samples", len(samples)))
			return OutcomeSkippedNoScenario, err
		default:
			return OutcomeFailed, fmt.Errorf("scenario analysis failed for bot %d: %w", bot.ID, err)
		}
	}

	// 3. Derive the settlement amounts.
	profitAmount := bot.Principal * sc.ProfitPercent / 100
	finalBalance := bot.Principal + profitAmount

	l = l.With(
		zap.String("direction", sc.Direction),
		zap.Int("leverage", sc.Leverage),
		zap.Float64("profit_percent", sc.ProfitPercent),
		zap.Float64("profit_amount", profitAmount),
	)

	// 4.-5. Trade record and bot transition persist together. The bot update is
	// conditional on the processing marker so a lost claim can never complete
	// someone else's settlement.
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		trade := models.BotTrade{
			BotID:         bot.ID,
			Direction:     sc.Direction,
			EntryPrice:    sc.EntryPrice,
			ExitPrice:     sc.ExitPrice,
			Leverage:      sc.Leverage,
			Principal:     bot.Principal,
			ProfitAmount:  profitAmount,
			ProfitPercent: sc.ProfitPercent,
			Status:        models.TradeStatusCompleted,
			StartedAt:     bot.CreatedAt,
			CompletedAt:   now,
		}
		if err := tx.Create(&trade).Error; err != nil {
			return fmt.Errorf("failed to create trade record: %w", err)
		}

		update := tx.Model(&models.TradingBot{}).
			Where("id = ? AND status = ?", bot.ID, models.BotStatusProcessing).
			Updates(map[string]interface{}{
				"status":          models.BotStatusCompleted,
				"current_balance": finalBalance,
				"entry_price":     sc.EntryPrice,
				"exit_price":      sc.ExitPrice,
				"leverage":        sc.Leverage,
				"direction":       sc.Direction,
			})
		if update.Error != nil {
			return fmt.Errorf("failed to complete bot: %w", update.Error)
		}
		if update.RowsAffected == 0 {
			return fmt.Errorf("bot %d lost its claim during settlement", bot.ID)
		}
		return nil
	})
	if err != nil {
		e.release(bot.ID, l)
		l.Error("Settlement persistence failed", zap.Error(err))
		return OutcomeFailed, err
	}

	// 6. Credit principal plus profit. The bot is already completed, so a
	// failure here is a partial settlement needing manual reconciliation, not
	// an automatic retry.
	description := fmt.Sprintf("%s bot settlement: %.2f%% profit", bot.Symbol, sc.ProfitPercent)
	newBalance, err := e.ledger.Credit(ctx, bot.UserID, decimal.NewFromFloat(finalBalance), SettlementReference(bot.ID), description)
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			// The credit already landed in an earlier attempt.
			l.Warn("Settlement credit already applied, skipping")
		} else {
			l.Error("Settlement credit failed, manual reconciliation required",
				zap.Float64("final_balance", finalBalance),
				zap.String("reference", SettlementReference(bot.ID)),
				zap.Error(err),
			)
			return OutcomePartial, fmt.Errorf("partial settlement of bot %d: %w", bot.ID, err)
		}
	}

	// 7. Fire-and-forget completion event.
	if err := e.notifier.Notify(ctx, notify.Event{
		Type:          notify.EventBotCompleted,
		BotID:         bot.ID,
		UserID:        bot.UserID,
		Symbol:        bot.Symbol,
		Direction:     sc.Direction,
		Leverage:      sc.Leverage,
		ProfitPercent: sc.ProfitPercent,
		ProfitAmount:  profitAmount,
		FinalBalance:  finalBalance,
		CompletedAt:   now,
	}); err != nil {
		l.Warn("Failed to deliver completion notification", zap.Error(err))
	}

	l.Info("Bot settled", zap.String("new_balance", newBalance.String()))
	return OutcomeCompleted, nil
}

// release puts a claimed bot back to active so the next pass retries it. Runs
// without the caller's context: a timed-out settlement must still release.
func (e *Executor) release(botID uint, l *zap.Logger) {
	res := e.db.
		Model(&models.TradingBot{}).
		Where("id = ? AND status = ?", botID, models.BotStatusProcessing).
		Update("status", models.BotStatusActive)
	if res.Error != nil {
		l.Error("Failed to release claimed bot, manual intervention required", zap.Error(res.Error))
	}
}

package settlement

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Settler settles one bot. Satisfied by *Executor.
type Settler interface {
	Settle(ctx context.Context, bot *models.TradingBot) (Outcome, error)
}

// Summary aggregates one scheduler pass. Counts only, no payloads.
type Summary struct {
	Due       int
	Completed int
	Skipped   int
	Partial   int
	Failed    int
}

// Scheduler drives the executor over all due bots on each invocation. Bots are
// processed independently: one bot's failure never aborts the batch, and a bot
// that fails stays active until it settles or is manually intervened upon.
type Scheduler struct {
	db          *gorm.DB
	settler     Settler
	botTimeout  time.Duration
	maxParallel int
	logger      *zap.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(db *gorm.DB, settler Settler, botTimeout time.Duration, maxParallel int, logger *zap.Logger) *Scheduler {
	if botTimeout <= 0 {
		botTimeout = 30 * time.Second
	}
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Scheduler{
		db:          db,
		settler:     settler,
		botTimeout:  botTimeout,
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// ListDueBots returns all bots eligible for settlement at the given time.
func (s *Scheduler) ListDueBots(ctx context.Context, now time.Time) ([]models.TradingBot, error) {
	var bots []models.TradingBot
	err := s.db.WithContext(ctx).
		Where("status = ? AND expected_completion <= ?", models.BotStatusActive, now).
		Find(&bots).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due bots: %w", err)
	}
	return bots, nil
}

// RunOnce performs a single settlement pass: list due bots, settle each with
// bounded parallelism and a per-bot deadline, and log an aggregate summary.
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	start := time.Now()

	bots, err := s.ListDueBots(ctx, start)
	if err != nil {
		// Transient store failures surface here; the next scheduled pass retries.
		s.logger.Error("Settlement pass aborted", zap.Error(err))
		return Summary{}
	}
	if len(bots) == 0 {
		s.logger.Debug("No bots due for settlement")
		return Summary{}
	}

	s.logger.Info("Starting settlement pass", zap.Int("due_bots", len(bots)))

	var wg sync.WaitGroup
	outcomes := make(chan Outcome, len(bots))
	sem := make(chan struct{}, s.maxParallel)

	for _, b := range bots {
		wg.Add(1)
		go func(bot models.TradingBot) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			// A hung settlement must not block the rest of the batch; a
			// timed-out bot is released and retried next cycle.
			botCtx, cancel := context.WithTimeout(ctx, s.botTimeout)
			defer cancel()

			outcome, err := s.settler.Settle(botCtx, &bot)
			if err != nil && outcome == OutcomeFailed {
				s.logger.Error("Bot settlement failed",
					zap.Uint("bot_id", bot.ID),
					zap.Error(err),
				)
			}
			outcomes <- outcome
		}(b)
	}

	go func() {
		wg.Wait()
		close(outcomes)
	}()

	summary := Summary{Due: len(bots)}
	for outcome := range outcomes {
		switch outcome {
		case OutcomeCompleted:
			summary.Completed++
		case OutcomePartial:
			summary.Partial++
		case OutcomeFailed:
			summary.Failed++
		default:
			summary.Skipped++
		}
	}

	s.logger.Info("Settlement pass complete",
		zap.Int("due", summary.Due),
		zap.Int("completed", summary.Completed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("partial", summary.Partial),
		zap.Int("failed", summary.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)

	return summary
}

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// EventBotCompleted is emitted after a bot settles.
const EventBotCompleted = "bot_completed"

// Event is the payload delivered to the notification sink.
type Event struct {
	Type          string    `json:"type"`
	BotID         uint      `json:"bot_id"`
	UserID        uint      `json:"user_id"`
	Symbol        string    `json:"symbol"`
	Direction     string    `json:"direction"`
	Leverage      int       `json:"leverage"`
	ProfitPercent float64   `json:"profit_percent"`
	ProfitAmount  float64   `json:"profit_amount"`
	FinalBalance  float64   `json:"final_balance"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Notifier dispatches events to an external sink. Delivery is fire-and-forget
// from the settlement's point of view: callers log failures and move on.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Webhook posts events as JSON to a configured URL.
type Webhook struct {
	client  *resty.Client
	url     string
	logger  *zap.Logger
	limiter *rate.Limiter
}

var _ Notifier = (*Webhook)(nil)

// NewWebhook creates a webhook notifier. Transient failures (5xx, 429) are
// retried by the client; the rate limiter keeps a burst of completions from
// flooding the sink.
func NewWebhook(cfg *config.Notifier, logger *zap.Logger) *Webhook {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second)

	return &Webhook{
		client:  client,
		url:     cfg.WebhookURL,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, event Event) error {
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	resp, err := w.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(event).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("failed to deliver %s event: %w", event.Type, err)
	}
	if resp.IsError() {
		return fmt.Errorf("notification sink returned %s", resp.Status())
	}

	w.logger.Debug("Notification delivered",
		zap.String("type", event.Type),
		zap.Uint("bot_id", event.BotID),
	)
	return nil
}

// Nop discards all events. Used when no webhook is configured and in tests.
type Nop struct{}

var _ Notifier = (*Nop)(nil)

// Notify implements Notifier.
func (Nop) Notify(context.Context, Event) error { return nil }

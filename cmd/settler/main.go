package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/config"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/database"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/ledger"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/logger"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/notify"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/pricestore"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/scenario"
	"github.com/dvvvvv411/simple-earn-panel-sub002/internal/settlement"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		panic(fmt.Sprintf("could not load config: %v", err))
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(&cfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Wire the settlement engine
	var notifier notify.Notifier
	if cfg.Notifier.WebhookURL != "" {
		notifier = notify.NewWebhook(&cfg.Notifier, log)
		log.Info("Webhook notifier enabled", zap.String("url", cfg.Notifier.WebhookURL))
	} else {
		notifier = notify.Nop{}
		log.Warn("No webhook URL configured, completion events will be discarded")
	}

	params := scenario.Params{
		MinProfitPercent: cfg.Settlement.MinProfitPercent,
		MaxProfitPercent: cfg.Settlement.MaxProfitPercent,
		MinLeverage:      cfg.Settlement.MinLeverage,
		MaxLeverage:      cfg.Settlement.MaxLeverage,
		MinMovement:      cfg.Settlement.MinMovement,
		TopSlice:         scenario.DefaultParams().TopSlice,
	}

	executor := settlement.NewExecutor(db, pricestore.New(db), ledger.New(db, log), notifier, params, log, nil)
	scheduler := settlement.NewScheduler(db, executor,
		time.Duration(cfg.Scheduler.BotTimeout)*time.Second,
		cfg.Scheduler.MaxParallel,
		log,
	)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if cfg.Scheduler.RunOnStartup {
		scheduler.RunOnce(ctx)
	}

	// The settlement pass runs on a cron trigger; overlapping invocations are
	// safe because each bot is claimed with a conditional update.
	c := cron.New()
	if _, err := c.AddFunc(cfg.Scheduler.CronSpec, func() { scheduler.RunOnce(ctx) }); err != nil {
		log.Fatal("Invalid cron spec", zap.String("spec", cfg.Scheduler.CronSpec), zap.Error(err))
	}
	c.Start()
	log.Info("Settlement scheduler started", zap.String("cron_spec", cfg.Scheduler.CronSpec))

	<-ctx.Done()

	// Wait for any in-flight pass before exiting.
	<-c.Stop().Done()
	log.Info("Settlement engine has been shut down.")
}

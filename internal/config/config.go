package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Logger     Logger     `mapstructure:"logger"`
	Database   Database   `mapstructure:"database"`
	Scheduler  Scheduler  `mapstructure:"scheduler"`
	Settlement Settlement `mapstructure:"settlement"`
	Notifier   Notifier   `mapstructure:"notifier"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Scheduler holds the configuration for the settlement scheduler.
type Scheduler struct {
	CronSpec     string `mapstructure:"cron_spec"`
	BotTimeout   int    `mapstructure:"bot_timeout"`    // seconds, per-bot settlement deadline
	MaxParallel  int    `mapstructure:"max_parallel"`   // bots settled concurrently per pass
	RunOnStartup bool   `mapstructure:"run_on_startup"` // run one pass immediately before the first tick
}

// Settlement holds the parameters of the scenario search.
type Settlement struct {
	MinProfitPercent float64 `mapstructure:"min_profit_percent"`
	MaxProfitPercent float64 `mapstructure:"max_profit_percent"`
	MinLeverage      int     `mapstructure:"min_leverage"`
	MaxLeverage      int     `mapstructure:"max_leverage"`
	MinMovement      float64 `mapstructure:"min_movement"` // fraction, e.g. 0.001 for 0.1%
}

// Notifier holds the configuration for the outbound webhook notifier.
type Notifier struct {
	WebhookURL     string  `mapstructure:"webhook_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or yaml, json

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("scheduler.cron_spec", "@every 1m")
	viper.SetDefault("scheduler.bot_timeout", 30)
	viper.SetDefault("scheduler.max_parallel", 4)
	viper.SetDefault("settlement.min_profit_percent", 1.0)
	viper.SetDefault("settlement.max_profit_percent", 3.0)
	viper.SetDefault("settlement.min_leverage", 1)
	viper.SetDefault("settlement.max_leverage", 100)
	viper.SetDefault("settlement.min_movement", 0.001)
	viper.SetDefault("notifier.rate_limit", 5) // requests per second
	viper.SetDefault("notifier.rate_limit_burst", 2)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

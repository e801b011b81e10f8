package watcher

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Drawdown-from-high thresholds, as positive fractions.
	HeadsUpPct float64 `envconfig:"WATCH_HEADSUP_PCT" default:"0.05"`
	ActionPct  float64 `envconfig:"WATCH_ACTION_PCT" default:"0.08"`

	// Gain-over-buy threshold for the profit-lock nudge.
	ProfitPct float64 `envconfig:"WATCH_PROFIT_PCT" default:"0.15"`

	// A position held this long without hitting any other alert is flagged
	// for review.
	StaleDays int `envconfig:"WATCH_STALE_DAYS" default:"7"`

	AlertCooldown time.Duration `envconfig:"WATCH_ALERT_COOLDOWN" default:"24h"`
	StaleCooldown time.Duration `envconfig:"WATCH_STALE_COOLDOWN" default:"72h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

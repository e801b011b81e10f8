package scanner

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	PreselectCount  int     `envconfig:"SCAN_PRESELECT_COUNT" default:"80"`
	MinVolume24h    float64 `envconfig:"SCAN_MIN_VOLUME_24H" default:"5000000"`
	MaxATRPct       float64 `envconfig:"SCAN_MAX_ATR_PCT" default:"0.08"`
	EMAFilter       string  `envconfig:"SCAN_EMA_FILTER" default:"off"` // off | ema50 | ema100
	MaxRSI          float64 `envconfig:"SCAN_MAX_RSI" default:"80"`
	TopK            int     `envconfig:"SCAN_TOP_K" default:"10"`
	MinSeriesPoints int     `envconfig:"SCAN_MIN_SERIES_POINTS" default:"200"`

	// Cooldown suppression is off by default; N>0 suppresses a coin picked
	// in each of the last N cycles with strictly decreasing scores.
	CooldownLookback int `envconfig:"SCAN_COOLDOWN_LOOKBACK" default:"0"`

	HistoryDays      int           `envconfig:"SCAN_HISTORY_DAYS" default:"10"`
	FetchConcurrency int           `envconfig:"SCAN_FETCH_CONCURRENCY" default:"1"`
	FetchDelay       time.Duration `envconfig:"SCAN_FETCH_DELAY" default:"2200ms"`

	// Snapshot freshness per scan kind: deep scans force a refresh, rescores
	// reuse anything younger than the long TTL to spare the upstream quota.
	SnapshotDeepTTL    time.Duration `envconfig:"SNAPSHOT_DEEP_TTL" default:"10m"`
	SnapshotRescoreTTL time.Duration `envconfig:"SNAPSHOT_RESCORE_TTL" default:"6h"`

	RequireListed bool `envconfig:"SCAN_REQUIRE_LISTED" default:"false"`

	WildcardsEnabled bool `envconfig:"SCAN_WILDCARDS_ENABLED" default:"false"`
	MaxWildcards     int  `envconfig:"SCAN_MAX_WILDCARDS" default:"2"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

package ai

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the wildcard-evaluator settings. The approval thresholds are
// the single canonical set shared by the OpenAI prompt and the rule-based
// fallback.
type Config struct {
	OpenAIKey   string `envconfig:"OPENAI_API_KEY"`
	OpenAIModel string `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	Enabled     bool   `envconfig:"AI_WILDCARDS" default:"true"`

	ApproveMaxATRPct float64 `envconfig:"AI_APPROVE_MAX_ATR_PCT" default:"0.12"`
	ApproveMinVol24  float64 `envconfig:"AI_APPROVE_MIN_VOL24" default:"2000000"`

	// Horizon breakpoints on ATR%: above the first, roughly half a day;
	// above the second, two days; otherwise swing horizon.
	HorizonFastATRPct float64 `envconfig:"AI_HORIZON_FAST_ATR_PCT" default:"0.09"`
	HorizonMidATRPct  float64 `envconfig:"AI_HORIZON_MID_ATR_PCT" default:"0.06"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

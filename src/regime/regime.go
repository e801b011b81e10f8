package regime

import (
	"context"
	"fmt"

	"github.com/kelseyhightower/envconfig"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/indicators"
	"cryptobroker/src/model"
)

type Config struct {
	ReferenceCoinID string  `envconfig:"REGIME_REFERENCE_COIN" default:"bitcoin"`
	HistoryDays     int     `envconfig:"REGIME_HISTORY_DAYS" default:"400"`
	EMAPeriod       int     `envconfig:"REGIME_EMA_PERIOD" default:"200"`
	DrawdownFloor   float64 `envconfig:"REGIME_DRAWDOWN_FLOOR" default:"-0.10"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

type dailyHistoryFetcher interface {
	DailyHistory(ctx context.Context, coinID string, days int) ([]float64, error)
}

// Detector classifies the broad market as risk-on or risk-off from the
// reference asset's long trend and recent drawdown.
type Detector struct {
	gateway dailyHistoryFetcher
	cfg     Config
}

func NewDetector(gateway dailyHistoryFetcher, cfg Config) *Detector {
	return &Detector{gateway: gateway, cfg: cfg}
}

// Detect returns risk-off only when the reference price sits below its long
// EMA and the last week drew down more than the configured floor. Data
// shortage or a fetch error defaults to risk-on.
func (d *Detector) Detect(ctx context.Context) string {
	closes, err := d.gateway.DailyHistory(ctx, d.cfg.ReferenceCoinID, d.cfg.HistoryDays)
	if err != nil {
		logger.WithError(err).Warn("Regime reference history fetch failed, defaulting to risk-on")
		return model.RegimeRiskOn
	}
	return d.classify(closes)
}

func (d *Detector) classify(closes []float64) string {
	if len(closes) < d.cfg.EMAPeriod {
		logger.WithFields(map[string]interface{}{
			"component": "regime",
			"points":    len(closes),
			"required":  d.cfg.EMAPeriod,
		}).Info("Not enough reference history, defaulting to risk-on")
		return model.RegimeRiskOn
	}

	ema := indicators.EMA(closes, d.cfg.EMAPeriod)
	last := closes[len(closes)-1]
	underTrend := last < ema[len(ema)-1]

	// Drawdown of the last close against the max of the trailing week.
	window := closes
	if len(window) > 8 {
		window = window[len(window)-8:]
	}
	peak := window[0]
	for _, v := range window[1:] {
		if v > peak {
			peak = v
		}
	}
	dd7 := 0.0
	if peak != 0 {
		dd7 = last/peak - 1.0
	}

	if underTrend && dd7 < d.cfg.DrawdownFloor {
		logger.WithFields(map[string]interface{}{
			"component":  "regime",
			"drawdown7d": dd7,
		}).Info("Market regime: risk-off")
		return model.RegimeRiskOff
	}
	return model.RegimeRiskOn
}

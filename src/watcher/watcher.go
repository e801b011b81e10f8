package watcher

import (
	"context"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/model"
	"cryptobroker/src/notifier"
)

type spotPricer interface {
	SpotPrices(ctx context.Context, coinIDs []string) (map[string]float64, error)
}

type tradeStore interface {
	FindOpen(ctx context.Context) ([]model.Trade, error)
	SaveBatch(ctx context.Context, trades []*model.Trade) error
}

// Watcher refreshes open positions against spot prices and raises cooled
// alerts when exit conditions approach. It never closes a trade itself;
// every exit stays a manual decision.
type Watcher struct {
	cfg    Config
	pricer spotPricer
	trades tradeStore
	notify notifier.Notifier
	now    func() time.Time
}

func New(cfg Config, pricer spotPricer, trades tradeStore, notify notifier.Notifier) *Watcher {
	return &Watcher{
		cfg:    cfg,
		pricer: pricer,
		trades: trades,
		notify: notify,
		now:    time.Now,
	}
}

// Run executes one watch cycle: load open trades, refresh prices, evaluate
// alert rules per position and commit the mutated rows in one batch. A
// panic in the rule evaluation is contained to the cycle.
func (w *Watcher) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithField("component", "watcher").
				Errorf("Watch cycle panicked: %v", r)
			err = fmt.Errorf("watch cycle panicked: %v", r)
		}
	}()

	log := logger.WithField("component", "watcher")

	open, err := w.trades.FindOpen(ctx)
	if err != nil {
		return fmt.Errorf("load open trades: %w", err)
	}
	if len(open) == 0 {
		log.Debug("No open positions to watch")
		return nil
	}

	prices, err := w.pricer.SpotPrices(ctx, coinIDs(open))
	if err != nil {
		return fmt.Errorf("fetch spot prices: %w", err)
	}

	changed := make([]*model.Trade, 0, len(open))
	for i := range open {
		trade := &open[i]

		price, ok := prices[trade.CoinID]
		if !ok || price <= 0 {
			log.WithField("coin_id", trade.CoinID).
				Warn("No spot price for open position, skipping this cycle")
			continue
		}

		w.refresh(trade, price)
		w.evaluate(trade, price)
		changed = append(changed, trade)
	}

	if err := w.trades.SaveBatch(ctx, changed); err != nil {
		return fmt.Errorf("save watched trades: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"open":    len(open),
		"updated": len(changed),
	}).Info("Watch cycle finished")

	return nil
}

// refresh updates the price snapshot. The high-water mark only ever moves
// up.
func (w *Watcher) refresh(trade *model.Trade, price float64) {
	trade.LastPriceUSD = price
	if price > trade.HighWaterUSD {
		trade.HighWaterUSD = price
	}
	if trade.HighWaterUSD < trade.BuyPriceUSD {
		trade.HighWaterUSD = trade.BuyPriceUSD
	}
}

// evaluate applies the four alert rules in severity order. Rules are
// independent; one price move can trip heads-up and action in the same
// cycle.
func (w *Watcher) evaluate(trade *model.Trade, price float64) {
	drawdown := 0.0
	if trade.HighWaterUSD > 0 {
		drawdown = (price - trade.HighWaterUSD) / trade.HighWaterUSD
	}
	gain := 0.0
	if trade.BuyPriceUSD > 0 {
		gain = (price - trade.BuyPriceUSD) / trade.BuyPriceUSD
	}

	if drawdown <= -w.cfg.HeadsUpPct {
		w.raise(trade, model.AlertHeadsUp, drawdown, w.cfg.AlertCooldown)
	}
	if drawdown <= -w.cfg.ActionPct {
		w.raise(trade, model.AlertAction, drawdown, w.cfg.AlertCooldown)
	}
	if gain >= w.cfg.ProfitPct {
		w.raise(trade, model.AlertProfitLock, gain, w.cfg.AlertCooldown)
	}
	if w.isStale(trade) {
		w.raise(trade, model.AlertStale, gain, w.cfg.StaleCooldown)
	}
}

func (w *Watcher) isStale(trade *model.Trade) bool {
	if w.cfg.StaleDays <= 0 {
		return false
	}
	held := w.now().Sub(trade.InvestedAt)
	return held >= time.Duration(w.cfg.StaleDays)*24*time.Hour
}

// raise sends one alert unless its kind is still cooling down. The cooldown
// stamp is only written after a successful send so a flaky mail hop gets a
// retry next cycle.
func (w *Watcher) raise(trade *model.Trade, kind string, change float64, cooldown time.Duration) {
	if last := trade.LastAlertAt(kind); last != nil && w.now().Sub(*last) < cooldown {
		return
	}

	if err := w.notify.SendPositionAlert(trade, kind, change); err != nil {
		logger.WithError(err).WithFields(map[string]interface{}{
			"component": "watcher",
			"trade_id":  trade.ID,
			"kind":      kind,
		}).Warn("Failed to send position alert")
		return
	}

	trade.StampAlert(kind, w.now())
	logger.WithFields(map[string]interface{}{
		"component": "watcher",
		"trade_id":  trade.ID,
		"symbol":    trade.Symbol,
		"kind":      kind,
		"change":    fmt.Sprintf("%+.1f%%", change*100),
	}).Info("Position alert sent")
}

func coinIDs(trades []model.Trade) []string {
	seen := make(map[string]struct{}, len(trades))
	out := make([]string, 0, len(trades))
	for _, t := range trades {
		if _, ok := seen[t.CoinID]; ok {
			continue
		}
		seen[t.CoinID] = struct{}{}
		out = append(out, t.CoinID)
	}
	return out
}

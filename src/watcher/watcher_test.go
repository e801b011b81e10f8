package watcher

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cryptobroker/src/model"
)

type fakePricer struct {
	prices map[string]float64
	err    error
}

func (f *fakePricer) SpotPrices(_ context.Context, _ []string) (map[string]float64, error) {
	return f.prices, f.err
}

type fakeTradeStore struct {
	open    []model.Trade
	openErr error
	saved   []*model.Trade
	saveErr error
}

func (f *fakeTradeStore) FindOpen(context.Context) ([]model.Trade, error) {
	return f.open, f.openErr
}

func (f *fakeTradeStore) SaveBatch(_ context.Context, trades []*model.Trade) error {
	f.saved = trades
	return f.saveErr
}

type sentAlert struct {
	tradeID uint
	kind    string
	change  float64
}

type fakeAlerter struct {
	alerts []sentAlert
	err    error
}

func (f *fakeAlerter) SendSignal(*model.Signal) error { return nil }

func (f *fakeAlerter) SendPositionAlert(trade *model.Trade, kind string, change float64) error {
	if f.err != nil {
		return f.err
	}
	f.alerts = append(f.alerts, sentAlert{tradeID: trade.ID, kind: kind, change: change})
	return nil
}

func testWatchConfig() Config {
	return Config{
		HeadsUpPct:    0.05,
		ActionPct:     0.08,
		ProfitPct:     0.15,
		StaleDays:     7,
		AlertCooldown: 24 * time.Hour,
		StaleCooldown: 72 * time.Hour,
	}
}

var watchNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestWatcher(cfg Config, pricer *fakePricer, store *fakeTradeStore, alerter *fakeAlerter) *Watcher {
	w := New(cfg, pricer, store, alerter)
	w.now = func() time.Time { return watchNow }
	return w
}

func openTrade(id uint, buy float64) model.Trade {
	return model.Trade{
		ID:           id,
		CoinID:       "solana",
		Symbol:       "SOL",
		InvestedAt:   watchNow.Add(-24 * time.Hour),
		BuyPriceUSD:  buy,
		HighWaterUSD: buy,
		Units:        1,
	}
}

func TestRun_NoOpenTrades(t *testing.T) {
	store := &fakeTradeStore{}
	w := newTestWatcher(testWatchConfig(), &fakePricer{}, store, &fakeAlerter{})

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.saved != nil {
		t.Fatal("no batch write expected without open trades")
	}
}

func TestRun_PriceFetchFailure(t *testing.T) {
	store := &fakeTradeStore{open: []model.Trade{openTrade(1, 100)}}
	w := newTestWatcher(testWatchConfig(), &fakePricer{err: errors.New("rate limited")}, store, &fakeAlerter{})

	if err := w.Run(context.Background()); err == nil {
		t.Fatal("expected error when spot prices are unavailable")
	}
	if store.saved != nil {
		t.Fatal("no batch write expected on price fetch failure")
	}
}

func TestRun_HighWaterThenDrawdown(t *testing.T) {
	// Buy at 100. First cycle sees 110, second sees 95: the drawdown from
	// the 110 high is -13.6%, tripping both heads-up and action at once.
	trade := openTrade(1, 100)
	store := &fakeTradeStore{open: []model.Trade{trade}}
	pricer := &fakePricer{prices: map[string]float64{"solana": 110}}
	alerter := &fakeAlerter{}
	w := newTestWatcher(testWatchConfig(), pricer, store, alerter)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected one saved trade, got %d", len(store.saved))
	}
	after := store.saved[0]
	if after.HighWaterUSD != 110 || after.LastPriceUSD != 110 {
		t.Fatalf("expected high water 110, got %+v", after)
	}
	if len(alerter.alerts) != 0 {
		t.Fatalf("no alerts expected on the way up, got %+v", alerter.alerts)
	}

	store.open = []model.Trade{*after}
	pricer.prices["solana"] = 95

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after = store.saved[0]
	if after.HighWaterUSD != 110 {
		t.Fatalf("high water must not fall, got %v", after.HighWaterUSD)
	}
	if after.LastPriceUSD != 95 {
		t.Fatalf("expected last price 95, got %v", after.LastPriceUSD)
	}

	if len(alerter.alerts) != 2 {
		t.Fatalf("expected heads-up and action, got %+v", alerter.alerts)
	}
	if alerter.alerts[0].kind != model.AlertHeadsUp || alerter.alerts[1].kind != model.AlertAction {
		t.Fatalf("unexpected alert kinds: %+v", alerter.alerts)
	}
	wantDD := (95.0 - 110.0) / 110.0
	for _, a := range alerter.alerts {
		if math.Abs(a.change-wantDD) > 1e-9 {
			t.Fatalf("expected drawdown %v, got %v", wantDD, a.change)
		}
	}
	if after.HeadsUpAlertAt == nil || after.ActionAlertAt == nil {
		t.Fatal("expected cooldown stamps for both alert kinds")
	}
}

func TestRun_AlertCooldownSuppressesRepeat(t *testing.T) {
	trade := openTrade(1, 100)
	trade.HighWaterUSD = 110
	recent := watchNow.Add(-1 * time.Hour)
	trade.HeadsUpAlertAt = &recent
	trade.ActionAlertAt = &recent

	store := &fakeTradeStore{open: []model.Trade{trade}}
	alerter := &fakeAlerter{}
	w := newTestWatcher(testWatchConfig(), &fakePricer{prices: map[string]float64{"solana": 95}}, store, alerter)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerter.alerts) != 0 {
		t.Fatalf("expected cooldown to suppress repeats, got %+v", alerter.alerts)
	}

	// Once the cooldown lapses the same condition alerts again.
	stale := watchNow.Add(-25 * time.Hour)
	trade.HeadsUpAlertAt = &stale
	trade.ActionAlertAt = &stale
	store.open = []model.Trade{trade}

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerter.alerts) != 2 {
		t.Fatalf("expected alerts after cooldown lapse, got %+v", alerter.alerts)
	}
}

func TestRun_ProfitLock(t *testing.T) {
	trade := openTrade(1, 100)
	store := &fakeTradeStore{open: []model.Trade{trade}}
	alerter := &fakeAlerter{}
	w := newTestWatcher(testWatchConfig(), &fakePricer{prices: map[string]float64{"solana": 118}}, store, alerter)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerter.alerts) != 1 || alerter.alerts[0].kind != model.AlertProfitLock {
		t.Fatalf("expected a profit-lock alert, got %+v", alerter.alerts)
	}
	if math.Abs(alerter.alerts[0].change-0.18) > 1e-9 {
		t.Fatalf("expected +18%% gain, got %v", alerter.alerts[0].change)
	}
}

func TestRun_StaleAfterHoldingPeriod(t *testing.T) {
	trade := openTrade(1, 100)
	trade.InvestedAt = watchNow.Add(-8 * 24 * time.Hour)

	store := &fakeTradeStore{open: []model.Trade{trade}}
	alerter := &fakeAlerter{}
	w := newTestWatcher(testWatchConfig(), &fakePricer{prices: map[string]float64{"solana": 101}}, store, alerter)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerter.alerts) != 1 || alerter.alerts[0].kind != model.AlertStale {
		t.Fatalf("expected a stale alert, got %+v", alerter.alerts)
	}
}

func TestRun_FreshPositionNotStale(t *testing.T) {
	trade := openTrade(1, 100)
	trade.InvestedAt = watchNow.Add(-2 * 24 * time.Hour)

	store := &fakeTradeStore{open: []model.Trade{trade}}
	alerter := &fakeAlerter{}
	w := newTestWatcher(testWatchConfig(), &fakePricer{prices: map[string]float64{"solana": 101}}, store, alerter)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerter.alerts) != 0 {
		t.Fatalf("expected no alerts for a quiet young position, got %+v", alerter.alerts)
	}
}

func TestRun_MissingSpotPriceSkipsTrade(t *testing.T) {
	store := &fakeTradeStore{open: []model.Trade{
		openTrade(1, 100),
		{ID: 2, CoinID: "ghost-coin", Symbol: "GHO", InvestedAt: watchNow.Add(-time.Hour), BuyPriceUSD: 1, HighWaterUSD: 1},
	}}
	alerter := &fakeAlerter{}
	w := newTestWatcher(testWatchConfig(), &fakePricer{prices: map[string]float64{"solana": 101}}, store, alerter)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(store.saved) != 1 || store.saved[0].ID != 1 {
		t.Fatalf("expected only the priced trade in the batch, got %+v", store.saved)
	}
}

func TestRun_SendFailureLeavesCooldownUnstamped(t *testing.T) {
	trade := openTrade(1, 100)
	trade.HighWaterUSD = 110

	store := &fakeTradeStore{open: []model.Trade{trade}}
	alerter := &fakeAlerter{err: errors.New("smtp down")}
	w := newTestWatcher(testWatchConfig(), &fakePricer{prices: map[string]float64{"solana": 95}}, store, alerter)

	if err := w.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after := store.saved[0]
	if after.HeadsUpAlertAt != nil || after.ActionAlertAt != nil {
		t.Fatal("failed sends must not consume the cooldown")
	}
}

func TestCoinIDs_Deduplicates(t *testing.T) {
	ids := coinIDs([]model.Trade{
		{CoinID: "solana"},
		{CoinID: "chainlink"},
		{CoinID: "solana"},
	})
	if len(ids) != 2 || ids[0] != "solana" || ids[1] != "chainlink" {
		t.Fatalf("expected deduplicated ids, got %v", ids)
	}
}

package model

import "time"

// Alert kinds the position watcher can emit for an open trade.
const (
	AlertHeadsUp    = "heads_up"
	AlertAction     = "action"
	AlertProfitLock = "profit_lock"
	AlertStale      = "stale"
)

// Trade represents one manually-confirmed capital allocation. It is created
// by the API layer on trade entry, mutated by the position watcher
// (prices, high-water mark, alert timestamps) and finalized exactly once by
// a manual close.
type Trade struct {
	ID uint `gorm:"primaryKey" json:"id"`

	CoinID string `gorm:"size:100;index" json:"coin_id"`
	Symbol string `gorm:"size:24" json:"symbol"`
	Name   string `gorm:"size:120" json:"name"`

	InvestedEUR float64   `json:"invested_eur"`
	InvestedAt  time.Time `json:"invested_at"`

	// Acquisition snapshot. EURUSDRate is the fiat cross at buy time so the
	// realized P/L can be reported in EUR even though prices are USD.
	BuyPriceUSD float64 `json:"buy_price_usd"`
	EURUSDRate  float64 `json:"eur_usd_rate"`
	Units       float64 `json:"units"`

	// Watcher-owned running state.
	HighWaterUSD float64 `json:"high_water_usd"`
	LastPriceUSD float64 `json:"last_price_usd"`

	// Suggested exit levels, computed on entry from the pick's ATR%.
	StopLossUSD   float64 `json:"stop_loss_usd"`
	TakeProfitUSD float64 `json:"take_profit_usd"`

	// One cooldown timestamp per alert kind. Nil means never sent.
	HeadsUpAlertAt *time.Time `json:"heads_up_alert_at,omitempty"`
	ActionAlertAt  *time.Time `json:"action_alert_at,omitempty"`
	ProfitAlertAt  *time.Time `json:"profit_alert_at,omitempty"`
	StaleAlertAt   *time.Time `json:"stale_alert_at,omitempty"`

	SoldEUR *float64   `json:"sold_eur,omitempty"`
	SoldAt  *time.Time `json:"sold_at,omitempty"`

	Note string `gorm:"size:300" json:"note,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Trade) TableName() string {
	return "trades"
}

// IsOpen reports whether the trade has not been closed yet.
func (t *Trade) IsOpen() bool {
	return t.SoldAt == nil
}

// LastAlertAt returns the cooldown timestamp for the given alert kind.
func (t *Trade) LastAlertAt(kind string) *time.Time {
	switch kind {
	case AlertHeadsUp:
		return t.HeadsUpAlertAt
	case AlertAction:
		return t.ActionAlertAt
	case AlertProfitLock:
		return t.ProfitAlertAt
	case AlertStale:
		return t.StaleAlertAt
	}
	return nil
}

// StampAlert records that an alert of the given kind was sent at ts.
func (t *Trade) StampAlert(kind string, ts time.Time) {
	switch kind {
	case AlertHeadsUp:
		t.HeadsUpAlertAt = &ts
	case AlertAction:
		t.ActionAlertAt = &ts
	case AlertProfitLock:
		t.ProfitAlertAt = &ts
	case AlertStale:
		t.StaleAlertAt = &ts
	}
}

package model

import "time"

// Market regime labels.
const (
	RegimeRiskOn  = "risk-on"
	RegimeRiskOff = "risk-off"
)

// Candidate is one coin row flowing through the scan pipeline. The market
// snapshot fills the identity/price/volume fields; enrichment fills the
// indicator fields once a long enough price series is available.
type Candidate struct {
	CoinID string `json:"coin_id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`

	PriceUSD float64 `json:"price_usd"`
	Vol24USD float64 `json:"vol24_usd"`
	Pct24h   float64 `json:"pct_24h"`

	Mom3h  float64 `json:"mom_3h"`
	Mom24h float64 `json:"mom_24h"`
	Mom7d  float64 `json:"mom_7d"`

	ATRPct    float64 `json:"atr_pct"`
	EMA50     float64 `json:"ema50"`
	EMA100    float64 `json:"ema100"`
	RSI14     float64 `json:"rsi14"`
	TrendFlag int     `json:"trend_flag"`

	// Last ~50 closes for a dashboard mini chart.
	Spark []float64 `json:"spark,omitempty"`

	Enriched bool `json:"-"`
}

// Pick is a candidate that made the cut, annotated with its relative score
// and softmax allocation weight. Immutable once embedded in a Signal.
type Pick struct {
	Candidate

	Score  float64 `json:"score"`
	Weight float64 `json:"weight"`

	// Wildcard picks come from the news/AI pipeline, carry no allocation
	// weight and are appended after the scored picks.
	Wildcard    bool    `json:"wildcard,omitempty"`
	Rationale   string  `json:"rationale,omitempty"`
	HorizonDays float64 `json:"horizon_days,omitempty"`
}

// Signal is the outcome of one scan cycle.
type Signal struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Regime    string    `json:"regime"`
	Picks     []Pick    `json:"picks"`
	Note      string    `json:"note,omitempty"`
}

// PickHistory is the append-only record of past picks, used by the
// cooldown lookup. One row per pick per scan cycle.
type PickHistory struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SignalID  string    `gorm:"size:40;index" json:"signal_id"`
	CoinID    string    `gorm:"size:100;index" json:"coin_id"`
	Symbol    string    `gorm:"size:24" json:"symbol"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func (PickHistory) TableName() string {
	return "pick_histories"
}

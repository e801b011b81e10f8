package targets

import (
	"github.com/shopspring/decimal"
)

// Suggestion holds proposed exit levels for a new position, derived from
// the entry price and the pick's ATR%. Prices are decimals so the levels
// survive round-tripping through the API without float drift.
type Suggestion struct {
	StopLoss    decimal.Decimal
	TakeProfit1 decimal.Decimal
	TakeProfit2 decimal.Decimal
	HorizonDays float64
}

// Floors keep the levels sane on very quiet names: a stop tighter than 10%
// or a first target under 8% is noise at crypto volatility.
var (
	minStopPct = decimal.RequireFromString("0.10")
	minTP1Pct  = decimal.RequireFromString("0.08")
	minTP2Pct  = decimal.RequireFromString("0.15")

	tp1ATRMult = decimal.RequireFromString("1.5")
	tp2ATRMult = decimal.RequireFromString("2.5")

	one = decimal.NewFromInt(1)
)

// Suggest computes stop-loss and take-profit levels from the entry price
// and ATR as a fraction of price. Zero or negative inputs yield a zero
// suggestion.
func Suggest(price, atrPct float64) Suggestion {
	if price <= 0 {
		return Suggestion{HorizonDays: 2.0}
	}

	p := decimal.NewFromFloat(price)
	atr := decimal.NewFromFloat(atrPct)
	if atr.IsNegative() {
		atr = decimal.Zero
	}

	stopPct := decimal.Max(atr, minStopPct)
	tp1Pct := decimal.Max(atr.Mul(tp1ATRMult), minTP1Pct)
	tp2Pct := decimal.Max(atr.Mul(tp2ATRMult), minTP2Pct)

	horizon := 2.0
	if atrPct >= 0.10 {
		horizon = 0.5
	}

	return Suggestion{
		StopLoss:    p.Mul(one.Sub(stopPct)),
		TakeProfit1: p.Mul(one.Add(tp1Pct)),
		TakeProfit2: p.Mul(one.Add(tp2Pct)),
		HorizonDays: horizon,
	}
}

package notifier

import (
	"strings"
	"testing"
	"time"

	"cryptobroker/src/model"
)

func TestRenderSignalHTML_PicksTable(t *testing.T) {
	sig := &model.Signal{
		ID:        "sig-1",
		CreatedAt: time.Date(2025, 7, 1, 7, 30, 0, 0, time.UTC),
		Regime:    model.RegimeRiskOn,
		Picks: []model.Pick{
			{
				Candidate: model.Candidate{Symbol: "SOL", Name: "Solana", PriceUSD: 150, Mom24h: 0.031, Mom7d: 0.12, ATRPct: 0.05, RSI14: 62},
				Score:     0.81,
				Weight:    0.62,
			},
			{
				Candidate: model.Candidate{Symbol: "NEW", Name: "Newscoin", PriceUSD: 2},
				Wildcard:  true,
				Rationale: "fresh listing coverage",
			},
		},
	}

	html, err := renderSignalHTML(sig)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}

	for _, want := range []string{"SOL (Solana)", "0.810", "0.620", "+3.1%", "wildcard: fresh listing coverage", "risk-on"} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected %q in rendered html:\n%s", want, html)
		}
	}
}

func TestRenderSignalHTML_EmptyPicks(t *testing.T) {
	sig := &model.Signal{
		CreatedAt: time.Now().UTC(),
		Regime:    model.RegimeRiskOff,
		Note:      "Risk-off regime: holding back buy recommendations.",
	}

	html, err := renderSignalHTML(sig)
	if err != nil {
		t.Fatalf("render failed: %v", err)
	}
	if !strings.Contains(html, "No candidates passed") {
		t.Fatalf("expected empty-picks message, got:\n%s", html)
	}
	if !strings.Contains(html, "holding back") {
		t.Fatalf("expected caution note, got:\n%s", html)
	}
}

func TestRenderAlertHTML_KindsHaveDistinctTitles(t *testing.T) {
	trade := &model.Trade{Symbol: "BTC", Name: "Bitcoin", InvestedEUR: 500, BuyPriceUSD: 60000, LastPriceUSD: 54000, HighWaterUSD: 63000}

	titles := map[string]string{
		model.AlertHeadsUp:    "Drawdown heads-up",
		model.AlertAction:     "Drawdown action alert",
		model.AlertProfitLock: "Profit lock suggestion",
		model.AlertStale:      "Stale position",
	}

	for kind, title := range titles {
		html, err := renderAlertHTML(trade, kind, -0.136)
		if err != nil {
			t.Fatalf("render %s failed: %v", kind, err)
		}
		if !strings.Contains(html, title) {
			t.Fatalf("expected title %q for kind %s", title, kind)
		}
	}
}

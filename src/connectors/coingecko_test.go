package connectors

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestTopMarkets_ParsesAndCaches(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/markets" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":65000,"total_volume":3.2e10,"price_change_percentage_24h_in_currency":1.5},
			{"id":"solana","symbol":"sol","name":"Solana","current_price":150,"total_volume":2.1e9,"price_change_percentage_24h_in_currency":-2.25}
		]`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "usd")

	rows, err := c.TopMarkets(context.Background(), 10*time.Minute, false)
	if err != nil {
		t.Fatalf("TopMarkets failed: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Symbol != "BTC" || rows[0].PriceUSD != 65000 {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Pct24h != -2.25 {
		t.Fatalf("unexpected pct24h: %v", rows[1].Pct24h)
	}

	// Second call inside TTL must hit the cache.
	if _, err := c.TopMarkets(context.Background(), 10*time.Minute, false); err != nil {
		t.Fatalf("cached TopMarkets failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected 1 upstream call, got %d", got)
	}

	// Force refresh bypasses the cache.
	if _, err := c.TopMarkets(context.Background(), 10*time.Minute, true); err != nil {
		t.Fatalf("forced TopMarkets failed: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("expected 2 upstream calls after force, got %d", got)
	}
}

func TestPriceHistory_ExtractsCloses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/coins/solana/market_chart" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("interval"); got != "hourly" {
			t.Fatalf("expected hourly interval, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"prices":[[1700000000000,100.5],[1700003600000,101.25],[1700007200000,99.75]]}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "usd")

	closes, err := c.PriceHistory(context.Background(), "solana", 10)
	if err != nil {
		t.Fatalf("PriceHistory failed: %v", err)
	}
	want := []float64{100.5, 101.25, 99.75}
	if len(closes) != len(want) {
		t.Fatalf("expected %d closes, got %d", len(want), len(closes))
	}
	for i := range want {
		if closes[i] != want[i] {
			t.Fatalf("close[%d]=%v want %v", i, closes[i], want[i])
		}
	}
}

func TestPriceHistory_UpstreamErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "usd")

	if _, err := c.PriceHistory(context.Background(), "no-such-coin", 10); err == nil {
		t.Fatal("expected an error for 404 response")
	}
}

func TestSpotPrices_BatchedCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/simple/price" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("ids"); got != "bitcoin,solana" {
			t.Fatalf("unexpected ids param %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"bitcoin":{"usd":65000},"solana":{"usd":150}}`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "usd")

	prices, err := c.SpotPrices(context.Background(), []string{"bitcoin", "solana"})
	if err != nil {
		t.Fatalf("SpotPrices failed: %v", err)
	}
	if prices["bitcoin"] != 65000 || prices["solana"] != 150 {
		t.Fatalf("unexpected prices: %v", prices)
	}
}

func TestSpotPrices_EmptyInputShortCircuits(t *testing.T) {
	c := NewCoinGeckoClient("http://127.0.0.1:1", "usd")

	prices, err := c.SpotPrices(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected no error for empty input, got %v", err)
	}
	if len(prices) != 0 {
		t.Fatalf("expected empty map, got %v", prices)
	}
}

func TestTopMarkets_RetriesOn429(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":1,"total_volume":1,"price_change_percentage_24h_in_currency":0}]`))
	}))
	defer srv.Close()

	c := NewCoinGeckoClient(srv.URL, "usd")

	rows, err := c.TopMarkets(context.Background(), 0, true)
	if err != nil {
		t.Fatalf("TopMarkets failed after retry: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if got := atomic.LoadInt32(&calls); got < 2 {
		t.Fatalf("expected at least 2 upstream calls, got %d", got)
	}
}

// REST CLIENT FOR THE COINGECKO PUBLIC API
// RESTY ONLY + INTERNAL RETRY
package connectors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/model"
)

// -----------------------------
// CONFIG
// -----------------------------
const (
	// Default retry configuration. The free tier rate-limits hard, so the
	// backoff ceiling is generous.
	defaultRetryAttempts   = 5
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second

	topMarketsPerPage = 250
)

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

// -----------------------------
// WIRE STRUCTURES
// -----------------------------
type geckoMarketRow struct {
	ID               string  `json:"id"`
	Symbol           string  `json:"symbol"`
	Name             string  `json:"name"`
	CurrentPrice     float64 `json:"current_price"`
	TotalVolume      float64 `json:"total_volume"`
	PriceChange24hIn float64 `json:"price_change_percentage_24h_in_currency"`
}

type geckoMarketChart struct {
	Prices [][]float64 `json:"prices"`
}

// -----------------------------
// CLIENT
// -----------------------------

// CoinGeckoClient wraps the CoinGecko market-data endpoints with retry and a
// process-wide TTL cache over the top-markets snapshot. The cache is
// mutex-guarded; scan jobs on different goroutines share one client.
type CoinGeckoClient struct {
	baseURL string
	vs      string
	http    *resty.Client

	mu         sync.Mutex
	snapshot   []model.Candidate
	snapshotAt time.Time
}

func NewCoinGeckoClient(baseURL, vsCurrency string) *CoinGeckoClient {
	retryCount := defaultRetryAttempts - 1

	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if vsCurrency == "" {
		vsCurrency = "usd"
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &CoinGeckoClient{
		baseURL: baseURL,
		vs:      vsCurrency,
		http:    httpClient,
	}
}

// TopMarkets returns the top-N market snapshot. A cached snapshot younger
// than maxAge is reused unless force is set; deep scans force a refresh
// while rescores pass a long maxAge to spare the upstream quota.
func (c *CoinGeckoClient) TopMarkets(ctx context.Context, maxAge time.Duration, force bool) ([]model.Candidate, error) {
	c.mu.Lock()
	if age := time.Since(c.snapshotAt); !force && c.snapshot != nil && age < maxAge {
		cached := c.snapshot
		c.mu.Unlock()

		logger.WithFields(map[string]interface{}{
			"connector": "coingecko",
			"op":        "TopMarkets",
			"rows":      len(cached),
			"age":       age.String(),
		}).Debug("Serving market snapshot from cache")

		return cached, nil
	}
	c.mu.Unlock()

	var rows []geckoMarketRow

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency":             c.vs,
			"order":                   "market_cap_desc",
			"per_page":                fmt.Sprintf("%d", topMarketsPerPage),
			"page":                    "1",
			"price_change_percentage": "24h",
		}).
		SetResult(&rows).
		Get("/coins/markets")
	if err != nil {
		return nil, fmt.Errorf("coingecko markets request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("coingecko markets status %d: %s", resp.StatusCode(), resp.String())
	}

	out := make([]model.Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Candidate{
			CoinID:   r.ID,
			Symbol:   strings.ToUpper(r.Symbol),
			Name:     r.Name,
			PriceUSD: r.CurrentPrice,
			Vol24USD: r.TotalVolume,
			Pct24h:   r.PriceChange24hIn,
		})
	}

	c.mu.Lock()
	c.snapshot = out
	c.snapshotAt = time.Now()
	c.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"connector": "coingecko",
		"op":        "TopMarkets",
		"rows":      len(out),
	}).Info("Market snapshot refreshed")

	return out, nil
}

// PriceHistory returns the hourly close series for one coin, oldest first.
func (c *CoinGeckoClient) PriceHistory(ctx context.Context, coinID string, days int) ([]float64, error) {
	return c.marketChart(ctx, coinID, days, "hourly")
}

// DailyHistory returns the daily close series for one coin, oldest first.
// Used by the regime detector for its long reference-asset window.
func (c *CoinGeckoClient) DailyHistory(ctx context.Context, coinID string, days int) ([]float64, error) {
	return c.marketChart(ctx, coinID, days, "daily")
}

func (c *CoinGeckoClient) marketChart(ctx context.Context, coinID string, days int, interval string) ([]float64, error) {
	if coinID == "" {
		return nil, errors.New("coin id is required")
	}

	var chart geckoMarketChart

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"vs_currency": c.vs,
			"days":        fmt.Sprintf("%d", days),
			"interval":    interval,
		}).
		SetResult(&chart).
		Get(fmt.Sprintf("/coins/%s/market_chart", coinID))
	if err != nil {
		return nil, fmt.Errorf("coingecko chart request for %s: %w", coinID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("coingecko chart status %d for %s", resp.StatusCode(), coinID)
	}

	closes := make([]float64, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		if len(p) < 2 {
			continue
		}
		closes = append(closes, p[1])
	}
	return closes, nil
}

// SpotPrices returns current prices for a batch of coin ids in one call.
// Ids missing from the response are simply absent from the map.
func (c *CoinGeckoClient) SpotPrices(ctx context.Context, coinIDs []string) (map[string]float64, error) {
	if len(coinIDs) == 0 {
		return map[string]float64{}, nil
	}

	var decoded map[string]map[string]float64

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"ids":           strings.Join(coinIDs, ","),
			"vs_currencies": c.vs,
		}).
		SetResult(&decoded).
		Get("/simple/price")
	if err != nil {
		return nil, fmt.Errorf("coingecko spot request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("coingecko spot status %d", resp.StatusCode())
	}

	out := make(map[string]float64, len(decoded))
	for id, prices := range decoded {
		if v, ok := prices[c.vs]; ok {
			out[id] = v
		}
	}
	return out, nil
}

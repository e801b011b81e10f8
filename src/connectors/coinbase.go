// REST CLIENT FOR THE COINBASE EXCHANGE PUBLIC PRODUCT LIST
// Used only as an optional allow-list filter for the scanner.
package connectors

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
)

type coinbaseProduct struct {
	BaseCurrency  string `json:"base_currency"`
	QuoteCurrency string `json:"quote_currency"`
}

// CoinbaseClient fetches the set of base symbols tradable against USD/USDC
// on Coinbase Exchange. The set changes rarely, so it is cached for about a
// day. Errors degrade to an empty set, which callers treat as "no filter".
type CoinbaseClient struct {
	http *resty.Client
	ttl  time.Duration

	mu        sync.Mutex
	symbols   map[string]struct{}
	fetchedAt time.Time
}

func NewCoinbaseClient(baseURL string, ttl time.Duration) *CoinbaseClient {
	retryCount := defaultRetryAttempts - 1

	if baseURL == "" {
		baseURL = "https://api.exchange.coinbase.com"
		logger.Warnf("No base URL provided, using default: %s", baseURL)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(60 * time.Second).
		SetRetryCount(retryCount).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	return &CoinbaseClient{
		http: httpClient,
		ttl:  ttl,
	}
}

// SupportedSymbols returns the cached allow-list, refreshing it when stale.
func (c *CoinbaseClient) SupportedSymbols(ctx context.Context) map[string]struct{} {
	c.mu.Lock()
	if c.symbols != nil && time.Since(c.fetchedAt) < c.ttl {
		cached := c.symbols
		c.mu.Unlock()
		return cached
	}
	c.mu.Unlock()

	symbols, err := c.fetch(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to fetch Coinbase product list, allow-list filter disabled")
		symbols = map[string]struct{}{}
	}

	c.mu.Lock()
	c.symbols = symbols
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	logger.WithFields(map[string]interface{}{
		"connector": "coinbase",
		"op":        "SupportedSymbols",
		"symbols":   len(symbols),
	}).Info("Coinbase symbol allow-list refreshed")

	return symbols
}

func (c *CoinbaseClient) fetch(ctx context.Context) (map[string]struct{}, error) {
	var products []coinbaseProduct

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&products).
		Get("/products")
	if err != nil {
		return nil, fmt.Errorf("coinbase products request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("coinbase products status %d", resp.StatusCode())
	}

	symbols := make(map[string]struct{}, len(products))
	for _, p := range products {
		base := strings.ToUpper(p.BaseCurrency)
		quote := strings.ToUpper(p.QuoteCurrency)
		if base == "" {
			continue
		}
		if quote == "USD" || quote == "USDC" {
			symbols[base] = struct{}{}
		}
	}
	return symbols, nil
}

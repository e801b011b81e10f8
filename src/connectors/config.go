package connectors

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	CoinGeckoBaseURL string `envconfig:"COINGECKO_BASE_URL" default:"https://api.coingecko.com/api/v3"`
	CoinbaseBaseURL  string `envconfig:"COINBASE_BASE_URL" default:"https://api.exchange.coinbase.com"`
	VsCurrency       string `envconfig:"VS_CURRENCY" default:"usd"`

	ListedSymbolsTTL time.Duration `envconfig:"LISTED_SYMBOLS_TTL" default:"24h"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

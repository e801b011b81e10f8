package news

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/mmcdole/gofeed"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/model"
)

// Public RSS sources, no API keys needed.
var defaultFeeds = []string{
	"https://www.coindesk.com/arc/outboundfeeds/rss/",
	"https://cointelegraph.com/rss",
	"https://blog.coinbase.com/feed",
	"https://www.binance.com/en/blog/feed",
	"https://okx.com/learn/feeds/rss",
	"https://medium.com/feed/tag/crypto",
}

type Config struct {
	HoursBack     int `envconfig:"NEWS_HOURS_BACK" default:"36"`
	MaxCandidates int `envconfig:"NEWS_MAX_CANDIDATES" default:"12"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}

// Candidate is a coin with recent news coverage, scored by freshness.
type Candidate struct {
	CoinID string
	Symbol string
	Name   string
	Hits   int
	Score  float64
}

var wordRe = regexp.MustCompile(`[A-Za-z0-9\-_.]+`)

// Miner scans a fixed list of public RSS feeds for mentions of coins from
// the current market snapshot.
type Miner struct {
	cfg    Config
	feeds  []string
	parser *gofeed.Parser
	now    func() time.Time
}

func NewMiner(cfg Config) *Miner {
	return &Miner{
		cfg:    cfg,
		feeds:  defaultFeeds,
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

// WithFeeds overrides the feed list. Used by tests.
func (m *Miner) WithFeeds(feeds []string) *Miner {
	m.feeds = feeds
	return m
}

// Candidates matches recent feed entries against the market snapshot and
// returns the most-covered coins, freshest coverage first. Feed failures
// are skipped; an empty result just means no wildcard this cycle.
func (m *Miner) Candidates(ctx context.Context, markets []model.Candidate) []Candidate {
	bySymbol := make(map[string]model.Candidate, len(markets))
	byName := make(map[string]model.Candidate, len(markets))
	for _, mk := range markets {
		if mk.CoinID == "" {
			continue
		}
		if mk.Symbol != "" {
			bySymbol[strings.ToLower(mk.Symbol)] = mk
		}
		if name := strings.ToLower(mk.Name); name != "" {
			byName[name] = mk
		}
	}

	hits := make(map[string]*Candidate)
	cutoff := float64(m.cfg.HoursBack)

	for _, url := range m.feeds {
		feed, err := m.parser.ParseURLWithContext(url, ctx)
		if err != nil {
			logger.WithError(err).WithField("feed", url).Debug("Feed fetch failed, skipping")
			continue
		}
		for _, entry := range feed.Items {
			ageH := m.entryAgeHours(entry)
			if ageH > cutoff {
				continue
			}

			tokens := tokenize(entryText(entry))

			matched := make(map[string]model.Candidate)
			for sym, mk := range bySymbol {
				if _, ok := tokens[sym]; ok {
					matched[mk.CoinID] = mk
				}
			}
			// Name matches need >3 chars so short names do not collide
			// with common words.
			for name, mk := range byName {
				if len(name) > 3 {
					if _, ok := tokens[name]; ok {
						matched[mk.CoinID] = mk
					}
				}
			}

			// Freshness decays exponentially, roughly a half-day half-life.
			freshness := math.Exp(-ageH / 12.0)
			for id, mk := range matched {
				c, ok := hits[id]
				if !ok {
					c = &Candidate{CoinID: id, Symbol: mk.Symbol, Name: mk.Name}
					hits[id] = c
				}
				c.Hits++
				c.Score += freshness
			}
		}
	}

	out := make([]Candidate, 0, len(hits))
	for _, c := range hits {
		if c.Hits >= 1 {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Hits > out[j].Hits
	})
	if len(out) > m.cfg.MaxCandidates {
		out = out[:m.cfg.MaxCandidates]
	}

	logger.WithFields(map[string]interface{}{
		"component":  "news",
		"candidates": len(out),
	}).Info("News candidate mining done")

	return out
}

func (m *Miner) entryAgeHours(entry *gofeed.Item) float64 {
	published := m.now()
	if entry.PublishedParsed != nil {
		published = *entry.PublishedParsed
	} else if entry.UpdatedParsed != nil {
		published = *entry.UpdatedParsed
	}
	age := m.now().Sub(published).Hours()
	if age < 0 {
		return 0
	}
	return age
}

func entryText(entry *gofeed.Item) string {
	parts := make([]string, 0, 2)
	if entry.Title != "" {
		parts = append(parts, entry.Title)
	}
	if entry.Description != "" {
		parts = append(parts, entry.Description)
	}
	return strings.ToLower(strings.Join(parts, " "))
}

func tokenize(s string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, w := range wordRe.FindAllString(s, -1) {
		out[strings.ToLower(w)] = struct{}{}
	}
	return out
}

package scanner

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/ai"
	"cryptobroker/src/indicators"
	"cryptobroker/src/model"
	"cryptobroker/src/news"
	"cryptobroker/src/notifier"
	"cryptobroker/src/scorer"
)

// Scan kinds. Deep scans force a market-snapshot refresh; rescores reuse a
// cached snapshot to limit upstream calls.
const (
	KindDeep    = "deep"
	KindRescore = "rescore"
)

// Fiat-pegged assets excluded before scoring, by upper-cased symbol.
var stableSymbols = map[string]struct{}{
	"USDT": {}, "USDC": {}, "DAI": {}, "FDUSD": {}, "TUSD": {},
	"USDD": {}, "USDP": {}, "GUSD": {}, "EURS": {}, "EURC": {},
}

type marketGateway interface {
	TopMarkets(ctx context.Context, maxAge time.Duration, force bool) ([]model.Candidate, error)
	PriceHistory(ctx context.Context, coinID string, days int) ([]float64, error)
}

type symbolLister interface {
	SupportedSymbols(ctx context.Context) map[string]struct{}
}

type regimeDetector interface {
	Detect(ctx context.Context) string
}

type pickHistoryStore interface {
	SaveSignalPicks(ctx context.Context, sig *model.Signal) error
	LastScores(ctx context.Context, coinID string, n int) ([]float64, error)
}

type newsMiner interface {
	Candidates(ctx context.Context, markets []model.Candidate) []news.Candidate
}

type wildcardEvaluator interface {
	Evaluate(ctx context.Context, items []ai.Input, regimeLabel string) []ai.Verdict
}

// Scanner runs one scan-score-signal cycle end to end.
type Scanner struct {
	cfg      Config
	weights  scorer.Weights
	gateway  marketGateway
	listing  symbolLister
	regime   regimeDetector
	history  pickHistoryStore
	notify   notifier.Notifier
	miner    newsMiner
	eval     wildcardEvaluator
	state    *State
	now      func() time.Time
	sleep    func(time.Duration)
}

func New(
	cfg Config,
	weights scorer.Weights,
	gateway marketGateway,
	listing symbolLister,
	regime regimeDetector,
	history pickHistoryStore,
	notify notifier.Notifier,
	state *State,
) *Scanner {
	return &Scanner{
		cfg:     cfg,
		weights: weights,
		gateway: gateway,
		listing: listing,
		regime:  regime,
		history: history,
		notify:  notify,
		state:   state,
		now:     time.Now,
		sleep:   time.Sleep,
	}
}

// WithWildcards enables the news/AI wildcard pipeline.
func (s *Scanner) WithWildcards(miner newsMiner, eval wildcardEvaluator) *Scanner {
	s.miner = miner
	s.eval = eval
	return s
}

// Run executes one scan cycle and publishes the resulting signal. Upstream
// outages degrade to an empty-picks signal; Run only errors on unknown
// kinds. Persistence and notification are best-effort and never abort the
// cycle.
func (s *Scanner) Run(ctx context.Context, kind string) (*model.Signal, error) {
	var maxAge time.Duration
	var force bool
	switch kind {
	case KindDeep:
		maxAge, force = s.cfg.SnapshotDeepTTL, true
	case KindRescore:
		maxAge, force = s.cfg.SnapshotRescoreTTL, false
	default:
		return nil, fmt.Errorf("unknown scan kind %q", kind)
	}

	started := s.now()
	log := logger.WithFields(map[string]interface{}{
		"component": "scanner",
		"kind":      kind,
	})
	log.Info("Scan cycle started")

	regimeLabel := s.regime.Detect(ctx)

	markets, err := s.gateway.TopMarkets(ctx, maxAge, force)
	if err != nil {
		log.WithError(err).Warn("Market snapshot unavailable, continuing with empty set")
		markets = nil
	}

	var picks []model.Pick
	if regimeLabel == model.RegimeRiskOff {
		// Policy: no buy recommendations in a risk-off regime. The caution
		// notice replaces the picks table.
		log.Info("Risk-off regime, skipping candidate selection")
	} else {
		picks = s.selectPicks(ctx, log, markets, regimeLabel)
	}

	sig := &model.Signal{
		ID:        uuid.NewString(),
		CreatedAt: started.UTC(),
		Regime:    regimeLabel,
		Picks:     picks,
	}
	if regimeLabel == model.RegimeRiskOff {
		sig.Note = "Risk-off regime: holding back buy recommendations."
	}

	// Best-effort persistence: a failed history write must not cost us the
	// in-memory signal.
	if err := s.history.SaveSignalPicks(ctx, sig); err != nil {
		log.WithError(err).Warn("Failed to persist signal picks, cooldown history will have a gap")
	}

	if err := s.notify.SendSignal(sig); err != nil {
		log.WithError(err).Warn("Failed to send signal notification")
	}

	s.state.Publish(sig)

	log.WithFields(map[string]interface{}{
		"picks":    len(sig.Picks),
		"regime":   regimeLabel,
		"duration": s.now().Sub(started).String(),
	}).Info("Scan cycle finished")

	return sig, nil
}

// selectPicks runs the filter/enrich/score/cooldown/top-K stages.
func (s *Scanner) selectPicks(ctx context.Context, log *logger.Entry, markets []model.Candidate, regimeLabel string) []model.Pick {
	filtered := s.baseFilter(ctx, markets)
	preselected := preselectByVolume(filtered, s.cfg.PreselectCount)

	enriched := s.enrich(ctx, preselected)
	log.WithFields(map[string]interface{}{
		"snapshot":    len(markets),
		"filtered":    len(filtered),
		"preselected": len(preselected),
		"enriched":    len(enriched),
	}).Info("Candidate funnel")

	eligible := make([]model.Candidate, 0, len(enriched))
	for _, c := range enriched {
		if !s.passesIndicatorFilters(c) {
			continue
		}
		eligible = append(eligible, c)
	}

	scored := scorer.ComputeScores(eligible, s.weights)
	scored = s.applyCooldown(ctx, scored)

	if len(scored) > s.cfg.TopK {
		scored = scored[:s.cfg.TopK]
	}

	// Softmax allocation over the surviving scores.
	scores := make([]float64, len(scored))
	for i, p := range scored {
		scores[i] = p.Score
	}
	weights := scorer.Softmax(scores)
	for i := range scored {
		scored[i].Weight = scorer.Round3(weights[i])
	}

	return s.appendWildcards(ctx, scored, markets, enriched, regimeLabel)
}

// baseFilter drops stables, sub-floor volume and (optionally) assets not
// listed on the secondary exchange.
func (s *Scanner) baseFilter(ctx context.Context, markets []model.Candidate) []model.Candidate {
	var listed map[string]struct{}
	if s.cfg.RequireListed && s.listing != nil {
		listed = s.listing.SupportedSymbols(ctx)
	}

	out := make([]model.Candidate, 0, len(markets))
	for _, m := range markets {
		if m.CoinID == "" || isStable(m) {
			continue
		}
		if m.Vol24USD < s.cfg.MinVolume24h {
			continue
		}
		if len(listed) > 0 {
			if _, ok := listed[strings.ToUpper(m.Symbol)]; !ok {
				continue
			}
		}
		out = append(out, m)
	}
	return out
}

func isStable(m model.Candidate) bool {
	if _, ok := stableSymbols[strings.ToUpper(m.Symbol)]; ok {
		return true
	}
	name := strings.ToLower(m.Name)
	id := strings.ToLower(m.CoinID)
	if strings.Contains(name, "stable") {
		return true
	}
	// Catches first-digital-usd, true-usd and friends.
	if strings.Contains(id, "usd") || strings.Contains(name, "usd") {
		return true
	}
	return false
}

// preselectByVolume keeps the top-n rows by 24h volume to bound the cost of
// per-coin history fetches.
func preselectByVolume(rows []model.Candidate, n int) []model.Candidate {
	out := make([]model.Candidate, len(rows))
	copy(out, rows)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Vol24USD > out[j-1].Vol24USD; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// enrich fetches per-coin price history under the concurrency limit and
// computes indicator fields. Coins with short or missing series are dropped
// silently; that is reduced coverage, not an error.
func (s *Scanner) enrich(ctx context.Context, rows []model.Candidate) []model.Candidate {
	concurrency := s.cfg.FetchConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	out := make([]model.Candidate, 0, len(rows))

	for _, row := range rows {
		row := row
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			closes, err := s.gateway.PriceHistory(ctx, row.CoinID, s.cfg.HistoryDays)
			if err != nil {
				logger.WithError(err).WithField("coin_id", row.CoinID).
					Debug("History fetch failed, dropping candidate")
				closes = nil
			}
			// Mandatory pause keeps us under the upstream rate limit.
			if s.cfg.FetchDelay > 0 {
				s.sleep(s.cfg.FetchDelay)
			}

			if len(closes) < s.cfg.MinSeriesPoints {
				return
			}

			c := enrichCandidate(row, closes)
			mu.Lock()
			out = append(out, c)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return out
}

// enrichCandidate fills the indicator fields from an hourly close series.
// The caller has already checked the minimum length.
func enrichCandidate(row model.Candidate, closes []float64) model.Candidate {
	n := len(closes)
	last := closes[n-1]

	row.PriceUSD = last
	row.Mom3h = indicators.PctChange(last, closes[n-4])
	row.Mom24h = indicators.PctChange(last, closes[n-24])
	row.Mom7d = indicators.PctChange(last, closes[n-168])

	atr := indicators.ATRFromCloses(closes, 14)
	if last != 0 {
		row.ATRPct = atr[n-1] / last
	}
	row.EMA50 = indicators.LastClose(indicators.EMA(closes, 50))
	row.EMA100 = indicators.LastClose(indicators.EMA(closes, 100))
	row.RSI14 = indicators.LastClose(indicators.RSI(closes, 14))

	if row.Mom7d > 0 {
		row.TrendFlag = 1
	}

	spark := closes
	if len(spark) > 50 {
		spark = spark[len(spark)-50:]
	}
	row.Spark = append([]float64(nil), spark...)
	row.Enriched = true

	return row
}

func (s *Scanner) passesIndicatorFilters(c model.Candidate) bool {
	if c.ATRPct > s.cfg.MaxATRPct {
		return false
	}
	switch s.cfg.EMAFilter {
	case "ema50":
		if c.PriceUSD <= c.EMA50 {
			return false
		}
	case "ema100":
		if c.PriceUSD <= c.EMA100 {
			return false
		}
	}
	if s.cfg.MaxRSI > 0 && c.RSI14 > s.cfg.MaxRSI {
		return false
	}
	return true
}

// applyCooldown suppresses coins picked in each of the last N cycles with a
// strictly decreasing score sequence (momentum exhaustion). Fewer than N
// prior records, or a history error, never suppresses.
func (s *Scanner) applyCooldown(ctx context.Context, picks []model.Pick) []model.Pick {
	n := s.cfg.CooldownLookback
	if n <= 0 {
		return picks
	}

	out := make([]model.Pick, 0, len(picks))
	for _, p := range picks {
		prior, err := s.history.LastScores(ctx, p.CoinID, n)
		if err != nil {
			logger.WithError(err).WithField("coin_id", p.CoinID).
				Warn("Cooldown lookup failed, keeping candidate")
			out = append(out, p)
			continue
		}
		if len(prior) == n && strictlyDecreasingNewestFirst(prior) {
			logger.WithFields(map[string]interface{}{
				"component": "scanner",
				"coin_id":   p.CoinID,
				"lookback":  n,
			}).Info("Cooldown suppression")
			continue
		}
		out = append(out, p)
	}
	return out
}

// strictlyDecreasingNewestFirst reports whether scores fell cycle over
// cycle. The input is newest first, so decline over time means each entry
// is strictly below the one after it.
func strictlyDecreasingNewestFirst(scores []float64) bool {
	if len(scores) < 2 {
		return false
	}
	for i := 0; i+1 < len(scores); i++ {
		if scores[i] >= scores[i+1] {
			return false
		}
	}
	return true
}

// appendWildcards adds approved news-driven candidates after the scored
// picks. Wildcards carry no allocation weight.
func (s *Scanner) appendWildcards(ctx context.Context, picks []model.Pick, markets, enriched []model.Candidate, regimeLabel string) []model.Pick {
	if !s.cfg.WildcardsEnabled || s.miner == nil || s.eval == nil {
		return picks
	}

	picked := make(map[string]struct{}, len(picks))
	for _, p := range picks {
		picked[p.CoinID] = struct{}{}
	}
	enrichedByID := make(map[string]model.Candidate, len(enriched))
	for _, c := range enriched {
		enrichedByID[c.CoinID] = c
	}

	inputs := make([]ai.Input, 0)
	for _, nc := range s.miner.Candidates(ctx, markets) {
		if _, ok := picked[nc.CoinID]; ok {
			continue
		}
		c, ok := enrichedByID[nc.CoinID]
		if !ok {
			// No indicator data for this coin this cycle; the evaluator
			// would be guessing.
			continue
		}
		inputs = append(inputs, ai.Input{Candidate: c, NewsHits: nc.Hits, NewsScore: nc.Score})
	}
	if len(inputs) == 0 {
		return picks
	}

	verdicts := s.eval.Evaluate(ctx, inputs, regimeLabel)
	added := 0
	for i, v := range verdicts {
		if !v.Approve || added >= s.cfg.MaxWildcards {
			continue
		}
		picks = append(picks, model.Pick{
			Candidate:   inputs[i].Candidate,
			Wildcard:    true,
			Rationale:   v.Rationale,
			HorizonDays: v.HorizonDays,
		})
		added++
	}
	return picks
}

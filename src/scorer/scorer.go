package scorer

import (
	"fmt"
	"math"
	"sort"

	"github.com/kelseyhightower/envconfig"

	"cryptobroker/src/model"
)

// Weights holds the six scoring coefficients. They do not need to sum to 1;
// scores are only comparable within one batch.
type Weights struct {
	Mom3h  float64 `envconfig:"W1" default:"0.20"`
	Mom24h float64 `envconfig:"W2" default:"0.25"`
	Mom7d  float64 `envconfig:"W3" default:"0.15"`
	Trend  float64 `envconfig:"W4" default:"0.20"`
	Vol24  float64 `envconfig:"W5" default:"0.10"`
	ATR    float64 `envconfig:"W6" default:"0.10"`
}

// GetWeights loads the scoring weights from the environment.
func GetWeights() Weights {
	var w Weights
	if err := envconfig.Process("", &w); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return w
}

// Rank01 maps each value to its min-max percentile rank in [0,1]. The batch
// minimum ranks 0, the maximum 1; a constant batch ranks 0.5 everywhere.
func Rank01(vals []float64) []float64 {
	if len(vals) == 0 {
		return []float64{}
	}
	lo, hi := vals[0], vals[0]
	for _, v := range vals[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	out := make([]float64, len(vals))
	if hi == lo {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}
	for i, v := range vals {
		out[i] = (v - lo) / (hi - lo)
	}
	return out
}

// ComputeScores annotates each candidate with its weighted percentile score
// and returns the batch sorted descending by score. ATR is penalized, all
// other metrics are additive.
func ComputeScores(rows []model.Candidate, w Weights) []model.Pick {
	if len(rows) == 0 {
		return []model.Pick{}
	}

	m3 := make([]float64, len(rows))
	m24 := make([]float64, len(rows))
	m7 := make([]float64, len(rows))
	vol := make([]float64, len(rows))
	atr := make([]float64, len(rows))
	for i, r := range rows {
		m3[i] = r.Mom3h
		m24[i] = r.Mom24h
		m7[i] = r.Mom7d
		vol[i] = r.Vol24USD
		atr[i] = r.ATRPct
	}
	rm3 := Rank01(m3)
	rm24 := Rank01(m24)
	rm7 := Rank01(m7)
	rvol := Rank01(vol)
	ratr := Rank01(atr)

	picks := make([]model.Pick, len(rows))
	for i, r := range rows {
		trend := 0.0
		if r.TrendFlag == 1 {
			trend = 1.0
		}
		score := w.Mom3h*rm3[i] +
			w.Mom24h*rm24[i] +
			w.Mom7d*rm7[i] +
			w.Trend*trend +
			w.Vol24*rvol[i] -
			w.ATR*ratr[i]
		picks[i] = model.Pick{Candidate: r, Score: score}
	}

	sort.SliceStable(picks, func(i, j int) bool {
		return picks[i].Score > picks[j].Score
	})
	return picks
}

// Softmax converts scores into positive allocation weights summing to 1.
// The max is subtracted before exponentiating for numerical stability.
func Softmax(scores []float64) []float64 {
	if len(scores) == 0 {
		return []float64{}
	}
	max := scores[0]
	for _, s := range scores[1:] {
		if s > max {
			max = s
		}
	}
	exps := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		exps[i] = math.Exp(s - max)
		sum += exps[i]
	}
	out := make([]float64, len(scores))
	for i := range exps {
		out[i] = exps[i] / sum
	}
	return out
}

// Round3 rounds a weight to three decimals for presentation.
func Round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

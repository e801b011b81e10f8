package ai

import (
	"context"
	"encoding/json"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	logger "github.com/sirupsen/logrus"

	"cryptobroker/src/model"
)

// Verdict is the evaluator's decision for one wildcard candidate. The
// fallback path fills the same struct, so callers never see which engine
// produced it.
type Verdict struct {
	Approve     bool    `json:"approve"`
	HorizonDays float64 `json:"horizon_days"`
	Rationale   string  `json:"rationale"`
}

// Input pairs the enriched candidate metrics with its news coverage.
type Input struct {
	Candidate model.Candidate
	NewsHits  int
	NewsScore float64
}

// Evaluator decides approve/veto for news-driven wildcard candidates. With
// an OpenAI key configured it asks the model; otherwise, and on any API
// failure, it degrades to the rule-based policy.
type Evaluator struct {
	cfg    Config
	client *openai.Client
}

func NewEvaluator(cfg Config) *Evaluator {
	e := &Evaluator{cfg: cfg}
	if cfg.OpenAIKey != "" {
		e.client = openai.NewClient(cfg.OpenAIKey)
	}
	return e
}

// Evaluate returns one verdict per input, in order.
func (e *Evaluator) Evaluate(ctx context.Context, items []Input, regimeLabel string) []Verdict {
	if len(items) == 0 {
		return []Verdict{}
	}

	out := make([]Verdict, len(items))
	useModel := e.client != nil && e.cfg.Enabled

	for i, it := range items {
		if useModel {
			v, err := e.askModel(ctx, it, regimeLabel)
			if err == nil {
				out[i] = v
				continue
			}
			logger.WithError(err).WithField("symbol", it.Candidate.Symbol).
				Warn("OpenAI evaluation failed, using rule-based fallback")
		}
		out[i] = e.ruleEval(it, regimeLabel)
	}
	return out
}

// ruleEval is the deterministic fallback policy.
func (e *Evaluator) ruleEval(it Input, regimeLabel string) Verdict {
	c := it.Candidate

	approve := c.Mom7d > 0 &&
		c.ATRPct < e.cfg.ApproveMaxATRPct &&
		c.Vol24USD > e.cfg.ApproveMinVol24 &&
		it.NewsHits >= 1

	var horizon float64
	switch {
	case c.ATRPct >= e.cfg.HorizonFastATRPct || c.Mom3h > c.Mom24h*1.5:
		horizon = 0.5
	case c.ATRPct >= e.cfg.HorizonMidATRPct:
		horizon = 2.0
	case regimeLabel == model.RegimeRiskOn:
		horizon = 5.0
	default:
		horizon = 2.0
	}

	return Verdict{
		Approve:     approve,
		HorizonDays: horizon,
		Rationale:   fmt.Sprintf("momentum %+.1f%%, ATR %.1f%%, news hits %d", c.Mom7d*100, c.ATRPct*100, it.NewsHits),
	}
}

func (e *Evaluator) askModel(ctx context.Context, it Input, regimeLabel string) (Verdict, error) {
	c := it.Candidate

	prompt := fmt.Sprintf(
		"You are a cautious crypto trading assistant. Decide approve or veto based only on the metrics.\n"+
			"Return strict JSON: {\"approve\":true|false, \"horizon_days\": number, \"rationale\":\"<=40 words\"}.\n"+
			"Market regime: %s.\n"+
			"Metrics for %s (%s): price=%.6f USD, vol24=%.0f, mom_3h=%+.3f, mom_24h=%+.3f, mom_7d=%+.3f, "+
			"atr_pct=%.3f, news_hits=%d, news_score=%.2f. "+
			"Rules of thumb: prefer positive 7d momentum, reasonable ATR (<%.2f), decent 24h volume; "+
			"if ATR high and momentum short-lived, horizon under 1 day; otherwise 2-7 days.",
		regimeLabel, c.Symbol, c.Name, c.PriceUSD, c.Vol24USD, c.Mom3h, c.Mom24h, c.Mom7d,
		c.ATRPct, it.NewsHits, it.NewsScore, e.cfg.ApproveMaxATRPct,
	)

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.cfg.OpenAIModel,
		Temperature: 0.2,
		MaxTokens:   120,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Verdict{}, fmt.Errorf("chat completion returned no choices")
	}

	var v Verdict
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &v); err != nil {
		return Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if len(v.Rationale) > 180 {
		v.Rationale = v.Rationale[:180]
	}
	return v, nil
}

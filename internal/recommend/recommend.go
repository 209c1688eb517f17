// Package recommend synthesizes trading recommendations from indicator
// snapshots and the sentiment verdict. Unlike sentiment, this output is
// the product of the pipeline: any failure here is fatal to the request.
package recommend

import (
	"context"
	"encoding/json"
	"fmt"

	"crypto-analyst/internal/cache"
	"crypto-analyst/internal/errs"
	"crypto-analyst/internal/indicator"
	"crypto-analyst/internal/llm"
	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/store"
	"crypto-analyst/internal/trace"
	"crypto-analyst/internal/types"
)

const systemPrompt = "You are a professional cryptocurrency trading analyst. Provide ONLY the JSON response, no additional text."

// summaryWindow bounds how many timeframe summaries go into the prompt.
const summaryWindow = 5

// ChatClient is the slice of the LLM client this engine needs.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// Engine caches one recommendation per symbol.
type Engine struct {
	chat  ChatClient
	cache *cache.Cache[types.TradingRecommendation]
}

func NewEngine(cfg *store.Config, chat ChatClient) *Engine {
	return &Engine{
		chat:  chat,
		cache: cache.New[types.TradingRecommendation](cfg.RecommendationCacheTTL(), cfg.Cache.Capacity),
	}
}

// GetRecommendation returns the cached or freshly synthesized
// recommendation. Nothing is cached on failure.
func (e *Engine) GetRecommendation(ctx context.Context, symbol string, series []types.TimeframeSeries, verdict types.SentimentVerdict) (types.TradingRecommendation, error) {
	ctx, span := trace.StartSpan(ctx, "recommendation-synthesis")
	defer span.End()

	if rec, ok := e.cache.Get(symbol); ok {
		logger.Debug(ctx, "Using cached recommendation", "symbol", symbol)
		return rec, nil
	}

	summaries, err := summarize(series)
	if err != nil {
		return types.TradingRecommendation{}, err
	}

	prompt, err := buildPrompt(symbol, summaries, verdict)
	if err != nil {
		return types.TradingRecommendation{}, err
	}

	raw, err := e.chat.Chat(ctx, systemPrompt, prompt)
	if err != nil {
		return types.TradingRecommendation{}, err
	}

	var rec types.TradingRecommendation
	if err := llm.ExtractInto(raw, &rec, llm.RecommendationStrategies()...); err != nil {
		return types.TradingRecommendation{}, err
	}
	if !rec.Spot.Action.Valid() {
		return types.TradingRecommendation{}, fmt.Errorf("%w: spot action %q", errs.ErrModelOutputUnparseable, rec.Spot.Action)
	}
	if !rec.Leverage.Position.Valid() {
		return types.TradingRecommendation{}, fmt.Errorf("%w: leverage position %q", errs.ErrModelOutputUnparseable, rec.Leverage.Position)
	}

	e.cache.Set(symbol, rec)

	logger.Recommendation(ctx, symbol, string(rec.Spot.Action), string(rec.Leverage.Position), rec.Leverage.RecommendedLeverage)
	return rec, nil
}

// summarize derives per-timeframe indicator snapshots for the most recent
// timeframe entries.
func summarize(series []types.TimeframeSeries) ([]indicator.Snapshot, error) {
	if len(series) > summaryWindow {
		series = series[len(series)-summaryWindow:]
	}
	out := make([]indicator.Snapshot, 0, len(series))
	for _, s := range series {
		snap, err := indicator.Compute(s)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, nil
}

func buildPrompt(symbol string, summaries []indicator.Snapshot, verdict types.SentimentVerdict) (string, error) {
	techJSON, err := json.Marshal(summaries)
	if err != nil {
		return "", err
	}
	sentJSON, err := json.Marshal(verdict)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(`Analyze %s market data and provide trading recommendations in JSON format:
Technical Data: %s
Sentiment: %s

Consider the following technical aspects:
- RSI above 70 indicates overbought, below 30 indicates oversold
- MACD histogram crossing above 0 suggests bullish momentum, below 0 suggests bearish
- Price above EMA suggests uptrend, below suggests downtrend
- Volume changes can confirm trend strength
- Price changes show short-term momentum

Return ONLY a JSON object in this format:
{
  "spotTrading": {
    "action": "buy|sell|hold",
    "entryPrice": number,
    "stopLossLevel": number,
    "takeProfitLevel": number,
    "rationale": {
      "primarySignals": "string",
      "laggingIndicators": "string",
      "sentimentAnalysis": "string"
    }
  },
  "leveragedTrading": {
    "position": "long|short",
    "recommendedLeverage": number,
    "entryPrice": number,
    "stopLossLevel": number,
    "takeProfitLevel": number,
    "rationale": {
      "primarySignals": "string",
      "laggingIndicators": "string",
      "sentimentAnalysis": "string"
    }
  }
}`, symbol, techJSON, sentJSON), nil
}

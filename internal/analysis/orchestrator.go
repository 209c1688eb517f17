// Package analysis composes the gateways and engines into one analysis
// pass per request. The partial-failure policy lives here: sentiment
// degrades to a neutral default, market data and recommendation are
// load-bearing and fail the request.
package analysis

import (
	"context"
	"time"

	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/sentiment"
	"crypto-analyst/internal/trace"
	"crypto-analyst/internal/types"
)

type MarketData interface {
	GetAllSeries(ctx context.Context, symbol string) ([]types.TimeframeSeries, error)
}

type SentimentSource interface {
	GetSentiment(ctx context.Context, symbol string) (types.SentimentVerdict, error)
}

type Recommender interface {
	GetRecommendation(ctx context.Context, symbol string, series []types.TimeframeSeries, verdict types.SentimentVerdict) (types.TradingRecommendation, error)
}

// Orchestrator holds explicit service handles, constructed once at process
// start. It owns no cache; each engine populates its own.
type Orchestrator struct {
	market    MarketData
	sentiment SentimentSource
	recommend Recommender
}

func New(market MarketData, sent SentimentSource, rec Recommender) *Orchestrator {
	return &Orchestrator{market: market, sentiment: sent, recommend: rec}
}

// Analyze runs one terminal pass: market data, sentiment (or its default),
// recommendation, assembly. No retries, no resumption.
func (o *Orchestrator) Analyze(ctx context.Context, symbol string) (*types.AnalysisResult, error) {
	ctx, span := trace.StartSpan(ctx, "analyze")
	defer span.End()
	timer := logger.StartOperation(ctx, "analysis-request", "symbol", symbol)
	ctx = timer.GetContext()

	series, err := o.market.GetAllSeries(ctx, symbol)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	verdict, err := o.sentiment.GetSentiment(ctx, symbol)
	if err != nil {
		// Sentiment is advisory: degrade, never abort.
		logger.Warn(ctx, "Sentiment unavailable, using neutral default", "symbol", symbol, "error", err)
		verdict = sentiment.DefaultVerdict()
	}

	rec, err := o.recommend.GetRecommendation(ctx, symbol, series, verdict)
	if err != nil {
		timer.EndWithError(err)
		return nil, err
	}

	result := &types.AnalysisResult{
		Symbol:          symbol,
		TechnicalData:   series,
		SentimentData:   verdict,
		Recommendations: rec,
		Timestamp:       time.Now().UnixMilli(),
	}

	timer.End("spot_action", string(rec.Spot.Action))
	return result, nil
}

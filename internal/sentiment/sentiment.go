// Package sentiment turns news headlines into a structured sentiment
// verdict via the inference endpoint. Failures here are advisory: the
// orchestrator substitutes DefaultVerdict instead of failing the request.
package sentiment

import (
	"context"
	"strings"

	"crypto-analyst/internal/cache"
	"crypto-analyst/internal/llm"
	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/store"
	"crypto-analyst/internal/trace"
	"crypto-analyst/internal/types"
)

const systemPrompt = "You are a cryptocurrency sentiment analyst. Provide ONLY the JSON response, no additional text or markdown."

// ChatClient is the slice of the LLM client this engine needs.
type ChatClient interface {
	Chat(ctx context.Context, system, user string) (string, error)
}

// HeadlineSource supplies the headlines to judge.
type HeadlineSource interface {
	GetHeadlines(ctx context.Context, category string) []types.Headline
}

// Engine caches one verdict per symbol.
type Engine struct {
	chat  ChatClient
	news  HeadlineSource
	cache *cache.Cache[types.SentimentVerdict]
}

func NewEngine(cfg *store.Config, chat ChatClient, news HeadlineSource) *Engine {
	return &Engine{
		chat:  chat,
		news:  news,
		cache: cache.New[types.SentimentVerdict](cfg.SentimentCacheTTL(), cfg.Cache.Capacity),
	}
}

// GetSentiment returns the cached or freshly analyzed verdict for a symbol.
// Any failure propagates to the caller; nothing is cached on failure.
func (e *Engine) GetSentiment(ctx context.Context, symbol string) (types.SentimentVerdict, error) {
	ctx, span := trace.StartSpan(ctx, "sentiment-analysis")
	defer span.End()

	if verdict, ok := e.cache.Get(symbol); ok {
		logger.Debug(ctx, "Using cached sentiment verdict", "symbol", symbol)
		return verdict, nil
	}

	headlines := e.news.GetHeadlines(ctx, symbol)

	raw, err := e.chat.Chat(ctx, systemPrompt, buildPrompt(headlines))
	if err != nil {
		return types.SentimentVerdict{}, err
	}

	var verdict types.SentimentVerdict
	if err := llm.ExtractInto(raw, &verdict, llm.SentimentStrategies()...); err != nil {
		return types.SentimentVerdict{}, err
	}
	verdict.ShortTerm.Category = normalizeCategory(verdict.ShortTerm.Category)
	verdict.LongTerm.Category = normalizeCategory(verdict.LongTerm.Category)
	verdict.Headlines = headlines

	e.cache.Set(symbol, verdict)

	logger.Info(ctx, "Sentiment analysis completed", "symbol", symbol,
		"short_term", verdict.ShortTerm.Category, "long_term", verdict.LongTerm.Category)
	return verdict, nil
}

// DefaultVerdict is the documented neutral fallback used when sentiment
// analysis is unavailable.
func DefaultVerdict() types.SentimentVerdict {
	neutral := types.Outlook{
		Category:  types.SentimentNeutral,
		Score:     0.5,
		Rationale: "Sentiment analysis unavailable.",
	}
	return types.SentimentVerdict{ShortTerm: neutral, LongTerm: neutral}
}

func buildPrompt(headlines []types.Headline) string {
	var b strings.Builder
	b.WriteString("Analyze these cryptocurrency news headlines and provide sentiment analysis in JSON format:\n")
	for _, h := range headlines {
		b.WriteString(h.Title)
		b.WriteString("\n")
	}
	b.WriteString(`
Return ONLY a JSON object in this format:
{
  "shortTermSentiment": {
    "category": "Positive|Negative|Neutral",
    "score": number,
    "rationale": "string"
  },
  "longTermSentiment": {
    "category": "Positive|Negative|Neutral",
    "score": number,
    "rationale": "string"
  }
}`)
	return b.String()
}

// normalizeCategory maps model casing variants onto the fixed set; anything
// unrecognized collapses to Neutral.
func normalizeCategory(c types.SentimentCategory) types.SentimentCategory {
	switch strings.ToLower(strings.TrimSpace(string(c))) {
	case "positive":
		return types.SentimentPositive
	case "negative":
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}

// Package news fetches and caches crypto news headlines. News is
// best-effort input: upstream failures degrade to a fixed fallback list
// and never fail the caller.
package news

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"crypto-analyst/internal/api"
	"crypto-analyst/internal/cache"
	"crypto-analyst/internal/errs"
	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/store"
	"crypto-analyst/internal/trace"
	"crypto-analyst/internal/types"
)

// generalKey is the cache key for uncategorised headline fetches.
const generalKey = "general"

// Gateway wraps the news endpoint with a per-category TTL cache.
type Gateway struct {
	client *api.Client
	cache  *cache.Cache[[]types.Headline]
	lang   string
}

func NewGateway(cfg *store.Config) *Gateway {
	opts := []api.ClientOption{api.WithBaseURL(cfg.News.BaseURL)}
	if key := os.Getenv(cfg.News.APIKeyEnv); key != "" {
		opts = append(opts, api.WithHeader("authorization", "Apikey "+key))
	}
	return &Gateway{
		client: api.NewClient(opts...),
		cache:  cache.New[[]types.Headline](cfg.NewsCacheTTL(), cfg.Cache.Capacity),
		lang:   cfg.News.Lang,
	}
}

type newsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	PublishedOn int64  `json:"published_on"`
	Categories  string `json:"categories"`
	Tags        string `json:"tags"`
}

type newsResponse struct {
	Response string     `json:"Response"`
	Message  string     `json:"Message"`
	Data     []newsItem `json:"Data"`
}

// GetHeadlines returns recent headlines, optionally filtered by category.
// An empty category maps to the general feed. Upstream success with zero
// items yields an empty list; any failure yields the fallback list.
func (g *Gateway) GetHeadlines(ctx context.Context, category string) []types.Headline {
	ctx, span := trace.StartSpan(ctx, "news-get-headlines")
	defer span.End()

	key := category
	if key == "" {
		key = generalKey
	}
	if headlines, ok := g.cache.Get(key); ok {
		logger.Debug(ctx, "Using cached headlines", "category", key, "count", len(headlines))
		return headlines
	}

	headlines, err := g.fetch(ctx, category)
	if err != nil {
		logger.Warn(ctx, "News fetch failed, using fallback headlines", "category", key, "error", err)
		return FallbackHeadlines()
	}

	g.cache.Set(key, headlines)
	logger.Info(ctx, "Fetched headlines", "category", key, "count", len(headlines))
	return headlines
}

func (g *Gateway) fetch(ctx context.Context, category string) ([]types.Headline, error) {
	path := "/data/v2/news/?lang=" + url.QueryEscape(g.lang)
	if category != "" {
		path += "&categories=" + url.QueryEscape(category)
	}

	resp, err := g.client.GET(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrUpstreamUnavailable, err)
	}

	var payload newsResponse
	if err := resp.ParseJSON(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrMalformedPayload, err)
	}
	// The upstream signals failure in the body, not the HTTP status.
	if payload.Response != "Success" {
		return nil, fmt.Errorf("%w: news status %q: %s", errs.ErrMalformedPayload, payload.Response, payload.Message)
	}

	headlines := make([]types.Headline, 0, len(payload.Data))
	for _, item := range payload.Data {
		headlines = append(headlines, types.Headline{
			Title:       item.Title,
			URL:         item.URL,
			Source:      item.Source,
			PublishedOn: item.PublishedOn,
		})
	}
	return headlines, nil
}

// Probe is a liveness check that surfaces upstream failures instead of
// degrading to the fallback list.
func (g *Gateway) Probe(ctx context.Context) error {
	_, err := g.fetch(ctx, "")
	return err
}

// FallbackHeadlines is the fixed list substituted when the upstream is
// unavailable or malformed.
func FallbackHeadlines() []types.Headline {
	return []types.Headline{
		{Title: "Bitcoin Surges Past $50,000 as Institutional Adoption Grows"},
		{Title: "Ethereum 2.0 Upgrade Shows Promising Results"},
		{Title: "Major Bank Announces Crypto Custody Services"},
		{Title: "New DeFi Protocol Launches with $100M TVL"},
		{Title: "Regulatory Clarity Expected for Crypto Markets"},
	}
}

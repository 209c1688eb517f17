// Package market fetches and caches OHLCV candle series from the exchange.
// Candles are the essential input of the pipeline: any fetch failure here
// propagates up and fails the whole analysis request.
package market

import (
	"context"
	"fmt"

	"crypto-analyst/internal/cache"
	"crypto-analyst/internal/errs"
	"crypto-analyst/internal/logger"
	"crypto-analyst/internal/store"
	"crypto-analyst/internal/trace"
	"crypto-analyst/internal/types"

	"github.com/adshao/go-binance/v2"
	"golang.org/x/sync/errgroup"
)

// Gateway wraps the Binance klines endpoint with a per-(symbol, timeframe)
// TTL cache.
type Gateway struct {
	client *binance.Client
	cache  *cache.Cache[types.TimeframeSeries]
	quote  string
	limit  int
}

// NewGateway builds a gateway from config. The exchange base URL is
// overridable for tests and regional mirrors.
func NewGateway(cfg *store.Config) *Gateway {
	client := binance.NewClient("", "")
	if cfg.Binance.BaseURL != "" {
		client.BaseURL = cfg.Binance.BaseURL
	}
	return &Gateway{
		client: client,
		cache:  cache.New[types.TimeframeSeries](cfg.MarketCacheTTL(), cfg.Cache.Capacity),
		quote:  cfg.Binance.QuoteAsset,
		limit:  cfg.Binance.CandleLimit,
	}
}

// GetSeries returns the candle series for one (symbol, timeframe) pair,
// served from cache when fresh.
func (g *Gateway) GetSeries(ctx context.Context, symbol string, tf types.Timeframe) (types.TimeframeSeries, error) {
	ctx, span := trace.StartSpan(ctx, "market-get-series")
	defer span.End()

	key := symbol + "-" + string(tf)
	if series, ok := g.cache.Get(key); ok {
		logger.Debug(ctx, "Using cached candle series", "symbol", symbol, "timeframe", tf)
		return series, nil
	}

	klines, err := g.client.NewKlinesService().
		Symbol(symbol + g.quote).
		Interval(string(tf)).
		Limit(g.limit).
		Do(ctx)
	if err != nil {
		return types.TimeframeSeries{}, fmt.Errorf("%w: fetching %s %s candles: %v",
			errs.ErrUpstreamUnavailable, symbol, tf, err)
	}
	if len(klines) == 0 {
		return types.TimeframeSeries{}, fmt.Errorf("%w: empty %s %s kline response",
			errs.ErrMalformedPayload, symbol, tf)
	}

	series := types.TimeframeSeries{
		Timeframe: tf,
		Candles:   mapKlines(klines),
	}
	g.cache.Set(key, series)

	logger.Info(ctx, "Fetched candle series", "symbol", symbol, "timeframe", tf, "candles", len(series.Candles))
	return series, nil
}

// GetAllSeries fetches the full fixed timeframe set. The per-timeframe
// fetches are independent and issued concurrently; results keep the
// timeframe order regardless of completion order.
func (g *Gateway) GetAllSeries(ctx context.Context, symbol string) ([]types.TimeframeSeries, error) {
	tfs := types.AllTimeframes()
	out := make([]types.TimeframeSeries, len(tfs))

	grp, ctx := errgroup.WithContext(ctx)
	for i, tf := range tfs {
		i, tf := i, tf
		grp.Go(func() error {
			series, err := g.GetSeries(ctx, symbol, tf)
			if err != nil {
				return err
			}
			out[i] = series
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Probe is a lightweight liveness check against the exchange.
func (g *Gateway) Probe(ctx context.Context) error {
	return g.client.NewPingService().Do(ctx)
}

func mapKlines(klines []*binance.Kline) []types.Candle {
	candles := make([]types.Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, types.Candle{
			OpenTime:            k.OpenTime,
			Open:                k.Open,
			High:                k.High,
			Low:                 k.Low,
			Close:               k.Close,
			Volume:              k.Volume,
			CloseTime:           k.CloseTime,
			QuoteVolume:         k.QuoteAssetVolume,
			Trades:              k.TradeNum,
			TakerBuyBaseVolume:  k.TakerBuyBaseAssetVolume,
			TakerBuyQuoteVolume: k.TakerBuyQuoteAssetVolume,
		})
	}
	return candles
}

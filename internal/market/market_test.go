package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"crypto-analyst/internal/errs"
	"crypto-analyst/internal/store"
	"crypto-analyst/internal/types"
)

func klinesBody(n int) string {
	out := "["
	for i := 0; i < n; i++ {
		if i > 0 {
			out += ","
		}
		openTime := int64(1700000000000) + int64(i)*900000
		close := 100.0 + float64(i)
		out += fmt.Sprintf(`[%d,"%.2f","%.2f","%.2f","%.2f","%.2f",%d,"%.2f",%d,"%.2f","%.2f","0"]`,
			openTime, close-1, close+1, close-2, close, 1000.0+float64(i),
			openTime+899999, 50000.0, 120+i, 500.0, 25000.0)
	}
	return out + "]"
}

func newTestGateway(t *testing.T, handler http.Handler) (*Gateway, *httptest.Server) {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := store.DefaultConfig()
	cfg.Binance.BaseURL = ts.URL
	return NewGateway(cfg), ts
}

func TestGetSeriesMapsCandles(t *testing.T) {
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "BTCUSDT" {
			t.Errorf("expected symbol BTCUSDT, got %s", got)
		}
		if got := r.URL.Query().Get("limit"); got != "200" {
			t.Errorf("expected limit 200, got %s", got)
		}
		fmt.Fprint(w, klinesBody(3))
	}))

	series, err := gw.GetSeries(context.Background(), "BTC", types.Timeframe15m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Timeframe != types.Timeframe15m {
		t.Errorf("expected timeframe 15m, got %s", series.Timeframe)
	}
	if len(series.Candles) != 3 {
		t.Fatalf("expected 3 candles, got %d", len(series.Candles))
	}

	first := series.Candles[0]
	if first.OpenTime != 1700000000000 {
		t.Errorf("expected openTime 1700000000000, got %d", first.OpenTime)
	}
	if first.Close != "100.00" {
		t.Errorf("expected close kept as decimal string, got %q", first.Close)
	}
	if first.Trades != 120 {
		t.Errorf("expected 120 trades, got %d", first.Trades)
	}
	for i := 1; i < len(series.Candles); i++ {
		if series.Candles[i].OpenTime <= series.Candles[i-1].OpenTime {
			t.Error("expected strictly increasing openTime")
		}
	}
}

func TestGetSeriesServedFromCache(t *testing.T) {
	var calls int64
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		fmt.Fprint(w, klinesBody(2))
	}))

	ctx := context.Background()
	first, err := gw.GetSeries(ctx, "BTC", types.Timeframe1h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := gw.GetSeries(ctx, "BTC", types.Timeframe1h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if atomic.LoadInt64(&calls) != 1 {
		t.Errorf("expected exactly one upstream call, got %d", calls)
	}
	if len(first.Candles) != len(second.Candles) || first.Candles[0] != second.Candles[0] {
		t.Error("expected cached read to return the previously written value")
	}
}

func TestGetSeriesDistinctTimeframesFetchSeparately(t *testing.T) {
	var calls int64
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		fmt.Fprint(w, klinesBody(2))
	}))

	ctx := context.Background()
	if _, err := gw.GetSeries(ctx, "BTC", types.Timeframe15m); err != nil {
		t.Fatal(err)
	}
	if _, err := gw.GetSeries(ctx, "BTC", types.Timeframe1d); err != nil {
		t.Fatal(err)
	}
	if atomic.LoadInt64(&calls) != 2 {
		t.Errorf("expected one fetch per timeframe, got %d", calls)
	}
}

func TestGetSeriesUpstreamError(t *testing.T) {
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"code":-1121,"msg":"Invalid symbol."}`, http.StatusBadRequest)
	}))

	_, err := gw.GetSeries(context.Background(), "XYZ", types.Timeframe1d)
	if err == nil {
		t.Fatal("expected error for upstream failure")
	}
	if !errors.Is(err, errs.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
	for _, want := range []string{"XYZ", "1d"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to name %q, got %q", want, err.Error())
		}
	}
}

func TestGetAllSeriesCoversFixedTimeframeSet(t *testing.T) {
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinesBody(5))
	}))

	all, err := gw.GetAllSeries(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 series, got %d", len(all))
	}
	for i, tf := range types.AllTimeframes() {
		if all[i].Timeframe != tf {
			t.Errorf("expected series %d to be %s, got %s", i, tf, all[i].Timeframe)
		}
	}
}

func TestGetAllSeriesFailsWhenOneTimeframeFails(t *testing.T) {
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("interval") == "1h" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, klinesBody(5))
	}))

	_, err := gw.GetAllSeries(context.Background(), "BTC")
	if !errors.Is(err, errs.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	gw, _ := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v3/ping" {
			fmt.Fprint(w, "{}")
			return
		}
		http.NotFound(w, r)
	}))

	if err := gw.Probe(context.Background()); err != nil {
		t.Errorf("expected probe to succeed, got %v", err)
	}
}

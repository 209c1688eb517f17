package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"crypto-analyst/internal/store"
)

func newTestGateway(t *testing.T, handler http.Handler) *Gateway {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := store.DefaultConfig()
	cfg.News.BaseURL = ts.URL
	return NewGateway(cfg)
}

const successBody = `{
	"Response": "Success",
	"Message": "News list successfully returned",
	"Data": [
		{"id": "1", "title": "Bitcoin breaks out", "url": "https://example.com/1", "source": "wire", "published_on": 1700000000},
		{"id": "2", "title": "ETF inflows continue", "url": "https://example.com/2", "source": "desk", "published_on": 1700000100}
	]
}`

func TestGetHeadlinesParsesItems(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("lang"); got != "EN" {
			t.Errorf("expected lang EN, got %s", got)
		}
		fmt.Fprint(w, successBody)
	}))

	headlines := gw.GetHeadlines(context.Background(), "")
	if len(headlines) != 2 {
		t.Fatalf("expected 2 headlines, got %d", len(headlines))
	}
	if headlines[0].Title != "Bitcoin breaks out" {
		t.Errorf("unexpected title %q", headlines[0].Title)
	}
	if headlines[0].URL != "https://example.com/1" {
		t.Errorf("expected headline to carry URL, got %q", headlines[0].URL)
	}
	if headlines[1].Source != "desk" {
		t.Errorf("expected source desk, got %q", headlines[1].Source)
	}
}

func TestGetHeadlinesCaches(t *testing.T) {
	var calls int64
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		fmt.Fprint(w, successBody)
	}))

	ctx := context.Background()
	gw.GetHeadlines(ctx, "")
	gw.GetHeadlines(ctx, "")

	if atomic.LoadInt64(&calls) != 1 {
		t.Errorf("expected one upstream call for cached reads, got %d", calls)
	}
}

func TestGetHeadlinesCategoryKeyedSeparately(t *testing.T) {
	var calls int64
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		fmt.Fprint(w, successBody)
	}))

	ctx := context.Background()
	gw.GetHeadlines(ctx, "")
	gw.GetHeadlines(ctx, "BTC")

	if atomic.LoadInt64(&calls) != 2 {
		t.Errorf("expected separate fetches per category, got %d", calls)
	}
}

func TestGetHeadlinesZeroItemsIsEmptyNotError(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"Response": "Success", "Message": "ok", "Data": []}`)
	}))

	headlines := gw.GetHeadlines(context.Background(), "")
	if len(headlines) != 0 {
		t.Errorf("expected empty list for zero items, got %d", len(headlines))
	}
}

func TestGetHeadlinesFallbackOnHTTPError(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	headlines := gw.GetHeadlines(context.Background(), "")
	if len(headlines) != len(FallbackHeadlines()) {
		t.Fatalf("expected fallback list, got %d headlines", len(headlines))
	}
	if headlines[0].Title != FallbackHeadlines()[0].Title {
		t.Errorf("unexpected fallback title %q", headlines[0].Title)
	}
}

func TestGetHeadlinesFallbackOnBodyLevelFailure(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// HTTP 200 but the body signals failure.
		fmt.Fprint(w, `{"Response": "Error", "Message": "rate limit", "Data": []}`)
	}))

	headlines := gw.GetHeadlines(context.Background(), "")
	if len(headlines) != len(FallbackHeadlines()) {
		t.Errorf("expected fallback list for body-level failure, got %d", len(headlines))
	}
}

func TestGetHeadlinesFallbackOnMalformedBody(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not json at all")
	}))

	headlines := gw.GetHeadlines(context.Background(), "")
	if len(headlines) != len(FallbackHeadlines()) {
		t.Errorf("expected fallback list for malformed body, got %d", len(headlines))
	}
}

func TestProbeSurfacesFailure(t *testing.T) {
	gw := newTestGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))

	if err := gw.Probe(context.Background()); err == nil {
		t.Error("expected probe to report upstream failure")
	}
}

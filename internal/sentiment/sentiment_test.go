package sentiment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"crypto-analyst/internal/errs"
	"crypto-analyst/internal/store"
	"crypto-analyst/internal/types"
)

type fakeChat struct {
	response string
	err      error
	calls    int
	lastUser string
}

func (f *fakeChat) Chat(ctx context.Context, system, user string) (string, error) {
	f.calls++
	f.lastUser = user
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

type fakeNews struct {
	headlines []types.Headline
}

func (f *fakeNews) GetHeadlines(ctx context.Context, category string) []types.Headline {
	return f.headlines
}

const verdictJSON = `{
	"shortTermSentiment": {"category": "Positive", "score": 0.8, "rationale": "strong inflows"},
	"longTermSentiment": {"category": "neutral", "score": 0.5, "rationale": "macro uncertainty"}
}`

func newEngine(chat *fakeChat, headlines []types.Headline) *Engine {
	return NewEngine(store.DefaultConfig(), chat, &fakeNews{headlines: headlines})
}

func TestGetSentimentParsesVerdict(t *testing.T) {
	chat := &fakeChat{response: verdictJSON}
	headlines := []types.Headline{{Title: "Bitcoin ETF sees record inflows", URL: "https://example.com"}}
	eng := newEngine(chat, headlines)

	verdict, err := eng.GetSentiment(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if verdict.ShortTerm.Category != types.SentimentPositive {
		t.Errorf("expected Positive short term, got %s", verdict.ShortTerm.Category)
	}
	if verdict.ShortTerm.Score != 0.8 {
		t.Errorf("expected score 0.8, got %f", verdict.ShortTerm.Score)
	}
	// Lowercase model output is normalized onto the fixed category set.
	if verdict.LongTerm.Category != types.SentimentNeutral {
		t.Errorf("expected Neutral long term, got %s", verdict.LongTerm.Category)
	}
	if len(verdict.Headlines) != 1 || verdict.Headlines[0].Title != headlines[0].Title {
		t.Error("expected verdict to carry the judged headlines")
	}
}

func TestGetSentimentEmbedsHeadlinesInPrompt(t *testing.T) {
	chat := &fakeChat{response: verdictJSON}
	eng := newEngine(chat, []types.Headline{
		{Title: "Major Bank Announces Crypto Custody Services"},
		{Title: "Regulatory Clarity Expected"},
	})

	if _, err := eng.GetSentiment(context.Background(), "BTC"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, title := range []string{"Major Bank Announces Crypto Custody Services", "Regulatory Clarity Expected"} {
		if !strings.Contains(chat.lastUser, title) {
			t.Errorf("expected prompt to embed headline %q", title)
		}
	}
}

func TestGetSentimentCachesPerSymbol(t *testing.T) {
	chat := &fakeChat{response: verdictJSON}
	eng := newEngine(chat, nil)

	ctx := context.Background()
	if _, err := eng.GetSentiment(ctx, "BTC"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.GetSentiment(ctx, "BTC"); err != nil {
		t.Fatal(err)
	}
	if chat.calls != 1 {
		t.Errorf("expected one model call for cached symbol, got %d", chat.calls)
	}

	if _, err := eng.GetSentiment(ctx, "ETH"); err != nil {
		t.Fatal(err)
	}
	if chat.calls != 2 {
		t.Errorf("expected fresh call for new symbol, got %d", chat.calls)
	}
}

func TestGetSentimentChatFailurePropagates(t *testing.T) {
	chat := &fakeChat{err: errs.ErrUpstreamUnavailable}
	eng := newEngine(chat, nil)

	_, err := eng.GetSentiment(context.Background(), "BTC")
	if !errors.Is(err, errs.ErrUpstreamUnavailable) {
		t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
	}

	// Failure must not leave a cached verdict behind.
	chat.err = nil
	chat.response = verdictJSON
	if _, err := eng.GetSentiment(context.Background(), "BTC"); err != nil {
		t.Fatal(err)
	}
	if chat.calls != 2 {
		t.Errorf("expected retry to hit the model, got %d calls", chat.calls)
	}
}

func TestGetSentimentUnparseableOutput(t *testing.T) {
	chat := &fakeChat{response: "I cannot provide a JSON response today."}
	eng := newEngine(chat, nil)

	_, err := eng.GetSentiment(context.Background(), "BTC")
	if !errors.Is(err, errs.ErrModelOutputUnparseable) {
		t.Errorf("expected ErrModelOutputUnparseable, got %v", err)
	}
}

func TestDefaultVerdict(t *testing.T) {
	v := DefaultVerdict()
	for name, o := range map[string]types.Outlook{"short": v.ShortTerm, "long": v.LongTerm} {
		if o.Category != types.SentimentNeutral {
			t.Errorf("%s: expected Neutral, got %s", name, o.Category)
		}
		if o.Score != 0.5 {
			t.Errorf("%s: expected score 0.5, got %f", name, o.Score)
		}
		if o.Rationale != "Sentiment analysis unavailable." {
			t.Errorf("%s: unexpected rationale %q", name, o.Rationale)
		}
	}
}

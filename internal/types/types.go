package types

import (
	"encoding/json"
	"strings"
)

// Timeframe is one of the fixed candle intervals the analyst works with.
type Timeframe string

const (
	Timeframe15m Timeframe = "15m"
	Timeframe1h  Timeframe = "1h"
	Timeframe1d  Timeframe = "1d"
)

// AllTimeframes returns the fixed timeframe set in fetch order.
func AllTimeframes() []Timeframe {
	return []Timeframe{Timeframe15m, Timeframe1h, Timeframe1d}
}

// Candle is one OHLCV bar. Prices and volumes stay as decimal strings
// exactly as the exchange returns them; times are epoch milliseconds.
type Candle struct {
	OpenTime            int64  `json:"openTime"`
	Open                string `json:"open"`
	High                string `json:"high"`
	Low                 string `json:"low"`
	Close               string `json:"close"`
	Volume              string `json:"volume"`
	CloseTime           int64  `json:"closeTime"`
	QuoteVolume         string `json:"quoteVolume"`
	Trades              int64  `json:"trades"`
	TakerBuyBaseVolume  string `json:"takerBuyBaseVolume"`
	TakerBuyQuoteVolume string `json:"takerBuyQuoteVolume"`
}

// TimeframeSeries is an ascending, duplicate-free candle sequence for one timeframe.
type TimeframeSeries struct {
	Timeframe Timeframe `json:"timeframe"`
	Candles   []Candle  `json:"candles"`
}

// Headline is one news item, held only for the news cache TTL.
type Headline struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source,omitempty"`
	PublishedOn int64  `json:"publishedOn,omitempty"`
}

type SentimentCategory string

const (
	SentimentPositive SentimentCategory = "Positive"
	SentimentNeutral  SentimentCategory = "Neutral"
	SentimentNegative SentimentCategory = "Negative"
)

// Outlook is one sentiment sub-verdict for a single horizon.
type Outlook struct {
	Category  SentimentCategory `json:"category"`
	Score     float64           `json:"score"`
	Rationale string            `json:"rationale"`
}

// SentimentVerdict holds the short- and long-term outlooks plus the
// headlines the model judged.
type SentimentVerdict struct {
	ShortTerm Outlook    `json:"shortTermSentiment"`
	LongTerm  Outlook    `json:"longTermSentiment"`
	Headlines []Headline `json:"newsHeadlines,omitempty"`
}

type SpotAction string

const (
	ActionBuy  SpotAction = "buy"
	ActionSell SpotAction = "sell"
	ActionHold SpotAction = "hold"
)

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Valid reports whether the action is one of buy/sell/hold.
func (a SpotAction) Valid() bool {
	return a == ActionBuy || a == ActionSell || a == ActionHold
}

func (s PositionSide) Valid() bool {
	return s == PositionLong || s == PositionShort
}

// TradeLevels are the price levels attached to an actionable plan.
type TradeLevels struct {
	Entry      float64 `json:"entryPrice"`
	StopLoss   float64 `json:"stopLossLevel"`
	TakeProfit float64 `json:"takeProfitLevel"`
}

// Rationale is model-written free text, never algorithmically derived.
type Rationale struct {
	PrimarySignals    string `json:"primarySignals"`
	LaggingIndicators string `json:"laggingIndicators"`
	SentimentAnalysis string `json:"sentimentAnalysis"`
}

// SpotPlan is the spot-trading half of a recommendation. Levels is nil
// when the action is hold; the wire format stays flat for compatibility.
type SpotPlan struct {
	Action    SpotAction
	Levels    *TradeLevels
	Rationale Rationale
}

func (p SpotPlan) MarshalJSON() ([]byte, error) {
	out := map[string]any{
		"action":    p.Action,
		"rationale": p.Rationale,
	}
	if p.Levels != nil {
		out["entryPrice"] = p.Levels.Entry
		out["stopLossLevel"] = p.Levels.StopLoss
		out["takeProfitLevel"] = p.Levels.TakeProfit
	}
	return json.Marshal(out)
}

func (p *SpotPlan) UnmarshalJSON(b []byte) error {
	var raw struct {
		Action     string    `json:"action"`
		Entry      *float64  `json:"entryPrice"`
		StopLoss   *float64  `json:"stopLossLevel"`
		TakeProfit *float64  `json:"takeProfitLevel"`
		Rationale  Rationale `json:"rationale"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Action = SpotAction(strings.ToLower(strings.TrimSpace(raw.Action)))
	p.Rationale = raw.Rationale
	p.Levels = nil
	if p.Action != ActionHold {
		lv := &TradeLevels{}
		if raw.Entry != nil {
			lv.Entry = *raw.Entry
		}
		if raw.StopLoss != nil {
			lv.StopLoss = *raw.StopLoss
		}
		if raw.TakeProfit != nil {
			lv.TakeProfit = *raw.TakeProfit
		}
		p.Levels = lv
	}
	return nil
}

// LeveragePlan is the leveraged-trading half of a recommendation. A
// leveraged position is always directional, so its levels are not optional.
type LeveragePlan struct {
	Position            PositionSide `json:"position"`
	RecommendedLeverage float64      `json:"recommendedLeverage"`
	Entry               float64      `json:"entryPrice"`
	StopLoss            float64      `json:"stopLossLevel"`
	TakeProfit          float64      `json:"takeProfitLevel"`
	Rationale           Rationale    `json:"rationale"`
}

// TradingRecommendation is the product of the analysis pipeline.
type TradingRecommendation struct {
	Spot     SpotPlan     `json:"spotTrading"`
	Leverage LeveragePlan `json:"leveragedTrading"`
}

// AnalysisResult is assembled once per request and never mutated after.
type AnalysisResult struct {
	Symbol          string                `json:"symbol"`
	TechnicalData   []TimeframeSeries     `json:"technicalData"`
	SentimentData   SentimentVerdict      `json:"sentimentData"`
	Recommendations TradingRecommendation `json:"recommendations"`
	Timestamp       int64                 `json:"timestamp"`
}

// Package indicator computes technical indicators from candle series.
// Everything here is pure: no I/O, no cache, identical input gives
// identical output. Short series take neutral defaults instead of errors;
// only an empty series is an error.
package indicator

import (
	"fmt"
	"strconv"

	"crypto-analyst/internal/errs"
	"crypto-analyst/internal/types"
)

const (
	RSIPeriod  = 14
	MACDFast   = 12
	MACDSlow   = 26
	MACDSignal = 9
	EMAPeriod  = 20
	neutralRSI = 50.0
)

// Values are the derived indicator readings for one timeframe.
type Values struct {
	RSI          float64 `json:"rsi"`
	MACD         float64 `json:"macd"`
	EMA          float64 `json:"ema"`
	PriceChange  float64 `json:"priceChange"`
	VolumeChange float64 `json:"volumeChange"`
}

// Snapshot pairs the latest price/volume with the indicator readings.
type Snapshot struct {
	Timeframe  types.Timeframe `json:"timeframe"`
	Price      float64         `json:"price"`
	Volume     float64         `json:"volume"`
	Indicators Values          `json:"indicators"`
}

// Compute derives a Snapshot from one timeframe series. Returns an error
// only for an empty series or candles with non-numeric fields.
func Compute(series types.TimeframeSeries) (Snapshot, error) {
	if len(series.Candles) == 0 {
		return Snapshot{}, fmt.Errorf("%w: empty %s series", errs.ErrInsufficientHistory, series.Timeframe)
	}

	closes := make([]float64, 0, len(series.Candles))
	volumes := make([]float64, 0, len(series.Candles))
	for _, c := range series.Candles {
		cl, err := strconv.ParseFloat(c.Close, 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: bad close %q", errs.ErrMalformedPayload, c.Close)
		}
		vol, err := strconv.ParseFloat(c.Volume, 64)
		if err != nil {
			return Snapshot{}, fmt.Errorf("%w: bad volume %q", errs.ErrMalformedPayload, c.Volume)
		}
		closes = append(closes, cl)
		volumes = append(volumes, vol)
	}

	last := closes[len(closes)-1]
	return Snapshot{
		Timeframe: series.Timeframe,
		Price:     last,
		Volume:    volumes[len(volumes)-1],
		Indicators: Values{
			RSI:          RSI(closes, RSIPeriod),
			MACD:         MACDHistogram(closes, MACDFast, MACDSlow, MACDSignal),
			EMA:          EMA(closes, EMAPeriod),
			PriceChange:  changePct(closes),
			VolumeChange: changePct(volumes),
		},
	}, nil
}

// RSI computes the Relative Strength Index over the trailing window.
// A full window needs period+1 closes (period deltas); anything shorter
// takes the neutral midpoint 50.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return neutralRSI
	}
	start := len(closes) - period
	gain, loss := 0.0, 0.0
	for i := start; i < len(closes); i++ {
		d := closes[i] - closes[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	if loss == 0 {
		return 100.0
	}
	rs := (gain / float64(period)) / (loss / float64(period))
	return 100.0 - (100.0 / (1.0 + rs))
}

// MACDHistogram returns MACD line minus signal line for the last candle.
// Fewer than slow+signal-1 closes take the neutral default 0.
func MACDHistogram(closes []float64, fast, slow, signal int) float64 {
	if len(closes) < slow+signal-1 {
		return 0
	}
	fastEMA := emaSeries(closes, fast)
	slowEMA := emaSeries(closes, slow)

	macd := make([]float64, 0, len(closes)-slow+1)
	for i := slow - 1; i < len(closes); i++ {
		macd = append(macd, fastEMA[i]-slowEMA[i])
	}
	sig := emaSeries(macd, signal)
	return macd[len(macd)-1] - sig[len(sig)-1]
}

// EMA returns the exponential moving average of the last value. Series
// shorter than the period take the last close as a neutral stand-in.
func EMA(closes []float64, period int) float64 {
	if len(closes) == 0 {
		return 0
	}
	if period <= 0 || len(closes) < period {
		return closes[len(closes)-1]
	}
	s := emaSeries(closes, period)
	return s[len(s)-1]
}

// emaSeries seeds with the SMA of the first n values, then applies the
// standard smoothing factor 2/(n+1). Indices before n-1 hold running
// averages and are only read by MACD past the slow period.
func emaSeries(vals []float64, n int) []float64 {
	out := make([]float64, len(vals))
	if n <= 0 || len(vals) < n {
		return out
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += vals[i]
		out[i] = sum / float64(i+1)
	}
	k := 2.0 / (float64(n) + 1.0)
	for i := n; i < len(vals); i++ {
		out[i] = vals[i]*k + out[i-1]*(1-k)
	}
	return out
}

// changePct is the percent change of the last value vs the previous one.
func changePct(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	prev := vals[len(vals)-2]
	if prev == 0 {
		return 0
	}
	return (vals[len(vals)-1] - prev) / prev * 100.0
}

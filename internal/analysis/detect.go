// Package analysis turns OHLC candles into the pattern summary the chat
// explains, and decodes summaries produced elsewhere.
package analysis

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

// Candle is one OHLC bar, oldest first in every slice passed to Detect.
type Candle struct {
	OpenTime int64   `json:"open_time,omitempty"`
	Open     float64 `json:"open"`
	High     float64 `json:"high"`
	Low      float64 `json:"low"`
	Close    float64 `json:"close"`
	Volume   float64 `json:"volume,omitempty"`
}

func (c Candle) body() float64  { return math.Abs(c.Close - c.Open) }
func (c Candle) span() float64  { return c.High - c.Low }
func (c Candle) upper() float64 { return c.High - math.Max(c.Open, c.Close) }
func (c Candle) lower() float64 { return math.Min(c.Open, c.Close) - c.Low }
func (c Candle) bullish() bool  { return c.Close > c.Open }
func (c Candle) bearish() bool  { return c.Close < c.Open }

func (c Candle) valid() bool {
	return c.High >= c.Low && c.High >= math.Max(c.Open, c.Close) && c.Low <= math.Min(c.Open, c.Close) && c.Low > 0
}

// Options tunes the detector. Non-positive fields take the defaults, except
// ATRPadding where zero disables padding.
type Options struct {
	DojiBodyRatio  float64 // max body/range for a doji
	ShadowRatio    float64 // min long-shadow/body for hammer-like candles
	TrendLookback  int     // candles before the pattern used to judge the prior trend
	ATRPeriod      int
	ATRPadding     float64 // fraction of ATR placed beyond the pattern extreme
	RewardMultiple int64   // take profit distance in units of risk
	Precision      int32   // decimal places of the reported levels
}

// DefaultOptions mirrors common charting defaults.
func DefaultOptions() Options {
	return Options{
		DojiBodyRatio:  0.1,
		ShadowRatio:    2.0,
		TrendLookback:  5,
		ATRPeriod:      14,
		ATRPadding:     0.25,
		RewardMultiple: 2,
		Precision:      2,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.DojiBodyRatio <= 0 {
		o.DojiBodyRatio = def.DojiBodyRatio
	}
	if o.ShadowRatio <= 0 {
		o.ShadowRatio = def.ShadowRatio
	}
	if o.TrendLookback <= 1 {
		o.TrendLookback = def.TrendLookback
	}
	if o.ATRPeriod <= 0 {
		o.ATRPeriod = def.ATRPeriod
	}
	if o.ATRPadding < 0 {
		o.ATRPadding = def.ATRPadding
	}
	if o.RewardMultiple <= 0 {
		o.RewardMultiple = def.RewardMultiple
	}
	if o.Precision <= 0 {
		o.Precision = def.Precision
	}
	return o
}

type bias int

const (
	biasNeutral bias = iota
	biasBullish
	biasBearish
)

type match struct {
	pattern    string
	bias       bias
	confidence float64
	size       int // candles forming the pattern, counted from the end
}

// Detect looks for one of the known candlestick patterns on the most recent
// candles. Multi-candle formations win over single-candle ones. ok is false
// when nothing is recognized or the input is unusable.
func Detect(candles []Candle, opts Options) (Result, bool) {
	opts = opts.withDefaults()
	if len(candles) == 0 {
		return Result{}, false
	}
	for _, c := range candles {
		if !c.valid() {
			return Result{}, false
		}
	}
	detectors := []func([]Candle, Options) (match, bool){
		detectStar,
		detectEngulfing,
		detectHammerFamily,
		detectShootingStar,
		detectDoji,
	}
	for _, detect := range detectors {
		m, ok := detect(candles, opts)
		if !ok {
			continue
		}
		if res, ok := buildResult(candles, m, opts); ok {
			return res, true
		}
	}
	return Result{}, false
}

func detectStar(candles []Candle, opts Options) (match, bool) {
	n := len(candles)
	if n < 3 {
		return match{}, false
	}
	c1, c2, c3 := candles[n-3], candles[n-2], candles[n-1]
	if c1.span() <= 0 || c1.body() < 0.5*c1.span() || c2.body() > 0.3*c1.body() {
		return match{}, false
	}
	mid := (c1.Open + c1.Close) / 2
	switch {
	case c1.bearish() && c3.bullish() && c3.Close > mid:
		return match{pattern: "Morning Star", bias: biasBullish, confidence: starConfidence(c1, c3), size: 3}, true
	case c1.bullish() && c3.bearish() && c3.Close < mid:
		return match{pattern: "Evening Star", bias: biasBearish, confidence: starConfidence(c1, c3), size: 3}, true
	}
	return match{}, false
}

func starConfidence(c1, c3 Candle) float64 {
	// recovery of the first candle's body by the third
	recovered := c3.body() / math.Max(c1.body(), 1e-9)
	return clampConfidence(75 + 15*math.Min(recovered, 1))
}

func detectEngulfing(candles []Candle, opts Options) (match, bool) {
	n := len(candles)
	if n < 2 {
		return match{}, false
	}
	prev, cur := candles[n-2], candles[n-1]
	if cur.body() <= prev.body() || prev.body() == 0 {
		return match{}, false
	}
	ratio := cur.body() / prev.body()
	conf := clampConfidence(65 + 10*math.Min(ratio-1, 2))
	switch {
	case prev.bearish() && cur.bullish() && cur.Open <= prev.Close && cur.Close >= prev.Open:
		if priorTrend(candles, n-2, opts.TrendLookback) == biasBearish {
			conf = clampConfidence(conf + 10)
		}
		return match{pattern: "Engulfing", bias: biasBullish, confidence: conf, size: 2}, true
	case prev.bullish() && cur.bearish() && cur.Open >= prev.Close && cur.Close <= prev.Open:
		if priorTrend(candles, n-2, opts.TrendLookback) == biasBullish {
			conf = clampConfidence(conf + 10)
		}
		return match{pattern: "Engulfing", bias: biasBearish, confidence: conf, size: 2}, true
	}
	return match{}, false
}

func detectHammerFamily(candles []Candle, opts Options) (match, bool) {
	n := len(candles)
	c := candles[n-1]
	body := c.body()
	if body == 0 || c.lower() < opts.ShadowRatio*body || c.upper() > 0.5*body {
		return match{}, false
	}
	conf := clampConfidence(60 + 5*math.Min(c.lower()/body-opts.ShadowRatio, 3))
	switch priorTrend(candles, n-1, opts.TrendLookback) {
	case biasBullish:
		return match{pattern: "Hanging Man", bias: biasBearish, confidence: clampConfidence(conf + 10), size: 1}, true
	case biasBearish:
		return match{pattern: "Hammer", bias: biasBullish, confidence: clampConfidence(conf + 10), size: 1}, true
	default:
		return match{pattern: "Hammer", bias: biasBullish, confidence: conf, size: 1}, true
	}
}

func detectShootingStar(candles []Candle, opts Options) (match, bool) {
	n := len(candles)
	c := candles[n-1]
	body := c.body()
	if body == 0 || c.upper() < opts.ShadowRatio*body || c.lower() > 0.5*body {
		return match{}, false
	}
	conf := clampConfidence(60 + 5*math.Min(c.upper()/body-opts.ShadowRatio, 3))
	if priorTrend(candles, n-1, opts.TrendLookback) == biasBullish {
		conf = clampConfidence(conf + 10)
	}
	return match{pattern: "Shooting Star", bias: biasBearish, confidence: conf, size: 1}, true
}

func detectDoji(candles []Candle, opts Options) (match, bool) {
	c := candles[len(candles)-1]
	if c.span() <= 0 {
		return match{}, false
	}
	ratio := c.body() / c.span()
	if ratio > opts.DojiBodyRatio {
		return match{}, false
	}
	return match{pattern: "Doji", bias: biasNeutral, confidence: clampConfidence(70 - 100*ratio), size: 1}, true
}

// priorTrend classifies the regression slope of the closes that precede
// index end, normalized by their mean.
func priorTrend(candles []Candle, end, lookback int) bias {
	start := end - lookback
	if start < 0 {
		return biasNeutral
	}
	closes := make([]float64, 0, lookback)
	var sum float64
	for _, c := range candles[start:end] {
		closes = append(closes, c.Close)
		sum += c.Close
	}
	mean := sum / float64(len(closes))
	if mean == 0 {
		return biasNeutral
	}
	slope, _ := fitLine(closes)
	rel := slope / mean
	const threshold = 0.001
	switch {
	case rel > threshold:
		return biasBullish
	case rel < -threshold:
		return biasBearish
	default:
		return biasNeutral
	}
}

func fitLine(series []float64) (slope, intercept float64) {
	if len(series) == 0 {
		return 0, 0
	}
	var sumX, sumY, sumXY, sumXX float64
	n := float64(len(series))
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, series[len(series)-1]
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return
}

func clampConfidence(v float64) float64 {
	v = math.Round(v)
	return math.Max(0, math.Min(95, v))
}

// latestATR returns the last ATR value, or 0 when there is not enough history.
func latestATR(candles []Candle, period int) float64 {
	if len(candles) <= period {
		return 0
	}
	highs := make([]float64, len(candles))
	lows := make([]float64, len(candles))
	closes := make([]float64, len(candles))
	for i, c := range candles {
		highs[i], lows[i], closes[i] = c.High, c.Low, c.Close
	}
	atr := talib.Atr(highs, lows, closes, period)
	if len(atr) == 0 {
		return 0
	}
	last := atr[len(atr)-1]
	if math.IsNaN(last) || last < 0 {
		return 0
	}
	return last
}

func buildResult(candles []Candle, m match, opts Options) (Result, bool) {
	window := candles[len(candles)-m.size:]
	low, high := window[0].Low, window[0].High
	for _, c := range window[1:] {
		low = math.Min(low, c.Low)
		high = math.Max(high, c.High)
	}
	entry := decimal.NewFromFloat(candles[len(candles)-1].Close)
	pad := decimal.NewFromFloat(latestATR(candles, opts.ATRPeriod) * opts.ATRPadding)
	reward := decimal.NewFromInt(opts.RewardMultiple)

	var stop, take decimal.Decimal
	signal := "WAIT"
	switch m.bias {
	case biasBearish:
		signal = "SELL"
		stop = decimal.NewFromFloat(high).Add(pad)
		take = entry.Sub(stop.Sub(entry).Mul(reward))
	case biasBullish:
		signal = "BUY"
		stop = decimal.NewFromFloat(low).Sub(pad)
		take = entry.Add(entry.Sub(stop).Mul(reward))
	default:
		// a close sitting on the low leaves no room below; use the high instead
		stop = decimal.NewFromFloat(low).Sub(pad)
		take = entry.Add(entry.Sub(stop).Mul(reward))
		if entry.Equal(stop) {
			stop = decimal.NewFromFloat(high).Add(pad)
			take = entry.Sub(stop.Sub(entry).Mul(reward))
		}
	}
	if entry.Sub(stop).IsZero() || !take.IsPositive() {
		return Result{}, false
	}
	return Result{
		Pattern:    m.pattern,
		Confidence: m.confidence,
		Signal:     Value(signal),
		StopLoss:   Value(stop.Round(opts.Precision).StringFixed(opts.Precision)),
		TakeProfit: Value(take.Round(opts.Precision).StringFixed(opts.Precision)),
		RiskReward: Value(fmt.Sprintf("1:%d", opts.RewardMultiple)),
	}, true
}

// Package pattern derives qualitative chart observations from a candle
// window: trend direction, market structure, candlestick shapes, breakout
// proximity and momentum divergence. Like the indicator package, every
// function is a pure function of the window and degrades to a neutral
// result on short windows instead of failing.
package pattern

import (
	"mexcbot/internal/indicator"
	"mexcbot/internal/model"
)

// Trend labels.
const (
	TrendUp           = "UPTREND"
	TrendDown         = "DOWNTREND"
	TrendSideways     = "SIDEWAYS"
	TrendInsufficient = "INSUFFICIENT_DATA"
)

// Market structure labels.
const (
	StructureBullish  = "BULLISH"
	StructureBearish  = "BEARISH"
	StructureSideways = "SIDEWAYS"
)

// Candlestick flags.
const (
	CandleDoji   = "DOJI"
	CandleHammer = "HAMMER"
)

// Breakout directions.
const (
	BreakoutUp   = "UP"
	BreakoutDown = "DOWN"
)

// Divergence types.
const (
	DivergenceBullish = "BULLISH_DIVERGENCE"
	DivergenceBearish = "BEARISH_DIVERGENCE"
)

// Structure summarizes higher-high / higher-low counting over the last
// 20 candles.
type Structure struct {
	Label            string  `json:"trend_structure"`
	Score            float64 `json:"structure_score"`
	HigherHighsRatio float64 `json:"higher_highs_ratio"`
	HigherLowsRatio  float64 `json:"higher_lows_ratio"`
}

// Breakout reports proximity to the 10-candle high or low. Direction is
// empty when no breakout setup is present.
type Breakout struct {
	Direction   string  `json:"direction,omitempty"`
	Probability float64 `json:"probability,omitempty"`
}

// Divergence reports a price/RSI divergence over the last 10 candles.
// Type is empty when none is detected.
type Divergence struct {
	Type     string `json:"type,omitempty"`
	Strength string `json:"strength,omitempty"`
}

// Report bundles the per-window pattern observations.
type Report struct {
	Trend        string     `json:"trend"`
	Candlesticks []string   `json:"candlestick_patterns"`
	Breakout     Breakout   `json:"breakout_potential"`
	Divergence   Divergence `json:"divergence"`
}

// Detect runs every pattern detector over the window.
func Detect(candles []model.Candle) Report {
	return Report{
		Trend:        DetectTrend(candles),
		Candlesticks: DetectCandlesticks(candles),
		Breakout:     DetectBreakout(candles),
		Divergence:   DetectDivergence(candles),
	}
}

// DetectTrend fits a least-squares line through the last 20 closes and
// classifies the slope against a 0.1% of last close threshold.
func DetectTrend(candles []model.Candle) string {
	if len(candles) < 10 {
		return TrendInsufficient
	}
	closes := make([]float64, 0, 20)
	start := len(candles) - 20
	if start < 0 {
		start = 0
	}
	for _, c := range candles[start:] {
		closes = append(closes, c.Close)
	}
	slope := regressionSlope(closes)
	threshold := closes[len(closes)-1] * 0.001
	switch {
	case slope > threshold:
		return TrendUp
	case slope < -threshold:
		return TrendDown
	default:
		return TrendSideways
	}
}

// DetectStructure counts strictly higher highs and strictly higher lows
// over the last 20 candles. A window with no high/low movement at all is
// sideways by definition, not bearish.
func DetectStructure(candles []model.Candle) Structure {
	if len(candles) < 2 {
		return Structure{Label: StructureSideways, Score: 0.5}
	}
	start := len(candles) - 20
	if start < 0 {
		start = 0
	}
	w := candles[start:]
	n := len(w) - 1

	higherHighs, higherLows := 0, 0
	moved := false
	for i := 1; i < len(w); i++ {
		if w[i].High != w[i-1].High || w[i].Low != w[i-1].Low {
			moved = true
		}
		if w[i].High > w[i-1].High {
			higherHighs++
		}
		if w[i].Low > w[i-1].Low {
			higherLows++
		}
	}

	s := Structure{
		Score:            float64(higherHighs+higherLows) / float64(2*n),
		HigherHighsRatio: float64(higherHighs) / float64(n),
		HigherLowsRatio:  float64(higherLows) / float64(n),
	}
	switch {
	case !moved:
		s.Label = StructureSideways
	case s.Score > 0.6:
		s.Label = StructureBullish
	case s.Score < 0.4:
		s.Label = StructureBearish
	default:
		s.Label = StructureSideways
	}
	return s
}

// DetectCandlesticks flags a doji in any of the last 3 candles and a
// hammer on the latest candle.
func DetectCandlesticks(candles []model.Candle) []string {
	patterns := []string{}
	if len(candles) < 3 {
		return patterns
	}
	for _, c := range candles[len(candles)-3:] {
		rng := c.High - c.Low
		if c.Body() < rng*0.1 {
			patterns = append(patterns, CandleDoji)
			break
		}
	}
	last := candles[len(candles)-1]
	body := last.Body()
	if last.LowerWick() > body*2 && last.UpperWick() < body*0.5 {
		patterns = append(patterns, CandleHammer)
	}
	return patterns
}

// DetectBreakout checks whether the current close sits within 1% of the
// 10-candle high or low.
func DetectBreakout(candles []model.Candle) Breakout {
	if len(candles) < 20 {
		return Breakout{}
	}
	high, low := 0.0, 0.0
	for i, c := range candles[len(candles)-10:] {
		if i == 0 || c.High > high {
			high = c.High
		}
		if i == 0 || c.Low < low {
			low = c.Low
		}
	}
	// A range-less window has nothing to break out of.
	if high <= low {
		return Breakout{}
	}
	price := candles[len(candles)-1].Close
	if price <= 0 {
		return Breakout{}
	}
	if (high-price)/price < 0.01 {
		return Breakout{Direction: BreakoutUp, Probability: 0.7}
	}
	if (price-low)/price < 0.01 {
		return Breakout{Direction: BreakoutDown, Probability: 0.7}
	}
	return Breakout{}
}

// DetectDivergence compares the 10-candle price delta against the
// 10-candle RSI delta; opposite signs flag a divergence.
func DetectDivergence(candles []model.Candle) Divergence {
	if len(candles) < 30 {
		return Divergence{}
	}
	n := len(candles)
	priceDelta := candles[n-1].Close - candles[n-10].Close
	rsiDelta := indicator.RSI(candles, 14) - indicator.RSI(candles[:n-9], 14)

	switch {
	case priceDelta > 0 && rsiDelta < 0:
		return Divergence{Type: DivergenceBearish, Strength: "MODERATE"}
	case priceDelta < 0 && rsiDelta > 0:
		return Divergence{Type: DivergenceBullish, Strength: "MODERATE"}
	default:
		return Divergence{}
	}
}

// regressionSlope returns the least-squares slope of values over indices
// 0..n-1.
func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i, v := range values {
		x := float64(i)
		sumX += x
		sumY += v
		sumXY += x * v
		sumXX += x * x
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}

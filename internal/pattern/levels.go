package pattern

import (
	"sort"

	"mexcbot/internal/model"
)

// Levels holds support/resistance prices derived from local extrema in
// the window plus the nearest level on each side of the current price.
type Levels struct {
	Support           []float64 `json:"support_levels"`
	Resistance        []float64 `json:"resistance_levels"`
	NearestSupport    float64   `json:"nearest_support,omitempty"`
	NearestResistance float64   `json:"nearest_resistance,omitempty"`
	HasSupport        bool      `json:"-"`
	HasResistance     bool      `json:"-"`
}

// DistanceToSupportPct returns how far (in percent of price) the nearest
// support sits below price. Meaningless when HasSupport is false.
func (l Levels) DistanceToSupportPct(price float64) float64 {
	if !l.HasSupport || price <= 0 {
		return 0
	}
	return (price - l.NearestSupport) / price * 100
}

// DistanceToResistancePct returns how far (in percent of price) the
// nearest resistance sits above price. Meaningless when HasResistance is
// false.
func (l Levels) DistanceToResistancePct(price float64) float64 {
	if !l.HasResistance || price <= 0 {
		return 0
	}
	return (l.NearestResistance - price) / price * 100
}

// DetectLevels finds support and resistance levels from local extrema:
// a high that exceeds its two neighbors on each side is resistance, a low
// below its two neighbors on each side is support. Levels within 0.5% of
// an already accepted level are dropped (first found wins), and only the
// top 5 on each side are kept.
func DetectLevels(candles []model.Candle) Levels {
	var highs, lows []float64
	for i := 2; i < len(candles)-2; i++ {
		h := candles[i].High
		if h > candles[i-1].High && h > candles[i+1].High &&
			h > candles[i-2].High && h > candles[i+2].High {
			highs = append(highs, h)
		}
		l := candles[i].Low
		if l < candles[i-1].Low && l < candles[i+1].Low &&
			l < candles[i-2].Low && l < candles[i+2].Low {
			lows = append(lows, l)
		}
	}

	out := Levels{
		Resistance: mergeLevels(highs),
		Support:    mergeLevels(lows),
	}
	if len(candles) == 0 {
		return out
	}
	price := candles[len(candles)-1].Close
	for _, r := range out.Resistance {
		if r > price && (!out.HasResistance || r < out.NearestResistance) {
			out.NearestResistance = r
			out.HasResistance = true
		}
	}
	for _, s := range out.Support {
		if s < price && (!out.HasSupport || s > out.NearestSupport) {
			out.NearestSupport = s
			out.HasSupport = true
		}
	}
	return out
}

// mergeLevels sorts, deduplicates within 0.5% (keeping the lower level
// found first in sorted order) and returns at most the top 5.
func mergeLevels(levels []float64) []float64 {
	sort.Float64s(levels)
	merged := make([]float64, 0, len(levels))
	for _, lvl := range levels {
		tooClose := false
		for _, kept := range merged {
			diff := lvl - kept
			if diff < 0 {
				diff = -diff
			}
			if kept != 0 && diff/kept < 0.005 {
				tooClose = true
				break
			}
		}
		if !tooClose {
			merged = append(merged, lvl)
		}
	}
	if len(merged) > 5 {
		merged = merged[len(merged)-5:]
	}
	return merged
}

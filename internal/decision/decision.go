// Package decision reduces a window's indicators, levels and pattern
// observations to a single scored trading signal via additive weighted
// voting. Evaluate is a pure function; Engine wraps it with window
// analysis and a bounded decision history.
package decision

import (
	"fmt"
	"time"

	"mexcbot/internal/indicator"
	"mexcbot/internal/pattern"
)

// Actions.
const (
	ActionLong  = "LONG"
	ActionShort = "SHORT"
	ActionHold  = "HOLD"
)

// Decision is the engine's output for one analysis cycle. Immutable once
// produced.
type Decision struct {
	Action         string    `json:"action"`
	Confidence     float64   `json:"confidence"`
	BullishVotes   int       `json:"bullish_signals"`
	BearishVotes   int       `json:"bearish_signals"`
	SignalStrength int       `json:"signal_strength,omitempty"`
	Reasons        []string  `json:"reasoning"`
	Price          float64   `json:"price"`
	TS             time.Time `json:"timestamp"`
}

// Evaluate scores the derived features of one window. Each rule adds an
// integer vote to the bullish or bearish tally and appends a reason, in
// a fixed order. Evaluate is deterministic: identical inputs produce an
// identical Decision apart from the timestamp set by the caller.
func Evaluate(ind indicator.Set, levels pattern.Levels, rep pattern.Report,
	structure pattern.Structure, vol pattern.VolumeProfile, price float64) Decision {

	var bullish, bearish int
	reasons := []string{}
	bull := func(votes int, format string, args ...interface{}) {
		bullish += votes
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}
	bear := func(votes int, format string, args ...interface{}) {
		bearish += votes
		reasons = append(reasons, fmt.Sprintf(format, args...))
	}

	switch {
	case ind.RSI < 30:
		bull(2, "RSI oversold at %.1f - strong buy signal", ind.RSI)
	case ind.RSI > 70:
		bear(2, "RSI overbought at %.1f - sell signal", ind.RSI)
	case ind.RSI <= 45:
		bull(1, "RSI at %.1f - moderate bullish", ind.RSI)
	case ind.RSI >= 55:
		bear(1, "RSI at %.1f - moderate bearish", ind.RSI)
	}

	// An exactly flat histogram carries no momentum either way.
	switch {
	case ind.MACD.Histogram > 0:
		bull(1, "MACD histogram positive - bullish momentum")
	case ind.MACD.Histogram < 0:
		bear(1, "MACD histogram negative - bearish momentum")
	}

	switch {
	case price > ind.SMA20 && ind.SMA20 > ind.SMA50:
		bull(2, "price above SMA20 > SMA50 - strong uptrend")
	case price < ind.SMA20 && ind.SMA20 < ind.SMA50:
		bear(2, "price below SMA20 < SMA50 - strong downtrend")
	}

	if d := levels.DistanceToSupportPct(price); levels.HasSupport && d > 0 && d < 1 {
		bull(2, "near support level - %.2f%% away", d)
	}
	if d := levels.DistanceToResistancePct(price); levels.HasResistance && d > 0 && d < 1 {
		bear(1, "near resistance level - %.2f%% away", d)
	}

	switch structure.Label {
	case pattern.StructureBullish:
		bull(1, "market structure is bullish")
	case pattern.StructureBearish:
		bear(1, "market structure is bearish")
	}

	if vol.Trend == pattern.VolumeIncreasing {
		switch vol.Bias {
		case pattern.BiasBullish:
			bull(1, "volume supports bullish bias")
		case pattern.BiasBearish:
			bear(1, "volume supports bearish bias")
		}
	}

	switch rep.Breakout.Direction {
	case pattern.BreakoutUp:
		bull(1, "potential upward breakout detected")
	case pattern.BreakoutDown:
		bear(1, "potential downward breakout detected")
	}

	switch {
	case ind.CCI < -100:
		bull(2, "CCI oversold at %.1f - strong buy signal", ind.CCI)
	case ind.CCI > 100:
		bear(2, "CCI overbought at %.1f - strong sell signal", ind.CCI)
	}

	switch {
	case ind.ROC > 5:
		bull(1, "strong positive momentum - ROC: %.1f%%", ind.ROC)
	case ind.ROC < -5:
		bear(1, "strong negative momentum - ROC: %.1f%%", ind.ROC)
	}

	if ind.Volatility > 0.3 {
		bear(1, "high volatility detected - %.2f", ind.Volatility)
	}

	if ind.ADX > 25 {
		if price > ind.SMA20 {
			bull(1, "strong uptrend confirmed - ADX: %.1f", ind.ADX)
		} else if price < ind.SMA20 {
			bear(1, "strong downtrend confirmed - ADX: %.1f", ind.ADX)
		}
	}

	switch {
	case ind.Aroon.Oscillator > 50:
		bull(1, "aroon indicates uptrend - oscillator: %.1f", ind.Aroon.Oscillator)
	case ind.Aroon.Oscillator < -50:
		bear(1, "aroon indicates downtrend - oscillator: %.1f", ind.Aroon.Oscillator)
	}

	switch {
	case ind.MFI < 20:
		bull(2, "MFI oversold at %.1f - strong buy signal", ind.MFI)
	case ind.MFI > 80:
		bear(2, "MFI overbought at %.1f - strong sell signal", ind.MFI)
	}

	switch {
	case price > ind.VWAP*1.01:
		bull(1, "price above VWAP - bullish bias")
	case price < ind.VWAP*0.99:
		bear(1, "price below VWAP - bearish bias")
	}

	if ind.Pivots.Valid {
		switch {
		case price > ind.Pivots.R1:
			bull(1, "price above R1 resistance - bullish breakout")
		case price < ind.Pivots.S1:
			bear(1, "price below S1 support - bearish breakdown")
		}
	}

	// Retracement levels only exist when the window actually has a range.
	if ind.Fib.Valid && ind.Fib.High > ind.Fib.Low && price > 0 {
		switch {
		case abs(price-ind.Fib.Fib618)/price < 0.005:
			bull(1, "price near 61.8%% Fibonacci support")
		case abs(price-ind.Fib.Fib382)/price < 0.005:
			bull(1, "price near 38.2%% Fibonacci support")
		}
	}

	switch {
	case ind.FearGreed < 25:
		bull(2, "extreme fear detected - F&G: %.1f (contrarian buy)", ind.FearGreed)
	case ind.FearGreed > 75:
		bear(1, "extreme greed detected - F&G: %.1f (caution)", ind.FearGreed)
	}

	switch {
	case ind.BullBear.Bull > 0 && ind.BullBear.Bear > 0:
		bull(2, "both bull and bear power positive - strong bullish momentum")
	case ind.BullBear.Bull > abs(ind.BullBear.Bear):
		bull(1, "bull power dominates - bullish bias")
	case abs(ind.BullBear.Bear) > ind.BullBear.Bull:
		bear(1, "bear power dominates - bearish bias")
	}

	d := Decision{
		Action:       ActionHold,
		BullishVotes: bullish,
		BearishVotes: bearish,
		Reasons:      reasons,
		Price:        price,
	}
	total := bullish + bearish
	if total == 0 {
		return d
	}
	strength := bullish - bearish
	if strength < 0 {
		strength = -strength
	}
	d.SignalStrength = strength
	d.Confidence = float64(strength) / float64(total) * 100
	if d.Confidence > 95 {
		d.Confidence = 95
	}
	switch {
	case bullish > bearish+1:
		d.Action = ActionLong
	case bearish > bullish+1:
		d.Action = ActionShort
	}
	return d
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

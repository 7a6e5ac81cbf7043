// Package strategy is the fast trading-loop path: a reduced indicator
// set scored with fixed weights, plus a small position state machine
// that refuses to re-signal the currently held direction. The full
// decision engine runs on a slower cadence; this one is cheap enough to
// run on every window update.
package strategy

import (
	"sync"

	"mexcbot/internal/indicator"
	"mexcbot/internal/model"
)

// Signals.
const (
	SignalBuy  = "BUY"
	SignalSell = "SELL"
	SignalNone = ""
)

// Positions. PositionNone is the initial and terminal flat state.
const (
	PositionNone  = ""
	PositionLong  = "LONG"
	PositionShort = "SHORT"
)

// Vote weights per indicator family.
const (
	weightRSI       = 0.3
	weightMACD      = 0.2
	weightBollinger = 0.2
	weightMACross   = 0.3
)

// minConfidence is the floor below which no trade is recommended.
const minConfidence = 0.3

// Indicators is the reduced set used by the fast path.
type Indicators struct {
	RSI        float64 `json:"rsi"`
	MACD       float64 `json:"macd"`
	MACDSignal float64 `json:"macd_signal"`
	MACDDiff   float64 `json:"macd_diff"`
	BBUpper    float64 `json:"bb_high"`
	BBMiddle   float64 `json:"bb_mid"`
	BBLower    float64 `json:"bb_low"`
	SMA20      float64 `json:"sma_20"`
	SMA50      float64 `json:"sma_50"`
	Price      float64 `json:"current_price"`
}

// CalculateIndicators computes the reduced set over a candle window,
// falling back to the usual neutral defaults on short windows.
func CalculateIndicators(candles []model.Candle) Indicators {
	if len(candles) == 0 {
		return Indicators{RSI: 50}
	}
	line, signal, diff := indicator.MACDValues(candles, 12, 26, 9)
	bb := indicator.BollingerBands(candles, 20, 2)
	return Indicators{
		RSI:        indicator.RSI(candles, 14),
		MACD:       line,
		MACDSignal: signal,
		MACDDiff:   diff,
		BBUpper:    bb.Upper,
		BBMiddle:   bb.Middle,
		BBLower:    bb.Lower,
		SMA20:      indicator.SMA(candles, 20),
		SMA50:      indicator.SMA(candles, 50),
		Price:      candles[len(candles)-1].Close,
	}
}

// AnalyzeSignals scores the reduced set with fixed weights and returns
// the winning signal and its summed confidence. Returns SignalNone when
// neither side clears the confidence floor.
func AnalyzeSignals(ind Indicators) (string, float64) {
	var buy, sell float64

	if ind.RSI < 30 {
		buy += weightRSI
	} else if ind.RSI > 70 {
		sell += weightRSI
	}

	if ind.MACD > ind.MACDSignal {
		buy += weightMACD
	} else if ind.MACD < ind.MACDSignal {
		sell += weightMACD
	}

	if ind.Price < ind.BBLower {
		buy += weightBollinger
	} else if ind.Price > ind.BBUpper {
		sell += weightBollinger
	}

	if ind.SMA20 > ind.SMA50 {
		buy += weightMACross
	} else if ind.SMA20 < ind.SMA50 {
		sell += weightMACross
	}

	switch {
	case buy > sell && buy > minConfidence:
		return SignalBuy, buy
	case sell > buy && sell > minConfidence:
		return SignalSell, sell
	default:
		return SignalNone, 0
	}
}

// Strategy owns the position state for the fast path. Safe for
// concurrent use.
type Strategy struct {
	mu       sync.Mutex
	position string
}

func New() *Strategy {
	return &Strategy{position: PositionNone}
}

// ShouldTrade evaluates the window and reports whether a trade should
// be placed. A signal matching the currently held direction is
// suppressed so an already-open position is never re-entered.
func (s *Strategy) ShouldTrade(candles []model.Candle) (bool, string, float64) {
	signal, confidence := AnalyzeSignals(CalculateIndicators(candles))
	if signal == SignalNone {
		return false, SignalNone, 0
	}
	if confidence < minConfidence {
		return false, SignalNone, confidence
	}
	s.mu.Lock()
	held := s.position
	s.mu.Unlock()
	if (signal == SignalBuy && held == PositionLong) ||
		(signal == SignalSell && held == PositionShort) {
		return false, SignalNone, confidence
	}
	return true, signal, confidence
}

// UpdatePosition records an externally confirmed executed trade. It is
// the only way the position transitions.
func (s *Strategy) UpdatePosition(position string) {
	s.mu.Lock()
	s.position = position
	s.mu.Unlock()
}

// Position returns the currently held position.
func (s *Strategy) Position() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

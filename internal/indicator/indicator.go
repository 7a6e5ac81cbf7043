// Package indicator provides technical indicator calculations over candle windows.
//
// All indicators are pure functions of a time-ordered candle window: recomputing
// on an identical window yields identical output. An indicator that needs more
// history than the window provides returns its documented neutral default
// instead of an error, so a full Set can always be computed.
package indicator

import "mexcbot/internal/model"

// MACD holds the MACD line, its signal line, and the histogram (line - signal).
type MACD struct {
	Line      float64 `json:"line"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// Bollinger band position flags.
const (
	AboveUpper  = "ABOVE_UPPER"
	BelowLower  = "BELOW_LOWER"
	WithinBands = "WITHIN_BANDS"
)

// Bollinger holds the Bollinger band values and the close position flag.
type Bollinger struct {
	Upper    float64 `json:"upper"`
	Middle   float64 `json:"middle"`
	Lower    float64 `json:"lower"`
	Position string  `json:"position"`
}

// Aroon holds the Aroon up/down values and their oscillator (up - down).
type Aroon struct {
	Up         float64 `json:"up"`
	Down       float64 `json:"down"`
	Oscillator float64 `json:"oscillator"`
}

// PivotPoints holds classic pivot levels derived from the prior completed candle.
// Valid is false when the window is too short to compute them.
type PivotPoints struct {
	Valid bool    `json:"valid"`
	Pivot float64 `json:"pivot"`
	R1    float64 `json:"r1"`
	R2    float64 `json:"r2"`
	S1    float64 `json:"s1"`
	S2    float64 `json:"s2"`
}

// FibLevels holds Fibonacci retracement levels over the last 20 candles.
// Valid is false when the window is too short to compute them.
type FibLevels struct {
	Valid  bool    `json:"valid"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Fib236 float64 `json:"fib_23.6"`
	Fib382 float64 `json:"fib_38.2"`
	Fib500 float64 `json:"fib_50.0"`
	Fib618 float64 `json:"fib_61.8"`
	Fib786 float64 `json:"fib_78.6"`
}

// BullBear holds the Elder bull/bear power components (high/low minus EMA13).
type BullBear struct {
	Bull float64 `json:"bull_power"`
	Bear float64 `json:"bear_power"`
}

// Set is the full indicator snapshot for one candle window. It is computed
// fresh per window and replaced wholesale, never mutated in place.
type Set struct {
	SMA20 float64 `json:"sma_20"`
	SMA50 float64 `json:"sma_50"`
	EMA12 float64 `json:"ema_12"`
	EMA26 float64 `json:"ema_26"`

	RSI       float64   `json:"rsi"`
	MACD      MACD      `json:"macd"`
	Bollinger Bollinger `json:"bollinger"`
	StochK    float64   `json:"stochastic_k"`
	WilliamsR float64   `json:"williams_r"`

	CCI      float64 `json:"cci"`
	ROC      float64 `json:"roc"`
	Momentum float64 `json:"momentum"`

	ATR        float64 `json:"atr"`
	Volatility float64 `json:"volatility"`

	ADX   float64 `json:"adx"`
	Aroon Aroon   `json:"aroon"`

	OBV         float64 `json:"obv"`
	MFI         float64 `json:"mfi"`
	VWAP        float64 `json:"vwap"`
	VolumeSMA20 float64 `json:"volume_sma_20"`
	VolumeRatio float64 `json:"volume_ratio"`

	Pivots PivotPoints `json:"pivot_points"`
	Fib    FibLevels   `json:"fibonacci_levels"`

	FearGreed float64  `json:"fear_greed"`
	BullBear  BullBear `json:"bull_bear_power"`
}

// Compute derives the full indicator Set from a time-ordered candle window.
// It never fails: indicators short on history fall back to their neutral defaults.
func Compute(candles []model.Candle) Set {
	var s Set
	if len(candles) == 0 {
		s.RSI = 50
		s.StochK = 50
		s.WilliamsR = -50
		s.MFI = 50
		s.FearGreed = 50
		s.Aroon = Aroon{Up: 50, Down: 50}
		s.VolumeRatio = 1
		return s
	}

	s.SMA20 = SMA(candles, 20)
	s.SMA50 = SMA(candles, 50)
	s.EMA12 = EMA(candles, 12)
	s.EMA26 = EMA(candles, 26)

	s.RSI = RSI(candles, 14)
	line, signal, hist := MACDValues(candles, 12, 26, 9)
	s.MACD = MACD{Line: line, Signal: signal, Histogram: hist}
	s.Bollinger = BollingerBands(candles, 20, 2)
	s.StochK = StochasticK(candles, 14)
	s.WilliamsR = WilliamsR(candles, 14)

	s.CCI = CCI(candles, 20)
	s.ROC = ROC(candles, 12)
	s.Momentum = Momentum(candles, 10)

	s.ATR = ATR(candles, 14)
	s.Volatility = Volatility(candles, 20)

	s.ADX = ADX(candles, 14)
	s.Aroon = AroonUpDown(candles, 14)

	s.OBV = OBV(candles)
	s.MFI = MFI(candles, 14)
	s.VWAP = VWAP(candles)
	s.VolumeSMA20 = VolumeSMA(candles, 20)
	if s.VolumeSMA20 > 0 {
		s.VolumeRatio = candles[len(candles)-1].Volume / s.VolumeSMA20
	} else {
		s.VolumeRatio = 1
	}

	s.Pivots = PivotLevels(candles)
	s.Fib = FibonacciLevels(candles)

	s.FearGreed = FearGreed(candles)
	s.BullBear = BullBearPower(candles)

	return s
}

func closes(candles []model.Candle) []float64 {
	out := make([]float64, len(candles))
	for i := range candles {
		out[i] = candles[i].Close
	}
	return out
}

func lastClose(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	return candles[len(candles)-1].Close
}

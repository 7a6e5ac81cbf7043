package indicator

import (
	"math"

	"mexcbot/internal/model"
)

// RSI returns the Relative Strength Index using Wilder's smoothing: the first
// average gain/loss is seeded from the first period deltas, then smoothed with
// (prev*(period-1) + delta) / period. Neutral default 50 when the window holds
// fewer than period+1 candles, or when the window produced no gains or losses.
func RSI(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 50
	}
	cs := closes(candles)

	var gain, loss float64
	for i := 1; i <= period; i++ {
		d := cs[i] - cs[i-1]
		if d > 0 {
			gain += d
		} else {
			loss -= d
		}
	}
	p := float64(period)
	avgGain := gain / p
	avgLoss := loss / p

	for i := period + 1; i < len(cs); i++ {
		d := cs[i] - cs[i-1]
		g, l := 0.0, 0.0
		if d > 0 {
			g = d
		} else {
			l = -d
		}
		avgGain = (avgGain*(p-1) + g) / p
		avgLoss = (avgLoss*(p-1) + l) / p
	}

	if avgGain == 0 && avgLoss == 0 {
		return 50
	}
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// StochasticK returns the %K stochastic oscillator over the last period
// candles. Neutral default 50, also used when the range collapses to zero.
func StochasticK(candles []model.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 50
	}
	hh, ll := highLow(candles[len(candles)-period:])
	if hh == ll {
		return 50
	}
	return 100 * (lastClose(candles) - ll) / (hh - ll)
}

// WilliamsR returns Williams %R over the last period candles, in [-100, 0].
// Neutral default -50, also used when the range collapses to zero.
func WilliamsR(candles []model.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return -50
	}
	hh, ll := highLow(candles[len(candles)-period:])
	if hh == ll {
		return -50
	}
	return -100 * (hh - lastClose(candles)) / (hh - ll)
}

// CCI returns the Commodity Channel Index over the last period candles:
// (tp - sma(tp)) / (0.015 * meanAbsDeviation(tp)). Neutral default 0, also
// used when the deviation is zero.
func CCI(candles []model.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return 0
	}
	window := candles[len(candles)-period:]
	tps := make([]float64, period)
	sum := 0.0
	for i := range window {
		tps[i] = window[i].TypicalPrice()
		sum += tps[i]
	}
	mean := sum / float64(period)

	mad := 0.0
	for _, tp := range tps {
		mad += math.Abs(tp - mean)
	}
	mad /= float64(period)
	if mad == 0 {
		return 0
	}
	return (tps[period-1] - mean) / (0.015 * mad)
}

// ROC returns the rate of change in percent versus the close period candles
// back. Neutral default 0.
func ROC(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 0
	}
	cur := lastClose(candles)
	ref := candles[len(candles)-1-period].Close
	if ref == 0 {
		return 0
	}
	return (cur - ref) / ref * 100
}

// Momentum returns the absolute close change versus period candles back.
// Neutral default 0.
func Momentum(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 0
	}
	return lastClose(candles) - candles[len(candles)-1-period].Close
}

// MFI returns the Money Flow Index over the last period typical-price moves.
// A zero negative-flow sum is substituted with 1 to avoid division by zero;
// when the window produced no money flow in either direction the neutral
// default 50 is returned, as for windows shorter than period+1.
func MFI(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 50
	}
	var positive, negative float64
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		tp := candles[i].TypicalPrice()
		prev := candles[i-1].TypicalPrice()
		flow := tp * candles[i].Volume
		if tp > prev {
			positive += flow
		} else if tp < prev {
			negative += flow
		}
	}
	if positive == 0 && negative == 0 {
		return 50
	}
	if negative == 0 {
		negative = 1
	}
	return 100 - 100/(1+positive/negative)
}

func highLow(candles []model.Candle) (high, low float64) {
	high = candles[0].High
	low = candles[0].Low
	for _, c := range candles[1:] {
		if c.High > high {
			high = c.High
		}
		if c.Low < low {
			low = c.Low
		}
	}
	return high, low
}

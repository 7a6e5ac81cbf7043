package indicator

import (
	"math"

	"mexcbot/internal/model"
)

// MACDValues returns the MACD line (EMA fast - EMA slow), its signalPeriod
// EMA signal line, and the histogram. All three default to 0 when the window
// holds fewer than slow+signalPeriod candles.
func MACDValues(candles []model.Candle, fast, slow, signalPeriod int) (line, signal, histogram float64) {
	if len(candles) < slow+signalPeriod {
		return 0, 0, 0
	}
	cs := closes(candles)
	fastSeries := emaSeries(cs, fast)
	slowSeries := emaSeries(cs, slow)

	// MACD line is defined from the slow seed onward.
	macd := make([]float64, 0, len(cs)-slow+1)
	for i := slow - 1; i < len(cs); i++ {
		macd = append(macd, fastSeries[i]-slowSeries[i])
	}
	signalSeries := emaSeries(macd, signalPeriod)

	line = macd[len(macd)-1]
	signal = signalSeries[len(signalSeries)-1]
	return line, signal, line - signal
}

// ADX returns the Average Directional Index based on directional movement
// over ATR. Neutral default 0 when the window holds fewer than 2*period+1
// candles or the ATR is zero. The result is clamped to [0, 100].
func ADX(candles []model.Candle, period int) float64 {
	if len(candles) < 2*period+1 || period <= 0 {
		return 0
	}
	atr := ATR(candles, period)
	if atr == 0 {
		return 0
	}

	n := len(candles)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := candles[i].High - candles[i-1].High
		down := candles[i-1].Low - candles[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}

	// DX over the last period positions, each DI from a period-mean of DM.
	dxSum := 0.0
	for i := n - period; i < n; i++ {
		var pSum, mSum float64
		for j := i - period + 1; j <= i; j++ {
			pSum += plusDM[j]
			mSum += minusDM[j]
		}
		plusDI := 100 * (pSum / float64(period)) / atr
		minusDI := 100 * (mSum / float64(period)) / atr
		if plusDI+minusDI == 0 {
			continue
		}
		dxSum += 100 * math.Abs(plusDI-minusDI) / (plusDI + minusDI)
	}
	adx := dxSum / float64(period)
	if adx > 100 {
		adx = 100
	}
	return adx
}

// AroonUpDown returns the Aroon up/down values over the last period+1 candles
// and their oscillator. Ties resolve to the earliest occurrence. Neutral
// default is up=50, down=50, oscillator=0.
func AroonUpDown(candles []model.Candle, period int) Aroon {
	if len(candles) < period+1 || period <= 0 {
		return Aroon{Up: 50, Down: 50}
	}
	window := candles[len(candles)-period-1:]

	highIdx, lowIdx := 0, 0
	for i := 1; i < len(window); i++ {
		if window[i].High > window[highIdx].High {
			highIdx = i
		}
		if window[i].Low < window[lowIdx].Low {
			lowIdx = i
		}
	}
	sinceHigh := len(window) - 1 - highIdx
	sinceLow := len(window) - 1 - lowIdx

	a := Aroon{
		Up:   float64(period-sinceHigh) / float64(period) * 100,
		Down: float64(period-sinceLow) / float64(period) * 100,
	}
	a.Oscillator = a.Up - a.Down
	return a
}

package indicator

import "mexcbot/internal/model"

// FearGreed returns a composite sentiment score in [0, 100]: an equal-weighted
// blend of 10-period price momentum, 10-period return volatility (inverted),
// 20-period volume ratio, and RSI(14), each clamped to [0, 100].
// Neutral default 50 with fewer than 20 candles.
func FearGreed(candles []model.Candle) float64 {
	if len(candles) < 20 {
		return 50
	}
	n := len(candles)

	ref := candles[n-10].Close
	momentumScore := 50.0
	if ref != 0 {
		change := (candles[n-1].Close - ref) / ref
		momentumScore = clamp(change*100+50, 0, 100)
	}

	returns := make([]float64, 0, 10)
	for i := n - 10; i < n; i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (candles[i].Close-prev)/prev)
	}
	volatilityScore := clamp(100-stddev(returns)*1000, 0, 100)

	avgVolume := VolumeSMA(candles, 20)
	volumeScore := 50.0
	if avgVolume > 0 {
		volumeScore = clamp(candles[n-1].Volume/avgVolume*50, 0, 100)
	}

	rsiScore := RSI(candles, 14)

	return (momentumScore + volatilityScore + volumeScore + rsiScore) / 4
}

// BullBearPower returns the Elder ray components: high minus EMA13 (bull
// power) and low minus EMA13 (bear power). Both default to 0 with fewer
// than 13 candles.
func BullBearPower(candles []model.Candle) BullBear {
	const period = 13
	if len(candles) < period {
		return BullBear{}
	}
	series := emaSeries(closes(candles), period)
	ema := series[len(series)-1]
	last := candles[len(candles)-1]
	return BullBear{
		Bull: last.High - ema,
		Bear: last.Low - ema,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package indicator

import "mexcbot/internal/model"

// SMA returns the simple moving average of the last period closes.
// With fewer than period candles it returns the last close.
func SMA(candles []model.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return lastClose(candles)
	}
	sum := 0.0
	for _, c := range candles[len(candles)-period:] {
		sum += c.Close
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average of the closes, seeded with the
// SMA of the first period values. With fewer than period candles it returns
// the last close.
func EMA(candles []model.Candle, period int) float64 {
	if len(candles) < period || period <= 0 {
		return lastClose(candles)
	}
	series := emaSeries(closes(candles), period)
	return series[len(series)-1]
}

// VolumeSMA returns the simple moving average of the last period volumes,
// or the average of all volumes when the window is shorter than period.
func VolumeSMA(candles []model.Candle, period int) float64 {
	if len(candles) == 0 {
		return 0
	}
	n := period
	if len(candles) < n {
		n = len(candles)
	}
	sum := 0.0
	for _, c := range candles[len(candles)-n:] {
		sum += c.Volume
	}
	return sum / float64(n)
}

// emaSeries computes an EMA over values with an SMA seed at index period-1.
// Entries before the seed are zero and must not be read.
// Callers must ensure len(values) >= period.
func emaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	mult := 2.0 / float64(period+1)

	seed := 0.0
	for _, v := range values[:period] {
		seed += v
	}
	out[period-1] = seed / float64(period)

	for i := period; i < len(values); i++ {
		out[i] = values[i]*mult + out[i-1]*(1-mult)
	}
	return out
}

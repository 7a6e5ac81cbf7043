package indicator

import "mexcbot/internal/model"

// PivotLevels returns classic pivot points (pivot, R1/R2, S1/S2) computed
// from the prior completed candle. Valid is false with fewer than 2 candles.
func PivotLevels(candles []model.Candle) PivotPoints {
	if len(candles) < 2 {
		return PivotPoints{}
	}
	prev := candles[len(candles)-2]
	pivot := (prev.High + prev.Low + prev.Close) / 3
	return PivotPoints{
		Valid: true,
		Pivot: pivot,
		R1:    2*pivot - prev.Low,
		R2:    pivot + (prev.High - prev.Low),
		S1:    2*pivot - prev.High,
		S2:    pivot - (prev.High - prev.Low),
	}
}

// FibonacciLevels returns retracement levels (23.6/38.2/50/61.8/78.6%)
// measured down from the high of the last 20 candles. Valid is false with
// fewer than 20 candles.
func FibonacciLevels(candles []model.Candle) FibLevels {
	const span = 20
	if len(candles) < span {
		return FibLevels{}
	}
	high, low := highLow(candles[len(candles)-span:])
	diff := high - low
	return FibLevels{
		Valid:  true,
		High:   high,
		Low:    low,
		Fib236: high - 0.236*diff,
		Fib382: high - 0.382*diff,
		Fib500: high - 0.500*diff,
		Fib618: high - 0.618*diff,
		Fib786: high - 0.786*diff,
	}
}

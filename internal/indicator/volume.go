package indicator

import "mexcbot/internal/model"

// OBV returns the on-balance volume accumulated from the first candle of the
// window: volume is added on up-closes and subtracted on down-closes.
func OBV(candles []model.Candle) float64 {
	obv := 0.0
	for i := 1; i < len(candles); i++ {
		switch {
		case candles[i].Close > candles[i-1].Close:
			obv += candles[i].Volume
		case candles[i].Close < candles[i-1].Close:
			obv -= candles[i].Volume
		}
	}
	return obv
}

// VWAP returns the volume-weighted average price over the whole window
// (cumulative typical-price·volume over cumulative volume). With zero total
// volume it returns the last close.
func VWAP(candles []model.Candle) float64 {
	var pv, vol float64
	for i := range candles {
		pv += candles[i].TypicalPrice() * candles[i].Volume
		vol += candles[i].Volume
	}
	if vol == 0 {
		return lastClose(candles)
	}
	return pv / vol
}

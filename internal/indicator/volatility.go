package indicator

import (
	"math"

	"mexcbot/internal/model"
)

// ATR returns the average true range over the last period candles, where the
// true range uses the previous close: max(h-l, |h-pc|, |l-pc|).
// Neutral default 0 when the window holds fewer than period+1 candles.
func ATR(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 0
	}
	sum := 0.0
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		sum += trueRange(&candles[i], candles[i-1].Close)
	}
	return sum / float64(period)
}

// Volatility returns the annualized standard deviation of close-to-close
// returns over the last period returns (stdev * sqrt(252)).
// Neutral default 0 when the window holds fewer than period+1 candles.
func Volatility(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 || period <= 0 {
		return 0
	}
	returns := make([]float64, 0, period)
	start := len(candles) - period
	for i := start; i < len(candles); i++ {
		prev := candles[i-1].Close
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (candles[i].Close-prev)/prev)
	}
	return stddev(returns) * math.Sqrt(252)
}

// BollingerBands returns the period-SMA middle band with upper/lower bands at
// mult standard deviations, plus the close position flag. With fewer than
// period candles the bands default to close±2% around the close.
func BollingerBands(candles []model.Candle, period int, mult float64) Bollinger {
	close_ := lastClose(candles)
	if len(candles) < period || period <= 0 {
		return Bollinger{
			Upper:    close_ * 1.02,
			Middle:   close_,
			Lower:    close_ * 0.98,
			Position: WithinBands,
		}
	}
	window := closes(candles[len(candles)-period:])
	sum := 0.0
	for _, v := range window {
		sum += v
	}
	mid := sum / float64(period)
	sd := stddev(window)

	b := Bollinger{
		Upper:  mid + mult*sd,
		Middle: mid,
		Lower:  mid - mult*sd,
	}
	switch {
	case close_ > b.Upper:
		b.Position = AboveUpper
	case close_ < b.Lower:
		b.Position = BelowLower
	default:
		b.Position = WithinBands
	}
	return b
}

func trueRange(c *model.Candle, prevClose float64) float64 {
	tr := c.High - c.Low
	if hc := math.Abs(c.High - prevClose); hc > tr {
		tr = hc
	}
	if lc := math.Abs(c.Low - prevClose); lc > tr {
		tr = lc
	}
	return tr
}

// stddev returns the sample standard deviation (n-1 denominator).
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	ss := 0.0
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(values)-1))
}

package pattern

import "mexcbot/internal/model"

// Volume trend and bias labels.
const (
	VolumeIncreasing = "INCREASING"
	VolumeDecreasing = "DECREASING"
	BiasBullish      = "BULLISH"
	BiasBearish      = "BEARISH"
)

// VolumeProfile summarizes recent volume behavior: whether the 10-period
// volume average is rising, and whether volume concentrated on up-candles
// or down-candles over the last 10 periods.
type VolumeProfile struct {
	Trend   string  `json:"volume_trend"`
	Bias    string  `json:"volume_bias"`
	Avg10   float64 `json:"avg_volume_10"`
	Current float64 `json:"current_volume"`
	Ratio   float64 `json:"volume_ratio"`
}

// AnalyzeVolume compares the latest 10-period volume average against the
// average from five periods earlier, and tallies volume on positive vs
// negative return candles.
func AnalyzeVolume(candles []model.Candle) VolumeProfile {
	n := len(candles)
	if n < 14 {
		return VolumeProfile{Trend: VolumeDecreasing, Bias: BiasBearish}
	}

	recent := volumeMean(candles[n-10:])
	earlier := volumeMean(candles[n-14 : n-4])
	trend := VolumeDecreasing
	if recent > earlier {
		trend = VolumeIncreasing
	}

	var positive, negative float64
	for i := n - 10; i < n; i++ {
		change := candles[i].Close - candles[i-1].Close
		switch {
		case change > 0:
			positive += candles[i].Volume
		case change < 0:
			negative += candles[i].Volume
		}
	}
	bias := BiasBearish
	if positive > negative {
		bias = BiasBullish
	}

	avg20 := recent
	if n >= 20 {
		avg20 = volumeMean(candles[n-20:])
	}
	current := candles[n-1].Volume
	ratio := 0.0
	if avg20 > 0 {
		ratio = current / avg20
	}
	return VolumeProfile{
		Trend:   trend,
		Bias:    bias,
		Avg10:   recent,
		Current: current,
		Ratio:   ratio,
	}
}

func volumeMean(candles []model.Candle) float64 {
	if len(candles) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candles {
		sum += c.Volume
	}
	return sum / float64(len(candles))
}

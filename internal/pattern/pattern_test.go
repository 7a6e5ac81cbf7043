package pattern

import (
	"testing"
	"time"

	"mexcbot/internal/model"
)

func makeCandle(i int, open, high, low, close_, vol float64) model.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.Candle{
		Symbol:    "BTCUSDT",
		Interval:  "1m",
		OpenTime:  base.Add(time.Duration(i) * time.Minute),
		CloseTime: base.Add(time.Duration(i+1) * time.Minute),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close_,
		Volume:    vol,
	}
}

func flatWindow(n int, price, vol float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = makeCandle(i, price, price, price, price, vol)
	}
	return out
}

func risingWindow(n int, start, stepPct, vol float64) []model.Candle {
	out := make([]model.Candle, n)
	price := start
	for i := range out {
		next := price * (1 + stepPct)
		out[i] = makeCandle(i, price, next, price, next, vol)
		price = next
	}
	return out
}

func fallingWindow(n int, start, stepPct, vol float64) []model.Candle {
	out := make([]model.Candle, n)
	price := start
	for i := range out {
		next := price * (1 - stepPct)
		out[i] = makeCandle(i, price, price, next, next, vol)
		price = next
	}
	return out
}

func TestDetectTrend(t *testing.T) {
	if got := DetectTrend(flatWindow(5, 100, 1)); got != TrendInsufficient {
		t.Errorf("trend on 5 candles = %q, want %q", got, TrendInsufficient)
	}
	if got := DetectTrend(flatWindow(30, 100, 1)); got != TrendSideways {
		t.Errorf("trend on flat window = %q, want %q", got, TrendSideways)
	}
	if got := DetectTrend(risingWindow(30, 100, 0.005, 1)); got != TrendUp {
		t.Errorf("trend on rising window = %q, want %q", got, TrendUp)
	}
	if got := DetectTrend(fallingWindow(30, 100, 0.005, 1)); got != TrendDown {
		t.Errorf("trend on falling window = %q, want %q", got, TrendDown)
	}
}

func TestDetectStructure(t *testing.T) {
	s := DetectStructure(risingWindow(30, 100, 0.005, 1))
	if s.Label != StructureBullish {
		t.Errorf("structure on rising window = %q (score %v), want %q", s.Label, s.Score, StructureBullish)
	}
	if s.Score <= 0.6 {
		t.Errorf("structure score on rising window = %v, want > 0.6", s.Score)
	}

	s = DetectStructure(fallingWindow(30, 100, 0.005, 1))
	if s.Label != StructureBearish {
		t.Errorf("structure on falling window = %q (score %v), want %q", s.Label, s.Score, StructureBearish)
	}

	// No high/low movement at all must read as sideways, not bearish.
	s = DetectStructure(flatWindow(30, 100, 1))
	if s.Label != StructureSideways {
		t.Errorf("structure on flat window = %q, want %q", s.Label, StructureSideways)
	}
}

func TestDetectCandlesticks_Doji(t *testing.T) {
	candles := flatWindow(10, 100, 1)
	last := &candles[9]
	last.Open = 100
	last.High = 105
	last.Low = 95
	last.Close = 100.2 // body 0.2 < 10% of range 10
	got := DetectCandlesticks(candles)
	if !contains(got, CandleDoji) {
		t.Errorf("patterns = %v, want DOJI", got)
	}
}

func TestDetectCandlesticks_Hammer(t *testing.T) {
	candles := flatWindow(10, 100, 1)
	last := &candles[9]
	last.Open = 100
	last.Close = 101
	last.High = 101.2 // upper wick 0.2 < 0.5*body
	last.Low = 97     // lower wick 3 > 2*body
	got := DetectCandlesticks(candles)
	if !contains(got, CandleHammer) {
		t.Errorf("patterns = %v, want HAMMER", got)
	}
}

func TestDetectCandlesticks_ShortWindow(t *testing.T) {
	if got := DetectCandlesticks(flatWindow(2, 100, 1)); len(got) != 0 {
		t.Errorf("patterns on 2-candle window = %v, want none", got)
	}
}

func TestDetectBreakout(t *testing.T) {
	up := risingWindow(30, 100, 0.005, 1)
	b := DetectBreakout(up)
	if b.Direction != BreakoutUp || b.Probability != 0.7 {
		t.Errorf("breakout on rising window = %+v, want UP/0.7", b)
	}

	down := fallingWindow(30, 100, 0.005, 1)
	b = DetectBreakout(down)
	if b.Direction != BreakoutDown || b.Probability != 0.7 {
		t.Errorf("breakout on falling window = %+v, want DOWN/0.7", b)
	}

	// Flat window has zero range: no breakout either way.
	if b := DetectBreakout(flatWindow(30, 100, 1)); b.Direction != "" {
		t.Errorf("breakout on flat window = %+v, want none", b)
	}
	if b := DetectBreakout(risingWindow(10, 100, 0.005, 1)); b.Direction != "" {
		t.Errorf("breakout on 10-candle window = %+v, want none", b)
	}
}

func TestDetectDivergence(t *testing.T) {
	if d := DetectDivergence(flatWindow(20, 100, 1)); d.Type != "" {
		t.Errorf("divergence on short window = %+v, want none", d)
	}
	if d := DetectDivergence(flatWindow(40, 100, 1)); d.Type != "" {
		t.Errorf("divergence on flat window = %+v, want none", d)
	}

	// Steady selloff followed by a choppy tail that still drifts down:
	// price keeps falling over the last 10 candles while RSI climbs off
	// its floor because the tail contains gains.
	candles := fallingWindow(31, 100, 0.01, 1)
	price := candles[30].Close
	for i := 31; i < 40; i++ {
		var c model.Candle
		if i%2 == 0 {
			next := price * 1.003
			c = makeCandle(i, price, next, price, next, 1)
		} else {
			next := price * 0.996
			c = makeCandle(i, price, price, next, next, 1)
		}
		price = c.Close
		candles = append(candles, c)
	}
	d := DetectDivergence(candles)
	if d.Type != DivergenceBullish {
		t.Errorf("divergence = %+v, want %q", d, DivergenceBullish)
	}
	if d.Strength != "MODERATE" {
		t.Errorf("divergence strength = %q, want MODERATE", d.Strength)
	}
}

func TestAnalyzeVolume(t *testing.T) {
	v := AnalyzeVolume(flatWindow(5, 100, 10))
	if v.Trend != VolumeDecreasing {
		t.Errorf("volume trend on short window = %q, want %q", v.Trend, VolumeDecreasing)
	}

	// Rising closes with growing volume.
	candles := risingWindow(30, 100, 0.005, 10)
	for i := range candles {
		candles[i].Volume = 10 + float64(i)
	}
	v = AnalyzeVolume(candles)
	if v.Trend != VolumeIncreasing {
		t.Errorf("volume trend = %q, want %q", v.Trend, VolumeIncreasing)
	}
	if v.Bias != BiasBullish {
		t.Errorf("volume bias on rising closes = %q, want %q", v.Bias, BiasBullish)
	}
	if v.Ratio <= 1 {
		t.Errorf("volume ratio = %v, want > 1 for growing volume", v.Ratio)
	}

	v = AnalyzeVolume(fallingWindow(30, 100, 0.005, 10))
	if v.Bias != BiasBearish {
		t.Errorf("volume bias on falling closes = %q, want %q", v.Bias, BiasBearish)
	}
}

func TestDetectLevels(t *testing.T) {
	// Flat backdrop with one clear local high and one clear local low.
	candles := flatWindow(30, 100, 1)
	candles[10].High = 110
	candles[20].Low = 90

	l := DetectLevels(candles)
	if !l.HasResistance || l.NearestResistance != 110 {
		t.Errorf("nearest resistance = %v (has=%v), want 110", l.NearestResistance, l.HasResistance)
	}
	if !l.HasSupport || l.NearestSupport != 90 {
		t.Errorf("nearest support = %v (has=%v), want 90", l.NearestSupport, l.HasSupport)
	}
	if got := l.DistanceToResistancePct(100); got != 10 {
		t.Errorf("distance to resistance = %v, want 10", got)
	}
	if got := l.DistanceToSupportPct(100); got != 10 {
		t.Errorf("distance to support = %v, want 10", got)
	}
}

func TestDetectLevels_MergesCloseLevels(t *testing.T) {
	candles := flatWindow(40, 100, 1)
	candles[10].High = 110
	candles[20].High = 110.2 // within 0.5% of 110
	candles[30].High = 120

	l := DetectLevels(candles)
	if len(l.Resistance) != 2 {
		t.Fatalf("resistance levels = %v, want 2 after 0.5%% merge", l.Resistance)
	}
	if l.Resistance[0] != 110 || l.Resistance[1] != 120 {
		t.Errorf("resistance levels = %v, want [110 120]", l.Resistance)
	}
}

func TestDetectLevels_CapsAtFive(t *testing.T) {
	candles := flatWindow(80, 100, 1)
	for i := 0; i < 8; i++ {
		candles[5+i*9].High = 110 + float64(i)*5
	}
	l := DetectLevels(candles)
	if len(l.Resistance) != 5 {
		t.Errorf("resistance count = %d (%v), want 5", len(l.Resistance), l.Resistance)
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}

package indicator

import (
	"math"
	"testing"
	"time"

	"mexcbot/internal/model"
)

// makeCandle creates a test candle at minute i with the given OHLCV.
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

// flatWindow creates n identical candles (open=high=low=close).
func flatWindow(n int, price, vol float64) []model.Candle {
	out := make([]model.Candle, n)
	for i := range out {
		out[i] = makeCandle(i, price, price, price, price, vol)
	}
	return out
}

// risingWindow creates n candles whose closes rise by stepPct per candle.
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

func almostEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func TestSMA_KnownValue(t *testing.T) {
	candles := make([]model.Candle, 25)
	for i := range candles {
		p := float64(i + 1)
		candles[i] = makeCandle(i, p, p, p, p, 100)
	}
	// Last 20 closes are 6..25, mean = 15.5
	if got := SMA(candles, 20); !almostEqual(got, 15.5, 1e-9) {
		t.Errorf("SMA(20) = %v, want 15.5", got)
	}
}

func TestSMA_InsufficientReturnsLastClose(t *testing.T) {
	candles := flatWindow(5, 123.0, 10)
	if got := SMA(candles, 20); got != 123.0 {
		t.Errorf("SMA(20) on 5 candles = %v, want last close 123", got)
	}
	if got := EMA(candles, 12); got != 123.0 {
		t.Errorf("EMA(12) on 5 candles = %v, want last close 123", got)
	}
}

func TestRSI_NeutralDefaults(t *testing.T) {
	if got := RSI(flatWindow(10, 100, 1), 14); got != 50 {
		t.Errorf("RSI on 10-candle window = %v, want 50", got)
	}
	// Flat window: no gains, no losses
	if got := RSI(flatWindow(30, 100, 1), 14); got != 50 {
		t.Errorf("RSI on flat window = %v, want 50", got)
	}
}

func TestRSI_AllGainsIs100(t *testing.T) {
	if got := RSI(risingWindow(30, 100, 0.005, 1), 14); got != 100 {
		t.Errorf("RSI on strictly rising window = %v, want 100", got)
	}
}

func TestRSI_Bounds(t *testing.T) {
	mixed := flatWindow(40, 100, 1)
	for i := range mixed {
		p := 100 + 3*math.Sin(float64(i))
		mixed[i].Open = p
		mixed[i].High = p + 1
		mixed[i].Low = p - 1
		mixed[i].Close = p
	}
	got := RSI(mixed, 14)
	if got < 0 || got > 100 {
		t.Errorf("RSI = %v, out of [0,100]", got)
	}
}

func TestMACD_InsufficientReturnsZeros(t *testing.T) {
	line, signal, hist := MACDValues(flatWindow(10, 100, 1), 12, 26, 9)
	if line != 0 || signal != 0 || hist != 0 {
		t.Errorf("MACD on 10-candle window = %v/%v/%v, want 0/0/0", line, signal, hist)
	}
}

func TestMACD_FlatWindowHistogramZero(t *testing.T) {
	_, _, hist := MACDValues(flatWindow(60, 100, 1), 12, 26, 9)
	if !almostEqual(hist, 0, 1e-9) {
		t.Errorf("MACD histogram on flat window = %v, want 0", hist)
	}
}

func TestBollinger_Defaults(t *testing.T) {
	b := BollingerBands(flatWindow(5, 100, 1), 20, 2)
	if !almostEqual(b.Upper, 102, 1e-9) || !almostEqual(b.Middle, 100, 1e-9) || !almostEqual(b.Lower, 98, 1e-9) {
		t.Errorf("default bands = %+v, want 102/100/98", b)
	}
	if b.Position != WithinBands {
		t.Errorf("default position = %q, want %q", b.Position, WithinBands)
	}
}

func TestBollinger_FlatWindow(t *testing.T) {
	b := BollingerBands(flatWindow(30, 100, 1), 20, 2)
	if !almostEqual(b.Upper, 100, 1e-9) || !almostEqual(b.Lower, 100, 1e-9) {
		t.Errorf("flat bands = %+v, want all at 100", b)
	}
	if b.Position != WithinBands {
		t.Errorf("flat position = %q, want %q", b.Position, WithinBands)
	}
}

func TestStochasticAndWilliams_Bounds(t *testing.T) {
	windows := [][]model.Candle{
		flatWindow(20, 100, 1),
		risingWindow(20, 100, 0.01, 1),
		flatWindow(5, 100, 1), // insufficient
	}
	for i, w := range windows {
		k := StochasticK(w, 14)
		if k < 0 || k > 100 {
			t.Errorf("window %d: %%K = %v, out of [0,100]", i, k)
		}
		r := WilliamsR(w, 14)
		if r < -100 || r > 0 {
			t.Errorf("window %d: Williams %%R = %v, out of [-100,0]", i, r)
		}
	}
}

func TestStochasticK_AtHigh(t *testing.T) {
	// Close sits at the window high: %K must be 100.
	if got := StochasticK(risingWindow(20, 100, 0.01, 1), 14); !almostEqual(got, 100, 1e-9) {
		t.Errorf("%%K at window high = %v, want 100", got)
	}
}

func TestROC_KnownValue(t *testing.T) {
	candles := flatWindow(13, 100, 1)
	last := &candles[12]
	last.Close = 110
	last.High = 110
	if got := ROC(candles, 12); !almostEqual(got, 10, 1e-9) {
		t.Errorf("ROC(12) = %v, want 10", got)
	}
	if got := ROC(candles[:5], 12); got != 0 {
		t.Errorf("ROC on short window = %v, want 0", got)
	}
}

func TestMomentum_KnownValue(t *testing.T) {
	candles := make([]model.Candle, 20)
	for i := range candles {
		p := float64(i + 1)
		candles[i] = makeCandle(i, p, p, p, p, 1)
	}
	if got := Momentum(candles, 10); !almostEqual(got, 10, 1e-9) {
		t.Errorf("Momentum(10) = %v, want 10", got)
	}
}

func TestATR_KnownValue(t *testing.T) {
	candles := make([]model.Candle, 20)
	for i := range candles {
		candles[i] = makeCandle(i, 100, 101, 99, 100, 1)
	}
	if got := ATR(candles, 14); !almostEqual(got, 2, 1e-9) {
		t.Errorf("ATR(14) = %v, want 2", got)
	}
	if got := ATR(candles[:10], 14); got != 0 {
		t.Errorf("ATR on short window = %v, want 0", got)
	}
}

func TestVolatility_FlatIsZero(t *testing.T) {
	if got := Volatility(flatWindow(30, 100, 1), 20); got != 0 {
		t.Errorf("volatility on flat window = %v, want 0", got)
	}
	if got := Volatility(flatWindow(10, 100, 1), 20); got != 0 {
		t.Errorf("volatility on short window = %v, want 0", got)
	}
}

func TestAroon_Defaults(t *testing.T) {
	a := AroonUpDown(flatWindow(10, 100, 1), 14)
	if a.Up != 50 || a.Down != 50 || a.Oscillator != 0 {
		t.Errorf("aroon default = %+v, want 50/50/0", a)
	}
}

func TestAroon_RisingWindow(t *testing.T) {
	a := AroonUpDown(risingWindow(30, 100, 0.01, 1), 14)
	if !almostEqual(a.Up, 100, 1e-9) {
		t.Errorf("aroon up on rising window = %v, want 100", a.Up)
	}
	if a.Up < 0 || a.Up > 100 || a.Down < 0 || a.Down > 100 {
		t.Errorf("aroon out of bounds: %+v", a)
	}
	if a.Oscillator <= 50 {
		t.Errorf("aroon oscillator on rising window = %v, want > 50", a.Oscillator)
	}
}

func TestOBV_SignedAccumulation(t *testing.T) {
	candles := []model.Candle{
		makeCandle(0, 100, 100, 100, 100, 10),
		makeCandle(1, 100, 101, 100, 101, 20), // up
		makeCandle(2, 101, 101, 100, 100, 30), // down
		makeCandle(3, 100, 100, 100, 100, 40), // unchanged
	}
	if got := OBV(candles); !almostEqual(got, -10, 1e-9) {
		t.Errorf("OBV = %v, want -10 (+20 -30 +0)", got)
	}
}

func TestMFI_NeutralAndBounds(t *testing.T) {
	if got := MFI(flatWindow(30, 100, 10), 14); got != 50 {
		t.Errorf("MFI on flat window = %v, want 50 (no directional flow)", got)
	}
	if got := MFI(flatWindow(10, 100, 10), 14); got != 50 {
		t.Errorf("MFI on short window = %v, want 50", got)
	}
	got := MFI(risingWindow(30, 100, 0.005, 10), 14)
	if got < 0 || got > 100 {
		t.Errorf("MFI = %v, out of [0,100]", got)
	}
}

func TestVWAP(t *testing.T) {
	if got := VWAP(flatWindow(20, 100, 5)); !almostEqual(got, 100, 1e-9) {
		t.Errorf("VWAP on flat window = %v, want 100", got)
	}
	zeroVol := flatWindow(20, 100, 0)
	if got := VWAP(zeroVol); got != 100 {
		t.Errorf("VWAP with zero volume = %v, want last close", got)
	}
}

func TestPivotLevels(t *testing.T) {
	candles := []model.Candle{
		makeCandle(0, 100, 110, 90, 100, 1),
		makeCandle(1, 100, 105, 95, 100, 1),
	}
	p := PivotLevels(candles)
	if !p.Valid {
		t.Fatal("expected valid pivots with 2 candles")
	}
	if !almostEqual(p.Pivot, 100, 1e-9) || !almostEqual(p.R1, 110, 1e-9) || !almostEqual(p.S1, 90, 1e-9) {
		t.Errorf("pivot/r1/s1 = %v/%v/%v, want 100/110/90", p.Pivot, p.R1, p.S1)
	}
	if !almostEqual(p.R2, 120, 1e-9) || !almostEqual(p.S2, 80, 1e-9) {
		t.Errorf("r2/s2 = %v/%v, want 120/80", p.R2, p.S2)
	}
	if PivotLevels(candles[:1]).Valid {
		t.Error("expected invalid pivots with 1 candle")
	}
}

func TestFibonacciLevels(t *testing.T) {
	candles := flatWindow(20, 100, 1)
	candles[5].High = 200
	candles[7].Low = 100
	f := FibonacciLevels(candles)
	if !f.Valid {
		t.Fatal("expected valid fib levels with 20 candles")
	}
	if !almostEqual(f.High, 200, 1e-9) || !almostEqual(f.Low, 100, 1e-9) {
		t.Errorf("high/low = %v/%v, want 200/100", f.High, f.Low)
	}
	if !almostEqual(f.Fib500, 150, 1e-9) {
		t.Errorf("fib 50%% = %v, want 150", f.Fib500)
	}
	if !almostEqual(f.Fib618, 138.2, 1e-9) {
		t.Errorf("fib 61.8%% = %v, want 138.2", f.Fib618)
	}
	if FibonacciLevels(candles[:19]).Valid {
		t.Error("expected invalid fib levels with 19 candles")
	}
}

func TestFearGreed_Defaults(t *testing.T) {
	if got := FearGreed(flatWindow(10, 100, 1)); got != 50 {
		t.Errorf("fear/greed on short window = %v, want 50", got)
	}
	got := FearGreed(risingWindow(40, 100, 0.005, 1))
	if got < 0 || got > 100 {
		t.Errorf("fear/greed = %v, out of [0,100]", got)
	}
}

func TestBullBearPower(t *testing.T) {
	bb := BullBearPower(flatWindow(5, 100, 1))
	if bb.Bull != 0 || bb.Bear != 0 {
		t.Errorf("bull/bear on short window = %+v, want 0/0", bb)
	}
	bb = BullBearPower(risingWindow(30, 100, 0.01, 1))
	if bb.Bull <= 0 {
		t.Errorf("bull power on rising window = %v, want > 0", bb.Bull)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	window := risingWindow(60, 100, 0.004, 7)
	window[30].Volume = 99 // break uniformity
	a := Compute(window)
	b := Compute(window)
	if a != b {
		t.Errorf("Compute not deterministic:\n%+v\n%+v", a, b)
	}
}

func TestCompute_ShortWindowNeutralDefaults(t *testing.T) {
	s := Compute(flatWindow(10, 100, 1))
	if s.RSI != 50 {
		t.Errorf("RSI = %v, want 50", s.RSI)
	}
	if s.MACD.Histogram != 0 {
		t.Errorf("MACD histogram = %v, want 0", s.MACD.Histogram)
	}
	if s.StochK != 50 || s.WilliamsR != -50 {
		t.Errorf("stoch/%%R = %v/%v, want 50/-50", s.StochK, s.WilliamsR)
	}
	if s.MFI != 50 || s.FearGreed != 50 {
		t.Errorf("MFI/fear-greed = %v/%v, want 50/50", s.MFI, s.FearGreed)
	}
	if s.Fib.Valid {
		t.Error("fib levels should be invalid on a 10-candle window")
	}
	if s.SMA20 != 100 || s.SMA50 != 100 {
		t.Errorf("SMA20/SMA50 = %v/%v, want last close 100", s.SMA20, s.SMA50)
	}
}

package decision

import (
	"reflect"
	"testing"
	"time"

	"mexcbot/internal/indicator"
	"mexcbot/internal/model"
	"mexcbot/internal/pattern"
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

func evaluateWindow(candles []model.Candle) Decision {
	price := candles[len(candles)-1].Close
	return Evaluate(
		indicator.Compute(candles),
		pattern.DetectLevels(candles),
		pattern.Detect(candles),
		pattern.DetectStructure(candles),
		pattern.AnalyzeVolume(candles),
		price,
	)
}

func TestEvaluate_AscendingWindowGoesLong(t *testing.T) {
	d := evaluateWindow(risingWindow(60, 100, 0.005, 10))
	if d.Action != ActionLong {
		t.Errorf("action = %q (bull=%d bear=%d), want LONG", d.Action, d.BullishVotes, d.BearishVotes)
	}
	if d.Confidence <= 0 {
		t.Errorf("confidence = %v, want > 0", d.Confidence)
	}
	if d.BullishVotes <= d.BearishVotes {
		t.Errorf("votes bull=%d bear=%d, want bullish majority", d.BullishVotes, d.BearishVotes)
	}
	if len(d.Reasons) == 0 {
		t.Error("expected a non-empty reason list")
	}
}

func TestEvaluate_FlatWindowHolds(t *testing.T) {
	d := evaluateWindow(flatWindow(60, 100, 10))
	if d.Action != ActionHold {
		t.Errorf("action = %q, want HOLD; reasons: %v", d.Action, d.Reasons)
	}
	if d.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", d.Confidence)
	}
	if d.BullishVotes != 0 || d.BearishVotes != 0 {
		t.Errorf("votes bull=%d bear=%d, want 0/0; reasons: %v", d.BullishVotes, d.BearishVotes, d.Reasons)
	}
	if d.SignalStrength != 0 {
		t.Errorf("signal strength = %d, want 0", d.SignalStrength)
	}
}

func TestEvaluate_Pure(t *testing.T) {
	candles := risingWindow(60, 100, 0.004, 7)
	a := evaluateWindow(candles)
	b := evaluateWindow(candles)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("two evaluations of the same window differ:\n%+v\n%+v", a, b)
	}
}

func TestEvaluate_ConfidenceBounds(t *testing.T) {
	windows := [][]model.Candle{
		flatWindow(60, 100, 10),
		risingWindow(60, 100, 0.005, 10),
		risingWindow(25, 50, 0.02, 3),
		flatWindow(5, 100, 1),
	}
	for i, w := range windows {
		d := evaluateWindow(w)
		if d.Confidence < 0 || d.Confidence > 95 {
			t.Errorf("window %d: confidence = %v, out of [0,95]", i, d.Confidence)
		}
	}
}

func TestEngine_HistoryEviction(t *testing.T) {
	e := NewEngine()
	for i := 0; i <= 100; i++ {
		e.Analyze(flatWindow(10, 100+float64(i), 1))
	}
	h := e.History()
	if len(h) != 100 {
		t.Fatalf("history length = %d, want 100", len(h))
	}
	if h[0].Price != 101 {
		t.Errorf("oldest retained price = %v, want 101 (first decision evicted)", h[0].Price)
	}
	if h[99].Price != 200 {
		t.Errorf("newest retained price = %v, want 200", h[99].Price)
	}
}

func TestEngine_Recent(t *testing.T) {
	e := NewEngine()
	for i := 0; i < 30; i++ {
		e.Analyze(flatWindow(10, 100+float64(i), 1))
	}
	r := e.Recent()
	if len(r) != 20 {
		t.Fatalf("recent length = %d, want 20", len(r))
	}
	if r[0].Price != 110 || r[19].Price != 129 {
		t.Errorf("recent spans %v..%v, want 110..129", r[0].Price, r[19].Price)
	}
}

func TestEngine_AnalyzeStampsTime(t *testing.T) {
	e := NewEngine()
	fixed := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }
	a := e.Analyze(flatWindow(10, 100, 1))
	if !a.Decision.TS.Equal(fixed) {
		t.Errorf("decision timestamp = %v, want %v", a.Decision.TS, fixed)
	}
	if a.Decision.Action != ActionHold {
		t.Errorf("action on tiny flat window = %q, want HOLD", a.Decision.Action)
	}
}

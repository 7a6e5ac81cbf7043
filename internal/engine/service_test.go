package engine

import (
	"context"
	"testing"
	"time"

	"mexcbot/internal/model"
	"mexcbot/internal/window"
)

func seededWindow(t *testing.T, n int) *window.Builder {
	t.Helper()
	win := window.New("BTCUSDT", "1m", 200)
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	price := 100.0
	for i := 0; i < n; i++ {
		open := price
		price *= 1.002
		win.Append(model.Candle{
			Symbol:    "BTCUSDT",
			Interval:  "1m",
			OpenTime:  base.Add(time.Duration(i) * time.Minute),
			CloseTime: base.Add(time.Duration(i+1) * time.Minute),
			Open:      open,
			High:      price * 1.001,
			Low:       open * 0.999,
			Close:     price,
			Volume:    10,
		})
	}
	return win
}

func TestServiceCycleProducesAnalysis(t *testing.T) {
	svc := New(Config{Symbol: "BTCUSDT", AnalysisInterval: time.Minute}, seededWindow(t, 60))

	svc.runCycle(context.Background())

	select {
	case a := <-svc.Analyses():
		if a.Decision.Action == "" {
			t.Fatal("empty action")
		}
		if a.Decision.Price == 0 {
			t.Error("price not set")
		}
	default:
		t.Fatal("no analysis emitted")
	}

	if got := len(svc.Engine().History()); got != 1 {
		t.Errorf("history = %d, want 1", got)
	}
}

func TestServiceSkipsShortWindow(t *testing.T) {
	svc := New(Config{Symbol: "BTCUSDT", AnalysisInterval: time.Minute}, seededWindow(t, 10))

	svc.runCycle(context.Background())

	select {
	case <-svc.Analyses():
		t.Fatal("expected no analysis for short window")
	default:
	}
	if got := len(svc.Engine().History()); got != 0 {
		t.Errorf("history = %d, want 0", got)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	svc := New(Config{Symbol: "BTCUSDT", AnalysisInterval: 10 * time.Millisecond}, seededWindow(t, 60))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	// Let at least one cycle fire, then stop.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}

	if len(svc.Engine().History()) == 0 {
		t.Error("expected at least one cycle before cancel")
	}
}

package portfolio

import (
	"testing"
	"time"

	"mexcbot/internal/model"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestPortfolioApplyFillAveragesEntries(t *testing.T) {
	pf := New()
	pf.ApplyFill("BTCUSDT", "BUY", d("0.1"), d("50000"))
	pf.ApplyFill("BTCUSDT", "BUY", d("0.1"), d("60000"))

	positions := pf.Positions()
	if len(positions) != 1 {
		t.Fatalf("positions = %d, want 1", len(positions))
	}
	pos := positions[0]
	if !pos.Qty.Equal(d("0.2")) {
		t.Errorf("qty = %s, want 0.2", pos.Qty)
	}
	if !pos.AvgPrice.Equal(d("55000")) {
		t.Errorf("avg price = %s, want 55000", pos.AvgPrice)
	}
}

func TestPortfolioClosingFillRemovesPosition(t *testing.T) {
	pf := New()
	pf.ApplyFill("ETHUSDT", "BUY", d("1"), d("2000"))
	pf.ApplyFill("ETHUSDT", "SELL", d("1"), d("2100"))

	if got := len(pf.Positions()); got != 0 {
		t.Errorf("positions = %d, want 0 after full close", got)
	}
}

func TestPortfolioUnrealizedPnL(t *testing.T) {
	pf := New()
	pf.ApplyFill("BTCUSDT", "BUY", d("0.5"), d("40000"))
	pf.UpdatePrice(model.Tick{Symbol: "BTCUSDT", Price: 42000, TS: time.Now()})

	// (42000 - 40000) * 0.5 = 1000
	if got := pf.TotalUnrealizedPnL(); !got.Equal(d("1000")) {
		t.Errorf("unrealized = %s, want 1000", got)
	}
}

func TestPnLTrackerRealizesOnSell(t *testing.T) {
	tracker := NewPnLTracker()

	tracker.RecordTrade(Trade{Symbol: "BTCUSDT", Side: "BUY", Qty: d("0.2"), Price: d("50000")})
	realized := tracker.RecordTrade(Trade{Symbol: "BTCUSDT", Side: "SELL", Qty: d("0.1"), Price: d("55000")})

	// (55000 - 50000) * 0.1 = 500
	if !realized.Equal(d("500")) {
		t.Errorf("realized = %s, want 500", realized)
	}
	if !tracker.RealizedPnL().Equal(d("500")) {
		t.Errorf("total realized = %s, want 500", tracker.RealizedPnL())
	}

	summary := tracker.Summary(map[string]decimal.Decimal{"BTCUSDT": d("60000")})
	// Remaining 0.1 at avg 50000 marked at 60000 = 1000 unrealized
	if !summary.UnrealizedPnL.Equal(d("1000")) {
		t.Errorf("unrealized = %s, want 1000", summary.UnrealizedPnL)
	}
	if summary.OpenPositions != 1 || summary.TotalTrades != 2 {
		t.Errorf("open=%d trades=%d, want 1/2", summary.OpenPositions, summary.TotalTrades)
	}
}

func TestPnLTrackerOversellCapsAtPosition(t *testing.T) {
	tracker := NewPnLTracker()
	tracker.RecordTrade(Trade{Symbol: "ETHUSDT", Side: "BUY", Qty: d("1"), Price: d("2000")})
	realized := tracker.RecordTrade(Trade{Symbol: "ETHUSDT", Side: "SELL", Qty: d("2"), Price: d("2100")})

	// Only the held 1 ETH realizes
	if !realized.Equal(d("100")) {
		t.Errorf("realized = %s, want 100", realized)
	}
}

package execution

import (
	"path/filepath"
	"testing"
	"time"

	sqlitestore "mexcbot/internal/store/sqlite"

	"github.com/shopspring/decimal"
)

func TestJournalRecordAndReadFills(t *testing.T) {
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	defer j.Close()

	fill := Fill{
		OrderID: "PAPER-1",
		Signal: Signal{
			Symbol:     "BTCUSDT",
			Side:       "BUY",
			Qty:        decimal.RequireFromString("0.001"),
			Confidence: 0.6,
			Reason:     "LONG",
		},
		FillPrice: decimal.RequireFromString("50025.5"),
		FillQty:   decimal.RequireFromString("0.001"),
		FilledAt:  time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		Slippage:  decimal.RequireFromString("25.5"),
	}
	if err := j.RecordFill(fill); err != nil {
		t.Fatalf("RecordFill: %v", err)
	}

	records, err := j.Fills(10)
	if err != nil {
		t.Fatalf("Fills: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	r := records[0]
	if r.OrderID != "PAPER-1" || r.Side != "BUY" || r.Symbol != "BTCUSDT" {
		t.Errorf("record = %+v", r)
	}
	if r.Qty != "0.001" || r.Price != "50025.5" {
		t.Errorf("qty/price = %s/%s, want exact decimal text", r.Qty, r.Price)
	}
}

func TestJournalSharesDBWithStoreWriter(t *testing.T) {
	// The journal and the store writer open the same file in production.
	// Both handles must survive interleaved writes without SQLITE_BUSY.
	dbPath := filepath.Join(t.TempDir(), "shared.db")

	w, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: dbPath})
	if err != nil {
		t.Fatalf("store writer: %v", err)
	}
	defer w.Close()

	j, err := NewJournal(dbPath)
	if err != nil {
		t.Fatalf("NewJournal on shared path: %v", err)
	}
	defer j.Close()

	for i := 0; i < 5; i++ {
		fill := Fill{
			OrderID:   "PAPER-shared",
			Signal:    Signal{Symbol: "BTCUSDT", Side: "SELL"},
			FillPrice: decimal.NewFromInt(100),
			FillQty:   decimal.RequireFromString("0.01"),
			FilledAt:  time.Now().UTC(),
		}
		if err := j.RecordFill(fill); err != nil {
			t.Fatalf("RecordFill %d on shared db: %v", i, err)
		}
	}
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mexcbot/internal/decision"
	"mexcbot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

const (
	defaultBatchSize  = 100
	defaultFlushDelay = 200 * time.Millisecond
)

// WriterConfig configures the SQLite writer.
type WriterConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/mexcbot.db"
}

// Writer is a single-goroutine SQLite writer with transaction batching.
type Writer struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (w *Writer) DB() *sql.DB { return w.db }

// New creates a new SQLite Writer, initializes the database with WAL mode and schema.
func New(cfg WriterConfig) (*Writer, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Set connection pool for single-writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Writer{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS trades (
			symbol          TEXT    NOT NULL,
			trade_id        INTEGER NOT NULL,
			price           REAL    NOT NULL,
			qty             REAL    NOT NULL,
			ts              INTEGER NOT NULL,
			taker_is_seller INTEGER NOT NULL,
			PRIMARY KEY (symbol, trade_id)
		);

		CREATE TABLE IF NOT EXISTS price_history (
			symbol         TEXT    NOT NULL,
			ts             INTEGER NOT NULL,
			price          REAL    NOT NULL,
			volume_24h     REAL,
			change_pct_24h REAL,
			PRIMARY KEY (symbol, ts)
		);

		CREATE TABLE IF NOT EXISTS candles (
			symbol    TEXT    NOT NULL,
			interval  TEXT    NOT NULL,
			open_time INTEGER NOT NULL,
			open      REAL    NOT NULL,
			high      REAL    NOT NULL,
			low       REAL    NOT NULL,
			close     REAL    NOT NULL,
			volume    REAL,
			PRIMARY KEY (symbol, interval, open_time)
		);

		CREATE TABLE IF NOT EXISTS analyses (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol     TEXT    NOT NULL,
			action     TEXT    NOT NULL,
			confidence REAL    NOT NULL,
			price      REAL    NOT NULL,
			data       TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
	`)
	return err
}

// RunTrades reads trades from tradeCh and inserts them in batched transactions.
// Flushes every batchSize trades OR every flushDelay, whichever first.
// Blocks until ctx is cancelled or tradeCh is closed.
func (w *Writer) RunTrades(ctx context.Context, tradeCh <-chan model.Trade) {
	batch := make([]model.Trade, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertTradeBatch(batch); err != nil {
			log.Printf("[sqlite] trade batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d trades in %v", len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case trade, ok := <-tradeCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, trade)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}

		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

func (w *Writer) insertTradeBatch(trades []model.Trade) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trades (symbol, trade_id, price, qty, ts, taker_is_seller)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range trades {
		_, err := stmt.Exec(t.Symbol, t.ID, t.Price, t.Qty, t.TS.UnixMilli(), t.TakerIsSeller)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// RunTicks samples ticker updates into price_history in batched transactions.
func (w *Writer) RunTicks(ctx context.Context, tickCh <-chan model.Tick) {
	batch := make([]model.Tick, 0, defaultBatchSize)
	timer := time.NewTimer(defaultFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := w.insertTickBatch(batch); err != nil {
			log.Printf("[sqlite] tick batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] committed %d ticks in %v", len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case tick, ok := <-tickCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, tick)
			if len(batch) >= defaultBatchSize {
				flush()
				timer.Reset(defaultFlushDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(defaultFlushDelay)
		}
	}
}

func (w *Writer) insertTickBatch(ticks []model.Tick) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO price_history (symbol, ts, price, volume_24h, change_pct_24h)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, t := range ticks {
		_, err := stmt.Exec(t.Symbol, t.TS.UnixMilli(), t.Price, t.Volume24h, t.ChangePct24h)
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

// SaveCandle upserts a single closed candle.
func (w *Writer) SaveCandle(c model.Candle) error {
	_, err := w.db.Exec(`
		INSERT OR REPLACE INTO candles (symbol, interval, open_time, open, high, low, close, volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.Symbol, c.Interval, c.OpenTime.UnixMilli(), c.Open, c.High, c.Low, c.Close, c.Volume)
	return err
}

// SaveAnalysis stores one analysis cycle: the decision columns for cheap
// querying plus the full feature bundle as JSON.
func (w *Writer) SaveAnalysis(symbol string, a *decision.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	d := a.Decision
	_, err = w.db.Exec(`
		INSERT INTO analyses (symbol, action, confidence, price, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, symbol, d.Action, d.Confidence, d.Price, string(data), d.TS.UnixMilli())
	if err != nil {
		return fmt.Errorf("sqlite insert analysis: %w", err)
	}

	// Prune old analyses, keep last 1000
	_, err = w.db.Exec(`DELETE FROM analyses WHERE id NOT IN (SELECT id FROM analyses ORDER BY created_at DESC LIMIT 1000)`)
	if err != nil {
		log.Printf("[sqlite] prune analyses warning: %v", err)
	}

	return nil
}

// GetLastTradeID returns the highest stored trade id for a symbol.
// Returns 0 if no trades exist.
func (w *Writer) GetLastTradeID(symbol string) (int64, error) {
	var id sql.NullInt64
	err := w.db.QueryRow(
		`SELECT MAX(trade_id) FROM trades WHERE symbol = ?`,
		symbol,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

// Close closes the database.
func (w *Writer) Close() error {
	return w.db.Close()
}

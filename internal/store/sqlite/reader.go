package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mexcbot/internal/decision"
	"mexcbot/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to SQLite for backfill and review queries.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadCandles reads stored candles for a symbol and interval, opened after
// afterMs, ordered by open time ascending for correct replay order.
func (r *Reader) ReadCandles(symbol, interval string, afterMs int64) ([]model.Candle, error) {
	rows, err := r.db.Query(`
		SELECT symbol, interval, open_time, open, high, low, close, volume
		FROM candles
		WHERE symbol = ? AND interval = ? AND open_time > ?
		ORDER BY open_time ASC
	`, symbol, interval, afterMs)
	if err != nil {
		return nil, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	var candles []model.Candle
	for rows.Next() {
		var c model.Candle
		var openMs int64
		if err := rows.Scan(&c.Symbol, &c.Interval, &openMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("sqlite scan candles: %w", err)
		}
		c.OpenTime = time.UnixMilli(openMs).UTC()
		c.CloseTime = c.OpenTime.Add(intervalDuration(interval))
		candles = append(candles, c)
	}
	return candles, rows.Err()
}

// ReadTrades reads trades for a symbol with id greater than afterID,
// ordered by trade id ascending.
func (r *Reader) ReadTrades(symbol string, afterID int64, limit int) ([]model.Trade, error) {
	rows, err := r.db.Query(`
		SELECT symbol, trade_id, price, qty, ts, taker_is_seller
		FROM trades
		WHERE symbol = ? AND trade_id > ?
		ORDER BY trade_id ASC
		LIMIT ?
	`, symbol, afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.Trade
	for rows.Next() {
		var t model.Trade
		var tsMs int64
		if err := rows.Scan(&t.Symbol, &t.ID, &t.Price, &t.Qty, &tsMs, &t.TakerIsSeller); err != nil {
			return nil, fmt.Errorf("sqlite scan trades: %w", err)
		}
		t.TS = time.UnixMilli(tsMs).UTC()
		trades = append(trades, t)
	}
	return trades, rows.Err()
}

// ReadRecentAnalyses loads the most recent stored analyses for a symbol,
// newest first.
func (r *Reader) ReadRecentAnalyses(symbol string, limit int) ([]decision.Analysis, error) {
	rows, err := r.db.Query(`
		SELECT data FROM analyses
		WHERE symbol = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query analyses: %w", err)
	}
	defer rows.Close()

	var out []decision.Analysis
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("sqlite scan analyses: %w", err)
		}
		var a decision.Analysis
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			return nil, fmt.Errorf("unmarshal analysis: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ReadLatestAnalysis loads the most recent analysis for a symbol.
// Returns nil when none exists.
func (r *Reader) ReadLatestAnalysis(symbol string) (*decision.Analysis, error) {
	var data string
	err := r.db.QueryRow(`
		SELECT data FROM analyses
		WHERE symbol = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, symbol).Scan(&data)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("sqlite read analysis: %w", err)
	}

	var a decision.Analysis
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &a, nil
}

// intervalDuration maps exchange interval strings to durations, defaulting
// to one minute for unknown values.
func intervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h", "60m":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	default:
		return time.Minute
	}
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Package window maintains the rolling candle window the analysis
// pipeline reads: REST backfill on startup, then closed-kline updates
// from the stream, trimmed to a fixed size. Single writer, any number of
// snapshot readers.
package window

import (
	"context"
	"fmt"
	"sync"

	"mexcbot/internal/model"
)

// KlineSource fetches OHLCV history, satisfied by the exchange client.
type KlineSource interface {
	Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error)
}

// Builder accumulates the most recent N candles for one symbol+interval.
type Builder struct {
	symbol   string
	interval string
	size     int

	mu      sync.RWMutex
	candles []model.Candle
}

func New(symbol, interval string, size int) *Builder {
	return &Builder{
		symbol:   symbol,
		interval: interval,
		size:     size,
		candles:  make([]model.Candle, 0, size),
	}
}

// Backfill replaces the window with the latest candles from src. The
// exchange returns the in-progress candle last; it is kept, matching the
// data a fresh kline subscription would produce.
func (b *Builder) Backfill(ctx context.Context, src KlineSource) error {
	candles, err := src.Klines(ctx, b.symbol, b.interval, b.size)
	if err != nil {
		return fmt.Errorf("window backfill %s %s: %w", b.symbol, b.interval, err)
	}
	b.mu.Lock()
	b.candles = trim(candles, b.size)
	b.mu.Unlock()
	return nil
}

// Append merges one candle into the window. A candle with a known open
// time replaces the stored one (in-progress updates); a newer open time
// appends and trims; an older one is dropped.
func (b *Builder) Append(c model.Candle) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := len(b.candles)
	if n > 0 {
		last := b.candles[n-1]
		switch {
		case c.OpenTime.Equal(last.OpenTime):
			b.candles[n-1] = c
			return
		case c.OpenTime.Before(last.OpenTime):
			return
		}
	}
	b.candles = trim(append(b.candles, c), b.size)
}

// Snapshot returns a point-in-time copy of the window, oldest first.
func (b *Builder) Snapshot() []model.Candle {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]model.Candle, len(b.candles))
	copy(out, b.candles)
	return out
}

// Len returns the current window length.
func (b *Builder) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.candles)
}

// LastClose returns the newest close, or 0 for an empty window.
func (b *Builder) LastClose() float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.candles) == 0 {
		return 0
	}
	return b.candles[len(b.candles)-1].Close
}

// Symbol returns the window's symbol.
func (b *Builder) Symbol() string { return b.symbol }

// Interval returns the window's candle interval.
func (b *Builder) Interval() string { return b.interval }

func trim(candles []model.Candle, size int) []model.Candle {
	if len(candles) <= size {
		return candles
	}
	return candles[len(candles)-size:]
}

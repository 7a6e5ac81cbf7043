package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"mexcbot/internal/decision"
	"mexcbot/internal/model"

	goredis "github.com/go-redis/redis/v8"
)

const (
	// Stream trimming: enough analyses for a day of 60s cycles + buffer
	analysisStreamMaxLen = 1500
	candleStreamMaxLen   = 2000
	defaultLatestTTL     = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes ticks, trades, candles and analyses to Redis for
// downstream consumers (gateway, dashboards).
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// RunTicks reads ticker updates from tickCh and writes them to Redis.
// Blocks until ctx is cancelled or tickCh is closed.
func (w *Writer) RunTicks(ctx context.Context, tickCh <-chan model.Tick) {
	for {
		select {
		case <-ctx.Done():
			return
		case tick, ok := <-tickCh:
			if !ok {
				return
			}
			if err := w.writeTick(ctx, tick); err != nil {
				log.Printf("[redis] tick write error for %s: %v", tick.Symbol, err)
			}
		}
	}
}

// RunTrades reads executions from tradeCh and publishes them.
// Blocks until ctx is cancelled or tradeCh is closed.
func (w *Writer) RunTrades(ctx context.Context, tradeCh <-chan model.Trade) {
	for {
		select {
		case <-ctx.Done():
			return
		case trade, ok := <-tradeCh:
			if !ok {
				return
			}
			if err := w.writeTrade(ctx, trade); err != nil {
				log.Printf("[redis] trade write error for %s: %v", trade.Symbol, err)
			}
		}
	}
}

// writeTick performs pipelined writes for one ticker update:
// SET latest price + PUBLISH for real-time subscribers.
func (w *Writer) writeTick(ctx context.Context, tick model.Tick) error {
	latestKey := "price:latest:" + tick.Symbol
	pubsubCh := "pub:tick:" + tick.Symbol
	jsonData := string(tick.JSON())

	pipe := w.client.Pipeline()
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, pubsubCh, jsonData)

	_, err := pipe.Exec(ctx)
	return err
}

// writeTrade publishes one execution. Trades are fire-and-forget for
// subscribers; durable history lives in SQLite.
func (w *Writer) writeTrade(ctx context.Context, trade model.Trade) error {
	data, err := json.Marshal(&trade)
	if err != nil {
		return err
	}
	return w.client.Publish(ctx, "pub:trade:"+trade.Symbol, string(data)).Err()
}

// WriteCandle writes a closed candle: XADD to the candle stream,
// SET latest, PUBLISH for subscribers.
func (w *Writer) WriteCandle(ctx context.Context, c model.Candle) error {
	streamKey := "candle:" + c.Interval + ":" + c.Symbol
	latestKey := "candle:" + c.Interval + ":latest:" + c.Symbol
	pubsubCh := "pub:candle:" + c.Interval + ":" + c.Symbol
	jsonData := string(c.JSON())

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: candleStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, pubsubCh, jsonData)

	_, err := pipe.Exec(ctx)
	return err
}

// WriteAnalysis writes one analysis cycle: XADD + SET latest + PUBLISH
// in a single pipeline roundtrip.
func (w *Writer) WriteAnalysis(ctx context.Context, symbol string, a *decision.Analysis) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	jsonData := string(data)

	pipe := w.client.Pipeline()
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: "analysis:" + symbol,
		MaxLen: analysisStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Set(ctx, "analysis:latest:"+symbol, jsonData, defaultLatestTTL)
	pipe.Publish(ctx, "pub:analysis:"+symbol, jsonData)

	_, err = pipe.Exec(ctx)
	return err
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}

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

// ReaderConfig configures the Redis reader.
type ReaderConfig struct {
	Addr     string
	Password string
	DB       int
}

// Reader provides read and subscribe access to the bot's Redis keys
// for the gateway and review tooling.
type Reader struct {
	client *goredis.Client
}

// NewReader creates a new Redis Reader and pings the server.
func NewReader(cfg ReaderConfig) (*Reader, error) {
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

	log.Printf("[redis-reader] connected to %s", cfg.Addr)
	return &Reader{client: client}, nil
}

// Client returns the underlying Redis client.
func (r *Reader) Client() *goredis.Client { return r.client }

// LatestPrice returns the last stored ticker snapshot for a symbol.
// Returns nil when no price has been written yet.
func (r *Reader) LatestPrice(ctx context.Context, symbol string) (*model.Tick, error) {
	data, err := r.client.Get(ctx, "price:latest:"+symbol).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get latest price: %w", err)
	}

	var tick model.Tick
	if err := json.Unmarshal([]byte(data), &tick); err != nil {
		return nil, fmt.Errorf("unmarshal tick: %w", err)
	}
	return &tick, nil
}

// LatestAnalysis returns the last stored analysis for a symbol.
// Returns nil when none exists.
func (r *Reader) LatestAnalysis(ctx context.Context, symbol string) (*decision.Analysis, error) {
	data, err := r.client.Get(ctx, "analysis:latest:"+symbol).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get latest analysis: %w", err)
	}

	var a decision.Analysis
	if err := json.Unmarshal([]byte(data), &a); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &a, nil
}

// RecentAnalyses reads up to count analyses from the analysis stream,
// newest first.
func (r *Reader) RecentAnalyses(ctx context.Context, symbol string, count int64) ([]decision.Analysis, error) {
	msgs, err := r.client.XRevRangeN(ctx, "analysis:"+symbol, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange analysis:%s: %w", symbol, err)
	}

	out := make([]decision.Analysis, 0, len(msgs))
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var a decision.Analysis
		if err := json.Unmarshal([]byte(data), &a); err != nil {
			log.Printf("[redis-reader] unmarshal analysis error: %v", err)
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// ReadCandles reads stored candles from the candle stream for backfill,
// oldest first, up to count entries.
func (r *Reader) ReadCandles(ctx context.Context, symbol, interval string, count int64) ([]model.Candle, error) {
	msgs, err := r.client.XRangeN(ctx, "candle:"+interval+":"+symbol, "-", "+", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrange candle stream: %w", err)
	}

	var candles []model.Candle
	for _, msg := range msgs {
		data, ok := msg.Values["data"].(string)
		if !ok {
			continue
		}
		var c model.Candle
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			continue
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// SubscribeChannel subscribes to a Redis Pub/Sub channel.
// Returns the PubSub handle so the caller can listen on .Channel().
func (r *Reader) SubscribeChannel(ctx context.Context, channel string) *goredis.PubSub {
	pubsub := r.client.Subscribe(ctx, channel)
	// Wait for confirmation
	_, err := pubsub.Receive(ctx)
	if err != nil {
		log.Printf("[redis-reader] subscribe to %s failed: %v", channel, err)
		pubsub.Close()
		return nil
	}
	return pubsub
}

// SubscribePattern pattern-subscribes to the bot's pub:* channels.
// The caller listens on the returned handle's .Channel().
func (r *Reader) SubscribePattern(ctx context.Context, pattern string) *goredis.PubSub {
	return r.client.PSubscribe(ctx, pattern)
}

// Publish publishes a message to a Redis Pub/Sub channel.
func (r *Reader) Publish(ctx context.Context, channel, message string) error {
	return r.client.Publish(ctx, channel, message).Err()
}

// Close closes the Redis client.
func (r *Reader) Close() error {
	return r.client.Close()
}

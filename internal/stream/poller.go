package stream

import (
	"context"
	"log"
	"sort"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
)

// startPoller launches the polling loop for one channel. A channel that
// already has a loop keeps it; handlers were swapped in place by
// subscribe.
func (c *Client) startPoller(ctx context.Context, sub *subscription) {
	if ctx == nil {
		return
	}
	pctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if sub.cancel != nil {
		c.mu.Unlock()
		cancel()
		return
	}
	sub.cancel = cancel
	c.mu.Unlock()

	atomic.AddInt32(&c.pollers, 1)
	c.wg.Add(1)
	go c.pollLoop(pctx, sub)
}

// pollLoop re-synthesizes stream events from REST at a fixed cadence.
// Transient fetch errors stretch the next sleep via exponential backoff
// and are never surfaced; only cancellation stops the loop.
func (c *Client) pollLoop(ctx context.Context, sub *subscription) {
	defer c.wg.Done()
	defer atomic.AddInt32(&c.pollers, -1)

	interval := c.pollInterval(sub.kind)
	retry := &backoff.Backoff{Min: interval, Max: 30 * time.Second, Factor: 2, Jitter: true}
	state := &pollState{lastTradeID: -1}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if err := c.pollOnce(ctx, sub, state); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[stream] poll %s: %v", sub.key, err)
			timer.Reset(retry.Duration())
			continue
		}
		retry.Reset()
		timer.Reset(interval)
	}
}

func (c *Client) pollInterval(kind Kind) time.Duration {
	switch kind {
	case KindTrade:
		return c.tradeInterval
	case KindKline:
		return c.klineInterval
	default:
		return c.tickerInterval
	}
}

// pollState carries per-loop de-duplication state.
type pollState struct {
	lastTradeID    int64 // highest trade id already emitted, -1 before first poll
	lastKlineClose time.Time
}

func (c *Client) pollOnce(ctx context.Context, sub *subscription, state *pollState) error {
	switch sub.kind {
	case KindTicker:
		tick, err := c.rest.Ticker24h(ctx, sub.symbol)
		if err != nil {
			return err
		}
		c.deliver(sub, Event{Kind: KindTicker, Stream: sub.key, Tick: tick})
		return nil

	case KindTrade:
		trades, err := c.rest.RecentTrades(ctx, sub.symbol, 100)
		if err != nil {
			return err
		}
		sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
		for _, tr := range trades {
			// The very first poll emits everything once; afterwards only
			// ids strictly above the high-water mark pass.
			if state.lastTradeID >= 0 && tr.ID <= state.lastTradeID {
				continue
			}
			c.deliver(sub, Event{Kind: KindTrade, Stream: sub.key, Trade: tr})
			state.lastTradeID = tr.ID
		}
		return nil

	case KindKline:
		candles, err := c.rest.Klines(ctx, sub.symbol, sub.interval, 2)
		if err != nil {
			return err
		}
		// The last row is the in-progress candle; the one before it is
		// the most recently completed.
		if len(candles) < 2 {
			return nil
		}
		closed := candles[len(candles)-2]
		if !closed.CloseTime.After(state.lastKlineClose) {
			return nil
		}
		state.lastKlineClose = closed.CloseTime
		c.deliver(sub, Event{Kind: KindKline, Stream: sub.key, Candle: closed, KlineClosed: true})
		return nil
	}
	return nil
}

// deliver invokes the channel's current handler, re-reading it so a
// replacement installed after the loop started still takes effect.
func (c *Client) deliver(sub *subscription, ev Event) {
	c.mu.Lock()
	h := sub.handler
	c.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

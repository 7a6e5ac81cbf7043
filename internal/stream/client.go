// Package stream owns the live MEXC market data connection. It keeps a
// registry of channel subscriptions, feeds parsed events to their
// handlers, and degrades transparently to REST polling when the socket
// cannot be established or dies: transport failures are absorbed, never
// surfaced to the caller.
package stream

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"mexcbot/internal/exchange"
)

// DefaultURL is the MEXC spot websocket endpoint.
const DefaultURL = "wss://wbs.mexc.com/ws"

// Mode is the client's operating state.
type Mode string

const (
	ModeDisconnected Mode = "disconnected"
	ModeConnecting   Mode = "connecting"
	ModeStreaming    Mode = "streaming"
	ModePolling      Mode = "polling"
)

// Control message methods.
const (
	methodSubscribe   = "SUBSCRIPTION"
	methodUnsubscribe = "UNSUBSCRIPTION"
)

// Status is the operator-visible snapshot of the client.
type Status struct {
	Mode           Mode              `json:"mode"`
	ActiveChannels []string          `json:"active_streams"`
	Cadence        map[string]string `json:"data_frequencies"`
}

type subscription struct {
	key      string
	kind     Kind
	symbol   string // uppercase, for REST fallback requests
	interval string // klines only
	handler  Handler
	cancel   context.CancelFunc // polling loop, nil while live
}

// Client is the stream client. Construct with NewClient; all methods are
// safe for concurrent use.
type Client struct {
	url            string
	rest           *exchange.Client
	dialer         *websocket.Dialer
	tickerInterval time.Duration
	tradeInterval  time.Duration
	klineInterval  time.Duration
	pingInterval   time.Duration

	mu     sync.Mutex
	mode   Mode
	conn   *websocket.Conn
	subs   map[string]*subscription
	ctx    context.Context
	cancel context.CancelFunc

	writeMu sync.Mutex
	msgID   int64
	pollers int32
	wg      sync.WaitGroup
}

// Option configures a Client.
type Option func(*Client)

// WithURL overrides the websocket endpoint.
func WithURL(u string) Option {
	return func(c *Client) { c.url = u }
}

// WithPollIntervals overrides the fallback polling cadence per kind.
func WithPollIntervals(ticker, trade, kline time.Duration) Option {
	return func(c *Client) {
		c.tickerInterval = ticker
		c.tradeInterval = trade
		c.klineInterval = kline
	}
}

// NewClient builds a stream client backed by rest for fallback polling.
func NewClient(rest *exchange.Client, opts ...Option) *Client {
	c := &Client{
		url:            DefaultURL,
		rest:           rest,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		tickerInterval: 2 * time.Second,
		tradeInterval:  time.Second,
		klineInterval:  5 * time.Second,
		pingInterval:   30 * time.Second,
		mode:           ModeDisconnected,
		subs:           make(map[string]*subscription),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TickerKey returns the channel key for a symbol's ticker stream.
func TickerKey(symbol string) string {
	return strings.ToLower(symbol) + "@ticker"
}

// TradeKey returns the channel key for a symbol's trade stream.
func TradeKey(symbol string) string {
	return strings.ToLower(symbol) + "@trade"
}

// KlineKey returns the channel key for a symbol+interval kline stream.
func KlineKey(symbol, interval string) string {
	return fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), interval)
}

// Connect attempts the live socket. On dial failure the client enters
// polling mode silently and Connect still returns nil: the fallback path
// is the recovery strategy, not an error.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.mode != ModeDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("stream: connect in state %q", c.mode)
	}
	c.mode = ModeConnecting
	cctx, cancel := context.WithCancel(context.Background())
	c.ctx, c.cancel = cctx, cancel
	c.mu.Unlock()

	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		log.Printf("[stream] dial %s: %v - falling back to REST polling", c.url, err)
		c.enterPolling(nil)
		return nil
	}

	c.mu.Lock()
	c.conn = conn
	c.mode = ModeStreaming
	keys := c.channelKeys()
	c.mu.Unlock()
	log.Printf("[stream] connected to %s", c.url)

	for _, key := range keys {
		c.sendControl(conn, methodSubscribe, key)
	}
	c.wg.Add(2)
	go c.readLoop(cctx, conn)
	go c.keepAlive(cctx, conn)
	return nil
}

// SubscribeTicker registers a handler for symbol's ticker updates and
// returns the channel key.
func (c *Client) SubscribeTicker(symbol string, h Handler) string {
	return c.subscribe(TickerKey(symbol), KindTicker, strings.ToUpper(symbol), "", h)
}

// SubscribeTrade registers a handler for symbol's trade executions.
func (c *Client) SubscribeTrade(symbol string, h Handler) string {
	return c.subscribe(TradeKey(symbol), KindTrade, strings.ToUpper(symbol), "", h)
}

// SubscribeKline registers a handler for symbol's closed candles at the
// given interval.
func (c *Client) SubscribeKline(symbol, interval string, h Handler) string {
	return c.subscribe(KlineKey(symbol, interval), KindKline, strings.ToUpper(symbol), interval, h)
}

// subscribe is idempotent per key: re-subscribing replaces the handler
// in place, keeping any polling loop already serving the channel.
func (c *Client) subscribe(key string, kind Kind, symbol, interval string, h Handler) string {
	c.mu.Lock()
	if sub, ok := c.subs[key]; ok {
		sub.handler = h
		c.mu.Unlock()
		return key
	}
	sub := &subscription{key: key, kind: kind, symbol: symbol, interval: interval, handler: h}
	c.subs[key] = sub
	mode, conn, ctx := c.mode, c.conn, c.ctx
	c.mu.Unlock()

	switch mode {
	case ModeStreaming:
		c.sendControl(conn, methodSubscribe, key)
	case ModePolling:
		c.startPoller(ctx, sub)
	}
	return key
}

// Unsubscribe removes a channel. Unknown keys are a no-op. Only that
// channel's polling loop is cancelled; others keep running.
func (c *Client) Unsubscribe(key string) {
	c.mu.Lock()
	sub, ok := c.subs[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.subs, key)
	cancel := sub.cancel
	sub.cancel = nil
	mode, conn := c.mode, c.conn
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if mode == ModeStreaming {
		c.sendControl(conn, methodUnsubscribe, key)
	}
}

// Disconnect cancels every polling loop, closes the live socket if open
// and resets to disconnected. Subscriptions are kept registered so a
// later Connect resumes them.
func (c *Client) Disconnect() {
	c.mu.Lock()
	cancel, conn := c.cancel, c.conn
	c.mode = ModeDisconnected
	c.conn = nil
	c.ctx, c.cancel = nil, nil
	for _, sub := range c.subs {
		sub.cancel = nil
	}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	c.wg.Wait()
	log.Printf("[stream] disconnected")
}

// Status reports the operating mode, active channel keys and the
// expected update cadence per event kind.
func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Mode:           c.mode,
		ActiveChannels: c.channelKeys(),
		Cadence: map[string]string{
			"ticker": "~100ms live / ~2s polling",
			"trades": "every execution live / ~1s polling",
			"klines": "on candle close",
		},
	}
}

// Mode returns the current operating mode.
func (c *Client) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// channelKeys returns the sorted active keys. Caller holds c.mu.
func (c *Client) channelKeys() []string {
	keys := make([]string, 0, len(c.subs))
	for k := range c.subs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// readLoop is the single receive loop for one live connection. Any read
// error or an explicit block notice drops the client to polling without
// losing subscriptions.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("[stream] read: %v - falling back to REST polling", err)
			c.enterPolling(conn)
			return
		}
		if isBlockedMessage(raw) {
			log.Printf("[stream] endpoint blocked by remote - falling back to REST polling")
			c.enterPolling(conn)
			return
		}
		ev, ok := parseEvent(raw, time.Now().UTC())
		if !ok {
			log.Printf("[stream] dropping unrecognized frame: %.120s", raw)
			continue
		}
		c.dispatch(ev)
	}
}

// dispatch routes an event: enveloped frames by exact channel key, bare
// frames to the first channel (in sorted key order) of the same kind.
func (c *Client) dispatch(ev Event) {
	var h Handler
	c.mu.Lock()
	if ev.Stream != "" {
		if sub, ok := c.subs[ev.Stream]; ok {
			h = sub.handler
		}
	} else {
		suffix := "@" + string(ev.Kind)
		for _, key := range c.channelKeys() {
			if strings.Contains(key, suffix) {
				h = c.subs[key].handler
				break
			}
		}
	}
	c.mu.Unlock()
	if h == nil {
		log.Printf("[stream] no handler for %s event (stream %q)", ev.Kind, ev.Stream)
		return
	}
	h(ev)
}

// keepAlive pings the connection at a fixed interval so intermediaries
// keep it open. Failures surface through the read loop.
func (c *Client) keepAlive(ctx context.Context, conn *websocket.Conn) {
	defer c.wg.Done()
	t := time.NewTicker(c.pingInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.writeMu.Lock()
			err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			c.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

// sendControl sends one subscribe/unsubscribe envelope. A write failure
// is treated like any transport failure: drop to polling.
func (c *Client) sendControl(conn *websocket.Conn, method, key string) {
	if conn == nil {
		return
	}
	c.writeMu.Lock()
	c.msgID++
	msg := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
		ID     int64    `json:"id"`
	}{Method: method, Params: []string{key}, ID: c.msgID}
	err := conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		log.Printf("[stream] send %s %s: %v - falling back to REST polling", method, key, err)
		c.enterPolling(conn)
	}
}

// enterPolling transitions to polling mode and starts one polling loop
// per registered channel. Safe to call from multiple failure paths; only
// the first caller for a given connection acts.
func (c *Client) enterPolling(conn *websocket.Conn) {
	c.mu.Lock()
	switch c.mode {
	case ModeStreaming:
		if c.conn != conn {
			c.mu.Unlock()
			return
		}
	case ModeConnecting:
		// dial failed, no conn to compare
	default:
		c.mu.Unlock()
		return
	}
	c.mode = ModePolling
	c.conn = nil
	ctx := c.ctx
	subs := make([]*subscription, 0, len(c.subs))
	for _, sub := range c.subs {
		subs = append(subs, sub)
	}
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	log.Printf("[stream] polling mode active for %d channel(s)", len(subs))
	for _, sub := range subs {
		c.startPoller(ctx, sub)
	}
}

// pollerCount reports how many polling loops are currently running.
func (c *Client) pollerCount() int {
	return int(atomic.LoadInt32(&c.pollers))
}

package gateway

import (
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client represents a single WebSocket peer.
type Client struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub

	// Per-client subscriptions keyed by symbol. A client with no
	// subscriptions receives every channel.
	subMu sync.RWMutex
	subs  map[string]subscription
}

// subscription narrows the channels a client receives for one symbol.
// Empty Kinds means all kinds; empty Intervals means all candle intervals.
type subscription struct {
	Symbol    string
	Kinds     []string
	Intervals []string
}

// SubscribeMsg is the client request to narrow its channel set.
type SubscribeMsg struct {
	Type      string   `json:"type"`
	ReqID     string   `json:"req_id,omitempty"`
	Symbol    string   `json:"symbol"`
	Kinds     []string `json:"kinds,omitempty"`     // "tick", "trade", "candle", "analysis"
	Intervals []string `json:"intervals,omitempty"` // candle intervals, e.g. "1m"
}

// UnsubscribeMsg removes a symbol subscription.
type UnsubscribeMsg struct {
	Type   string `json:"type"`
	Symbol string `json:"symbol"`
}

func (c *Client) sendInitialState(lastTS string) {
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	var cutoff time.Time
	if lastTS != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, lastTS); err == nil {
			cutoff = parsed
		}
	}

	for channel, entry := range c.hub.latest {
		if !cutoff.IsZero() && !entry.TS.After(cutoff) {
			continue
		}

		envelope, _ := json.Marshal(map[string]interface{}{
			"channel": channel,
			"data":    json.RawMessage(entry.Data),
			"ts":      entry.TS.Format(time.RFC3339Nano),
			"initial": true,
		})
		select {
		case c.send <- envelope:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))

			// Write coalescing: use NextWriter to batch queued messages
			// into a single WebSocket frame with newline separators
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(msg)

			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.conn.Close()
		log.Println("[gateway] ws client disconnected")
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			break
		}

		var base struct {
			Type string `json:"type"`
			Ping int64  `json:"ping"`
		}
		if json.Unmarshal(msg, &base) != nil {
			continue
		}

		switch base.Type {
		case "SUBSCRIBE":
			var subMsg SubscribeMsg
			if err := json.Unmarshal(msg, &subMsg); err != nil {
				c.sendError(subMsg.ReqID, "invalid SUBSCRIBE: "+err.Error())
				continue
			}
			c.handleSubscribe(subMsg)

		case "UNSUBSCRIBE":
			var unsubMsg UnsubscribeMsg
			if err := json.Unmarshal(msg, &unsubMsg); err != nil {
				continue
			}
			c.handleUnsubscribe(unsubMsg)

		default:
			// Application-level ping from the client
			if base.Ping > 0 {
				pong, _ := json.Marshal(map[string]interface{}{
					"type":      "pong",
					"ping":      base.Ping,
					"server_ts": time.Now().UnixMilli(),
				})
				select {
				case c.send <- pong:
				default:
				}
			}
		}
	}
}

func (c *Client) handleSubscribe(msg SubscribeMsg) {
	if msg.Symbol == "" {
		c.sendError(msg.ReqID, "symbol is required")
		return
	}

	sub := subscription{
		Symbol:    msg.Symbol,
		Kinds:     msg.Kinds,
		Intervals: msg.Intervals,
	}

	c.subMu.Lock()
	c.subs[sub.Symbol] = sub
	c.subMu.Unlock()

	log.Printf("[gateway] client subscribed: symbol=%s kinds=%v intervals=%v",
		msg.Symbol, msg.Kinds, msg.Intervals)

	ack, _ := json.Marshal(map[string]interface{}{
		"type":   "SUBSCRIBED",
		"req_id": msg.ReqID,
		"symbol": msg.Symbol,
	})
	select {
	case c.send <- ack:
	default:
	}
}

func (c *Client) handleUnsubscribe(msg UnsubscribeMsg) {
	c.subMu.Lock()
	delete(c.subs, msg.Symbol)
	c.subMu.Unlock()

	log.Printf("[gateway] client unsubscribed: symbol=%s", msg.Symbol)
}

func (c *Client) sendError(reqID, text string) {
	payload, _ := json.Marshal(map[string]string{
		"type":   "ERROR",
		"req_id": reqID,
		"error":  text,
	})
	select {
	case c.send <- payload:
	default:
	}
}

// matchesChannel reports whether this client should receive a message
// published on the given channel.
func (c *Client) matchesChannel(channel string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	if len(c.subs) == 0 {
		// No subscriptions, receive everything
		return true
	}

	parsed := parseChannel(channel)
	if parsed == nil {
		return true // non-data channel, always deliver
	}

	sub, ok := c.subs[parsed.symbol]
	if !ok {
		return false
	}
	if len(sub.Kinds) > 0 && !containsStr(sub.Kinds, parsed.kind) {
		return false
	}
	if parsed.kind == "candle" && len(sub.Intervals) > 0 && !containsStr(sub.Intervals, parsed.interval) {
		return false
	}
	return true
}

func containsStr(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// parsedChannel holds the components of a publish channel name.
type parsedChannel struct {
	kind     string // "tick", "trade", "candle", "analysis"
	interval string // for candle channels: "1m", "5m", ...
	symbol   string // "BTCUSDT"
}

// parseChannel parses a PubSub channel like "pub:tick:BTCUSDT" or
// "pub:candle:1m:BTCUSDT". Returns nil for channels outside the
// pub: namespace.
func parseChannel(channel string) *parsedChannel {
	parts := strings.Split(channel, ":")
	if len(parts) < 3 || parts[0] != "pub" {
		return nil
	}

	switch parts[1] {
	case "tick", "trade", "analysis":
		return &parsedChannel{kind: parts[1], symbol: parts[2]}
	case "candle":
		if len(parts) < 4 {
			return nil
		}
		return &parsedChannel{kind: "candle", interval: parts[2], symbol: parts[3]}
	}
	return nil
}

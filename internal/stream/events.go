package stream

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"mexcbot/internal/model"
)

// Event kinds.
type Kind string

const (
	KindTicker Kind = "ticker"
	KindTrade  Kind = "trade"
	KindKline  Kind = "kline"
)

// Handler receives parsed events for one channel.
type Handler func(Event)

// Event is the tagged union produced by the single parsing step: exactly
// one of Tick, Trade or Candle is populated according to Kind. Stream is
// the channel key when the message arrived enveloped, empty when it was
// matched structurally.
type Event struct {
	Kind        Kind
	Stream      string
	Tick        model.Tick
	Trade       model.Trade
	Candle      model.Candle
	KlineClosed bool
}

// flexFloat decodes a JSON number that may arrive quoted or bare.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*f = flexFloat(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

type wsTicker struct {
	Symbol    string    `json:"s"`
	LastPrice flexFloat `json:"c"`
	Volume    flexFloat `json:"v"`
	ChangePct flexFloat `json:"P"`
	High      flexFloat `json:"h"`
	Low       flexFloat `json:"l"`
	EventTime int64     `json:"E"`
}

type wsTrade struct {
	Symbol    string    `json:"s"`
	Price     flexFloat `json:"p"`
	Qty       flexFloat `json:"q"`
	TradeID   int64     `json:"t"`
	TradeTime int64     `json:"T"`
	Maker     bool      `json:"m"`
}

type wsKline struct {
	Symbol string `json:"s"`
	K      struct {
		OpenTime  int64     `json:"t"`
		CloseTime int64     `json:"T"`
		Interval  string    `json:"i"`
		Open      flexFloat `json:"o"`
		High      flexFloat `json:"h"`
		Low       flexFloat `json:"l"`
		Close     flexFloat `json:"c"`
		Volume    flexFloat `json:"v"`
		Closed    bool      `json:"x"`
	} `json:"k"`
}

type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// parseEvent turns one raw frame into an Event. Enveloped {stream,data}
// frames are routed by the stream key's kind; bare payloads are matched
// structurally: a last-price field plus symbol is a ticker, price plus
// quantity plus symbol is a trade. Anything else is not an event.
func parseEvent(raw []byte, now time.Time) (Event, bool) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Event{}, false
	}
	if env.Stream != "" && len(env.Data) > 0 {
		switch {
		case strings.Contains(env.Stream, "@kline"):
			return parseKline(env.Stream, env.Data)
		case strings.Contains(env.Stream, "@trade"):
			return parseTrade(env.Stream, env.Data, now)
		case strings.Contains(env.Stream, "@ticker"):
			return parseTicker(env.Stream, env.Data, now)
		default:
			return Event{}, false
		}
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Event{}, false
	}
	_, hasSymbol := probe["s"]
	if !hasSymbol {
		return Event{}, false
	}
	if _, ok := probe["c"]; ok {
		if _, isKline := probe["k"]; !isKline {
			return parseTicker("", raw, now)
		}
	}
	_, hasPrice := probe["p"]
	_, hasQty := probe["q"]
	if hasPrice && hasQty {
		return parseTrade("", raw, now)
	}
	return Event{}, false
}

func parseTicker(streamKey string, data []byte, now time.Time) (Event, bool) {
	var t wsTicker
	if err := json.Unmarshal(data, &t); err != nil || t.Symbol == "" {
		return Event{}, false
	}
	ts := now
	if t.EventTime > 0 {
		ts = time.UnixMilli(t.EventTime).UTC()
	}
	return Event{
		Kind:   KindTicker,
		Stream: streamKey,
		Tick: model.Tick{
			Symbol:       t.Symbol,
			Price:        float64(t.LastPrice),
			Volume24h:    float64(t.Volume),
			ChangePct24h: float64(t.ChangePct),
			High24h:      float64(t.High),
			Low24h:       float64(t.Low),
			TS:           ts,
		},
	}, true
}

func parseTrade(streamKey string, data []byte, now time.Time) (Event, bool) {
	var t wsTrade
	if err := json.Unmarshal(data, &t); err != nil || t.Symbol == "" {
		return Event{}, false
	}
	ts := now
	if t.TradeTime > 0 {
		ts = time.UnixMilli(t.TradeTime).UTC()
	}
	return Event{
		Kind:   KindTrade,
		Stream: streamKey,
		Trade: model.Trade{
			ID:            t.TradeID,
			Symbol:        t.Symbol,
			Price:         float64(t.Price),
			Qty:           float64(t.Qty),
			TS:            ts,
			TakerIsSeller: t.Maker,
		},
	}, true
}

func parseKline(streamKey string, data []byte) (Event, bool) {
	var k wsKline
	if err := json.Unmarshal(data, &k); err != nil || k.K.OpenTime == 0 {
		return Event{}, false
	}
	return Event{
		Kind:   KindKline,
		Stream: streamKey,
		Candle: model.Candle{
			Symbol:    k.Symbol,
			Interval:  k.K.Interval,
			OpenTime:  time.UnixMilli(k.K.OpenTime).UTC(),
			CloseTime: time.UnixMilli(k.K.CloseTime).UTC(),
			Open:      float64(k.K.Open),
			High:      float64(k.K.High),
			Low:       float64(k.K.Low),
			Close:     float64(k.K.Close),
			Volume:    float64(k.K.Volume),
		},
		KlineClosed: k.K.Closed,
	}, true
}

// isBlockedMessage reports whether the remote is telling us the stream
// endpoint is blocked for this origin, which is a signal to drop to REST
// polling rather than retry the socket.
func isBlockedMessage(raw []byte) bool {
	return strings.Contains(strings.ToLower(string(raw)), "blocked")
}

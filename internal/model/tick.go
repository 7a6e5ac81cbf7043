package model

import (
	"encoding/json"
	"time"
)

// Tick represents a last-price / 24h-stats snapshot for a symbol.
type Tick struct {
	Symbol       string    `json:"symbol"`
	Price        float64   `json:"price"`
	Volume24h    float64   `json:"volume_24h"`
	ChangePct24h float64   `json:"change_pct_24h"`
	High24h      float64   `json:"high_24h"`
	Low24h       float64   `json:"low_24h"`
	TS           time.Time `json:"ts"`
}

// JSON returns the JSON-encoded tick (ignoring errors for hot-path usage).
func (t *Tick) JSON() []byte {
	b, _ := json.Marshal(t)
	return b
}

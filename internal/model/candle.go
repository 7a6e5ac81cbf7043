package model

import (
	"encoding/json"
	"errors"
	"time"
)

// Candle represents one OHLCV bar for a fixed time interval.
// Prices and volume are float64, matching the exchange wire format.
type Candle struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	OpenTime  time.Time `json:"open_time"`
	CloseTime time.Time `json:"close_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
}

// Validate checks the candle invariants: high dominates open/close,
// low is dominated by them, and the time interval is well-formed.
func (c *Candle) Validate() error {
	if c.High < c.Open || c.High < c.Close {
		return errors.New("candle: high below open or close")
	}
	if c.Low > c.Open || c.Low > c.Close {
		return errors.New("candle: low above open or close")
	}
	if !c.OpenTime.Before(c.CloseTime) {
		return errors.New("candle: open_time must precede close_time")
	}
	return nil
}

// TypicalPrice returns (high + low + close) / 3.
func (c *Candle) TypicalPrice() float64 {
	return (c.High + c.Low + c.Close) / 3
}

// Body returns the absolute size of the candle body.
func (c *Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// UpperWick returns the distance from the body top to the high.
func (c *Candle) UpperWick() float64 {
	top := c.Open
	if c.Close > top {
		top = c.Close
	}
	return c.High - top
}

// LowerWick returns the distance from the body bottom to the low.
func (c *Candle) LowerWick() float64 {
	bottom := c.Open
	if c.Close < bottom {
		bottom = c.Close
	}
	return bottom - c.Low
}

// JSON returns the JSON-encoded candle (ignoring errors for hot-path usage).
func (c *Candle) JSON() []byte {
	b, _ := json.Marshal(c)
	return b
}

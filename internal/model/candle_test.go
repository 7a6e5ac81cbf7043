package model

import (
	"math"
	"testing"
	"time"
)

func validCandle() Candle {
	open := time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC)
	return Candle{
		Symbol:    "BTCUSDT",
		Interval:  "1m",
		OpenTime:  open,
		CloseTime: open.Add(time.Minute),
		Open:      100,
		High:      110,
		Low:       95,
		Close:     105,
		Volume:    3.2,
	}
}

func TestCandleValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Candle)
		wantErr bool
	}{
		{"valid", func(c *Candle) {}, false},
		{"high below close", func(c *Candle) { c.High = 104 }, true},
		{"high below open", func(c *Candle) { c.Open = 111 }, true},
		{"low above open", func(c *Candle) { c.Low = 101 }, true},
		{"low above close", func(c *Candle) { c.Close = 94; c.Low = 95 }, true},
		{"zero duration", func(c *Candle) { c.CloseTime = c.OpenTime }, true},
		{"close before open", func(c *Candle) { c.CloseTime = c.OpenTime.Add(-time.Minute) }, true},
		{"doji", func(c *Candle) { c.Close = c.Open }, false},
		{"flat bar", func(c *Candle) { c.High = 100; c.Low = 100; c.Close = 100 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandle()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCandleGeometry(t *testing.T) {
	c := validCandle() // O=100 H=110 L=95 C=105

	if got := c.Body(); got != 5 {
		t.Errorf("Body() = %v, want 5", got)
	}
	if got := c.UpperWick(); got != 5 {
		t.Errorf("UpperWick() = %v, want 5", got)
	}
	if got := c.LowerWick(); got != 5 {
		t.Errorf("LowerWick() = %v, want 5", got)
	}

	want := (110.0 + 95.0 + 105.0) / 3
	if got := c.TypicalPrice(); math.Abs(got-want) > 1e-9 {
		t.Errorf("TypicalPrice() = %v, want %v", got, want)
	}
}

func TestCandleGeometryBearish(t *testing.T) {
	c := validCandle()
	c.Open, c.Close = 105, 98 // bearish body

	if got := c.Body(); got != 7 {
		t.Errorf("Body() = %v, want 7", got)
	}
	// body top is the open, body bottom is the close
	if got := c.UpperWick(); got != 5 {
		t.Errorf("UpperWick() = %v, want 5", got)
	}
	if got := c.LowerWick(); got != 3 {
		t.Errorf("LowerWick() = %v, want 3", got)
	}
}

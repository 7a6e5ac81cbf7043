package model

import "time"

// Trade represents a single execution on the exchange.
// ID is the exchange-assigned trade id, strictly increasing per symbol;
// the stream client's polling fallback uses it for de-duplication.
type Trade struct {
	ID            int64     `json:"id"`
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Qty           float64   `json:"qty"`
	TS            time.Time `json:"ts"`
	TakerIsSeller bool      `json:"taker_is_seller"`
}

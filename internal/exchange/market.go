package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mexcbot/internal/model"
)

// Klines fetches up to limit OHLCV rows for symbol+interval, oldest
// first. Rows come back as JSON arrays mixing numbers and strings:
// [openTime, open, high, low, close, volume, closeTime, quoteVolume].
func (c *Client) Klines(ctx context.Context, symbol, interval string, limit int) ([]model.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("interval", interval)
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]json.RawMessage
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/klines", params, false, &rows); err != nil {
		return nil, err
	}

	candles := make([]model.Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < 7 {
			return nil, fmt.Errorf("mexc: kline row %d has %d fields, need 7", i, len(row))
		}
		openMs, err := rawInt(row[0])
		if err != nil {
			return nil, fmt.Errorf("mexc: kline row %d open time: %w", i, err)
		}
		closeMs, err := rawInt(row[6])
		if err != nil {
			return nil, fmt.Errorf("mexc: kline row %d close time: %w", i, err)
		}
		candle := model.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  time.UnixMilli(openMs).UTC(),
			CloseTime: time.UnixMilli(closeMs).UTC(),
		}
		for j, dst := range []*float64{&candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume} {
			v, err := rawFloat(row[j+1])
			if err != nil {
				return nil, fmt.Errorf("mexc: kline row %d field %d: %w", i, j+1, err)
			}
			*dst = v
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// TickerPrice returns the latest trade price for symbol.
func (c *Client) TickerPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/ticker/price", params, false, &resp); err != nil {
		return 0, err
	}
	price, err := strconv.ParseFloat(resp.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("mexc: parse ticker price %q: %w", resp.Price, err)
	}
	return price, nil
}

// Ticker24h returns the rolling 24h statistics snapshot for symbol.
func (c *Client) Ticker24h(ctx context.Context, symbol string) (model.Tick, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var resp struct {
		Symbol             string `json:"symbol"`
		LastPrice          string `json:"lastPrice"`
		PriceChangePercent string `json:"priceChangePercent"`
		HighPrice          string `json:"highPrice"`
		LowPrice           string `json:"lowPrice"`
		Volume             string `json:"volume"`
		CloseTime          int64  `json:"closeTime"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/ticker/24hr", params, false, &resp); err != nil {
		return model.Tick{}, err
	}

	tick := model.Tick{Symbol: resp.Symbol, TS: time.UnixMilli(resp.CloseTime).UTC()}
	if resp.CloseTime == 0 {
		tick.TS = c.now().UTC()
	}
	fields := []struct {
		raw string
		dst *float64
	}{
		{resp.LastPrice, &tick.Price},
		{resp.PriceChangePercent, &tick.ChangePct24h},
		{resp.HighPrice, &tick.High24h},
		{resp.LowPrice, &tick.Low24h},
		{resp.Volume, &tick.Volume24h},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return model.Tick{}, fmt.Errorf("mexc: parse 24h ticker field %q: %w", f.raw, err)
		}
		*f.dst = v
	}
	return tick, nil
}

// RecentTrades returns the most recent public trades for symbol, oldest
// first as delivered by the exchange.
func (c *Client) RecentTrades(ctx context.Context, symbol string, limit int) ([]model.Trade, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("limit", strconv.Itoa(limit))

	var rows []struct {
		ID           int64  `json:"id"`
		Price        string `json:"price"`
		Qty          string `json:"qty"`
		Time         int64  `json:"time"`
		IsBuyerMaker bool   `json:"isBuyerMaker"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/api/v3/trades", params, false, &rows); err != nil {
		return nil, err
	}

	trades := make([]model.Trade, 0, len(rows))
	for i, row := range rows {
		price, err := strconv.ParseFloat(row.Price, 64)
		if err != nil {
			return nil, fmt.Errorf("mexc: trade %d price %q: %w", i, row.Price, err)
		}
		qty, err := strconv.ParseFloat(row.Qty, 64)
		if err != nil {
			return nil, fmt.Errorf("mexc: trade %d qty %q: %w", i, row.Qty, err)
		}
		trades = append(trades, model.Trade{
			ID:            row.ID,
			Symbol:        symbol,
			Price:         price,
			Qty:           qty,
			TS:            time.UnixMilli(row.Time).UTC(),
			TakerIsSeller: row.IsBuyerMaker,
		})
	}
	return trades, nil
}

func rawFloat(raw json.RawMessage) (float64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strconv.ParseFloat(s, 64)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0, err
	}
	return f, nil
}

func rawInt(raw json.RawMessage) (int64, error) {
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.ParseInt(s, 10, 64)
}

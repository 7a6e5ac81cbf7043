// Package portfolio tracks open positions and realized/unrealized P&L.
//
// Quantities and prices are decimals: crypto lot sizes are fractional
// and float accumulation drifts over a long-running session.
package portfolio

import (
	"sync"

	"mexcbot/internal/model"

	"github.com/shopspring/decimal"
)

// Position represents a single symbol position.
// Qty is positive for long, negative for short.
type Position struct {
	Symbol    string          `json:"symbol"`
	Qty       decimal.Decimal `json:"qty"`
	AvgPrice  decimal.Decimal `json:"avg_price"`
	LastPrice decimal.Decimal `json:"last_price"`
}

// UnrealizedPnL returns (last - avg) * qty.
func (p *Position) UnrealizedPnL() decimal.Decimal {
	return p.LastPrice.Sub(p.AvgPrice).Mul(p.Qty)
}

// Portfolio tracks all open positions.
type Portfolio struct {
	mu        sync.RWMutex
	positions map[string]*Position
}

// New creates a new empty Portfolio.
func New() *Portfolio {
	return &Portfolio{
		positions: make(map[string]*Position),
	}
}

// ApplyFill adjusts the position for an executed trade. Buys add to the
// position at a weighted average price; sells subtract.
func (pf *Portfolio) ApplyFill(symbol, side string, qty, price decimal.Decimal) {
	pf.mu.Lock()
	defer pf.mu.Unlock()

	pos, ok := pf.positions[symbol]
	if !ok {
		pos = &Position{Symbol: symbol}
		pf.positions[symbol] = pos
	}

	signed := qty
	if side == "SELL" {
		signed = qty.Neg()
	}

	newQty := pos.Qty.Add(signed)
	switch {
	case pos.Qty.IsZero():
		pos.AvgPrice = price
	case pos.Qty.Sign() == signed.Sign():
		// Adding to the position: weighted average entry
		totalCost := pos.AvgPrice.Mul(pos.Qty.Abs()).Add(price.Mul(qty))
		pos.AvgPrice = totalCost.Div(newQty.Abs())
	case newQty.IsZero():
		pos.AvgPrice = decimal.Zero
	}
	pos.Qty = newQty
	pos.LastPrice = price

	if pos.Qty.IsZero() {
		delete(pf.positions, symbol)
	}
}

// UpdatePrice updates the mark price for an open position.
func (pf *Portfolio) UpdatePrice(tick model.Tick) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pos, ok := pf.positions[tick.Symbol]; ok {
		pos.LastPrice = decimal.NewFromFloat(tick.Price)
	}
}

// Positions returns a snapshot of all open positions.
func (pf *Portfolio) Positions() []Position {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	result := make([]Position, 0, len(pf.positions))
	for _, p := range pf.positions {
		result = append(result, *p)
	}
	return result
}

// TotalUnrealizedPnL returns the total unrealized P&L across all positions.
func (pf *Portfolio) TotalUnrealizedPnL() decimal.Decimal {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	total := decimal.Zero
	for _, p := range pf.positions {
		total = total.Add(p.UnrealizedPnL())
	}
	return total
}

package portfolio

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Trade represents a completed trade for P&L calculation.
type Trade struct {
	Symbol string          `json:"symbol"`
	Side   string          `json:"side"` // BUY or SELL
	Qty    decimal.Decimal `json:"qty"`
	Price  decimal.Decimal `json:"price"`
	TS     time.Time       `json:"ts"`
}

// PnLTracker tracks realized and unrealized P&L.
type PnLTracker struct {
	mu     sync.RWMutex
	trades []Trade

	realizedPnL decimal.Decimal

	// Per-symbol cost basis for P&L calculation
	costBasis map[string]costEntry
}

type costEntry struct {
	Qty      decimal.Decimal
	AvgPrice decimal.Decimal
}

// NewPnLTracker creates a new P&L tracker.
func NewPnLTracker() *PnLTracker {
	return &PnLTracker{
		trades:    make([]Trade, 0, 500),
		costBasis: make(map[string]costEntry),
	}
}

// RecordTrade records a trade and returns the realized P&L it produced
// (zero for buys and for sells with no open position).
func (p *PnLTracker) RecordTrade(trade Trade) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.trades = append(p.trades, trade)
	entry := p.costBasis[trade.Symbol]

	realizedPnL := decimal.Zero

	if trade.Side == "BUY" {
		if entry.Qty.IsZero() {
			entry.Qty = trade.Qty
			entry.AvgPrice = trade.Price
		} else {
			// Weighted average entry price
			totalCost := entry.AvgPrice.Mul(entry.Qty).Add(trade.Price.Mul(trade.Qty))
			entry.Qty = entry.Qty.Add(trade.Qty)
			if entry.Qty.IsPositive() {
				entry.AvgPrice = totalCost.Div(entry.Qty)
			}
		}
	} else {
		// Reduce position, realizing P&L on the closed quantity
		sellQty := trade.Qty
		if sellQty.GreaterThan(entry.Qty) {
			sellQty = entry.Qty
		}
		realizedPnL = trade.Price.Sub(entry.AvgPrice).Mul(sellQty)
		entry.Qty = entry.Qty.Sub(sellQty)
		if !entry.Qty.IsPositive() {
			entry.Qty = decimal.Zero
			entry.AvgPrice = decimal.Zero
		}
		p.realizedPnL = p.realizedPnL.Add(realizedPnL)
	}

	p.costBasis[trade.Symbol] = entry
	return realizedPnL
}

// RealizedPnL returns total realized P&L.
func (p *PnLTracker) RealizedPnL() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.realizedPnL
}

// UnrealizedPnL calculates unrealized P&L from current prices.
// currentPrices maps symbol -> latest price.
func (p *PnLTracker) UnrealizedPnL(currentPrices map[string]decimal.Decimal) decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()

	unrealized := decimal.Zero
	for symbol, entry := range p.costBasis {
		if !entry.Qty.IsPositive() {
			continue
		}
		if price, ok := currentPrices[symbol]; ok {
			unrealized = unrealized.Add(price.Sub(entry.AvgPrice).Mul(entry.Qty))
		}
	}
	return unrealized
}

// Trades returns a snapshot of all recorded trades.
func (p *PnLTracker) Trades() []Trade {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Trade, len(p.trades))
	copy(cp, p.trades)
	return cp
}

// PnLSummary is a point-in-time P&L summary.
type PnLSummary struct {
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	TotalPnL      decimal.Decimal `json:"total_pnl"`
	TotalTrades   int             `json:"total_trades"`
	OpenPositions int             `json:"open_positions"`
}

// Summary returns the current P&L summary.
func (p *PnLTracker) Summary(currentPrices map[string]decimal.Decimal) PnLSummary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	unrealized := decimal.Zero
	openPositions := 0
	for symbol, entry := range p.costBasis {
		if !entry.Qty.IsPositive() {
			continue
		}
		openPositions++
		if price, ok := currentPrices[symbol]; ok {
			unrealized = unrealized.Add(price.Sub(entry.AvgPrice).Mul(entry.Qty))
		}
	}

	return PnLSummary{
		RealizedPnL:   p.realizedPnL,
		UnrealizedPnL: unrealized,
		TotalPnL:      p.realizedPnL.Add(unrealized),
		TotalTrades:   len(p.trades),
		OpenPositions: openPositions,
	}
}

package execution

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fill represents a simulated order fill.
type Fill struct {
	OrderID   string          `json:"order_id"`
	Signal    Signal          `json:"signal"`
	FillPrice decimal.Decimal `json:"fill_price"`
	FillQty   decimal.Decimal `json:"fill_qty"`
	FilledAt  time.Time       `json:"filled_at"`
	Slippage  decimal.Decimal `json:"slippage"`
}

// PaperExecutor simulates order execution without real exchange calls.
type PaperExecutor struct {
	mu       sync.RWMutex
	fills    []Fill
	resultCh chan OrderResult

	// Simulation parameters
	slippageBps int64 // basis points of slippage (e.g., 5 = 0.05%)
}

// NewPaperExecutor creates a paper trading executor.
// slippageBps controls simulated slippage in basis points.
func NewPaperExecutor(resultBufferSize int, slippageBps int64) *PaperExecutor {
	return &PaperExecutor{
		fills:       make([]Fill, 0, 1000),
		resultCh:    make(chan OrderResult, resultBufferSize),
		slippageBps: slippageBps,
	}
}

// Results returns the channel of order results.
func (p *PaperExecutor) Results() <-chan OrderResult {
	return p.resultCh
}

// Fills returns a snapshot of all fills.
func (p *PaperExecutor) Fills() []Fill {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}

// Run consumes signals and simulates execution.
func (p *PaperExecutor) Run(ctx context.Context, signalCh <-chan Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signalCh:
			if !ok {
				return
			}
			fill := p.executeSignal(sig)

			select {
			case p.resultCh <- OrderResult{
				OrderID:       fill.OrderID,
				ClientOrderID: fill.OrderID,
				Status:        "FILLED",
				Message:       "paper filled at " + fill.FillPrice.String(),
				Signal:        sig,
			}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *PaperExecutor) executeSignal(sig Signal) Fill {
	orderID := "PAPER-" + uuid.NewString()

	// Fill at the signal's reference price, pushed against us by the
	// configured slippage.
	fillPrice := decimal.NewFromFloat(sig.Price)
	slippage := decimal.Zero
	if fillPrice.IsPositive() && p.slippageBps > 0 {
		slippage = fillPrice.Mul(decimal.New(p.slippageBps, -4))
		if sig.Side == "BUY" {
			fillPrice = fillPrice.Add(slippage)
		} else {
			fillPrice = fillPrice.Sub(slippage)
		}
	}

	fill := Fill{
		OrderID:   orderID,
		Signal:    sig,
		FillPrice: fillPrice,
		FillQty:   sig.Qty,
		FilledAt:  time.Now(),
		Slippage:  slippage,
	}

	p.mu.Lock()
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	log.Printf("[paper] %s %s qty=%s price=%s (slip=%s) order=%s reason=%q",
		sig.Side, sig.Symbol, sig.Qty, fillPrice, slippage, orderID, sig.Reason)

	return fill
}

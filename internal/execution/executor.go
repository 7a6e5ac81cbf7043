// Package execution turns trade signals into orders: live orders
// through the MEXC REST API, or simulated fills when paper trading.
// Fills are journalled to SQLite for audit.
package execution

import (
	"context"
	"log"
	"strconv"
	"time"

	"mexcbot/internal/exchange"

	"github.com/shopspring/decimal"
)

// Signal is an actionable trade instruction from the strategy layer.
type Signal struct {
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"` // BUY or SELL
	Qty        decimal.Decimal `json:"qty"`
	Price      float64         `json:"price"` // reference price at signal time
	Confidence float64         `json:"confidence"`
	Reason     string          `json:"reason"`
	TS         time.Time       `json:"ts"`
}

// OrderResult represents the outcome of an order placement.
type OrderResult struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id"`
	Status        string `json:"status"` // FILLED, PLACED, REJECTED, ERROR
	Message       string `json:"message"`
	Signal        Signal `json:"signal"`
}

// Executor consumes signals and emits order results. Implemented by
// LiveExecutor and PaperExecutor.
type Executor interface {
	Run(ctx context.Context, signalCh <-chan Signal)
	Results() <-chan OrderResult
}

// LiveExecutor places real market orders through the exchange client.
type LiveExecutor struct {
	client   *exchange.Client
	resultCh chan OrderResult
}

// NewLiveExecutor creates an executor backed by the exchange REST API.
func NewLiveExecutor(client *exchange.Client, resultBufferSize int) *LiveExecutor {
	return &LiveExecutor{
		client:   client,
		resultCh: make(chan OrderResult, resultBufferSize),
	}
}

// Results returns the channel of order results.
func (e *LiveExecutor) Results() <-chan OrderResult {
	return e.resultCh
}

// Run consumes signals and places market orders.
// Blocks until ctx is cancelled or signalCh is closed.
func (e *LiveExecutor) Run(ctx context.Context, signalCh <-chan Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-signalCh:
			if !ok {
				return
			}
			e.placeOrder(ctx, sig)
		}
	}
}

func (e *LiveExecutor) placeOrder(ctx context.Context, sig Signal) {
	log.Printf("[executor] signal: %s %s qty=%s conf=%.2f reason=%q",
		sig.Side, sig.Symbol, sig.Qty, sig.Confidence, sig.Reason)

	orderCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	order, err := e.client.PlaceOrder(orderCtx, exchange.OrderRequest{
		Symbol:   sig.Symbol,
		Side:     sig.Side,
		Type:     exchange.TypeMarket,
		Quantity: sig.Qty,
	})
	if err != nil {
		log.Printf("[executor] order error for %s %s: %v", sig.Side, sig.Symbol, err)
		e.emit(ctx, OrderResult{
			Status:  "ERROR",
			Message: err.Error(),
			Signal:  sig,
		})
		return
	}

	log.Printf("[executor] placed %s %s order=%d status=%s",
		order.Side, order.Symbol, order.OrderID, order.Status)
	e.emit(ctx, OrderResult{
		OrderID:       strconv.FormatInt(order.OrderID, 10),
		ClientOrderID: order.ClientOrderID,
		Status:        order.Status,
		Message:       "order accepted",
		Signal:        sig,
	})
}

func (e *LiveExecutor) emit(ctx context.Context, res OrderResult) {
	select {
	case e.resultCh <- res:
	case <-ctx.Done():
	}
}

package exchange

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance is one asset's free/locked amounts.
type Balance struct {
	Asset  string          `json:"asset"`
	Free   decimal.Decimal `json:"free"`
	Locked decimal.Decimal `json:"locked"`
}

// Account is the spot account snapshot.
type Account struct {
	CanTrade bool      `json:"canTrade"`
	Balances []Balance `json:"balances"`
}

// Order sides and types.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"

	TypeLimit  = "LIMIT"
	TypeMarket = "MARKET"
)

// OrderRequest describes an order to place. Price is ignored for market
// orders. A zero ClientOrderID gets a generated UUID so retries are
// idempotent on the exchange side.
type OrderRequest struct {
	Symbol        string
	Side          string
	Type          string
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	ClientOrderID string
}

// Order is the exchange's acknowledgement of a placed order.
type Order struct {
	Symbol        string          `json:"symbol"`
	OrderID       int64           `json:"orderId"`
	ClientOrderID string          `json:"clientOrderId"`
	Price         decimal.Decimal `json:"price"`
	OrigQty       decimal.Decimal `json:"origQty"`
	ExecutedQty   decimal.Decimal `json:"executedQty"`
	Status        string          `json:"status"`
	Side          string          `json:"side"`
	Type          string          `json:"type"`
	TransactTime  int64           `json:"transactTime"`
}

// GetAccount fetches the spot account balances. Requires credentials.
func (c *Client) GetAccount(ctx context.Context) (Account, error) {
	var acct Account
	err := c.doRequest(ctx, http.MethodGet, "/api/v3/account", nil, true, &acct)
	return acct, err
}

// PlaceOrder submits a new order.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.NewString()
	}
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", strings.ToUpper(req.Side))
	params.Set("type", strings.ToUpper(req.Type))
	params.Set("quantity", req.Quantity.String())
	params.Set("newClientOrderId", req.ClientOrderID)
	if strings.EqualFold(req.Type, TypeLimit) {
		params.Set("price", req.Price.String())
		params.Set("timeInForce", "GTC")
	}
	var order Order
	err := c.doRequest(ctx, http.MethodPost, "/api/v3/order", params, true, &order)
	return order, err
}

// CancelOrder cancels an open order by exchange order id.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) (Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	var order Order
	err := c.doRequest(ctx, http.MethodDelete, "/api/v3/order", params, true, &order)
	return order, err
}

// OpenOrders lists the currently open orders for symbol.
func (c *Client) OpenOrders(ctx context.Context, symbol string) ([]Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	var orders []Order
	err := c.doRequest(ctx, http.MethodGet, "/api/v3/openOrders", params, true, &orders)
	return orders, err
}

// OrderStatus fetches one order by exchange order id.
func (c *Client) OrderStatus(ctx context.Context, symbol, orderID string) (Order, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("orderId", orderID)
	var order Order
	err := c.doRequest(ctx, http.MethodGet, "/api/v3/order", params, true, &order)
	return order, err
}

// AccountTrade is one of the account's own executions.
type AccountTrade struct {
	Symbol   string          `json:"symbol"`
	ID       int64           `json:"id"`
	OrderID  int64           `json:"orderId"`
	Price    decimal.Decimal `json:"price"`
	Qty      decimal.Decimal `json:"qty"`
	IsBuyer  bool            `json:"isBuyer"`
	Time     int64           `json:"time"`
	Quote    decimal.Decimal `json:"quoteQty"`
	Maker    bool            `json:"isMaker"`
	FeeAsset string          `json:"commissionAsset"`
	Fee      decimal.Decimal `json:"commission"`
}

// MyTrades lists the account's recent executions for symbol.
func (c *Client) MyTrades(ctx context.Context, symbol string, limit int) ([]AccountTrade, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var trades []AccountTrade
	err := c.doRequest(ctx, http.MethodGet, "/api/v3/myTrades", params, true, &trades)
	return trades, err
}

package kalshi

import (
	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Market is the exchange's market record.
type Market struct {
	Ticker       string `json:"ticker"`
	EventTicker  string `json:"event_ticker"`
	SeriesTicker string `json:"series_ticker"`
	Title        string `json:"title"`
	Status       string `json:"status"`
	Volume24h    int64  `json:"volume_24h"`
	Volume       int64  `json:"volume"`
	Liquidity    int64  `json:"liquidity"`
	YesBid       int64  `json:"yes_bid"`
	YesAsk       int64  `json:"yes_ask"`
	NoBid        int64  `json:"no_bid"`
	NoAsk        int64  `json:"no_ask"`
}

// Event is the exchange's event record. MutuallyExclusive is a pointer
// because older events omit the flag, and absent is not false.
type Event struct {
	EventTicker          string   `json:"event_ticker"`
	SeriesTicker         string   `json:"series_ticker"`
	Title                string   `json:"title"`
	Category             string   `json:"category"`
	MutuallyExclusive    *bool    `json:"mutually_exclusive"`
	CollateralReturnType string   `json:"collateral_return_type"`
	Markets              []Market `json:"markets"`
}

// Orderbook is the wire orderbook. The exchange quotes resting bids only:
// "yes" and "no" are bid ladders in ascending price order, and asks are
// implied from the opposite side. Some responses carry explicit ask ladders
// under the _asks keys; when present they are preferred downstream.
type Orderbook struct {
	Yes     []domain.PriceLevel `json:"yes"`
	No      []domain.PriceLevel `json:"no"`
	YesAsks []domain.PriceLevel `json:"yes_asks"`
	NoAsks  []domain.PriceLevel `json:"no_asks"`
}

// OrderRequest is the order placement payload. Action is "buy" or "sell";
// Side is always "yes" here since baskets trade the YES leg of every
// outcome.
type OrderRequest struct {
	Ticker        string `json:"ticker"`
	ClientOrderID string `json:"client_order_id"`
	Action        string `json:"action"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Count         int64  `json:"count"`
	YesPrice      int64  `json:"yes_price,omitempty"`
}

// Order is the exchange's order record. TakerFillCost is the summed cost of
// the fills in cents, so cost over count gives the average fill price.
type Order struct {
	OrderID        string `json:"order_id"`
	ClientOrderID  string `json:"client_order_id"`
	Ticker         string `json:"ticker"`
	Action         string `json:"action"`
	Side           string `json:"side"`
	Status         string `json:"status"`
	YesPrice       int64  `json:"yes_price"`
	Count          int64  `json:"count"`
	FillCount      int64  `json:"fill_count"`
	RemainingCount int64  `json:"remaining_count"`
	TakerFillCost  int64  `json:"taker_fill_cost"`
}

// Exchange order status values.
const (
	orderStatusResting  = "resting"
	orderStatusCanceled = "canceled"
	orderStatusExecuted = "executed"
	orderStatusPending  = "pending"
)

// apiError is the exchange's error envelope.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

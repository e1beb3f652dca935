package domain

import "time"

// OrderStatus tracks one leg's lifecycle. Pending and Submitted are
// transient; Filled, Rejected, Cancelled, and Failed are terminal. Partial is
// reserved for mixed-fill reporting.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusSubmitted OrderStatus = "submitted"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusRejected  OrderStatus = "rejected"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusFailed    OrderStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusFilled, OrderStatusRejected, OrderStatusCancelled, OrderStatusFailed:
		return true
	case OrderStatusPending, OrderStatusSubmitted, OrderStatusPartial:
		return false
	}
	return false
}

// BasketStatus tracks a multi-leg basket's lifecycle. Complete requires every
// leg Filled; Partial requires at least one Filled and at least one not;
// Failed requires zero Filled.
type BasketStatus string

const (
	BasketStatusPending   BasketStatus = "pending"
	BasketStatusExecuting BasketStatus = "executing"
	BasketStatusComplete  BasketStatus = "complete"
	BasketStatusPartial   BasketStatus = "partial"
	BasketStatusFailed    BasketStatus = "failed"
	BasketStatusCancelled BasketStatus = "cancelled"
)

// Terminal reports whether the basket has finished executing.
func (s BasketStatus) Terminal() bool {
	switch s {
	case BasketStatusComplete, BasketStatusPartial, BasketStatusFailed, BasketStatusCancelled:
		return true
	case BasketStatusPending, BasketStatusExecuting:
		return false
	}
	return false
}

// OrderResult is one leg's execution outcome, tracking expected vs actual
// fill for slippage analysis.
type OrderResult struct {
	Ticker        string
	Side          OrderSide
	ExpectedPrice int64 // cents
	ExpectedSize  int64
	ClientOrderID string

	OrderID       string
	Status        OrderStatus
	FillPrice     *int64 // cents; nil until filled
	FillSize      int64
	SlippageCents int64 // fill - expected, set when filled
	ErrorMessage  string
	SubmittedAt   time.Time
	FilledAt      *time.Time
}

// CostUSD returns the actual filled cost in dollars.
func (r OrderResult) CostUSD() float64 {
	if r.FillPrice == nil {
		return 0
	}
	return float64(*r.FillPrice*r.FillSize) / 100
}

// BasketResult aggregates the leg results for one executed signal group.
type BasketResult struct {
	BasketID          string
	GroupName         string
	EventTicker       string
	ExpectedProfitUSD float64
	FailureReason     string // set when validation rejects the basket

	Orders      []OrderResult
	Status      BasketStatus
	StartedAt   time.Time
	CompletedAt *time.Time
}

// OrdersFilled counts legs that reached Filled.
func (b BasketResult) OrdersFilled() int {
	n := 0
	for _, o := range b.Orders {
		if o.Status == OrderStatusFilled {
			n++
		}
	}
	return n
}

// FillRate returns filled legs / total legs, 0 when there are no legs.
func (b BasketResult) FillRate() float64 {
	if len(b.Orders) == 0 {
		return 0
	}
	return float64(b.OrdersFilled()) / float64(len(b.Orders))
}

// TotalCostUSD sums the filled cost across all legs.
func (b BasketResult) TotalCostUSD() float64 {
	var total float64
	for _, o := range b.Orders {
		total += o.CostUSD()
	}
	return total
}

// TotalSlippageCents sums per-leg slippage across filled legs.
func (b BasketResult) TotalSlippageCents() int64 {
	var total int64
	for _, o := range b.Orders {
		if o.FillPrice != nil {
			total += o.SlippageCents
		}
	}
	return total
}

// ActualProfitUSD estimates realized profit for a buy-all basket: the unit
// payout on the expected size minus the actual cost. Meaningful only once the
// basket is terminal.
func (b BasketResult) ActualProfitUSD() float64 {
	if len(b.Orders) == 0 {
		return 0
	}
	size := b.Orders[0].ExpectedSize
	return float64(size) - b.TotalCostUSD()
}

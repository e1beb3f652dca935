package domain

import "time"

// OrderSide indicates whether this is a buy or sell.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Signal is one executable leg emitted by a strategy: buy or sell one
// market's YES side at a limit price.
type Signal struct {
	Ticker     string
	Side       OrderSide
	PriceCents int64
	Size       int64 // contracts
	Strategy   string
	Confidence float64
	Metadata   map[string]string
	CreatedAt  time.Time
}

// NotionalUSD returns the leg's cost in dollars at the signal price.
func (s Signal) NotionalUSD() float64 {
	return float64(s.PriceCents*s.Size) / 100
}

// SignalGroup is the complete basket for one arbitrage event. The legs are
// the atomic unit handed to execution: an event's legs are executed together
// or rejected together.
type SignalGroup struct {
	Name              string // e.g. "BUY_ALL_KXFEDCHAIRNOM-29"
	EventTicker       string
	Signals           []Signal
	ExpectedProfitUSD float64
	Strategy          string
	Metadata          map[string]string
}

// TotalBuyCostUSD returns the summed notional of the group's buy legs.
func (g SignalGroup) TotalBuyCostUSD() float64 {
	var total float64
	for _, s := range g.Signals {
		if s.Side == OrderSideBuy {
			total += s.NotionalUSD()
		}
	}
	return total
}

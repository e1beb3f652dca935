package domain

import "time"

// MarketStatus is the exchange lifecycle state of a market.
type MarketStatus string

const (
	MarketStatusOpen    MarketStatus = "open"
	MarketStatusClosed  MarketStatus = "closed"
	MarketStatusSettled MarketStatus = "settled"
)

// MarketInfo is an immutable snapshot of one outcome market's metadata, taken
// from a single markets-list fetch.
type MarketInfo struct {
	Ticker       string
	EventTicker  string
	SeriesTicker string
	Status       MarketStatus
	Volume24h    int64 // contracts traded in the last 24h
	Title        string
}

// MarketData bundles a market with its orderbook and extracted pricing. Book
// and Pricing are nil when the orderbook fetch failed or produced no usable
// prices; such markets still count toward event totals.
type MarketData struct {
	Info    MarketInfo
	Book    *RawOrderbook
	Pricing *MarketPricing
}

// MarketSnapshot is the persisted, point-in-time pricing record for one
// market. Nil-able pricing fields stay nil when the side had no data.
type MarketSnapshot struct {
	SnapshotTS   time.Time
	Ticker       string
	EventTicker  string
	SeriesTicker string
	Title        string
	BestYesBid   *int64
	BestYesAsk   *int64
	BestNoBid    *int64
	BestNoAsk    *int64
	YesSpread    *int64
	NoSpread     *int64
	Volume24h    int64
	YesBidDepth  int64
	NoBidDepth   int64
}

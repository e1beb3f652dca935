package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// PriceLevel is a single price+quantity entry in an orderbook. Prices are in
// cents (1-99), quantities in contracts.
type PriceLevel struct {
	Price    int64
	Quantity int64
}

// UnmarshalJSON accepts the exchange wire form, a two-element array
// [price, quantity].
func (l *PriceLevel) UnmarshalJSON(data []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("domain: price level: %w", err)
	}
	l.Price = pair[0]
	l.Quantity = pair[1]
	return nil
}

// MarshalJSON emits the same [price, quantity] array form.
func (l PriceLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int64{l.Price, l.Quantity})
}

// RawOrderbook is a per-market snapshot of resting bids for both binary
// outcome sides. Each side is sorted ascending by price, so the best bid is
// the LAST element. The exchange does not publish asks for most markets; the
// optional ask slices are populated only when real asks exist, sorted
// ascending so the best ask is the FIRST element.
type RawOrderbook struct {
	Ticker    string
	YesBids   []PriceLevel
	NoBids    []PriceLevel
	YesAsks   []PriceLevel
	NoAsks    []PriceLevel
	FetchedAt time.Time
}

// Empty reports whether the book has no bids on either side.
func (b RawOrderbook) Empty() bool {
	return len(b.YesBids) == 0 && len(b.NoBids) == 0
}

// Package pricing extracts best bid/ask prices from raw orderbooks using the
// implied-ask rule for binary markets.
package pricing

import "github.com/alanyoungcy/kalshibot/internal/domain"

// Extract converts a raw orderbook into MarketPricing. It returns nil when
// both bid sides are empty (insufficient data — callers must not treat the
// market as priced at zero).
//
// Best bid is the LAST element of each bid slice; the exchange sorts levels
// ascending by price. When the book carries real ask levels their FIRST
// element is the best ask; otherwise the ask is implied from the opposing
// bid: yes_ask = 100 - best_no_bid, no_ask = 100 - best_yes_bid. An implied
// ask needs the opposing bid to exist, so a one-sided book yields pricing
// with the unbid side's fields nil.
func Extract(book domain.RawOrderbook) *domain.MarketPricing {
	if book.Empty() {
		return nil
	}

	p := &domain.MarketPricing{
		YesBidDepth: depth(book.YesBids),
		NoBidDepth:  depth(book.NoBids),
	}

	if n := len(book.YesBids); n > 0 {
		p.BestYesBid = ptr(book.YesBids[n-1].Price)
	}
	if n := len(book.NoBids); n > 0 {
		p.BestNoBid = ptr(book.NoBids[n-1].Price)
	}

	// Real asks take precedence over the implied rule.
	if len(book.YesAsks) > 0 {
		p.BestYesAsk = ptr(book.YesAsks[0].Price)
	} else if p.BestNoBid != nil {
		p.BestYesAsk = ptr(100 - *p.BestNoBid)
		p.YesAskImplied = true
	}
	if len(book.NoAsks) > 0 {
		p.BestNoAsk = ptr(book.NoAsks[0].Price)
	} else if p.BestYesBid != nil {
		p.BestNoAsk = ptr(100 - *p.BestYesBid)
		p.NoAskImplied = true
	}

	// Spreads only exist when both sides of a quote exist.
	if p.BestYesBid != nil && p.BestYesAsk != nil {
		p.YesSpread = ptr(*p.BestYesAsk - *p.BestYesBid)
	}
	if p.BestNoBid != nil && p.BestNoAsk != nil {
		p.NoSpread = ptr(*p.BestNoAsk - *p.BestNoBid)
	}

	return p
}

func depth(levels []domain.PriceLevel) int64 {
	var total int64
	for _, l := range levels {
		total += l.Quantity
	}
	return total
}

func ptr(v int64) *int64 { return &v }

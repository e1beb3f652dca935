package domain

// MarketPricing holds best bid/ask prices extracted from one market's
// orderbook. Prices are in cents.
//
// The implied ask rule: the exchange only publishes bids for YES and bids for
// NO. Because a binary market's YES and NO must sum to 100¢, a missing ask is
// derived from the opposing bid:
//
//	yes_ask = 100 - best_no_bid
//	no_ask  = 100 - best_yes_bid
//
// A side without bids leaves the corresponding fields nil; nil means "no
// data", never zero. Spreads exist only when both bid and ask exist.
type MarketPricing struct {
	BestYesBid *int64
	BestNoBid  *int64
	BestYesAsk *int64
	BestNoAsk  *int64

	// YesAskImplied/NoAskImplied record whether the ask came from the implied
	// rule rather than a published ask level.
	YesAskImplied bool
	NoAskImplied  bool

	YesSpread *int64
	NoSpread  *int64

	YesBidDepth int64
	NoBidDepth  int64
}

// TwoSided reports whether the market has both a usable YES bid and ask.
func (p MarketPricing) TwoSided() bool {
	return p.BestYesBid != nil && p.BestYesAsk != nil
}

// Buyable reports whether the market has a usable YES ask.
func (p MarketPricing) Buyable() bool {
	return p.BestYesAsk != nil && *p.BestYesAsk > 0
}

// Sellable reports whether the market has a usable YES bid.
func (p MarketPricing) Sellable() bool {
	return p.BestYesBid != nil && *p.BestYesBid > 0
}

// MidPrice returns the YES mid-price when both bid and ask exist.
func (p MarketPricing) MidPrice() (float64, bool) {
	if p.BestYesBid == nil || p.BestYesAsk == nil {
		return 0, false
	}
	return float64(*p.BestYesBid+*p.BestYesAsk) / 2, true
}

package domain

import "time"

// CompleteEventData is the result of fetching ALL outcome markets for one
// event, not just the markets that surfaced in the discovery seed. The
// completeness ratio is the trust gate for downstream analysis: low
// completeness means the 100%-sum constraint was not observed in full.
type CompleteEventData struct {
	EventTicker          string
	TotalMarkets         int
	MarketsWithOrderbook int
	MarketsWithPricing   int
	Markets              []MarketData

	// SourceMarketCount is how many of the event's markets appeared in the
	// initial discovery seed. A large gap between it and TotalMarkets is
	// exactly the false-positive scenario full fetching exists to prevent.
	SourceMarketCount int
}

// Completeness returns markets_with_pricing / total_markets, in [0,1].
func (d CompleteEventData) Completeness() float64 {
	if d.TotalMarkets == 0 {
		return 0
	}
	return float64(d.MarketsWithPricing) / float64(d.TotalMarkets)
}

// DiscoveredBeyondSeed returns how many markets the full event fetch found
// that the discovery seed missed.
func (d CompleteEventData) DiscoveredBeyondSeed() int {
	n := d.TotalMarkets - d.SourceMarketCount
	if n < 0 {
		return 0
	}
	return n
}

// EventAnalysis is the arbitrage analysis of one mutually exclusive event.
// Sums and profits are in cents per unit basket.
type EventAnalysis struct {
	EventTicker string
	Markets     []MarketData // markets included in the sums

	SumYesAsks int64 // cost to buy YES on every included outcome
	SumYesBids int64 // premium from selling YES on every included outcome

	BuyArbProfit  int64 // 100 - SumYesAsks, or NoOpportunity sentinel
	SellArbProfit int64 // SumYesBids - 100, or NoOpportunity sentinel

	MarketCount     int   // markets included in the sums
	TotalMarkets    int   // all markets in the event, for coverage
	AggregateVolume int64 // 24h contract volume across the whole event
	Timestamp       time.Time
}

// NoOpportunity is the profit sentinel for events where a sum could not be
// formed at all (no usable asks or bids). It keeps HasBuyArb/HasSellArb
// false instead of reading an empty sum as a 100¢ profit.
const NoOpportunity int64 = -100

// Coverage returns the fraction of the event's markets with usable pricing.
func (a EventAnalysis) Coverage() float64 {
	if a.TotalMarkets == 0 {
		return 0
	}
	return float64(a.MarketCount) / float64(a.TotalMarkets)
}

// HasBuyArb reports whether buying YES on every outcome locks in a profit.
func (a EventAnalysis) HasBuyArb() bool { return a.BuyArbProfit > 0 }

// HasSellArb reports whether selling YES on every outcome locks in a profit.
func (a EventAnalysis) HasSellArb() bool { return a.SellArbProfit > 0 }

// HasOpportunity reports whether any arbitrage exists.
func (a EventAnalysis) HasOpportunity() bool { return a.HasBuyArb() || a.HasSellArb() }

// IsHighQuality applies the quality gate: an opportunity must exist AND
// coverage and aggregate volume must both clear their floors. Each condition
// is independently necessary; apparent profit never overrides them.
func (a EventAnalysis) IsHighQuality(minCoverage float64, minContracts int64) bool {
	if !a.HasOpportunity() {
		return false
	}
	if a.Coverage() < minCoverage {
		return false
	}
	if a.AggregateVolume < minContracts {
		return false
	}
	return true
}

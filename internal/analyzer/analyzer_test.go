package analyzer

import (
	"io"
	"log/slog"
	"testing"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func i64(v int64) *int64 { return &v }

func pricedMarket(ticker string, yesBid, yesAsk int64, volume int64) domain.MarketData {
	return domain.MarketData{
		Info: domain.MarketInfo{Ticker: ticker, Volume24h: volume},
		Pricing: &domain.MarketPricing{
			BestYesBid: i64(yesBid),
			BestYesAsk: i64(yesAsk),
		},
	}
}

func TestAnalyzeEventBuyArb(t *testing.T) {
	ev := domain.CompleteEventData{
		EventTicker:        "ELECTION-24",
		TotalMarkets:       3,
		MarketsWithPricing: 3,
		Markets: []domain.MarketData{
			pricedMarket("A", 28, 30, 5000),
			pricedMarket("B", 30, 32, 5000),
			pricedMarket("C", 33, 35, 5000),
		},
	}

	a := New(DefaultConfig(), testLogger())
	got := a.AnalyzeEvents([]domain.CompleteEventData{ev})
	if len(got) != 1 {
		t.Fatalf("analyses = %d, want 1", len(got))
	}
	an := got[0]
	if an.SumYesAsks != 97 {
		t.Fatalf("SumYesAsks = %d, want 97", an.SumYesAsks)
	}
	if an.BuyArbProfit != 3 {
		t.Fatalf("BuyArbProfit = %d, want 3", an.BuyArbProfit)
	}
	if an.SumYesBids != 91 || an.SellArbProfit != -9 {
		t.Fatalf("bids = %d profit = %d, want 91 / -9", an.SumYesBids, an.SellArbProfit)
	}
	if !an.HasBuyArb() || an.HasSellArb() {
		t.Fatalf("HasBuyArb/HasSellArb = %v/%v, want true/false", an.HasBuyArb(), an.HasSellArb())
	}
	if an.AggregateVolume != 15000 {
		t.Fatalf("AggregateVolume = %d, want 15000", an.AggregateVolume)
	}
}

func TestAnalyzeEventSellArb(t *testing.T) {
	ev := domain.CompleteEventData{
		EventTicker:        "OVERPRICED",
		TotalMarkets:       2,
		MarketsWithPricing: 2,
		Markets: []domain.MarketData{
			pricedMarket("A", 55, 58, 20000),
			pricedMarket("B", 50, 53, 20000),
		},
	}

	a := New(DefaultConfig(), testLogger())
	an := a.AnalyzeEvents([]domain.CompleteEventData{ev})[0]
	if an.SellArbProfit != 5 {
		t.Fatalf("SellArbProfit = %d, want 5", an.SellArbProfit)
	}
	if an.HasBuyArb() {
		t.Fatalf("HasBuyArb = true for ask sum %d", an.SumYesAsks)
	}
}

// A market with no usable ask must drop out of the sums instead of
// contributing zero, which would fabricate a buy arbitrage.
func TestAnalyzeEventUnpricedMarketExcluded(t *testing.T) {
	unpriced := domain.MarketData{
		Info: domain.MarketInfo{Ticker: "DARK", Volume24h: 3000},
	}
	ev := domain.CompleteEventData{
		EventTicker:        "PARTIAL",
		TotalMarkets:       3,
		MarketsWithPricing: 2,
		Markets: []domain.MarketData{
			pricedMarket("A", 40, 45, 4000),
			pricedMarket("B", 48, 52, 4000),
			unpriced,
		},
	}

	a := New(DefaultConfig(), testLogger())
	an := a.AnalyzeEvents([]domain.CompleteEventData{ev})[0]
	if an.MarketCount != 2 {
		t.Fatalf("MarketCount = %d, want 2", an.MarketCount)
	}
	if an.SumYesAsks != 97 {
		t.Fatalf("SumYesAsks = %d, want 97", an.SumYesAsks)
	}
	// The unpriced market still counts toward coverage and volume.
	if got := an.Coverage(); got < 0.66 || got > 0.67 {
		t.Fatalf("Coverage = %v, want 2/3", got)
	}
	if an.AggregateVolume != 11000 {
		t.Fatalf("AggregateVolume = %d, want 11000", an.AggregateVolume)
	}
}

// With nothing usable in an event the profits must read as the sentinel,
// never as a 100¢ windfall from an empty sum.
func TestAnalyzeEventEmptySumsUseSentinel(t *testing.T) {
	ev := domain.CompleteEventData{
		EventTicker:  "GHOST",
		TotalMarkets: 2,
		Markets: []domain.MarketData{
			{Info: domain.MarketInfo{Ticker: "A"}},
			{Info: domain.MarketInfo{Ticker: "B"}},
		},
	}

	a := New(DefaultConfig(), testLogger())
	an := a.AnalyzeEvents([]domain.CompleteEventData{ev})[0]
	if an.BuyArbProfit != domain.NoOpportunity || an.SellArbProfit != domain.NoOpportunity {
		t.Fatalf("profits = %d/%d, want sentinel", an.BuyArbProfit, an.SellArbProfit)
	}
	if an.HasOpportunity() {
		t.Fatal("HasOpportunity = true on empty sums")
	}
}

func TestAnalyzeEventsMarketCountBounds(t *testing.T) {
	single := domain.CompleteEventData{
		EventTicker:  "SINGLE",
		TotalMarkets: 1,
		Markets:      []domain.MarketData{pricedMarket("A", 40, 45, 1000)},
	}
	huge := domain.CompleteEventData{EventTicker: "HUGE", TotalMarkets: 80}

	a := New(DefaultConfig(), testLogger())
	got := a.AnalyzeEvents([]domain.CompleteEventData{single, huge})
	if len(got) != 0 {
		t.Fatalf("analyses = %d, want 0", len(got))
	}
}

func TestTwoSidedFilter(t *testing.T) {
	oneSided := domain.MarketData{
		Info:    domain.MarketInfo{Ticker: "ASK-ONLY"},
		Pricing: &domain.MarketPricing{BestYesAsk: i64(20)},
	}
	ev := domain.CompleteEventData{
		EventTicker:        "MIXED",
		TotalMarkets:       2,
		MarketsWithPricing: 2,
		Markets:            []domain.MarketData{pricedMarket("A", 60, 65, 0), oneSided},
	}

	strict := New(DefaultConfig(), testLogger())
	an := strict.AnalyzeEvents([]domain.CompleteEventData{ev})[0]
	if an.MarketCount != 1 || an.SumYesAsks != 65 {
		t.Fatalf("strict: count = %d asks = %d, want 1 / 65", an.MarketCount, an.SumYesAsks)
	}

	cfg := DefaultConfig()
	cfg.RequireTwoSided = false
	loose := New(cfg, testLogger())
	an = loose.AnalyzeEvents([]domain.CompleteEventData{ev})[0]
	if an.MarketCount != 2 || an.SumYesAsks != 85 {
		t.Fatalf("loose: count = %d asks = %d, want 2 / 85", an.MarketCount, an.SumYesAsks)
	}
	// The one-sided market never contributes a bid either way.
	if an.SumYesBids != 60 {
		t.Fatalf("loose: bids = %d, want 60", an.SumYesBids)
	}
}

func TestHighQualityGate(t *testing.T) {
	a := New(DefaultConfig(), testLogger())

	good := domain.EventAnalysis{
		EventTicker:     "GOOD",
		BuyArbProfit:    4,
		SellArbProfit:   domain.NoOpportunity,
		MarketCount:     10,
		TotalMarkets:    10,
		AggregateVolume: 50_000,
	}
	lowCoverage := good
	lowCoverage.EventTicker = "THIN"
	lowCoverage.MarketCount = 8 // 0.8 < 0.9
	lowVolume := good
	lowVolume.EventTicker = "ILLIQUID"
	lowVolume.AggregateVolume = 9_999
	noOpp := good
	noOpp.EventTicker = "FLAT"
	noOpp.BuyArbProfit = -2

	got := a.HighQuality([]domain.EventAnalysis{good, lowCoverage, lowVolume, noOpp})
	if len(got) != 1 || got[0].EventTicker != "GOOD" {
		t.Fatalf("HighQuality kept %d, want only GOOD", len(got))
	}
}

package strategy

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

func analysisFixture(buyProfit, sellProfit int64) domain.EventAnalysis {
	return domain.EventAnalysis{
		EventTicker: "KXTEST-26",
		Markets: []domain.MarketData{
			{
				Info:    domain.MarketInfo{Ticker: "KXTEST-26-A", Title: "Outcome A"},
				Pricing: &domain.MarketPricing{BestYesBid: i64(28), BestYesAsk: i64(30)},
			},
			{
				Info:    domain.MarketInfo{Ticker: "KXTEST-26-B", Title: "Outcome B"},
				Pricing: &domain.MarketPricing{BestYesBid: i64(63), BestYesAsk: i64(66)},
			},
		},
		SumYesAsks:    96,
		SumYesBids:    91,
		BuyArbProfit:  buyProfit,
		SellArbProfit: sellProfit,
		MarketCount:   2,
		TotalMarkets:  2,
	}
}

func TestGenerateBuyAllGroup(t *testing.T) {
	gen := New(DefaultConfig(), testLogger())
	groups := gen.Generate([]domain.EventAnalysis{analysisFixture(4, domain.NoOpportunity)})
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}

	grp := groups[0]
	if grp.Name != "BUY_ALL_KXTEST-26" {
		t.Fatalf("Name = %q", grp.Name)
	}
	if len(grp.Signals) != 2 {
		t.Fatalf("legs = %d, want 2", len(grp.Signals))
	}
	for _, s := range grp.Signals {
		if s.Side != domain.OrderSideBuy {
			t.Fatalf("leg %s side = %s, want buy", s.Ticker, s.Side)
		}
		if s.Size != 10 {
			t.Fatalf("leg %s size = %d, want 10", s.Ticker, s.Size)
		}
	}
	if grp.Signals[0].PriceCents != 30 || grp.Signals[1].PriceCents != 66 {
		t.Fatalf("leg prices = %d/%d, want asks 30/66",
			grp.Signals[0].PriceCents, grp.Signals[1].PriceCents)
	}
	// 4¢ per unit basket, 10 contracts: $0.40.
	if grp.ExpectedProfitUSD != 0.40 {
		t.Fatalf("ExpectedProfitUSD = %v, want 0.40", grp.ExpectedProfitUSD)
	}
	if got := grp.Signals[0].Confidence; got != 0.8 {
		t.Fatalf("Confidence = %v, want 0.8", got)
	}
}

func TestGenerateSellAllUsesBids(t *testing.T) {
	an := analysisFixture(domain.NoOpportunity, 6)
	an.SumYesBids = 106

	gen := New(DefaultConfig(), testLogger())
	groups := gen.Generate([]domain.EventAnalysis{an})
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}

	grp := groups[0]
	if grp.Name != "SELL_ALL_KXTEST-26" {
		t.Fatalf("Name = %q", grp.Name)
	}
	if grp.Signals[0].PriceCents != 28 || grp.Signals[1].PriceCents != 63 {
		t.Fatalf("leg prices = %d/%d, want bids 28/63",
			grp.Signals[0].PriceCents, grp.Signals[1].PriceCents)
	}
	// Profit beyond the saturation point caps confidence at 1.
	if got := grp.Signals[0].Confidence; got != 1 {
		t.Fatalf("Confidence = %v, want 1", got)
	}
}

func TestGenerateBothDirections(t *testing.T) {
	gen := New(DefaultConfig(), testLogger())
	groups := gen.Generate([]domain.EventAnalysis{analysisFixture(3, 2)})
	if len(groups) != 2 {
		t.Fatalf("groups = %d, want 2 for a crossed event", len(groups))
	}
}

func TestGenerateMinProfitFloor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinProfitCents = 3
	gen := New(cfg, testLogger())

	groups := gen.Generate([]domain.EventAnalysis{analysisFixture(2, domain.NoOpportunity)})
	if len(groups) != 0 {
		t.Fatalf("groups = %d, want 0 below profit floor", len(groups))
	}
}

// A leg whose quote vanished must abandon the whole basket; a partial basket
// is a directional bet, not an arbitrage.
func TestGenerateAbandonsBasketOnMissingQuote(t *testing.T) {
	an := analysisFixture(4, domain.NoOpportunity)
	an.Markets[1].Pricing.BestYesAsk = nil

	gen := New(DefaultConfig(), testLogger())
	groups := gen.Generate([]domain.EventAnalysis{an})
	if len(groups) != 0 {
		t.Fatalf("groups = %d, want 0 when a leg lost its ask", len(groups))
	}
}

// Package analyzer computes structural-arbitrage analyses over complete
// event data. In a mutually exclusive event the YES probabilities must sum to
// 100¢; a cheaper sum of asks is a buy arbitrage, a richer sum of bids a sell
// arbitrage.
package analyzer

import (
	"log/slog"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Config holds the analyzer's tunable policy. The coverage and volume floors
// are independently necessary quality gates: low coverage means the 100%-sum
// constraint was never observed in full, low volume means the position cannot
// be safely unwound.
type Config struct {
	// MinMarkets skips degenerate events (a one-market "event" has no
	// structural constraint); MaxMarkets skips pathological fan-out.
	MinMarkets int
	MaxMarkets int
	// RequireTwoSided excludes markets quoting only one side from the sums.
	RequireTwoSided bool
	MinCoverage     float64
	MinContracts    int64
}

// DefaultConfig returns the analyzer defaults.
func DefaultConfig() Config {
	return Config{
		MinMarkets:      2,
		MaxMarkets:      50,
		RequireTwoSided: true,
		MinCoverage:     0.9,
		MinContracts:    10_000,
	}
}

// Analyzer computes per-event arbitrage analyses.
type Analyzer struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Analyzer.
func New(cfg Config, logger *slog.Logger) *Analyzer {
	if cfg.MinMarkets <= 0 {
		cfg.MinMarkets = DefaultConfig().MinMarkets
	}
	if cfg.MaxMarkets <= 0 {
		cfg.MaxMarkets = DefaultConfig().MaxMarkets
	}
	return &Analyzer{cfg: cfg, logger: logger.With(slog.String("component", "analyzer"))}
}

// AnalyzeEvents analyzes each complete event. Events outside the market-count
// bounds are skipped entirely.
func (a *Analyzer) AnalyzeEvents(events []domain.CompleteEventData) []domain.EventAnalysis {
	analyses := make([]domain.EventAnalysis, 0, len(events))
	for _, ev := range events {
		if ev.TotalMarkets < a.cfg.MinMarkets || ev.TotalMarkets > a.cfg.MaxMarkets {
			a.logger.Debug("event skipped by market-count bounds",
				slog.String("event", ev.EventTicker),
				slog.Int("markets", ev.TotalMarkets),
			)
			continue
		}
		analyses = append(analyses, a.analyzeEvent(ev))
	}
	return analyses
}

// analyzeEvent forms the ask and bid sums over the event's usable markets.
// A market without a usable ask never contributes to the ask sum — missing
// data is missing, not zero.
func (a *Analyzer) analyzeEvent(ev domain.CompleteEventData) domain.EventAnalysis {
	var (
		sumAsks, sumBids int64
		volume           int64
		included         []domain.MarketData
	)

	for _, m := range ev.Markets {
		// Every discovered market contributes its reported volume, priced or
		// not; the liquidity gate concerns the whole event.
		volume += m.Info.Volume24h

		if m.Pricing == nil || !m.Pricing.Buyable() {
			continue
		}
		if a.cfg.RequireTwoSided && !m.Pricing.Sellable() {
			continue
		}

		sumAsks += *m.Pricing.BestYesAsk
		if m.Pricing.Sellable() {
			sumBids += *m.Pricing.BestYesBid
		}
		included = append(included, m)
	}

	buyProfit := domain.NoOpportunity
	if sumAsks > 0 {
		buyProfit = 100 - sumAsks
	}
	sellProfit := domain.NoOpportunity
	if sumBids > 0 {
		sellProfit = sumBids - 100
	}

	return domain.EventAnalysis{
		EventTicker:     ev.EventTicker,
		Markets:         included,
		SumYesAsks:      sumAsks,
		SumYesBids:      sumBids,
		BuyArbProfit:    buyProfit,
		SellArbProfit:   sellProfit,
		MarketCount:     len(included),
		TotalMarkets:    ev.TotalMarkets,
		AggregateVolume: volume,
		Timestamp:       time.Now().UTC(),
	}
}

// HighQuality filters analyses through the quality gate.
func (a *Analyzer) HighQuality(analyses []domain.EventAnalysis) []domain.EventAnalysis {
	var out []domain.EventAnalysis
	for _, an := range analyses {
		if an.IsHighQuality(a.cfg.MinCoverage, a.cfg.MinContracts) {
			out = append(out, an)
		}
	}
	return out
}

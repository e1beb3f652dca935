// Package strategy turns arbitrage analyses into executable signal baskets.
package strategy

import (
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/pricing"
)

const strategyName = "structural_arb"

// Config holds the signal generator's sizing and filtering policy.
type Config struct {
	// ContractsPerLeg is the fixed position size for every leg of a basket.
	// Uniform sizing is what makes the 100¢ settlement identity hold per unit.
	ContractsPerLeg int64
	// MinProfitCents drops opportunities too thin to survive fees and
	// slippage.
	MinProfitCents int64
	// FullConfidenceCents is the profit at which confidence saturates at 1.0.
	FullConfidenceCents int64
}

// DefaultConfig returns the generator defaults.
func DefaultConfig() Config {
	return Config{
		ContractsPerLeg:     10,
		MinProfitCents:      2,
		FullConfidenceCents: 5,
	}
}

// Generator builds signal groups from event analyses.
type Generator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Generator.
func New(cfg Config, logger *slog.Logger) *Generator {
	if cfg.ContractsPerLeg <= 0 {
		cfg.ContractsPerLeg = DefaultConfig().ContractsPerLeg
	}
	if cfg.FullConfidenceCents <= 0 {
		cfg.FullConfidenceCents = DefaultConfig().FullConfidenceCents
	}
	return &Generator{cfg: cfg, logger: logger.With(slog.String("component", "strategy"))}
}

// Generate emits one basket per profitable direction of each analysis. An
// event with both a buy and a sell arbitrage (crossed books) yields two
// groups.
func (g *Generator) Generate(analyses []domain.EventAnalysis) []domain.SignalGroup {
	var groups []domain.SignalGroup
	for _, an := range analyses {
		if an.HasBuyArb() && an.BuyArbProfit >= g.cfg.MinProfitCents {
			if grp, ok := g.buyAll(an); ok {
				groups = append(groups, grp)
			}
		}
		if an.HasSellArb() && an.SellArbProfit >= g.cfg.MinProfitCents {
			if grp, ok := g.sellAll(an); ok {
				groups = append(groups, grp)
			}
		}
	}
	return groups
}

// buyAll builds a basket buying YES on every outcome at its ask. If any
// included market has lost its ask the whole basket is abandoned: a partial
// basket is directional exposure, not an arbitrage.
func (g *Generator) buyAll(an domain.EventAnalysis) (domain.SignalGroup, bool) {
	now := time.Now().UTC()
	conf := g.confidence(an.BuyArbProfit)

	signals := make([]domain.Signal, 0, len(an.Markets))
	for _, m := range an.Markets {
		if m.Pricing == nil || m.Pricing.BestYesAsk == nil {
			g.logger.Warn("ask vanished between analysis and signal generation",
				slog.String("event", an.EventTicker),
				slog.String("market", m.Info.Ticker),
			)
			return domain.SignalGroup{}, false
		}
		signals = append(signals, domain.Signal{
			Ticker:     m.Info.Ticker,
			Side:       domain.OrderSideBuy,
			PriceCents: *m.Pricing.BestYesAsk,
			Size:       g.cfg.ContractsPerLeg,
			Strategy:   strategyName,
			Confidence: conf,
			Metadata:   legMetadata(an, m),
			CreatedAt:  now,
		})
		g.warnThinLeg(an.EventTicker, m, domain.OrderSideBuy)
	}

	grp := domain.SignalGroup{
		Name:              "BUY_ALL_" + an.EventTicker,
		EventTicker:       an.EventTicker,
		Signals:           signals,
		ExpectedProfitUSD: profitUSD(an.BuyArbProfit, g.cfg.ContractsPerLeg),
		Strategy:          strategyName,
		Metadata: map[string]string{
			"direction":     "buy_all",
			"profit_cents":  strconv.FormatInt(an.BuyArbProfit, 10),
			"sum_yes_asks":  strconv.FormatInt(an.SumYesAsks, 10),
			"coverage":      fmt.Sprintf("%.3f", an.Coverage()),
			"market_count":  strconv.Itoa(an.MarketCount),
			"total_markets": strconv.Itoa(an.TotalMarkets),
		},
	}
	g.logGroup(grp, an.BuyArbProfit)
	return grp, true
}

// sellAll mirrors buyAll: sell YES on every outcome at its bid.
func (g *Generator) sellAll(an domain.EventAnalysis) (domain.SignalGroup, bool) {
	now := time.Now().UTC()
	conf := g.confidence(an.SellArbProfit)

	signals := make([]domain.Signal, 0, len(an.Markets))
	for _, m := range an.Markets {
		if m.Pricing == nil || m.Pricing.BestYesBid == nil {
			g.logger.Warn("bid vanished between analysis and signal generation",
				slog.String("event", an.EventTicker),
				slog.String("market", m.Info.Ticker),
			)
			return domain.SignalGroup{}, false
		}
		signals = append(signals, domain.Signal{
			Ticker:     m.Info.Ticker,
			Side:       domain.OrderSideSell,
			PriceCents: *m.Pricing.BestYesBid,
			Size:       g.cfg.ContractsPerLeg,
			Strategy:   strategyName,
			Confidence: conf,
			Metadata:   legMetadata(an, m),
			CreatedAt:  now,
		})
		g.warnThinLeg(an.EventTicker, m, domain.OrderSideSell)
	}

	grp := domain.SignalGroup{
		Name:              "SELL_ALL_" + an.EventTicker,
		EventTicker:       an.EventTicker,
		Signals:           signals,
		ExpectedProfitUSD: profitUSD(an.SellArbProfit, g.cfg.ContractsPerLeg),
		Strategy:          strategyName,
		Metadata: map[string]string{
			"direction":     "sell_all",
			"profit_cents":  strconv.FormatInt(an.SellArbProfit, 10),
			"sum_yes_bids":  strconv.FormatInt(an.SumYesBids, 10),
			"coverage":      fmt.Sprintf("%.3f", an.Coverage()),
			"market_count":  strconv.Itoa(an.MarketCount),
			"total_markets": strconv.Itoa(an.TotalMarkets),
		},
	}
	g.logGroup(grp, an.SellArbProfit)
	return grp, true
}

// confidence scales linearly with profit and saturates at 1.0.
func (g *Generator) confidence(profitCents int64) float64 {
	c := float64(profitCents) / float64(g.cfg.FullConfidenceCents)
	if c > 1 {
		return 1
	}
	if c < 0 {
		return 0
	}
	return c
}

func profitUSD(profitCents, size int64) float64 {
	return float64(profitCents*size) / 100
}

// depthWindowCents bounds how far from the best level resting quantity still
// counts toward a leg's available liquidity.
const depthWindowCents = 5

// warnThinLeg flags legs whose backing liquidity is below the position size.
// A buy leg lifts the implied YES ask, which is filled against resting NO
// bids; a sell leg hits the YES bids directly.
func (g *Generator) warnThinLeg(eventTicker string, m domain.MarketData, side domain.OrderSide) {
	if m.Book == nil {
		return
	}
	bids := m.Book.YesBids
	if side == domain.OrderSideBuy {
		bids = m.Book.NoBids
	}
	if depth := pricing.DepthNearBest(bids, depthWindowCents); depth < g.cfg.ContractsPerLeg {
		g.logger.Warn("thin liquidity behind leg",
			slog.String("event", eventTicker),
			slog.String("market", m.Info.Ticker),
			slog.String("side", string(side)),
			slog.Int64("depth", depth),
			slog.Int64("size", g.cfg.ContractsPerLeg),
		)
	}
}

func legMetadata(an domain.EventAnalysis, m domain.MarketData) map[string]string {
	return map[string]string{
		"event_ticker": an.EventTicker,
		"market_title": m.Info.Title,
	}
}

func (g *Generator) logGroup(grp domain.SignalGroup, profitCents int64) {
	g.logger.Info("signal group generated",
		slog.String("group", grp.Name),
		slog.Int("legs", len(grp.Signals)),
		slog.Int64("profit_cents", profitCents),
		slog.Float64("expected_profit_usd", grp.ExpectedProfitUSD),
	)
}

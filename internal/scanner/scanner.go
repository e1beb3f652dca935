// Package scanner turns a cheap discovery signal (top markets by volume)
// into trustworthy, complete per-event market data. The seed only says which
// events are active; every outcome market of a safe event is fetched in full
// before analysis, because a partially observed event produces false
// arbitrage positives.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/kalshibot/internal/classifier"
	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/pricing"
)

// MarketLister retrieves market metadata from the exchange.
type MarketLister interface {
	// ListOpenMarkets pages through open markets; limit bounds the page size.
	ListOpenMarkets(ctx context.Context, limit int, cursor string) ([]domain.MarketInfo, string, error)
	// ListMarketsByEvent returns every market belonging to one event.
	ListMarketsByEvent(ctx context.Context, eventTicker string) ([]domain.MarketInfo, error)
}

// OrderbookFetcher retrieves one market's raw orderbook.
type OrderbookFetcher interface {
	GetOrderbook(ctx context.Context, ticker string) (domain.RawOrderbook, error)
}

// Config holds the scanner's tunables.
type Config struct {
	// TopN is how many top-volume markets seed event discovery.
	TopN int
	// MinVolume is the 24h contract volume floor for seed markets.
	MinVolume int64
	// OrderbookConcurrency bounds the orderbook fetch fan-out per event.
	OrderbookConcurrency int
}

// DefaultConfig returns the scanner defaults.
func DefaultConfig() Config {
	return Config{TopN: 100, MinVolume: 100, OrderbookConcurrency: 8}
}

// Result is the outcome of one discovery scan.
type Result struct {
	// CompleteEvents holds fully fetched data for every safe event.
	CompleteEvents map[string]domain.CompleteEventData
	// ExcludedEvents maps each rejected event to its exclusion reason.
	// Excluded events never reach analysis.
	ExcludedEvents map[string]string
	SeedMarkets    int
	ScannedAt      time.Time
}

// Markets returns the union of all complete events' markets.
func (r Result) Markets() []domain.MarketData {
	var all []domain.MarketData
	for _, ev := range r.CompleteEvents {
		all = append(all, ev.Markets...)
	}
	return all
}

// Scanner discovers safe, completely priced events.
type Scanner struct {
	markets    MarketLister
	books      OrderbookFetcher
	classifier *classifier.Classifier
	cfg        Config
	logger     *slog.Logger
}

// New creates a Scanner.
func New(markets MarketLister, books OrderbookFetcher, cls *classifier.Classifier, cfg Config, logger *slog.Logger) *Scanner {
	if cfg.TopN <= 0 {
		cfg.TopN = DefaultConfig().TopN
	}
	if cfg.OrderbookConcurrency <= 0 {
		cfg.OrderbookConcurrency = DefaultConfig().OrderbookConcurrency
	}
	return &Scanner{
		markets:    markets,
		books:      books,
		classifier: cls,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "scanner")),
	}
}

// Scan runs one full discovery pass: seed from top-volume markets, resolve
// unique events, classify, and fetch complete data for every safe event.
func (s *Scanner) Scan(ctx context.Context) (Result, error) {
	result := Result{
		CompleteEvents: make(map[string]domain.CompleteEventData),
		ExcludedEvents: make(map[string]string),
		ScannedAt:      time.Now().UTC(),
	}

	seed, err := s.topVolumeMarkets(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("scanner: seed markets: %w", err)
	}
	result.SeedMarkets = len(seed)
	s.logger.InfoContext(ctx, "discovery seed fetched", slog.Int("markets", len(seed)))

	// Unique events referenced by the seed, with per-event seed counts. The
	// counts feed source_market_count so a large discovery delta is visible.
	seedCounts := make(map[string]int)
	var eventTickers []string
	for _, m := range seed {
		if m.EventTicker == "" {
			continue
		}
		if seedCounts[m.EventTicker] == 0 {
			eventTickers = append(eventTickers, m.EventTicker)
		}
		seedCounts[m.EventTicker]++
	}
	s.logger.InfoContext(ctx, "unique events identified", slog.Int("events", len(eventTickers)))

	safe, excluded, err := s.classifier.FilterMutuallyExclusive(ctx, eventTickers)
	if err != nil {
		return Result{}, fmt.Errorf("scanner: classify events: %w", err)
	}
	result.ExcludedEvents = excluded
	s.logger.InfoContext(ctx, "events classified",
		slog.Int("safe", len(safe)),
		slog.Int("excluded", len(excluded)),
	)

	for _, eventTicker := range safe {
		complete, err := s.fetchCompleteEvent(ctx, eventTicker, seedCounts[eventTicker])
		if err != nil {
			// One event's discovery failure lowers the run's yield, not the
			// run itself.
			s.logger.WarnContext(ctx, "complete event fetch failed",
				slog.String("event", eventTicker),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.CompleteEvents[eventTicker] = complete

		if delta := complete.DiscoveredBeyondSeed(); delta > 0 {
			s.logger.InfoContext(ctx, "markets discovered beyond seed",
				slog.String("event", eventTicker),
				slog.Int("seed", complete.SourceMarketCount),
				slog.Int("total", complete.TotalMarkets),
				slog.Int("discovered", delta),
			)
		}
	}

	return result, nil
}

// topVolumeMarkets pages the open-markets listing, filters by the volume
// floor, and returns the top N by 24h volume.
func (s *Scanner) topVolumeMarkets(ctx context.Context) ([]domain.MarketInfo, error) {
	const pageSize = 200

	var all []domain.MarketInfo
	cursor := ""
	for len(all) < s.cfg.TopN*2 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, next, err := s.markets.ListOpenMarkets(ctx, pageSize, cursor)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		for _, m := range page {
			if m.Volume24h >= s.cfg.MinVolume {
				all = append(all, m)
			}
		}
		if next == "" || len(page) < pageSize {
			break
		}
		cursor = next
	}

	sort.Slice(all, func(i, j int) bool { return all[i].Volume24h > all[j].Volume24h })
	if len(all) > s.cfg.TopN {
		all = all[:s.cfg.TopN]
	}
	return all, nil
}

// fetchCompleteEvent fetches every outcome market of one event plus each
// market's orderbook pricing. Orderbook fetches run concurrently with a
// bounded limit; a failed fetch keeps the market in the set without pricing,
// lowering completeness instead of silently dropping the outcome.
func (s *Scanner) fetchCompleteEvent(ctx context.Context, eventTicker string, sourceCount int) (domain.CompleteEventData, error) {
	infos, err := s.markets.ListMarketsByEvent(ctx, eventTicker)
	if err != nil {
		return domain.CompleteEventData{}, fmt.Errorf("list markets for %s: %w", eventTicker, err)
	}

	markets := make([]domain.MarketData, len(infos))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.OrderbookConcurrency)
	for i, info := range infos {
		i, info := i, info
		g.Go(func() error {
			md := domain.MarketData{Info: info}
			book, err := s.books.GetOrderbook(gctx, info.Ticker)
			if err != nil {
				s.logger.WarnContext(gctx, "orderbook fetch failed",
					slog.String("ticker", info.Ticker),
					slog.String("error", err.Error()),
				)
			} else {
				md.Book = &book
				md.Pricing = pricing.Extract(book)
				if md.Pricing != nil && s.logger.Enabled(ctx, slog.LevelDebug) {
					attrs := []any{
						slog.String("ticker", info.Ticker),
						slog.Float64("imbalance", pricing.Imbalance(*md.Pricing)),
					}
					if vwap, ok := pricing.VWAP(book.YesBids, 5); ok {
						attrs = append(attrs, slog.Float64("yes_vwap", vwap))
					}
					s.logger.DebugContext(ctx, "book quality", attrs...)
				}
			}
			markets[i] = md
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.CompleteEventData{}, err
	}

	withBook, withPricing := 0, 0
	for _, m := range markets {
		if m.Book != nil {
			withBook++
		}
		if m.Pricing != nil && m.Pricing.Buyable() {
			withPricing++
		}
	}

	return domain.CompleteEventData{
		EventTicker:          eventTicker,
		TotalMarkets:         len(infos),
		MarketsWithOrderbook: withBook,
		MarketsWithPricing:   withPricing,
		Markets:              markets,
		SourceMarketCount:    sourceCount,
	}, nil
}

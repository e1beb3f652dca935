// Package pipeline wires discovery, analysis, signal generation, and
// execution into a periodic cycle.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/analyzer"
	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/executor"
	"github.com/alanyoungcy/kalshibot/internal/notify"
	"github.com/alanyoungcy/kalshibot/internal/scanner"
	"github.com/alanyoungcy/kalshibot/internal/strategy"
)

// ScanReporter uploads cycle artifacts to blob storage. The S3 archiver
// satisfies it.
type ScanReporter interface {
	WriteScanReport(ctx context.Context, scannedAt time.Time, analyses []domain.EventAnalysis) (string, error)
	ArchiveSnapshots(ctx context.Context, before time.Time) (string, int, error)
	ArchiveBaskets(ctx context.Context, limit int) (string, int, error)
}

// basketArchiveLimit bounds how many basket results each retention sweep
// uploads.
const basketArchiveLimit = 500

// SnapshotPruner deletes snapshots past retention. The Postgres snapshot
// store satisfies it.
type SnapshotPruner interface {
	DeleteBefore(ctx context.Context, before time.Time) (int64, error)
}

// Config holds the pipeline schedule and policy.
type Config struct {
	ScanInterval     time.Duration
	PersistSnapshots bool
	// AutoExecute submits generated baskets; off means signals are only
	// logged and alerted.
	AutoExecute          bool
	ArchiveRetentionDays int
	LockTTL              time.Duration
}

// Pipeline runs the scan-analyze-signal-execute cycle. Every collaborator
// past the first four is optional; a nil store, cache, reporter, alerts, or
// lock manager simply disables that concern.
type Pipeline struct {
	scanner   *scanner.Scanner
	analyzer  *analyzer.Analyzer
	generator *strategy.Generator
	execMgr   *executor.Manager

	snapshots    domain.SnapshotStore
	pricingCache domain.PricingCache
	reporter     ScanReporter
	pruner       SnapshotPruner
	alerts       *notify.Alerts
	locks        domain.LockManager

	cfg    Config
	logger *slog.Logger
}

// New creates a Pipeline.
func New(
	sc *scanner.Scanner,
	an *analyzer.Analyzer,
	gen *strategy.Generator,
	execMgr *executor.Manager,
	cfg Config,
	logger *slog.Logger,
) *Pipeline {
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = 5 * time.Minute
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 10 * time.Minute
	}
	return &Pipeline{
		scanner:   sc,
		analyzer:  an,
		generator: gen,
		execMgr:   execMgr,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "pipeline")),
	}
}

// WithSnapshots enables snapshot persistence and retention pruning.
func (p *Pipeline) WithSnapshots(store domain.SnapshotStore, pruner SnapshotPruner) *Pipeline {
	p.snapshots = store
	p.pruner = pruner
	return p
}

// WithPricingCache enables per-market pricing cache writes.
func (p *Pipeline) WithPricingCache(cache domain.PricingCache) *Pipeline {
	p.pricingCache = cache
	return p
}

// WithReporter enables blob-storage scan reports and snapshot archival.
func (p *Pipeline) WithReporter(r ScanReporter) *Pipeline {
	p.reporter = r
	return p
}

// WithAlerts enables operator notifications.
func (p *Pipeline) WithAlerts(a *notify.Alerts) *Pipeline {
	p.alerts = a
	return p
}

// WithLocks makes each cycle acquire a distributed lock first, so only one
// instance trades at a time.
func (p *Pipeline) WithLocks(lm domain.LockManager) *Pipeline {
	p.locks = lm
	return p
}

// CycleReport summarizes one pipeline cycle.
type CycleReport struct {
	ScannedAt      time.Time
	CompleteEvents int
	ExcludedEvents int
	Analyses       []domain.EventAnalysis
	HighQuality    []domain.EventAnalysis
	Groups         []domain.SignalGroup
	Baskets        []domain.BasketResult
}

// RunOnce executes a single cycle: scan, persist, analyze, generate, and
// optionally execute. Persistence and alert failures are logged but never
// abort the cycle; a failed insert must not stop trading.
func (p *Pipeline) RunOnce(ctx context.Context) (CycleReport, error) {
	scan, err := p.scanner.Scan(ctx)
	if err != nil {
		return CycleReport{}, err
	}

	report := CycleReport{
		ScannedAt:      scan.ScannedAt,
		CompleteEvents: len(scan.CompleteEvents),
		ExcludedEvents: len(scan.ExcludedEvents),
	}

	p.persist(ctx, scan)

	events := make([]domain.CompleteEventData, 0, len(scan.CompleteEvents))
	for _, ev := range scan.CompleteEvents {
		events = append(events, ev)
	}
	report.Analyses = p.analyzer.AnalyzeEvents(events)
	report.HighQuality = p.analyzer.HighQuality(report.Analyses)

	for _, an := range report.HighQuality {
		p.logger.Info("high-quality opportunity",
			slog.String("event", an.EventTicker),
			slog.Int64("buy_profit_cents", an.BuyArbProfit),
			slog.Int64("sell_profit_cents", an.SellArbProfit),
			slog.Float64("coverage", an.Coverage()),
		)
		if p.alerts != nil {
			if err := p.alerts.Opportunity(ctx, an); err != nil {
				p.logger.Warn("opportunity alert failed", slog.String("error", err.Error()))
			}
		}
	}

	report.Groups = p.generator.Generate(report.HighQuality)

	if p.execMgr != nil && p.cfg.AutoExecute {
		for _, grp := range report.Groups {
			basket, err := p.execMgr.ExecuteBasket(ctx, grp)
			if err != nil {
				p.logger.Warn("basket rejected",
					slog.String("group", grp.Name),
					slog.String("error", err.Error()),
				)
			}
			report.Baskets = append(report.Baskets, basket)
			if p.alerts != nil {
				if err := p.alerts.Basket(ctx, basket); err != nil {
					p.logger.Warn("basket alert failed", slog.String("error", err.Error()))
				}
			}
		}
	}

	if p.reporter != nil {
		key, err := p.reporter.WriteScanReport(ctx, scan.ScannedAt, report.Analyses)
		if err != nil {
			p.logger.Warn("scan report upload failed", slog.String("error", err.Error()))
		} else if key != "" {
			p.logger.Debug("scan report uploaded", slog.String("key", key))
		}
	}

	p.logger.Info("cycle complete",
		slog.Int("complete_events", report.CompleteEvents),
		slog.Int("excluded_events", report.ExcludedEvents),
		slog.Int("opportunities", len(report.HighQuality)),
		slog.Int("groups", len(report.Groups)),
		slog.Int("baskets", len(report.Baskets)),
	)
	return report, nil
}

// persist writes snapshots and pricing cache entries from one scan.
func (p *Pipeline) persist(ctx context.Context, scan scanner.Result) {
	markets := scan.Markets()

	if p.snapshots != nil && p.cfg.PersistSnapshots {
		snaps := make([]domain.MarketSnapshot, 0, len(markets))
		for _, m := range markets {
			if m.Pricing == nil {
				continue
			}
			snaps = append(snaps, domain.MarketSnapshot{
				SnapshotTS:   scan.ScannedAt,
				Ticker:       m.Info.Ticker,
				EventTicker:  m.Info.EventTicker,
				SeriesTicker: m.Info.SeriesTicker,
				Title:        m.Info.Title,
				BestYesBid:   m.Pricing.BestYesBid,
				BestYesAsk:   m.Pricing.BestYesAsk,
				BestNoBid:    m.Pricing.BestNoBid,
				BestNoAsk:    m.Pricing.BestNoAsk,
				YesSpread:    m.Pricing.YesSpread,
				NoSpread:     m.Pricing.NoSpread,
				Volume24h:    m.Info.Volume24h,
				YesBidDepth:  m.Pricing.YesBidDepth,
				NoBidDepth:   m.Pricing.NoBidDepth,
			})
		}
		if err := p.snapshots.InsertBatch(ctx, snaps); err != nil {
			p.logger.Error("snapshot persistence failed",
				slog.Int("count", len(snaps)),
				slog.String("error", err.Error()),
			)
		}
	}

	if p.pricingCache != nil {
		for _, m := range markets {
			if m.Pricing == nil {
				continue
			}
			if err := p.pricingCache.Set(ctx, m.Info.Ticker, *m.Pricing); err != nil {
				p.logger.Warn("pricing cache write failed",
					slog.String("ticker", m.Info.Ticker),
					slog.String("error", err.Error()),
				)
				break
			}
		}
	}
}

// Run executes cycles on the configured interval until ctx is cancelled. The
// first cycle runs immediately. When a lock manager is configured, a cycle
// held by another instance is skipped, not queued.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline starting",
		slog.Duration("scan_interval", p.cfg.ScanInterval),
		slog.Bool("auto_execute", p.cfg.AutoExecute),
	)

	ticker := time.NewTicker(p.cfg.ScanInterval)
	defer ticker.Stop()

	retention := time.NewTicker(24 * time.Hour)
	defer retention.Stop()

	p.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopped")
			return ctx.Err()
		case <-ticker.C:
			p.cycle(ctx)
		case <-retention.C:
			p.sweepRetention(ctx)
		}
	}
}

func (p *Pipeline) cycle(ctx context.Context) {
	if p.locks != nil {
		unlock, err := p.locks.Acquire(ctx, "pipeline:cycle", p.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				p.logger.Info("cycle skipped, lock held by another instance")
			} else {
				p.logger.Error("lock acquisition failed", slog.String("error", err.Error()))
			}
			return
		}
		defer unlock()
	}

	if _, err := p.RunOnce(ctx); err != nil && ctx.Err() == nil {
		p.logger.Error("cycle failed", slog.String("error", err.Error()))
	}
}

// sweepRetention archives snapshots past retention to blob storage and then
// prunes them. Pruning only happens after a successful archive. Basket
// results go up alongside the snapshots but are never pruned here.
func (p *Pipeline) sweepRetention(ctx context.Context) {
	if p.cfg.ArchiveRetentionDays <= 0 || p.pruner == nil {
		return
	}
	cutoff := time.Now().UTC().AddDate(0, 0, -p.cfg.ArchiveRetentionDays)

	if p.reporter != nil {
		key, n, err := p.reporter.ArchiveSnapshots(ctx, cutoff)
		if err != nil {
			p.logger.Error("snapshot archive failed", slog.String("error", err.Error()))
			return
		}
		if n > 0 {
			p.logger.Info("snapshots archived",
				slog.String("key", key),
				slog.Int("count", n),
			)
		}

		key, n, err = p.reporter.ArchiveBaskets(ctx, basketArchiveLimit)
		if err != nil {
			p.logger.Error("basket archive failed", slog.String("error", err.Error()))
		} else if n > 0 {
			p.logger.Info("baskets archived",
				slog.String("key", key),
				slog.Int("count", n),
			)
		}
	}

	deleted, err := p.pruner.DeleteBefore(ctx, cutoff)
	if err != nil {
		p.logger.Error("snapshot retention sweep failed", slog.String("error", err.Error()))
		return
	}
	if deleted > 0 {
		p.logger.Info("snapshots pruned", slog.Int64("deleted", deleted))
	}
}

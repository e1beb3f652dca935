package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alanyoungcy/kalshibot/internal/analyzer"
	"github.com/alanyoungcy/kalshibot/internal/classifier"
	"github.com/alanyoungcy/kalshibot/internal/executor"
	"github.com/alanyoungcy/kalshibot/internal/pipeline"
	"github.com/alanyoungcy/kalshibot/internal/scanner"
	"github.com/alanyoungcy/kalshibot/internal/strategy"
)

// ScanMode runs discovery and analysis only. Opportunities are logged,
// persisted, and alerted, but no orders are ever created.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")
	return a.buildPipeline(deps, nil).Run(ctx)
}

// PaperMode runs the full pipeline including execution, but fills are
// simulated at the signal price. The executor's paper flag is forced on no
// matter what the config says.
func (a *App) PaperMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting paper mode")

	execCfg := a.executorConfig()
	execCfg.PaperMode = true
	mgr := executor.NewManager(deps.Gateway, deps.BasketStore, execCfg, a.logger)
	a.watchKillSignal(ctx, mgr, deps)
	return a.buildPipeline(deps, mgr).Run(ctx)
}

// TradeMode runs the full pipeline with live order submission. Validate has
// already refused paper_mode=true here.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting trade mode",
		slog.Float64("max_basket_cost_usd", a.cfg.Execution.MaxBasketCostUSD),
	)

	mgr := executor.NewManager(deps.Gateway, deps.BasketStore, a.executorConfig(), a.logger)
	a.watchKillSignal(ctx, mgr, deps)
	return a.buildPipeline(deps, mgr).Run(ctx)
}

// watchKillSignal engages the executor kill switch on SIGUSR1 and releases it
// on SIGUSR2, so an operator can halt trading without stopping the scan loop.
func (a *App) watchKillSignal(ctx context.Context, mgr *executor.Manager, deps *Dependencies) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1, syscall.SIGUSR2)
	go func() {
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case sig := <-ch:
				if sig == syscall.SIGUSR1 {
					mgr.Kill()
					a.logger.Warn("kill switch engaged by operator signal")
					if err := deps.Alerts.KillSwitch(ctx, "operator signal SIGUSR1"); err != nil {
						a.logger.Warn("kill switch alert failed", slog.String("error", err.Error()))
					}
				} else {
					mgr.Resume()
					a.logger.Info("kill switch released by operator signal")
				}
			}
		}
	}()
}

// pipelineForMode builds the mode-appropriate pipeline without starting it.
func (a *App) pipelineForMode(deps *Dependencies) (*pipeline.Pipeline, error) {
	switch strings.ToLower(a.cfg.Mode) {
	case "scan":
		return a.buildPipeline(deps, nil), nil
	case "paper":
		execCfg := a.executorConfig()
		execCfg.PaperMode = true
		mgr := executor.NewManager(deps.Gateway, deps.BasketStore, execCfg, a.logger)
		return a.buildPipeline(deps, mgr), nil
	case "trade":
		mgr := executor.NewManager(deps.Gateway, deps.BasketStore, a.executorConfig(), a.logger)
		return a.buildPipeline(deps, mgr), nil
	default:
		return nil, fmt.Errorf("app: unsupported mode %q", a.cfg.Mode)
	}
}

func (a *App) executorConfig() executor.Config {
	return executor.Config{
		PaperMode:            a.cfg.Execution.PaperMode,
		MaxLegs:              a.cfg.Execution.MaxLegs,
		MaxBasketCostUSD:     a.cfg.Execution.MaxBasketCostUSD,
		MaxPositionPerMarket: a.cfg.Execution.MaxPositionPerMarket,
		MinConfidence:        a.cfg.Execution.MinConfidence,
		PollInterval:         a.cfg.Execution.PollInterval.Duration,
		PollTimeout:          a.cfg.Execution.PollTimeout.Duration,
		DedupTTL:             a.cfg.Execution.DedupTTL.Duration,
		PaperFillDelay:       a.cfg.Execution.PaperFillDelay.Duration,
	}
}

// buildPipeline assembles the scan-analyze-signal-execute pipeline from wired
// dependencies. A nil executor disables execution entirely.
func (a *App) buildPipeline(deps *Dependencies, mgr *executor.Manager) *pipeline.Pipeline {
	clsCfg := classifier.DefaultConfig()
	if a.cfg.Classifier.CacheTTL.Duration > 0 {
		clsCfg.CacheTTL = a.cfg.Classifier.CacheTTL.Duration
	}
	if a.cfg.Classifier.MinConfidence > 0 {
		clsCfg.MinConfidence = a.cfg.Classifier.MinConfidence
	}
	cls := classifier.New(deps.Client, deps.ClassificationCache, clsCfg, a.logger)

	sc := scanner.New(deps.Client, deps.Client, cls, scanner.Config{
		TopN:                 a.cfg.Scanner.TopN,
		MinVolume:            a.cfg.Scanner.MinVolume,
		OrderbookConcurrency: a.cfg.Scanner.OrderbookConcurrency,
	}, a.logger)

	an := analyzer.New(analyzer.Config{
		MinMarkets:      a.cfg.Analyzer.MinMarkets,
		MaxMarkets:      a.cfg.Analyzer.MaxMarkets,
		RequireTwoSided: a.cfg.Analyzer.RequireTwoSided,
		MinCoverage:     a.cfg.Analyzer.MinCoverage,
		MinContracts:    a.cfg.Analyzer.MinContracts,
	}, a.logger)

	gen := strategy.New(strategy.Config{
		ContractsPerLeg:     a.cfg.Strategy.ContractsPerLeg,
		MinProfitCents:      a.cfg.Strategy.MinProfitCents,
		FullConfidenceCents: a.cfg.Strategy.FullConfidenceCents,
	}, a.logger)

	p := pipeline.New(sc, an, gen, mgr, pipeline.Config{
		ScanInterval:         a.cfg.Pipeline.ScanInterval.Duration,
		PersistSnapshots:     a.cfg.Pipeline.PersistSnapshots,
		AutoExecute:          mgr != nil && a.cfg.Execution.AutoExecute,
		ArchiveRetentionDays: a.cfg.Pipeline.ArchiveRetentionDays,
		LockTTL:              a.cfg.Pipeline.LockTTL.Duration,
	}, a.logger)

	p.WithSnapshots(deps.SnapshotStore, deps.SnapshotStore)
	p.WithAlerts(deps.Alerts)
	if deps.PricingCache != nil {
		p.WithPricingCache(deps.PricingCache)
	}
	if deps.Archiver != nil {
		p.WithReporter(deps.Archiver)
	}
	if deps.LockManager != nil {
		p.WithLocks(deps.LockManager)
	}
	return p
}

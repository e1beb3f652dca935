package pipeline

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/analyzer"
	"github.com/alanyoungcy/kalshibot/internal/classifier"
	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/executor"
	"github.com/alanyoungcy/kalshibot/internal/scanner"
	"github.com/alanyoungcy/kalshibot/internal/strategy"
)

type fakeExchange struct {
	open    []domain.MarketInfo
	byEvent map[string][]domain.MarketInfo
	books   map[string]domain.RawOrderbook
	events  map[string]domain.EventMetadata
}

func (f *fakeExchange) ListOpenMarkets(_ context.Context, _ int, cursor string) ([]domain.MarketInfo, string, error) {
	if cursor != "" {
		return nil, "", nil
	}
	return f.open, "", nil
}

func (f *fakeExchange) ListMarketsByEvent(_ context.Context, eventTicker string) ([]domain.MarketInfo, error) {
	return f.byEvent[eventTicker], nil
}

func (f *fakeExchange) GetOrderbook(_ context.Context, ticker string) (domain.RawOrderbook, error) {
	book, ok := f.books[ticker]
	if !ok {
		return domain.RawOrderbook{}, domain.ErrNotFound
	}
	return book, nil
}

func (f *fakeExchange) GetEvent(_ context.Context, ticker string) (domain.EventMetadata, error) {
	meta, ok := f.events[ticker]
	if !ok {
		return domain.EventMetadata{}, domain.ErrNotFound
	}
	return meta, nil
}

type fakeSnapshotStore struct {
	mu      sync.Mutex
	batches [][]domain.MarketSnapshot
	err     error
}

func (f *fakeSnapshotStore) InsertBatch(_ context.Context, snaps []domain.MarketSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, snaps)
	return nil
}

func (f *fakeSnapshotStore) ListByTicker(context.Context, string, time.Time) ([]domain.MarketSnapshot, error) {
	return nil, nil
}

func (f *fakeSnapshotStore) ListBefore(context.Context, time.Time) ([]domain.MarketSnapshot, error) {
	return nil, nil
}

type fakeReporter struct {
	mu             sync.Mutex
	reports        int
	archives       int
	basketArchives int
}

func (f *fakeReporter) WriteScanReport(_ context.Context, _ time.Time, _ []domain.EventAnalysis) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reports++
	return "kalshibot/scans/test.json", nil
}

func (f *fakeReporter) ArchiveSnapshots(_ context.Context, _ time.Time) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.archives++
	return "kalshibot/snapshots/test.jsonl", 3, nil
}

func (f *fakeReporter) ArchiveBaskets(_ context.Context, _ int) (string, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.basketArchives++
	return "kalshibot/baskets/test.jsonl", 2, nil
}

type fakePruner struct {
	mu      sync.Mutex
	deleted int64
	calls   int
}

func (f *fakePruner) DeleteBefore(_ context.Context, _ time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.deleted, nil
}

type fakeLockManager struct {
	mu       sync.Mutex
	held     bool
	acquires int
	releases int
}

func (f *fakeLockManager) Acquire(_ context.Context, _ string, _ time.Duration) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquires++
	if f.held {
		return nil, domain.ErrLockHeld
	}
	return func() {
		f.mu.Lock()
		f.releases++
		f.mu.Unlock()
	}, nil
}

// noopGateway exists only to satisfy the executor constructor; paper mode
// never submits through it.
type noopGateway struct{}

func (noopGateway) SubmitOrder(context.Context, executor.OrderRequest) (executor.OrderState, error) {
	return executor.OrderState{}, domain.ErrInvalidOrder
}

func (noopGateway) GetOrder(context.Context, string) (executor.OrderState, error) {
	return executor.OrderState{}, domain.ErrNotFound
}

func (noopGateway) CancelOrder(context.Context, string) error { return nil }

func yes(b bool) *bool { return &b }

func book(yesBid, noBid, depth int64) domain.RawOrderbook {
	return domain.RawOrderbook{
		YesBids:   []domain.PriceLevel{{Price: yesBid, Quantity: depth}},
		NoBids:    []domain.PriceLevel{{Price: noBid, Quantity: depth}},
		FetchedAt: time.Now(),
	}
}

// arbExchange builds a two-market mutually exclusive event whose implied
// asks sum below 100, i.e. a buy-side opportunity.
func arbExchange() *fakeExchange {
	open := []domain.MarketInfo{
		{Ticker: "EV-A", EventTicker: "EV", Status: domain.MarketStatusOpen, Volume24h: 8000},
		{Ticker: "EV-B", EventTicker: "EV", Status: domain.MarketStatusOpen, Volume24h: 7000},
	}
	return &fakeExchange{
		open:    open,
		byEvent: map[string][]domain.MarketInfo{"EV": open},
		books: map[string]domain.RawOrderbook{
			// no bid 65 implies yes ask 35; no bid 45 implies yes ask 55.
			"EV-A": book(30, 65, 500),
			"EV-B": book(50, 45, 500),
		},
		events: map[string]domain.EventMetadata{
			"EV": {EventTicker: "EV", MutuallyExclusive: yes(true)},
		},
	}
}

func newTestPipeline(t *testing.T, ex *fakeExchange, cfg Config, execMgr *executor.Manager) *Pipeline {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cls := classifier.New(ex, classifier.NewMemoryCache(time.Hour), classifier.DefaultConfig(), logger)
	sc := scanner.New(ex, ex, cls, scanner.Config{TopN: 10, MinVolume: 50, OrderbookConcurrency: 2}, logger)
	an := analyzer.New(analyzer.DefaultConfig(), logger)
	gen := strategy.New(strategy.DefaultConfig(), logger)
	return New(sc, an, gen, execMgr, cfg, logger)
}

func TestRunOncePersistsAndReports(t *testing.T) {
	store := &fakeSnapshotStore{}
	reporter := &fakeReporter{}
	p := newTestPipeline(t, arbExchange(), Config{ScanInterval: time.Minute, PersistSnapshots: true}, nil).
		WithSnapshots(store, nil).
		WithReporter(reporter)

	report, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if report.CompleteEvents != 1 {
		t.Fatalf("complete events = %d, want 1", report.CompleteEvents)
	}
	if len(report.HighQuality) != 1 {
		t.Fatalf("high quality = %d, want 1", len(report.HighQuality))
	}
	// Asks 35 + 55 = 90, so the buy side clears 10 cents.
	if got := report.HighQuality[0].BuyArbProfit; got != 10 {
		t.Fatalf("buy profit = %d, want 10", got)
	}
	if len(store.batches) != 1 || len(store.batches[0]) != 2 {
		t.Fatalf("snapshot batches = %+v, want one batch of 2", store.batches)
	}
	if reporter.reports != 1 {
		t.Fatalf("scan reports = %d, want 1", reporter.reports)
	}
}

func TestRunOnceGeneratesSignalsWithoutExecuting(t *testing.T) {
	p := newTestPipeline(t, arbExchange(), Config{ScanInterval: time.Minute}, nil)

	report, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(report.Groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(report.Groups))
	}
	if report.Groups[0].Name != "BUY_ALL_EV" {
		t.Fatalf("group name = %q", report.Groups[0].Name)
	}
	if len(report.Baskets) != 0 {
		t.Fatalf("baskets = %d, want 0 without auto-execute", len(report.Baskets))
	}
}

func TestRunOnceAutoExecutesInPaperMode(t *testing.T) {
	execCfg := executor.DefaultConfig()
	execCfg.PaperMode = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := executor.NewManager(noopGateway{}, nil, execCfg, logger)

	p := newTestPipeline(t, arbExchange(), Config{ScanInterval: time.Minute, AutoExecute: true}, mgr)

	report, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(report.Baskets) != 1 {
		t.Fatalf("baskets = %d, want 1", len(report.Baskets))
	}
	basket := report.Baskets[0]
	if basket.Status != domain.BasketStatusComplete {
		t.Fatalf("basket status = %s, want %s", basket.Status, domain.BasketStatusComplete)
	}
	if len(basket.Orders) != 2 {
		t.Fatalf("basket orders = %d, want 2", len(basket.Orders))
	}
}

func TestSnapshotFailureDoesNotAbortCycle(t *testing.T) {
	store := &fakeSnapshotStore{err: domain.ErrInvalidOrder}
	p := newTestPipeline(t, arbExchange(), Config{ScanInterval: time.Minute, PersistSnapshots: true}, nil).
		WithSnapshots(store, nil)

	report, err := p.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(report.HighQuality) != 1 {
		t.Fatalf("high quality = %d, want 1 despite persistence failure", len(report.HighQuality))
	}
}

func TestCycleSkippedWhenLockHeld(t *testing.T) {
	lm := &fakeLockManager{held: true}
	store := &fakeSnapshotStore{}
	p := newTestPipeline(t, arbExchange(), Config{ScanInterval: time.Minute, PersistSnapshots: true}, nil).
		WithSnapshots(store, nil).
		WithLocks(lm)

	p.cycle(context.Background())

	if lm.acquires != 1 {
		t.Fatalf("acquires = %d, want 1", lm.acquires)
	}
	if len(store.batches) != 0 {
		t.Fatalf("cycle ran while lock was held")
	}
}

func TestCycleReleasesLock(t *testing.T) {
	lm := &fakeLockManager{}
	p := newTestPipeline(t, arbExchange(), Config{ScanInterval: time.Minute}, nil).
		WithLocks(lm)

	p.cycle(context.Background())

	if lm.acquires != 1 || lm.releases != 1 {
		t.Fatalf("acquires = %d releases = %d, want 1 and 1", lm.acquires, lm.releases)
	}
}

func TestRetentionSweepArchivesAndPrunes(t *testing.T) {
	store := &fakeSnapshotStore{}
	pruner := &fakePruner{deleted: 3}
	reporter := &fakeReporter{}
	p := newTestPipeline(t, arbExchange(), Config{ScanInterval: time.Minute, ArchiveRetentionDays: 7}, nil).
		WithSnapshots(store, pruner).
		WithReporter(reporter)

	p.sweepRetention(context.Background())

	if reporter.archives != 1 {
		t.Fatalf("snapshot archives = %d, want 1", reporter.archives)
	}
	if reporter.basketArchives != 1 {
		t.Fatalf("basket archives = %d, want 1", reporter.basketArchives)
	}
	if pruner.calls != 1 {
		t.Fatalf("pruner calls = %d, want 1", pruner.calls)
	}
}

func TestRetentionSweepDisabledWithoutRetention(t *testing.T) {
	pruner := &fakePruner{}
	reporter := &fakeReporter{}
	p := newTestPipeline(t, arbExchange(), Config{ScanInterval: time.Minute}, nil).
		WithSnapshots(&fakeSnapshotStore{}, pruner).
		WithReporter(reporter)

	p.sweepRetention(context.Background())

	if reporter.archives != 0 || reporter.basketArchives != 0 || pruner.calls != 0 {
		t.Fatalf("sweep ran with retention disabled: archives=%d baskets=%d prunes=%d",
			reporter.archives, reporter.basketArchives, pruner.calls)
	}
}

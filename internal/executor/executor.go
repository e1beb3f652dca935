// Package executor places multi-leg signal baskets on the exchange. The legs
// of a basket are submitted concurrently: an arbitrage only holds if every
// outcome is captured before the books move.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// OrderRequest is one leg submission.
type OrderRequest struct {
	Ticker        string
	Side          domain.OrderSide
	PriceCents    int64
	Count         int64
	ClientOrderID string
}

// OrderState is the exchange's view of a submitted order.
type OrderState struct {
	OrderID   string
	Status    domain.OrderStatus
	FillPrice *int64 // cents; nil until filled
	FillCount int64
}

// OrderGateway is the interface through which the executor talks to the
// exchange. Implemented by the Kalshi platform client.
type OrderGateway interface {
	SubmitOrder(ctx context.Context, req OrderRequest) (OrderState, error)
	GetOrder(ctx context.Context, orderID string) (OrderState, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// Config holds the executor's risk and polling policy.
type Config struct {
	// PaperMode simulates fills at the signal price instead of submitting to
	// the exchange. All other machinery runs unchanged.
	PaperMode bool
	// PaperFillDelay is how long a simulated fill takes, so the concurrent
	// leg fan-out behaves like it does live.
	PaperFillDelay time.Duration

	MaxLegs int
	// MaxPositionPerMarket caps any single leg's contract count. The notional
	// cap only covers buy legs, so this is what bounds sell baskets.
	MaxPositionPerMarket int64
	MaxBasketCostUSD     float64
	MinConfidence        float64

	PollInterval time.Duration
	PollTimeout  time.Duration
	DedupTTL     time.Duration
}

// DefaultConfig returns the executor defaults.
func DefaultConfig() Config {
	return Config{
		PaperMode:            true,
		PaperFillDelay:       25 * time.Millisecond,
		MaxLegs:              20,
		MaxPositionPerMarket: 100,
		MaxBasketCostUSD:     250,
		MinConfidence:        0.3,
		PollInterval:         500 * time.Millisecond,
		PollTimeout:          30 * time.Second,
		DedupTTL:             5 * time.Minute,
	}
}

// Manager executes signal baskets. The kill switch is checked at basket
// entry, before each leg's submission, and on every status poll; once engaged
// nothing new reaches the exchange.
type Manager struct {
	gateway OrderGateway
	store   domain.BasketStore // optional, nil disables persistence
	cfg     Config
	dedup   *Dedup
	logger  *slog.Logger

	kill atomic.Bool

	mu      sync.Mutex
	history []domain.BasketResult
}

// NewManager creates a Manager. store may be nil.
func NewManager(gateway OrderGateway, store domain.BasketStore, cfg Config, logger *slog.Logger) *Manager {
	def := DefaultConfig()
	if cfg.MaxLegs <= 0 {
		cfg.MaxLegs = def.MaxLegs
	}
	if cfg.MaxPositionPerMarket <= 0 {
		cfg.MaxPositionPerMarket = def.MaxPositionPerMarket
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = def.DedupTTL
	}
	return &Manager{
		gateway: gateway,
		store:   store,
		cfg:     cfg,
		dedup:   NewDedup(cfg.DedupTTL),
		logger:  logger.With(slog.String("component", "executor")),
	}
}

// Kill engages the kill switch. In-flight polls cancel their orders; no new
// submissions happen until Resume.
func (m *Manager) Kill() {
	m.kill.Store(true)
	m.logger.Warn("kill switch engaged")
}

// Resume releases the kill switch.
func (m *Manager) Resume() {
	m.kill.Store(false)
	m.logger.Info("kill switch released")
}

// Killed reports the kill switch state.
func (m *Manager) Killed() bool { return m.kill.Load() }

// ValidateGroup applies pre-trade checks. Any violation rejects the whole
// basket; there is no partial acceptance.
func (m *Manager) ValidateGroup(grp domain.SignalGroup) error {
	if len(grp.Signals) == 0 {
		return fmt.Errorf("%w: group %s has no legs", domain.ErrInvalidOrder, grp.Name)
	}
	if len(grp.Signals) > m.cfg.MaxLegs {
		return fmt.Errorf("%w: group %s has %d legs, cap %d",
			domain.ErrInvalidOrder, grp.Name, len(grp.Signals), m.cfg.MaxLegs)
	}
	for _, s := range grp.Signals {
		if s.PriceCents <= 0 || s.PriceCents >= 100 {
			return fmt.Errorf("%w: leg %s price %d¢ outside (0,100)",
				domain.ErrInvalidOrder, s.Ticker, s.PriceCents)
		}
		if s.Size <= 0 {
			return fmt.Errorf("%w: leg %s has size %d", domain.ErrInvalidOrder, s.Ticker, s.Size)
		}
		if s.Size > m.cfg.MaxPositionPerMarket {
			return fmt.Errorf("%w: leg %s size %d exceeds per-market cap %d",
				domain.ErrInvalidOrder, s.Ticker, s.Size, m.cfg.MaxPositionPerMarket)
		}
		if s.Confidence < m.cfg.MinConfidence {
			return fmt.Errorf("%w: leg %s confidence %.2f below floor %.2f",
				domain.ErrInvalidOrder, s.Ticker, s.Confidence, m.cfg.MinConfidence)
		}
	}
	if m.cfg.MaxBasketCostUSD > 0 {
		if cost := grp.TotalBuyCostUSD(); cost > m.cfg.MaxBasketCostUSD {
			return fmt.Errorf("%w: group %s costs $%.2f, cap $%.2f",
				domain.ErrInvalidOrder, grp.Name, cost, m.cfg.MaxBasketCostUSD)
		}
	}
	return nil
}

// ExecuteBasket runs one signal group end to end and returns the basket
// result. The result is always recorded in history, including rejections.
func (m *Manager) ExecuteBasket(ctx context.Context, grp domain.SignalGroup) (domain.BasketResult, error) {
	basket := domain.BasketResult{
		BasketID:          uuid.NewString(),
		GroupName:         grp.Name,
		EventTicker:       grp.EventTicker,
		ExpectedProfitUSD: grp.ExpectedProfitUSD,
		Status:            domain.BasketStatusPending,
		StartedAt:         time.Now().UTC(),
	}

	if m.Killed() {
		res, _ := m.finish(ctx, basket, domain.BasketStatusFailed, "kill switch engaged")
		return res, fmt.Errorf("%w: basket %s", domain.ErrKillSwitch, grp.Name)
	}
	if err := m.ValidateGroup(grp); err != nil {
		m.logger.Warn("basket rejected", slog.String("group", grp.Name), slog.String("error", err.Error()))
		res, _ := m.finish(ctx, basket, domain.BasketStatusFailed, err.Error())
		return res, err
	}
	if m.dedup.IsDuplicate(grp.Name) {
		return m.finish(ctx, basket, domain.BasketStatusCancelled, "duplicate basket within dedup window")
	}

	basket.Status = domain.BasketStatusExecuting
	m.logger.Info("executing basket",
		slog.String("basket_id", basket.BasketID),
		slog.String("group", grp.Name),
		slog.Int("legs", len(grp.Signals)),
		slog.Bool("paper", m.cfg.PaperMode),
	)

	// Fan out, fan in by position so results stay aligned with legs.
	results := make([]domain.OrderResult, len(grp.Signals))
	var wg sync.WaitGroup
	for i, sig := range grp.Signals {
		wg.Add(1)
		go func(i int, sig domain.Signal) {
			defer wg.Done()
			results[i] = m.executeLeg(ctx, sig)
		}(i, sig)
	}
	wg.Wait()

	basket.Orders = results
	status, reason := classify(results)
	return m.finish(ctx, basket, status, reason)
}

// classify derives the basket status from its leg outcomes.
func classify(results []domain.OrderResult) (domain.BasketStatus, string) {
	filled := 0
	for _, r := range results {
		if r.Status == domain.OrderStatusFilled {
			filled++
		}
	}
	switch {
	case filled == len(results):
		return domain.BasketStatusComplete, ""
	case filled == 0:
		return domain.BasketStatusFailed, "no legs filled"
	default:
		return domain.BasketStatusPartial,
			fmt.Sprintf("%d of %d legs filled", filled, len(results))
	}
}

// executeLeg submits one leg and drives it to a terminal status. It never
// returns an error: failure is a terminal OrderResult, so one bad leg cannot
// tear down its siblings.
func (m *Manager) executeLeg(ctx context.Context, sig domain.Signal) domain.OrderResult {
	result := domain.OrderResult{
		Ticker:        sig.Ticker,
		Side:          sig.Side,
		ExpectedPrice: sig.PriceCents,
		ExpectedSize:  sig.Size,
		ClientOrderID: uuid.NewString(),
		Status:        domain.OrderStatusPending,
		SubmittedAt:   time.Now().UTC(),
	}

	if m.Killed() {
		result.Status = domain.OrderStatusCancelled
		result.ErrorMessage = "kill switch engaged before submission"
		return result
	}

	if m.cfg.PaperMode {
		return m.paperFill(ctx, result)
	}

	state, err := m.gateway.SubmitOrder(ctx, OrderRequest{
		Ticker:        sig.Ticker,
		Side:          sig.Side,
		PriceCents:    sig.PriceCents,
		Count:         sig.Size,
		ClientOrderID: result.ClientOrderID,
	})
	if err != nil {
		result.Status = domain.OrderStatusFailed
		result.ErrorMessage = err.Error()
		if errors.Is(err, domain.ErrInvalidOrder) {
			result.Status = domain.OrderStatusRejected
		}
		m.logger.Error("order submission failed",
			slog.String("ticker", sig.Ticker),
			slog.String("error", err.Error()),
		)
		return result
	}
	result.OrderID = state.OrderID
	result.Status = domain.OrderStatusSubmitted

	return m.pollToTerminal(ctx, result)
}

// paperFill simulates a full fill at the signal price after a fixed latency,
// re-checking the kill switch once the latency elapses like a live poll
// would.
func (m *Manager) paperFill(ctx context.Context, result domain.OrderResult) domain.OrderResult {
	if m.cfg.PaperFillDelay > 0 {
		timer := time.NewTimer(m.cfg.PaperFillDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			result.Status = domain.OrderStatusFailed
			result.ErrorMessage = ctx.Err().Error()
			return result
		case <-timer.C:
		}
		if m.Killed() {
			result.Status = domain.OrderStatusCancelled
			result.ErrorMessage = "kill switch engaged while pending"
			return result
		}
	}

	now := time.Now().UTC()
	price := result.ExpectedPrice
	result.OrderID = "paper-" + result.ClientOrderID
	result.Status = domain.OrderStatusFilled
	result.FillPrice = &price
	result.FillSize = result.ExpectedSize
	result.FilledAt = &now
	return result
}

// pollToTerminal polls order status until terminal, timeout, or kill. On
// timeout the leg is marked Failed and a cancel is attempted best-effort.
func (m *Manager) pollToTerminal(ctx context.Context, result domain.OrderResult) domain.OrderResult {
	deadline := time.Now().Add(m.cfg.PollTimeout)
	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			result.Status = domain.OrderStatusFailed
			result.ErrorMessage = ctx.Err().Error()
			return result
		case <-ticker.C:
		}

		if m.Killed() {
			m.cancelQuietly(ctx, result.OrderID)
			result.Status = domain.OrderStatusCancelled
			result.ErrorMessage = "kill switch engaged while pending"
			return result
		}
		if time.Now().After(deadline) {
			m.cancelQuietly(ctx, result.OrderID)
			result.Status = domain.OrderStatusFailed
			result.ErrorMessage = fmt.Sprintf("not terminal after %s", m.cfg.PollTimeout)
			return result
		}

		state, err := m.gateway.GetOrder(ctx, result.OrderID)
		if err != nil {
			m.logger.Warn("order status poll failed",
				slog.String("order_id", result.OrderID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !state.Status.Terminal() {
			continue
		}

		result.Status = state.Status
		if state.Status == domain.OrderStatusFilled {
			now := time.Now().UTC()
			result.FillPrice = state.FillPrice
			result.FillSize = state.FillCount
			result.FilledAt = &now
			if state.FillPrice != nil {
				result.SlippageCents = *state.FillPrice - result.ExpectedPrice
			}
		}
		return result
	}
}

func (m *Manager) cancelQuietly(ctx context.Context, orderID string) {
	if orderID == "" {
		return
	}
	if err := m.gateway.CancelOrder(ctx, orderID); err != nil {
		m.logger.Warn("order cancel failed",
			slog.String("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
}

// finish stamps the basket terminal, records it in history, and persists it
// when a store is configured. Persistence failures are logged, not fatal: the
// trade already happened.
func (m *Manager) finish(ctx context.Context, basket domain.BasketResult, status domain.BasketStatus, reason string) (domain.BasketResult, error) {
	now := time.Now().UTC()
	basket.Status = status
	basket.FailureReason = reason
	basket.CompletedAt = &now

	m.mu.Lock()
	m.history = append(m.history, basket)
	m.mu.Unlock()

	m.logger.Info("basket finished",
		slog.String("basket_id", basket.BasketID),
		slog.String("group", basket.GroupName),
		slog.String("status", string(status)),
		slog.Int("filled", basket.OrdersFilled()),
		slog.Int("legs", len(basket.Orders)),
	)

	if m.store != nil {
		if err := m.store.Create(ctx, basket); err != nil {
			m.logger.Error("basket persistence failed",
				slog.String("basket_id", basket.BasketID),
				slog.String("error", err.Error()),
			)
		}
	}
	return basket, nil
}

// History returns a copy of every basket result this manager has produced,
// oldest first.
func (m *Manager) History() []domain.BasketResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.BasketResult, len(m.history))
	copy(out, m.history)
	return out
}

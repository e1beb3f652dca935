package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// Event types used to filter alert delivery.
const (
	EventOpportunity = "opportunity"
	EventBasket      = "basket"
	EventKillSwitch  = "kill_switch"
)

// Alerts formats trading events into operator notifications.
type Alerts struct {
	notifier *Notifier
}

// NewAlerts wraps a Notifier.
func NewAlerts(n *Notifier) *Alerts {
	return &Alerts{notifier: n}
}

// Opportunity announces a high-quality arbitrage analysis.
func (a *Alerts) Opportunity(ctx context.Context, an domain.EventAnalysis) error {
	var b strings.Builder
	if an.HasBuyArb() {
		fmt.Fprintf(&b, "buy-all profit %d¢ (asks sum %d¢)\n", an.BuyArbProfit, an.SumYesAsks)
	}
	if an.HasSellArb() {
		fmt.Fprintf(&b, "sell-all profit %d¢ (bids sum %d¢)\n", an.SellArbProfit, an.SumYesBids)
	}
	fmt.Fprintf(&b, "coverage %.0f%% (%d/%d markets), 24h volume %d",
		an.Coverage()*100, an.MarketCount, an.TotalMarkets, an.AggregateVolume)

	title := "Arbitrage: " + an.EventTicker
	return a.notifier.Notify(ctx, EventOpportunity, title, b.String())
}

// Basket announces a finished basket execution.
func (a *Alerts) Basket(ctx context.Context, basket domain.BasketResult) error {
	var b strings.Builder
	fmt.Fprintf(&b, "status %s, %d/%d legs filled\n",
		basket.Status, basket.OrdersFilled(), len(basket.Orders))
	fmt.Fprintf(&b, "expected profit $%.2f, cost $%.2f, slippage %d¢",
		basket.ExpectedProfitUSD, basket.TotalCostUSD(), basket.TotalSlippageCents())
	if basket.FailureReason != "" {
		fmt.Fprintf(&b, "\nreason: %s", basket.FailureReason)
	}

	title := fmt.Sprintf("Basket %s: %s", basket.Status, basket.GroupName)
	return a.notifier.Notify(ctx, EventBasket, title, b.String())
}

// KillSwitch announces an operator or automated halt. It bypasses event
// filtering; a halt must always reach someone.
func (a *Alerts) KillSwitch(ctx context.Context, reason string) error {
	return a.notifier.NotifyAll(ctx, "Kill switch engaged", reason)
}

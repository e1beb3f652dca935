package kalshi

import (
	"context"

	"github.com/alanyoungcy/kalshibot/internal/domain"
	"github.com/alanyoungcy/kalshibot/internal/executor"
)

// Gateway adapts the Client to the executor's order interface. Baskets trade
// YES on every outcome, so buy and sell map to the yes side of each market.
type Gateway struct {
	client *Client
}

// NewGateway wraps a Client.
func NewGateway(client *Client) *Gateway {
	return &Gateway{client: client}
}

// SubmitOrder places one leg as a yes-side limit order.
func (g *Gateway) SubmitOrder(ctx context.Context, req executor.OrderRequest) (executor.OrderState, error) {
	order, err := g.client.CreateOrder(ctx, OrderRequest{
		Ticker:        req.Ticker,
		ClientOrderID: req.ClientOrderID,
		Action:        string(req.Side),
		Side:          "yes",
		Type:          "limit",
		Count:         req.Count,
		YesPrice:      req.PriceCents,
	})
	if err != nil {
		return executor.OrderState{}, err
	}
	return toOrderState(order), nil
}

// GetOrder returns one leg's current state.
func (g *Gateway) GetOrder(ctx context.Context, orderID string) (executor.OrderState, error) {
	order, err := g.client.GetOrderByID(ctx, orderID)
	if err != nil {
		return executor.OrderState{}, err
	}
	return toOrderState(order), nil
}

// CancelOrder cancels a resting leg.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	return g.client.CancelOrderByID(ctx, orderID)
}

func toOrderState(order Order) executor.OrderState {
	state := executor.OrderState{
		OrderID:   order.OrderID,
		Status:    toOrderStatus(order),
		FillCount: order.FillCount,
	}
	if state.Status == domain.OrderStatusFilled {
		if state.FillCount == 0 {
			state.FillCount = order.Count
		}
		// Average fill price from the exchange's fill cost; a limit order can
		// fill better than its limit, and slippage tracking needs the real
		// number, not the submitted price echoed back.
		price := order.YesPrice
		if order.TakerFillCost > 0 && state.FillCount > 0 {
			price = order.TakerFillCost / state.FillCount
		}
		state.FillPrice = &price
	}
	return state
}

// toOrderStatus maps exchange statuses onto the leg state machine. A resting
// order that has partially filled stays non-terminal so polling continues.
func toOrderStatus(order Order) domain.OrderStatus {
	switch order.Status {
	case orderStatusExecuted:
		return domain.OrderStatusFilled
	case orderStatusCanceled:
		return domain.OrderStatusCancelled
	case orderStatusResting:
		if order.FillCount > 0 && order.RemainingCount > 0 {
			return domain.OrderStatusPartial
		}
		return domain.OrderStatusSubmitted
	case orderStatusPending:
		return domain.OrderStatusSubmitted
	}
	return domain.OrderStatusSubmitted
}

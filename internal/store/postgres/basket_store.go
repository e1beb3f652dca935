package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// BasketStore implements domain.BasketStore using PostgreSQL. A basket and
// its legs are written in one transaction so the history never shows a
// basket with half its legs.
type BasketStore struct {
	pool *pgxpool.Pool
}

// NewBasketStore creates a BasketStore.
func NewBasketStore(pool *pgxpool.Pool) *BasketStore {
	return &BasketStore{pool: pool}
}

// Create inserts a basket and its legs.
func (s *BasketStore) Create(ctx context.Context, basket domain.BasketResult) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO baskets
			(basket_id, group_name, event_ticker, expected_profit_usd,
			 failure_reason, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		basket.BasketID, basket.GroupName, basket.EventTicker, basket.ExpectedProfitUSD,
		basket.FailureReason, string(basket.Status), basket.StartedAt, basket.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert basket: %w", err)
	}

	for i, leg := range basket.Orders {
		_, err = tx.Exec(ctx, `
			INSERT INTO basket_legs
				(basket_id, position, ticker, side, expected_price, expected_size,
				 client_order_id, order_id, status, fill_price, fill_size,
				 slippage_cents, error_message, submitted_at, filled_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			basket.BasketID, i, leg.Ticker, string(leg.Side), leg.ExpectedPrice, leg.ExpectedSize,
			leg.ClientOrderID, leg.OrderID, string(leg.Status), leg.FillPrice, leg.FillSize,
			leg.SlippageCents, leg.ErrorMessage, leg.SubmittedAt, leg.FilledAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert basket leg %d: %w", i, err)
		}
	}

	return tx.Commit(ctx)
}

// GetByID returns a basket with its legs in submission order.
func (s *BasketStore) GetByID(ctx context.Context, basketID string) (domain.BasketResult, error) {
	var basket domain.BasketResult
	var status string
	err := s.pool.QueryRow(ctx, `
		SELECT basket_id, group_name, event_ticker, expected_profit_usd,
		       failure_reason, status, started_at, completed_at
		FROM baskets WHERE basket_id = $1`,
		basketID,
	).Scan(&basket.BasketID, &basket.GroupName, &basket.EventTicker, &basket.ExpectedProfitUSD,
		&basket.FailureReason, &status, &basket.StartedAt, &basket.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.BasketResult{}, domain.ErrNotFound
		}
		return domain.BasketResult{}, fmt.Errorf("postgres: get basket %s: %w", basketID, err)
	}
	basket.Status = domain.BasketStatus(status)

	basket.Orders, err = s.legsFor(ctx, basketID)
	if err != nil {
		return domain.BasketResult{}, err
	}
	return basket, nil
}

// ListRecent returns the most recently started baskets with their legs,
// newest first.
func (s *BasketStore) ListRecent(ctx context.Context, limit int) ([]domain.BasketResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT basket_id, group_name, event_ticker, expected_profit_usd,
		       failure_reason, status, started_at, completed_at
		FROM baskets
		ORDER BY started_at DESC
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list baskets: %w", err)
	}
	defer rows.Close()

	var baskets []domain.BasketResult
	for rows.Next() {
		var basket domain.BasketResult
		var status string
		if err := rows.Scan(&basket.BasketID, &basket.GroupName, &basket.EventTicker,
			&basket.ExpectedProfitUSD, &basket.FailureReason, &status,
			&basket.StartedAt, &basket.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan basket: %w", err)
		}
		basket.Status = domain.BasketStatus(status)
		baskets = append(baskets, basket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: basket rows: %w", err)
	}

	for i := range baskets {
		baskets[i].Orders, err = s.legsFor(ctx, baskets[i].BasketID)
		if err != nil {
			return nil, err
		}
	}
	return baskets, nil
}

func (s *BasketStore) legsFor(ctx context.Context, basketID string) ([]domain.OrderResult, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ticker, side, expected_price, expected_size, client_order_id,
		       order_id, status, fill_price, fill_size, slippage_cents,
		       error_message, submitted_at, filled_at
		FROM basket_legs
		WHERE basket_id = $1
		ORDER BY position`,
		basketID,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list basket legs %s: %w", basketID, err)
	}
	defer rows.Close()

	var legs []domain.OrderResult
	for rows.Next() {
		var leg domain.OrderResult
		var side, status string
		if err := rows.Scan(&leg.Ticker, &side, &leg.ExpectedPrice, &leg.ExpectedSize,
			&leg.ClientOrderID, &leg.OrderID, &status, &leg.FillPrice, &leg.FillSize,
			&leg.SlippageCents, &leg.ErrorMessage, &leg.SubmittedAt, &leg.FilledAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan basket leg: %w", err)
		}
		leg.Side = domain.OrderSide(side)
		leg.Status = domain.OrderStatus(status)
		legs = append(legs, leg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: basket leg rows: %w", err)
	}
	return legs, nil
}

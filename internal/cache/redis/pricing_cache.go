package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// PricingCache implements domain.PricingCache using Redis string keys with
// JSON values. Pricing goes stale with the books, so the TTL is short.
//
// Key schema:
//
//	pricing:{ticker} - JSON MarketPricing
type PricingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPricingCache creates a PricingCache with the given TTL.
func NewPricingCache(c *Client, ttl time.Duration) *PricingCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &PricingCache{rdb: c.Underlying(), ttl: ttl}
}

func pricingKey(ticker string) string { return "pricing:" + ticker }

// Get retrieves cached pricing for a market. It returns domain.ErrNotFound
// when the key does not exist.
func (pc *PricingCache) Get(ctx context.Context, ticker string) (domain.MarketPricing, error) {
	data, err := pc.rdb.Get(ctx, pricingKey(ticker)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.MarketPricing{}, domain.ErrNotFound
		}
		return domain.MarketPricing{}, fmt.Errorf("redis: get pricing %s: %w", ticker, err)
	}

	var p domain.MarketPricing
	if err := json.Unmarshal(data, &p); err != nil {
		return domain.MarketPricing{}, fmt.Errorf("redis: decode pricing %s: %w", ticker, err)
	}
	return p, nil
}

// Set stores pricing under its market ticker.
func (pc *PricingCache) Set(ctx context.Context, ticker string, p domain.MarketPricing) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("redis: marshal pricing %s: %w", ticker, err)
	}
	if err := pc.rdb.Set(ctx, pricingKey(ticker), data, pc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set pricing %s: %w", ticker, err)
	}
	return nil
}

var _ domain.PricingCache = (*PricingCache)(nil)

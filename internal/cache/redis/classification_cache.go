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

// ClassificationCache implements domain.ClassificationCache using Redis
// string keys with JSON values.
//
// Key schema:
//
//	classification:{event_ticker} - JSON EventClassification
type ClassificationCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewClassificationCache creates a ClassificationCache with the given TTL.
func NewClassificationCache(c *Client, ttl time.Duration) *ClassificationCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ClassificationCache{rdb: c.Underlying(), ttl: ttl}
}

func classificationKey(eventTicker string) string {
	return "classification:" + eventTicker
}

// Get retrieves a classification. It returns domain.ErrNotFound when the key
// does not exist; Redis expiry handles the TTL.
func (cc *ClassificationCache) Get(ctx context.Context, eventTicker string) (domain.EventClassification, error) {
	data, err := cc.rdb.Get(ctx, classificationKey(eventTicker)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.EventClassification{}, domain.ErrNotFound
		}
		return domain.EventClassification{}, fmt.Errorf("redis: get classification %s: %w", eventTicker, err)
	}

	var c domain.EventClassification
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.EventClassification{}, fmt.Errorf("redis: decode classification %s: %w", eventTicker, err)
	}
	return c, nil
}

// Set stores a classification under its event ticker.
func (cc *ClassificationCache) Set(ctx context.Context, c domain.EventClassification) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("redis: marshal classification %s: %w", c.EventTicker, err)
	}
	if err := cc.rdb.Set(ctx, classificationKey(c.EventTicker), data, cc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set classification %s: %w", c.EventTicker, err)
	}
	return nil
}

var _ domain.ClassificationCache = (*ClassificationCache)(nil)

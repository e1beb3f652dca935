package domain

import (
	"context"
	"time"
)

// SnapshotStore persists point-in-time market pricing records.
type SnapshotStore interface {
	InsertBatch(ctx context.Context, snapshots []MarketSnapshot) error
	ListByTicker(ctx context.Context, ticker string, since time.Time) ([]MarketSnapshot, error)
	ListBefore(ctx context.Context, before time.Time) ([]MarketSnapshot, error)
}

// BasketStore persists executed baskets with their legs.
type BasketStore interface {
	Create(ctx context.Context, basket BasketResult) error
	GetByID(ctx context.Context, basketID string) (BasketResult, error)
	ListRecent(ctx context.Context, limit int) ([]BasketResult, error)
}

// ClassificationCache caches event classifications with a TTL. Get returns
// ErrNotFound on a miss or an expired entry.
type ClassificationCache interface {
	Get(ctx context.Context, eventTicker string) (EventClassification, error)
	Set(ctx context.Context, c EventClassification) error
}

// PricingCache caches extracted market pricing by ticker with a TTL. Get
// returns ErrNotFound on a miss.
type PricingCache interface {
	Get(ctx context.Context, ticker string) (MarketPricing, error)
	Set(ctx context.Context, ticker string, p MarketPricing) error
}

// BlobWriter uploads an object to blob storage under the given key.
type BlobWriter interface {
	Write(ctx context.Context, key string, body []byte, contentType string) error
}

// LockManager provides distributed locks so only one instance runs the scan
// and trade loop at a time. Acquire returns ErrLockHeld when another holder
// owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}

// RateLimiter provides distributed rate limiting, shared by every instance
// using the same API key. Allow reports whether a request under key is
// permitted right now and counts it when it is.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

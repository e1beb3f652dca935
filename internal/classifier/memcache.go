package classifier

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/kalshibot/internal/domain"
)

// MemoryCache is an in-process implementation of domain.ClassificationCache
// with TTL-based expiry. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memEntry
	now     func() time.Time
}

type memEntry struct {
	cls      domain.EventClassification
	storedAt time.Time
}

// NewMemoryCache creates a MemoryCache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]memEntry),
		now:     time.Now,
	}
}

// Get returns the cached classification or domain.ErrNotFound when missing
// or expired. Expired entries are removed on read.
func (m *MemoryCache) Get(_ context.Context, eventTicker string) (domain.EventClassification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[eventTicker]
	if !ok {
		return domain.EventClassification{}, domain.ErrNotFound
	}
	if m.now().Sub(e.storedAt) >= m.ttl {
		delete(m.entries, eventTicker)
		return domain.EventClassification{}, domain.ErrNotFound
	}
	return e.cls, nil
}

// Set stores a classification keyed by its event ticker.
func (m *MemoryCache) Set(_ context.Context, c domain.EventClassification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[c.EventTicker] = memEntry{cls: c, storedAt: m.now()}
	return nil
}

package executor

import (
	"sync"
	"time"
)

// Dedup prevents the same basket from being executed more than once within a
// time-to-live window. Scanner loops re-surface the same opportunity every
// cycle until the books move; without this each cycle would stack a new
// position on the last. Safe for concurrent use.
type Dedup struct {
	seen map[string]time.Time // group name -> last execution time
	ttl  time.Duration
	mu   sync.Mutex
}

// NewDedup creates a Dedup that considers a group a duplicate if it executed
// within the given ttl.
func NewDedup(ttl time.Duration) *Dedup {
	return &Dedup{
		seen: make(map[string]time.Time),
		ttl:  ttl,
	}
}

// IsDuplicate returns true if the group name has been seen within the TTL
// window. If it has not been seen (or has expired), it is recorded and false
// is returned.
func (d *Dedup) IsDuplicate(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if last, ok := d.seen[name]; ok {
		if now.Sub(last) < d.ttl {
			return true
		}
	}

	d.seen[name] = now
	return false
}

// Cleanup removes entries that have expired beyond the TTL. Called
// periodically to prevent unbounded growth.
func (d *Dedup) Cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for name, ts := range d.seen {
		if now.Sub(ts) >= d.ttl {
			delete(d.seen, name)
		}
	}
}

package verify

import (
	"sync"
	"time"

	"authsync/internal/authstate"
)

// Cache is a time-bounded memo of the last verification result. At most one
// live entry; reads at or after the expiry return a miss. It exists to
// collapse bursts of verification requests from independent callers (the
// navigation guard, the mount sequence) into one underlying call.
type Cache struct {
	mu    sync.Mutex
	entry *cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

type cacheEntry struct {
	state     authstate.AuthState
	expiresAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithCacheClock injects a clock for deterministic expiry tests.
func WithCacheClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a cache with the given default TTL (5s when ttl <= 0).
func NewCache(ttl time.Duration, opts ...CacheOption) *Cache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	c := &Cache{ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the memoized state, or a miss once the TTL elapsed or after
// Invalidate.
func (c *Cache) Get() (authstate.AuthState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entry == nil {
		return authstate.AuthState{}, false
	}
	if !c.now().Before(c.entry.expiresAt) {
		c.entry = nil
		return authstate.AuthState{}, false
	}
	return c.entry.state, true
}

// Put memoizes a state. A non-positive ttl uses the configured default.
func (c *Cache) Put(state authstate.AuthState, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = &cacheEntry{state: state, expiresAt: c.now().Add(ttl)}
}

// Invalidate drops the entry.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entry = nil
}

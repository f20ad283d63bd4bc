package users

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// StaffCache memoises the staff listing for a fixed TTL. The clock is
// injected so tests drive expiry without waiting on wall time.
type StaffCache struct {
	mu     sync.Mutex
	value  []User
	expiry time.Time
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group
}

// NewStaffCache constructs the cache. A nil now falls back to time.Now.
func NewStaffCache(ttl time.Duration, now func() time.Time) *StaffCache {
	if now == nil {
		now = time.Now
	}
	return &StaffCache{ttl: ttl, now: now}
}

// Get returns the cached listing, loading through the loader on a miss.
// Concurrent misses collapse into a single load.
func (c *StaffCache) Get(ctx context.Context, loader func(context.Context) ([]User, error)) ([]User, error) {
	c.mu.Lock()
	if c.value != nil && c.now().Before(c.expiry) {
		value := c.value
		c.mu.Unlock()
		return value, nil
	}
	c.mu.Unlock()

	result, err, _ := c.group.Do("staff", func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.value = value
		c.expiry = c.now().Add(c.ttl)
		c.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]User), nil
}

// Invalidate drops the cached value.
func (c *StaffCache) Invalidate() {
	c.mu.Lock()
	c.value = nil
	c.expiry = time.Time{}
	c.mu.Unlock()
}

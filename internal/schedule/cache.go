package schedule

import (
	"sync"
	"time"

	"github.com/CST438P3G6/slotbook/internal/model"
)

// Cache memoises generated slot lists per business. Entries expire after a
// TTL and are dropped eagerly when the change feed reports an appointment or
// business-hours change for the business. Invalidation is scoped to one
// business; other businesses' entries are untouched.
type Cache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]map[string]cacheEntry
}

type cacheEntry struct {
	slots   []model.Slot
	expires time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Cache{ttl: ttl, entries: map[string]map[string]cacheEntry{}}
}

func (c *Cache) get(businessID, key string) ([]model.Slot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byKey, ok := c.entries[businessID]
	if !ok {
		return nil, false
	}
	e, ok := byKey[key]
	if !ok || time.Now().After(e.expires) {
		delete(byKey, key)
		return nil, false
	}
	// Hand out a copy so a caller mutating its result cannot corrupt the
	// cached entry.
	out := make([]model.Slot, len(e.slots))
	copy(out, e.slots)
	return out, true
}

func (c *Cache) put(businessID, key string, slots []model.Slot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	byKey, ok := c.entries[businessID]
	if !ok {
		byKey = map[string]cacheEntry{}
		c.entries[businessID] = byKey
	}
	byKey[key] = cacheEntry{slots: slots, expires: time.Now().Add(c.ttl)}
}

// Invalidate drops every cached window for one business.
func (c *Cache) Invalidate(businessID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, businessID)
}

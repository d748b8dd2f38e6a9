package validation

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/openlot/settlement/internal/domain/model"
)

// cacheEntry pairs a verdict with its storage time for TTL checks.
type cacheEntry struct {
	result   model.ValidationResult
	storedAt time.Time
}

// resultCache is a TTL map of fingerprint -> verdict with single-flight
// population: at most one fresh rule evaluation per fingerprint per window.
type resultCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	group   singleflight.Group
}

func newResultCache(ttl time.Duration) *resultCache {
	return &resultCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

// lookup returns the cached verdict if it is still fresh.
func (c *resultCache) lookup(fp string) (model.ValidationResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[fp]
	if !ok || time.Since(entry.storedAt) >= c.ttl {
		return model.ValidationResult{}, false
	}
	return entry.result, true
}

// put stores a verdict under the fingerprint, refreshing its TTL window.
func (c *resultCache) put(fp string, res model.ValidationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fp] = cacheEntry{result: res, storedAt: time.Now()}
}

// doOnce collapses concurrent computations for the same fingerprint into a
// single call; late arrivals re-check the cache first so a verdict stored by
// the winning caller is reused unchanged.
func (c *resultCache) doOnce(fp string, compute func() model.ValidationResult) model.ValidationResult {
	v, _, _ := c.group.Do(fp, func() (any, error) {
		if cached, ok := c.lookup(fp); ok {
			return cached, nil
		}
		return compute(), nil
	})
	return v.(model.ValidationResult)
}

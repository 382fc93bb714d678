package llm

import (
	"sync"
	"time"

	"github.com/jmturner/cinnamon/internal/model"
)

// cacheEntry represents a cached fallback prediction.
type cacheEntry struct {
	expiry     time.Time
	prediction model.Prediction
}

// predictionCache provides thread-safe caching for fallback predictions,
// keyed by transaction hash.
type predictionCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
}

// newPredictionCache creates a new cache with the specified TTL.
func newPredictionCache(ttl time.Duration) *predictionCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &predictionCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

// get retrieves a prediction from the cache if it exists and hasn't expired.
func (c *predictionCache) get(key string) (model.Prediction, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return model.Prediction{}, false
	}

	return entry.prediction, true
}

// set stores a prediction in the cache.
func (c *predictionCache) set(key string, prediction model.Prediction) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		prediction: prediction,
		expiry:     time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *predictionCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// size returns the number of entries in the cache.
func (c *predictionCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *predictionCache) Close() {
	close(c.stopCh)
}

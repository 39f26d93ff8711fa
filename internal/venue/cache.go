package venue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/locate918/eventengine/internal/logger"
)

// SweepInterval is how often a long-running process purges expired entries.
const SweepInterval = time.Hour

// DefaultTTL is how long a resolved website stays cached.
const DefaultTTL = 7 * 24 * time.Hour

// Cache holds resolved venue websites with a TTL. Misses are cached too, as
// empty strings, so a listing without a website is fetched once per TTL.
type Cache struct {
	mu       sync.Mutex
	websites map[string]string    // listing URL → website
	cachedAt map[string]time.Time // listing URL → cache time
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache. A non-positive ttl means DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		websites: make(map[string]string),
		cachedAt: make(map[string]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the cached website for a listing and whether an unexpired
// entry exists. Expired entries are removed.
func (c *Cache) Get(listingURL string) (string, bool) {
	key := cacheKey(listingURL)

	c.mu.Lock()
	defer c.mu.Unlock()

	website, exists := c.websites[key]
	if !exists {
		return "", false
	}
	cachedTime, hasTime := c.cachedAt[key]
	if !hasTime || c.now().Sub(cachedTime) > c.ttl {
		delete(c.websites, key)
		delete(c.cachedAt, key)
		return "", false
	}
	return website, true
}

// Set stores the website for a listing.
func (c *Cache) Set(listingURL, website string) {
	key := cacheKey(listingURL)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.websites[key] = website
	c.cachedAt[key] = c.now()
}

// CleanExpired removes expired entries and returns how many were dropped.
func (c *Cache) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	now := c.now()
	for key, cachedTime := range c.cachedAt {
		if now.Sub(cachedTime) > c.ttl {
			delete(c.websites, key)
			delete(c.cachedAt, key)
			removed++
		}
	}
	return removed
}

// Sweep calls CleanExpired every interval until ctx is done.
func (c *Cache) Sweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := c.CleanExpired(); removed > 0 {
				logger.Debug("Venue cache swept", logger.Fields{"removed": removed, "remaining": c.Size()})
			}
		}
	}
}

// Size returns the number of cached entries.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.websites)
}

func cacheKey(listingURL string) string {
	return strings.TrimSuffix(strings.TrimSpace(listingURL), "/")
}

// Package cache provides an in-memory byte cache with LRU eviction and
// per-entry TTL. It backs Idempotency-Key replay for POST /process.
package cache

import (
	"context"
	"container/list"
	"sync"
	"time"

	"github.com/balaguysimon-ops/timestretch-ffmpeg/application/ports"

	"go.uber.org/zap"
)

// MemoryCache is safe for concurrent use and suits single-instance deployments.
type MemoryCache struct {
	mu          sync.Mutex
	items       map[string]*cacheItem
	lruList     *list.List
	maxItems    int
	maxMemory   int64
	currentSize int64

	hits      int64
	misses    int64
	evictions int64

	now    func() time.Time
	logger *zap.Logger
}

var _ ports.Cache = (*MemoryCache)(nil)

type cacheItem struct {
	key        string
	value      []byte
	size       int64
	expiry     time.Time
	lruElement *list.Element
}

// Stats holds cache statistics
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Items     int
	Size      int64
	HitRate   float64
}

// NewMemoryCache creates a cache bounded by entry count and total bytes.
func NewMemoryCache(maxItems int, maxMemory int64, logger *zap.Logger) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxItems <= 0 {
		maxItems = 1024
	}
	if maxMemory <= 0 {
		maxMemory = 8 << 20
	}
	return &MemoryCache{
		items:     make(map[string]*cacheItem),
		lruList:   list.New(),
		maxItems:  maxItems,
		maxMemory: maxMemory,
		now:       time.Now,
		logger:    logger,
	}
}

// Get returns a copy of the cached value.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, exists := c.items[key]
	if !exists {
		c.misses++
		return nil, false, nil
	}

	if c.now().After(item.expiry) {
		c.removeItem(item)
		c.misses++
		return nil, false, nil
	}

	c.lruList.MoveToFront(item.lruElement)
	c.hits++

	value := make([]byte, len(item.value))
	copy(value, item.value)
	return value, true, nil
}

// Set stores value under key for ttl. Values larger than the cache are skipped.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	itemSize := int64(len(key) + len(value))
	if itemSize > c.maxMemory {
		c.logger.Warn("Item too large for cache",
			zap.String("key", key),
			zap.Int64("size", itemSize),
			zap.Int64("max_memory", c.maxMemory),
		)
		return nil
	}

	if existing, exists := c.items[key]; exists {
		c.removeItem(existing)
	}

	for (c.currentSize+itemSize > c.maxMemory || len(c.items) >= c.maxItems) && c.lruList.Len() > 0 {
		oldest := c.lruList.Back()
		c.removeItem(oldest.Value.(*cacheItem))
		c.evictions++
	}

	item := &cacheItem{
		key:    key,
		value:  make([]byte, len(value)),
		size:   itemSize,
		expiry: c.now().Add(ttl),
	}
	copy(item.value, value)
	item.lruElement = c.lruList.PushFront(item)

	c.items[key] = item
	c.currentSize += itemSize
	return nil
}

// Delete removes key if present.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if item, exists := c.items[key]; exists {
		c.removeItem(item)
	}
	return nil
}

// must be called with lock held
func (c *MemoryCache) removeItem(item *cacheItem) {
	if item.lruElement != nil {
		c.lruList.Remove(item.lruElement)
	}
	delete(c.items, item.key)
	c.currentSize -= item.size
}

// GetStats returns cache statistics
func (c *MemoryCache) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	hitRate := float64(0)
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Items:     len(c.items),
		Size:      c.currentSize,
		HitRate:   hitRate,
	}
}

// StartCleanup removes expired entries every interval until ctx is done.
func (c *MemoryCache) StartCleanup(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.cleanupExpired()
			}
		}
	}()
}

func (c *MemoryCache) cleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for _, item := range c.items {
		if now.After(item.expiry) {
			c.removeItem(item)
			removed++
		}
	}

	if removed > 0 {
		c.logger.Debug("Cleaned up expired cache items", zap.Int("count", removed))
	}
	return removed
}

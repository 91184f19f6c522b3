package cache

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/coocood/freecache"
)

// DefaultMemorySize is the memory budget used when none is given: 64 MiB.
const DefaultMemorySize = 64 << 20

// MemoryCache is a bounded in-process cache. Once full, the oldest entries
// are evicted. Entries larger than 1/1024 of the budget are not stored.
type MemoryCache struct {
	fc *freecache.Cache
}

// NewMemoryCache creates a memory cache holding up to size bytes.
// A size of zero or less uses [DefaultMemorySize].
func NewMemoryCache(size int) *MemoryCache {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &MemoryCache{fc: freecache.NewCache(size)}
}

// Get retrieves a value from the cache.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.fc.Get([]byte(key))
	if errors.Is(err, freecache.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backendError("get", err)
	}
	return data, true, nil
}

// Set stores a value. TTLs are rounded up to whole seconds. Values too
// large for the cache are silently dropped, like any other eviction.
func (c *MemoryCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	err := c.fc.Set([]byte(key), data, expireSeconds(ttl))
	if errors.Is(err, freecache.ErrLargeEntry) || errors.Is(err, freecache.ErrLargeKey) {
		return nil
	}
	return backendError("set", err)
}

// Delete removes a value from the cache.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.fc.Del([]byte(key))
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.fc.Clear()
	return nil
}

// Len returns the number of live entries.
func (c *MemoryCache) Len() int64 { return c.fc.EntryCount() }

// Close does nothing; memory is released with the cache.
func (c *MemoryCache) Close() error { return nil }

func expireSeconds(ttl time.Duration) int {
	if ttl <= 0 {
		return 0
	}
	s := math.Ceil(ttl.Seconds())
	if s > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(s)
}

var (
	_ Cache   = (*MemoryCache)(nil)
	_ Clearer = (*MemoryCache)(nil)
)

package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultLRUSize is the number of entries kept by [NewLRUCache] when size <= 0.
const DefaultLRUSize = 1024

type lruEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e lruEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRUCache is a bounded in-memory cache. When next is non-nil it acts as a
// read-through layer: misses fall through to next and hits from next are
// kept in memory; writes go to both.
type LRUCache struct {
	mem  *lru.Cache[string, lruEntry]
	next Cache

	// promoteTTL bounds how long an entry read from next stays in memory.
	promoteTTL time.Duration
}

// NewLRUCache creates an in-memory cache holding at most size entries.
func NewLRUCache(size int, next Cache) *LRUCache {
	if size <= 0 {
		size = DefaultLRUSize
	}
	mem, err := lru.New[string, lruEntry](size)
	if err != nil {
		// lru.New only fails for non-positive sizes.
		panic(err)
	}
	return &LRUCache{mem: mem, next: next, promoteTTL: TTLSnapshot}
}

func (c *LRUCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	now := time.Now()
	if e, ok := c.mem.Get(key); ok {
		if !e.expired(now) {
			return e.data, true, nil
		}
		c.mem.Remove(key)
	}
	if c.next == nil {
		return nil, false, nil
	}

	data, hit, err := c.next.Get(ctx, key)
	if err != nil || !hit {
		return nil, false, err
	}
	c.mem.Add(key, lruEntry{data: data, expiresAt: now.Add(c.promoteTTL)})
	return data, true, nil
}

func (c *LRUCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	e := lruEntry{data: data}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}
	c.mem.Add(key, e)
	if c.next != nil {
		return c.next.Set(ctx, key, data, ttl)
	}
	return nil
}

func (c *LRUCache) Delete(ctx context.Context, key string) error {
	c.mem.Remove(key)
	if c.next != nil {
		return c.next.Delete(ctx, key)
	}
	return nil
}

// Clear purges memory and clears the next layer when it supports it.
func (c *LRUCache) Clear(ctx context.Context) (int, error) {
	n := c.mem.Len()
	c.mem.Purge()
	if cl, ok := c.next.(Clearer); ok {
		return cl.Clear(ctx)
	}
	return n, nil
}

// Len returns the number of entries held in memory.
func (c *LRUCache) Len() int { return c.mem.Len() }

func (c *LRUCache) Close() error {
	c.mem.Purge()
	if c.next != nil {
		return c.next.Close()
	}
	return nil
}

var _ Cache = (*LRUCache)(nil)

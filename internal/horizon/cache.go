package horizon

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultStaleTime = 5 * time.Second

type cacheEntry struct {
	result    Result
	fetchedAt time.Time
}

// Cache keys lookups by (public key, unique id). Identical concurrent lookups share one request,
// completed results are reused until stale, and failures are never stored.
type Cache struct {
	fetcher   Fetcher
	staleTime time.Duration
	now       func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]cacheEntry
}

// NewCache wraps fetcher. A non-positive staleTime falls back to five seconds.
func NewCache(fetcher Fetcher, staleTime time.Duration) *Cache {
	if staleTime <= 0 {
		staleTime = defaultStaleTime
	}
	return &Cache{
		fetcher:   fetcher,
		staleTime: staleTime,
		now:       time.Now,
		entries:   make(map[string]cacheEntry),
	}
}

func cacheKey(publicKey, uniqueID string) string {
	return "accountSequenceNumber|" + publicKey + "|" + uniqueID
}

// Fetch returns a fresh cached result or performs the lookup.
func (c *Cache) Fetch(ctx context.Context, q Query) (Result, error) {
	if !q.Enabled {
		return Result{State: StateIdle}, nil
	}
	key := cacheKey(q.PublicKey, q.UniqueID)

	c.mu.Lock()
	entry, ok := c.entries[key]
	c.mu.Unlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.staleTime {
		return entry.result, nil
	}

	// Callers joining an in-flight lookup must not inherit the first caller's cancellation.
	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := c.fetcher.Fetch(shared, q)
		if err != nil {
			return Result{}, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{result: res, fetchedAt: c.now()}
		c.mu.Unlock()
		return res, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// Invalidate drops the entry for the given key so the next Fetch goes to the network.
func (c *Cache) Invalidate(publicKey, uniqueID string) {
	c.mu.Lock()
	delete(c.entries, cacheKey(publicKey, uniqueID))
	c.mu.Unlock()
}

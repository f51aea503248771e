package convo

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedFetcher memoizes successful fetches. Entries are evicted least
// recently used once size is exceeded, and expire ttl after insertion.
// Failed fetches are never cached.
type CachedFetcher struct {
	inner Fetcher
	cache *expirable.LRU[string, *Conversation]
}

func NewCachedFetcher(inner Fetcher, size int, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{
		inner: inner,
		cache: expirable.NewLRU[string, *Conversation](size, nil, ttl),
	}
}

// Fetch returns the cached conversation when present. Callers must treat the
// result as read-only since it is shared between builds.
func (f *CachedFetcher) Fetch(ctx context.Context, id string) (*Conversation, error) {
	if c, ok := f.cache.Get(id); ok {
		return c, nil
	}
	c, err := f.inner.Fetch(ctx, id)
	if err != nil {
		return nil, err
	}
	f.cache.Add(id, c)
	return c, nil
}

// Invalidate drops one conversation from the cache.
func (f *CachedFetcher) Invalidate(id string) {
	f.cache.Remove(id)
}

func (f *CachedFetcher) Purge() {
	f.cache.Purge()
}

func (f *CachedFetcher) Len() int {
	return f.cache.Len()
}

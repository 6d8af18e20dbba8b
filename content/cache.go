package content

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores category feeds with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) (Feed, bool)
	Set(ctx context.Context, key string, feed Feed)
}

// CachedSource wraps a Source with a Cache. Cache misses hit the inner source
// and fill the cache; failures to cache are ignored, the feed is still served.
type CachedSource struct {
	inner Source
	cache Cache
}

// NewCachedSource wraps source with cache.
func NewCachedSource(source Source, cache Cache) *CachedSource {
	return &CachedSource{inner: source, cache: cache}
}

// Fetch returns the cached feed for the category when present, otherwise
// fetches from the inner source and caches the result.
func (s *CachedSource) Fetch(ctx context.Context, category string) (Feed, error) {
	key := "news:" + category
	if feed, ok := s.cache.Get(ctx, key); ok {
		return feed, nil
	}

	feed, err := s.inner.Fetch(ctx, category)
	if err != nil {
		return Feed{}, err
	}

	s.cache.Set(ctx, key, feed)
	return feed, nil
}

// RedisCache is a Cache backed by Redis.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis cache from a redis URL.
func NewRedisCache(redisURL string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

// Get returns the cached feed for key, if any.
func (c *RedisCache) Get(ctx context.Context, key string) (Feed, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return Feed{}, false
	}
	var feed Feed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return Feed{}, false
	}
	return feed, true
}

// Set stores the feed under key with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, feed Feed) {
	raw, err := json.Marshal(feed)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

// MemoryCache is an in-process Cache used when no Redis is configured.
type MemoryCache struct {
	ttl time.Duration

	mu      sync.Mutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	feed      Feed
	expiresAt time.Time
}

// NewMemoryCache creates an in-memory cache with the given TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{ttl: ttl, entries: make(map[string]memoryEntry)}
}

// Get returns the cached feed for key when present and not expired.
func (c *MemoryCache) Get(ctx context.Context, key string) (Feed, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return Feed{}, false
	}
	return entry.feed, true
}

// Set stores the feed under key.
func (c *MemoryCache) Set(ctx context.Context, key string, feed Feed) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoryEntry{feed: feed, expiresAt: time.Now().Add(c.ttl)}
}

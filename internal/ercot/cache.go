package ercot

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"spp-forecast/internal/model"
)

// PageCache stores raw data endpoint bodies. It is opt-in and only ever
// holds upstream pages, never computed forecasts.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
}

// PageCacheKey derives a stable key from the query and page number.
func PageCacheKey(q model.RangeQuery, page int) string {
	keyStr := fmt.Sprintf("%s:%s:%s:%d", q.DeliveryDateFrom, q.DeliveryDateTo, q.SettlementPoint, page)
	hash := sha256.Sum256([]byte(keyStr))
	return hex.EncodeToString(hash[:])
}

type cacheEntry struct {
	body      []byte
	expiresAt time.Time
}

// MemoryPageCache is an in-process TTL cache. Call Close to stop the
// background sweep.
type MemoryPageCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryPageCache starts a cache that sweeps expired entries every
// sweep interval. sweep <= 0 disables the sweep.
func NewMemoryPageCache(ttl, sweep time.Duration) *MemoryPageCache {
	c := &MemoryPageCache{
		store: make(map[string]cacheEntry),
		ttl:   ttl,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if sweep > 0 {
		go c.cleanup(sweep)
	}
	return c
}

func (c *MemoryPageCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false, nil
	}
	return entry.body, true, nil
}

func (c *MemoryPageCache) Set(_ context.Context, key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.store[key] = cacheEntry{body: append([]byte(nil), body...), expiresAt: c.now().Add(c.ttl)}
	return nil
}

// Len reports the number of stored entries, expired or not.
func (c *MemoryPageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *MemoryPageCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

func (c *MemoryPageCache) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryPageCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
		}
	}
}

const redisKeyPrefix = "spp:page:"

// RedisPageCache shares pages between processes.
type RedisPageCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPageCache(rdb *redis.Client, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{rdb: rdb, ttl: ttl}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return body, true, nil
}

func (c *RedisPageCache) Set(ctx context.Context, key string, body []byte) error {
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, body, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

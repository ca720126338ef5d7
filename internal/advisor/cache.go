package advisor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ResultCache stores encoded diagnosis results by key.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(context.Context, string, []byte) error {
	return nil
}

// RedisCache keeps results in Redis/Dragonfly with a fixed TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed result cache. A non-positive ttl
// keeps entries until they are evicted.
func NewRedisCache(client *redis.Client, ttl time.Duration) (*RedisCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get %s: %w", key, err)
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, key, value, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// MemoryCache is an in-process ResultCache for tests and single-node runs.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	ttl   time.Duration
	now   func() time.Time
}

type memoryItem struct {
	data    []byte
	expires time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if !item.expires.IsZero() && c.now().After(item.expires) {
		delete(c.items, key)
		return nil, false, nil
	}
	return append([]byte(nil), item.data...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	item := memoryItem{data: append([]byte(nil), value...)}
	if c.ttl > 0 {
		item.expires = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Package cache connects to the Redis-compatible store that holds cached
// diagnoses.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client.
type Cache struct {
	Client *redis.Client
}

// Options holds client settings. Zero durations take the defaults.
type Options struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New connects to the store and pings it.
func New(ctx context.Context, o Options) (*Cache, error) {
	opts, err := ParseURL(o.URL)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = orDefault(o.DialTimeout, 5*time.Second)
	opts.ReadTimeout = orDefault(o.ReadTimeout, 2*time.Second)
	opts.WriteTimeout = orDefault(o.WriteTimeout, 2*time.Second)
	if o.PoolSize > 0 {
		opts.PoolSize = o.PoolSize
	}
	opts.ClientName = "gapfinder"

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}

	return &Cache{Client: client}, nil
}

// Close shuts down the client.
func (c *Cache) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// HealthCheck verifies the store is reachable.
func (c *Cache) HealthCheck(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

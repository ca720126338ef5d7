package advisor

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if got, ok, _ := c.Get(ctx, "k"); !ok || string(got) != "v" {
		t.Errorf("Get() = %q, %v, want v, true", got, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("Get() should miss after the TTL")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after expiry", c.Len())
	}
}

func TestNewRedisCache_NilClient(t *testing.T) {
	if _, err := NewRedisCache(nil, time.Minute); err == nil {
		t.Error("NewRedisCache(nil) should fail")
	}
}

func TestCacheKey(t *testing.T) {
	a, err := cacheKey(ModeLevel, "v1", map[string]string{"x": "1"})
	if err != nil {
		t.Fatalf("cacheKey() error = %v", err)
	}
	b, _ := cacheKey(ModeLevel, "v2", map[string]string{"x": "1"})
	c, _ := cacheKey(ModePlan, "v1", map[string]string{"x": "1"})

	if a == b || a == c {
		t.Errorf("keys collide: %s %s %s", a, b, c)
	}
	if len(a) != len(keyPrefix)+64 {
		t.Errorf("len(key) = %d, want prefix + 64 hex chars", len(a))
	}
}

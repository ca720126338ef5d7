package cache

import (
	"context"
	"testing"
	"time"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantDB  int
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", 0, false},
		{"valid-with-db", "redis://localhost:6379/3", 3, false},
		{"tls", "rediss://localhost:6380", 0, false},
		{"empty", "", 0, true},
		{"wrong-scheme", "http://localhost:6379", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && opts.DB != tt.wantDB {
				t.Errorf("DB = %d, want %d", opts.DB, tt.wantDB)
			}
		})
	}
}

func TestOrDefault(t *testing.T) {
	if got := orDefault(0, time.Second); got != time.Second {
		t.Errorf("orDefault(0) = %v, want 1s", got)
	}
	if got := orDefault(3*time.Second, time.Second); got != 3*time.Second {
		t.Errorf("orDefault(3s) = %v, want 3s", got)
	}
}

func TestClose_Nil(t *testing.T) {
	var c *Cache
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil cache = %v", err)
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	_, err := New(context.Background(), Options{URL: "redis://localhost:59999", DialTimeout: time.Second})
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

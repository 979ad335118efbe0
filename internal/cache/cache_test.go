package cache

import (
	"bytes"
	"context"
	"testing"
	"time"
)

// TestInMemoryCache_GetSet verifies that Set stores payloads and Get
// retrieves them unchanged.
func TestInMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	payload := []byte(`{"hourly":{"time":[0,3600]}}`)
	if err := c.Set(ctx, "q1", payload, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, ok, err := c.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !ok {
		t.Fatal("Get() ok = false, want true")
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Get() = %q, want %q", got, payload)
	}
}

// TestInMemoryCache_Get_Miss verifies that Get returns ok=false when
// the requested key does not exist in cache.
func TestInMemoryCache_Get_Miss(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	_, ok, err := c.Get(ctx, "nonexistent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for miss")
	}
}

// TestInMemoryCache_Get_Expired verifies that Get returns ok=false for
// expired entries and removes them from cache on access.
func TestInMemoryCache_Get_Expired(t *testing.T) {
	ctx := context.Background()
	c := NewInMemoryCache()

	if err := c.Set(ctx, "q1", []byte("x"), 1*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(2 * time.Millisecond)

	_, ok, err := c.Get(ctx, "q1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if ok {
		t.Error("Get() ok = true, want false for expired entry")
	}

	// Expired entry should be removed
	_, ok2, _ := c.Get(ctx, "q1")
	if ok2 {
		t.Error("Expired entry should be deleted from cache")
	}
}

// TestParseAddrs verifies comma-separated address splitting and trimming.
func TestParseAddrs(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"single", "localhost:11211", 1},
		{"multiple with spaces", "a:11211, b:11211 ,c:11211", 3},
		{"empty", "", 0},
		{"only commas", ", ,", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseAddrs(tt.in); len(got) != tt.want {
				t.Errorf("parseAddrs(%q) = %v, want %d entries", tt.in, got, tt.want)
			}
		})
	}
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var got string
	if err := mc.Get(ctx, "k", &got); err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != "v" {
		t.Errorf("got %q, want v", got)
	}

	if err := mc.Get(ctx, "absent", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get absent = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Nanosecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(time.Millisecond)

	var got string
	if err := mc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get expired = %v, want ErrCacheMiss", err)
	}
}

func TestMemoryCacheEvictsOldest(t *testing.T) {
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := mc.Set(ctx, fmt.Sprintf("k%d", i), "v", time.Minute); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	var got string
	if err := mc.Get(ctx, "k0", &got); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("oldest key survived eviction: %v", err)
	}
	if err := mc.Get(ctx, "k2", &got); err != nil {
		t.Errorf("newest key evicted: %v", err)
	}
}

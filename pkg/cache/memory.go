package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// memEntry is one cached value. lastUsed drives LRU eviction.
const memDefaultTTL = 7 * 24 * time.Hour

type memEntry struct {
	value    interface{}
	expireAt time.Time
	lastUsed time.Time
}

func (e *memEntry) expired(now time.Time) bool {
	return now.After(e.expireAt)
}

// MemoryCache implements Service with an in-process map, bounded by LRU
// eviction. Forecast payloads are stored as JSON strings, so Get supports
// *string and *interface{} destinations only.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*memEntry
	maxSize int
	janitor *time.Ticker
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	mc := &MemoryCache{
		entries: make(map[string]*memEntry),
		maxSize: cfg.MaxSize,
		janitor: time.NewTicker(cfg.CleanupInterval),
	}

	go mc.sweep()
	return mc
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if len(mc.entries) >= mc.maxSize {
		mc.evictOldest()
	}

	now := time.Now()
	if expiration <= 0 {
		expiration = memDefaultTTL
	}
	mc.entries[key] = &memEntry{
		value:    value,
		expireAt: now.Add(expiration),
		lastUsed: now,
	}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	e, ok := mc.entries[key]
	if !ok {
		return ErrCacheMiss
	}
	if e.expired(now) {
		delete(mc.entries, key)
		return ErrCacheMiss
	}
	e.lastUsed = now

	if sp, ok := dest.(*string); ok {
		if s, ok := e.value.(string); ok {
			*sp = s
			return nil
		}
	}
	*dest.(*interface{}) = e.value
	return nil
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	for _, key := range keys {
		delete(mc.entries, key)
	}
	return nil
}

// DeleteByPattern drops everything; the memory layer has no key scan.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, _ string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries = make(map[string]*memEntry)
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for _, key := range keys {
		if e, ok := mc.entries[key]; ok && !e.expired(now) {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) Increment(_ context.Context, key string) (int64, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	e, ok := mc.entries[key]
	if !ok || e.expired(now) {
		mc.entries[key] = &memEntry{value: int64(1), expireAt: now.Add(memDefaultTTL), lastUsed: now}
		return 1, nil
	}

	n, ok := e.value.(int64)
	if !ok {
		return 0, fmt.Errorf("value is not int64")
	}
	e.value = n + 1
	e.lastUsed = now
	return n + 1, nil
}

func (mc *MemoryCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if e, ok := mc.entries[key]; ok {
		e.expireAt = time.Now().Add(expiration)
		return true, nil
	}
	return false, nil
}

func (mc *MemoryCache) MSet(ctx context.Context, values map[string]interface{}, expiration time.Duration) error {
	for key, value := range values {
		if err := mc.Set(ctx, key, value, expiration); err != nil {
			return err
		}
	}
	return nil
}

func (mc *MemoryCache) MGet(_ context.Context, keys ...string) (map[string]string, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	results := make(map[string]string)
	for _, key := range keys {
		if e, ok := mc.entries[key]; ok && !e.expired(now) {
			if s, ok := e.value.(string); ok {
				results[key] = s
			}
		}
	}
	return results, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	if e, ok := mc.entries[key]; ok && !e.expired(now) {
		return false, nil
	}
	mc.entries[key] = &memEntry{value: "locked", expireAt: now.Add(ttl), lastUsed: now}
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// evictOldest removes the least recently used entry. Caller holds mu.
func (mc *MemoryCache) evictOldest() {
	var oldestKey string
	var oldest time.Time

	for key, e := range mc.entries {
		if oldestKey == "" || e.lastUsed.Before(oldest) {
			oldest = e.lastUsed
			oldestKey = key
		}
	}
	if oldestKey != "" {
		delete(mc.entries, oldestKey)
	}
}

func (mc *MemoryCache) sweep() {
	for range mc.janitor.C {
		now := time.Now()
		mc.mu.Lock()
		for key, e := range mc.entries {
			if e.expired(now) {
				delete(mc.entries, key)
			}
		}
		mc.mu.Unlock()
	}
}

// Close stops the background sweeper.
func (mc *MemoryCache) Close() error {
	if mc.janitor != nil {
		mc.janitor.Stop()
	}
	return nil
}

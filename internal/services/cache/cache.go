// Package cache holds computed payoff results so repeated form posts and
// chart refreshes skip the simulation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores opaque values by key
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key hashes v's JSON form under prefix, e.g. "payoff:3fa1..."
func Key(prefix string, v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", prefix, hash[:12])
}

// GetJSON decodes the cached value for key into v
func GetJSON(ctx context.Context, c Cache, key string, v interface{}) bool {
	if c == nil || key == "" {
		return false
	}
	data, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// SetJSON stores v under key
func SetJSON(ctx context.Context, c Cache, key string, v interface{}, ttl time.Duration) error {
	if c == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}

type entry struct {
	value   []byte
	expires time.Time
}

// MemoryCache is an in-process cache with per-entry expiry
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	max     int
	now     func() time.Time
}

// NewMemoryCache keeps at most max entries; max <= 0 means 1024
func NewMemoryCache(max int) *MemoryCache {
	if max <= 0 {
		max = 1024
	}
	return &MemoryCache{entries: make(map[string]entry), max: max, now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || (!e.expires.IsZero() && c.now().After(e.expires)) {
		return nil, false
	}
	return e.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if len(c.entries) >= c.max {
		c.evict(now)
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expires = now.Add(ttl)
	}
	c.entries[key] = e
	return nil
}

// evict drops expired entries, or everything when none have expired.
// Caller must hold the lock.
func (c *MemoryCache) evict(now time.Time) {
	for k, e := range c.entries {
		if !e.expires.IsZero() && now.After(e.expires) {
			delete(c.entries, k)
		}
	}
	if len(c.entries) >= c.max {
		c.entries = make(map[string]entry)
	}
}

// Len returns the number of stored entries, expired ones included
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// RedisCache stores values in Redis
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to the Redis server at addr
func NewRedisCache(addr string) *RedisCache {
	return &RedisCache{client: redis.NewClient(&redis.Options{Addr: addr})}
}

// Ping checks the connection
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the client
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// internal/registrar/tokencache.go
//
// Bearer-token cache abstraction.
//
// Context
// -------
// The registrar issues bearer tokens from POST /auth/login and expects
// them to be reused until they expire.  The cache is an injected
// interface so tests run against the in-memory implementation and
// multi-process deployments can share one token through Redis (logging
// in concurrently from several processes invalidates each other's
// tokens at some registrars).
//
// Keys are mode + a hash of the username, so sandbox and live tokens for
// the same reseller never collide.
package registrar

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenCache stores one bearer token per key with a TTL.
type TokenCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, token string, ttl time.Duration)
	Invalidate(ctx context.Context, key string)
}

// CacheKey derives the cache key for a mode + username pair.
func CacheKey(mode, username string) string {
	sum := sha256.Sum256([]byte(username))
	return "registrar:" + mode + ":" + hex.EncodeToString(sum[:8])
}

//
// In-memory implementation (default)
//

type memoryEntry struct {
	token string
	exp   time.Time
}

// MemoryTokenCache is a process-local TTL map.  Zero value is unusable;
// construct with NewMemoryTokenCache.
type MemoryTokenCache struct {
	mu sync.RWMutex
	m  map[string]memoryEntry
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{m: make(map[string]memoryEntry)}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.RLock()
	e, ok := c.m[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.exp) {
		return "", false
	}
	return e.token, true
}

func (c *MemoryTokenCache) Set(_ context.Context, key, token string, ttl time.Duration) {
	c.mu.Lock()
	c.m[key] = memoryEntry{token: token, exp: time.Now().Add(ttl)}
	c.mu.Unlock()
}

func (c *MemoryTokenCache) Invalidate(_ context.Context, key string) {
	c.mu.Lock()
	delete(c.m, key)
	c.mu.Unlock()
}

//
// Redis implementation (optional, multi-process)
//

// RedisTokenCache shares tokens between provisioner processes.  Failures
// degrade to a cache miss; the caller just logs in again.
type RedisTokenCache struct {
	rdb *redis.Client
}

func NewRedisTokenCache(rdb *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{rdb: rdb}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (string, bool) {
	val, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || err != nil {
		return "", false
	}
	return val, true
}

func (c *RedisTokenCache) Set(ctx context.Context, key, token string, ttl time.Duration) {
	_ = c.rdb.Set(ctx, key, token, ttl).Err()
}

func (c *RedisTokenCache) Invalidate(ctx context.Context, key string) {
	_ = c.rdb.Del(ctx, key).Err()
}

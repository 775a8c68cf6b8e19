package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/go-redis/redis/v8"

	"github.com/zmeiler/Zach-scripty/server/internal/utils"
)

// Cache is a read-through tier in front of a Backend.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

func cacheKey(username string) string {
	return fmt.Sprintf("account:%s", SanitizeUsername(username))
}

// RedisCache stores records in Redis with a TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects and pings the server.
func NewRedisCache(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis.Ping failed: %w", err)
	}
	utils.LogInfof("Redis account cache connected at %s.", addr)
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, data []byte) error {
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

func (c *RedisCache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// MemoryCache is an in-process cost-bounded cache.
type MemoryCache struct {
	cache *ristretto.Cache[string, []byte]
	ttl   time.Duration
}

func NewMemoryCache(maxBytes int64, ttl time.Duration) (*MemoryCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: 100000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create memory cache: %w", err)
	}
	return &MemoryCache{cache: cache, ttl: ttl}, nil
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, ok := c.cache.Get(key)
	return data, ok, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, data []byte) error {
	c.cache.SetWithTTL(key, data, int64(len(data)), c.ttl)
	c.cache.Wait()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.cache.Del(key)
	return nil
}

func (c *MemoryCache) Close() error {
	c.cache.Close()
	return nil
}

// CachedBackend applies cache-aside reads and write-through saves. Cache
// failures are logged and never fail the operation.
type CachedBackend struct {
	backend Backend
	cache   Cache
}

func NewCachedBackend(backend Backend, cache Cache) *CachedBackend {
	return &CachedBackend{backend: backend, cache: cache}
}

func (b *CachedBackend) Load(ctx context.Context, username string) ([]byte, error) {
	key := cacheKey(username)
	data, ok, err := b.cache.Get(ctx, key)
	if err != nil {
		utils.LogWarnf("Cache read failed for %s: %v", username, err)
	} else if ok {
		utils.LogDebugf("Cache hit for account %s", username)
		return data, nil
	}

	data, err = b.backend.Load(ctx, username)
	if err != nil {
		return nil, err
	}
	if err := b.cache.Set(ctx, key, data); err != nil {
		utils.LogWarnf("Cache fill failed for %s: %v", username, err)
	}
	return data, nil
}

func (b *CachedBackend) Save(ctx context.Context, username string, data []byte) error {
	if err := b.backend.Save(ctx, username, data); err != nil {
		return err
	}
	key := cacheKey(username)
	if err := b.cache.Set(ctx, key, data); err != nil {
		utils.LogWarnf("Cache update failed for %s: %v", username, err)
		// Never leave the previous version cached.
		if err := b.cache.Delete(ctx, key); err != nil {
			utils.LogErrorf("Cache invalidation failed for %s: %v", username, err)
		}
	}
	return nil
}

func (b *CachedBackend) Close() error {
	return errors.Join(b.cache.Close(), b.backend.Close())
}

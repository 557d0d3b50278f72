package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"agriserve-query/internal/common/logger"
	"agriserve-query/internal/common/metrics"
)

// Cache maps a normalized query to its embedding. Later writes overwrite earlier ones.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, vec []float32)
}

// NormalizeKey lowercases, trims and collapses internal whitespace.
func NormalizeKey(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

// Entry is what the in-process tier stores per key.
type Entry struct {
	Vector     []float32
	InsertedAt time.Time
}

// LRUCache is a bounded in-process tier.
type LRUCache struct {
	entries *lru.Cache[string, Entry]
	now     func() time.Time
}

func NewLRUCache(size int, now func() time.Time) (*LRUCache, error) {
	if now == nil {
		now = time.Now
	}
	entries, err := lru.New[string, Entry](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{entries: entries, now: now}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]float32, bool) {
	e, ok := c.entries.Get(key)
	metrics.EmbeddingCache.WithLabelValues("lru", hitLabel(ok)).Inc()
	if !ok {
		return nil, false
	}
	return e.Vector, true
}

func (c *LRUCache) Set(_ context.Context, key string, vec []float32) {
	c.entries.Add(key, Entry{Vector: vec, InsertedAt: c.now()})
}

// Peek returns the stored entry without touching recency.
func (c *LRUCache) Peek(key string) (Entry, bool) {
	return c.entries.Peek(key)
}

func (c *LRUCache) Len() int {
	return c.entries.Len()
}

const redisKeyPrefix = "embedding:"

// redisKey hashes the normalized query so raw user text never lands in the
// shared tier.
func redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return redisKeyPrefix + hex.EncodeToString(sum[:])
}

// RedisCache shares embeddings across worker replicas. Redis errors are
// logged and reported as misses.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
	log    logger.Logger
}

func NewRedisCache(client redis.Cmdable, ttl time.Duration, log logger.Logger) *RedisCache {
	return &RedisCache{client: client, ttl: ttl, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("embedding cache read failed", map[string]interface{}{"error": err.Error()})
		}
		metrics.EmbeddingCache.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}

	var vec []float32
	if err := json.Unmarshal(data, &vec); err != nil {
		c.log.Warn("embedding cache entry corrupt", map[string]interface{}{"error": err.Error()})
		metrics.EmbeddingCache.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	metrics.EmbeddingCache.WithLabelValues("redis", "hit").Inc()
	return vec, true
}

func (c *RedisCache) Set(ctx context.Context, key string, vec []float32) {
	data, err := json.Marshal(vec)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, redisKey(key), data, c.ttl).Err(); err != nil {
		c.log.Warn("embedding cache write failed", map[string]interface{}{"error": err.Error()})
	}
}

// TieredCache reads local first, then remote, backfilling local on a remote hit.
type TieredCache struct {
	local  Cache
	remote Cache
}

func NewTieredCache(local, remote Cache) *TieredCache {
	return &TieredCache{local: local, remote: remote}
}

func (c *TieredCache) Get(ctx context.Context, key string) ([]float32, bool) {
	if vec, ok := c.local.Get(ctx, key); ok {
		return vec, true
	}
	vec, ok := c.remote.Get(ctx, key)
	if ok {
		c.local.Set(ctx, key, vec)
	}
	return vec, ok
}

func (c *TieredCache) Set(ctx context.Context, key string, vec []float32) {
	c.local.Set(ctx, key, vec)
	c.remote.Set(ctx, key, vec)
}

func hitLabel(ok bool) string {
	if ok {
		return "hit"
	}
	return "miss"
}

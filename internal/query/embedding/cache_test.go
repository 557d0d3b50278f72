package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agriserve-query/internal/common/logger"
)

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "how do i rent a tractor", NormalizeKey("  How do   I\trent a TRACTOR \n"))
	assert.Equal(t, "", NormalizeKey("   "))
}

func TestLRUCache_OverwriteAndEvict(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)
	c, err := NewLRUCache(2, func() time.Time { return now })
	require.NoError(t, err)

	c.Set(ctx, "a", []float32{1})
	c.Set(ctx, "a", []float32{2})
	vec, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, []float32{2}, vec)
	assert.Equal(t, 1, c.Len(), "one entry per key")

	entry, ok := c.Peek("a")
	require.True(t, ok)
	assert.Equal(t, now, entry.InsertedAt)

	c.Set(ctx, "b", []float32{3})
	c.Set(ctx, "c", []float32{4})
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok, "least recently used entry evicted")
	assert.Equal(t, 2, c.Len())
}

func TestNewLRUCache_RejectsNonPositiveSize(t *testing.T) {
	_, err := NewLRUCache(0, nil)
	assert.Error(t, err)
}

func TestRedisCache_RoundTripWithTTL(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	c := NewRedisCache(client, time.Hour, logger.NewTestLogger(t))

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "k", []float32{0.25, -1})
	vec, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []float32{0.25, -1}, vec)

	assert.True(t, srv.Exists(redisKey("k")))
	assert.Equal(t, time.Hour, srv.TTL(redisKey("k")))
	assert.False(t, srv.Exists("embedding:k"), "raw query text must not be a key")
}

func TestRedisCache_CorruptEntryIsMiss(t *testing.T) {
	srv := miniredis.RunT(t)
	require.NoError(t, srv.Set(redisKey("k"), "not json"))
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	_, ok := NewRedisCache(client, time.Hour, logger.NewTestLogger(t)).Get(context.Background(), "k")
	assert.False(t, ok)
}

func TestRedisCache_ErrorsDegradeToMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewRedisCache(client, time.Hour, logger.NewTestLogger(t))

	mock.ExpectGet(redisKey("k")).SetErr(errors.New("connection refused"))
	mock.ExpectSet(redisKey("k"), []byte("[0.5,1]"), time.Hour).SetErr(errors.New("connection refused"))

	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	c.Set(context.Background(), "k", []float32{0.5, 1})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTieredCache_BackfillsLocal(t *testing.T) {
	ctx := context.Background()
	local, err := NewLRUCache(10, nil)
	require.NoError(t, err)

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()
	remote := NewRedisCache(client, time.Minute, logger.NewTestLogger(t))

	remote.Set(ctx, "shared", []float32{7})
	tiered := NewTieredCache(local, remote)

	vec, ok := tiered.Get(ctx, "shared")
	require.True(t, ok)
	assert.Equal(t, []float32{7}, vec)

	_, ok = local.Peek("shared")
	assert.True(t, ok, "remote hit copied into the local tier")

	tiered.Set(ctx, "both", []float32{8})
	_, ok = local.Peek("both")
	assert.True(t, ok)
	assert.True(t, srv.Exists(redisKey("both")))
}

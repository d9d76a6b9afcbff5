package ratelimiter_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techabbayi/diksuchi-projecthub-sub001/internal/service/ratelimiter"
)

func newTestLimiter(t *testing.T, buckets map[string]ratelimiter.BucketConfig) *ratelimiter.RedisLuaLimiter {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return ratelimiter.NewRedisLuaLimiter(rdb, buckets)
}

func TestAllow_ConsumesTokensUntilEmpty(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, map[string]ratelimiter.BucketConfig{
		"ai:primary": {Capacity: 3, RefillRate: 0.001},
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		allowed, _, err := l.Allow(ctx, "ai:primary", 1)
		require.NoError(t, err)
		assert.True(t, allowed, "call %d should pass", i+1)
	}

	allowed, retryAfter, err := l.Allow(ctx, "ai:primary", 1)
	require.NoError(t, err)
	assert.False(t, allowed, "bucket exhausted")
	assert.Greater(t, retryAfter, time.Duration(0))
}

func TestAllow_UnconfiguredKeyAlwaysAllowed(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, nil)
	allowed, _, err := l.Allow(context.Background(), "no-such-bucket", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAllow_CostLargerThanOne(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, map[string]ratelimiter.BucketConfig{
		"batch": {Capacity: 10, RefillRate: 0.001},
	})

	ctx := context.Background()
	allowed, _, err := l.Allow(ctx, "batch", 8)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = l.Allow(ctx, "batch", 8)
	require.NoError(t, err)
	assert.False(t, allowed, "only 2 tokens left")
}

func TestAllow_FailsOpenWhenRedisDown(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := ratelimiter.NewRedisLuaLimiter(rdb, map[string]ratelimiter.BucketConfig{
		"ai:primary": {Capacity: 1, RefillRate: 1},
	})
	mr.Close()

	allowed, _, err := l.Allow(context.Background(), "ai:primary", 1)
	require.Error(t, err)
	assert.True(t, allowed, "limiter outages must not block traffic")
}

func TestSetBucket_InstallsAtRuntime(t *testing.T) {
	t.Parallel()
	l := newTestLimiter(t, map[string]ratelimiter.BucketConfig{})
	l.SetBucket("new", ratelimiter.BucketConfig{Capacity: 1, RefillRate: 0.001})

	ctx := context.Background()
	allowed, _, err := l.Allow(ctx, "new", 1)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, _, err = l.Allow(ctx, "new", 1)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestNewBucketConfigFromPerMinute(t *testing.T) {
	t.Parallel()
	cfg := ratelimiter.NewBucketConfigFromPerMinute(30)
	assert.Equal(t, int64(30), cfg.Capacity)
	assert.InDelta(t, 0.5, cfg.RefillRate, 1e-9)

	assert.Zero(t, ratelimiter.NewBucketConfigFromPerMinute(0).Capacity)
}

func TestNilLimiterAlwaysAllows(t *testing.T) {
	t.Parallel()
	var l *ratelimiter.RedisLuaLimiter
	allowed, _, err := l.Allow(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.True(t, allowed)
}

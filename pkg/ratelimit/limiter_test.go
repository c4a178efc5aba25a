package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterFixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewMemoryLimiter(2, time.Minute)
	l.now = func() time.Time { return now }
	ctx := context.Background()
	key := Key("10.0.0.1", "/auth/login")

	r, err := l.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)

	r, _ = l.Allow(ctx, key)
	assert.True(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	r, _ = l.Allow(ctx, key)
	assert.False(t, r.Allowed)
	assert.Equal(t, time.Minute, r.RetryAfter(now))

	// 其他路由独立计数
	r, _ = l.Allow(ctx, Key("10.0.0.1", "/orders"))
	assert.True(t, r.Allowed)

	// 窗口过期后重置
	now = now.Add(time.Minute)
	r, _ = l.Allow(ctx, key)
	assert.True(t, r.Allowed)
	assert.Equal(t, 1, r.Remaining)
}

func TestMemoryLimiterSweep(t *testing.T) {
	now := time.Now()
	l := NewMemoryLimiter(1, time.Second)
	l.now = func() time.Time { return now }

	_, _ = l.Allow(context.Background(), "a")
	_, _ = l.Allow(context.Background(), "b")
	assert.Equal(t, 0, l.Sweep())

	now = now.Add(2 * time.Second)
	assert.Equal(t, 2, l.Sweep())
}

func TestRedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	l := NewRedisLimiter(rdb, 2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		r, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, r.Allowed)
	}
	r, err := l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, r.Allowed)
	assert.Equal(t, 0, r.Remaining)

	mr.FastForward(time.Minute)
	r, err = l.Allow(ctx, "k")
	require.NoError(t, err)
	assert.True(t, r.Allowed)
}

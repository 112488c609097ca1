package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/pribylovaa/wedding-guestbook/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestNew_PicksImplementation(t *testing.T) {
	_, rdb := newMiniredis(t)

	require.IsType(t, Unlimited{}, New("submit", config.RatePolicy{}, rdb, "p:"))
	require.IsType(t, &Redis{}, New("submit", config.RatePolicy{Requests: 1, Window: time.Minute}, rdb, "p:"))
	require.IsType(t, &Local{}, New("submit", config.RatePolicy{Requests: 1, Window: time.Minute}, nil, "p:"))
}

func TestRedis_FixedWindow(t *testing.T) {
	mr, rdb := newMiniredis(t)
	ctx := context.Background()

	now := time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)
	l := NewRedis(rdb, "gb:submit:", config.RatePolicy{Requests: 2, Window: time.Minute})
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		require.True(t, ok)
	}

	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.False(t, ok)

	// Другой ключ — свой счётчик.
	ok, err = l.Allow(ctx, "5.6.7.8")
	require.NoError(t, err)
	require.True(t, ok)

	// Ключи окна живут не дольше окна.
	for _, k := range mr.Keys() {
		require.Greater(t, mr.TTL(k), time.Duration(0))
		require.LessOrEqual(t, mr.TTL(k), time.Minute)
	}

	// Следующее окно — счётчик с нуля.
	now = now.Add(time.Minute)
	ok, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestRedis_ErrorWhenUnavailable(t *testing.T) {
	mr, rdb := newMiniredis(t)
	l := NewRedis(rdb, "gb:", config.RatePolicy{Requests: 1, Window: time.Minute})

	mr.Close()

	_, err := l.Allow(context.Background(), "k")
	require.Error(t, err)
}

func TestNewRedisClient_BadURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "://bad")
	require.Error(t, err)
}

func TestLocal_TokenBucket(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)

	l := NewLocal(config.RatePolicy{Requests: 3, Window: 3 * time.Second})
	l.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow(ctx, "a")
		require.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "a")
	require.False(t, ok)

	ok, _ = l.Allow(ctx, "b")
	require.True(t, ok)

	// Через секунду восполняется один токен.
	now = now.Add(time.Second)
	ok, _ = l.Allow(ctx, "a")
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "a")
	require.False(t, ok)
}

func TestLocal_SweepsIdleKeys(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)

	l := NewLocal(config.RatePolicy{Requests: 1, Window: time.Second})
	l.now = func() time.Time { return now }

	_, _ = l.Allow(ctx, "stale")
	now = now.Add(time.Hour)

	for i := 0; i < sweepEvery; i++ {
		_, _ = l.Allow(ctx, "fresh")
	}

	_, ok := l.buckets["stale"]
	require.False(t, ok)
}

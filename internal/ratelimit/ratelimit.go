// Package ratelimit — ограничение частоты запросов по ключу (IP клиента) для классов маршрутов.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/pribylovaa/wedding-guestbook/internal/config"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Limiter решает, можно ли пропустить очередной запрос с данным ключом.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// New выбирает реализацию для политики name:
//   - Requests == 0 — лимит выключен;
//   - rdb != nil — общий для всех реплик fixed window в Redis;
//   - иначе — token bucket в памяти процесса.
func New(name string, p config.RatePolicy, rdb *redis.Client, prefix string) Limiter {
	switch {
	case p.Requests <= 0:
		return Unlimited{}
	case rdb != nil:
		return NewRedis(rdb, prefix+name+":", p)
	default:
		return NewLocal(p)
	}
}

// Unlimited пропускает всё.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

// NewRedisClient создаёт клиент Redis из URL (например, redis://:pass@host:6379/0) и проверяет связь.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("ratelimit: parse redis url: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ratelimit: redis ping: %w", err)
	}

	return rdb, nil
}

// Redis — fixed window: INCR счётчика окна и EXPIRE одним pipeline.
type Redis struct {
	rdb    *redis.Client
	prefix string
	limit  int64
	window time.Duration
	now    func() time.Time
}

func NewRedis(rdb *redis.Client, prefix string, p config.RatePolicy) *Redis {
	return &Redis{
		rdb:    rdb,
		prefix: prefix,
		limit:  int64(p.Requests),
		window: p.Window,
		now:    time.Now,
	}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	slot := r.now().UnixNano() / int64(r.window)
	k := r.prefix + key + ":" + strconv.FormatInt(slot, 10)

	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, r.window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("ratelimit: redis: %w", err)
	}

	return incr.Val() <= r.limit, nil
}

// Local — token bucket на ключ: Requests токенов на Window, всплеск до Requests.
// Давно неактивные ключи периодически вычищаются.
type Local struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	idle    time.Duration
	calls   int
	now     func() time.Time
}

type bucket struct {
	lim  *rate.Limiter
	seen time.Time
}

// sweepEvery — раз в сколько вызовов Allow чистить неактивные ключи.
const sweepEvery = 1024

func NewLocal(p config.RatePolicy) *Local {
	return &Local{
		buckets: make(map[string]*bucket),
		limit:   rate.Every(p.Window / time.Duration(p.Requests)),
		burst:   p.Requests,
		idle:    2 * p.Window,
		now:     time.Now,
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()

	l.calls++
	if l.calls%sweepEvery == 0 {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.idle {
				delete(l.buckets, k)
			}
		}
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now

	return b.lim.AllowN(now, 1), nil
}

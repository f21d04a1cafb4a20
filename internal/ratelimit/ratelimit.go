// Package ratelimit counts requests per key against a fixed budget.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Limiter reports whether one more request for key fits the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a fixed-window counter shared by every instance that
// points at the same Redis.
type RedisLimiter struct {
	client *redis.Client
	prefix string
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, prefix: prefix, limit: int64(limit), window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := l.prefix + ":" + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		// NX keeps the window anchored at the first hit.
		pipe.ExpireNX(ctx, redisKey, l.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis INCR %s: %w", redisKey, err)
	}
	return incr.Val() <= l.limit, nil
}

// MemoryLimiter is the single-instance counterpart of RedisLimiter: a fixed
// window per key, anchored at the key's first hit. It is used when no Redis
// is configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	limit   int
	window  time.Duration
	maxKeys int
	now     func() time.Time
}

type window struct {
	start time.Time
	hits  int
}

func NewMemoryLimiter(limit int, windowSize time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		windows: make(map[string]*window),
		limit:   limit,
		window:  windowSize,
		maxKeys: 100000,
		now:     time.Now,
	}
}

// Allow never forgets a live window to make room. When every tracked key is
// still inside its window, unseen keys are refused until one expires.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if ok && now.Sub(w.start) >= l.window {
		delete(l.windows, key)
		ok = false
	}
	if !ok {
		if len(l.windows) >= l.maxKeys {
			l.evictExpired(now)
			if len(l.windows) >= l.maxKeys {
				return false, nil
			}
		}
		w = &window{start: now}
		l.windows[key] = w
	}

	if w.hits < l.limit {
		w.hits++
		return true, nil
	}
	return false, nil
}

func (l *MemoryLimiter) evictExpired(now time.Time) {
	for key, w := range l.windows {
		if now.Sub(w.start) >= l.window {
			delete(l.windows, key)
		}
	}
}

// Package ratelimit caps how many fetch requests an account may submit
// per minute. A Redis backend keeps the window shared across instances;
// without Redis (or on Redis errors) it falls back to an in-memory window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type Limiter struct {
	rpm        int
	redis      *redis.Client
	inMemMu    sync.Mutex
	inMemCount map[string]int
	inMemReset time.Time
}

// New builds a limiter allowing rpm requests per key per minute.
// redisClient may be nil. rpm <= 0 disables limiting.
func New(rpm int, redisClient *redis.Client) *Limiter {
	return &Limiter{rpm: rpm, redis: redisClient, inMemCount: map[string]int{}}
}

func minuteKey(key string) string {
	return fmt.Sprintf("ratelimit:%s:%d", key, time.Now().Unix()/60)
}

// Allow reports whether the request identified by key is within quota,
// along with the remaining quota for this window (best-effort).
func (l *Limiter) Allow(key string) (bool, int) {
	if l.rpm <= 0 {
		return true, l.rpm
	}
	if l.redis != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		rk := minuteKey(key)
		n, err := l.redis.Incr(ctx, rk).Result()
		if err != nil {
			return l.allowInMem(key)
		}
		// Expire a little past the minute so the window always clears.
		if n == 1 {
			_ = l.redis.Expire(ctx, rk, 65*time.Second).Err()
		}
		return int(n) <= l.rpm, l.rpm - int(n)
	}
	return l.allowInMem(key)
}

func (l *Limiter) allowInMem(key string) (bool, int) {
	now := time.Now()
	l.inMemMu.Lock()
	defer l.inMemMu.Unlock()
	if now.Sub(l.inMemReset) > 60*time.Second {
		l.inMemCount = map[string]int{}
		l.inMemReset = now
	}
	l.inMemCount[key]++
	n := l.inMemCount[key]
	return n <= l.rpm, l.rpm - n
}

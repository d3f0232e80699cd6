package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a sliding-window limiter backed by a Redis sorted set per
// key. It lets several daemon instances share one admission budget.
type RedisLimiter struct {
	rdb *redis.Client
}

// NewRedisLimiter creates a limiter on an existing Redis client.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func rateLimitKey(key string) string {
	return "ratelimit:" + key
}

// Allow implements Limiter. The request's member is added before counting
// and removed again on rejection, so concurrent callers can never admit
// more than limit requests within the window.
func (rl *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()
	cutoff := now - window.Microseconds()
	rkey := rateLimitKey(key)
	member := strconv.FormatInt(now, 10) + ":" + strconv.FormatInt(time.Now().UnixNano(), 10)

	var count *redis.IntCmd
	_, err := rl.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(cutoff, 10))
		pipe.ZAdd(ctx, rkey, redis.Z{Score: float64(now), Member: member})
		count = pipe.ZCard(ctx, rkey)
		pipe.Expire(ctx, rkey, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}

	if count.Val() > int64(limit) {
		if err := rl.rdb.ZRem(ctx, rkey, member).Err(); err != nil {
			return false, fmt.Errorf("redis: rate limit rollback %s: %w", key, err)
		}
		return false, nil
	}

	return true, nil
}

// Compile-time interface checks.
var (
	_ Limiter = (*MemoryLimiter)(nil)
	_ Limiter = (*RedisLimiter)(nil)
)

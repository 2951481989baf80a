package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindow is the shared sliding-window log: one ZSET per key, scores are
// millisecond timestamps, members carry a nanosecond tiebreaker. The store's
// atomic trim/count/add keeps concurrent instances consistent; the race
// between count and add can over-admit at most the racers of one instant.
type RedisWindow struct {
	rc        *redis.Client
	limit     int
	window    time.Duration
	opTimeout time.Duration
}

func NewRedisWindow(rc *redis.Client, limit int, window time.Duration) *RedisWindow {
	return &RedisWindow{rc: rc, limit: limit, window: window, opTimeout: 150 * time.Millisecond}
}

func (r *RedisWindow) Allow(ctx context.Context, key string) (Decision, error) {
	now := time.Now()
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cutoff := strconv.FormatInt(now.Add(-r.window).UnixMilli(), 10)
	pipe := r.rc.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", cutoff)
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, err
	}

	count := int(card.Val())
	allowed := count < r.limit
	if allowed {
		member := strconv.FormatInt(now.UnixNano(), 10)
		pipe = r.rc.TxPipeline()
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: member})
		// Record self-expires one window after last activity.
		pipe.Expire(ctx, key, r.window)
		if _, err := pipe.Exec(ctx); err != nil {
			return Decision{}, err
		}
		count++
	}

	return Decision{Allowed: allowed, CurrentCount: count, ResetAt: now.Add(r.window), Limit: r.limit}, nil
}

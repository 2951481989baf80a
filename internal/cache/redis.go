package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is the shared store. Every round trip carries its own timeout so a
// slow or partitioned Redis can never stall a request.
type Redis struct {
	rc        *redis.Client
	opTimeout time.Duration
}

const defaultOpTimeout = 150 * time.Millisecond

func NewRedis(rc *redis.Client) *Redis {
	return &Redis{rc: rc, opTimeout: defaultOpTimeout}
}

func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	s, err := r.rc.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return s, true, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()
	return r.rc.Set(ctx, key, value, ttl).Err()
}

// InvalidatePattern removes every key under prefix via cursor scan; DEL in
// batches keeps single commands small.
func (r *Redis) InvalidatePattern(ctx context.Context, prefix string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var cursor uint64
	for {
		keys, next, err := r.rc.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := r.rc.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

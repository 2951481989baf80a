package cache

import (
	"context"
	"time"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/logger"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/metrics"
)

// Failover decorates a shared store with a local fallback. A fault on the
// shared side degrades that call to the fallback and is never surfaced:
// callers of Get/Set must not branch on which backend is up.
type Failover struct {
	primary  Store
	fallback Store
}

func NewFailover(primary, fallback Store) *Failover {
	return &Failover{primary: primary, fallback: fallback}
}

func (f *Failover) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok, err := f.primary.Get(ctx, key)
	if err == nil {
		return v, ok, nil
	}
	f.degrade("get", err)
	v, ok, _ = f.fallback.Get(ctx, key)
	return v, ok, nil
}

func (f *Failover) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := f.primary.Set(ctx, key, value, ttl); err != nil {
		f.degrade("set", err)
		_ = f.fallback.Set(ctx, key, value, ttl)
	}
	return nil
}

func (f *Failover) InvalidatePattern(ctx context.Context, prefix string) error {
	if err := f.primary.InvalidatePattern(ctx, prefix); err != nil {
		f.degrade("invalidate", err)
	}
	// The fallback may hold entries under the prefix regardless of which
	// backend served recent writes.
	_ = f.fallback.InvalidatePattern(ctx, prefix)
	return nil
}

func (f *Failover) degrade(op string, err error) {
	metrics.CacheFallbacksTotal.Inc()
	logger.L().Warn("cache_fallback", "op", op, "err", err)
}

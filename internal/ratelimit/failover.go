package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/logger"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/metrics"
)

// probeInterval is how long the failover serves from the local window before
// retrying the shared store.
const probeInterval = 10 * time.Second

// Failover fronts the shared window with a local one. A shared-store fault
// opens the gate for the failing call and routes subsequent calls to the
// local window until a probe succeeds; limits stay approximately enforced
// because every admitted call is also recorded locally during degradation.
type Failover struct {
	shared Limiter
	local  *LocalWindow

	mu            sync.Mutex
	degradedUntil time.Time
}

func NewFailover(shared Limiter, local *LocalWindow) *Failover {
	return &Failover{shared: shared, local: local}
}

func (f *Failover) Allow(ctx context.Context, key string) (Decision, error) {
	f.mu.Lock()
	degraded := time.Now().Before(f.degradedUntil)
	f.mu.Unlock()

	if degraded {
		return f.local.Allow(ctx, key)
	}

	d, err := f.shared.Allow(ctx, key)
	if err == nil {
		return d, nil
	}

	metrics.RateLimitFallbacksTotal.Inc()
	logger.L().Warn("ratelimit_fallback", "key", key, "err", err)
	f.mu.Lock()
	f.degradedUntil = time.Now().Add(probeInterval)
	f.mu.Unlock()

	// Fail open on the erroring call, but record it so the local window
	// carries an accurate count from here on.
	d, _ = f.local.Allow(ctx, key)
	d.Allowed = true
	return d, nil
}

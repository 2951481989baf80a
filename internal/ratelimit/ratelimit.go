// Package ratelimit: sliding-window admission control per caller key. Each
// endpoint class carries its own limit, window and key namespace so counts
// never cross-contaminate between classes.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Decision is the outcome of one admission check. ResetAt is always
// now + window at evaluation time: the window rolls, it is not a fixed bucket.
type Decision struct {
	Allowed      bool
	CurrentCount int
	ResetAt      time.Time
	Limit        int
}

// Limiter is the admission contract shared by the local and Redis windows.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// Config enumerates every recognized option of one endpoint class.
type Config struct {
	// Name namespaces keys as rl:<name>:<caller>.
	Name   string
	Limit  int
	Window time.Duration
	// KeyFn extracts the caller identity; defaults to CallerKey.
	KeyFn func(*http.Request) string
}

func (c Config) validate() error {
	if c.Name == "" {
		return errors.New("ratelimit: class name required")
	}
	if c.Limit <= 0 {
		return fmt.Errorf("ratelimit: class %s: limit must be positive", c.Name)
	}
	if c.Window <= 0 {
		return fmt.Errorf("ratelimit: class %s: window must be positive", c.Name)
	}
	return nil
}

// LocalWindow keeps a per-key log of request instants in process memory.
// A ~1% chance per call sweeps keys whose whole log has aged out.
type LocalWindow struct {
	limit  int
	window time.Duration

	mu      sync.Mutex
	entries map[string][]int64 // unix nanos, ascending
}

func NewLocalWindow(limit int, window time.Duration) *LocalWindow {
	return &LocalWindow{limit: limit, window: window, entries: make(map[string][]int64)}
}

func (l *LocalWindow) Allow(_ context.Context, key string) (Decision, error) {
	now := time.Now()
	cutoff := now.Add(-l.window).UnixNano()

	l.mu.Lock()
	defer l.mu.Unlock()

	log := l.entries[key]
	i := 0
	for i < len(log) && log[i] <= cutoff {
		i++
	}
	if i > 0 {
		// A reslice would pin the full backing array until the next sweep.
		log = append([]int64(nil), log[i:]...)
	}

	count := len(log)
	allowed := count < l.limit
	if allowed {
		ts := now.UnixNano()
		// Uniqueness tiebreaker for calls landing on the same instant.
		if n := len(log); n > 0 && ts <= log[n-1] {
			ts = log[n-1] + 1
		}
		log = append(log, ts)
		count++
	}
	l.entries[key] = log

	if rand.Intn(100) == 0 {
		l.sweepLocked(cutoff)
	}

	return Decision{Allowed: allowed, CurrentCount: count, ResetAt: now.Add(l.window), Limit: l.limit}, nil
}

// sweepLocked drops keys with no activity inside the window to bound memory.
func (l *LocalWindow) sweepLocked(cutoff int64) {
	for k, log := range l.entries {
		if len(log) == 0 || log[len(log)-1] <= cutoff {
			delete(l.entries, k)
		}
	}
}

package cache

import (
	"context"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// localEntry carries its own deadline: the LRU's cache-wide TTL only bounds
// how long dead entries can linger, per-key TTLs are enforced on read.
type localEntry struct {
	value     string
	expiresAt time.Time
}

// Local is the in-process fallback store. Bounded LRU keeps memory in check
// when the shared store is down for long stretches.
type Local struct {
	lru *expirable.LRU[string, localEntry]
}

const (
	localCapacity = 4096
	// Upper bound for the LRU's own eviction clock; individual entries
	// usually expire much earlier via their own deadline.
	localMaxTTL = time.Hour
)

func NewLocal() *Local {
	return &Local{lru: expirable.NewLRU[string, localEntry](localCapacity, nil, localMaxTTL)}
}

func (l *Local) Get(_ context.Context, key string) (string, bool, error) {
	e, ok := l.lru.Get(key)
	if !ok {
		return "", false, nil
	}
	if time.Now().After(e.expiresAt) {
		l.lru.Remove(key)
		return "", false, nil
	}
	return e.value, true, nil
}

func (l *Local) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = localMaxTTL
	}
	l.lru.Add(key, localEntry{value: value, expiresAt: time.Now().Add(ttl)})
	return nil
}

func (l *Local) InvalidatePattern(_ context.Context, prefix string) error {
	for _, k := range l.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			l.lru.Remove(k)
		}
	}
	return nil
}

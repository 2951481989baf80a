// Package cache: key/value store with TTL backing the search layer. A shared
// Redis store and a process-local store satisfy the same contract; which one
// backs a deployment is decided once at startup, never per call.
package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Store is the cache contract. The Failover implementation never returns a
// non-nil error; direct backends surface faults so the decorator can degrade.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	InvalidatePattern(ctx context.Context, prefix string) error
}

// HashKey derives a fixed-length opaque key from a normalized parameter set.
// The payload must marshal deterministically (struct, not map) so equal
// parameters always collapse onto the same key.
func HashKey(namespace string, payload any) string {
	b, err := json.Marshal(payload)
	if err != nil {
		// Marshal of a plain parameter struct cannot fail; keep the key
		// deterministic anyway.
		b = []byte(err.Error())
	}
	sum := sha1.Sum(b)
	return namespace + ":" + hex.EncodeToString(sum[:])
}

// Package utils: Redis connection helper with unified env reading and
// optional DB selection.
package utils

import (
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/logger"
)

// OpenRedis opens a client from explicit address and password.
// Kept for tests and manual injection scenarios.
func OpenRedis(addr, pass string) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass})
}

// OpenRedisFromEnv opens a client from environment variables, supporting
// REDIS_DB selection. Returns nil when no host is configured so callers can
// run cache and rate limiting purely in process.
func OpenRedisFromEnv() *redis.Client {
	host := os.Getenv("REDIS_HOST")
	if host == "" {
		return nil
	}
	port := os.Getenv("REDIS_PORT")
	if port == "" {
		port = "6379"
	}
	addr := host + ":" + port
	pass := os.Getenv("REDIS_PASS")
	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		// ignore parse error silently, default 0
		if n, _ := strconv.Atoi(v); n >= 0 {
			db = n
		}
	}
	logger.L().Debug("redis_env", "addr", addr, "db", db)
	return redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
}

package ratelimit

import (
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/metrics"
)

// Class binds one Config to its limiter instance.
type Class struct {
	cfg     Config
	limiter Limiter
}

// NewClass builds a class limiter. With a Redis client the shared window is
// fronted by the fail-open decorator; without one the class runs purely local.
func NewClass(cfg Config, rc *redis.Client) (*Class, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.KeyFn == nil {
		cfg.KeyFn = CallerKey
	}
	local := NewLocalWindow(cfg.Limit, cfg.Window)
	var lim Limiter = local
	if rc != nil {
		lim = NewFailover(NewRedisWindow(rc, cfg.Limit, cfg.Window), local)
	}
	return &Class{cfg: cfg, limiter: lim}, nil
}

// Classes groups the endpoint classes this service enforces.
type Classes struct {
	General *Class
	Search  *Class
	User    *Class
	Admin   *Class
}

// DefaultClasses wires the per-minute defaults: general 100, search 30,
// user-data 60, admin 10, all on a rolling 60 second window.
func DefaultClasses(rc *redis.Client) (*Classes, error) {
	minute := time.Minute
	general, err := NewClass(Config{Name: "general", Limit: 100, Window: minute}, rc)
	if err != nil {
		return nil, err
	}
	search, err := NewClass(Config{Name: "search", Limit: 30, Window: minute}, rc)
	if err != nil {
		return nil, err
	}
	user, err := NewClass(Config{Name: "user", Limit: 60, Window: minute}, rc)
	if err != nil {
		return nil, err
	}
	admin, err := NewClass(Config{Name: "admin", Limit: 10, Window: minute}, rc)
	if err != nil {
		return nil, err
	}
	return &Classes{General: general, Search: search, User: user, Admin: admin}, nil
}

// Route maps a request path to its class by exact path segment, so a segment
// that merely embeds a class name (e.g. "admin-notes") stays general.
func (c *Classes) Route(r *http.Request) *Class {
	for _, seg := range strings.Split(strings.Trim(r.URL.Path, "/"), "/") {
		switch seg {
		case "admin":
			return c.Admin
		case "search", "pincode":
			return c.Search
		case "user":
			return c.User
		}
	}
	return c.General
}

// CallerKey identifies the caller: API key when authenticated, network origin
// otherwise.
func CallerKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return "key:" + k
	}
	return "ip:" + clientIP(r)
}

// clientIP walks the proxy headers this deployment sits behind, falling back
// to the direct peer.
func clientIP(r *http.Request) string {
	if x := r.Header.Get("x-forwarded-for"); x != "" {
		return strings.TrimSpace(strings.Split(x, ",")[0])
	}
	if x := r.Header.Get("x-real-ip"); x != "" {
		return x
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware enforces the routed class on every request and attaches the
// standard X-RateLimit headers. Rejections answer 429 with a JSON body
// carrying retryAfterSeconds.
func Middleware(classes *Classes) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cls := classes.Route(r)
			key := "rl:" + cls.cfg.Name + ":" + cls.cfg.KeyFn(r)
			d, err := cls.limiter.Allow(r.Context(), key)
			if err != nil {
				// Limiters recover faults internally; never fail closed on
				// an unexpected one.
				next.ServeHTTP(w, r)
				return
			}
			remaining := d.Limit - d.CurrentCount
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
			if !d.Allowed {
				metrics.RateLimitDeniedTotal.WithLabelValues(cls.cfg.Name).Inc()
				retry := int(math.Ceil(float64(time.Until(d.ResetAt).Milliseconds()) / 1000.0))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("content-type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":             "too many requests",
					"retryAfterSeconds": retry,
				})
				return
			}
			metrics.RateLimitAllowedTotal.WithLabelValues(cls.cfg.Name).Inc()
			next.ServeHTTP(w, r)
		})
	}
}

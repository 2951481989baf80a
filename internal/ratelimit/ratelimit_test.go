package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalWindowSlidingLimit(t *testing.T) {
	ctx := context.Background()
	l := NewLocalWindow(3, time.Second)

	want := []bool{true, true, true, false}
	for i, w := range want {
		d, err := l.Allow(ctx, "caller")
		require.NoError(t, err)
		assert.Equal(t, w, d.Allowed, "call %d", i)
	}
}

func TestLocalWindowRecoversAfterWindow(t *testing.T) {
	ctx := context.Background()
	l := NewLocalWindow(2, 80*time.Millisecond)

	for i := 0; i < 2; i++ {
		d, err := l.Allow(ctx, "caller")
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}
	d, err := l.Allow(ctx, "caller")
	require.NoError(t, err)
	require.False(t, d.Allowed)

	time.Sleep(100 * time.Millisecond)
	d, err = l.Allow(ctx, "caller")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestLocalWindowRollingReset(t *testing.T) {
	ctx := context.Background()
	l := NewLocalWindow(5, time.Second)

	before := time.Now()
	d, err := l.Allow(ctx, "caller")
	require.NoError(t, err)
	// resetAt rolls with the evaluation instant, it is not a fixed bucket.
	assert.False(t, d.ResetAt.Before(before.Add(time.Second)))
	assert.False(t, d.ResetAt.After(time.Now().Add(time.Second)))
}

func TestLocalWindowReleasesPrunedEntries(t *testing.T) {
	ctx := context.Background()
	l := NewLocalWindow(64, 30*time.Millisecond)
	for i := 0; i < 64; i++ {
		_, err := l.Allow(ctx, "caller")
		require.NoError(t, err)
	}

	time.Sleep(50 * time.Millisecond)
	d, err := l.Allow(ctx, "caller")
	require.NoError(t, err)
	require.True(t, d.Allowed)

	// Pruning must shed the old backing array, not reslice over it.
	l.mu.Lock()
	c := cap(l.entries["caller"])
	l.mu.Unlock()
	assert.Less(t, c, 64)
}

func TestLocalWindowKeysIsolated(t *testing.T) {
	ctx := context.Background()
	l := NewLocalWindow(1, time.Second)

	d, _ := l.Allow(ctx, "a")
	require.True(t, d.Allowed)
	d, _ = l.Allow(ctx, "a")
	require.False(t, d.Allowed)
	d, _ = l.Allow(ctx, "b")
	assert.True(t, d.Allowed)
}

type downLimiter struct{}

func (downLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("connection refused")
}

func TestFailoverFailsOpenThenLocal(t *testing.T) {
	ctx := context.Background()
	local := NewLocalWindow(2, time.Second)
	f := NewFailover(downLimiter{}, local)

	// Erroring call opens the gate and is recorded locally.
	d, err := f.Allow(ctx, "caller")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	// Degraded calls enforce from the local window.
	d, err = f.Allow(ctx, "caller")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = f.Allow(ctx, "caller")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestConfigValidation(t *testing.T) {
	_, err := NewClass(Config{Name: "", Limit: 10, Window: time.Minute}, nil)
	assert.Error(t, err)
	_, err = NewClass(Config{Name: "x", Limit: 0, Window: time.Minute}, nil)
	assert.Error(t, err)
	_, err = NewClass(Config{Name: "x", Limit: 10, Window: 0}, nil)
	assert.Error(t, err)
	_, err = NewClass(Config{Name: "x", Limit: 10, Window: time.Minute}, nil)
	assert.NoError(t, err)
}

func TestClassesRoute(t *testing.T) {
	classes, err := DefaultClasses(nil)
	require.NoError(t, err)

	cases := []struct {
		path string
		want string
	}{
		{"/api/search", "search"},
		{"/api/pincode/400001", "search"},
		{"/api/admin/reload", "admin"},
		{"/api/user/profile", "user"},
		{"/api/clinics", "general"},
		// Segment matching: class names embedded in a segment do not route.
		{"/api/clinics/admin-notes", "general"},
		{"/api/searchable", "general"},
	}
	for _, c := range cases {
		r := httptest.NewRequest(http.MethodGet, c.path, nil)
		assert.Equal(t, c.want, classes.Route(r).cfg.Name, c.path)
	}
}

func TestMiddlewareHeadersAnd429(t *testing.T) {
	cls, err := NewClass(Config{Name: "tiny", Limit: 1, Window: time.Minute}, nil)
	require.NoError(t, err)
	classes := &Classes{General: cls, Search: cls, User: cls, Admin: cls}

	h := Middleware(classes)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/clinics", nil)
	r.RemoteAddr = "10.0.0.9:1234"

	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "retryAfterSeconds")
}

func TestCallerKeyPrefersAPIKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	r.RemoteAddr = "10.0.0.9:1234"
	assert.Equal(t, "ip:10.0.0.9", CallerKey(r))

	r.Header.Set("X-API-Key", "abc123")
	assert.Equal(t, "key:abc123", CallerKey(r))
}

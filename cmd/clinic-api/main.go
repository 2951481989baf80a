// Server entry point: reads configuration, assembles dependencies and serves
// the search API; route registration lives in internal/api.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/Aryan10022006/rehab-connect-sub001/internal/api"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/cache"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/catalog"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/geoip"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/logger"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/metrics"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/ratelimit"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/search"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/utils"
	"github.com/Aryan10022006/rehab-connect-sub001/internal/version"
)

func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	l.Debug("log_init_ok", "commit", version.Commit)

	apiBase := os.Getenv("API_BASE")
	if apiBase == "" {
		apiBase = "/api"
	}
	l.Debug("config_api_base", "base", apiBase)

	db, err := utils.OpenPostgresFromEnv()
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		l.Error("db_ping_error", "err", err)
	} else {
		l.Info("db_ping_ok")
	}
	if err := catalog.EnsureSchema(db); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(context.Background()).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
	} else {
		l.Info("redis_ping_ok")
	}

	// Cache backend decided once here; call sites never branch on Redis.
	var store cache.Store = cache.NewLocal()
	if rc != nil {
		store = cache.NewFailover(cache.NewRedis(rc), cache.NewLocal())
	}

	snap := catalog.NewSnapshot(catalog.NewPostgresSource(db))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := snap.Refresh(ctx); err != nil {
		// Retry briefly: a cold database on first boot is common.
		for i := 0; i < 3 && !snap.Loaded(); i++ {
			time.Sleep(2 * time.Second)
			_ = snap.Refresh(ctx)
		}
	}
	if !snap.Loaded() {
		if os.Getenv("ALLOW_EMPTY_CATALOG") == "true" {
			l.Warn("catalog_bootstrap_empty")
			snap.Bootstrap()
		} else {
			l.Error("catalog_never_loaded")
			os.Exit(1)
		}
	}
	refreshInterval := 5 * time.Minute
	if s := os.Getenv("CATALOG_REFRESH_INTERVAL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			refreshInterval = d
		}
	}
	go snap.Run(ctx, refreshInterval)
	l.Info("catalog_ready", "clinics", snap.Count(), "refresh_interval", refreshInterval.String())

	orch, err := search.New(snap, store, nil, search.Config{})
	if err != nil {
		l.Error("orchestrator_init_error", "err", err)
		os.Exit(1)
	}

	resolver := geoip.NewFromEnv()
	if resolver != nil {
		defer resolver.Close()
	}

	classes, err := ratelimit.DefaultClasses(rc)
	if err != nil {
		l.Error("ratelimit_init_error", "err", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	apiMux := api.BuildRoutes(orch, snap, store, resolver)
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, apiMux))
	mux.Handle(apiBase+"/metrics", metrics.Handler())

	// Access log outermost so denied requests still show up in it.
	handler := ratelimit.Middleware(classes)(mux)
	handler = logger.AccessMiddleware(l)(handler)

	addr := os.Getenv("ADDR")
	if addr == "" {
		addr = ":8080"
	}
	s := &http.Server{Addr: addr, Handler: handler}
	l.Info("listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		l.Error("server_error", "err", err)
		os.Exit(1)
	}
}

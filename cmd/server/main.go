// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "github.com/tomtom215/mangashelf/docs" // Import generated swagger docs
	"github.com/tomtom215/mangashelf/internal/api"
	"github.com/tomtom215/mangashelf/internal/auth"
	"github.com/tomtom215/mangashelf/internal/cache"
	"github.com/tomtom215/mangashelf/internal/config"
	"github.com/tomtom215/mangashelf/internal/email"
	"github.com/tomtom215/mangashelf/internal/limiter"
	"github.com/tomtom215/mangashelf/internal/logging"
	"github.com/tomtom215/mangashelf/internal/mangadex"
	"github.com/tomtom215/mangashelf/internal/metrics"
	"github.com/tomtom215/mangashelf/internal/middleware"
	"github.com/tomtom215/mangashelf/internal/supervisor"
	"github.com/tomtom215/mangashelf/internal/supervisor/services"
	"github.com/tomtom215/mangashelf/internal/users"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Caller:      cfg.Logging.Caller,
		Timestamp:   true,
		Environment: cfg.Server.Environment,
	})
	metrics.SetAppInfo(version)

	logging.Info().Str("version", version).Msg("Starting Mangashelf with supervisor tree")
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("mangadex_api", cfg.MangaDex.APIURL).
		Str("cache_backend", cfg.Cache.Backend).
		Str("database_driver", cfg.Database.Driver).
		Str("session_store", cfg.Security.SessionStore).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Everything opened below is closed in reverse order once the tree stops.
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logging.Error().Err(err).Msg("Error during shutdown cleanup")
			}
		}
	}()
	fatal := func(err error, msg string) {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
		logging.Fatal().Err(err).Msg(msg)
	}

	// BadgerDB is shared by the user store and the session store
	var badgerDB *badger.DB
	if cfg.NeedsBadger() {
		badgerDB, err = users.OpenBadger(cfg.Database.BadgerPath, cfg.Database.BadgerInMemory)
		if err != nil {
			fatal(err, "Failed to open BadgerDB")
		}
		closers = append(closers, badgerDB)
		logging.Info().
			Str("path", cfg.Database.BadgerPath).
			Bool("in_memory", cfg.Database.BadgerInMemory).
			Msg("BadgerDB opened")
	}

	store, err := users.NewStore(ctx, &cfg.Database, badgerDB)
	if err != nil {
		fatal(err, "Failed to initialize user store")
	}
	if c, ok := store.(io.Closer); ok {
		closers = append(closers, c)
	}
	logging.Info().Str("driver", cfg.Database.Driver).Msg("User store initialized")

	sessions, err := auth.NewSessionStore(cfg.Security.SessionStore, badgerDB)
	if err != nil {
		fatal(err, "Failed to initialize session store")
	}

	if cfg.Security.SessionStore == config.SessionStoreMemory && !cfg.IsDevelopment() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  NOTICE: Session store is set to 'memory' (SESSION_STORE=memory)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Refresh sessions will be lost when the server restarts.")
		logging.Warn().Msg("  For persistent sessions set SESSION_STORE=badger")
		logging.Warn().Msg("============================================================")
	}

	mailer := email.NewSender(&cfg.Email)
	if !cfg.EmailEnabled() {
		logging.Warn().Msg("SMTP_HOST is not set; verification and reset emails are logged, not sent")
	}

	tokens, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.AccessTokenTTL())
	if err != nil {
		fatal(err, "Failed to initialize JWT manager")
	}

	authService := auth.NewService(
		auth.OptionsFromConfig(&cfg.Security),
		store,
		sessions,
		mailer,
		tokens,
		logging.NewAuditLogger(),
	)

	cacher, err := cache.NewCacher(cache.Config{
		Backend:         cfg.Cache.Backend,
		TTL:             cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
		Redis: cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.RedisPrefix,
		},
	})
	if err != nil {
		fatal(err, "Failed to initialize cache")
	}
	closers = append(closers, cacher)
	logging.Info().
		Str("backend", cfg.Cache.Backend).
		Dur("ttl", cfg.Cache.TTL).
		Msg("Response cache initialized")

	queue := limiter.NewQueue(cfg.MangaDex.MinDelay, limiter.WithCapacity(cfg.MangaDex.QueueSize))

	// The breaker wraps the raw client so an unreachable MangaDex fails fast
	var fetcher mangadex.Fetcher = mangadex.NewClient(&cfg.MangaDex)
	var breaker api.BreakerState
	if cfg.MangaDex.BreakerEnabled {
		bc := mangadex.NewBreakerClient(fetcher)
		fetcher = bc
		breaker = bc
	} else {
		logging.Warn().Msg("MangaDex circuit breaker disabled (MANGADEX_BREAKER_ENABLED=false)")
	}

	gateway := mangadex.NewGateway(fetcher, queue, cacher)
	reshaper := mangadex.NewReshaper(cfg.MangaDex.UploadsURL)
	logging.Info().
		Dur("min_delay", cfg.MangaDex.MinDelay).
		Int("queue_size", cfg.MangaDex.QueueSize).
		Str("default_language", cfg.MangaDex.DefaultLanguage).
		Msg("MangaDex gateway initialized")

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	if cfg.ShouldWarnAboutCORS() {
		logging.Warn().Msg("============================================================")
		logging.Warn().Msg("  SECURITY WARNING: CORS is configured with wildcard origin (CORS_ORIGINS=*)")
		logging.Warn().Msg("  ")
		logging.Warn().Msg("  Browsers will not send the refresh cookie cross-origin with a")
		logging.Warn().Msg("  wildcard. Set specific origins, for example:")
		logging.Warn().Msg("    CORS_ORIGINS=https://yourdomain.com")
		logging.Warn().Msg("============================================================")
	}

	perf := middleware.NewPerformanceMonitor(middleware.DefaultPerformanceWindow, middleware.DefaultSlowThreshold)

	handler := api.NewHandler(api.Deps{
		Config:   cfg,
		Gateway:  gateway,
		Reshaper: reshaper,
		Auth:     authService,
		Cache:    cacher,
		Queue:    queue,
		Breaker:  breaker,
		Store:    store,
		Perf:     perf,
	})
	router := api.NewRouter(handler, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Setup(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Bridges zerolog to slog for sutureslog
	slogLogger := logging.NewSlogLogger()

	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		fatal(err, "Failed to create supervisor tree")
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Upstream layer: the request queue and, for the memory backend, the expiry sweeper
	tree.AddUpstreamService(queue)
	if mem, ok := cacher.(*cache.Cache); ok {
		tree.AddUpstreamService(mem)
	}
	logging.Info().Msg("Request queue added to supervisor tree")

	// Maintenance layer
	tree.AddMaintenanceService(auth.NewSessionSweeper(sessions, auth.DefaultSweepInterval))

	// API layer
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}

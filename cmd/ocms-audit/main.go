// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/olegiv/ocms-audit/internal/audit"
	"github.com/olegiv/ocms-audit/internal/cache"
	"github.com/olegiv/ocms-audit/internal/config"
	"github.com/olegiv/ocms-audit/internal/geoip"
	"github.com/olegiv/ocms-audit/internal/handler"
	"github.com/olegiv/ocms-audit/internal/i18n"
	"github.com/olegiv/ocms-audit/internal/logging"
	"github.com/olegiv/ocms-audit/internal/middleware"
	"github.com/olegiv/ocms-audit/internal/scheduler"
	"github.com/olegiv/ocms-audit/internal/service"
	"github.com/olegiv/ocms-audit/internal/store"
	"github.com/olegiv/ocms-audit/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	showHelp := flag.Bool("help", false, "Show help information")
	flag.BoolVar(showHelp, "h", false, "Show help information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "oCMS Audit - Audit Trail Service\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_AUDIT_DB_PATH         SQLite database path (default: ./data/audit.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_AUDIT_SERVER_PORT     Server port (default: 8090)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_AUDIT_ENV             Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_AUDIT_RETENTION_DAYS  Delete events older than N days (default: 0, keep forever)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_AUDIT_REDIS_URL       Redis URL for the diff cache (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  OCMS_AUDIT_GEOIP_DB_PATH   GeoLite2-Country.mmdb path (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "\nFor more information, see: https://github.com/olegiv/ocms-audit\n")
	}

	flag.Parse()

	if *showHelp {
		flag.Usage()
		os.Exit(0)
	}
	if *showVersion {
		info := version.Get()
		_, _ = fmt.Printf("ocms-audit %s (commit: %s, built: %s)\n", info.Version, info.GitCommit, info.BuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logLevel := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	if err := i18n.Init(); err != nil {
		return fmt.Errorf("initializing i18n: %w", err)
	}
	slog.Info("i18n system initialized", "languages", i18n.SupportedLanguages)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	eventStore := store.NewEventStore(db)

	// Upgrade logger to also record WARN and ERROR logs as System events
	if cfg.LogEventsToDB {
		textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
		logger = slog.New(logging.NewAuditLogHandler(textHandler, eventStore))
		slog.SetDefault(logger)
		slog.Info("audit log tee enabled", "min_level", "warn")
	}

	// Cache for computed diff views
	cacheConfig := cache.Config{
		Backend:         "memory",
		RedisURL:        cfg.RedisURL,
		Prefix:          cfg.CachePrefix,
		DefaultTTL:      cfg.CacheTTLDuration(),
		MaxItems:        cfg.CacheMax,
		CleanupInterval: time.Minute,
	}
	if cfg.UseRedisCache() {
		cacheConfig.Backend = "redis"
	}
	diffCache, err := cache.New(cacheConfig, logger)
	if err != nil {
		return fmt.Errorf("initializing cache: %w", err)
	}
	defer func() { _ = diffCache.Close() }()
	slog.Info("cache initialized", "backend", cacheConfig.Backend)

	// GeoIP country lookups for event enrichment
	geo, err := geoip.New(cfg.GeoIPDBPath)
	if err != nil {
		slog.Warn("geoip unavailable", "path", cfg.GeoIPDBPath, "error", err)
		geo, _ = geoip.New("")
	}
	defer func() { _ = geo.Close() }()
	if geo.IsEnabled() {
		slog.Info("geoip initialized", "path", cfg.GeoIPDBPath)
	}

	// Audit manager with category providers and recording enrichment
	registry := audit.NewRegistry(
		audit.NewContentEventProvider(),
		audit.NewUserEventProvider(),
		audit.NewSystemEventProvider(),
	)
	clock := audit.SystemClock()
	manager := audit.NewManager(eventStore, registry, clock, logger)
	if cfg.ClientIPEnabled {
		manager.Use(audit.NewClientEnricher(geo))
	}
	if len(cfg.ContentTypes) > 0 {
		manager.Use(audit.NewContentTypeRestriction(cfg.ContentTypes))
		slog.Info("content auditing restricted", "content_types", cfg.ContentTypes)
	}

	// Services
	queryService := service.NewQueryService(eventStore, clock, cfg.PageSize, logger)
	diffBuilder := service.NewDiffBuilder(eventStore, nil, diffCache, cfg.CacheTTLDuration(), logger)
	retention := service.NewRetentionService(eventStore, clock, cfg.Retention(), logger)

	// Scheduler (retention cleanup, geoip reload)
	var sched *scheduler.Scheduler
	if cfg.Retention() > 0 || geo.IsEnabled() {
		retentionSvc := retention
		if cfg.Retention() <= 0 {
			retentionSvc = nil
		}
		sched = scheduler.New(retentionSvc, geo, logger)
		if err := sched.Start(scheduler.Options{RetentionSpec: cfg.RetentionSpec}); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	// Router
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.ClientInfo)
	r.Use(middleware.Language)

	healthHandler := handler.NewHealthHandler(db, diffCache)
	r.Get("/health", healthHandler.Health)
	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	eventsHandler := handler.NewEventsHandler(queryService, diffBuilder, manager, logger)
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	r.Route("/admin", func(r chi.Router) {
		r.Use(rateLimiter.Middleware())
		eventsHandler.Routes(r)
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

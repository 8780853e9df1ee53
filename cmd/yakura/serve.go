// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/yakura/internal/api"
	"github.com/taibuivan/yakura/internal/batch"
	"github.com/taibuivan/yakura/internal/blob"
	"github.com/taibuivan/yakura/internal/catalog"
	"github.com/taibuivan/yakura/internal/glossary"
	"github.com/taibuivan/yakura/internal/job"
	"github.com/taibuivan/yakura/internal/ner"
	"github.com/taibuivan/yakura/internal/notify"
	"github.com/taibuivan/yakura/internal/pipeline"
	"github.com/taibuivan/yakura/internal/platform/config"
	"github.com/taibuivan/yakura/internal/platform/constants"
	"github.com/taibuivan/yakura/internal/platform/migration"
	pgstore "github.com/taibuivan/yakura/internal/platform/postgres"
	redisstore "github.com/taibuivan/yakura/internal/platform/redis"
	"github.com/taibuivan/yakura/internal/publish"
	"github.com/taibuivan/yakura/internal/resultcache"
	"github.com/taibuivan/yakura/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the translation worker and its internal HTTP API",
	Long: `Start the Yakura worker.

The worker needs PostgreSQL (glossaries, jobs, catalog) and Redis
(result cache, build locks, notifications). Both are taken from the
environment: DATABASE_URL and REDIS_URL.

The API binds to SERVER_PORT (default 8090) and serves:
  /healthz         - liveness
  /readyz          - readiness (checks both stores)
  /internal/v1/... - jobs, batches, glossaries, series, analyze`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(command *cobra.Command, args []string) error {
	ctx := command.Context()

	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "yakura"))
	slog.SetDefault(log)

	log.Info("[Yakura] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fail(log, err, "load configuration")
	}
	if err := cfg.RequireStores(); err != nil {
		return fail(log, err, "load configuration")
	}

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "yakura"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
	)

	// Startup deadline so misconfiguration is caught quickly rather than
	// hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(ctx, 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	if err != nil {
		return fail(log, err, "connect to postgres")
	}
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Redis ──────────────────────────────────────────────────────────
	rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
	if err != nil {
		return fail(log, err, "connect to redis")
	}
	defer func() {
		log.Info("closing redis client")
		if cerr := rdb.Close(); cerr != nil {
			log.Error("redis close error", slog.Any("error", cerr))
		}
	}()

	// ── 5. Migrations ─────────────────────────────────────────────────────
	if err := migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log); err != nil {
		return fail(log, err, "run migrations")
	}

	// ── 6. Health Handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckCache: func() error {
			return redisstore.Ping(context.Background(), rdb)
		},
	}, log)

	// ── 7. Build Stages ───────────────────────────────────────────────────
	st, err := buildStages(cfg, log)
	if err != nil {
		return fail(log, err, "initialize build stages")
	}

	// ── 8. Stores & Cache ─────────────────────────────────────────────────
	files, err := blob.NewFileManager(cfg.StorageRoot)
	if err != nil {
		return fail(log, err, "initialize blob storage")
	}

	cache := resultcache.NewRedisCache(rdb, log)
	lock := resultcache.NewRedisLock(rdb, log)
	notifier := notify.NewRedisNotifier(rdb, log)

	glossaries := glossary.NewService(glossary.NewStore(pool), log)
	jobs := job.NewStore(pool)
	publisher := publish.NewService(publish.NewStore(pool), files, cache, log)

	// ── 9. Pipeline & Worker Pool ─────────────────────────────────────────
	runner := pipeline.New(pipeline.Deps{
		Scraper:   st.scraper,
		Detector:  st.detector,
		Processor: st.processor,
		LLM:       st.llm,
		MT:        st.mt,
		Cache:     cache,
		Lock:      lock,
		Glossary:  glossaries,
		Names:     ner.NewHeuristic(),
		Jobs:      jobs,
		Publisher: publisher,
		Notifier:  notifier,
	}, log)

	workers := worker.NewPool(worker.Config{
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.QueueSize,
	}, log)

	orchestrator := batch.NewOrchestrator(batch.Deps{
		Runner:   runner,
		Pool:     workers,
		Jobs:     jobs,
		Notifier: notifier,
		Sink:     files,
	}, batch.Config{ChapterTimeout: cfg.ChapterTimeout}, log)

	// ── 10. HTTP Server ───────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:   liveness,
		Readiness:  readiness,
		Jobs:       api.NewJobsHandler(jobs, runner, orchestrator, workers, log),
		Glossaries: api.NewGlossariesHandler(glossaries),
		Analyze:    api.NewAnalyzeHandler(st.scraper),
		Catalog:    catalog.NewHandler(catalog.NewService(catalog.NewStore(pool))),
	}

	server := api.NewServer(ctx, cfg, log, handlers)

	// ── 11. Graceful Shutdown ─────────────────────────────────────────────
	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal (context cancellation) or server error.
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
	}

	// Drain in-flight chapter builds before the stores close underneath
	// them.
	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer drainCancel()
	if err := workers.Shutdown(drainCtx); err != nil {
		log.Error("worker pool drain error", slog.Any("error", err))
	}

	log.Info("server stopped cleanly")
	return nil
}

// fail logs a structured startup failure and hands the error to cobra.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func fail(log *slog.Logger, err error, context string) error {
	log.Error("startup failure",
		slog.String("context", context),
		slog.Any("error", err),
	)
	return err
}

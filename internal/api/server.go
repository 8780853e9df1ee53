// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/yakura are allowed to import net/http server primitives.

The API is an internal control plane for the translation worker. It runs on a
private listener with no authentication layer; network isolation is assumed.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/yakura/internal/catalog"
	"github.com/taibuivan/yakura/internal/platform/config"
	"github.com/taibuivan/yakura/internal/platform/constants"
	"github.com/taibuivan/yakura/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all domain-specific HTTP handler sets.
//
// # Usage
//
// New domains add a field here — no other change to server.go is required.
type Handlers struct {
	// Liveness is the /healthz handler — always returns 200 if process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /readyz handler — returns 200 when all deps are healthy.
	Readiness http.HandlerFunc

	// Jobs handles translation job submission, batches, and status tracking.
	Jobs *JobsHandler

	// Glossaries exposes read-only access to per-series term dictionaries.
	Glossaries *GlossariesHandler

	// Analyze inspects a chapter URL without running the pipeline.
	Analyze *AnalyzeHandler

	// Catalog exposes read-only browsing of published series and chapters.
	Catalog *catalog.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(context context.Context, cfg *config.Config, log *slog.Logger, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	// Global middleware applied in order of execution.
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	// Health probes for container orchestration.
	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)

	// # Application API
	// Domain-specific route groups mounted under versioned prefix.
	r.Route("/internal/v1", func(api chi.Router) {
		api.Mount("/jobs", h.Jobs.Routes())
		api.Mount("/batches", h.Jobs.BatchRoutes())
		api.Mount("/glossaries", h.Glossaries.Routes())
		api.Mount("/series", h.Catalog.Routes())
		api.Mount("/analyze", h.Analyze.Routes())
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command yakura is the entry point for the Yakura translation worker.
//
// # Server Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Connect to Redis.
//  5. Run database migrations (idempotent).
//  6. Wire build stages, stores, and the worker pool.
//  7. Start the HTTP server with graceful shutdown.
//
// The one-shot translate command wires the same build stages without
// PostgreSQL, Redis, or the HTTP server and writes finished chapters
// straight to disk.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	// Signal handling lives here so every subcommand inherits a context
	// that cancels on Ctrl+C or SIGTERM.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, scraper, translator) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Yakura translation worker.
type Config struct {

	// Server settings (internal ingress)
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8090"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL: glossary, jobs, catalog).
	// Required by the server; the one-shot CLI runs without it, so the
	// check lives in [Config.RequireStores] rather than the env tag.
	DatabaseURL string `env:"DATABASE_URL"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis: result cache, build locks, notification queue)
	RedisURL string `env:"REDIS_URL"`

	// Worker pool
	WorkerCount int `env:"WORKER_COUNT" envDefault:"4"`
	QueueSize   int `env:"QUEUE_SIZE"   envDefault:"64"`

	// Scraper
	ScraperTimeout      time.Duration `env:"SCRAPER_TIMEOUT"       envDefault:"30s"`
	ChallengeWait       time.Duration `env:"CHALLENGE_WAIT"        envDefault:"10s"`
	DownloadConcurrency int           `env:"DOWNLOAD_CONCURRENCY"  envDefault:"6"`
	DownloadRetries     int           `env:"DOWNLOAD_RETRIES"      envDefault:"3"`
	DownloadRatePerHost float64       `env:"DOWNLOAD_RATE_PER_HOST" envDefault:"4"`
	BrowserBin          string        `env:"BROWSER_BIN"`
	BrowserHeadless     bool          `env:"BROWSER_HEADLESS"      envDefault:"true"`

	// OCR sidecar
	OCRBaseURL       string        `env:"OCR_BASE_URL"        envDefault:"http://localhost:8500"`
	OCRLanguages     []string      `env:"OCR_LANGUAGES"       envDefault:"en" envSeparator:","`
	OCRUseGPU        bool          `env:"OCR_USE_GPU"         envDefault:"false"`
	OCRTimeout       time.Duration `env:"OCR_TIMEOUT"         envDefault:"60s"`
	OCRMinConfidence float64       `env:"OCR_MIN_CONFIDENCE"  envDefault:"0.5"`

	// LLM translator backend
	LLMAPIKey      string        `env:"LLM_API_KEY"`
	LLMBaseURL     string        `env:"LLM_BASE_URL"`
	LLMModel       string        `env:"LLM_MODEL"        envDefault:"gpt-4o-mini"`
	LLMTimeout     time.Duration `env:"LLM_TIMEOUT"      envDefault:"120s"`
	LLMTemperature float64       `env:"LLM_TEMPERATURE"  envDefault:"0.3"`
	LLMMaxRetries  int           `env:"LLM_MAX_RETRIES"  envDefault:"2"`

	// Free translator backend (cascade)
	MTEndpoint     string        `env:"MT_ENDPOINT"`
	MTAPIKey       string        `env:"MT_API_KEY"`
	MTTimeout      time.Duration `env:"MT_TIMEOUT"       envDefault:"15s"`
	ONNXModelPath  string        `env:"ONNX_MODEL_PATH"`
	ONNXVocabPath  string        `env:"ONNX_VOCAB_PATH"`
	ONNXLibrary    string        `env:"ONNX_LIBRARY"`
	PhraseTableDir string        `env:"PHRASE_TABLE_DIR" envDefault:"./data/phrases"`

	// Imaging
	FontDir            string `env:"FONT_DIR"            envDefault:"./data/fonts"`
	OutputFormat       string `env:"OUTPUT_FORMAT"       envDefault:"webp"`
	OutputQuality      int    `env:"OUTPUT_QUALITY"      envDefault:"90"`
	ImagingConcurrency int    `env:"IMAGING_CONCURRENCY" envDefault:"4"`

	// Pipeline defaults
	DefaultTargetLang string        `env:"DEFAULT_TARGET_LANG" envDefault:"tr"`
	ChapterTimeout    time.Duration `env:"CHAPTER_TIMEOUT"     envDefault:"20m"`

	// Blob storage (translated chapter output)
	StorageRoot string `env:"STORAGE_ROOT" envDefault:"./data/translated"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	// Cross-field validation happens after parsing so the error names the
	// offending variable rather than failing deep inside a constructor.
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate enforces cross-field constraints that 'env' tags cannot express.
func (c *Config) Validate() error {

	switch strings.ToLower(c.OutputFormat) {
	case "webp", "jpeg", "jpg", "png":
	default:
		return fmt.Errorf("config: OUTPUT_FORMAT must be webp, jpeg, or png (got %q)", c.OutputFormat)
	}

	if c.OutputQuality < 1 || c.OutputQuality > 100 {
		return fmt.Errorf("config: OUTPUT_QUALITY must be within 1..100 (got %d)", c.OutputQuality)
	}

	// A batch task occupies one worker while its chapter tasks run on the
	// others, so a single-worker pool cannot make progress.
	if c.WorkerCount < 2 {
		return fmt.Errorf("config: WORKER_COUNT must be at least 2 (got %d)", c.WorkerCount)
	}

	if c.DownloadConcurrency < 1 {
		return fmt.Errorf("config: DOWNLOAD_CONCURRENCY must be positive (got %d)", c.DownloadConcurrency)
	}

	if c.ImagingConcurrency < 1 {
		return fmt.Errorf("config: IMAGING_CONCURRENCY must be positive (got %d)", c.ImagingConcurrency)
	}

	if c.OCRMinConfidence < 0 || c.OCRMinConfidence > 1 {
		return fmt.Errorf("config: OCR_MIN_CONFIDENCE must be within 0..1 (got %g)", c.OCRMinConfidence)
	}

	return nil
}

// RequireStores enforces the store URLs the server cannot run without.
// Kept out of [Config.Validate] because the one-shot CLI translates
// chapters with no PostgreSQL or Redis at all.
func (c *Config) RequireStores() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.RedisURL == "" {
		return fmt.Errorf("config: REDIS_URL is required")
	}
	return nil
}

// IsDevelopment reports whether the worker is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the worker is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/time/rate"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// # Network MT Engine

const (
	libreDefaultTimeout = 15 * time.Second
	// libreRatePerSecond keeps per-string calls under public-instance
	// limits.
	libreRatePerSecond = 5
	libreRetries       = 2
)

// LibreConfig points at a LibreTranslate-compatible endpoint.
type LibreConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
}

// libreEngine is the network fallback of the free cascade: one
// `POST /translate` per string, shared rate limit across the batch.
type libreEngine struct {
	endpoint string
	apiKey   string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// NewLibreEngine constructs the network MT engine.
func NewLibreEngine(cfg LibreConfig, logger *slog.Logger) Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = libreDefaultTimeout
	}
	return &libreEngine{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiter:  rate.NewLimiter(rate.Limit(libreRatePerSecond), 1),
		logger:   logger,
	}
}

func (engine *libreEngine) Name() string { return "libre" }

// Available only needs a configured endpoint; pair support is the
// server's business.
func (engine *libreEngine) Available(sourceLang, targetLang string) bool {
	return engine.endpoint != ""
}

type libreRequest struct {
	Query  string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
}

/*
TranslateText translates one string over the network.

Parameters:
  - context: context.Context
  - text: string
  - sourceLang: string
  - targetLang: string

Returns:
  - string: The server's translation
  - error: Upstream transport or protocol failures after retries
*/
func (engine *libreEngine) TranslateText(context context.Context, text, sourceLang, targetLang string) (string, error) {
	payload, err := json.Marshal(libreRequest{
		Query:  text,
		Source: strings.ToLower(sourceLang),
		Target: strings.ToLower(targetLang),
		Format: "text",
		APIKey: engine.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("translate: failed to encode mt request: %w", err)
	}

	var translated string
	err = retry.Do(
		func() error {
			if err := engine.limiter.Wait(context); err != nil {
				return retry.Unrecoverable(err)
			}

			request, err := http.NewRequestWithContext(context, http.MethodPost,
				engine.endpoint+"/translate", bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			request.Header.Set("Content-Type", "application/json")

			response, err := engine.client.Do(request)
			if err != nil {
				return apperr.Upstream("translate: mt request failed", err)
			}
			defer response.Body.Close()

			if response.StatusCode != http.StatusOK {
				return apperr.Upstream(fmt.Sprintf("translate: mt endpoint returned status %d", response.StatusCode), nil)
			}

			body, err := io.ReadAll(response.Body)
			if err != nil {
				return apperr.Upstream("translate: failed to read mt response", err)
			}

			var decoded libreResponse
			if err := json.Unmarshal(body, &decoded); err != nil {
				return apperr.Upstream("translate: malformed mt response", err)
			}
			translated = decoded.TranslatedText
			return nil
		},
		retry.Context(context),
		retry.Attempts(libreRetries),
		retry.Delay(500*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", err
	}
	return translated, nil
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// # HTTP Engine

// HTTPEngineConfig configures the sidecar detection client.
type HTTPEngineConfig struct {
	BaseURL   string
	Languages []string
	UseGPU    bool
	Timeout   time.Duration
}

// HTTPEngine implements [Engine] against the OCR sidecar's detect endpoint.
// Language set and GPU preference are fixed at construction because the
// sidecar loads one model per configuration.
type HTTPEngine struct {
	baseURL   string
	languages []string
	useGPU    bool
	client    *http.Client
}

// NewHTTPEngine constructs the sidecar-backed [Engine].
func NewHTTPEngine(config HTTPEngineConfig) *HTTPEngine {
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	return &HTTPEngine{
		baseURL:   config.BaseURL,
		languages: config.Languages,
		useGPU:    config.UseGPU,
		client:    &http.Client{Timeout: config.Timeout},
	}
}

// detectRequest is the sidecar's detect payload.
type detectRequest struct {
	Image     string   `json:"image"`
	Languages []string `json:"languages"`
	GPU       bool     `json:"gpu"`
}

// detectResponse is the sidecar's detect reply.
type detectResponse struct {
	Detections []Detection `json:"detections"`
}

/*
Detect posts one base64-encoded image to the sidecar.

Parameters:
  - context: context.Context
  - image: []byte (Encoded image bytes)

Returns:
  - []Detection: Sidecar candidates in reply order
  - error: apperr.Upstream on transport or non-200 replies
*/
func (engine *HTTPEngine) Detect(context context.Context, image []byte) ([]Detection, error) {
	payload, err := json.Marshal(detectRequest{
		Image:     base64.StdEncoding.EncodeToString(image),
		Languages: engine.languages,
		GPU:       engine.useGPU,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to marshal detect request: %w", err)
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, engine.baseURL+"/v1/detect", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("ocr: failed to create detect request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := engine.client.Do(request)
	if err != nil {
		return nil, apperr.Upstream("ocr engine unreachable", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return nil, apperr.Upstream("ocr engine reply unreadable", err)
	}

	if response.StatusCode != http.StatusOK {
		return nil, apperr.Upstream(fmt.Sprintf("ocr engine returned status %d", response.StatusCode), nil)
	}

	var reply detectResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, apperr.Upstream("ocr engine reply malformed", err)
	}

	return reply.Detections, nil
}

/*
Healthy pings the sidecar's health endpoint, for readiness checks.

Parameters:
  - context: context.Context

Returns:
  - error: nil when the sidecar answers 200
*/
func (engine *HTTPEngine) Healthy(context context.Context) error {
	request, err := http.NewRequestWithContext(context, http.MethodGet, engine.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("ocr: failed to create health request: %w", err)
	}

	response, err := engine.client.Do(request)
	if err != nil {
		return apperr.Upstream("ocr engine unreachable", err)
	}
	defer response.Body.Close()
	io.Copy(io.Discard, response.Body)

	if response.StatusCode != http.StatusOK {
		return apperr.Upstream(fmt.Sprintf("ocr engine health returned status %d", response.StatusCode), nil)
	}
	return nil
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/api"
)

// healthBody mirrors the JSON envelope the health endpoints emit.
type healthBody struct {
	Data struct {
		Status  string `json:"status"`
		App     string `json:"app"`
		Version string `json:"version"`
		Checks  []struct {
			Name  string `json:"name"`
			IsOK  bool   `json:"ok"`
			Error string `json:"error"`
		} `json:"checks"`
	} `json:"data"`
}

func decodeHealth(t *testing.T, recorder *httptest.ResponseRecorder) healthBody {
	t.Helper()
	var body healthBody
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&body))
	return body
}

/*
TestLiveness verifies the liveness probe always answers 200 with the
application identity, independent of any dependency state.
*/
func TestLiveness(t *testing.T) {
	liveness, _ := api.NewHealthHandlers(api.HealthDependencies{}, slog.New(slog.DiscardHandler))

	recorder := httptest.NewRecorder()
	liveness(recorder, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decodeHealth(t, recorder)
	assert.Equal(t, "ok", body.Data.Status)
	assert.NotEmpty(t, body.Data.App)
	assert.NotEmpty(t, body.Data.Version)
}

/*
TestReadiness verifies the readiness probe reports per-dependency check
results and flips to 503 as soon as one dependency fails.
*/
func TestReadiness(t *testing.T) {
	t.Run("all_dependencies_healthy", func(t *testing.T) {
		deps := api.HealthDependencies{
			CheckDatabase: func() error { return nil },
			CheckCache:    func() error { return nil },
		}
		_, readiness := api.NewHealthHandlers(deps, slog.New(slog.DiscardHandler))

		recorder := httptest.NewRecorder()
		readiness(recorder, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeHealth(t, recorder)
		assert.Equal(t, "ready", body.Data.Status)
		require.Len(t, body.Data.Checks, 2)
		assert.True(t, body.Data.Checks[0].IsOK)
		assert.True(t, body.Data.Checks[1].IsOK)
	})

	t.Run("database_down_degrades", func(t *testing.T) {
		deps := api.HealthDependencies{
			CheckDatabase: func() error { return errors.New("connection refused") },
			CheckCache:    func() error { return nil },
		}
		_, readiness := api.NewHealthHandlers(deps, slog.New(slog.DiscardHandler))

		recorder := httptest.NewRecorder()
		readiness(recorder, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
		body := decodeHealth(t, recorder)
		assert.Equal(t, "degraded", body.Data.Status)
		require.Len(t, body.Data.Checks, 2)
		assert.False(t, body.Data.Checks[0].IsOK)
		assert.Contains(t, body.Data.Checks[0].Error, "connection refused")
		assert.True(t, body.Data.Checks[1].IsOK)
	})

	t.Run("no_checks_configured", func(t *testing.T) {
		_, readiness := api.NewHealthHandlers(api.HealthDependencies{}, slog.New(slog.DiscardHandler))

		recorder := httptest.NewRecorder()
		readiness(recorder, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeHealth(t, recorder)
		assert.Equal(t, "ready", body.Data.Status)
		assert.Empty(t, body.Data.Checks)
	})
}

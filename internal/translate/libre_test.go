// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/translate"
)

/*
TestLibreEngine_TranslateText checks the wire contract with a
LibreTranslate-compatible server: payload fields, lowercased language
codes, and the translatedText reply.
*/
func TestLibreEngine_TranslateText(t *testing.T) {
	var payload struct {
		Query  string `json:"q"`
		Source string `json:"source"`
		Target string `json:"target"`
		Format string `json:"format"`
		APIKey string `json:"api_key"`
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/translate", func(writer http.ResponseWriter, request *http.Request) {
		require.Equal(t, "application/json", request.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(request.Body).Decode(&payload))

		writer.Header().Set("Content-Type", "application/json")
		_, _ = writer.Write([]byte(`{"translatedText": "merhaba"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	engine := translate.NewLibreEngine(translate.LibreConfig{
		Endpoint: server.URL,
		APIKey:   "secret",
	}, testLogger())

	translated, err := engine.TranslateText(context.Background(), "hello", "EN", "TR")
	require.NoError(t, err)

	assert.Equal(t, "merhaba", translated)
	assert.Equal(t, "hello", payload.Query)
	assert.Equal(t, "en", payload.Source)
	assert.Equal(t, "tr", payload.Target)
	assert.Equal(t, "text", payload.Format)
	assert.Equal(t, "secret", payload.APIKey)
}

func TestLibreEngine_Available(t *testing.T) {
	up := translate.NewLibreEngine(translate.LibreConfig{Endpoint: "http://mt.local"}, testLogger())
	assert.True(t, up.Available("en", "tr"))

	down := translate.NewLibreEngine(translate.LibreConfig{}, testLogger())
	assert.False(t, down.Available("en", "tr"))
}

/*
TestLibreEngine_ServerError checks that a persistent server failure
surfaces as an upstream error after the retry budget is spent.
*/
func TestLibreEngine_ServerError(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		hits++
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	engine := translate.NewLibreEngine(translate.LibreConfig{Endpoint: server.URL}, testLogger())
	_, err := engine.TranslateText(context.Background(), "hello", "en", "tr")

	require.Error(t, err)
	assert.Equal(t, apperr.CodeUpstream, apperr.CodeOf(err))
	assert.Equal(t, 2, hits)
}

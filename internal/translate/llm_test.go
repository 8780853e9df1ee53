// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/translate"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// chatCall is one captured request to the fake completions endpoint.
type chatCall struct {
	model  string
	system string
	user   string
	texts  []string
}

// chatServer fakes the chat completions endpoint. Every request is
// appended to calls; respond builds the status and assistant content
// from the call number and the input list parsed out of the user prompt.
func chatServer(t *testing.T, calls *[]chatCall, respond func(call int, texts []string) (int, string)) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(writer http.ResponseWriter, request *http.Request) {
		var payload struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(request.Body).Decode(&payload))

		call := chatCall{model: payload.Model}
		for _, message := range payload.Messages {
			switch message.Role {
			case "system":
				call.system = message.Content
			case "user":
				call.user = message.Content
			}
		}
		call.texts = inputList(t, call.user)
		*calls = append(*calls, call)

		status, content := respond(len(*calls), call.texts)
		writer.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			writer.WriteHeader(status)
			_, _ = writer.Write([]byte(`{"error": {"message": "boom"}}`))
			return
		}

		reply := map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  payload.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		}
		require.NoError(t, json.NewEncoder(writer).Encode(reply))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// inputList pulls the JSON text list back out of a user prompt.
func inputList(t *testing.T, user string) []string {
	t.Helper()

	marker := "Input List:"
	at := strings.Index(user, marker)
	require.GreaterOrEqual(t, at, 0, "user prompt is missing the input list")

	var texts []string
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(user[at+len(marker):])), &texts))
	return texts
}

// echoTranslations renders "tr:<text>" for each input as a JSON array,
// the shape a cooperative model replies with.
func echoTranslations(texts []string) string {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = "tr:" + text
	}
	content, _ := json.Marshal(out)
	return string(content)
}

func testLLMConfig(baseURL string) translate.LLMConfig {
	return translate.LLMConfig{
		APIKey:  "test-key",
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
	}
}

/*
TestLLMTranslator_Translate runs one small list through the chat backend
and checks the prompts and the aligned result.
*/
func TestLLMTranslator_Translate(t *testing.T) {
	var calls []chatCall
	server := chatServer(t, &calls, func(_ int, texts []string) (int, string) {
		return http.StatusOK, echoTranslations(texts)
	})

	translator := translate.NewLLMTranslator(testLLMConfig(server.URL), testLogger())
	result, err := translator.Translate(context.Background(), translate.Request{
		Texts:      []string{"Hello", "World"},
		SourceLang: "en",
		TargetLang: "tr",
		Glossary:   map[string]string{"Jin": "Cin"},
		Context:    "Series: Tower of Dawn",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"tr:Hello", "tr:World"}, result.Translations)
	assert.Equal(t, translate.BackendLLM, result.Backend)

	require.Len(t, calls, 1)
	assert.Equal(t, "gpt-4o-mini", calls[0].model)
	assert.Contains(t, calls[0].system, `"Jin" -> "Cin"`)
	assert.Contains(t, calls[0].system, "Series: Tower of Dawn")
	assert.NotContains(t, calls[0].system, "PREVIOUS CONTEXT")
	assert.Contains(t, calls[0].user, "English")
	assert.Equal(t, []string{"Hello", "World"}, calls[0].texts)
}

func TestLLMTranslator_EmptyInput(t *testing.T) {
	var calls []chatCall
	server := chatServer(t, &calls, func(_ int, texts []string) (int, string) {
		return http.StatusOK, echoTranslations(texts)
	})

	translator := translate.NewLLMTranslator(testLLMConfig(server.URL), testLogger())
	result, err := translator.Translate(context.Background(), translate.Request{})
	require.NoError(t, err)

	assert.Empty(t, result.Translations)
	assert.NotNil(t, result.Translations)
	assert.Empty(t, calls)
}

/*
TestLLMTranslator_ShortReplyPadsOriginals checks the count-mismatch
policy: a reply with fewer items than inputs keeps the translated head
and fills the tail with original texts.
*/
func TestLLMTranslator_ShortReplyPadsOriginals(t *testing.T) {
	var calls []chatCall
	server := chatServer(t, &calls, func(int, []string) (int, string) {
		return http.StatusOK, `["tr:Hello"]`
	})

	translator := translate.NewLLMTranslator(testLLMConfig(server.URL), testLogger())
	result, err := translator.Translate(context.Background(), translate.Request{
		Texts:      []string{"Hello", "World", "Bye"},
		SourceLang: "en",
		TargetLang: "tr",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"tr:Hello", "World", "Bye"}, result.Translations)
}

/*
TestLLMTranslator_RetriesTransportFailure checks that a transient 500 is
retried and the second attempt's reply wins.
*/
func TestLLMTranslator_RetriesTransportFailure(t *testing.T) {
	var calls []chatCall
	server := chatServer(t, &calls, func(call int, texts []string) (int, string) {
		if call == 1 {
			return http.StatusInternalServerError, ""
		}
		return http.StatusOK, echoTranslations(texts)
	})

	translator := translate.NewLLMTranslator(testLLMConfig(server.URL), testLogger())
	result, err := translator.Translate(context.Background(), translate.Request{
		Texts:      []string{"Hello"},
		SourceLang: "en",
		TargetLang: "tr",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"tr:Hello"}, result.Translations)
	assert.Len(t, calls, 2)
}

/*
TestLLMTranslator_UnparseableReplyKeepsOriginals checks that a reply no
parser can salvage degrades the chunk to its original texts without
retrying and without failing the chapter.
*/
func TestLLMTranslator_UnparseableReplyKeepsOriginals(t *testing.T) {
	var calls []chatCall
	server := chatServer(t, &calls, func(int, []string) (int, string) {
		return http.StatusOK, ""
	})

	translator := translate.NewLLMTranslator(testLLMConfig(server.URL), testLogger())
	result, err := translator.Translate(context.Background(), translate.Request{
		Texts:      []string{"Hello", "World"},
		SourceLang: "en",
		TargetLang: "tr",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hello", "World"}, result.Translations)
	assert.Len(t, calls, 1)
}

/*
TestLLMTranslator_ChunksLongChapters shrinks the token ceiling so a four
item list splits into two requests, then checks chunk boundaries, the
carried context in the second prompt, and the merged aligned result.
*/
func TestLLMTranslator_ChunksLongChapters(t *testing.T) {
	var calls []chatCall
	server := chatServer(t, &calls, func(_ int, texts []string) (int, string) {
		return http.StatusOK, echoTranslations(texts)
	})

	cfg := testLLMConfig(server.URL)
	cfg.TokenCeiling = 30
	cfg.ChunkTokens = 20

	translator := translate.NewLLMTranslator(cfg, testLogger())
	texts := []string{"alpha one", "beta two", "gamma three", "delta four"}
	result, err := translator.Translate(context.Background(), translate.Request{
		Texts:      texts,
		SourceLang: "en",
		TargetLang: "tr",
	})
	require.NoError(t, err)

	require.Len(t, calls, 2)
	assert.Equal(t, []string{"alpha one", "beta two"}, calls[0].texts)
	assert.Equal(t, []string{"gamma three", "delta four"}, calls[1].texts)

	assert.NotContains(t, calls[0].system, "PREVIOUS CONTEXT")
	assert.Contains(t, calls[1].system, "PREVIOUS CONTEXT")
	assert.Contains(t, calls[1].system, "1. tr:alpha one")
	assert.Contains(t, calls[1].system, "2. tr:beta two")

	assert.Equal(t, []string{"tr:alpha one", "tr:beta two", "tr:gamma three", "tr:delta four"}, result.Translations)
}

/*
TestLLMTranslator_FailedChunkDegradesAlone checks that one chunk's hard
failure substitutes its originals while the other chunk still translates.
*/
func TestLLMTranslator_FailedChunkDegradesAlone(t *testing.T) {
	var calls []chatCall
	server := chatServer(t, &calls, func(call int, texts []string) (int, string) {
		if call == 1 {
			return http.StatusOK, ""
		}
		return http.StatusOK, echoTranslations(texts)
	})

	cfg := testLLMConfig(server.URL)
	cfg.TokenCeiling = 30
	cfg.ChunkTokens = 20

	translator := translate.NewLLMTranslator(cfg, testLogger())
	result, err := translator.Translate(context.Background(), translate.Request{
		Texts:      []string{"alpha one", "beta two", "gamma three", "delta four"},
		SourceLang: "en",
		TargetLang: "tr",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"alpha one", "beta two", "tr:gamma three", "tr:delta four"}, result.Translations)
}

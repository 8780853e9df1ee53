// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/avast/retry-go/v4"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// # LLM Backend

// LLMConfig holds the chat-model connection settings. TokenCeiling and
// ChunkTokens default to the package constants; tests shrink them to
// force chunking.
type LLMConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Temperature  float64
	Timeout      time.Duration
	MaxRetries   int
	TokenCeiling int
	ChunkTokens  int
}

// LLMTranslator is the high-quality backend: one chat request per chunk,
// glossary and carried context inside the system prompt.
type LLMTranslator struct {
	client       openai.Client
	model        string
	temperature  float64
	retries      int
	tokenCeiling int
	chunkTokens  int
	logger       *slog.Logger
}

// NewLLMTranslator constructs the chat-model backend. Transport retries
// live here rather than in the SDK so one policy owns them.
func NewLLMTranslator(cfg LLMConfig, logger *slog.Logger) *LLMTranslator {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 2
	}
	if cfg.TokenCeiling <= 0 {
		cfg.TokenCeiling = DefaultTokenCeiling
	}
	if cfg.ChunkTokens <= 0 {
		cfg.ChunkTokens = DefaultChunkTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &LLMTranslator{
		client:       openai.NewClient(opts...),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		retries:      cfg.MaxRetries,
		tokenCeiling: cfg.TokenCeiling,
		chunkTokens:  cfg.ChunkTokens,
		logger:       logger,
	}
}

/*
Translate renders the request's texts through the chat model.

Description: The whole list goes out as one request unless its token
estimate crosses the ceiling, in which case it is split into budgeted
chunks translated in order. Each later chunk carries the first
translations of its predecessor as previous context. A chunk whose reply
cannot be fetched or parsed contributes its original texts; the chapter
is never blocked on one chunk.

Parameters:
  - context: context.Context
  - request: Request

Returns:
  - *Result: Translations aligned with request.Texts, Backend LLM
  - error: Only on empty input contract violations; chunk failures degrade
*/
func (translator *LLMTranslator) Translate(context context.Context, request Request) (*Result, error) {
	if len(request.Texts) == 0 {
		return &Result{Translations: []string{}, Backend: BackendLLM}, nil
	}

	chunks := [][]string{request.Texts}
	if estimateTokens(request.Texts) > translator.tokenCeiling {
		chunks = splitChunks(request.Texts, translator.chunkTokens)
		translator.logger.Info("llm_chunked",
			slog.Int("texts", len(request.Texts)),
			slog.Int("chunks", len(chunks)))
	}

	var (
		out   []string
		carry []string
	)
	for i, chunk := range chunks {
		translations, err := translator.translateChunk(context, chunk, request, carry)
		if err != nil {
			translator.logger.Warn("llm_chunk_failed",
				slog.Int("chunk", i),
				slog.Int("size", len(chunk)),
				slog.String("error", err.Error()))
			translations = chunk
		}
		translations = conform(translations, chunk, translator.logger)
		out = append(out, translations...)

		carry = translations
		if len(carry) > carryCount {
			carry = carry[:carryCount]
		}
	}

	return &Result{Translations: conform(out, request.Texts, translator.logger), Backend: BackendLLM}, nil
}

// translateChunk performs one chat request. Transport failures are
// retried; a reply that defeats every parser is not, the caller
// substitutes originals instead.
func (translator *LLMTranslator) translateChunk(context context.Context, chunk []string, request Request, carry []string) ([]string, error) {
	system := buildSystemPrompt(request.Glossary, request.Context, carry)
	user := buildUserPrompt(chunk, request.SourceLang, request.TargetLang)

	var translations []string
	err := retry.Do(
		func() error {
			completion, err := translator.client.Chat.Completions.New(context, openai.ChatCompletionNewParams{
				Model: openai.ChatModel(translator.model),
				Messages: []openai.ChatCompletionMessageParamUnion{
					openai.SystemMessage(system),
					openai.UserMessage(user),
				},
				Temperature: openai.Float(translator.temperature),
			})
			if err != nil {
				return apperr.Upstream("translate: chat request failed", err)
			}
			if len(completion.Choices) == 0 {
				return apperr.Upstream("translate: chat reply had no choices", nil)
			}

			parsed, err := parseReply(completion.Choices[0].Message.Content)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			translations = parsed
			return nil
		},
		retry.Context(context),
		retry.Attempts(uint(translator.retries)),
		retry.Delay(time.Second),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return translations, nil
}

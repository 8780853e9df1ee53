// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package translate renders chapter text into the target language.
//
// # Architecture
//
// Two backends implement one [Translator] contract: the LLM backend sends
// whole chapters as structured chat requests, the free backend cascades
// over machine translation engines. Both guarantee the result has exactly
// one translation per input text; the pipeline never sees a length
// mismatch. Glossary handling differs per backend: the LLM receives the
// glossary inside its prompt, the free backend rewrites the inputs with
// the glossary before the engine runs.
package translate

import (
	"context"
	"fmt"
	"log/slog"
)

// # Backend Identity

// Backend identifies which translator family produced a result. The
// numeric values are part of cache and lock keys.
type Backend int

const (
	// BackendLLM is the high-quality chat-model backend.
	BackendLLM Backend = 1
	// BackendMT is the free machine-translation cascade.
	BackendMT Backend = 2
)

func (backend Backend) String() string {
	switch backend {
	case BackendLLM:
		return "llm"
	case BackendMT:
		return "mt"
	default:
		return "unknown"
	}
}

// ParseBackend validates a wire-level backend number.
func ParseBackend(value int) (Backend, error) {
	switch Backend(value) {
	case BackendLLM, BackendMT:
		return Backend(value), nil
	default:
		return 0, fmt.Errorf("translate: unknown backend %d", value)
	}
}

// # Translator Contract

// Request carries one chapter's flat text list. Glossary maps original
// terms to their fixed translations; Context is optional free-form
// chapter context for the LLM prompt.
type Request struct {
	Texts      []string
	SourceLang string
	TargetLang string
	Glossary   map[string]string
	Context    string
}

// Result mirrors the request order: Translations[i] belongs to
// request.Texts[i], always with equal length.
type Result struct {
	Translations []string
	Backend      Backend
}

/*
Translator renders a flat text list into the target language.

Translate preserves order and length: the result holds exactly one
translation per input text. Backends recover from partial failure by
substituting original texts rather than failing the chapter.
*/
type Translator interface {
	Translate(context context.Context, request Request) (*Result, error)
}

// # Shared Helpers

// conform forces the translation list onto the input length. Short lists
// are padded with the original texts, long lists truncated.
func conform(translations, originals []string, logger *slog.Logger) []string {
	if len(translations) == len(originals) {
		return translations
	}

	logger.Warn("translate_count_mismatch",
		slog.Int("want", len(originals)),
		slog.Int("got", len(translations)))

	conformed := make([]string, len(originals))
	for i := range originals {
		if i < len(translations) {
			conformed[i] = translations[i]
		} else {
			conformed[i] = originals[i]
		}
	}
	return conformed
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

import (
	"context"
	"log/slog"
	"strings"

	"github.com/taibuivan/yakura/internal/glossary"
)

// # Free Cascade

/*
Engine is one machine translation backend inside the free cascade.

Available reports whether the engine can serve the language pair right
now; the cascade asks once per batch. TranslateText renders a single
string; an error fails only that item, the caller keeps the original.
*/
type Engine interface {
	Name() string
	Available(sourceLang, targetLang string) bool
	TranslateText(context context.Context, text, sourceLang, targetLang string) (string, error)
}

// FreeTranslator walks its engines in preference order and lets the
// first available one translate the whole batch.
type FreeTranslator struct {
	engines []Engine
	logger  *slog.Logger
}

// NewFreeTranslator builds the cascade; engine order is preference
// order.
func NewFreeTranslator(logger *slog.Logger, engines ...Engine) *FreeTranslator {
	return &FreeTranslator{engines: engines, logger: logger}
}

/*
Translate renders the request's texts through the first available
engine.

Description: When a glossary is present the inputs are rewritten with it
first, so engines that have never seen a name still emit the fixed
translation. Blank inputs stay blank. A failed item keeps its original
text; a batch with no available engine returns all originals.

Parameters:
  - context: context.Context
  - request: Request

Returns:
  - *Result: Translations aligned with request.Texts, Backend MT
  - error: Context cancellation only; item failures degrade
*/
func (translator *FreeTranslator) Translate(context context.Context, request Request) (*Result, error) {
	texts := request.Texts
	if len(request.Glossary) > 0 {
		texts = applyGlossary(request.Glossary, texts)
	}

	engine := translator.pick(request.SourceLang, request.TargetLang)
	if engine == nil {
		translator.logger.Error("free_translator_unavailable",
			slog.String("source", request.SourceLang),
			slog.String("target", request.TargetLang))
		fallback := make([]string, len(texts))
		copy(fallback, texts)
		return &Result{Translations: fallback, Backend: BackendMT}, nil
	}

	translations := make([]string, len(texts))
	for i, text := range texts {
		if err := context.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(text) == "" {
			translations[i] = ""
			continue
		}

		translated, err := engine.TranslateText(context, text, request.SourceLang, request.TargetLang)
		if err != nil {
			translator.logger.Warn("free_item_failed",
				slog.String("engine", engine.Name()),
				slog.String("error", err.Error()))
			translations[i] = text
			continue
		}
		translations[i] = translated
	}

	return &Result{Translations: translations, Backend: BackendMT}, nil
}

func (translator *FreeTranslator) pick(sourceLang, targetLang string) Engine {
	for _, engine := range translator.engines {
		if engine.Available(sourceLang, targetLang) {
			return engine
		}
	}
	return nil
}

// applyGlossary rewrites texts through the pure glossary replacement so
// fixed terms survive engines that would translate them literally.
func applyGlossary(terms map[string]string, texts []string) []string {
	entries := make([]glossary.Entry, 0, len(terms))
	for original, translation := range terms {
		entries = append(entries, glossary.Entry{Original: original, Translation: translation})
	}
	rewritten, _ := glossary.Apply(entries, texts)
	return rewritten
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// # In-Process MT Engine

// ONNXConfig points at a word-level seq2seq export. The model embeds its
// own greedy decode loop: input_ids (int64, [1,n]) map straight to
// output_ids (int64, [1,m]). The vocabulary file is JSON token -> id.
type ONNXConfig struct {
	ModelPath string
	VocabPath string
	// Library is the onnxruntime shared library; empty keeps the
	// platform default lookup.
	Library string
}

// onnxEngine runs the exported model in-process. One deployment serves
// one language direction; the deployed model decides which.
type onnxEngine struct {
	cfg    ONNXConfig
	logger *slog.Logger

	once    sync.Once
	initErr error
	session *ort.DynamicAdvancedSession
	ids     map[string]int64
	tokens  map[int64]string
	unknown int64
	hasUnk  bool
}

// NewONNXEngine constructs the in-process engine. Initialization is lazy;
// a missing model or runtime only surfaces through Available.
func NewONNXEngine(cfg ONNXConfig, logger *slog.Logger) Engine {
	return &onnxEngine{cfg: cfg, logger: logger}
}

func (engine *onnxEngine) Name() string { return "onnx" }

// Available requires a configured model and vocabulary plus a runtime
// that actually initializes. The language pair is not checked; the
// deployed model defines it.
func (engine *onnxEngine) Available(sourceLang, targetLang string) bool {
	if engine.cfg.ModelPath == "" || engine.cfg.VocabPath == "" {
		return false
	}
	engine.once.Do(engine.initialize)
	return engine.initErr == nil
}

func (engine *onnxEngine) initialize() {
	if engine.cfg.Library != "" {
		ort.SetSharedLibraryPath(engine.cfg.Library)
	}
	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			engine.initErr = fmt.Errorf("translate: failed to initialize onnx runtime: %w", err)
			engine.logger.Warn("onnx_unavailable", slog.String("error", engine.initErr.Error()))
			return
		}
	}

	if err := engine.loadVocabulary(); err != nil {
		engine.initErr = err
		engine.logger.Warn("onnx_unavailable", slog.String("error", err.Error()))
		return
	}

	session, err := ort.NewDynamicAdvancedSession(engine.cfg.ModelPath,
		[]string{"input_ids"}, []string{"output_ids"}, nil)
	if err != nil {
		engine.initErr = fmt.Errorf("translate: failed to load onnx model: %w", err)
		engine.logger.Warn("onnx_unavailable", slog.String("error", engine.initErr.Error()))
		return
	}
	engine.session = session

	engine.logger.Info("onnx_ready",
		slog.String("model", engine.cfg.ModelPath),
		slog.Int("vocabulary", len(engine.ids)))
}

func (engine *onnxEngine) loadVocabulary() error {
	raw, err := os.ReadFile(engine.cfg.VocabPath)
	if err != nil {
		return fmt.Errorf("translate: failed to read onnx vocabulary: %w", err)
	}

	ids := map[string]int64{}
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("translate: failed to parse onnx vocabulary: %w", err)
	}

	engine.ids = ids
	engine.tokens = make(map[int64]string, len(ids))
	for token, id := range ids {
		engine.tokens[id] = token
	}
	if id, ok := ids["<unk>"]; ok {
		engine.unknown = id
		engine.hasUnk = true
	}
	return nil
}

/*
TranslateText runs one string through the exported model.

Parameters:
  - context: context.Context (checked before the blocking run)
  - text: string
  - sourceLang: string (unused, the model fixes the direction)
  - targetLang: string (unused)

Returns:
  - string: Decoded model output
  - error: Tokenization or session failures
*/
func (engine *onnxEngine) TranslateText(context context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := context.Err(); err != nil {
		return "", err
	}

	inputIDs := engine.encode(text)
	if len(inputIDs) == 0 {
		return text, nil
	}

	inputTensor, err := ort.NewTensor(ort.NewShape(1, int64(len(inputIDs))), inputIDs)
	if err != nil {
		return "", fmt.Errorf("translate: failed to build onnx input: %w", err)
	}
	defer inputTensor.Destroy()

	outputs := []ort.Value{nil}
	if err := engine.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return "", fmt.Errorf("translate: onnx run failed: %w", err)
	}

	outputTensor, ok := outputs[0].(*ort.Tensor[int64])
	if !ok {
		return "", fmt.Errorf("translate: onnx model emitted unexpected output type")
	}
	defer outputTensor.Destroy()

	return engine.decode(outputTensor.GetData()), nil
}

// encode lowercases and word-splits the input; words outside the
// vocabulary become <unk> when the vocabulary has one, otherwise they
// are skipped.
func (engine *onnxEngine) encode(text string) []int64 {
	words := strings.Fields(strings.ToLower(text))
	ids := make([]int64, 0, len(words))
	for _, word := range words {
		word = strings.Trim(word, ".,!?;:\"'")
		if word == "" {
			continue
		}
		if id, ok := engine.ids[word]; ok {
			ids = append(ids, id)
			continue
		}
		if engine.hasUnk {
			ids = append(ids, engine.unknown)
		}
	}
	return ids
}

// decode maps ids back to tokens, dropping specials of the <...> form.
func (engine *onnxEngine) decode(ids []int64) string {
	words := make([]string, 0, len(ids))
	for _, id := range ids {
		token, ok := engine.tokens[id]
		if !ok || strings.HasPrefix(token, "<") {
			continue
		}
		words = append(words, token)
	}
	return strings.Join(words, " ")
}

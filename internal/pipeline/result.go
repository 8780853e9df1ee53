// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"encoding/json"
	"fmt"

	"github.com/taibuivan/yakura/internal/ocr"
	"github.com/taibuivan/yakura/internal/translate"
)

// # Chapter Result

// ChapterResult is the finished build of one chapter. FinalPages and
// CleanedPages hold exactly one entry per source page; OriginalTexts and
// TranslatedTexts are the flat block texts in page-major order, always
// of equal length. BlocksByPage preserves the per-page block ordering
// the texts were flattened from.
type ChapterResult struct {
	FinalPages      [][]byte          `json:"final_pages"`
	CleanedPages    [][]byte          `json:"cleaned_pages"`
	OriginalTexts   []string          `json:"original_texts"`
	TranslatedTexts []string          `json:"translated_texts"`
	BlocksByPage    [][]ocr.TextBlock `json:"blocks_by_page"`
	SourceLang      string            `json:"source_lang"`
	TargetLang      string            `json:"target_lang"`
	Backend         translate.Backend `json:"backend"`
	PageFormat      string            `json:"page_format"`
	Total           int               `json:"total"`
}

/*
Encode serializes the result for the cache.

Description: JSON with page bytes as base64. The encoding is an internal
cache format, not a public contract; DecodeResult is its only reader.

Returns:
  - []byte: The serialized result
  - error: Marshalling failures
*/
func (result *ChapterResult) Encode() ([]byte, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("pipeline: failed to encode result: %w", err)
	}
	return payload, nil
}

/*
DecodeResult deserializes a cached chapter result.

Parameters:
  - payload: []byte (A value produced by Encode)

Returns:
  - *ChapterResult: The decoded result
  - error: Malformed payloads
*/
func DecodeResult(payload []byte) (*ChapterResult, error) {
	var result ChapterResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("pipeline: failed to decode result: %w", err)
	}
	return &result, nil
}

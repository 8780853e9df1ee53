// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/ocr"
	"github.com/taibuivan/yakura/internal/pipeline"
	"github.com/taibuivan/yakura/internal/translate"
)

/*
TestChapterResult_EncodeDecode verifies the cache serialization keeps
page bytes, text alignment and block ordering intact.
*/
func TestChapterResult_EncodeDecode(t *testing.T) {
	original := &pipeline.ChapterResult{
		FinalPages:      [][]byte{[]byte("final-1"), []byte("final-2")},
		CleanedPages:    [][]byte{[]byte("clean-1"), []byte("clean-2")},
		OriginalTexts:   []string{"안녕", "세계"},
		TranslatedTexts: []string{"Hello", "World"},
		BlocksByPage: [][]ocr.TextBlock{
			{
				{Text: "안녕", BBox: ocr.BBox{X: 1, Y: 2, W: 30, H: 40}, Confidence: 0.91},
				{Text: "세계", BBox: ocr.BBox{X: 5, Y: 50, W: 25, H: 20}, Confidence: 0.84},
			},
			nil,
		},
		SourceLang: "ko",
		TargetLang: "en",
		Backend:    translate.BackendLLM,
		PageFormat: "webp",
		Total:      2,
	}

	payload, err := original.Encode()
	require.NoError(t, err)

	decoded, err := pipeline.DecodeResult(payload)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	// Length invariants survive the round trip.
	assert.Len(t, decoded.FinalPages, decoded.Total)
	assert.Len(t, decoded.CleanedPages, decoded.Total)
	assert.Equal(t, len(decoded.OriginalTexts), len(decoded.TranslatedTexts))
}

func TestDecodeResult_Malformed(t *testing.T) {
	_, err := pipeline.DecodeResult([]byte("{not json"))
	assert.Error(t, err)
}

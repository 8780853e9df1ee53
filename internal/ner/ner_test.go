// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/ner"
)

// names reduces extractor output to the bare text values.
func names(detected []ner.Name) []string {
	out := make([]string, 0, len(detected))
	for _, name := range detected {
		out = append(out, name.Text)
	}
	return out
}

/*
TestHeuristic_Extract covers detection shapes, stopword and honorific
filtering, and empty input.
*/
func TestHeuristic_Extract(t *testing.T) {
	tests := []struct {
		name  string
		texts []string
		want  []string
	}{
		{
			name:  "single_capitalized_name",
			texts: []string{"Jin is waiting outside."},
			want:  []string{"Jin"},
		},
		{
			name:  "multi_word_name",
			texts: []string{"Mary Jane swings across the city."},
			want:  []string{"Mary Jane"},
		},
		{
			name:  "all_caps_acronym",
			texts: []string{"the NASA report was wrong"},
			want:  []string{"NASA"},
		},
		{
			name:  "stopwords_filtered",
			texts: []string{"The end. This is it. Yes."},
			want:  []string{},
		},
		{
			name:  "bare_honorific_filtered",
			texts: []string{"Dr. Smith arrived late."},
			want:  []string{"Smith"},
		},
		{
			name:  "empty_input",
			texts: []string{"", "   "},
			want:  []string{},
		},
		{
			name:  "no_capitalization",
			texts: []string{"nothing to see here"},
			want:  []string{},
		},
	}

	extractor := ner.NewHeuristic()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractor.Extract(tt.texts)
			assert.ElementsMatch(t, tt.want, names(got))
		})
	}
}

/*
TestHeuristic_ConfidenceScoring checks the additive scoring parts: sentence
start, trailing punctuation, word count, and the length bonus.
*/
func TestHeuristic_ConfidenceScoring(t *testing.T) {
	extractor := ner.NewHeuristic()

	// Sentence start + single capitalized + length bonus.
	got := extractor.Extract([]string{"Jin is waiting."})
	require.Len(t, got, 1)
	assert.InDelta(t, 0.8, got[0].Confidence, 1e-9)

	// Multi-word bonus replaces the single-word bonus.
	got = extractor.Extract([]string{"Mary Jane swings."})
	require.Len(t, got, 1)
	assert.InDelta(t, 0.9, got[0].Confidence, 1e-9)

	// Trailing punctuation adds on top.
	got = extractor.Extract([]string{"Have you met Jin?"})
	require.Len(t, got, 1)
	require.Equal(t, "Jin", got[0].Text)
	assert.InDelta(t, 0.8, got[0].Confidence, 1e-9)
}

/*
TestHeuristic_RepetitionBoost verifies recurring names rank above one-off
detections of the same shape.
*/
func TestHeuristic_RepetitionBoost(t *testing.T) {
	extractor := ner.NewHeuristic()

	got := extractor.Extract([]string{
		"Jin enters the arena.",
		"Jin draws his blade.",
		"Sora watches from afar.",
	})

	require.GreaterOrEqual(t, len(got), 2)
	assert.Equal(t, "Jin", got[0].Text)
	assert.Greater(t, got[0].Confidence, got[1].Confidence)
}

/*
TestHeuristic_Ordering confirms descending confidence with alphabetical
tie-breaks for deterministic output.
*/
func TestHeuristic_Ordering(t *testing.T) {
	extractor := ner.NewHeuristic()

	// Both names share identical shape and position, so their confidence
	// ties and the order falls back to the alphabet.
	got := extractor.Extract([]string{"Zane is ready.", "Able is ready."})
	require.Len(t, got, 2)
	assert.Equal(t, []string{"Able", "Zane"}, names(got))
}

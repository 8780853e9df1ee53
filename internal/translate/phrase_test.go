// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/translate"
)

func writePhraseTable(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

/*
TestPhraseEngine_TranslateText covers the greedy matcher: longest phrase
wins, punctuation survives, case is ignored, and unknown words pass
through.
*/
func TestPhraseEngine_TranslateText(t *testing.T) {
	dir := t.TempDir()
	writePhraseTable(t, dir, "en_tr.tsv", ""+
		"hello\tmerhaba\n"+
		"good morning\tgünaydın\n"+
		"good\tiyi\n"+
		"world\tdünya\n"+
		"# comment lines and blanks are skipped\n"+
		"\n")

	engine := translate.NewPhraseEngine(dir, testLogger())
	require.True(t, engine.Available("en", "tr"))

	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "single_word", text: "hello", want: "merhaba"},
		{name: "longest_phrase_wins", text: "Good morning world", want: "günaydın dünya"},
		{name: "shorter_phrase_when_alone", text: "good day", want: "iyi day"},
		{name: "punctuation_carried", text: "Good morning, world!", want: "günaydın, dünya!"},
		{name: "unknown_words_pass_through", text: "xyzzy hello", want: "xyzzy merhaba"},
		{name: "empty", text: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.TranslateText(context.Background(), tt.text, "en", "tr")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

/*
TestPhraseEngine_Available checks per-pair gating: only pairs whose
table file exists are served.
*/
func TestPhraseEngine_Available(t *testing.T) {
	dir := t.TempDir()
	writePhraseTable(t, dir, "en_tr.tsv", "hello\tmerhaba\n")

	engine := translate.NewPhraseEngine(dir, testLogger())
	assert.True(t, engine.Available("en", "tr"))
	assert.True(t, engine.Available("EN", "TR"))
	assert.False(t, engine.Available("en", "es"))
	assert.False(t, engine.Available("tr", "en"))

	none := translate.NewPhraseEngine("", testLogger())
	assert.False(t, none.Available("en", "tr"))
}

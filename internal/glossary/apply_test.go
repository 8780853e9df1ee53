// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package glossary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/glossary"
)

func entry(original, translation string) glossary.Entry {
	return glossary.Entry{Original: original, Translation: translation}
}

/*
TestApply_WholeToken checks case-insensitive whole-token replacement: exact
tokens rewrite, substrings inside longer words do not.
*/
func TestApply_WholeToken(t *testing.T) {
	entries := []glossary.Entry{entry("Jin", "Cin")}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"exact_token", "Jin is here", "Cin is here"},
		{"lowercase_token", "I saw jin!", "I saw Cin!"},
		{"uppercase_token", "JIN strikes", "Cin strikes"},
		{"token_with_punctuation", "Run, Jin.", "Run, Cin."},
		{"substring_untouched", "Jinwoo keeps his name", "Jinwoo keeps his name"},
		{"no_match", "nothing here", "nothing here"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := glossary.Apply(entries, []string{tt.in})
			require.Len(t, got, 1)
			assert.Equal(t, tt.want, got[0])
		})
	}
}

/*
TestApply_LongestFirst verifies multi-word terms win over their own
prefixes regardless of entry order.
*/
func TestApply_LongestFirst(t *testing.T) {
	entries := []glossary.Entry{
		entry("Jin", "Cin"),
		entry("Jin Woo", "Cin Woo"),
	}

	got, replacements := glossary.Apply(entries, []string{"Jin Woo fights Jin today"})
	require.Len(t, got, 1)
	assert.Equal(t, "Cin Woo fights Cin today", got[0])
	assert.Equal(t, map[string]string{"Jin Woo": "Cin Woo", "Jin": "Cin"}, replacements)
}

/*
TestApply_Replacements confirms the replacement map only lists entries that
matched at least once.
*/
func TestApply_Replacements(t *testing.T) {
	entries := []glossary.Entry{
		entry("Jin", "Cin"),
		entry("Sora", "Sora Hanim"),
	}

	got, replacements := glossary.Apply(entries, []string{"Jin waves", "Jin waves back"})
	assert.Equal(t, []string{"Cin waves", "Cin waves back"}, got)
	assert.Equal(t, map[string]string{"Jin": "Cin"}, replacements)
}

/*
TestApply_Idempotent verifies applying the output again changes nothing for
a dictionary whose translations are not themselves originals.
*/
func TestApply_Idempotent(t *testing.T) {
	entries := []glossary.Entry{entry("Jin", "Cin"), entry("Mount Hua", "Hua Dagi")}
	texts := []string{"Jin climbs Mount Hua", "mount hua is silent"}

	once, _ := glossary.Apply(entries, texts)
	twice, replacements := glossary.Apply(entries, once)

	assert.Equal(t, once, twice)
	assert.Empty(t, replacements)
}

/*
TestApply_EdgeInputs covers empty dictionaries, empty texts, and
special regex characters in both term and translation.
*/
func TestApply_EdgeInputs(t *testing.T) {
	t.Run("empty_entries", func(t *testing.T) {
		got, replacements := glossary.Apply(nil, []string{"Jin"})
		assert.Equal(t, []string{"Jin"}, got)
		assert.Empty(t, replacements)
	})

	t.Run("empty_texts", func(t *testing.T) {
		got, replacements := glossary.Apply([]glossary.Entry{entry("Jin", "Cin")}, nil)
		assert.Empty(t, got)
		assert.Empty(t, replacements)
	})

	t.Run("regex_chars_in_term", func(t *testing.T) {
		got, _ := glossary.Apply([]glossary.Entry{entry("S+ Rank", "S+ Seviye")}, []string{"the S+ Rank gate"})
		assert.Equal(t, []string{"the S+ Seviye gate"}, got)
	})

	t.Run("dollar_in_translation", func(t *testing.T) {
		got, _ := glossary.Apply([]glossary.Entry{entry("Gold", "$1000")}, []string{"Gold reward"})
		assert.Equal(t, []string{"$1000 reward"}, got)
	})
}

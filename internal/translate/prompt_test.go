// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
TestBuildSystemPrompt checks the assembled system message: role text,
glossary block with deterministic ordering, chapter context, and carried
translations.
*/
func TestBuildSystemPrompt(t *testing.T) {
	t.Run("role_only", func(t *testing.T) {
		prompt := buildSystemPrompt(nil, "", nil)
		assert.Contains(t, prompt, "professional webtoon")
		assert.Contains(t, prompt, "JSON list")
		assert.NotContains(t, prompt, "MANDATORY GLOSSARY")
		assert.NotContains(t, prompt, "PREVIOUS CONTEXT")
	})

	t.Run("glossary_sorted", func(t *testing.T) {
		prompt := buildSystemPrompt(map[string]string{
			"S+ Rank": "S+ Seviye",
			"Jin":     "Cin",
		}, "", nil)

		assert.Contains(t, prompt, "MANDATORY GLOSSARY")
		assert.Contains(t, prompt, `"Jin" -> "Cin"`)
		assert.Contains(t, prompt, `"S+ Rank" -> "S+ Seviye"`)

		jin := strings.Index(prompt, `"Jin"`)
		rank := strings.Index(prompt, `"S+ Rank"`)
		require.True(t, jin >= 0 && rank >= 0)
		assert.Less(t, jin, rank)
	})

	t.Run("chapter_context", func(t *testing.T) {
		prompt := buildSystemPrompt(nil, "Series: Tower of Dawn", nil)
		assert.Contains(t, prompt, "CHAPTER CONTEXT")
		assert.Contains(t, prompt, "Series: Tower of Dawn")
	})

	t.Run("carried_translations", func(t *testing.T) {
		prompt := buildSystemPrompt(nil, "", []string{"Merhaba", "Nasılsın"})
		assert.Contains(t, prompt, "PREVIOUS CONTEXT")
		assert.Contains(t, prompt, "1. Merhaba")
		assert.Contains(t, prompt, "2. Nasılsın")
	})
}

/*
TestBuildUserPrompt checks language naming, the rule block, and the JSON
input list.
*/
func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt([]string{"Hello", "World"}, "en", "tr")

	assert.Contains(t, prompt, "from English (en) to Turkish (tr)")
	assert.Contains(t, prompt, "IMPORTANT RULES")
	assert.Contains(t, prompt, "[\n  \"Hello\",\n  \"World\"\n]")
}

func TestBuildUserPrompt_UnknownLanguage(t *testing.T) {
	prompt := buildUserPrompt([]string{"x"}, "xx", "yy")
	assert.Contains(t, prompt, "from xx (xx) to yy (yy)")
}

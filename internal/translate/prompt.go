// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// # Prompt Assembly

const systemRole = `You are a professional webtoon and comic book translator.
Your tasks:
1. Translate texts naturally and fluently to the target language
2. Keep character names and honorifics consistent throughout the entire chapter
3. Understand and translate webtoon language (slang, special terms) correctly
4. Preserve the tone of speech and character personality
5. Output ONLY a JSON list: ["translation1", "translation2", ...]`

// languageNames covers the languages the pipeline detects; unknown codes
// fall back to the code itself.
var languageNames = map[string]string{
	"en": "English",
	"tr": "Turkish",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ru": "Russian",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"id": "Indonesian",
	"th": "Thai",
	"vi": "Vietnamese",
	"ar": "Arabic",
}

func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

/*
buildSystemPrompt assembles the system message: the translator role,
then the mandatory glossary, chapter context, and carried-over
translations when present.

Parameters:
  - glossary: map[string]string (original -> fixed translation)
  - chapterContext: string (free-form context, may be empty)
  - previous: []string (translations carried from the preceding chunk)

Returns:
  - string: The complete system message
*/
func buildSystemPrompt(glossary map[string]string, chapterContext string, previous []string) string {
	var b strings.Builder
	b.WriteString(systemRole)

	if len(glossary) > 0 {
		b.WriteString("\n\nMANDATORY GLOSSARY - whenever an original term appears, use EXACTLY this translation:\n")

		// Map order is random; sorted keys keep the prompt deterministic.
		originals := make([]string, 0, len(glossary))
		for original := range glossary {
			originals = append(originals, original)
		}
		sort.Strings(originals)

		for _, original := range originals {
			fmt.Fprintf(&b, "%q -> %q\n", original, glossary[original])
		}
	}

	if chapterContext != "" {
		b.WriteString("\nCHAPTER CONTEXT:\n")
		b.WriteString(chapterContext)
		b.WriteString("\n")
	}

	if len(previous) > 0 {
		b.WriteString("\nPREVIOUS CONTEXT - translations from the preceding part of this chapter, keep names and tone consistent with them:\n")
		for i, translation := range previous {
			fmt.Fprintf(&b, "%d. %s\n", i+1, translation)
		}
	}

	return b.String()
}

/*
buildUserPrompt assembles the user message: translation instructions and
the input texts as a JSON array.

Parameters:
  - texts: []string (the chunk to translate, in order)
  - sourceLang: string (ISO code)
  - targetLang: string (ISO code)

Returns:
  - string: The complete user message
*/
func buildUserPrompt(texts []string, sourceLang, targetLang string) string {
	encoded, err := json.MarshalIndent(texts, "", "  ")
	if err != nil {
		// []string cannot fail to marshal; keep the fallback readable.
		encoded = []byte(fmt.Sprintf("%q", texts))
	}

	return fmt.Sprintf(`Translate the following text list from %s (%s) to %s (%s).
This is a webtoon chapter. Translate all texts consistently within context.

IMPORTANT RULES:
1. Keep character names consistent throughout the list
2. Maintain consistent honorifics and addressing styles
3. Preserve the tone of speech (formal, casual, rude, etc.)
4. Translate webtoon slang and special terms correctly
5. Output ONLY a JSON list, no other explanations

Input List:
%s
`, languageName(sourceLang), sourceLang, languageName(targetLang), targetLang, encoded)
}

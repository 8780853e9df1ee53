// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package glossary

import (
	"regexp"
	"sort"
)

// # Dictionary Application

/*
Apply rewrites texts by replacing each entry's original term with its
translation.

Matching is case-insensitive and whole-token: "Jin" rewrites "jin!" but not
"Jinwoo". Entries are applied longest original first so multi-word terms
beat their own prefixes. The function is pure and deterministic for a given
entry snapshot, and applying its own output again is a no-op as long as no
translation is itself a glossary original.

Parameters:
  - entries: []Entry (Dictionary snapshot, any order)
  - texts: []string

Returns:
  - []string: Rewritten texts, same length and order as texts
  - map[string]string: Originals that matched at least once → translation
*/
func Apply(entries []Entry, texts []string) ([]string, map[string]string) {
	rewritten := make([]string, len(texts))
	copy(rewritten, texts)
	replacements := make(map[string]string)

	if len(entries) == 0 || len(texts) == 0 {
		return rewritten, replacements
	}

	ordered := make([]Entry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		if len(ordered[i].Original) != len(ordered[j].Original) {
			return len(ordered[i].Original) > len(ordered[j].Original)
		}
		return ordered[i].Original < ordered[j].Original
	})

	type compiled struct {
		entry   Entry
		pattern *regexp.Regexp
	}
	patterns := make([]compiled, 0, len(ordered))
	for _, entry := range ordered {
		if entry.Original == "" {
			continue
		}
		pattern, err := tokenPattern(entry.Original)
		if err != nil {
			continue
		}
		patterns = append(patterns, compiled{entry: entry, pattern: pattern})
	}

	for index, text := range rewritten {
		for _, candidate := range patterns {
			if !candidate.pattern.MatchString(text) {
				continue
			}
			translation := candidate.entry.Translation
			text = candidate.pattern.ReplaceAllStringFunc(text, func(string) string {
				return translation
			})
			replacements[candidate.entry.Original] = translation
		}
		rewritten[index] = text
	}

	return rewritten, replacements
}

// tokenPattern compiles a case-insensitive whole-token matcher for a term.
// Word boundaries are attached only where the term edge is a word character,
// so terms with punctuation edges still match.
func tokenPattern(term string) (*regexp.Regexp, error) {
	pattern := regexp.QuoteMeta(term)
	if isWordByte(term[0]) {
		pattern = `\b` + pattern
	}
	if isWordByte(term[len(term)-1]) {
		pattern += `\b`
	}
	return regexp.Compile(`(?i)` + pattern)
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= '0' && b <= '9') ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z')
}

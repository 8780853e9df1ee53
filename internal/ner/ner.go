// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ner detects proper nouns in dialogue text so the pipeline can seed
// and refresh series glossaries with recurring character and place names.
//
// # Architecture
//
// The default [Heuristic] extractor is regex-based and language-agnostic for
// Latin-script sources. [Extractor] is an interface so a model-backed
// implementation can replace it without touching the pipeline.
package ner

import (
	"regexp"
	"sort"
	"strings"
)

// # Types

// Name is a detected proper noun with an aggregate confidence in [0, 1].
type Name struct {
	Text       string
	Confidence float64
}

// Extractor finds unique proper nouns across a set of texts.
type Extractor interface {
	Extract(texts []string) []Name
}

// # Heuristic Extractor

var (
	// Capitalized word runs: "Jin", "Mary Jane Watson".
	capitalizedPattern = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*\b`)
	// Standalone acronyms: "NASA", "DC".
	allCapsPattern = regexp.MustCompile(`\b[A-Z]{2,}\b`)
)

// stopwords are sentence fillers that capitalization alone cannot distinguish
// from names when they open a sentence.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {}, "be": {},
	"been": {}, "have": {}, "has": {}, "had": {}, "do": {}, "does": {},
	"did": {}, "will": {}, "would": {}, "could": {}, "should": {}, "may": {},
	"might": {}, "must": {}, "can": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "i": {}, "you": {}, "he": {}, "she": {}, "it": {}, "we": {},
	"they": {}, "what": {}, "which": {}, "who": {}, "where": {}, "when": {},
	"why": {}, "how": {}, "all": {}, "each": {}, "every": {}, "some": {},
	"any": {}, "no": {}, "not": {}, "yes": {}, "ok": {}, "okay": {},
}

// honorifics standing alone are titles, not names. As a prefix they stay
// part of the detected name ("Mr Kim").
var honorifics = map[string]struct{}{
	"mr": {}, "mrs": {}, "ms": {}, "miss": {}, "dr": {}, "prof": {},
	"sir": {}, "madam": {}, "lord": {}, "lady": {},
}

const (
	minNameLength = 2
	maxNameLength = 50

	// keepThreshold is the floor below which candidates are discarded.
	keepThreshold = 0.3

	// repetitionBoost is added per extra text a name recurs in, capped at
	// four repetitions so frequency never outweighs shape entirely.
	repetitionBoost    = 0.05
	maxRepetitionBoost = 4
)

// Heuristic is the regex-based [Extractor].
type Heuristic struct{}

// NewHeuristic constructs the default regex-based extractor.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

/*
Extract detects unique proper nouns across all texts.

Candidates come from capitalization patterns, filtered by stopwords and bare
honorifics, scored per occurrence, deduplicated per text by dropping the
lower-confidence side of any overlap, then merged across texts. A name that
recurs earns a small repetition boost.

Parameters:
  - texts: []string (Dialogue texts in any order)

Returns:
  - []Name: Unique names, descending confidence, ties alphabetical
*/
func (extractor *Heuristic) Extract(texts []string) []Name {
	type aggregate struct {
		best  float64
		count int
	}
	found := make(map[string]*aggregate)

	for _, text := range texts {
		for _, candidate := range detect(text) {
			entry, seen := found[candidate.name]
			if !seen {
				found[candidate.name] = &aggregate{best: candidate.confidence, count: 1}
				continue
			}
			if candidate.confidence > entry.best {
				entry.best = candidate.confidence
			}
			entry.count++
		}
	}

	names := make([]Name, 0, len(found))
	for text, entry := range found {
		extra := entry.count - 1
		if extra > maxRepetitionBoost {
			extra = maxRepetitionBoost
		}
		confidence := entry.best + repetitionBoost*float64(extra)
		if confidence > 1.0 {
			confidence = 1.0
		}
		names = append(names, Name{Text: text, Confidence: confidence})
	}

	sort.Slice(names, func(i, j int) bool {
		if names[i].Confidence != names[j].Confidence {
			return names[i].Confidence > names[j].Confidence
		}
		return names[i].Text < names[j].Text
	})
	return names
}

// # Per-Text Detection

// candidate is one scored span inside a single text.
type candidate struct {
	name       string
	start, end int
	confidence float64
}

// detect finds scored candidates in one text with overlaps resolved in
// favor of the higher confidence span.
func detect(text string) []candidate {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var candidates []candidate
	seen := make(map[[2]int]struct{})

	for _, pattern := range []*regexp.Regexp{capitalizedPattern, allCapsPattern} {
		for _, loc := range pattern.FindAllStringIndex(text, -1) {
			start, end := loc[0], loc[1]
			name := text[start:end]

			if len(name) < minNameLength || len(name) > maxNameLength {
				continue
			}
			if _, dup := seen[[2]int{start, end}]; dup {
				continue
			}
			seen[[2]int{start, end}] = struct{}{}

			lower := strings.ToLower(name)
			if _, stop := stopwords[lower]; stop {
				continue
			}
			if _, title := honorifics[lower]; title {
				continue
			}

			confidence := score(name, text, start, end)
			if confidence < keepThreshold {
				continue
			}
			candidates = append(candidates, candidate{name: name, start: start, end: end, confidence: confidence})
		}
	}

	return resolveOverlaps(candidates)
}

// score rates one occurrence. Shape carries the base, position and length
// nudge it, and the result is capped at 1.0.
func score(name, text string, start, end int) float64 {
	confidence := 0.5

	words := strings.Fields(name)
	switch {
	case len(words) > 1:
		confidence += 0.2
	case name[0] >= 'A' && name[0] <= 'Z' && name[1:] == strings.ToLower(name[1:]):
		confidence += 0.1
	}

	if start == 0 || strings.ContainsRune(".!?\n", rune(text[start-1])) {
		confidence += 0.1
	}
	if end < len(text) && strings.ContainsRune(".,!?;:", rune(text[end])) {
		confidence += 0.1
	}
	if len(name) >= 3 && len(name) <= 20 {
		confidence += 0.1
	}

	if confidence > 1.0 {
		confidence = 1.0
	}
	return confidence
}

// resolveOverlaps keeps the higher-confidence span of any overlapping pair
// and returns survivors in positional order.
func resolveOverlaps(candidates []candidate) []candidate {
	if len(candidates) == 0 {
		return nil
	}

	byConfidence := make([]candidate, len(candidates))
	copy(byConfidence, candidates)
	sort.Slice(byConfidence, func(i, j int) bool {
		return byConfidence[i].confidence > byConfidence[j].confidence
	})

	var kept []candidate
	for _, current := range byConfidence {
		overlaps := false
		for _, existing := range kept {
			if current.start < existing.end && existing.start < current.end {
				overlaps = true
				break
			}
		}
		if !overlaps {
			kept = append(kept, current)
		}
	}

	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

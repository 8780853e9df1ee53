// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"strings"
	"unicode/utf8"
)

// matchThreshold is the minimum similarity for a fuzzy series match.
const matchThreshold = 0.8

// candidate is one catalog series considered during fuzzy matching.
type candidate struct {
	id              string
	normalizedTitle string
	sourceSite      string
}

// similarity scores two normalized titles in [0, 1]. Containment in
// either direction scores the length ratio of the shorter to the longer
// title, so "solo leveling" and "solo leveling ragnarok" stay close.
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}

	if a == "" || b == "" {
		return 0
	}

	if !strings.Contains(a, b) && !strings.Contains(b, a) {
		return 0
	}

	shorter := utf8.RuneCountInString(a)
	longer := utf8.RuneCountInString(b)
	if shorter > longer {
		shorter, longer = longer, shorter
	}

	return float64(shorter) / float64(longer)
}

// bestMatch returns the candidate closest to target, or nil when none
// reaches the match threshold.
func bestMatch(target string, candidates []candidate) *candidate {
	var best *candidate
	bestScore := 0.0

	for index := range candidates {
		score := similarity(target, candidates[index].normalizedTitle)
		if score >= matchThreshold && score > bestScore {
			best = &candidates[index]
			bestScore = score
		}
	}

	return best
}

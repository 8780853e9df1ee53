// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package glossary

import (
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// # Series Identity

/*
NormalizeTitle folds a series title for identity comparison.

Description: Lowercases, strips everything but letters, digits,
underscores and spaces, and collapses whitespace runs. The same folding
is used for catalog series matching, so the translation and publish
sides of a job agree on which series they are talking about.

Parameters:
  - title: string

Returns:
  - string: The normalized form, possibly empty
*/
func NormalizeTitle(title string) string {
	var builder strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			builder.WriteRune(r)
		case unicode.IsSpace(r):
			builder.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(builder.String()), " ")
}

/*
SeriesKey derives the stable dictionary series id for a title.

Description: Dictionaries must exist before the publisher has created any
catalog row, so the series id is a name-based UUID over the normalized
title rather than a database key. Every job naming the same series, in
any casing or punctuation, lands on the same dictionary.

Parameters:
  - title: string

Returns:
  - string: Deterministic UUID string
*/
func SeriesKey(title string) string {
	normalized := NormalizeTitle(title)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("yakura://series/"+normalized)).String()
}

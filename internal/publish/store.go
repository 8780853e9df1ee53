// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import "context"

// # Catalog Types

// Publication is the catalog write set of one publish call. StoragePath
// already points at the freshly written blob directory.
type Publication struct {
	SeriesTitle     string
	NormalizedTitle string
	Slug            string
	SourceSite      string
	ChapterNumber   int
	ChapterTitle    string
	SourceURL       string
	PageCount       int
	SourceLang      string
	TargetLang      string
	Backend         int16
	StoragePath     string
	Replace         bool
}

// Outcome reports what one catalog transaction resolved. Exactly one of
// the path fields is set when a translation row already existed:
// ExistingPath for a kept row, ReplacedPath for an overwritten one.
type Outcome struct {
	SeriesID       string
	ChapterID      string
	TranslationID  string
	SeriesCreated  bool
	ChapterCreated bool
	Skipped        bool
	ExistingPath   string
	ReplacedPath   string
}

// # Port

// Store is the catalog persistence port.
type Store interface {

	/*
		Apply commits one publication to the catalog atomically.

		Description: Matches or creates the series, upserts the chapter
		and the translation per the replace policy. When a translation
		row already exists and replace is off, nothing is written and
		the outcome reports Skipped with the kept row's storage path.

		Parameters:
		  - context: context.Context
		  - publication: *Publication

		Returns:
		  - *Outcome: Resolved ids and conflict disposition
		  - error: Storage failures, nothing partially applied
	*/
	Apply(context context.Context, publication *Publication) (*Outcome, error)
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package catalog provides read-only browsing of the published translation
catalog.

The publish side of the pipeline owns all writes; this package only
answers the questions operators ask after the fact: which series exist,
which chapters a series has, and which language pairs each chapter was
rendered in. Rows reference result directories on the shared volume via
their storage paths.
*/
package catalog

import "time"

// # Domain Types

// Series is one published series in the catalog.
type Series struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
	SourceSite  string `json:"source_site,omitempty"`
	// ChapterCount is derived at query time, not stored.
	ChapterCount int       `json:"chapter_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Chapter is one published chapter with its rendered language pairs.
type Chapter struct {
	ID            string        `json:"id"`
	SeriesID      string        `json:"series_id"`
	ChapterNumber int           `json:"chapter_number"`
	Title         string        `json:"title,omitempty"`
	PageCount     int           `json:"page_count"`
	SourceURL     string        `json:"source_url,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	Translations  []Translation `json:"translations"`
}

// Translation is one rendered language pair of a chapter.
type Translation struct {
	ID          string    `json:"id"`
	SourceLang  string    `json:"source_lang"`
	TargetLang  string    `json:"target_lang"`
	Backend     int16     `json:"backend"`
	StoragePath string    `json:"storage_path"`
	PageCount   int       `json:"page_count"`
	PublishedAt time.Time `json:"published_at"`
}

// Filter narrows and orders series listings.
type Filter struct {
	// Query matches against the normalized series title.
	Query string
	// SourceSite restricts results to one scrape origin.
	SourceSite string
	// Sort is one of latest, az, za. Empty selects latest.
	Sort string
}

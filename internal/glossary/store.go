// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package glossary

import (
	"context"

	"github.com/taibuivan/yakura/pkg/pagination"
)

// # Persistence Port

// Store is the persistence boundary for dictionaries and their entries.
type Store interface {

	/*
		GetOrCreateDictionary returns the dictionary for a series and
		language pair, creating it on first use.

		Parameters:
		  - context: context.Context
		  - seriesID: string
		  - sourceLang: string
		  - targetLang: string

		Returns:
		  - *Dictionary: Existing or newly created dictionary
		  - error: Storage failures
	*/
	GetOrCreateDictionary(context context.Context, seriesID, sourceLang, targetLang string) (*Dictionary, error)

	/*
		Lookup finds one entry by its original term, case-insensitively.

		Returns:
		  - *Entry: The matching entry
		  - error: apperr.NotFound on miss, storage failures otherwise
	*/
	Lookup(context context.Context, dictionaryID, original string) (*Entry, error)

	/*
		Upsert inserts or refreshes an entry keyed by the case-folded
		original. Existing entries get the new translation, an incremented
		usage count, and a fresh last-used timestamp; the proper-noun mark
		changes only when the incoming mark is not NounAuto.

		Returns:
		  - *Entry: The stored row after the write
		  - error: Storage failures
	*/
	Upsert(context context.Context, dictionaryID, original, translation string, mark NounMark) (*Entry, error)

	/*
		ListEntries returns every entry of a dictionary. The translator
		applies glossaries against this in-memory snapshot.
	*/
	ListEntries(context context.Context, dictionaryID string) ([]Entry, error)

	/*
		ListEntriesPage returns one page of entries ordered by usage count
		descending, for the read-only ingress endpoint.
	*/
	ListEntriesPage(context context.Context, dictionaryID string, page pagination.Params) ([]Entry, int, error)

	/*
		CountEntries returns the number of entries in a dictionary.
	*/
	CountEntries(context context.Context, dictionaryID string) (int, error)

	/*
		DeleteLeastUsed removes up to limit entries with usage below
		minUsage, poorest first by (usage_count, last_used_at) ascending.

		Returns:
		  - int: Rows actually deleted
		  - error: Storage failures
	*/
	DeleteLeastUsed(context context.Context, dictionaryID string, minUsage, limit int) (int, error)

	/*
		DictionaryBySeries returns the dictionary for a series and language
		pair without creating one. apperr.NotFound when absent.
	*/
	DictionaryBySeries(context context.Context, seriesID, sourceLang, targetLang string) (*Dictionary, error)

	/*
		Stats aggregates entry count, proper-noun count, and the most used
		entries of a dictionary.
	*/
	Stats(context context.Context, dictionaryID string) (*Stats, error)
}

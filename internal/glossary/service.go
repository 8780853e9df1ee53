// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package glossary

import (
	"context"
	"log/slog"

	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/pkg/pagination"
)

// # Service Layer

// Service owns the business rules around dictionaries: name seeding, usage
// accounting, and the capacity ceiling.
type Service struct {
	store    Store
	logger   *slog.Logger
	capacity int
	minKeep  int
}

// NewService constructs a [Service] with the default capacity rules.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		logger:   logger,
		capacity: DefaultCapacity,
		minKeep:  MinKeepUsage,
	}
}

// # Pipeline Operations

/*
EnsureDictionary returns the dictionary for a series and language pair,
creating it on first use.

Parameters:
  - context: context.Context
  - seriesID: string
  - sourceLang: string
  - targetLang: string

Returns:
  - *Dictionary: The canonical dictionary
  - error: Storage failures
*/
func (service *Service) EnsureDictionary(context context.Context, seriesID, sourceLang, targetLang string) (*Dictionary, error) {
	dictionary, err := service.store.GetOrCreateDictionary(context, seriesID, sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	return dictionary, nil
}

/*
Snapshot returns every entry of a dictionary for in-memory application.

Parameters:
  - context: context.Context
  - dictionaryID: string

Returns:
  - []Entry: Full entry snapshot, longest originals first
  - error: Storage failures
*/
func (service *Service) Snapshot(context context.Context, dictionaryID string) ([]Entry, error) {
	return service.store.ListEntries(context, dictionaryID)
}

/*
RefreshUsage bumps usage for every detected name that already has an entry.

Description: Unknown names are left alone; they are only added after
translation via [Service.SeedNames], when a translation for them exists.

Parameters:
  - context: context.Context
  - dictionaryID: string
  - names: []string (Detected names, any casing)

Returns:
  - int: Entries refreshed
  - error: First storage failure
*/
func (service *Service) RefreshUsage(context context.Context, dictionaryID string, names []string) (int, error) {
	refreshed := 0
	for _, name := range names {
		entry, err := service.store.Lookup(context, dictionaryID, name)
		if err != nil {
			if apperr.IsNotFound(err) {
				continue
			}
			return refreshed, err
		}

		if _, err := service.store.Upsert(context, dictionaryID, entry.Original, entry.Translation, NounAuto); err != nil {
			return refreshed, err
		}
		refreshed++
	}

	if refreshed > 0 {
		service.logger.Debug("glossary_usage_refreshed",
			slog.String("dictionary_id", dictionaryID),
			slog.Int("count", refreshed),
		)
	}
	return refreshed, nil
}

/*
SeedNames inserts newly discovered names after a translation pass.

Description: Names already present are skipped, so a human-corrected
translation is never clobbered by automatic seeding. New entries carry the
name itself as translation until a better mapping is learned, marked
NounAuto. Capacity is enforced afterwards.

Parameters:
  - context: context.Context
  - dictionaryID: string
  - names: []string (Names detected in the source texts)

Returns:
  - int: Entries newly created
  - error: First storage failure
*/
func (service *Service) SeedNames(context context.Context, dictionaryID string, names []string) (int, error) {
	seeded := 0
	for _, name := range names {
		if name == "" {
			continue
		}

		_, err := service.store.Lookup(context, dictionaryID, name)
		if err == nil {
			continue
		}
		if !apperr.IsNotFound(err) {
			return seeded, err
		}

		if _, err := service.store.Upsert(context, dictionaryID, name, name, NounAuto); err != nil {
			return seeded, err
		}
		seeded++
	}

	if seeded > 0 {
		service.logger.Info("glossary_names_seeded",
			slog.String("dictionary_id", dictionaryID),
			slog.Int("count", seeded),
		)
	}

	if _, err := service.EnforceCapacity(context, dictionaryID); err != nil {
		return seeded, err
	}
	return seeded, nil
}

/*
EnforceCapacity trims a dictionary back toward its capacity.

Description: Only entries below the minimum-keep usage are candidates, and
at most size-capacity rows leave, ordered by (usage_count, last_used_at)
ascending. A dictionary whose overflow is entirely well-used stays over
capacity by design of the keep rule.

Parameters:
  - context: context.Context
  - dictionaryID: string

Returns:
  - int: Entries removed
  - error: Storage failures
*/
func (service *Service) EnforceCapacity(context context.Context, dictionaryID string) (int, error) {
	size, err := service.store.CountEntries(context, dictionaryID)
	if err != nil {
		return 0, err
	}
	if size <= service.capacity {
		return 0, nil
	}

	removed, err := service.store.DeleteLeastUsed(context, dictionaryID, service.minKeep, size-service.capacity)
	if err != nil {
		return 0, err
	}

	if removed > 0 {
		service.logger.Info("glossary_cleanup",
			slog.String("dictionary_id", dictionaryID),
			slog.Int("size", size),
			slog.Int("removed", removed),
		)
	}
	return removed, nil
}

// # Read Operations

/*
StatsBySeries resolves a series' dictionary and aggregates its stats.

Parameters:
  - context: context.Context
  - seriesID: string
  - sourceLang: string
  - targetLang: string

Returns:
  - *Stats: Aggregated dictionary stats
  - error: apperr.NotFound when the series has no dictionary
*/
func (service *Service) StatsBySeries(context context.Context, seriesID, sourceLang, targetLang string) (*Stats, error) {
	dictionary, err := service.store.DictionaryBySeries(context, seriesID, sourceLang, targetLang)
	if err != nil {
		return nil, err
	}
	return service.store.Stats(context, dictionary.ID)
}

/*
EntriesBySeries returns one page of a series' dictionary entries.

Parameters:
  - context: context.Context
  - seriesID: string
  - sourceLang: string
  - targetLang: string
  - page: pagination.Params

Returns:
  - []Entry: One page, most used first
  - int: Total entries
  - error: apperr.NotFound when the series has no dictionary
*/
func (service *Service) EntriesBySeries(context context.Context, seriesID, sourceLang, targetLang string, page pagination.Params) ([]Entry, int, error) {
	dictionary, err := service.store.DictionaryBySeries(context, seriesID, sourceLang, targetLang)
	if err != nil {
		return nil, 0, err
	}
	return service.store.ListEntriesPage(context, dictionary.ID, page)
}

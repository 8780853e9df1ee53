// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"

	googleuuid "github.com/google/uuid"

	"github.com/taibuivan/yakura/internal/glossary"
	"github.com/taibuivan/yakura/pkg/pagination"
)

// # Service

// Service exposes catalog browsing on top of the persistence port.
type Service struct {
	store Store
}

// NewService constructs a catalog [Service].
func NewService(store Store) *Service {
	return &Service{store: store}
}

/*
ListSeries returns one page of published series.

Description: The free-text query is normalized the same way the publisher
normalizes titles, so a search for "SOLO Leveling!!" finds the series
stored as "solo leveling".

Parameters:
  - context: context.Context
  - filter: Filter
  - page: pagination.Params

Returns:
  - []Series: One page of series
  - int: Total series matching the filter
  - error: Storage failures
*/
func (service *Service) ListSeries(context context.Context, filter Filter, page pagination.Params) ([]Series, int, error) {
	filter.Query = glossary.NormalizeTitle(filter.Query)
	return service.store.ListSeries(context, filter, page)
}

/*
GetSeries retrieves one series by UUID or slug.

Description: UUID lookups take precedence; anything that does not parse as
a UUID is treated as a slug.

Parameters:
  - context: context.Context
  - identifier: string (UUID or slug)

Returns:
  - *Series: The series with its chapter count
  - error: apperr.NotFound when no row matches
*/
func (service *Service) GetSeries(context context.Context, identifier string) (*Series, error) {
	if googleuuid.Validate(identifier) == nil {
		return service.store.SeriesByID(context, identifier)
	}
	return service.store.SeriesBySlug(context, identifier)
}

// ListChapters returns one page of a series' chapters with translations.
// An unknown series id yields an empty page, not an error.
func (service *Service) ListChapters(context context.Context, seriesID string, page pagination.Params) ([]Chapter, int, error) {
	return service.store.ListChapters(context, seriesID, page)
}

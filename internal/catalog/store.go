// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"

	"github.com/taibuivan/yakura/pkg/pagination"
)

// # Store Port

// Store is the persistence port for catalog reads.
type Store interface {

	/*
		ListSeries returns one page of published series and the total count.

		Parameters:
		  - context: context.Context
		  - filter: Filter (Search, source site, sorting)
		  - page: pagination.Params

		Returns:
		  - []Series: One page, each with its chapter count
		  - int: Total series matching the filter
		  - error: Database execution errors
	*/
	ListSeries(context context.Context, filter Filter, page pagination.Params) ([]Series, int, error)

	/*
		SeriesByID retrieves a series by its primary key.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *Series: The series with its chapter count
		  - error: apperr.NotFound when no row matches
	*/
	SeriesByID(context context.Context, id string) (*Series, error)

	/*
		SeriesBySlug retrieves a series by its unique slug.

		Parameters:
		  - context: context.Context
		  - slug: string

		Returns:
		  - *Series: The series with its chapter count
		  - error: apperr.NotFound when no row matches
	*/
	SeriesBySlug(context context.Context, slug string) (*Series, error)

	/*
		ListChapters returns one page of a series' chapters, each hydrated
		with its published translations.

		Parameters:
		  - context: context.Context
		  - seriesID: string (UUID)
		  - page: pagination.Params

		Returns:
		  - []Chapter: One page, ordered by chapter number
		  - int: Total chapters in the series
		  - error: Database execution errors
	*/
	ListChapters(context context.Context, seriesID string, page pagination.Params) ([]Chapter, int, error)
}

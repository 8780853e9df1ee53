// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/platform/database/schema"
	"github.com/taibuivan/yakura/pkg/pagination"
)

// # PostgreSQL Store

// store implements [Store] using pgx.
type store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed catalog store.
func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

// # Series Queries

/*
ListSeries returns one page of published series and the total count.

Description: Uses COUNT(*) OVER() to retrieve the total record count
without a second query, and a correlated subquery for the per-series
chapter count. Title search matches against the normalized title column,
which carries the index.

Parameters:
  - context: context.Context
  - filter: Filter (Search, source site, sorting)
  - page: pagination.Params

Returns:
  - []Series: One page of series
  - int: Total count matching filters
  - error: Database execution errors
*/
func (store *store) ListSeries(context context.Context, filter Filter, page pagination.Params) ([]Series, int, error) {

	// Query construction with optional filters
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s,
			(SELECT COUNT(*) FROM %s ch WHERE ch.%s = s.%s) AS chapter_count,
			COUNT(*) OVER() AS total_count
		FROM %s s
		WHERE 1 = 1
	`,
		schema.CatalogSeries.ID,
		schema.CatalogSeries.Title,
		schema.CatalogSeries.Slug,
		schema.CatalogSeries.Description,
		schema.CatalogSeries.CoverURL,
		schema.CatalogSeries.SourceSite,
		schema.CatalogSeries.CreatedAt,
		schema.CatalogSeries.UpdatedAt,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.SeriesID, schema.CatalogSeries.ID,
		schema.CatalogSeries.Table,
	))

	// Title search injection. The caller passes the query already
	// normalized so it compares against normalizedtitle directly.
	if filter.Query != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND s.%s LIKE '%%' || $%d || '%%'", schema.CatalogSeries.NormalizedTitle, argID))
		args = append(args, filter.Query)
		argID++
	}

	// Source site filter injection
	if filter.SourceSite != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND s.%s = $%d", schema.CatalogSeries.SourceSite, argID))
		args = append(args, filter.SourceSite)
		argID++
	}

	// Apply Sorting Logic
	orderBy := fmt.Sprintf("s.%s DESC", schema.CatalogSeries.UpdatedAt)
	switch filter.Sort {
	case "az":
		orderBy = fmt.Sprintf("s.%s ASC", schema.CatalogSeries.Title)
	case "za":
		orderBy = fmt.Sprintf("s.%s DESC", schema.CatalogSeries.Title)
	case "latest", "":
		orderBy = fmt.Sprintf("s.%s DESC", schema.CatalogSeries.UpdatedAt)
	}
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s, s.%s DESC", orderBy, schema.CatalogSeries.ID))

	// Pagination injection
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, page.Limit, page.Offset())

	// Query Execution
	rows, err := store.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list series: %w", err)
	}
	defer rows.Close()

	// Row iteration and entity hydration
	var seriesList []Series
	var totalCount int

	for rows.Next() {
		var series Series
		err := rows.Scan(
			&series.ID,
			&series.Title,
			&series.Slug,
			&series.Description,
			&series.CoverURL,
			&series.SourceSite,
			&series.CreatedAt,
			&series.UpdatedAt,
			&series.ChapterCount,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan series: %w", err)
		}
		seriesList = append(seriesList, series)
	}

	return seriesList, totalCount, nil
}

// SeriesByID retrieves a series by its primary key.
func (store *store) SeriesByID(context context.Context, id string) (*Series, error) {
	return store.seriesByColumn(context, schema.CatalogSeries.ID, id)
}

// SeriesBySlug retrieves a series by its unique slug.
func (store *store) SeriesBySlug(context context.Context, slug string) (*Series, error) {
	return store.seriesByColumn(context, schema.CatalogSeries.Slug, slug)
}

// seriesByColumn performs a single-row series lookup keyed on one column.
func (store *store) seriesByColumn(context context.Context, column, value string) (*Series, error) {

	// Retrieval query definition
	query := fmt.Sprintf(`
		SELECT s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s, s.%s,
			(SELECT COUNT(*) FROM %s ch WHERE ch.%s = s.%s) AS chapter_count
		FROM %s s
		WHERE s.%s = $1
	`,
		schema.CatalogSeries.ID,
		schema.CatalogSeries.Title,
		schema.CatalogSeries.Slug,
		schema.CatalogSeries.Description,
		schema.CatalogSeries.CoverURL,
		schema.CatalogSeries.SourceSite,
		schema.CatalogSeries.CreatedAt,
		schema.CatalogSeries.UpdatedAt,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.SeriesID, schema.CatalogSeries.ID,
		schema.CatalogSeries.Table,
		column,
	)

	// Row retrieval and entity hydration
	var series Series
	err := store.pool.QueryRow(context, query, value).Scan(
		&series.ID,
		&series.Title,
		&series.Slug,
		&series.Description,
		&series.CoverURL,
		&series.SourceSite,
		&series.CreatedAt,
		&series.UpdatedAt,
		&series.ChapterCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("series")
		}
		return nil, fmt.Errorf("postgres: failed to find series: %w", err)
	}

	return &series, nil
}

// # Chapter Queries

/*
ListChapters returns one page of a series' chapters with their translations.

Description: Translations are aggregated into a JSON array per chapter via
json_agg in a correlated subquery, avoiding an N+1 round-trip. Chapters
order by chapter number ascending so readers see the natural sequence.

Parameters:
  - context: context.Context
  - seriesID: string (UUID)
  - page: pagination.Params

Returns:
  - []Chapter: One page of hydrated chapters
  - int: Total chapters in the series
  - error: Database execution errors
*/
func (store *store) ListChapters(context context.Context, seriesID string, page pagination.Params) ([]Chapter, int, error) {

	// Chapter query with JSON translation aggregation
	query := fmt.Sprintf(`
		SELECT ch.%s, ch.%s, ch.%s, ch.%s, ch.%s, ch.%s, ch.%s,
			COUNT(*) OVER() AS total_count,
			COALESCE((
				SELECT json_agg(json_build_object(
					'id', t.%s,
					'source_lang', t.%s,
					'target_lang', t.%s,
					'backend', t.%s,
					'storage_path', t.%s,
					'page_count', t.%s,
					'published_at', t.%s
				) ORDER BY t.%s DESC)
				FROM %s t
				WHERE t.%s = ch.%s
			), '[]') AS translations
		FROM %s ch
		WHERE ch.%s = $1
		ORDER BY ch.%s ASC
		LIMIT $2 OFFSET $3
	`,
		schema.CatalogChapter.ID,
		schema.CatalogChapter.SeriesID,
		schema.CatalogChapter.ChapterNumber,
		schema.CatalogChapter.Title,
		schema.CatalogChapter.PageCount,
		schema.CatalogChapter.SourceURL,
		schema.CatalogChapter.CreatedAt,
		schema.CatalogTranslation.ID,
		schema.CatalogTranslation.SourceLang,
		schema.CatalogTranslation.TargetLang,
		schema.CatalogTranslation.Backend,
		schema.CatalogTranslation.StoragePath,
		schema.CatalogTranslation.PageCount,
		schema.CatalogTranslation.PublishedAt,
		schema.CatalogTranslation.PublishedAt,
		schema.CatalogTranslation.Table,
		schema.CatalogTranslation.ChapterID, schema.CatalogChapter.ID,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.SeriesID,
		schema.CatalogChapter.ChapterNumber,
	)

	// Query Execution
	rows, err := store.pool.Query(context, query, seriesID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list chapters: %w", err)
	}
	defer rows.Close()

	// Row iteration and entity hydration
	var chapters []Chapter
	var totalCount int

	for rows.Next() {
		var chapter Chapter
		var translationsJSON []byte
		err := rows.Scan(
			&chapter.ID,
			&chapter.SeriesID,
			&chapter.ChapterNumber,
			&chapter.Title,
			&chapter.PageCount,
			&chapter.SourceURL,
			&chapter.CreatedAt,
			&totalCount,
			&translationsJSON,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan chapter: %w", err)
		}

		// Unmarshal aggregated translations
		if err := json.Unmarshal(translationsJSON, &chapter.Translations); err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to unmarshal translations: %w", err)
		}
		chapters = append(chapters, chapter)
	}

	return chapters, totalCount, nil
}

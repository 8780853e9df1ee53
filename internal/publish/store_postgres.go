// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package publish

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yakura/internal/platform/database/schema"
	"github.com/taibuivan/yakura/pkg/uuid"
)

// # PostgreSQL Repository

// store implements the [Store] interface using pgx.
type store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed catalog store.
func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

/*
Apply commits one publication to the catalog atomically.

Description: Runs the whole resolution inside a single transaction so
concurrent publishes of the same chapter cannot interleave partial rows.
Reads come first: the series is matched exactly on the normalized title
and then fuzzily against containment candidates, the chapter by series
and number, the translation by chapter and language pair. When the
translation row already exists and replace is off the transaction ends
without touching any row. Otherwise missing rows are inserted with
application generated UUIDv7 ids and, on replace, the translation row is
updated in place while the outcome captures the storage path it pointed
at before.

Parameters:
  - context: context.Context
  - publication: *Publication

Returns:
  - *Outcome: Resolved ids and conflict disposition
  - error: Storage failures, nothing partially applied
*/
func (store *store) Apply(context context.Context, publication *Publication) (*Outcome, error) {

	// Transaction scope for the whole resolve and write sequence
	transaction, err := store.pool.Begin(context)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to begin publish transaction: %w", err)
	}
	defer transaction.Rollback(context)

	outcome := &Outcome{}

	// Series resolution, exact normalized title first
	series, err := matchSeries(context, transaction, publication.NormalizedTitle)
	if err != nil {
		return nil, err
	}

	// Chapter and translation lookups only make sense under a matched series
	var chapterID string
	var translationID string
	var existingPath string

	if series != nil {
		outcome.SeriesID = series.id

		chapterID, err = findChapter(context, transaction, series.id, publication.ChapterNumber)
		if err != nil {
			return nil, err
		}
		outcome.ChapterID = chapterID

		if chapterID != "" {
			translationID, existingPath, err = findTranslation(context, transaction, chapterID, publication.SourceLang, publication.TargetLang)
			if err != nil {
				return nil, err
			}
			outcome.TranslationID = translationID
		}
	}

	// Conflict disposition, an existing translation without replace keeps every row untouched
	if translationID != "" && !publication.Replace {
		outcome.Skipped = true
		outcome.ExistingPath = existingPath

		if err := transaction.Commit(context); err != nil {
			return nil, fmt.Errorf("postgres: failed to commit publish transaction: %w", err)
		}

		return outcome, nil
	}

	// Series write, insert when unmatched or backfill an empty source site
	if series == nil {
		outcome.SeriesID = uuid.Must()
		outcome.SeriesCreated = true

		query := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5)
		`,
			schema.CatalogSeries.Table,
			schema.CatalogSeries.ID,
			schema.CatalogSeries.Title,
			schema.CatalogSeries.NormalizedTitle,
			schema.CatalogSeries.Slug,
			schema.CatalogSeries.SourceSite,
		)

		_, err = transaction.Exec(context, query,
			outcome.SeriesID,
			publication.SeriesTitle,
			publication.NormalizedTitle,
			publication.Slug,
			publication.SourceSite,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to create series: %w", err)
		}
	} else if series.sourceSite == "" && publication.SourceSite != "" {
		query := fmt.Sprintf(`
			UPDATE %s SET %s = $1, %s = NOW() WHERE %s = $2
		`,
			schema.CatalogSeries.Table,
			schema.CatalogSeries.SourceSite,
			schema.CatalogSeries.UpdatedAt,
			schema.CatalogSeries.ID,
		)

		if _, err = transaction.Exec(context, query, publication.SourceSite, series.id); err != nil {
			return nil, fmt.Errorf("postgres: failed to update series: %w", err)
		}
	}

	// Chapter write, insert when missing or refresh metadata on replace
	if chapterID == "" {
		chapterID = uuid.Must()
		outcome.ChapterID = chapterID
		outcome.ChapterCreated = true

		query := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			schema.CatalogChapter.Table,
			schema.CatalogChapter.ID,
			schema.CatalogChapter.SeriesID,
			schema.CatalogChapter.ChapterNumber,
			schema.CatalogChapter.Title,
			schema.CatalogChapter.PageCount,
			schema.CatalogChapter.SourceURL,
		)

		_, err = transaction.Exec(context, query,
			chapterID,
			outcome.SeriesID,
			publication.ChapterNumber,
			publication.ChapterTitle,
			publication.PageCount,
			publication.SourceURL,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to create chapter: %w", err)
		}
	} else if publication.Replace {
		query := fmt.Sprintf(`
			UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = NOW() WHERE %s = $4
		`,
			schema.CatalogChapter.Table,
			schema.CatalogChapter.Title,
			schema.CatalogChapter.PageCount,
			schema.CatalogChapter.SourceURL,
			schema.CatalogChapter.UpdatedAt,
			schema.CatalogChapter.ID,
		)

		_, err = transaction.Exec(context, query,
			publication.ChapterTitle,
			publication.PageCount,
			publication.SourceURL,
			chapterID,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to update chapter: %w", err)
		}
	}

	// Translation write, insert when missing or repoint in place on replace
	if translationID == "" {
		outcome.TranslationID = uuid.Must()

		query := fmt.Sprintf(`
			INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			schema.CatalogTranslation.Table,
			schema.CatalogTranslation.ID,
			schema.CatalogTranslation.ChapterID,
			schema.CatalogTranslation.SourceLang,
			schema.CatalogTranslation.TargetLang,
			schema.CatalogTranslation.Backend,
			schema.CatalogTranslation.StoragePath,
			schema.CatalogTranslation.PageCount,
		)

		_, err = transaction.Exec(context, query,
			outcome.TranslationID,
			chapterID,
			publication.SourceLang,
			publication.TargetLang,
			publication.Backend,
			publication.StoragePath,
			publication.PageCount,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to create translation: %w", err)
		}
	} else {
		outcome.ReplacedPath = existingPath

		query := fmt.Sprintf(`
			UPDATE %s SET %s = $1, %s = $2, %s = $3, %s = NOW(), %s = NOW() WHERE %s = $4
		`,
			schema.CatalogTranslation.Table,
			schema.CatalogTranslation.StoragePath,
			schema.CatalogTranslation.PageCount,
			schema.CatalogTranslation.Backend,
			schema.CatalogTranslation.PublishedAt,
			schema.CatalogTranslation.UpdatedAt,
			schema.CatalogTranslation.ID,
		)

		_, err = transaction.Exec(context, query,
			publication.StoragePath,
			publication.PageCount,
			publication.Backend,
			translationID,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to replace translation: %w", err)
		}
	}

	if err := transaction.Commit(context); err != nil {
		return nil, fmt.Errorf("postgres: failed to commit publish transaction: %w", err)
	}

	return outcome, nil
}

// # Transactional Lookups

// matchSeries resolves the catalog series for a normalized title, first by
// equality and then by the closest containment candidate. Returns nil when
// no series comes close enough.
func matchSeries(context context.Context, transaction pgx.Tx, normalizedTitle string) (*candidate, error) {

	// Exact normalized title match
	query := fmt.Sprintf(`
		SELECT %s, %s, %s FROM %s WHERE %s = $1
	`,
		schema.CatalogSeries.ID,
		schema.CatalogSeries.NormalizedTitle,
		schema.CatalogSeries.SourceSite,
		schema.CatalogSeries.Table,
		schema.CatalogSeries.NormalizedTitle,
	)

	var exact candidate
	err := transaction.QueryRow(context, query, normalizedTitle).Scan(&exact.id, &exact.normalizedTitle, &exact.sourceSite)
	if err == nil {
		return &exact, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("postgres: failed to match series: %w", err)
	}

	// Containment candidates in either direction, scored application side
	query = fmt.Sprintf(`
		SELECT %s, %s, %s FROM %s
		WHERE %s LIKE '%%' || $1 || '%%' OR $1 LIKE '%%' || %s || '%%'
	`,
		schema.CatalogSeries.ID,
		schema.CatalogSeries.NormalizedTitle,
		schema.CatalogSeries.SourceSite,
		schema.CatalogSeries.Table,
		schema.CatalogSeries.NormalizedTitle,
		schema.CatalogSeries.NormalizedTitle,
	)

	rows, err := transaction.Query(context, query, normalizedTitle)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to match series: %w", err)
	}
	defer rows.Close()

	var candidates []candidate
	for rows.Next() {
		var row candidate
		if err := rows.Scan(&row.id, &row.normalizedTitle, &row.sourceSite); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan series candidate: %w", err)
		}
		candidates = append(candidates, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to match series: %w", err)
	}

	return bestMatch(normalizedTitle, candidates), nil
}

// findChapter returns the chapter id for a series and number, or empty
// when the chapter is not catalogued yet.
func findChapter(context context.Context, transaction pgx.Tx, seriesID string, number int) (string, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE %s = $1 AND %s = $2
	`,
		schema.CatalogChapter.ID,
		schema.CatalogChapter.Table,
		schema.CatalogChapter.SeriesID,
		schema.CatalogChapter.ChapterNumber,
	)

	var chapterID string
	err := transaction.QueryRow(context, query, seriesID, number).Scan(&chapterID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("postgres: failed to load chapter: %w", err)
	}

	return chapterID, nil
}

// findTranslation returns the translation id and its storage path for a
// chapter and language pair, or empty values when none exists.
func findTranslation(context context.Context, transaction pgx.Tx, chapterID, sourceLang, targetLang string) (string, string, error) {
	query := fmt.Sprintf(`
		SELECT %s, %s FROM %s WHERE %s = $1 AND %s = $2 AND %s = $3
	`,
		schema.CatalogTranslation.ID,
		schema.CatalogTranslation.StoragePath,
		schema.CatalogTranslation.Table,
		schema.CatalogTranslation.ChapterID,
		schema.CatalogTranslation.SourceLang,
		schema.CatalogTranslation.TargetLang,
	)

	var translationID string
	var storagePath string
	err := transaction.QueryRow(context, query, chapterID, sourceLang, targetLang).Scan(&translationID, &storagePath)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("postgres: failed to load translation: %w", err)
	}

	return translationID, storagePath, nil
}

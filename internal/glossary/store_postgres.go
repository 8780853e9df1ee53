// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package glossary provides the PostgreSQL implementation for dictionary
persistence.

Entries are keyed per dictionary on the case-folded original term, so
lookups and upserts are case-insensitive by unique index rather than by
table scan. Usage accounting happens inside the upsert statement to keep
concurrent pipelines from losing increments.
*/
package glossary

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/platform/database/schema"
	"github.com/taibuivan/yakura/pkg/pagination"
	"github.com/taibuivan/yakura/pkg/uuid"
)

// # PostgreSQL Repository

// store implements the [Store] interface using pgx.
type store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed glossary store.
func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

// # Dictionary Operations

/*
GetOrCreateDictionary returns the dictionary for a series and language pair,
inserting it on first use.

Description: Uses INSERT ... ON CONFLICT DO NOTHING followed by a read so
two pipelines racing on the same series converge on one row.

Parameters:
  - context: context.Context
  - seriesID: string
  - sourceLang: string
  - targetLang: string

Returns:
  - *Dictionary: The canonical row
  - error: Storage failures
*/
func (store *store) GetOrCreateDictionary(context context.Context, seriesID, sourceLang, targetLang string) (*Dictionary, error) {

	insert := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (%s, %s, %s) DO NOTHING
	`,
		schema.GlossaryDictionary.Table,
		schema.GlossaryDictionary.ID,
		schema.GlossaryDictionary.SeriesID,
		schema.GlossaryDictionary.SourceLang,
		schema.GlossaryDictionary.TargetLang,
		schema.GlossaryDictionary.SeriesID,
		schema.GlossaryDictionary.SourceLang,
		schema.GlossaryDictionary.TargetLang,
	)

	if _, err := store.pool.Exec(context, insert, uuid.Must(), seriesID, sourceLang, targetLang); err != nil {
		return nil, fmt.Errorf("postgres: failed to ensure dictionary: %w", err)
	}

	return store.DictionaryBySeries(context, seriesID, sourceLang, targetLang)
}

/*
DictionaryBySeries returns the dictionary row for a series and language pair.

Parameters:
  - context: context.Context
  - seriesID: string
  - sourceLang: string
  - targetLang: string

Returns:
  - *Dictionary: The matching row
  - error: apperr.NotFound when absent
*/
func (store *store) DictionaryBySeries(context context.Context, seriesID, sourceLang, targetLang string) (*Dictionary, error) {

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s = $2 AND %s = $3
	`,
		schema.GlossaryDictionary.ID,
		schema.GlossaryDictionary.SeriesID,
		schema.GlossaryDictionary.SourceLang,
		schema.GlossaryDictionary.TargetLang,
		schema.GlossaryDictionary.CreatedAt,
		schema.GlossaryDictionary.UpdatedAt,
		schema.GlossaryDictionary.Table,
		schema.GlossaryDictionary.SeriesID,
		schema.GlossaryDictionary.SourceLang,
		schema.GlossaryDictionary.TargetLang,
	)

	var dictionary Dictionary
	err := store.pool.QueryRow(context, query, seriesID, sourceLang, targetLang).Scan(
		&dictionary.ID,
		&dictionary.SeriesID,
		&dictionary.SourceLang,
		&dictionary.TargetLang,
		&dictionary.CreatedAt,
		&dictionary.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("dictionary")
		}
		return nil, fmt.Errorf("postgres: failed to find dictionary: %w", err)
	}

	return &dictionary, nil
}

// # Entry Operations

/*
Lookup finds one entry by its original term, case-insensitively via the
folded column.

Parameters:
  - context: context.Context
  - dictionaryID: string
  - original: string (Any casing)

Returns:
  - *Entry: The matching entry
  - error: apperr.NotFound on miss
*/
func (store *store) Lookup(context context.Context, dictionaryID, original string) (*Entry, error) {

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND %s = LOWER($2)
	`,
		entryColumns(),
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.DictionaryID,
		schema.GlossaryEntry.OriginalFold,
	)

	entry, err := scanEntry(store.pool.QueryRow(context, query, dictionaryID, original))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("glossary entry")
		}
		return nil, fmt.Errorf("postgres: failed to lookup entry: %w", err)
	}

	return entry, nil
}

/*
Upsert inserts or refreshes an entry keyed by the case-folded original.

Description: On conflict the translation is overwritten, the usage count
incremented, and the last-used timestamp refreshed. The proper-noun mark is
overridden only when the incoming mark is explicit (not NounAuto), so a
human decision survives automatic re-seeding.

Parameters:
  - context: context.Context
  - dictionaryID: string
  - original: string
  - translation: string
  - mark: NounMark

Returns:
  - *Entry: The stored row after the write
  - error: Storage failures
*/
func (store *store) Upsert(context context.Context, dictionaryID, original, translation string, mark NounMark) (*Entry, error) {

	// The existing row is addressed as "entry", the unqualified table name.
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, LOWER($3), $4, $5, 1, now())
		ON CONFLICT (%s, %s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = entry.%s + 1,
			%s = now(),
			%s = CASE WHEN $5 <> 0 THEN EXCLUDED.%s ELSE entry.%s END
		RETURNING %s
	`,
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.ID,
		schema.GlossaryEntry.DictionaryID,
		schema.GlossaryEntry.Original,
		schema.GlossaryEntry.OriginalFold,
		schema.GlossaryEntry.Translation,
		schema.GlossaryEntry.IsProperNoun,
		schema.GlossaryEntry.UsageCount,
		schema.GlossaryEntry.LastUsedAt,
		schema.GlossaryEntry.DictionaryID,
		schema.GlossaryEntry.OriginalFold,
		schema.GlossaryEntry.Translation,
		schema.GlossaryEntry.Translation,
		schema.GlossaryEntry.UsageCount,
		schema.GlossaryEntry.UsageCount,
		schema.GlossaryEntry.LastUsedAt,
		schema.GlossaryEntry.IsProperNoun,
		schema.GlossaryEntry.IsProperNoun,
		schema.GlossaryEntry.IsProperNoun,
		entryColumns(),
	)

	entry, err := scanEntry(store.pool.QueryRow(context, query, uuid.Must(), dictionaryID, original, translation, int16(mark)))
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to upsert entry: %w", err)
	}

	return entry, nil
}

/*
ListEntries returns every entry of a dictionary ordered by the length of the
original term descending, the order Apply consumes them in.

Parameters:
  - context: context.Context
  - dictionaryID: string

Returns:
  - []Entry: Full dictionary snapshot
  - error: Storage failures
*/
func (store *store) ListEntries(context context.Context, dictionaryID string) ([]Entry, error) {

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1
		ORDER BY LENGTH(%s) DESC, %s ASC
	`,
		entryColumns(),
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.DictionaryID,
		schema.GlossaryEntry.Original,
		schema.GlossaryEntry.OriginalFold,
	)

	rows, err := store.pool.Query(context, query, dictionaryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list entries: %w", err)
	}
	defer rows.Close()

	return collectEntries(rows)
}

/*
ListEntriesPage returns one page of entries ordered by usage count
descending for the ingress listing.

Parameters:
  - context: context.Context
  - dictionaryID: string
  - page: pagination.Params

Returns:
  - []Entry: One page of entries
  - int: Total entry count
  - error: Storage failures
*/
func (store *store) ListEntriesPage(context context.Context, dictionaryID string, page pagination.Params) ([]Entry, int, error) {

	query := fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE %s = $1
		ORDER BY %s DESC, %s ASC
		LIMIT $2 OFFSET $3
	`,
		entryColumns(),
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.DictionaryID,
		schema.GlossaryEntry.UsageCount,
		schema.GlossaryEntry.OriginalFold,
	)

	rows, err := store.pool.Query(context, query, dictionaryID, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list entry page: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	var totalCount int
	for rows.Next() {
		var entry Entry
		var mark int16
		err := rows.Scan(
			&entry.ID,
			&entry.DictionaryID,
			&entry.Original,
			&entry.Translation,
			&mark,
			&entry.UsageCount,
			&entry.LastUsedAt,
			&entry.CreatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan entry: %w", err)
		}
		entry.ProperNoun = NounMark(mark)
		entries = append(entries, entry)
	}

	return entries, totalCount, nil
}

/*
CountEntries returns the number of entries in a dictionary.

Parameters:
  - context: context.Context
  - dictionaryID: string

Returns:
  - int: Entry count
  - error: Storage failures
*/
func (store *store) CountEntries(context context.Context, dictionaryID string) (int, error) {

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = $1`,
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.DictionaryID,
	)

	var count int
	if err := store.pool.QueryRow(context, query, dictionaryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("postgres: failed to count entries: %w", err)
	}

	return count, nil
}

/*
DeleteLeastUsed removes up to limit entries with usage below minUsage,
poorest first.

Description: The subquery orders candidates by (usage_count, last_used_at)
ascending so rarely and anciently used names leave first. Entries at or
above minUsage are never candidates regardless of capacity pressure.

Parameters:
  - context: context.Context
  - dictionaryID: string
  - minUsage: int (Protection threshold)
  - limit: int (Maximum rows to delete)

Returns:
  - int: Rows actually deleted
  - error: Storage failures
*/
func (store *store) DeleteLeastUsed(context context.Context, dictionaryID string, minUsage, limit int) (int, error) {

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s IN (
			SELECT %s FROM %s
			WHERE %s = $1 AND %s < $2
			ORDER BY %s ASC, %s ASC
			LIMIT $3
		)
	`,
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.ID,
		schema.GlossaryEntry.ID,
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.DictionaryID,
		schema.GlossaryEntry.UsageCount,
		schema.GlossaryEntry.UsageCount,
		schema.GlossaryEntry.LastUsedAt,
	)

	tag, err := store.pool.Exec(context, query, dictionaryID, minUsage, limit)
	if err != nil {
		return 0, fmt.Errorf("postgres: failed to delete least used entries: %w", err)
	}

	return int(tag.RowsAffected()), nil
}

/*
Stats aggregates counts and the most used entries for a dictionary.

Parameters:
  - context: context.Context
  - dictionaryID: string

Returns:
  - *Stats: Entry count, proper-noun count, top five entries
  - error: Storage failures
*/
func (store *store) Stats(context context.Context, dictionaryID string) (*Stats, error) {

	counts := fmt.Sprintf(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE %s = 1)
		FROM %s WHERE %s = $1
	`,
		schema.GlossaryEntry.IsProperNoun,
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.DictionaryID,
	)

	stats := Stats{DictionaryID: dictionaryID}
	if err := store.pool.QueryRow(context, counts, dictionaryID).Scan(&stats.EntryCount, &stats.ProperNouns); err != nil {
		return nil, fmt.Errorf("postgres: failed to aggregate stats: %w", err)
	}

	top := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1
		ORDER BY %s DESC, %s ASC
		LIMIT 5
	`,
		entryColumns(),
		schema.GlossaryEntry.Table,
		schema.GlossaryEntry.DictionaryID,
		schema.GlossaryEntry.UsageCount,
		schema.GlossaryEntry.OriginalFold,
	)

	rows, err := store.pool.Query(context, top, dictionaryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list top entries: %w", err)
	}
	defer rows.Close()

	mostUsed, err := collectEntries(rows)
	if err != nil {
		return nil, err
	}
	stats.MostUsed = mostUsed

	return &stats, nil
}

// # Row Mapping

// entryColumns returns the SELECT column list for entry hydration.
func entryColumns() string {
	return fmt.Sprintf("%s, %s, %s, %s, %s, %s, %s, %s",
		schema.GlossaryEntry.ID,
		schema.GlossaryEntry.DictionaryID,
		schema.GlossaryEntry.Original,
		schema.GlossaryEntry.Translation,
		schema.GlossaryEntry.IsProperNoun,
		schema.GlossaryEntry.UsageCount,
		schema.GlossaryEntry.LastUsedAt,
		schema.GlossaryEntry.CreatedAt,
	)
}

// scanEntry hydrates one entry from a single-row query.
func scanEntry(row pgx.Row) (*Entry, error) {
	var entry Entry
	var mark int16
	err := row.Scan(
		&entry.ID,
		&entry.DictionaryID,
		&entry.Original,
		&entry.Translation,
		&mark,
		&entry.UsageCount,
		&entry.LastUsedAt,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.ProperNoun = NounMark(mark)
	return &entry, nil
}

// collectEntries hydrates all rows of an entry query.
func collectEntries(rows pgx.Rows) ([]Entry, error) {
	var entries []Entry
	for rows.Next() {
		var entry Entry
		var mark int16
		err := rows.Scan(
			&entry.ID,
			&entry.DictionaryID,
			&entry.Original,
			&entry.Translation,
			&mark,
			&entry.UsageCount,
			&entry.LastUsedAt,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan entry: %w", err)
		}
		entry.ProperNoun = NounMark(mark)
		entries = append(entries, entry)
	}
	return entries, nil
}

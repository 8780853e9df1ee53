// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package job

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/platform/database/schema"
	"github.com/taibuivan/yakura/pkg/pagination"
	"github.com/taibuivan/yakura/pkg/slice"
)

// # PostgreSQL Repository

// store implements the [Store] interface using pgx.
type store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a PostgreSQL backed job store.
func NewStore(pool *pgxpool.Pool) Store {
	return &store{pool: pool}
}

/*
Create inserts a new run record in its initial state.

Description: An empty Status falls back to PENDING so callers only set it
when resuming an interrupted run.

Parameters:
  - context: context.Context
  - record: *Record

Returns:
  - error: Storage failures
*/
func (store *store) Create(context context.Context, record *Record) error {

	// Insert command definition
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		schema.PipelineJob.Table,
		schema.PipelineJob.ID,
		schema.PipelineJob.UserID,
		schema.PipelineJob.URL,
		schema.PipelineJob.SourceLang,
		schema.PipelineJob.TargetLang,
		schema.PipelineJob.Backend,
		schema.PipelineJob.Mode,
		schema.PipelineJob.Status,
		schema.PipelineJob.Progress,
	)

	// Initial state resolution
	status := record.Status
	if status == "" {
		status = StatusPending
	}

	// Execute record creation
	_, err := store.pool.Exec(context, query,
		record.TaskID,
		nullIfEmpty(record.UserID),
		record.URL,
		record.SourceLang,
		record.TargetLang,
		int16(record.Backend),
		record.Mode,
		string(status),
		record.Progress,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to create job: %w", err)
	}

	return nil
}

/*
UpdateStatus applies a status transition to one run.

Description: Builds the SET clause dynamically so progress ticks, error
messages, and result paths are only written when the caller supplied them.
The updated timestamp always refreshes.

Parameters:
  - context: context.Context
  - taskID: string
  - update: StatusUpdate

Returns:
  - error: apperr.NotFound when the run does not exist
*/
func (store *store) UpdateStatus(context context.Context, taskID string, update StatusUpdate) error {

	// Update command construction with optional fields
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(`
		UPDATE %s
		SET %s = $1, %s = NOW()
	`,
		schema.PipelineJob.Table,
		schema.PipelineJob.Status,
		schema.PipelineJob.UpdatedAt,
	))
	args = append(args, string(update.Status))
	argID++

	// Progress injection
	if update.Progress != nil {
		queryBuilder.WriteString(fmt.Sprintf(", %s = $%d", schema.PipelineJob.Progress, argID))
		args = append(args, *update.Progress)
		argID++
	}

	// Error message injection
	if update.Error != nil {
		queryBuilder.WriteString(fmt.Sprintf(", %s = $%d", schema.PipelineJob.Error, argID))
		args = append(args, *update.Error)
		argID++
	}

	// Result path injection
	if update.ResultPath != nil {
		queryBuilder.WriteString(fmt.Sprintf(", %s = $%d", schema.PipelineJob.ResultPath, argID))
		args = append(args, *update.ResultPath)
		argID++
	}

	queryBuilder.WriteString(fmt.Sprintf(" WHERE %s = $%d", schema.PipelineJob.ID, argID))
	args = append(args, taskID)

	// Execute record update
	result, err := store.pool.Exec(context, queryBuilder.String(), args...)
	if err != nil {
		return fmt.Errorf("postgres: failed to update job: %w", err)
	}

	// Verify affected rows
	if result.RowsAffected() == 0 {
		return apperr.NotFound("job")
	}

	return nil
}

/*
Get returns one run by its task ID.

Parameters:
  - context: context.Context
  - taskID: string

Returns:
  - *Record: The matching run
  - error: apperr.NotFound on miss
*/
func (store *store) Get(context context.Context, taskID string) (*Record, error) {

	// Retrieval query definition
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1
	`,
		strings.Join(schema.PipelineJob.Columns(), ", "),
		schema.PipelineJob.Table,
		schema.PipelineJob.ID,
	)

	// Row retrieval and entity hydration
	var record Record
	var userID *string
	err := store.pool.QueryRow(context, query, taskID).Scan(
		&record.TaskID,
		&userID,
		&record.URL,
		&record.SourceLang,
		&record.TargetLang,
		&record.Backend,
		&record.Mode,
		&record.Status,
		&record.Progress,
		&record.Error,
		&record.ResultPath,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("job")
		}
		return nil, fmt.Errorf("postgres: failed to find job: %w", err)
	}

	if userID != nil {
		record.UserID = *userID
	}

	return &record, nil
}

/*
List returns one page of runs, newest first.

Parameters:
  - context: context.Context
  - filter: Filter (Optional status and owner narrowing)
  - page: pagination.Params

Returns:
  - []Record: The page of runs
  - int: Total matching runs across all pages
  - error: Storage failures
*/
func (store *store) List(context context.Context, filter Filter, page pagination.Params) ([]Record, int, error) {

	// Query construction with optional filters
	var queryBuilder strings.Builder
	var args []any
	argID := 1

	queryBuilder.WriteString(fmt.Sprintf(`
		SELECT %s, COUNT(*) OVER() AS total_count
		FROM %s
		WHERE 1 = 1
	`,
		strings.Join(schema.PipelineJob.Columns(), ", "),
		schema.PipelineJob.Table,
	))

	// Status filter injection
	if len(filter.Statuses) > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = ANY($%d)", schema.PipelineJob.Status, argID))
		args = append(args, slice.Map(filter.Statuses, func(status Status) string { return string(status) }))
		argID++
	}

	// Owner filter injection
	if filter.UserID != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND %s = $%d", schema.PipelineJob.UserID, argID))
		args = append(args, filter.UserID)
		argID++
	}

	// Ordering and pagination limits
	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY %s DESC", schema.PipelineJob.CreatedAt))
	queryBuilder.WriteString(fmt.Sprintf(" LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, page.Limit, page.Offset())

	// Query execution
	rows, err := store.pool.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: failed to list jobs: %w", err)
	}
	defer rows.Close()

	// Row iteration and entity hydration
	var records []Record
	var totalCount int

	for rows.Next() {
		var record Record
		var userID *string
		err := rows.Scan(
			&record.TaskID,
			&userID,
			&record.URL,
			&record.SourceLang,
			&record.TargetLang,
			&record.Backend,
			&record.Mode,
			&record.Status,
			&record.Progress,
			&record.Error,
			&record.ResultPath,
			&record.CreatedAt,
			&record.UpdatedAt,
			&totalCount,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("postgres: failed to scan job: %w", err)
		}

		if userID != nil {
			record.UserID = *userID
		}
		records = append(records, record)
	}

	return records, totalCount, nil
}

// nullIfEmpty maps an optional string to a SQL NULL when unset.
func nullIfEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

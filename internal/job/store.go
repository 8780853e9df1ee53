// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package job

import (
	"context"

	"github.com/taibuivan/yakura/pkg/pagination"
)

// # Persistence Port

// Store is the persistence boundary for pipeline run records.
type Store interface {

	/*
		Create inserts a new run record in its initial state.

		Parameters:
		  - context: context.Context
		  - record: *Record (TaskID must be set; Status defaults to PENDING)

		Returns:
		  - error: Storage failures
	*/
	Create(context context.Context, record *Record) error

	/*
		UpdateStatus applies a status transition to one run. Only the
		fields set in the update are written; the updated timestamp
		always refreshes.

		Returns:
		  - error: apperr.NotFound when the run does not exist
	*/
	UpdateStatus(context context.Context, taskID string, update StatusUpdate) error

	/*
		Get returns one run by its task ID.

		Returns:
		  - *Record: The matching run
		  - error: apperr.NotFound on miss, storage failures otherwise
	*/
	Get(context context.Context, taskID string) (*Record, error)

	/*
		List returns one page of runs, newest first, optionally narrowed
		by status or owner.

		Returns:
		  - []Record: The page of runs
		  - int: Total matching runs across all pages
		  - error: Storage failures
	*/
	List(context context.Context, filter Filter, page pagination.Params) ([]Record, int, error)
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package job tracks translation pipeline runs so API clients can poll
// their progress. Every run owned by the HTTP surface gets one record;
// the pipeline moves it through PENDING, PROCESSING, and a terminal
// COMPLETED or FAILED while updating the progress percentage.
//
// # Architecture
//
// The package is a thin persistence layer: [Record] is the row, [Store]
// the port, and PostgreSQL the implementation. There is no service type
// because the pipeline itself owns the state machine. One-shot CLI runs
// pass a nil store and skip tracking entirely.
package job

import (
	"fmt"
	"time"

	"github.com/taibuivan/yakura/internal/translate"
)

// # Domain Types

// Status is the lifecycle state of a pipeline run.
type Status string

const (
	// StatusPending marks a run accepted but not yet picked up by a worker.
	StatusPending Status = "PENDING"
	// StatusProcessing marks a run currently inside the pipeline.
	StatusProcessing Status = "PROCESSING"
	// StatusCompleted marks a successful run with a cached result.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed marks a run that gave up; Error holds the reason.
	StatusFailed Status = "FAILED"
)

// ParseStatus validates a wire-level status string.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return Status(value), nil
	default:
		return "", fmt.Errorf("job: unknown status %q", value)
	}
}

// ParseStatuses validates a list of wire-level status strings. An empty
// list is valid and matches everything.
func ParseStatuses(values []string) ([]Status, error) {
	if len(values) == 0 {
		return nil, nil
	}

	statuses := make([]Status, 0, len(values))
	for _, value := range values {
		status, err := ParseStatus(value)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Terminal reports whether the run has finished, successfully or not.
func (status Status) Terminal() bool {
	return status == StatusCompleted || status == StatusFailed
}

// Record is one tracked pipeline run.
type Record struct {
	TaskID     string
	UserID     string
	URL        string
	SourceLang string
	TargetLang string
	Backend    translate.Backend
	Mode       string
	Status     Status
	Progress   int
	Error      string
	ResultPath string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// StatusUpdate carries the mutable fields of a status transition. Nil
// pointers leave the stored value untouched so progress ticks do not
// clobber an error set earlier, and vice versa.
type StatusUpdate struct {
	Status     Status
	Progress   *int
	Error      *string
	ResultPath *string
}

// Filter narrows List results. Empty fields match everything; multiple
// statuses OR together.
type Filter struct {
	Statuses []Status
	UserID   string
}

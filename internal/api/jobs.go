// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yakura/internal/batch"
	"github.com/taibuivan/yakura/internal/job"
	"github.com/taibuivan/yakura/internal/pipeline"
	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/platform/constants"
	requestutil "github.com/taibuivan/yakura/internal/platform/request"
	"github.com/taibuivan/yakura/internal/platform/respond"
	"github.com/taibuivan/yakura/internal/platform/validate"
	"github.com/taibuivan/yakura/internal/translate"
	"github.com/taibuivan/yakura/internal/worker"
	"github.com/taibuivan/yakura/pkg/pagination"
	"github.com/taibuivan/yakura/pkg/pointer"
	"github.com/taibuivan/yakura/pkg/query"
	"github.com/taibuivan/yakura/pkg/slice"
	"github.com/taibuivan/yakura/pkg/uuid"
)

// # Jobs Handler

// JobsHandler implements the HTTP layer for translation job submission
// and tracking. It accepts chapter and batch requests, records them in
// the job store, and hands the actual work to the shared worker pool.
type JobsHandler struct {
	jobs         job.Store
	runner       batch.ChapterRunner
	orchestrator *batch.Orchestrator
	pool         *worker.Pool
	logger       *slog.Logger
}

// NewJobsHandler constructs a [JobsHandler] with its dependencies.
func NewJobsHandler(jobs job.Store, runner batch.ChapterRunner, orchestrator *batch.Orchestrator, pool *worker.Pool, logger *slog.Logger) *JobsHandler {
	return &JobsHandler{
		jobs:         jobs,
		runner:       runner,
		orchestrator: orchestrator,
		pool:         pool,
		logger:       logger,
	}
}

// Routes returns a [chi.Router] with the single-chapter job endpoints.
func (handler *JobsHandler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.submitJob)
	router.Get("/", handler.listJobs)
	router.Get("/{taskID}", handler.getJob)

	return router
}

// BatchRoutes returns a [chi.Router] with the batch submission endpoint.
func (handler *JobsHandler) BatchRoutes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.submitBatch)

	return router
}

// # Request Payloads

// submitJobRequest defines the inbound JSON schema for a single chapter job.
type submitJobRequest struct {
	URL             string `json:"url"`
	SourceLang      string `json:"source_lang"`
	TargetLang      string `json:"target_lang"`
	Backend         int    `json:"backend"`
	Mode            string `json:"mode"`
	SeriesTitle     string `json:"series_title"`
	UserID          string `json:"user_id"`
	ReplaceExisting *bool  `json:"replace_existing"`
}

// submitBatchRequest defines the inbound JSON schema for a chapter range job.
type submitBatchRequest struct {
	SampleURL       string `json:"url"`
	Chapters        string `json:"chapters"`
	SourceLang      string `json:"source_lang"`
	TargetLang      string `json:"target_lang"`
	Backend         int    `json:"backend"`
	Mode            string `json:"mode"`
	SeriesTitle     string `json:"series_title"`
	UserID          string `json:"user_id"`
	ReplaceExisting *bool  `json:"replace_existing"`
}

// jobResponse is the outbound JSON schema for a tracked run.
type jobResponse struct {
	TaskID     string    `json:"task_id"`
	UserID     string    `json:"user_id,omitempty"`
	URL        string    `json:"url"`
	SourceLang string    `json:"source_lang,omitempty"`
	TargetLang string    `json:"target_lang"`
	Backend    int       `json:"backend"`
	Mode       string    `json:"mode,omitempty"`
	Status     string    `json:"status"`
	Progress   int       `json:"progress"`
	Error      string    `json:"error,omitempty"`
	ResultPath string    `json:"result_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toJobResponse(record *job.Record) jobResponse {
	return jobResponse{
		TaskID:     record.TaskID,
		UserID:     record.UserID,
		URL:        record.URL,
		SourceLang: record.SourceLang,
		TargetLang: record.TargetLang,
		Backend:    int(record.Backend),
		Mode:       record.Mode,
		Status:     string(record.Status),
		Progress:   record.Progress,
		Error:      record.Error,
		ResultPath: record.ResultPath,
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
}

// # Submission Endpoints

/*
POST /internal/v1/jobs.

Description: Accepts a single chapter for translation. The job is recorded
as PENDING and handed to the worker pool; clients poll GET /jobs/{taskID}
for progress.

Request (Body):
  - submitJobRequest: JSON object

Response:
  - 202: { task_id, status }: Job queued
  - 400: 400: ErrInvalidJSON/Validation: Invalid input data
  - 503: 503: ErrUnavailable: Worker queue full
*/
func (handler *JobsHandler) submitJob(writer http.ResponseWriter, request *http.Request) {
	// Strict JSON decoding
	var input submitJobRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Syntactic validation; the pipeline re-validates semantics on execution.
	if err := validateSubmission(input.URL, input.TargetLang, input.SourceLang, input.Backend, input.Mode); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Map DTO to pipeline request
	taskID := uuid.Must()
	chapterRequest := pipeline.ChapterRequest{
		URL:             input.URL,
		SourceLang:      input.SourceLang,
		TargetLang:      input.TargetLang,
		Backend:         translate.Backend(input.Backend),
		Mode:            input.Mode,
		SeriesTitle:     input.SeriesTitle,
		JobID:           taskID,
		UserID:          input.UserID,
		ReplaceExisting: replaceDefault(input.ReplaceExisting),
	}

	// Record the run before queueing so a poll right after the 202 finds it
	record := &job.Record{
		TaskID:     taskID,
		UserID:     input.UserID,
		URL:        input.URL,
		SourceLang: input.SourceLang,
		TargetLang: input.TargetLang,
		Backend:    translate.Backend(input.Backend),
		Mode:       input.Mode,
		Status:     job.StatusPending,
	}
	if err := handler.jobs.Create(request.Context(), record); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Queue the pipeline run
	runner := handler.runner
	handle := handler.pool.Submit("job-"+taskID, func(taskContext context.Context) (any, error) {
		return runner.Run(taskContext, chapterRequest)
	})
	if err := submitRejected(handle); err != nil {
		handler.failRejected(request.Context(), taskID, err)
		respond.Error(writer, request, apperr.ServiceUnavailable("Worker queue is full, retry later"))
		return
	}

	// Structured API Response
	respond.Accepted(writer, map[string]string{
		"task_id":             taskID,
		constants.FieldStatus: string(job.StatusPending),
	})
}

/*
POST /internal/v1/batches.

Description: Accepts a chapter range for translation. The range expression
is expanded against the sample URL and every chapter runs as its own
pipeline task; the batch is tracked under a single task id.

Request (Body):
  - submitBatchRequest: JSON object (chapters e.g. "1-10,12")

Response:
  - 202: { task_id, status, chapters }: Batch queued
  - 400: 400: ErrInvalidJSON/Validation: Invalid input data
  - 503: 503: ErrUnavailable: Worker queue full
*/
func (handler *JobsHandler) submitBatch(writer http.ResponseWriter, request *http.Request) {
	// Strict JSON decoding
	var input submitBatchRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Syntactic validation
	if err := validateSubmission(input.SampleURL, input.TargetLang, input.SourceLang, input.Backend, input.Mode); err != nil {
		respond.Error(writer, request, err)
		return
	}
	numbers, err := batch.ParseRange(input.Chapters)
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError(err.Error()))
		return
	}

	// Map DTO to batch request
	taskID := uuid.Must()
	batchRequest := batch.Request{
		Chapters:        input.Chapters,
		SampleURL:       input.SampleURL,
		SourceLang:      input.SourceLang,
		TargetLang:      input.TargetLang,
		Backend:         translate.Backend(input.Backend),
		Mode:            input.Mode,
		SeriesTitle:     input.SeriesTitle,
		JobID:           taskID,
		UserID:          input.UserID,
		ReplaceExisting: replaceDefault(input.ReplaceExisting),
	}

	// Record the batch before queueing
	record := &job.Record{
		TaskID:     taskID,
		UserID:     input.UserID,
		URL:        input.SampleURL,
		SourceLang: input.SourceLang,
		TargetLang: input.TargetLang,
		Backend:    translate.Backend(input.Backend),
		Mode:       input.Mode,
		Status:     job.StatusPending,
	}
	if err := handler.jobs.Create(request.Context(), record); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Queue the orchestrator run
	orchestrator := handler.orchestrator
	handle := handler.pool.Submit("batch-"+taskID, func(taskContext context.Context) (any, error) {
		return orchestrator.Run(taskContext, batchRequest)
	})
	if err := submitRejected(handle); err != nil {
		handler.failRejected(request.Context(), taskID, err)
		respond.Error(writer, request, apperr.ServiceUnavailable("Worker queue is full, retry later"))
		return
	}

	// Structured API Response
	respond.Accepted(writer, map[string]any{
		"task_id":             taskID,
		constants.FieldStatus: string(job.StatusPending),
		"chapters":            len(numbers),
	})
}

// # Tracking Endpoints

/*
GET /internal/v1/jobs/{taskID}.

Description: Retrieves the current state of a tracked run, including
progress percentage and the result path once completed.

Request:
  - taskID: string (UUID)

Response:
  - 200: jobResponse: Success
  - 404: 404: ErrNotFound: Unknown task id
*/
func (handler *JobsHandler) getJob(writer http.ResponseWriter, request *http.Request) {
	// Extract task ID from URL
	taskID := requestutil.ID(request, "taskID")

	// Domain Logic Execution
	record, err := handler.jobs.Get(request.Context(), taskID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.OK(writer, toJobResponse(record))
}

/*
GET /internal/v1/jobs.

Description: Retrieves a paginated list of tracked runs, newest first.

Request:
  - status: string (Comma-separated list of PENDING, PROCESSING, COMPLETED, FAILED)
  - user_id: string
  - limit: int
  - page: int

Response:
  - 200: []jobResponse: Paginated list
  - 400: 400: Validation: Unknown status value
*/
func (handler *JobsHandler) listJobs(writer http.ResponseWriter, request *http.Request) {
	// Pagination extraction using pkg/pagination
	paginationParams := pagination.FromRequest(request)

	// Query filter assembly
	queryParams := request.URL.Query()
	statuses, err := job.ParseStatuses(query.StringSlice(queryParams.Get("status")))
	if err != nil {
		respond.Error(writer, request, apperr.ValidationError(err.Error()))
		return
	}
	filter := job.Filter{Statuses: statuses, UserID: queryParams.Get("user_id")}

	// Domain Logic Execution
	records, total, err := handler.jobs.List(request.Context(), filter, paginationParams)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	items := slice.Map(records, func(record job.Record) jobResponse {
		return toJobResponse(&record)
	})
	respond.Paginated(writer, items, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

// # Helpers

/*
validateSubmission checks the shared syntactic fields of job and batch
submissions.

Parameters:
  - chapterURL: The chapter or sample URL.
  - targetLang: Required ISO 639-1 target language.
  - sourceLang: Optional ISO 639-1 source language, empty selects detection.
  - backend: Translation backend, 0 selects the default.
  - mode: Processing mode, empty selects the default.

Returns:
  - error: An [apperr.AppError] with field details, or nil.
*/
func validateSubmission(chapterURL, targetLang, sourceLang string, backend int, mode string) error {
	validator := &validate.Validator{}

	validator.Required("url", chapterURL)
	if chapterURL != "" {
		validator.URL("url", chapterURL)
	}
	validator.Required("target_lang", targetLang)
	if targetLang != "" {
		validator.Lang("target_lang", targetLang)
	}
	if sourceLang != "" {
		validator.Lang("source_lang", sourceLang)
	}
	validator.Custom("backend", backend < 0 || backend > 2, "Must be 1 (LLM) or 2 (MT)")
	if mode != "" {
		validator.OneOf("mode", mode, pipeline.ModeClean, pipeline.ModeOverlay)
	}

	return validator.Err()
}

// replaceDefault resolves the replace_existing flag. Republishing a chapter
// refreshes the catalog unless the client opts out explicitly.
func replaceDefault(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

// submitRejected reports whether the pool refused the task outright. A
// rejected handle resolves immediately, before any worker touches it.
func submitRejected(handle *worker.Handle) error {
	result, done := handle.Poll()
	if !done {
		return nil
	}
	if errors.Is(result.Err, worker.ErrQueueFull) || errors.Is(result.Err, worker.ErrPoolClosed) {
		return result.Err
	}
	return nil
}

// failRejected marks a run FAILED when the pool never accepted it.
func (handler *JobsHandler) failRejected(context context.Context, taskID string, cause error) {
	update := job.StatusUpdate{
		Status: job.StatusFailed,
		Error:  pointer.To(cause.Error()),
	}
	if err := handler.jobs.UpdateStatus(context, taskID, update); err != nil {
		handler.logger.Warn("job_reject_update_failed",
			slog.String("task_id", taskID),
			slog.String("error", err.Error()))
	}
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	googleuuid "github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/api"
	"github.com/taibuivan/yakura/internal/batch"
	"github.com/taibuivan/yakura/internal/job"
	"github.com/taibuivan/yakura/internal/notify"
	"github.com/taibuivan/yakura/internal/pipeline"
	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/worker"
	"github.com/taibuivan/yakura/pkg/pagination"
)

// # Test Doubles

// fakeJobs is an in-memory [job.Store] for handler tests.
type fakeJobs struct {
	mu      sync.Mutex
	order   []string
	records map[string]*job.Record
	filters []job.Filter
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{records: make(map[string]*job.Record)}
}

func (f *fakeJobs) Create(_ context.Context, record *job.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := *record
	if clone.Status == "" {
		clone.Status = job.StatusPending
	}
	f.order = append(f.order, clone.TaskID)
	f.records[clone.TaskID] = &clone
	return nil
}

func (f *fakeJobs) UpdateStatus(_ context.Context, taskID string, update job.StatusUpdate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[taskID]
	if !ok {
		return apperr.NotFound("job")
	}
	record.Status = update.Status
	if update.Progress != nil {
		record.Progress = *update.Progress
	}
	if update.Error != nil {
		record.Error = *update.Error
	}
	if update.ResultPath != nil {
		record.ResultPath = *update.ResultPath
	}
	return nil
}

func (f *fakeJobs) Get(_ context.Context, taskID string) (*job.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[taskID]
	if !ok {
		return nil, apperr.NotFound("job")
	}
	clone := *record
	return &clone, nil
}

func (f *fakeJobs) List(_ context.Context, filter job.Filter, _ pagination.Params) ([]job.Record, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	var records []job.Record
	for index := len(f.order) - 1; index >= 0; index-- {
		record := f.records[f.order[index]]
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, record.Status) {
			continue
		}
		if filter.UserID != "" && record.UserID != filter.UserID {
			continue
		}
		records = append(records, *record)
	}
	return records, len(records), nil
}

func (f *fakeJobs) get(t *testing.T, taskID string) job.Record {
	t.Helper()
	record, err := f.Get(context.Background(), taskID)
	require.NoError(t, err)
	return *record
}

func (f *fakeJobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.order)
}

// stubRunner is a [batch.ChapterRunner] that records requests.
type stubRunner struct {
	mu       sync.Mutex
	requests []pipeline.ChapterRequest
}

func (s *stubRunner) Run(_ context.Context, request pipeline.ChapterRequest) (*pipeline.ChapterResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, request)
	return &pipeline.ChapterResult{}, nil
}

func (s *stubRunner) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubRunner) request(t *testing.T, index int) pipeline.ChapterRequest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	require.Greater(t, len(s.requests), index)
	return s.requests[index]
}

// # Fixtures

type jobsFixture struct {
	handler *api.JobsHandler
	jobs    *fakeJobs
	runner  *stubRunner
	pool    *worker.Pool
}

func newJobsFixture(t *testing.T, poolConfig worker.Config) *jobsFixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	jobs := newFakeJobs()
	runner := &stubRunner{}
	pool := worker.NewPool(poolConfig, logger)
	t.Cleanup(func() {
		shutdownContext, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = pool.Shutdown(shutdownContext)
	})

	orchestrator := batch.NewOrchestrator(batch.Deps{
		Runner:   runner,
		Pool:     pool,
		Jobs:     jobs,
		Notifier: notify.NoopNotifier{},
	}, batch.Config{
		PollInterval:   2 * time.Millisecond,
		LogInterval:    time.Hour,
		ChapterTimeout: 2 * time.Second,
	}, logger)

	return &jobsFixture{
		handler: api.NewJobsHandler(jobs, runner, orchestrator, pool, logger),
		jobs:    jobs,
		runner:  runner,
		pool:    pool,
	}
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	request := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)
	return recorder
}

type acceptedBody struct {
	Data struct {
		TaskID   string `json:"task_id"`
		Status   string `json:"status"`
		Chapters int    `json:"chapters"`
	} `json:"data"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func decodeJSON[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&value))
	return value
}

// # Submission Tests

/*
TestSubmitJob verifies that a chapter submission answers 202 with a task
id, records the run as PENDING, and hands the pipeline request to the
worker pool with the conflict policy defaulting to replace.
*/
func TestSubmitJob(t *testing.T) {
	fixture := newJobsFixture(t, worker.Config{Workers: 2, QueueSize: 16})
	router := fixture.handler.Routes()

	recorder := postJSON(t, router, "/", `{
		"url": "https://asurascans.com/solo-leveling-chapter-7",
		"target_lang": "tr",
		"series_title": "Solo Leveling",
		"user_id": "user-1"
	}`)

	require.Equal(t, http.StatusAccepted, recorder.Code)
	body := decodeJSON[acceptedBody](t, recorder)
	require.NoError(t, googleuuid.Validate(body.Data.TaskID))
	assert.Equal(t, string(job.StatusPending), body.Data.Status)

	record := fixture.jobs.get(t, body.Data.TaskID)
	assert.Equal(t, job.StatusPending, record.Status)
	assert.Equal(t, "https://asurascans.com/solo-leveling-chapter-7", record.URL)
	assert.Equal(t, "user-1", record.UserID)

	require.Eventually(t, func() bool { return fixture.runner.count() == 1 }, time.Second, 5*time.Millisecond)
	request := fixture.runner.request(t, 0)
	assert.Equal(t, body.Data.TaskID, request.JobID)
	assert.Equal(t, "tr", request.TargetLang)
	assert.Equal(t, "Solo Leveling", request.SeriesTitle)
	assert.True(t, request.ReplaceExisting, "replace_existing should default to true")
}

/*
TestSubmitJobReplaceOptOut verifies an explicit replace_existing=false
reaches the pipeline request unmodified.
*/
func TestSubmitJobReplaceOptOut(t *testing.T) {
	fixture := newJobsFixture(t, worker.Config{Workers: 2, QueueSize: 16})
	router := fixture.handler.Routes()

	recorder := postJSON(t, router, "/", `{
		"url": "https://asurascans.com/solo-leveling-chapter-7",
		"target_lang": "tr",
		"replace_existing": false
	}`)

	require.Equal(t, http.StatusAccepted, recorder.Code)
	require.Eventually(t, func() bool { return fixture.runner.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.False(t, fixture.runner.request(t, 0).ReplaceExisting)
}

/*
TestSubmitJobValidation verifies syntactically broken submissions are
rejected with 400 before any record or task is created.
*/
func TestSubmitJobValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing_url", body: `{"target_lang": "tr"}`},
		{name: "relative_url", body: `{"url": "solo-leveling", "target_lang": "tr"}`},
		{name: "missing_target_lang", body: `{"url": "https://asurascans.com/solo-leveling-chapter-7"}`},
		{name: "malformed_target_lang", body: `{"url": "https://asurascans.com/solo-leveling-chapter-7", "target_lang": "turkish"}`},
		{name: "unknown_backend", body: `{"url": "https://asurascans.com/solo-leveling-chapter-7", "target_lang": "tr", "backend": 7}`},
		{name: "unknown_mode", body: `{"url": "https://asurascans.com/solo-leveling-chapter-7", "target_lang": "tr", "mode": "fancy"}`},
		{name: "malformed_json", body: `{"url": `},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fixture := newJobsFixture(t, worker.Config{Workers: 2, QueueSize: 16})
			recorder := postJSON(t, fixture.handler.Routes(), "/", test.body)

			require.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, apperr.CodeValidation, decodeJSON[errorBody](t, recorder).Code)
			assert.Zero(t, fixture.jobs.count())
			assert.Zero(t, fixture.runner.count())
		})
	}
}

/*
TestSubmitJobQueueFull verifies that a submission hitting a saturated
worker pool answers 503 and marks the freshly created record FAILED
instead of leaving it PENDING forever.
*/
func TestSubmitJobQueueFull(t *testing.T) {
	fixture := newJobsFixture(t, worker.Config{Workers: 2, QueueSize: 1})

	// Occupy both workers, then the single queue slot.
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	blocker := func(context.Context) (any, error) {
		started <- struct{}{}
		<-release
		return nil, nil
	}
	defer close(release)

	fixture.pool.Submit("blocker-1", blocker)
	fixture.pool.Submit("blocker-2", blocker)
	<-started
	<-started
	fixture.pool.Submit("queued", func(context.Context) (any, error) { return nil, nil })

	recorder := postJSON(t, fixture.handler.Routes(), "/", `{
		"url": "https://asurascans.com/solo-leveling-chapter-7",
		"target_lang": "tr"
	}`)

	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	assert.Equal(t, apperr.CodeUnavailable, decodeJSON[errorBody](t, recorder).Code)

	require.Equal(t, 1, fixture.jobs.count())
	fixture.jobs.mu.Lock()
	taskID := fixture.jobs.order[0]
	fixture.jobs.mu.Unlock()
	record := fixture.jobs.get(t, taskID)
	assert.Equal(t, job.StatusFailed, record.Status)
	assert.Contains(t, record.Error, "queue full")
}

/*
TestSubmitBatch verifies a chapter range submission answers 202 with the
expanded chapter count and fans every chapter out to the pipeline.
*/
func TestSubmitBatch(t *testing.T) {
	fixture := newJobsFixture(t, worker.Config{Workers: 4, QueueSize: 32})
	router := fixture.handler.BatchRoutes()

	recorder := postJSON(t, router, "/", `{
		"url": "https://asurascans.com/solo-leveling-chapter-2",
		"chapters": "1-3",
		"target_lang": "tr",
		"series_title": "Solo Leveling"
	}`)

	require.Equal(t, http.StatusAccepted, recorder.Code)
	body := decodeJSON[acceptedBody](t, recorder)
	require.NoError(t, googleuuid.Validate(body.Data.TaskID))
	assert.Equal(t, string(job.StatusPending), body.Data.Status)
	assert.Equal(t, 3, body.Data.Chapters)

	// The orchestrator runs every chapter and completes the batch record.
	require.Eventually(t, func() bool { return fixture.runner.count() == 3 }, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return fixture.jobs.get(t, body.Data.TaskID).Status == job.StatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	urls := make(map[string]bool)
	for index := 0; index < 3; index++ {
		urls[fixture.runner.request(t, index).URL] = true
	}
	assert.True(t, urls["https://asurascans.com/solo-leveling-chapter-1"])
	assert.True(t, urls["https://asurascans.com/solo-leveling-chapter-2"])
	assert.True(t, urls["https://asurascans.com/solo-leveling-chapter-3"])
}

/*
TestSubmitBatchValidation verifies malformed ranges and missing fields
are rejected before any work is queued.
*/
func TestSubmitBatchValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing_chapters", body: `{"url": "https://asurascans.com/solo-leveling-chapter-2", "target_lang": "tr"}`},
		{name: "malformed_range", body: `{"url": "https://asurascans.com/solo-leveling-chapter-2", "chapters": "three", "target_lang": "tr"}`},
		{name: "missing_url", body: `{"chapters": "1-3", "target_lang": "tr"}`},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			fixture := newJobsFixture(t, worker.Config{Workers: 2, QueueSize: 16})
			recorder := postJSON(t, fixture.handler.BatchRoutes(), "/", test.body)

			require.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, apperr.CodeValidation, decodeJSON[errorBody](t, recorder).Code)
			assert.Zero(t, fixture.jobs.count())
		})
	}
}

// # Tracking Tests

/*
TestGetJob verifies single-run retrieval returns the full record and an
unknown task id maps to 404.
*/
func TestGetJob(t *testing.T) {
	fixture := newJobsFixture(t, worker.Config{Workers: 2, QueueSize: 16})
	router := fixture.handler.Routes()

	record := &job.Record{
		TaskID:     "11111111-2222-7333-8444-555555555555",
		URL:        "https://asurascans.com/solo-leveling-chapter-7",
		TargetLang: "tr",
		Status:     job.StatusCompleted,
		Progress:   100,
		ResultPath: "/results/solo-leveling/007",
	}
	require.NoError(t, fixture.jobs.Create(context.Background(), record))

	t.Run("found", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/"+record.TaskID, nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeJSON[struct {
			Data struct {
				TaskID     string `json:"task_id"`
				Status     string `json:"status"`
				Progress   int    `json:"progress"`
				ResultPath string `json:"result_path"`
			} `json:"data"`
		}](t, recorder)
		assert.Equal(t, record.TaskID, body.Data.TaskID)
		assert.Equal(t, "COMPLETED", body.Data.Status)
		assert.Equal(t, 100, body.Data.Progress)
		assert.Equal(t, "/results/solo-leveling/007", body.Data.ResultPath)
	})

	t.Run("unknown_task", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/99999999-0000-7000-8000-000000000000", nil))

		require.Equal(t, http.StatusNotFound, recorder.Code)
		assert.Equal(t, apperr.CodeNotFound, decodeJSON[errorBody](t, recorder).Code)
	})
}

/*
TestListJobs verifies the paginated listing passes filters through to the
store and rejects unknown status values.
*/
func TestListJobs(t *testing.T) {
	fixture := newJobsFixture(t, worker.Config{Workers: 2, QueueSize: 16})
	router := fixture.handler.Routes()

	for index := 0; index < 3; index++ {
		require.NoError(t, fixture.jobs.Create(context.Background(), &job.Record{
			TaskID:     fmt.Sprintf("task-%d", index),
			URL:        fmt.Sprintf("https://asurascans.com/solo-leveling-chapter-%d", index+1),
			TargetLang: "tr",
			Status:     job.StatusPending,
		}))
	}

	t.Run("lists_newest_first", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/?status=PENDING", nil))

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decodeJSON[struct {
			Data []struct {
				TaskID string `json:"task_id"`
			} `json:"data"`
			Meta struct {
				Total int `json:"total"`
			} `json:"meta"`
		}](t, recorder)
		require.Len(t, body.Data, 3)
		assert.Equal(t, "task-2", body.Data[0].TaskID)
		assert.Equal(t, 3, body.Meta.Total)

		fixture.jobs.mu.Lock()
		defer fixture.jobs.mu.Unlock()
		require.Len(t, fixture.jobs.filters, 1)
		assert.Equal(t, []job.Status{job.StatusPending}, fixture.jobs.filters[0].Statuses)
	})

	t.Run("multiple_statuses_or_together", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/?status=PENDING,PROCESSING", nil))

		require.Equal(t, http.StatusOK, recorder.Code)

		fixture.jobs.mu.Lock()
		defer fixture.jobs.mu.Unlock()
		last := fixture.jobs.filters[len(fixture.jobs.filters)-1]
		assert.Equal(t, []job.Status{job.StatusPending, job.StatusProcessing}, last.Statuses)
	})

	t.Run("unknown_status_rejected", func(t *testing.T) {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/?status=RUNNING", nil))

		require.Equal(t, http.StatusBadRequest, recorder.Code)
		assert.Equal(t, apperr.CodeValidation, decodeJSON[errorBody](t, recorder).Code)
	})
}

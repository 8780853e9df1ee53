// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package batch fans a chapter range out over the worker pool.

A batch request names a sample chapter URL and a range expression like
"1-5,10-15". The orchestrator expands the range, derives one URL per
chapter by substituting the numeric segment of the sample, and submits
one pipeline task per chapter. Chapter tasks run on the same pool as the
batch task itself, so the orchestrator never blocks on a task handle: it
polls at a bounded interval and enforces a hard per-chapter timeout. One
slow or stuck chapter fails alone; the batch always terminates.
*/
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/yakura/internal/blob"
	"github.com/taibuivan/yakura/internal/job"
	"github.com/taibuivan/yakura/internal/notify"
	"github.com/taibuivan/yakura/internal/pipeline"
	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/translate"
	"github.com/taibuivan/yakura/internal/worker"
	"github.com/taibuivan/yakura/pkg/pointer"
)

// # Configuration

const (
	// DefaultPollInterval bounds how often pending chapter handles are
	// checked.
	DefaultPollInterval = time.Second
	// DefaultLogInterval spaces the in-flight progress log lines.
	DefaultLogInterval = 60 * time.Second
	// DefaultChapterTimeout fails one chapter without failing the batch.
	DefaultChapterTimeout = 20 * time.Minute
)

// Config tunes the orchestrator's polling. Zero values select defaults.
type Config struct {
	PollInterval   time.Duration
	LogInterval    time.Duration
	ChapterTimeout time.Duration
}

func (config Config) withDefaults() Config {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.LogInterval <= 0 {
		config.LogInterval = DefaultLogInterval
	}
	if config.ChapterTimeout <= 0 {
		config.ChapterTimeout = DefaultChapterTimeout
	}
	return config
}

// # Requests

// ChapterRunner builds one chapter. Satisfied by pipeline.Pipeline.
type ChapterRunner interface {
	Run(context context.Context, request pipeline.ChapterRequest) (*pipeline.ChapterResult, error)
}

// Request describes one batch invocation. JobID and UserID tie the batch
// to a job record and a notification target; both may be empty.
type Request struct {
	Chapters        string
	SampleURL       string
	SourceLang      string
	TargetLang      string
	Backend         translate.Backend
	Mode            string
	SeriesTitle     string
	JobID           string
	UserID          string
	ReplaceExisting bool
}

// Chapter status values as they appear in the batch result.
const (
	ChapterCompleted = "completed"
	ChapterFailed    = "failed"
)

// ChapterStatus is the terminal state of one chapter in a batch. Path is
// only set when the orchestrator's own sink persisted the chapter.
type ChapterStatus struct {
	URL    string `json:"url"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Result aggregates a finished batch, keyed by chapter number. Chapters
// finish in any order; the map preserves which number produced what.
type Result struct {
	Total     int                   `json:"total"`
	Completed int                   `json:"completed"`
	Failed    int                   `json:"failed"`
	Results   map[int]ChapterStatus `json:"results"`
}

// # Orchestrator

// Deps wires the orchestrator. Runner and Pool are required; Jobs,
// Notifier, and Sink may be nil.
type Deps struct {
	Runner   ChapterRunner
	Pool     *worker.Pool
	Jobs     job.Store
	Notifier notify.Notifier
	Sink     *blob.FileManager
}

// Orchestrator fans a chapter range out as pipeline tasks and collects
// their outcomes.
type Orchestrator struct {
	deps   Deps
	config Config
	logger *slog.Logger
}

// NewOrchestrator constructs an [Orchestrator]. The sink only applies
// when a request names a series; it serves deployments that persist
// chapters to disk without a catalog publisher.
func NewOrchestrator(deps Deps, config Config, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{deps: deps, config: config.withDefaults(), logger: logger}
}

// chapterTask pairs one submitted chapter with its poll bookkeeping.
type chapterTask struct {
	number   int
	url      string
	handle   *worker.Handle
	deadline time.Time
	resolved bool
}

/*
Run executes one batch and returns its accounting.

Description: Expands the range, submits every chapter up front, then
polls the handles until all have resolved. A chapter past its deadline
is marked failed and left to finish in the background; its late result
is discarded. Batch job progress is reported as completed over total.
The batch itself only fails on invalid input or cancellation; chapter
failures are recorded in the result and the batch completes.

Parameters:
  - context: context.Context (Cancels the polling loop; terminal job
    updates survive cancellation)
  - request: Request

Returns:
  - *Result: Per-chapter outcomes keyed by chapter number
  - error: Validation failures or context cancellation
*/
func (orchestrator *Orchestrator) Run(context context.Context, request Request) (*Result, error) {
	started := time.Now()

	numbers, err := ParseRange(request.Chapters)
	if err != nil {
		return nil, orchestrator.fail(context, request, apperr.ValidationError(err.Error()))
	}
	if request.SampleURL == "" {
		return nil, orchestrator.fail(context, request, apperr.ValidationError("sample chapter url is required"))
	}
	if request.TargetLang == "" {
		return nil, orchestrator.fail(context, request, apperr.ValidationError("target language is required"))
	}

	orchestrator.trackJob(context, request.JobID, job.StatusUpdate{
		Status:   job.StatusProcessing,
		Progress: pointer.To(0),
	})
	orchestrator.logger.Info("batch_started",
		slog.Int("chapters", len(numbers)),
		slog.String("sample", request.SampleURL),
		slog.String("target", request.TargetLang))

	// Fan out one pipeline task per chapter
	pending := make([]*chapterTask, 0, len(numbers))
	for _, number := range numbers {
		url := ChapterURL(request.SampleURL, number)
		chapterRequest := pipeline.ChapterRequest{
			URL:             url,
			SourceLang:      request.SourceLang,
			TargetLang:      request.TargetLang,
			Backend:         request.Backend,
			Mode:            request.Mode,
			SeriesTitle:     request.SeriesTitle,
			ReplaceExisting: request.ReplaceExisting,
		}

		handle := orchestrator.deps.Pool.Submit(fmt.Sprintf("chapter-%d", number),
			orchestrator.buildChapter(chapterRequest))

		pending = append(pending, &chapterTask{
			number:   number,
			url:      url,
			handle:   handle,
			deadline: time.Now().Add(orchestrator.config.ChapterTimeout),
		})
	}

	result := &Result{
		Total:   len(numbers),
		Results: make(map[int]ChapterStatus, len(numbers)),
	}

	// Chapter tasks share this pool, so the batch polls instead of
	// blocking on handles; a blocked batch task would deadlock a pool
	// whose workers are all waiting on each other
	ticker := time.NewTicker(orchestrator.config.PollInterval)
	defer ticker.Stop()
	lastLog := time.Now()

	remaining := len(pending)
	for remaining > 0 {
		for _, task := range pending {
			if task.resolved {
				continue
			}

			if taskResult, done := task.handle.Poll(); done {
				orchestrator.resolve(context, request, task, taskResult, result)
				remaining--
				continue
			}

			if time.Now().After(task.deadline) {
				task.resolved = true
				result.Failed++
				result.Results[task.number] = ChapterStatus{
					URL:    task.url,
					Status: ChapterFailed,
					Error:  fmt.Sprintf("chapter timed out after %s", orchestrator.config.ChapterTimeout),
				}
				orchestrator.logger.Warn("batch_chapter_timeout",
					slog.Int("chapter", task.number),
					slog.String("url", task.url))
				remaining--
			}
		}

		if remaining == 0 {
			break
		}

		if time.Since(lastLog) >= orchestrator.config.LogInterval {
			orchestrator.logger.Info("batch_progress",
				slog.Int("completed", result.Completed),
				slog.Int("failed", result.Failed),
				slog.Int("remaining", remaining),
				slog.Int("total", result.Total))
			lastLog = time.Now()
		}

		select {
		case <-context.Done():
			return nil, orchestrator.fail(context, request, context.Err())
		case <-ticker.C:
		}
	}

	scoped := detached(context)
	progress := 0
	if result.Total > 0 {
		progress = result.Completed * 100 / result.Total
	}
	orchestrator.trackJob(scoped, request.JobID, job.StatusUpdate{
		Status:   job.StatusCompleted,
		Progress: pointer.To(progress),
	})
	orchestrator.notifyFinished(scoped, request, notify.EventCompleted)
	orchestrator.logger.Info("batch_completed",
		slog.Int("total", result.Total),
		slog.Int("completed", result.Completed),
		slog.Int("failed", result.Failed),
		slog.Duration("elapsed", time.Since(started)))

	return result, nil
}

// buildChapter returns the pool task for one chapter. The task runs the
// pipeline under the per-chapter budget so a stuck build cannot hold a
// worker slot after the poll loop has already charged it as timed out.
func (orchestrator *Orchestrator) buildChapter(request pipeline.ChapterRequest) worker.Task {
	return func(taskContext context.Context) (any, error) {
		runContext, cancel := context.WithTimeout(taskContext, orchestrator.config.ChapterTimeout)
		defer cancel()
		return orchestrator.deps.Runner.Run(runContext, request)
	}
}

// # Chapter Accounting

// resolve books one finished chapter into the batch result and ticks the
// batch job's progress.
func (orchestrator *Orchestrator) resolve(context context.Context, request Request, task *chapterTask, taskResult worker.TaskResult, result *Result) {
	task.resolved = true

	if taskResult.Err != nil {
		status := ChapterStatus{
			URL:    task.url,
			Status: ChapterFailed,
			Error:  taskResult.Err.Error(),
		}
		event := "batch_chapter_failed"
		// A task that died on its own budget reports the same way as one
		// the poll loop gave up on, whichever the loop observes first.
		if timedOut(taskResult.Err) {
			status.Error = fmt.Sprintf("chapter timed out after %s", orchestrator.config.ChapterTimeout)
			event = "batch_chapter_timeout"
		}
		result.Failed++
		result.Results[task.number] = status
		orchestrator.logger.Warn(event,
			slog.Int("chapter", task.number),
			slog.String("url", task.url),
			slog.String("error", status.Error))
		return
	}

	status := ChapterStatus{URL: task.url, Status: ChapterCompleted}
	if chapter, ok := taskResult.Value.(*pipeline.ChapterResult); ok {
		status.Path = orchestrator.sinkSave(request, task.number, task.url, chapter)
	}
	result.Completed++
	result.Results[task.number] = status

	orchestrator.trackJob(context, request.JobID, job.StatusUpdate{
		Status:   job.StatusProcessing,
		Progress: pointer.To(result.Completed * 100 / result.Total),
	})
	orchestrator.logger.Info("batch_chapter_completed",
		slog.Int("chapter", task.number),
		slog.Int("completed", result.Completed),
		slog.Int("total", result.Total))
}

// sinkSave persists a completed chapter's pages and metadata when a sink
// and a series name are present. Sink trouble never fails the chapter.
func (orchestrator *Orchestrator) sinkSave(request Request, number int, url string, chapter *pipeline.ChapterResult) string {
	if orchestrator.deps.Sink == nil || request.SeriesTitle == "" {
		return ""
	}

	format := chapter.PageFormat
	if format == "" {
		format = "png"
	}

	meta := &blob.Metadata{
		SeriesTitle:     request.SeriesTitle,
		ChapterNumber:   number,
		SourceURL:       url,
		SourceLang:      chapter.SourceLang,
		TargetLang:      chapter.TargetLang,
		Backend:         int(chapter.Backend),
		PageCount:       len(chapter.FinalPages),
		OriginalTexts:   chapter.OriginalTexts,
		TranslatedTexts: chapter.TranslatedTexts,
	}

	path, err := orchestrator.deps.Sink.Save(
		request.SeriesTitle,
		chapter.SourceLang,
		chapter.TargetLang,
		number,
		chapter.FinalPages,
		format,
		meta,
		chapter.CleanedPages,
	)
	if err != nil {
		orchestrator.logger.Warn("batch_sink_failed",
			slog.Int("chapter", number),
			slog.String("error", err.Error()))
		return ""
	}

	return path
}

// # Bookkeeping

// fail books the terminal failure on the batch job and returns the cause.
func (orchestrator *Orchestrator) fail(context context.Context, request Request, cause error) error {
	scoped := detached(context)
	orchestrator.trackJob(scoped, request.JobID, job.StatusUpdate{
		Status: job.StatusFailed,
		Error:  pointer.To(cause.Error()),
	})
	orchestrator.notifyFinished(scoped, request, notify.EventFailed)
	orchestrator.logger.Error("batch_failed",
		slog.String("chapters", request.Chapters),
		slog.String("error", cause.Error()))
	return cause
}

// trackJob applies a status update to the batch's job record. Tolerates
// a nil store and an empty job id; update failures are logged, never
// propagated.
func (orchestrator *Orchestrator) trackJob(context context.Context, jobID string, update job.StatusUpdate) {
	if orchestrator.deps.Jobs == nil || jobID == "" {
		return
	}
	if err := orchestrator.deps.Jobs.UpdateStatus(context, jobID, update); err != nil {
		orchestrator.logger.Warn("batch_job_update_failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}

// notifyFinished enqueues the batch's terminal notification when a
// notifier and an owner are present.
func (orchestrator *Orchestrator) notifyFinished(context context.Context, request Request, status string) {
	if orchestrator.deps.Notifier == nil || request.UserID == "" {
		return
	}
	_ = orchestrator.deps.Notifier.Enqueue(context, notify.Event{
		UserID:     request.UserID,
		ChapterURL: request.SampleURL,
		Series:     request.SeriesTitle,
		Status:     status,
		FinishedAt: time.Now().UTC(),
	})
}

// detached strips cancellation for terminal bookkeeping. Package-level
// because the receiver methods shadow the context package with their
// parameter name.
func detached(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}

// timedOut reports whether a chapter task ended by exhausting its budget
// rather than by a pipeline failure.
func timedOut(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

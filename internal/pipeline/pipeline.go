// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package pipeline runs one chapter translation end to end.
//
// # Architecture
//
// Run is a straight line through the build phases: cache check,
// advisory lock, fetch, OCR, translate, image processing, cache write
// and publish. Each stage enters through a narrow port so the pipeline
// stays free of transport and storage concerns. Required dependencies
// are the scraper, the text detector and the page processor; everything
// else is optional, and a nil dependency disables its feature instead
// of failing the run. The one-shot CLI exercises exactly that: no job
// store, no publisher, no Redis.
//
// Failure discipline: the advisory lock is released and the job record
// reaches a terminal status on every exit path, detached from the
// caller's cancellation. Nothing durable is written before phase seven.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/yakura/internal/glossary"
	"github.com/taibuivan/yakura/internal/imaging"
	"github.com/taibuivan/yakura/internal/job"
	"github.com/taibuivan/yakura/internal/ner"
	"github.com/taibuivan/yakura/internal/notify"
	"github.com/taibuivan/yakura/internal/ocr"
	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/resultcache"
	"github.com/taibuivan/yakura/internal/scrape"
	"github.com/taibuivan/yakura/internal/translate"
	"github.com/taibuivan/yakura/pkg/pointer"
	"github.com/taibuivan/yakura/pkg/slug"
)

// # Processing Modes

const (
	// ModeClean erases source text and typesets translations onto the
	// pages.
	ModeClean = "clean"
	// ModeOverlay leaves the pages untouched and ships translations as
	// data for a client-side overlay.
	ModeOverlay = "overlay"
)

// ParseMode validates a processing mode. Empty selects ModeClean.
func ParseMode(value string) (string, error) {
	switch value {
	case "":
		return ModeClean, nil
	case ModeClean, ModeOverlay:
		return value, nil
	default:
		return "", fmt.Errorf("pipeline: unknown mode %q", value)
	}
}

// # Stage Ports

// Fetcher pulls the ordered pages of one chapter.
type Fetcher interface {
	FetchChapter(context context.Context, chapterURL string) (*scrape.Chapter, error)
}

// TextDetector finds text blocks on one page image.
type TextDetector interface {
	DetectBlocks(context context.Context, image []byte) ([]ocr.TextBlock, error)
}

// PageProcessor erases source text from one page and typesets the
// translations, keeping the cleaned intermediate.
type PageProcessor interface {
	ProcessPage(context context.Context, page []byte, blocks []ocr.TextBlock, translations []string) (*imaging.PageResult, error)
}

// PublishRequest hands one finished build to the catalog publisher.
type PublishRequest struct {
	SeriesTitle string
	ChapterURL  string
	UserID      string
	Replace     bool
	Result      *ChapterResult
}

// Receipt reports what publishing did. StoragePath points at the blob
// directory backing the translation row, also when the row already
// existed and Skipped is set.
type Receipt struct {
	SeriesID    string
	ChapterID   string
	StoragePath string
	Skipped     bool
}

// Publisher pushes a finished chapter into the public catalog. The
// pipeline treats publishing as best-effort: failures are logged and
// never fail the job.
type Publisher interface {
	Publish(context context.Context, request PublishRequest) (*Receipt, error)
}

// # Request

// ChapterRequest describes one chapter build. JobID and UserID tie the
// run to a job record and a notification target; both may be empty.
type ChapterRequest struct {
	URL             string
	SourceLang      string
	TargetLang      string
	Backend         translate.Backend
	Mode            string
	SeriesTitle     string
	JobID           string
	UserID          string
	ReplaceExisting bool
}

// # Pipeline

// Deps wires the build stages. Scraper, Detector and Processor must be
// set; the rest degrade to no-ops when nil.
type Deps struct {
	Scraper   Fetcher
	Detector  TextDetector
	Processor PageProcessor

	// LLM and MT are the two translator families. A missing family
	// falls back to the other; with both missing the originals pass
	// through untranslated.
	LLM translate.Translator
	MT  translate.Translator

	Cache     resultcache.Cache
	Lock      resultcache.Lock
	Glossary  *glossary.Service
	Names     ner.Extractor
	Jobs      job.Store
	Publisher Publisher
	Notifier  notify.Notifier
}

// Pipeline builds chapters. Safe for concurrent use; every Run is
// independent.
type Pipeline struct {
	deps   Deps
	logger *slog.Logger
}

// New creates a chapter pipeline.
func New(deps Deps, logger *slog.Logger) *Pipeline {
	return &Pipeline{deps: deps, logger: logger}
}

/*
Run builds one chapter and returns its result.

Description: Phases and the job progress they report: cache check (hit
returns immediately), lock acquire (fail-open on contention), fetch
(10), OCR (30), translate (50), image processing (70 to 90 per page),
publish and cache write (100). A translator outage degrades to the
original texts and the run continues; a page processing failure fails
the run. Publish failures are logged and do not fail the job.

Parameters:
  - context: context.Context (Cancels fetch, OCR, translate and imaging;
    the terminal job update and lock release survive cancellation)
  - request: ChapterRequest

Returns:
  - *ChapterResult: The finished build, possibly served from cache
  - error: Validation, fetch and image processing failures
*/
func (pipeline *Pipeline) Run(context context.Context, request ChapterRequest) (*ChapterResult, error) {
	started := time.Now()

	if request.URL == "" || request.TargetLang == "" {
		return nil, pipeline.fail(context, request, apperr.ValidationError("url and target language are required"))
	}
	mode, err := ParseMode(request.Mode)
	if err != nil {
		return nil, pipeline.fail(context, request, apperr.ValidationError(err.Error()))
	}
	backend := request.Backend
	if backend == 0 {
		backend = translate.BackendLLM
	}
	if _, err := translate.ParseBackend(int(backend)); err != nil {
		return nil, pipeline.fail(context, request, apperr.ValidationError(err.Error()))
	}

	fingerprint := resultcache.NewFingerprint(request.URL, request.TargetLang, backend, mode)

	// Phase 1: cache check. A hit completes the job without touching
	// the lock.
	if cached := pipeline.cached(context, fingerprint); cached != nil {
		pipeline.logger.Info("pipeline_cache_hit",
			slog.String("url", request.URL),
			slog.String("fingerprint", fingerprint.Build))
		scoped := detached(context)
		pipeline.trackJob(scoped, request.JobID, job.StatusUpdate{
			Status:   job.StatusCompleted,
			Progress: pointer.To(100),
		})
		pipeline.notifyFinished(scoped, request, notify.EventCompleted)
		return cached, nil
	}

	// Phase 2: advisory lock, fail-open. Contended builds proceed and
	// overwrite each other last-writer-wins; release is unconditional.
	if pipeline.deps.Lock != nil {
		acquired, err := pipeline.deps.Lock.Acquire(context, fingerprint, 0)
		switch {
		case err != nil:
			pipeline.logger.Warn("pipeline_lock_unavailable",
				slog.String("error", err.Error()))
		case !acquired:
			pipeline.logger.Warn("pipeline_lock_contended",
				slog.String("url", request.URL))
		}
		defer func() {
			if err := pipeline.deps.Lock.Release(detached(context), fingerprint); err != nil {
				pipeline.logger.Warn("pipeline_lock_release_failed",
					slog.String("error", err.Error()))
			}
		}()
	}

	// Phase 3: fetch.
	pipeline.trackJob(context, request.JobID, processing(10))
	chapter, err := pipeline.deps.Scraper.FetchChapter(context, request.URL)
	if err != nil {
		return nil, pipeline.fail(context, request, err)
	}
	if len(chapter.Pages) == 0 {
		return nil, pipeline.fail(context, request, apperr.NotFound("chapter images"))
	}
	pipeline.logger.Info("pipeline_fetched",
		slog.String("url", request.URL),
		slog.Int("pages", len(chapter.Pages)))

	// Phase 4: OCR, page by page. A failing page contributes no blocks
	// and the run continues.
	pipeline.trackJob(context, request.JobID, processing(30))
	blocksByPage := make([][]ocr.TextBlock, len(chapter.Pages))
	originals := make([]string, 0, len(chapter.Pages))
	detectionFailures := 0
	for index, page := range chapter.Pages {
		blocks, err := pipeline.deps.Detector.DetectBlocks(context, page.Bytes)
		if err != nil {
			pipeline.logger.Warn("pipeline_ocr_page_failed",
				slog.Int("page", index+1),
				slog.String("error", err.Error()))
			detectionFailures++
			continue
		}
		blocksByPage[index] = blocks
		for _, block := range blocks {
			originals = append(originals, block.Text)
		}
	}
	detectionDown := detectionFailures == len(chapter.Pages)
	pipeline.logger.Info("pipeline_ocr_done",
		slog.Int("blocks", len(originals)),
		slog.Int("failed_pages", detectionFailures))

	// Phase 5: translate. Skipped entirely for text-free chapters.
	pipeline.trackJob(context, request.JobID, processing(50))
	sourceLang := request.SourceLang
	if sourceLang == "" {
		sourceLang = DetectSourceLang(request.URL)
	}
	translated := []string{}
	resultBackend := backend
	if len(originals) > 0 {
		translated, resultBackend = pipeline.translate(context, request, backend, sourceLang, originals)
	}

	// Phase 6: image processing. Overlay mode ships the source pages
	// untouched; clean mode renders pages in parallel, bounded by the
	// processor's own page semaphore.
	finalPages := make([][]byte, len(chapter.Pages))
	cleanedPages := make([][]byte, len(chapter.Pages))
	formats := make([]string, len(chapter.Pages))
	if mode == ModeOverlay {
		for index, page := range chapter.Pages {
			finalPages[index] = page.Bytes
			cleanedPages[index] = page.Bytes
			formats[index] = page.Format
		}
		pipeline.trackJob(context, request.JobID, processing(90))
	} else {
		perPage := splitByPage(translated, blocksByPage)
		total := int64(len(chapter.Pages))
		var done atomic.Int64
		group, groupContext := errgroup.WithContext(context)
		for index, page := range chapter.Pages {
			group.Go(func() error {
				processed, err := pipeline.deps.Processor.ProcessPage(groupContext, page.Bytes, blocksByPage[index], perPage[index])
				if err != nil {
					return fmt.Errorf("page %d: %w", index+1, err)
				}
				finalPages[index] = processed.Final
				cleanedPages[index] = processed.Cleaned
				formats[index] = processed.Format
				pipeline.trackJob(groupContext, request.JobID, processing(70+int(20*done.Add(1)/total)))
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return nil, pipeline.fail(context, request, err)
		}
	}

	result := &ChapterResult{
		FinalPages:      finalPages,
		CleanedPages:    cleanedPages,
		OriginalTexts:   originals,
		TranslatedTexts: translated,
		BlocksByPage:    blocksByPage,
		SourceLang:      sourceLang,
		TargetLang:      request.TargetLang,
		Backend:         resultBackend,
		PageFormat:      firstFormat(formats),
		Total:           len(chapter.Pages),
	}

	// Phase 7: publish and cache write, detached from cancellation so a
	// finished build is never torn between its outputs. Publishing goes
	// first because it invalidates older cached builds of the chapter
	// and would sweep away an entry written before it. A result built
	// with OCR completely down is served but not cached.
	scoped := detached(context)
	resultPath := pipeline.publish(scoped, request, result)
	if pipeline.deps.Cache != nil && !detectionDown {
		pipeline.cache(scoped, fingerprint, request, result)
	}

	pipeline.trackJob(scoped, request.JobID, job.StatusUpdate{
		Status:     job.StatusCompleted,
		Progress:   pointer.To(100),
		ResultPath: optional(resultPath),
	})
	pipeline.notifyFinished(scoped, request, notify.EventCompleted)
	pipeline.logger.Info("pipeline_completed",
		slog.String("url", request.URL),
		slog.Int("pages", result.Total),
		slog.Int("blocks", len(result.OriginalTexts)),
		slog.String("backend", resultBackend.String()),
		slog.Duration("elapsed", time.Since(started)))
	return result, nil
}

// # Stage Helpers

// cached returns the decoded cache entry for a fingerprint, or nil on
// miss, corruption or cache outage.
func (pipeline *Pipeline) cached(context context.Context, fingerprint resultcache.Fingerprint) *ChapterResult {
	if pipeline.deps.Cache == nil {
		return nil
	}

	payload, err := pipeline.deps.Cache.Get(context, fingerprint)
	if err != nil {
		if !apperr.IsNotFound(err) {
			pipeline.logger.Warn("pipeline_cache_check_failed",
				slog.String("error", err.Error()))
		}
		return nil
	}

	result, err := DecodeResult(payload)
	if err != nil {
		pipeline.logger.Warn("pipeline_cache_corrupt",
			slog.String("fingerprint", fingerprint.Build),
			slog.String("error", err.Error()))
		return nil
	}
	return result
}

/*
translate renders the flat text list, wiring the series glossary in when
a series title is present.

Description: Glossary flow per build: get-or-create the dictionary,
snapshot its entries, refresh usage for names the extractor recognizes,
hand the term map to the translator (the MT cascade rewrites inputs, the
LLM receives a prompt block), then seed newly discovered names after the
pass. Any glossary or NER failure degrades to translating without it. A
total translator failure returns the originals so the chapter still
ships readable.

Returns:
  - []string: Translations aligned with texts
  - translate.Backend: The backend that actually produced them
*/
func (pipeline *Pipeline) translate(context context.Context, request ChapterRequest, backend translate.Backend, sourceLang string, texts []string) ([]string, translate.Backend) {
	dictionary, entries := pipeline.dictionary(context, request, sourceLang)

	var names []string
	if pipeline.deps.Names != nil {
		for _, name := range pipeline.deps.Names.Extract(texts) {
			names = append(names, name.Text)
		}
	}
	if dictionary != nil && len(names) > 0 {
		if _, err := pipeline.deps.Glossary.RefreshUsage(context, dictionary.ID, names); err != nil {
			pipeline.logger.Warn("pipeline_glossary_degraded",
				slog.String("error", err.Error()))
		}
	}

	terms := make(map[string]string, len(entries))
	for _, entry := range entries {
		terms[entry.Original] = entry.Translation
	}

	translator, used := pipeline.translator(backend)
	if translator == nil {
		pipeline.logger.Error("pipeline_translator_missing",
			slog.String("backend", backend.String()))
		return append([]string(nil), texts...), backend
	}
	if used != backend {
		pipeline.logger.Warn("pipeline_translator_fallback",
			slog.String("requested", backend.String()),
			slog.String("using", used.String()))
	}

	translated := append([]string(nil), texts...)
	result, err := translator.Translate(context, translate.Request{
		Texts:      texts,
		SourceLang: sourceLang,
		TargetLang: request.TargetLang,
		Glossary:   terms,
		Context:    request.SeriesTitle,
	})
	if err != nil {
		pipeline.logger.Warn("pipeline_translate_failed",
			slog.String("backend", used.String()),
			slog.String("error", err.Error()))
		used = backend
	} else {
		translated = result.Translations
		used = result.Backend
	}

	if dictionary != nil && len(names) > 0 {
		if _, err := pipeline.deps.Glossary.SeedNames(context, dictionary.ID, names); err != nil {
			pipeline.logger.Warn("pipeline_glossary_degraded",
				slog.String("error", err.Error()))
		}
	}
	return translated, used
}

// dictionary resolves the series dictionary and its entry snapshot.
// Returns nils when the build has no series, no glossary service, or
// the store is down.
func (pipeline *Pipeline) dictionary(context context.Context, request ChapterRequest, sourceLang string) (*glossary.Dictionary, []glossary.Entry) {
	if pipeline.deps.Glossary == nil || request.SeriesTitle == "" {
		return nil, nil
	}

	seriesID := glossary.SeriesKey(request.SeriesTitle)
	dictionary, err := pipeline.deps.Glossary.EnsureDictionary(context, seriesID, sourceLang, request.TargetLang)
	if err != nil {
		pipeline.logger.Warn("pipeline_glossary_degraded",
			slog.String("series", request.SeriesTitle),
			slog.String("error", err.Error()))
		return nil, nil
	}

	entries, err := pipeline.deps.Glossary.Snapshot(context, dictionary.ID)
	if err != nil {
		pipeline.logger.Warn("pipeline_glossary_degraded",
			slog.String("series", request.SeriesTitle),
			slog.String("error", err.Error()))
		return dictionary, nil
	}
	return dictionary, entries
}

// translator picks the requested family, falling back to the other when
// it is not wired. Returns nil when neither is.
func (pipeline *Pipeline) translator(backend translate.Backend) (translate.Translator, translate.Backend) {
	if backend == translate.BackendMT {
		if pipeline.deps.MT != nil {
			return pipeline.deps.MT, translate.BackendMT
		}
		return pipeline.deps.LLM, translate.BackendLLM
	}
	if pipeline.deps.LLM != nil {
		return pipeline.deps.LLM, translate.BackendLLM
	}
	return pipeline.deps.MT, translate.BackendMT
}

// cache serializes and stores a finished result, tagged with the series
// slug for sweeps. Best-effort.
func (pipeline *Pipeline) cache(context context.Context, fingerprint resultcache.Fingerprint, request ChapterRequest, result *ChapterResult) {
	payload, err := result.Encode()
	if err != nil {
		pipeline.logger.Warn("pipeline_cache_write_failed",
			slog.String("error", err.Error()))
		return
	}

	seriesSlug := ""
	if request.SeriesTitle != "" {
		seriesSlug = slug.From(request.SeriesTitle)
	}
	if err := pipeline.deps.Cache.Set(context, fingerprint, payload, seriesSlug, 0); err != nil {
		pipeline.logger.Warn("pipeline_cache_write_failed",
			slog.String("error", err.Error()))
	}
}

// publish hands the build to the catalog when a series title is present.
// Returns the blob storage path for the job record, empty when nothing
// was published.
func (pipeline *Pipeline) publish(context context.Context, request ChapterRequest, result *ChapterResult) string {
	if pipeline.deps.Publisher == nil || request.SeriesTitle == "" {
		return ""
	}

	receipt, err := pipeline.deps.Publisher.Publish(context, PublishRequest{
		SeriesTitle: request.SeriesTitle,
		ChapterURL:  request.URL,
		UserID:      request.UserID,
		Replace:     request.ReplaceExisting,
		Result:      result,
	})
	if err != nil {
		pipeline.logger.Warn("pipeline_publish_failed",
			slog.String("series", request.SeriesTitle),
			slog.String("error", err.Error()))
		return ""
	}

	if receipt.Skipped {
		pipeline.logger.Info("pipeline_publish_skipped",
			slog.String("series", request.SeriesTitle),
			slog.String("url", request.URL))
	} else {
		pipeline.logger.Info("pipeline_published",
			slog.String("series", request.SeriesTitle),
			slog.String("path", receipt.StoragePath))
	}
	return receipt.StoragePath
}

// # Bookkeeping

// trackJob applies a status update to the build's job record. Tolerates
// a nil store and an empty job id; update failures are logged, never
// propagated.
func (pipeline *Pipeline) trackJob(context context.Context, jobID string, update job.StatusUpdate) {
	if pipeline.deps.Jobs == nil || jobID == "" {
		return
	}
	if err := pipeline.deps.Jobs.UpdateStatus(context, jobID, update); err != nil {
		pipeline.logger.Warn("pipeline_job_update_failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()))
	}
}

// fail marks the job FAILED, notifies the owner and returns err
// unchanged. The terminal update runs detached from cancellation.
func (pipeline *Pipeline) fail(context context.Context, request ChapterRequest, err error) error {
	scoped := detached(context)
	pipeline.trackJob(scoped, request.JobID, job.StatusUpdate{
		Status: job.StatusFailed,
		Error:  pointer.To(err.Error()),
	})
	pipeline.notifyFinished(scoped, request, notify.EventFailed)
	pipeline.logger.Error("pipeline_failed",
		slog.String("url", request.URL),
		slog.String("error", err.Error()))
	return err
}

// notifyFinished enqueues the terminal notification for owned jobs.
// Delivery failures are logged inside the notifier.
func (pipeline *Pipeline) notifyFinished(context context.Context, request ChapterRequest, status string) {
	if pipeline.deps.Notifier == nil || request.UserID == "" {
		return
	}
	_ = pipeline.deps.Notifier.Enqueue(context, notify.Event{
		UserID:     request.UserID,
		ChapterURL: request.URL,
		Series:     request.SeriesTitle,
		Status:     status,
		FinishedAt: time.Now().UTC(),
	})
}

// # Small Helpers

// processing builds the in-flight status update for one progress mark.
func processing(progress int) job.StatusUpdate {
	return job.StatusUpdate{Status: job.StatusProcessing, Progress: pointer.To(progress)}
}

// optional lifts a non-empty string into a pointer for partial updates.
func optional(value string) *string {
	if value == "" {
		return nil
	}
	return pointer.To(value)
}

// detached carries values across the caller's cancellation so terminal
// bookkeeping survives timeouts.
func detached(parent context.Context) context.Context {
	return context.WithoutCancel(parent)
}

// splitByPage slices the flat translation list back into per-page lists
// aligned with the block counts.
func splitByPage(translations []string, blocksByPage [][]ocr.TextBlock) [][]string {
	perPage := make([][]string, len(blocksByPage))
	cursor := 0
	for index, blocks := range blocksByPage {
		count := len(blocks)
		if cursor+count > len(translations) {
			count = len(translations) - cursor
		}
		if count <= 0 {
			continue
		}
		perPage[index] = translations[cursor : cursor+count]
		cursor += count
	}
	return perPage
}

// firstFormat picks the first sniffed page format, defaulting to png.
func firstFormat(formats []string) string {
	for _, format := range formats {
		if format != "" {
			return format
		}
	}
	return "png"
}

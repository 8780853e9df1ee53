// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/taibuivan/yakura/internal/batch"
	"github.com/taibuivan/yakura/internal/blob"
	"github.com/taibuivan/yakura/internal/ner"
	"github.com/taibuivan/yakura/internal/notify"
	"github.com/taibuivan/yakura/internal/pipeline"
	"github.com/taibuivan/yakura/internal/platform/config"
	"github.com/taibuivan/yakura/internal/translate"
	"github.com/taibuivan/yakura/internal/worker"
)

var (
	translateURL      string
	translateSource   string
	translateTarget   string
	translateBackend  string
	translateMode     string
	translateSeries   string
	translateChapters string
	translateOut      string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate chapters once and write them to disk",
	Long: `Translate one chapter, or a range of chapters, without the server.

The build needs no PostgreSQL and no Redis: no job records, no result
cache, no catalog. Finished pages land under --out as
<series>/<source>_to_<target>/chapter_NNNN/ with a metadata sidecar.

Stage configuration (OCR sidecar URL, fonts, translator credentials)
still comes from the environment, same variables as the server.

Examples:
  yakura translate --url https://example.com/solo-leveling-chapter-7 --target-lang tr
  yakura translate --url https://example.com/solo-leveling-chapter-1 --chapters 1-10,12 --series "Solo Leveling"`,
	RunE: runTranslate,
}

func init() {
	translateCmd.Flags().StringVar(&translateURL, "url", "", "chapter URL (required)")
	translateCmd.Flags().StringVar(&translateSource, "source-lang", "", "source language (auto-detected when empty)")
	translateCmd.Flags().StringVar(&translateTarget, "target-lang", "", "target language (default DEFAULT_TARGET_LANG)")
	translateCmd.Flags().StringVar(&translateBackend, "backend", "llm", "translation backend: llm or mt")
	translateCmd.Flags().StringVar(&translateMode, "mode", pipeline.ModeClean, "processing mode: clean or overlay")
	translateCmd.Flags().StringVar(&translateSeries, "series", "", "series title (derived from the URL when empty)")
	translateCmd.Flags().StringVar(&translateChapters, "chapters", "", `chapter range like "1-10,12" (single chapter when empty)`)
	translateCmd.Flags().StringVar(&translateOut, "out", "", "output directory (default STORAGE_ROOT)")
	_ = translateCmd.MarkFlagRequired("url")

	rootCmd.AddCommand(translateCmd)
}

func runTranslate(command *cobra.Command, args []string) error {
	ctx := command.Context()

	// Logs go to stderr so stdout stays clean for result paths.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	backend, err := parseBackendFlag(translateBackend)
	if err != nil {
		return err
	}

	target := translateTarget
	if target == "" {
		target = cfg.DefaultTargetLang
	}

	series := translateSeries
	if series == "" {
		series = seriesFromURL(translateURL)
	}

	outRoot := translateOut
	if outRoot == "" {
		outRoot = cfg.StorageRoot
	}
	files, err := blob.NewFileManager(outRoot)
	if err != nil {
		return err
	}

	st, err := buildStages(cfg, log)
	if err != nil {
		return err
	}

	// Nil cache, lock, job store, and publisher disable those phases;
	// the run is a pure build.
	runner := pipeline.New(pipeline.Deps{
		Scraper:   st.scraper,
		Detector:  st.detector,
		Processor: st.processor,
		LLM:       st.llm,
		MT:        st.mt,
		Names:     ner.NewHeuristic(),
		Notifier:  notify.NoopNotifier{},
	}, log)

	if translateChapters != "" {
		return runTranslateBatch(ctx, command, cfg, runner, files, backend, target, series, log)
	}

	result, err := runner.Run(ctx, pipeline.ChapterRequest{
		URL:         translateURL,
		SourceLang:  translateSource,
		TargetLang:  target,
		Backend:     backend,
		Mode:        translateMode,
		SeriesTitle: series,
	})
	if err != nil {
		return err
	}

	path, err := saveChapter(files, series, translateURL, result)
	if err != nil {
		return err
	}

	fmt.Fprintf(command.OutOrStdout(), "chapter %d: %d pages -> %s\n",
		batch.ChapterNumber(translateURL), len(result.FinalPages), path)
	return nil
}

// runTranslateBatch fans the chapter range out over a local worker pool
// and prints one line per chapter.
func runTranslateBatch(ctx context.Context, command *cobra.Command, cfg *config.Config, runner *pipeline.Pipeline, files *blob.FileManager, backend translate.Backend, target, series string, log *slog.Logger) error {
	workers := worker.NewPool(worker.Config{
		Workers:   cfg.WorkerCount,
		QueueSize: cfg.QueueSize,
	}, log)
	defer func() {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer drainCancel()
		_ = workers.Shutdown(drainCtx)
	}()

	orchestrator := batch.NewOrchestrator(batch.Deps{
		Runner:   runner,
		Pool:     workers,
		Notifier: notify.NoopNotifier{},
		Sink:     files,
	}, batch.Config{ChapterTimeout: cfg.ChapterTimeout}, log)

	result, err := orchestrator.Run(ctx, batch.Request{
		Chapters:    translateChapters,
		SampleURL:   translateURL,
		SourceLang:  translateSource,
		TargetLang:  target,
		Backend:     backend,
		Mode:        translateMode,
		SeriesTitle: series,
	})
	if err != nil {
		return err
	}

	numbers := make([]int, 0, len(result.Results))
	for number := range result.Results {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	out := command.OutOrStdout()
	for _, number := range numbers {
		status := result.Results[number]
		if status.Status == batch.ChapterCompleted {
			fmt.Fprintf(out, "chapter %d: completed -> %s\n", number, status.Path)
		} else {
			fmt.Fprintf(out, "chapter %d: failed (%s)\n", number, status.Error)
		}
	}
	fmt.Fprintf(out, "%d/%d chapters completed\n", result.Completed, result.Total)

	if result.Failed > 0 {
		return fmt.Errorf("%d of %d chapters failed", result.Failed, result.Total)
	}
	return nil
}

// saveChapter persists a finished one-shot build the same way the batch
// sink does, metadata sidecar included.
func saveChapter(files *blob.FileManager, series, chapterURL string, chapter *pipeline.ChapterResult) (string, error) {
	number := batch.ChapterNumber(chapterURL)

	format := chapter.PageFormat
	if format == "" {
		format = "png"
	}

	meta := &blob.Metadata{
		SeriesTitle:     series,
		ChapterNumber:   number,
		SourceURL:       chapterURL,
		SourceLang:      chapter.SourceLang,
		TargetLang:      chapter.TargetLang,
		Backend:         int(chapter.Backend),
		PageCount:       len(chapter.FinalPages),
		OriginalTexts:   chapter.OriginalTexts,
		TranslatedTexts: chapter.TranslatedTexts,
	}

	return files.Save(series, chapter.SourceLang, chapter.TargetLang, number,
		chapter.FinalPages, format, meta, chapter.CleanedPages)
}

// parseBackendFlag maps the CLI backend name onto the wire enum. The
// numeric forms match the API's wire values.
func parseBackendFlag(value string) (translate.Backend, error) {
	switch strings.ToLower(value) {
	case "", "llm", "1":
		return translate.BackendLLM, nil
	case "mt", "free", "2":
		return translate.BackendMT, nil
	default:
		return 0, fmt.Errorf("unknown backend %q (want llm or mt)", value)
	}
}

// chapterMarker strips a chapter label and everything after it from a
// path segment. Longer labels come first so "chapter" wins over "ch".
var chapterMarker = regexp.MustCompile(`(?i)[-_]?(chapter|episode|bolum|ep|ch)[-_]?\d.*$`)

// readerSegments are viewer suffixes that never name a series.
var readerSegments = map[string]bool{"viewer": true, "reader": true, "read": true}

// seriesFromURL derives a fallback series name from a chapter URL. Site
// paths usually embed the series slug in or just above the chapter
// segment.
func seriesFromURL(chapterURL string) string {
	parsed, err := url.Parse(chapterURL)
	if err != nil {
		return "untitled"
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	for index := len(segments) - 1; index >= 0; index-- {
		segment := segments[index]
		if segment == "" || readerSegments[strings.ToLower(segment)] {
			continue
		}
		segment = chapterMarker.ReplaceAllString(segment, "")
		if segment == "" {
			continue
		}
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		return segment
	}

	if host := parsed.Hostname(); host != "" {
		return host
	}
	return "untitled"
}

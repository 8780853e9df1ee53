// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package publish pushes finished chapter builds into the public catalog.

A publication is a pair of writes that must end consistent: the rendered
pages land in blob storage under their canonical chapter directory, and
the catalog rows (series, chapter, translation) are resolved in one
database transaction. Pages are written first because a translation row
must never point at a directory that does not exist; when the catalog
transaction fails afterwards the fresh directory is removed again.

Series identity is fuzzy on purpose. Scrape sources spell the same title
with different casing, punctuation, or suffixes, so the store matches
the normalized title against existing rows by containment similarity
before creating a new series.
*/
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/taibuivan/yakura/internal/batch"
	"github.com/taibuivan/yakura/internal/blob"
	"github.com/taibuivan/yakura/internal/glossary"
	"github.com/taibuivan/yakura/internal/pipeline"
	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/internal/resultcache"
	"github.com/taibuivan/yakura/pkg/slug"
)

// # Service Layer

// Service implements [pipeline.Publisher] against blob storage and the
// catalog store. The cache is optional; when present, published chapters
// evict their stale cached builds.
type Service struct {
	store  Store
	files  *blob.FileManager
	cache  resultcache.Cache
	logger *slog.Logger
}

// NewService constructs a catalog publisher.
func NewService(store Store, files *blob.FileManager, cache resultcache.Cache, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		files:  files,
		cache:  cache,
		logger: logger,
	}
}

/*
Publish writes a finished build to blob storage and the catalog.

Description: The chapter number is recovered from the source URL and the
series is identified by its normalized title. Pages are saved to the
canonical chapter directory first, then the catalog transaction resolves
series, chapter, and translation rows. An existing translation without
the replace flag skips every write and reports the path already on
record; a replace repoints the row and removes the directory it used to
reference when that differs from the fresh one. Cached builds of the
chapter and its series are invalidated after a successful publish.

Parameters:
  - context: context.Context
  - request: pipeline.PublishRequest

Returns:
  - *pipeline.Receipt: Catalog ids and the backing storage path
  - error: Validation or storage failures
*/
func (service *Service) Publish(context context.Context, request pipeline.PublishRequest) (*pipeline.Receipt, error) {

	// Input validation
	if request.SeriesTitle == "" {
		return nil, apperr.ValidationError("series title is required to publish")
	}
	if request.Result == nil || len(request.Result.FinalPages) == 0 {
		return nil, apperr.ValidationError("publish requires at least one rendered page")
	}

	normalized := glossary.NormalizeTitle(request.SeriesTitle)
	if normalized == "" {
		return nil, apperr.ValidationError("series title has no usable characters")
	}

	result := request.Result
	chapterNumber := batch.ChapterNumber(request.ChapterURL)

	format := result.PageFormat
	if format == "" {
		format = "png"
	}

	// Blob write before the catalog touch so rows never point at a
	// directory that does not exist
	meta := &blob.Metadata{
		SeriesTitle:     request.SeriesTitle,
		ChapterNumber:   chapterNumber,
		SourceURL:       request.ChapterURL,
		SourceLang:      result.SourceLang,
		TargetLang:      result.TargetLang,
		Backend:         int(result.Backend),
		PageCount:       len(result.FinalPages),
		OriginalTexts:   result.OriginalTexts,
		TranslatedTexts: result.TranslatedTexts,
	}

	storagePath, err := service.files.Save(
		request.SeriesTitle,
		result.SourceLang,
		result.TargetLang,
		chapterNumber,
		result.FinalPages,
		format,
		meta,
		result.CleanedPages,
	)
	if err != nil {
		return nil, err
	}

	// Catalog resolution in one transaction
	publication := &Publication{
		SeriesTitle:     request.SeriesTitle,
		NormalizedTitle: normalized,
		Slug:            slug.From(request.SeriesTitle),
		SourceSite:      sourceSite(request.ChapterURL),
		ChapterNumber:   chapterNumber,
		ChapterTitle:    fmt.Sprintf("Chapter %d", chapterNumber),
		SourceURL:       request.ChapterURL,
		PageCount:       len(result.FinalPages),
		SourceLang:      result.SourceLang,
		TargetLang:      result.TargetLang,
		Backend:         int16(result.Backend),
		StoragePath:     storagePath,
		Replace:         request.Replace,
	}

	outcome, err := service.store.Apply(context, publication)
	if err != nil {
		service.removeBlob(storagePath, "publish_blob_cleanup_failed")
		return nil, apperr.Storage("failed to catalog chapter", err)
	}

	// An existing translation kept its rows, so the fresh directory is
	// only kept when it is the one those rows already reference
	if outcome.Skipped {
		if outcome.ExistingPath != storagePath {
			service.removeBlob(storagePath, "publish_blob_cleanup_failed")
		}

		service.logger.Info("publish_skipped_existing",
			slog.String("series", request.SeriesTitle),
			slog.Int("chapter", chapterNumber),
			slog.String("path", outcome.ExistingPath))

		return &pipeline.Receipt{
			SeriesID:    outcome.SeriesID,
			ChapterID:   outcome.ChapterID,
			StoragePath: outcome.ExistingPath,
			Skipped:     true,
		}, nil
	}

	// A replaced translation may leave an orphan directory behind when
	// the title spelling changed the canonical path
	if outcome.ReplacedPath != "" && outcome.ReplacedPath != storagePath {
		service.removeBlob(outcome.ReplacedPath, "publish_old_blob_remove_failed")
	}

	service.invalidate(context, request.ChapterURL, publication.Slug)

	service.logger.Info("chapter_published",
		slog.String("series", request.SeriesTitle),
		slog.Int("chapter", chapterNumber),
		slog.String("path", storagePath),
		slog.Bool("new_series", outcome.SeriesCreated))

	return &pipeline.Receipt{
		SeriesID:    outcome.SeriesID,
		ChapterID:   outcome.ChapterID,
		StoragePath: storagePath,
	}, nil
}

// # Internals

// removeBlob deletes a chapter directory and logs instead of failing,
// since blob cleanup never outranks the catalog outcome.
func (service *Service) removeBlob(path, event string) {
	if err := service.files.Remove(path); err != nil {
		service.logger.Warn(event,
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// invalidate drops cached builds of the chapter and its series. Cache
// trouble is logged and swallowed; the publish already succeeded.
func (service *Service) invalidate(context context.Context, chapterURL, seriesSlug string) {
	if service.cache == nil {
		return
	}

	chapterDropped, err := service.cache.InvalidateChapter(context, chapterURL)
	if err != nil {
		service.logger.Warn("publish_invalidate_failed",
			slog.String("url", chapterURL),
			slog.String("error", err.Error()))
	}

	seriesDropped, err := service.cache.InvalidateSeries(context, seriesSlug)
	if err != nil {
		service.logger.Warn("publish_invalidate_failed",
			slog.String("slug", seriesSlug),
			slog.String("error", err.Error()))
	}

	if chapterDropped+seriesDropped > 0 {
		service.logger.Debug("publish_cache_invalidated",
			slog.Int("chapter_entries", chapterDropped),
			slog.Int("series_entries", seriesDropped))
	}
}

// sourceSite extracts the host a chapter was scraped from. An
// unparseable URL publishes with an empty site rather than failing.
func sourceSite(chapterURL string) string {
	parsed, err := url.Parse(chapterURL)
	if err != nil {
		return ""
	}
	return parsed.Hostname()
}

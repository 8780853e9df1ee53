// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package imaging erases source text from page rasters and typesets
// translations in its place.
//
// # Architecture
//
// Processing is pure per-page CPU work in three steps: Clean builds a
// mask over the text blocks and inpaints it away, Render typesets the
// translated strings into the same boxes, and the codec re-encodes the
// result. ProcessPage composes the three and is the entry point the
// pipeline uses. A weighted semaphore bounds how many pages decode at
// once across every job in the process, since full-size webtoon strips
// are large.
package imaging

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/semaphore"

	"github.com/taibuivan/yakura/internal/ocr"
)

// # Configuration

const (
	// DefaultConcurrency bounds simultaneously decoded pages process-wide.
	DefaultConcurrency = 4
	// DefaultQuality is the lossy encoder quality for webp and jpeg output.
	DefaultQuality = 90
	// DefaultFormat is the output encoding for processed pages.
	DefaultFormat = "webp"

	// maskPadding inflates each text box so inpainting also swallows
	// anti-aliased glyph edges just outside the detected rectangle.
	maskPadding = 5
)

// Config holds the image processing settings.
type Config struct {
	// FontDir is scanned for TTF/OTF files; empty or unreadable falls
	// back to the embedded face.
	FontDir string
	// Format selects the output encoding: webp, jpeg or png.
	Format string
	// Quality applies to lossy output formats, 1-100.
	Quality int
	// Concurrency bounds pages processed at once across all jobs.
	Concurrency int64
}

func (cfg Config) withDefaults() Config {
	if cfg.Format == "" {
		cfg.Format = DefaultFormat
	}
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultQuality
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	return cfg
}

// # Processor

// Processor turns a page plus its detected blocks and translations into
// a re-typeset page. Safe for concurrent use.
type Processor struct {
	fonts   *fontCache
	format  string
	quality int
	pages   *semaphore.Weighted
	logger  *slog.Logger
}

// NewProcessor constructs a processor. Fonts are loaded once up front;
// a missing font directory is not an error, the embedded face serves.
func NewProcessor(cfg Config, logger *slog.Logger) (*Processor, error) {
	cfg = cfg.withDefaults()

	fonts, err := loadFonts(cfg.FontDir, logger)
	if err != nil {
		return nil, fmt.Errorf("imaging: failed to load fonts: %w", err)
	}

	return &Processor{
		fonts:   fonts,
		format:  cfg.Format,
		quality: cfg.Quality,
		pages:   semaphore.NewWeighted(cfg.Concurrency),
		logger:  logger,
	}, nil
}

// PageResult carries both stages of one processed page. Cleaned is the
// inpainted page before typesetting; editors re-letter from it.
type PageResult struct {
	Final   []byte
	Cleaned []byte
	Format  string
}

/*
ProcessPage erases the source text of one page and typesets translations,
keeping the intermediate cleaned page.

Description: Decodes the page, inpaints the block regions away, encodes
the cleaned raster, then draws each non-empty translation centered into
its block and encodes the final raster. A page with no blocks passes
through byte-identical, it is never decoded. Blocks beyond the
translation list are only cleaned; empty translations leave their block
blank.

Parameters:
  - context: context.Context
  - page: []byte (Encoded source page)
  - blocks: []ocr.TextBlock
  - translations: []string (Aligned with blocks)

Returns:
  - *PageResult: Final and cleaned bytes plus the output format tag
  - error: Decode or encode failures
*/
func (processor *Processor) ProcessPage(context context.Context, page []byte, blocks []ocr.TextBlock, translations []string) (*PageResult, error) {
	if len(blocks) == 0 {
		return &PageResult{Final: page, Cleaned: page, Format: sniffPageFormat(page)}, nil
	}

	if err := processor.pages.Acquire(context, 1); err != nil {
		return nil, err
	}
	defer processor.pages.Release(1)

	img, _, err := decodePage(page)
	if err != nil {
		return nil, err
	}

	// Render draws into the cleaned raster, so the cleaned copy must be
	// encoded first.
	cleaned := Clean(img, boxes(blocks))
	cleanedData, _, err := processor.encode(cleaned)
	if err != nil {
		return nil, err
	}

	rendered := processor.Render(cleaned, blocks, translations)
	finalData, format, err := processor.encode(rendered)
	if err != nil {
		return nil, err
	}

	return &PageResult{Final: finalData, Cleaned: cleanedData, Format: format}, nil
}

/*
Process is [Processor.ProcessPage] without the cleaned intermediate.

Returns:
  - []byte: The processed page
  - string: Output format tag (webp, jpg or png)
  - error: Decode or encode failures
*/
func (processor *Processor) Process(context context.Context, page []byte, blocks []ocr.TextBlock, translations []string) ([]byte, string, error) {
	result, err := processor.ProcessPage(context, page, blocks, translations)
	if err != nil {
		return nil, "", err
	}
	return result.Final, result.Format, nil
}

// boxes projects blocks onto their rectangles.
func boxes(blocks []ocr.TextBlock) []ocr.BBox {
	rects := make([]ocr.BBox, len(blocks))
	for i, block := range blocks {
		rects[i] = block.BBox
	}
	return rects
}

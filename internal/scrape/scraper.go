// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scrape

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// # Service Layer

// Service resolves a chapter URL to its page images.
type Service struct {
	adapters   []Adapter
	fallback   Adapter
	downloader *downloader
	logger     *slog.Logger
}

/*
NewService wires the built-in site adapters.

Parameters:
  - cfg: Config (timeouts, concurrency, browser binary)
  - logger: *slog.Logger

Returns:
  - *Service: Ready-to-use scraper
*/
func NewService(cfg Config, logger *slog.Logger) *Service {
	cfg = cfg.withDefaults()
	client := &http.Client{Timeout: cfg.Timeout}

	static := &httpFetcher{client: client}
	browser := newBrowserFetcher(cfg.BrowserBin, cfg.BrowserHeadless, cfg.ChallengeWait, logger)

	return &Service{
		adapters: []Adapter{
			newStaticAdapter(webtoonsProfile(), static),
			newStaticAdapter(asuraProfile(), browser),
		},
		fallback:   newStaticAdapter(defaultProfile(), static),
		downloader: newDownloader(client, cfg, logger),
		logger:     logger,
	}
}

// # Chapter Operations

/*
FetchChapter downloads every page image of one chapter.

Description: Picks the adapter claiming the URL's host, extracts the
image URLs from the reader markup, and downloads them in parallel with
the chapter URL as referer.

Parameters:
  - context: context.Context
  - chapterURL: string

Returns:
  - *Chapter: Page images in reading order
  - error: NotFound when no reader markup matched, Blocked when a JS
    challenge did not clear, Upstream when most downloads failed
*/
func (service *Service) FetchChapter(context context.Context, chapterURL string) (*Chapter, error) {
	adapter := service.AdapterFor(chapterURL)
	service.logger.Info("scrape_started",
		slog.String("url", chapterURL),
		slog.String("adapter", adapter.Name()))

	urls, err := adapter.ExtractImageURLs(context, chapterURL)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return nil, apperr.NotFound("chapter images")
	}

	pages, err := service.downloader.Download(context, urls, chapterURL)
	if err != nil {
		return nil, err
	}

	service.logger.Info("scrape_completed",
		slog.String("url", chapterURL),
		slog.Int("discovered", len(urls)),
		slog.Int("pages", len(pages)))
	return &Chapter{URL: chapterURL, Pages: pages}, nil
}

/*
AdapterFor returns the adapter claiming the URL's host.

Parameters:
  - chapterURL: string

Returns:
  - Adapter: The matching site adapter, or the generic fallback
*/
func (service *Service) AdapterFor(chapterURL string) Adapter {
	host := ""
	if parsed, err := url.Parse(chapterURL); err == nil {
		host = strings.ToLower(parsed.Host)
	}
	for _, adapter := range service.adapters {
		if adapter.Matches(host) {
			return adapter
		}
	}
	return service.fallback
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scrape

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// # Parallel Downloads

// downloader pulls page images in parallel while staying polite per host.
type downloader struct {
	client      *http.Client
	concurrency int
	retries     int
	ratePerHost float64
	logger      *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func newDownloader(client *http.Client, cfg Config, logger *slog.Logger) *downloader {
	return &downloader{
		client:      client,
		concurrency: cfg.DownloadConcurrency,
		retries:     cfg.DownloadRetries,
		ratePerHost: cfg.RatePerHost,
		logger:      logger,
		limiters:    map[string]*rate.Limiter{},
	}
}

/*
Download fetches every URL and returns the pages that arrived.

Description: Failed pages are dropped from the result while the remaining
pages keep their reading order and original index. The whole download
fails only when fewer than half of the URLs could be fetched.

Parameters:
  - context: context.Context
  - urls: []string (image URLs in reading order)
  - referer: string (chapter URL, sent with every request)

Returns:
  - []Page: Fetched pages, reading order preserved
  - error: Upstream when fewer than half of the URLs downloaded
*/
func (downloader *downloader) Download(context context.Context, urls []string, referer string) ([]Page, error) {
	pages := make([]Page, len(urls))
	group, groupContext := errgroup.WithContext(context)
	group.SetLimit(downloader.concurrency)

	var fetched atomic.Int64
	for index, imageURL := range urls {
		group.Go(func() error {
			body, err := downloader.fetchImage(groupContext, imageURL, referer)
			if err != nil {
				// A single lost page is tolerated; the floor check below
				// catches systematic failure.
				downloader.logger.Warn("scrape_page_failed",
					slog.String("url", imageURL),
					slog.String("error", err.Error()))
				return nil
			}
			pages[index] = Page{Index: index, Bytes: body, Format: sniffFormat(body, imageURL)}
			fetched.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	if err := context.Err(); err != nil {
		return nil, err
	}

	if count := int(fetched.Load()); count*2 < len(urls) {
		return nil, apperr.Upstream(fmt.Sprintf("scrape: partial fetch: %d of %d pages downloaded", count, len(urls)), nil)
	}

	kept := make([]Page, 0, len(pages))
	for _, page := range pages {
		if page.Bytes != nil {
			kept = append(kept, page)
		}
	}
	return kept, nil
}

func (downloader *downloader) fetchImage(context context.Context, imageURL, referer string) ([]byte, error) {
	limiter := downloader.limiter(hostOf(imageURL))

	var body []byte
	err := retry.Do(
		func() error {
			if err := limiter.Wait(context); err != nil {
				return retry.Unrecoverable(err)
			}

			request, err := http.NewRequestWithContext(context, http.MethodGet, imageURL, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			applyBrowserHeaders(request, referer)

			response, err := downloader.client.Do(request)
			if err != nil {
				return err
			}
			defer response.Body.Close()

			if response.StatusCode != http.StatusOK {
				return fmt.Errorf("status %d", response.StatusCode)
			}

			data, err := io.ReadAll(response.Body)
			if err != nil {
				return err
			}
			body = data
			return nil
		},
		retry.Context(context),
		retry.Attempts(uint(downloader.retries)),
		retry.Delay(300*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// limiter returns the shared rate limiter for one host, creating it on
// first sight.
func (downloader *downloader) limiter(host string) *rate.Limiter {
	downloader.mu.Lock()
	defer downloader.mu.Unlock()

	limiter, ok := downloader.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(downloader.ratePerHost), 1)
		downloader.limiters[host] = limiter
	}
	return limiter
}

func hostOf(imageURL string) string {
	parsed, err := url.Parse(imageURL)
	if err != nil || parsed.Host == "" {
		return imageURL
	}
	return parsed.Host
}

// sniffFormat tags a page by its magic bytes, falling back to the URL
// extension.
func sniffFormat(body []byte, imageURL string) string {
	switch http.DetectContentType(body) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	}

	lower := strings.ToLower(imageURL)
	for _, extension := range imageExtensions {
		if strings.Contains(lower, extension) {
			if extension == ".jpeg" {
				return "jpg"
			}
			return strings.TrimPrefix(extension, ".")
		}
	}
	return "jpg"
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package scrape turns a chapter URL into ordered page images.
//
// # Architecture
//
// Fetching is a two-step affair: an [Adapter] knows how one site family
// lays out its reader markup and extracts the page image URLs, then a
// shared downloader pulls the bytes in parallel. Site detection goes by
// host substring; hosts no adapter claims fall through to a generic
// reader-content profile. Sites behind a JS challenge are rendered in a
// real browser before the same extraction runs on the DOM snapshot.
package scrape

import (
	"net/http"
	"time"
)

// # Domain Types

// Page is one downloaded chapter image. Index is the position the image
// held in the reader markup, Format the sniffed encoding (jpg, png, webp
// or gif).
type Page struct {
	Index  int
	Bytes  []byte
	Format string
}

// Chapter carries the pages of one fetched chapter in reading order.
type Chapter struct {
	URL   string
	Pages []Page
}

// # Configuration

const (
	DefaultTimeout       = 30 * time.Second
	DefaultChallengeWait = 10 * time.Second
	DefaultConcurrency   = 6
	DefaultRetries       = 3
	DefaultRatePerHost   = 4
)

// Config tunes fetching. Zero values fall back to the package defaults.
type Config struct {
	// Timeout bounds every single HTTP request (page HTML and images).
	Timeout time.Duration
	// ChallengeWait is how long a browser render may sit on a JS
	// challenge interstitial before the fetch is declared blocked.
	ChallengeWait time.Duration
	// DownloadConcurrency caps parallel image downloads per chapter.
	DownloadConcurrency int
	// DownloadRetries is the attempt count per image.
	DownloadRetries int
	// RatePerHost caps image requests per second against one host.
	RatePerHost float64
	// BrowserBin overrides the browser executable used for challenge
	// sites. Empty lets the launcher resolve one.
	BrowserBin string
	// BrowserHeadless toggles headless rendering.
	BrowserHeadless bool
}

func (cfg Config) withDefaults() Config {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.ChallengeWait <= 0 {
		cfg.ChallengeWait = DefaultChallengeWait
	}
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = DefaultConcurrency
	}
	if cfg.DownloadRetries <= 0 {
		cfg.DownloadRetries = DefaultRetries
	}
	if cfg.RatePerHost <= 0 {
		cfg.RatePerHost = DefaultRatePerHost
	}
	return cfg
}

// # Request Identity

// browserHeaders mimic a desktop browser; several reader sites refuse the
// default Go user agent outright. Accept-Encoding stays unset so the
// transport keeps handling decompression itself.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
}

func applyBrowserHeaders(request *http.Request, referer string) {
	for name, value := range browserHeaders {
		request.Header.Set(name, value)
	}
	if referer != "" {
		request.Header.Set("Referer", referer)
	}
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scrape

import (
	"context"
)

// # Adapter Contract

/*
Adapter extracts the page image URLs of one site family.

Matches receives the lowercased host of the chapter URL and reports
whether this adapter understands the site. ExtractImageURLs returns the
image URLs in reading order; it fails with NotFound when no reader markup
matched and with Blocked when the site's JS challenge never cleared.
*/
type Adapter interface {
	Name() string
	Matches(host string) bool
	ExtractImageURLs(context context.Context, chapterURL string) ([]string, error)
}

// # Site Profiles

// profile describes how one site family lays out its reader markup.
type profile struct {
	name       string
	hosts      []string // host substrings this profile claims
	containers []string // reader container selectors, primary first
	attrs      []string // image URL attributes, highest priority first
	keep       string   // when set, image URLs must contain this substring
	scripts    bool     // also mine <script> bodies for image URLs
}

// webtoonsProfile covers webtoons.com. The viewer list is occasionally
// stripped from the static markup, so script mining stays on as a last
// resort. Only CDN URLs carrying the platform name are chapter pages.
func webtoonsProfile() profile {
	return profile{
		name:       "webtoons",
		hosts:      []string{"webtoons.com", "webtoon.com"},
		containers: []string{"#_imageList", ".viewer_img"},
		attrs:      []string{"data-url", "src", "data-src"},
		keep:       "webtoon",
		scripts:    true,
	}
}

// asuraProfile covers the asurascans / asuracomic mirror family. These
// sites sit behind a JS challenge, so the service pairs this profile with
// the browser fetcher.
func asuraProfile() profile {
	return profile{
		name:       "asura",
		hosts:      []string{"asurascan", "asuracomic"},
		containers: []string{".py-8", "#chapter-images"},
		attrs:      []string{"data-src", "data-lazy-src", "data-original", "data-url", "src"},
	}
}

// defaultProfile matches nothing by host; the service hands it every URL
// no named adapter claims. The selectors cover the common manga reader
// themes.
func defaultProfile() profile {
	return profile{
		name:       "generic",
		containers: []string{".reading-content", "#readerarea", ".chapter-images", ".entry-content"},
		attrs:      []string{"data-src", "data-lazy-src", "data-original", "data-url", "src"},
	}
}

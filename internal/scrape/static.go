// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// # HTML Retrieval

// htmlFetcher returns the rendered HTML of a chapter page. The plain HTTP
// implementation serves server-rendered sites, the browser implementation
// serves challenge-protected ones.
type htmlFetcher interface {
	FetchHTML(context context.Context, pageURL string) (string, error)
}

// httpFetcher fetches server-rendered pages with a browser-like identity.
type httpFetcher struct {
	client *http.Client
}

func (fetcher *httpFetcher) FetchHTML(context context.Context, pageURL string) (string, error) {
	request, err := http.NewRequestWithContext(context, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("scrape: failed to build chapter request: %w", err)
	}
	applyBrowserHeaders(request, "")

	response, err := fetcher.client.Do(request)
	if err != nil {
		return "", apperr.Upstream("scrape: failed to fetch chapter page", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", apperr.Upstream(fmt.Sprintf("scrape: chapter page returned status %d", response.StatusCode), nil)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return "", apperr.Upstream("scrape: failed to read chapter page", err)
	}
	return string(body), nil
}

// # Static Adapter

// staticAdapter extracts image URLs from reader markup through a site
// profile. The same adapter type serves plain and browser-rendered sites;
// only the fetcher differs.
type staticAdapter struct {
	profile profile
	fetcher htmlFetcher
}

func newStaticAdapter(p profile, fetcher htmlFetcher) *staticAdapter {
	return &staticAdapter{profile: p, fetcher: fetcher}
}

func (adapter *staticAdapter) Name() string { return adapter.profile.name }

func (adapter *staticAdapter) Matches(host string) bool {
	host = strings.ToLower(host)
	for _, fragment := range adapter.profile.hosts {
		if strings.Contains(host, fragment) {
			return true
		}
	}
	return false
}

func (adapter *staticAdapter) ExtractImageURLs(context context.Context, chapterURL string) ([]string, error) {
	html, err := adapter.fetcher.FetchHTML(context, chapterURL)
	if err != nil {
		return nil, err
	}
	return extractImageURLs(html, chapterURL, adapter.profile)
}

// # Extraction

/*
extractImageURLs walks the profile's container selectors in order and
returns the first non-empty image URL list. A container that exists but
yields nothing after filtering does not stop the fallback chain.

Parameters:
  - html: string (rendered chapter markup)
  - chapterURL: string (base for relative image URLs)
  - p: profile (selectors, attribute priority, filters)

Returns:
  - []string: Absolute image URLs, reading order, duplicates removed
  - error: NotFound when every selector came up empty
*/
func extractImageURLs(html, chapterURL string, p profile) ([]string, error) {
	base, err := url.Parse(chapterURL)
	if err != nil {
		return nil, fmt.Errorf("scrape: failed to parse chapter url: %w", err)
	}

	document, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("scrape: failed to parse chapter html: %w", err)
	}

	for _, selector := range p.containers {
		container := document.Find(selector)
		if container.Length() == 0 {
			continue
		}
		if urls := collectImageURLs(container, base, p); len(urls) > 0 {
			return urls, nil
		}
	}

	if p.scripts {
		if urls := collectScriptURLs(document, p); len(urls) > 0 {
			return urls, nil
		}
	}

	return nil, apperr.NotFound("chapter images")
}

// collectImageURLs pulls every <img> below the container, resolving the
// first populated attribute in priority order. Selectors that match img
// elements directly are used as-is.
func collectImageURLs(container *goquery.Selection, base *url.URL, p profile) []string {
	imgs := container.Filter("img")
	if imgs.Length() == 0 {
		imgs = container.Find("img")
	}

	var (
		urls []string
		seen = map[string]struct{}{}
	)
	imgs.Each(func(_ int, img *goquery.Selection) {
		raw := firstAttr(img, p.attrs)
		if raw == "" {
			return
		}
		resolved := absolutize(raw, base)
		if !keepImageURL(resolved, p.keep) {
			return
		}
		if _, duplicate := seen[resolved]; duplicate {
			return
		}
		seen[resolved] = struct{}{}
		urls = append(urls, resolved)
	})
	return urls
}

func firstAttr(img *goquery.Selection, attrs []string) string {
	for _, name := range attrs {
		if value, ok := img.Attr(name); ok {
			if value = strings.TrimSpace(value); value != "" {
				return value
			}
		}
	}
	return ""
}

// scriptImageURL matches quoted absolute image URLs inside script bodies.
var scriptImageURL = regexp.MustCompile(`["'](https?://[^"']+\.(?:jpg|jpeg|png|webp)[^"']*)["']`)

// collectScriptURLs mines <script> bodies for image URLs. Viewer pages
// that assemble their image list client-side still declare the URLs in
// the raw source.
func collectScriptURLs(document *goquery.Document, p profile) []string {
	var (
		urls []string
		seen = map[string]struct{}{}
	)
	document.Find("script").Each(func(_ int, script *goquery.Selection) {
		for _, match := range scriptImageURL.FindAllStringSubmatch(script.Text(), -1) {
			candidate := match[1]
			if !keepImageURL(candidate, p.keep) {
				continue
			}
			if _, duplicate := seen[candidate]; duplicate {
				continue
			}
			seen[candidate] = struct{}{}
			urls = append(urls, candidate)
		}
	})
	return urls
}

// # URL Filtering

// absolutize resolves raw against the chapter URL. Protocol-relative URLs
// keep their host; rooted and bare paths resolve against the chapter's
// origin.
func absolutize(raw string, base *url.URL) string {
	switch {
	case strings.HasPrefix(raw, "//"):
		return "https:" + raw
	case strings.HasPrefix(raw, "http://"), strings.HasPrefix(raw, "https://"):
		return raw
	case strings.HasPrefix(raw, "/"):
		return base.Scheme + "://" + base.Host + raw
	default:
		return base.Scheme + "://" + base.Host + "/" + raw
	}
}

// skipFragments mark reader chrome when they appear anywhere in the image
// filename.
var skipFragments = []string{"placeholder", "loading", "spinner", "blank", "logo", "banner", "avatar", "thumbnail"}

// skipTokens are matched against whole URL segments, so ad directories
// and ad hosts are caught without a bare "ad" fragment check hitting
// filenames like "shadow" or "download".
var skipTokens = map[string]struct{}{
	"ad":    {},
	"ads":   {},
	"icon":  {},
	"icons": {},
}

// imageExtensions are checked as substrings; CDNs often append query
// parameters after the extension.
var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// keepImageURL decides whether a discovered URL is a chapter page. The
// keep fragment, when set, must appear somewhere in the URL.
func keepImageURL(imageURL, keep string) bool {
	lower := strings.ToLower(imageURL)
	if keep != "" && !strings.Contains(lower, keep) {
		return false
	}
	if !hasImageExtension(lower) {
		return false
	}

	trimmed := lower
	if cut := strings.IndexAny(trimmed, "?#"); cut >= 0 {
		trimmed = trimmed[:cut]
	}
	name := trimmed[strings.LastIndexByte(trimmed, '/')+1:]

	for _, fragment := range skipFragments {
		if strings.Contains(name, fragment) {
			return false
		}
	}
	for _, token := range splitTokens(trimmed) {
		if _, hit := skipTokens[token]; hit {
			return false
		}
	}
	return true
}

func hasImageExtension(lowerURL string) bool {
	for _, extension := range imageExtensions {
		if strings.Contains(lowerURL, extension) {
			return true
		}
	}
	return false
}

func splitTokens(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

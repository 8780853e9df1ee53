// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package scrape

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

/*
TestAbsolutize checks URL resolution against the chapter URL for every
reference shape reader sites use.
*/
func TestAbsolutize(t *testing.T) {
	base, err := url.Parse("https://site.com/chapter/1")
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"absolute https", "https://other.com/a.png", "https://other.com/a.png"},
		{"absolute http", "http://other.com/a.png", "http://other.com/a.png"},
		{"protocol relative", "//cdn.x.com/a.jpg", "https://cdn.x.com/a.jpg"},
		{"rooted path", "/img/a.jpg", "https://site.com/img/a.jpg"},
		{"bare path", "img/a.jpg", "https://site.com/img/a.jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, absolutize(tt.raw, base))
		})
	}
}

/*
TestKeepImageURL checks the chrome filters: extension requirement, skip
fragments in the filename, ad tokens anywhere in the URL, and the
per-profile keep fragment.
*/
func TestKeepImageURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		keep string
		want bool
	}{
		{"plain page", "https://cdn.site.com/ch1/001.jpg", "", true},
		{"query after extension", "https://cdn.site.com/001.jpg?type=q90", "", true},
		{"uploads directory kept", "https://cdn.site.com/uploads/ch1/002.webp", "", true},
		{"ad substring inside word kept", "https://cdn.site.com/shadow.png", "", true},
		{"logo dropped", "https://cdn.site.com/assets/logo.png", "", false},
		{"spinner dropped", "https://cdn.site.com/img/spinner.gif", "", false},
		{"ad filename dropped", "https://cdn.site.com/ad.jpg", "", false},
		{"ads directory dropped", "https://cdn.site.com/ads/005.jpg", "", false},
		{"icons directory dropped", "https://cdn.site.com/icons/menu.png", "", false},
		{"no image extension", "https://cdn.site.com/style.css", "", false},
		{"keep fragment present", "https://webtoon-phinf.pstatic.net/123/001.jpg", "webtoon", true},
		{"keep fragment missing", "https://cdn.else.com/001.jpg", "webtoon", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, keepImageURL(tt.url, tt.keep))
		})
	}
}

/*
TestExtractImageURLs checks container fallback, attribute priority,
filtering, and order-preserving dedupe over static reader markup.
*/
func TestExtractImageURLs(t *testing.T) {
	const chapterURL = "https://site.com/ch/1"

	t.Run("attribute_priority_and_dedupe", func(t *testing.T) {
		html := `<html><body><div class="reading-content">
			<img data-src="/a.jpg" src="/b.jpg">
			<img src="/c.jpg">
			<img src="/c.jpg">
			<img data-lazy-src="//cdn.x.com/d.jpg">
			<img src="/assets/logo.jpg">
		</div></body></html>`

		urls, err := extractImageURLs(html, chapterURL, defaultProfile())
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://site.com/a.jpg",
			"https://site.com/c.jpg",
			"https://cdn.x.com/d.jpg",
		}, urls)
	})

	t.Run("fallback_container", func(t *testing.T) {
		html := `<html><body><div id="readerarea">
			<img src="/p1.png"><img src="/p2.png">
		</div></body></html>`

		urls, err := extractImageURLs(html, chapterURL, defaultProfile())
		require.NoError(t, err)
		assert.Equal(t, []string{"https://site.com/p1.png", "https://site.com/p2.png"}, urls)
	})

	t.Run("empty_primary_falls_through", func(t *testing.T) {
		html := `<html><body>
			<div class="reading-content"><img src="/assets/logo.jpg"></div>
			<div id="readerarea"><img src="/p1.png"></div>
		</body></html>`

		urls, err := extractImageURLs(html, chapterURL, defaultProfile())
		require.NoError(t, err)
		assert.Equal(t, []string{"https://site.com/p1.png"}, urls)
	})

	t.Run("no_container", func(t *testing.T) {
		html := `<html><body><p>maintenance</p></body></html>`

		_, err := extractImageURLs(html, chapterURL, defaultProfile())
		assert.True(t, apperr.IsNotFound(err))
	})

	t.Run("script_mining", func(t *testing.T) {
		html := `<html><body><script>
			var imageList = ["https://webtoon-phinf.pstatic.net/ep1/001.jpg?type=q90",
			                 "https://webtoon-phinf.pstatic.net/ep1/002.jpg?type=q90",
			                 "https://static.other.net/tracker.png"];
		</script></body></html>`

		urls, err := extractImageURLs(html, "https://www.webtoons.com/en/x/ep-1/viewer", webtoonsProfile())
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://webtoon-phinf.pstatic.net/ep1/001.jpg?type=q90",
			"https://webtoon-phinf.pstatic.net/ep1/002.jpg?type=q90",
		}, urls)
	})
}

/*
TestSniffFormat checks magic-byte detection with the URL extension as
fallback.
*/
func TestSniffFormat(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		url  string
		want string
	}{
		{"jpeg magic", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "https://c.com/x.bin", "jpg"},
		{"png magic", []byte("\x89PNG\r\n\x1a\n rest"), "https://c.com/x.bin", "png"},
		{"gif magic", []byte("GIF89a rest"), "https://c.com/x.bin", "gif"},
		{"webp magic", []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), "https://c.com/x.bin", "webp"},
		{"extension fallback", []byte("not an image"), "https://c.com/p.png?x=1", "png"},
		{"jpeg extension normalized", []byte("not an image"), "https://c.com/p.jpeg", "jpg"},
		{"unknown defaults to jpg", []byte("not an image"), "https://c.com/p", "jpg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sniffFormat(tt.body, tt.url))
		})
	}
}

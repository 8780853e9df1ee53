// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package batch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yakura/internal/batch"
)

/*
TestChapterURL verifies numeric segment substitution for each recognized
template and the append fallback.
*/
func TestChapterURL(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		number int
		want   string
	}{
		{
			name:   "episode_dash",
			sample: "https://site.com/series/episode-12/viewer",
			number: 5,
			want:   "https://site.com/series/episode-5/viewer",
		},
		{
			name:   "chapter_dash",
			sample: "https://site.com/series/chapter-100",
			number: 101,
			want:   "https://site.com/series/chapter-101",
		},
		{
			name:   "bolum_dash",
			sample: "https://asurascans.com.tr/seri-bolum-7/",
			number: 9,
			want:   "https://asurascans.com.tr/seri-bolum-9/",
		},
		{
			name:   "ep_dash",
			sample: "https://site.com/series/s2-ep-4/reader",
			number: 6,
			want:   "https://site.com/series/s2-ep-6/reader",
		},
		{
			name:   "ch_dash",
			sample: "https://site.com/series/ch-19",
			number: 20,
			want:   "https://site.com/series/ch-20",
		},
		{
			name:   "episode_no_query_wins_over_path",
			sample: "https://www.webtoons.com/en/fantasy/solo/ep-3/viewer?title_no=99&episode_no=3",
			number: 4,
			want:   "https://www.webtoons.com/en/fantasy/solo/ep-3/viewer?title_no=99&episode_no=4",
		},
		{
			name:   "chapter_no_query",
			sample: "https://reader.example/view?chapter_no=55",
			number: 56,
			want:   "https://reader.example/view?chapter_no=56",
		},
		{
			name:   "case_preserved",
			sample: "https://site.com/series/EPISODE-12",
			number: 2,
			want:   "https://site.com/series/EPISODE-2",
		},
		{
			name:   "trailing_number_with_slash",
			sample: "https://mangasite.com/series/123/",
			number: 7,
			want:   "https://mangasite.com/series/7/",
		},
		{
			name:   "trailing_number_bare",
			sample: "https://mangasite.com/series/123",
			number: 7,
			want:   "https://mangasite.com/series/7",
		},
		{
			name:   "trailing_number_keeps_query",
			sample: "https://mangasite.com/series/123?lang=en",
			number: 8,
			want:   "https://mangasite.com/series/8?lang=en",
		},
		{
			name:   "fallback_appends",
			sample: "https://site.com/my-series/",
			number: 3,
			want:   "https://site.com/my-series/chapter-3",
		},
		{
			name:   "fallback_appends_without_slash",
			sample: "https://site.com/my-series",
			number: 3,
			want:   "https://site.com/my-series/chapter-3",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, batch.ChapterURL(test.sample, test.number))
		})
	}
}

/*
TestChapterNumber verifies extraction mirrors the templating, with the
webtoons query parameter outranking the decorative path label.
*/
func TestChapterNumber(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want int
	}{
		{name: "episode_dash", url: "https://site.com/series/episode-12/viewer", want: 12},
		{name: "chapter_dash", url: "https://site.com/series/chapter-100", want: 100},
		{name: "bolum_dash", url: "https://asurascans.com.tr/seri-bolum-7/", want: 7},
		{name: "ep_dash", url: "https://site.com/series/s2-ep-4/reader", want: 4},
		{name: "ch_dash", url: "https://site.com/series/ch-19", want: 19},
		{
			name: "episode_no_outranks_path",
			url:  "https://www.webtoons.com/en/fantasy/solo/ep-3/viewer?title_no=99&episode_no=571",
			want: 571,
		},
		{name: "trailing_number", url: "https://mangasite.com/series/123/", want: 123},
		{name: "trailing_number_with_query", url: "https://mangasite.com/series/123?lang=en", want: 123},
		{name: "no_template_defaults_to_one", url: "https://site.com/my-series/", want: 1},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, batch.ChapterNumber(test.url))
		})
	}
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/yakura/internal/pipeline"
)

/*
TestDetectSourceLang covers path-segment codes, Turkish host hints and
the English fallback.
*/
func TestDetectSourceLang(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "webtoons_path_code",
			url:  "https://www.webtoons.com/en/fantasy/tower-of-god/ep-1/viewer?episode_no=1",
			want: "en",
		},
		{
			name: "turkish_path_code",
			url:  "https://example.com/tr/seri/bolum-5",
			want: "tr",
		},
		{
			name: "japanese_path_code",
			url:  "https://example.com/ja/series/chapter-2",
			want: "ja",
		},
		{
			name: "uppercase_segment_matched",
			url:  "https://example.com/TR/seri/bolum-5",
			want: "tr",
		},
		{
			name: "path_outranks_host",
			url:  "https://asurascans.com.tr/ko/solo/bolum-5",
			want: "ko",
		},
		{
			name: "turkish_tld",
			url:  "https://asurascans.com.tr/manga/solo/bolum-5",
			want: "tr",
		},
		{
			name: "bare_tr_tld",
			url:  "https://mangasite.tr/seri/12",
			want: "tr",
		},
		{
			name: "turkish_branded_host",
			url:  "https://turkishtoons.example/series/solo/9",
			want: "tr",
		},
		{
			name: "unknown_defaults_to_english",
			url:  "https://example.com/manga/solo-leveling/chapter-1",
			want: "en",
		},
		{
			name: "unparseable_defaults_to_english",
			url:  ":",
			want: "en",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.want, pipeline.DetectSourceLang(test.url))
		})
	}
}

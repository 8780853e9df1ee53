// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pipeline

import (
	"net/url"
	"strings"
)

// # Source Language Inference

// pathLangs are the language codes reader sites embed as path segments,
// webtoons.com style (/en/, /tr/, ...).
var pathLangs = map[string]struct{}{
	"en": {}, "tr": {}, "es": {}, "fr": {}, "de": {},
	"it": {}, "pt": {}, "ru": {}, "ja": {}, "ko": {},
	"zh": {}, "id": {}, "th": {}, "vi": {}, "ar": {},
}

/*
DetectSourceLang infers the source language of a chapter from its URL.

Description: Path segments outrank host hints because aggregators mirror
the same series under several language paths on one host. Turkish
hosting (.tr domains and "turkish" branded hosts) is the one host-level
signal strong enough to act on; everything else defaults to English.

Parameters:
  - chapterURL: string

Returns:
  - string: A two-letter language code, "en" when nothing matches
*/
func DetectSourceLang(chapterURL string) string {
	parsed, err := url.Parse(chapterURL)
	if err != nil {
		return "en"
	}

	for _, segment := range strings.Split(parsed.Path, "/") {
		code := strings.ToLower(segment)
		if _, ok := pathLangs[code]; ok {
			return code
		}
	}

	host := strings.ToLower(parsed.Hostname())
	if strings.HasSuffix(host, ".com.tr") || strings.HasSuffix(host, ".tr") || strings.Contains(host, "turkish") {
		return "tr"
	}

	return "en"
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package batch

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// # URL Templating

// Chapter number templates in priority order. Query parameters come
// first: on webtoons.com the viewer resolves episode_no while the path
// label is decorative, so the query form is the one that must change.
var urlTemplates = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(episode_no=)(\d+)`),
	regexp.MustCompile(`(?i)(chapter_no=)(\d+)`),
	regexp.MustCompile(`(?i)(episode-)(\d+)`),
	regexp.MustCompile(`(?i)(chapter-)(\d+)`),
	regexp.MustCompile(`(?i)(bolum-)(\d+)`),
	regexp.MustCompile(`(?i)(ep-)(\d+)`),
	regexp.MustCompile(`(?i)(ch-)(\d+)`),
}

// trailingNumberTemplate matches a bare numeric path tail like "/123/".
var trailingNumberTemplate = regexp.MustCompile(`/(\d+)(/?)$`)

/*
ChapterURL derives one chapter's URL from a sample URL of the same series.

Description: The first recognized template has its numeric segment
replaced everywhere it occurs; the template prefix is preserved. A sample
without any recognized template gets "/chapter-N" appended to its path.

Parameters:
  - sample: string (Any chapter URL of the series)
  - number: int

Returns:
  - string: The derived chapter URL
*/
func ChapterURL(sample string, number int) string {
	for _, template := range urlTemplates {
		if template.MatchString(sample) {
			return template.ReplaceAllString(sample, fmt.Sprintf("${1}%d", number))
		}
	}

	path, query, hasQuery := strings.Cut(sample, "?")
	if match := trailingNumberTemplate.FindStringSubmatch(path); match != nil {
		path = path[:len(path)-len(match[0])] + fmt.Sprintf("/%d%s", number, match[2])
	} else {
		path = strings.TrimRight(path, "/") + fmt.Sprintf("/chapter-%d", number)
	}

	if hasQuery {
		return path + "?" + query
	}
	return path
}

/*
ChapterNumber extracts the chapter number from a URL.

Description: Recognizes the same templates as [ChapterURL]. URLs without
a recognizable number default to chapter 1 so publishing never stalls on
an odd reader layout.

Parameters:
  - url: string

Returns:
  - int: The extracted chapter number, 1 when none is found
*/
func ChapterNumber(url string) int {
	for _, template := range urlTemplates {
		if match := template.FindStringSubmatch(url); match != nil {
			if number, err := strconv.Atoi(match[2]); err == nil && number > 0 {
				return number
			}
		}
	}

	path, _, _ := strings.Cut(url, "?")
	if match := trailingNumberTemplate.FindStringSubmatch(path); match != nil {
		if number, err := strconv.Atoi(match[1]); err == nil && number > 0 {
			return number
		}
	}

	return 1
}

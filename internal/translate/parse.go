// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// # Reply Parsing

// arrayPattern finds the first bracketed block in free-form model output.
var arrayPattern = regexp.MustCompile(`(?s)\[.*?\]`)

/*
parseReply extracts the translation list from a model reply.

Description: The reply should be a JSON array. Failing that, the parser
tries, in order: an object with an array field ("translations", "texts",
else the alphabetically first array value), the content with code fences
stripped, the first bracketed block, and finally a newline split.

Parameters:
  - content: string (raw model output)

Returns:
  - []string: The extracted translations
  - error: When nothing resembling a list could be extracted
*/
func parseReply(content string) ([]string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("translate: empty model reply")
	}

	if translations, ok := parseJSON(content); ok {
		return translations, nil
	}

	if stripped := stripCodeFences(content); stripped != content {
		if translations, ok := parseJSON(stripped); ok {
			return translations, nil
		}
	}

	if block := arrayPattern.FindString(content); block != "" {
		if translations, ok := parseJSON(block); ok {
			return translations, nil
		}
	}

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("translate: no translations in model reply")
	}
	return lines, nil
}

// parseJSON accepts a JSON array directly or an object wrapping one.
func parseJSON(content string) ([]string, bool) {
	var decoded any
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		return nil, false
	}

	switch value := decoded.(type) {
	case []any:
		return toStrings(value), true
	case map[string]any:
		for _, field := range []string{"translations", "texts"} {
			if array, ok := value[field].([]any); ok {
				return toStrings(array), true
			}
		}
		// JSON object order is lost on decode; the alphabetically first
		// array-valued field is the deterministic stand-in.
		fields := make([]string, 0, len(value))
		for field := range value {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			if array, ok := value[field].([]any); ok {
				return toStrings(array), true
			}
		}
	}
	return nil, false
}

func toStrings(values []any) []string {
	texts := make([]string, len(values))
	for i, value := range values {
		if text, ok := value.(string); ok {
			texts[i] = text
		} else {
			texts[i] = fmt.Sprintf("%v", value)
		}
	}
	return texts
}

// stripCodeFences removes a leading ``` line and a trailing ``` line.
func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return content
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 3 {
		return content
	}
	body := lines[1:]
	if strings.TrimSpace(body[len(body)-1]) == "```" {
		body = body[:len(body)-1]
	}
	return strings.TrimSpace(strings.Join(body, "\n"))
}

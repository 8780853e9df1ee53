// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package batch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// # Range Expressions

/*
ParseRange expands a chapter range expression into a sorted, deduplicated
number list.

Description: Accepts comma-separated parts that are either single numbers
or inclusive spans: "1-10", "5,7,9", "1-5,10-15". Chapter numbers start
at 1 and spans must not be reversed.

Parameters:
  - expression: string

Returns:
  - []int: Sorted unique chapter numbers
  - error: Malformed parts, reversed spans, numbers below 1
*/
func ParseRange(expression string) ([]int, error) {
	seen := make(map[int]struct{})

	for _, part := range strings.Split(expression, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("batch: empty part in range %q", expression)
		}

		start, end, err := parsePart(part)
		if err != nil {
			return nil, err
		}
		for number := start; number <= end; number++ {
			seen[number] = struct{}{}
		}
	}

	numbers := make([]int, 0, len(seen))
	for number := range seen {
		numbers = append(numbers, number)
	}
	sort.Ints(numbers)

	if len(numbers) == 0 {
		return nil, fmt.Errorf("batch: empty range %q", expression)
	}
	return numbers, nil
}

// parsePart resolves one comma-separated part to an inclusive span; a
// single number is a span of one.
func parsePart(part string) (int, int, error) {
	if start, end, found := strings.Cut(part, "-"); found {
		startNumber, err := parseChapterNumber(strings.TrimSpace(start))
		if err != nil {
			return 0, 0, fmt.Errorf("batch: invalid span %q: %w", part, err)
		}
		endNumber, err := parseChapterNumber(strings.TrimSpace(end))
		if err != nil {
			return 0, 0, fmt.Errorf("batch: invalid span %q: %w", part, err)
		}
		if endNumber < startNumber {
			return 0, 0, fmt.Errorf("batch: reversed span %q", part)
		}
		return startNumber, endNumber, nil
	}

	number, err := parseChapterNumber(part)
	if err != nil {
		return 0, 0, fmt.Errorf("batch: invalid chapter %q: %w", part, err)
	}
	return number, number, nil
}

func parseChapterNumber(value string) (int, error) {
	number, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	if number < 1 {
		return 0, fmt.Errorf("chapter numbers start at 1, got %d", number)
	}
	return number, nil
}

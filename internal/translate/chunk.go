// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

// # Token Budget

const (
	// DefaultTokenCeiling is the estimate above which a chapter no longer
	// fits one request of a 128k-context model with room for the reply.
	DefaultTokenCeiling = 100_000
	// DefaultChunkTokens bounds each chunk once splitting engages.
	DefaultChunkTokens = 20_000
	// carryCount is how many translations of a chunk are carried into the
	// next chunk's prompt as previous context.
	carryCount = 10
)

// estimateTokens approximates the request cost of a text list. Four
// characters per token plus a fixed per-item overhead for quoting and
// separators.
func estimateTokens(texts []string) int {
	total := 0
	for _, text := range texts {
		total += len(text)/4 + 8
	}
	return total
}

/*
splitChunks cuts a text list into sequential chunks within the token
budget.

Description: Items keep their order; a chunk closes when adding the next
item would cross the budget. A single item above the budget still forms
its own chunk, it is never dropped.

Parameters:
  - texts: []string
  - budget: int (estimated tokens per chunk)

Returns:
  - [][]string: Non-empty chunks covering texts exactly, in order
*/
func splitChunks(texts []string, budget int) [][]string {
	var (
		chunks  [][]string
		current []string
		used    int
	)
	for _, text := range texts {
		cost := len(text)/4 + 8
		if len(current) > 0 && used+cost > budget {
			chunks = append(chunks, current)
			current = nil
			used = 0
		}
		current = append(current, text)
		used += cost
	}
	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package translate

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// # Phrase-Table MT Engine

// phraseEngine translates with per-pair TSV phrase tables: one
// `source<TAB>target` line per phrase, file named `<src>_<tgt>.tsv`
// inside the data directory. Matching is longest-phrase-first greedy
// over word boundaries; unmatched words pass through unchanged.
type phraseEngine struct {
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	tables map[string]*phraseTable
}

type phraseTable struct {
	phrases map[string]string
	// keys sorted by word count descending, so greedy matching prefers
	// the longest phrase at each position.
	ordered []string
	maxLen  int
}

// NewPhraseEngine constructs the offline phrase-table engine over a
// table directory.
func NewPhraseEngine(dir string, logger *slog.Logger) Engine {
	return &phraseEngine{dir: dir, logger: logger, tables: map[string]*phraseTable{}}
}

func (engine *phraseEngine) Name() string { return "phrase" }

// Available requires the table file for the exact pair to exist.
func (engine *phraseEngine) Available(sourceLang, targetLang string) bool {
	if engine.dir == "" {
		return false
	}
	_, err := os.Stat(engine.tablePath(sourceLang, targetLang))
	return err == nil
}

func (engine *phraseEngine) tablePath(sourceLang, targetLang string) string {
	name := fmt.Sprintf("%s_%s.tsv", strings.ToLower(sourceLang), strings.ToLower(targetLang))
	return filepath.Join(engine.dir, name)
}

/*
TranslateText replaces known phrases left to right.

Description: At each word position the longest table phrase wins;
trailing punctuation of the last matched word is carried onto the
replacement. Words no phrase covers stay as they are.

Parameters:
  - context: context.Context
  - text: string
  - sourceLang: string
  - targetLang: string

Returns:
  - string: Text with known phrases replaced
  - error: Table load failures
*/
func (engine *phraseEngine) TranslateText(context context.Context, text, sourceLang, targetLang string) (string, error) {
	if err := context.Err(); err != nil {
		return "", err
	}

	table, err := engine.table(sourceLang, targetLang)
	if err != nil {
		return "", err
	}

	words := strings.Fields(text)
	out := make([]string, 0, len(words))

	for i := 0; i < len(words); {
		phrase, span := table.match(words, i)
		if span == 0 {
			out = append(out, words[i])
			i++
			continue
		}
		// Punctuation stuck to the last matched word survives the
		// replacement.
		_, punct := splitPunct(words[i+span-1])
		out = append(out, phrase+punct)
		i += span
	}

	return strings.Join(out, " "), nil
}

// table loads and caches the phrase table for one pair.
func (engine *phraseEngine) table(sourceLang, targetLang string) (*phraseTable, error) {
	key := strings.ToLower(sourceLang) + "_" + strings.ToLower(targetLang)

	engine.mu.Lock()
	defer engine.mu.Unlock()

	if table, ok := engine.tables[key]; ok {
		return table, nil
	}

	table, err := loadPhraseTable(engine.tablePath(sourceLang, targetLang))
	if err != nil {
		return nil, err
	}
	engine.tables[key] = table

	engine.logger.Info("phrase_table_loaded",
		slog.String("pair", key),
		slog.Int("phrases", len(table.phrases)))
	return table, nil
}

func loadPhraseTable(path string) (*phraseTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("translate: failed to open phrase table: %w", err)
	}
	defer file.Close()

	table := &phraseTable{phrases: map[string]string{}}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		source, target, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		source = strings.ToLower(strings.TrimSpace(source))
		target = strings.TrimSpace(target)
		if source == "" || target == "" {
			continue
		}
		table.phrases[source] = target
		if span := len(strings.Fields(source)); span > table.maxLen {
			table.maxLen = span
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("translate: failed to read phrase table: %w", err)
	}

	table.ordered = make([]string, 0, len(table.phrases))
	for source := range table.phrases {
		table.ordered = append(table.ordered, source)
	}
	sort.Slice(table.ordered, func(i, j int) bool {
		a, b := table.ordered[i], table.ordered[j]
		la, lb := len(strings.Fields(a)), len(strings.Fields(b))
		if la != lb {
			return la > lb
		}
		return a < b
	})

	return table, nil
}

// match tries the longest phrase starting at words[i]; span 0 means no
// phrase matched.
func (table *phraseTable) match(words []string, i int) (string, int) {
	limit := table.maxLen
	if remaining := len(words) - i; limit > remaining {
		limit = remaining
	}
	for span := limit; span >= 1; span-- {
		candidate := normalizeWords(words[i : i+span])
		if target, ok := table.phrases[candidate]; ok {
			return target, span
		}
	}
	return "", 0
}

// normalizeWords lowercases a word window and drops trailing punctuation
// of the final word, mirroring how table keys are stored.
func normalizeWords(words []string) string {
	parts := make([]string, len(words))
	copy(parts, words)
	last := len(parts) - 1
	core, _ := splitPunct(parts[last])
	parts[last] = core
	return strings.ToLower(strings.Join(parts, " "))
}

// splitPunct cuts trailing ASCII punctuation off a word.
func splitPunct(word string) (core, punct string) {
	cut := len(word)
	for cut > 0 && strings.IndexByte(".,!?;:\"'", word[cut-1]) >= 0 {
		cut--
	}
	return word[:cut], word[cut:]
}

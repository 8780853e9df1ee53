// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package blob organizes translated chapter output on the local filesystem.
//
// # Layout
//
// Chapters are stored under a configurable root:
//
//	<root>/<series>/<src>_to_<tgt>/chapter_0001/page_001.webp
//	                                             page_002.webp
//	                                             cleaned/page_001.webp
//	                                             metadata.json
//
// The series segment is sanitized for filesystem safety. All writes go
// through [FileManager] so path construction stays in one place.
package blob

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/taibuivan/yakura/internal/platform/apperr"
)

// # File Manager

// FileManager writes and removes chapter directories under a fixed root.
type FileManager struct {
	root string
}

/*
NewFileManager constructs a [FileManager] rooted at the given directory,
creating it when missing.

Parameters:
  - root: string (Storage root directory)

Returns:
  - *FileManager: Ready-to-use manager
  - error: Directory creation failures
*/
func NewFileManager(root string) (*FileManager, error) {
	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("blob: failed to resolve storage root: %w", err)
	}
	if err := os.MkdirAll(absolute, 0o755); err != nil {
		return nil, fmt.Errorf("blob: failed to create storage root: %w", err)
	}
	return &FileManager{root: absolute}, nil
}

// Root returns the absolute storage root.
func (manager *FileManager) Root() string {
	return manager.root
}

// # Chapter Persistence

// Metadata is the sidecar document written next to the page files.
type Metadata struct {
	SeriesTitle     string   `json:"series_title"`
	ChapterNumber   int      `json:"chapter_number"`
	SourceURL       string   `json:"source_url"`
	SourceLang      string   `json:"source_lang"`
	TargetLang      string   `json:"target_lang"`
	Backend         int      `json:"backend"`
	PageCount       int      `json:"page_count"`
	OriginalTexts   []string `json:"original_texts"`
	TranslatedTexts []string `json:"translated_texts"`
}

/*
Save writes a translated chapter to its canonical directory and returns the
chapter path. Page files are numbered from 1 using the configured output
extension. When cleaned pages are supplied they land in a cleaned/
subdirectory so editors can re-letter without re-running inpainting.

Parameters:
  - series: string (Series title, sanitized for the filesystem)
  - sourceLang: string
  - targetLang: string
  - chapterNumber: int
  - pages: [][]byte (Final rendered page bytes, in order)
  - ext: string (File extension without dot, e.g. "webp")
  - meta: *Metadata (Optional sidecar, skipped when nil)
  - cleaned: [][]byte (Optional cleaned pages, skipped when empty)

Returns:
  - string: Absolute chapter directory path
  - error: Write failures wrapped as storage errors
*/
func (manager *FileManager) Save(series, sourceLang, targetLang string, chapterNumber int, pages [][]byte, ext string, meta *Metadata, cleaned [][]byte) (string, error) {
	chapterDir := manager.ChapterPath(series, sourceLang, targetLang, chapterNumber)
	if err := os.MkdirAll(chapterDir, 0o755); err != nil {
		return "", apperr.Storage("failed to create chapter directory", err)
	}

	for index, page := range pages {
		name := fmt.Sprintf("page_%03d.%s", index+1, ext)
		if err := os.WriteFile(filepath.Join(chapterDir, name), page, 0o644); err != nil {
			return "", apperr.Storage(fmt.Sprintf("failed to write page %d", index+1), err)
		}
	}

	if len(cleaned) > 0 {
		cleanedDir := filepath.Join(chapterDir, "cleaned")
		if err := os.MkdirAll(cleanedDir, 0o755); err != nil {
			return "", apperr.Storage("failed to create cleaned directory", err)
		}
		for index, page := range cleaned {
			name := fmt.Sprintf("page_%03d.%s", index+1, ext)
			if err := os.WriteFile(filepath.Join(cleanedDir, name), page, 0o644); err != nil {
				return "", apperr.Storage(fmt.Sprintf("failed to write cleaned page %d", index+1), err)
			}
		}
	}

	if meta != nil {
		encoded, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return "", apperr.Storage("failed to encode metadata", err)
		}
		if err := os.WriteFile(filepath.Join(chapterDir, "metadata.json"), encoded, 0o644); err != nil {
			return "", apperr.Storage("failed to write metadata", err)
		}
	}

	return chapterDir, nil
}

/*
ChapterPath computes the canonical directory for a chapter without touching
the filesystem.

Parameters:
  - series: string
  - sourceLang: string
  - targetLang: string
  - chapterNumber: int

Returns:
  - string: Absolute chapter directory path
*/
func (manager *FileManager) ChapterPath(series, sourceLang, targetLang string, chapterNumber int) string {
	return filepath.Join(
		manager.root,
		Sanitize(series),
		fmt.Sprintf("%s_to_%s", sourceLang, targetLang),
		fmt.Sprintf("chapter_%04d", chapterNumber),
	)
}

// Exists reports whether a chapter directory is already on disk.
func (manager *FileManager) Exists(series, sourceLang, targetLang string, chapterNumber int) bool {
	info, err := os.Stat(manager.ChapterPath(series, sourceLang, targetLang, chapterNumber))
	return err == nil && info.IsDir()
}

/*
ListChapters returns the sorted chapter numbers present for a language pair.
Directories that do not follow the chapter_NNNN convention are skipped.

Parameters:
  - series: string
  - sourceLang: string
  - targetLang: string

Returns:
  - []int: Ascending chapter numbers, empty when the series is absent
*/
func (manager *FileManager) ListChapters(series, sourceLang, targetLang string) []int {
	pairDir := filepath.Join(manager.root, Sanitize(series), fmt.Sprintf("%s_to_%s", sourceLang, targetLang))
	entries, err := os.ReadDir(pairDir)
	if err != nil {
		return nil
	}

	var chapters []int
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), "chapter_") {
			continue
		}
		number, err := strconv.Atoi(strings.TrimPrefix(entry.Name(), "chapter_"))
		if err != nil {
			continue
		}
		chapters = append(chapters, number)
	}
	sort.Ints(chapters)
	return chapters
}

/*
Remove deletes a chapter directory previously returned by [FileManager.Save].
Paths outside the storage root are rejected so a corrupted catalog row can
never delete unrelated files.

Parameters:
  - path: string (Absolute chapter directory)

Returns:
  - error: Validation or removal failures
*/
func (manager *FileManager) Remove(path string) error {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return apperr.Storage("failed to resolve removal path", err)
	}
	if !strings.HasPrefix(absolute, manager.root+string(filepath.Separator)) {
		return apperr.Invariant(fmt.Sprintf("refusing to remove path outside storage root: %s", absolute))
	}
	if err := os.RemoveAll(absolute); err != nil {
		return apperr.Storage("failed to remove chapter directory", err)
	}
	return nil
}

// # Sanitization

// invalidPathChars are replaced before a series title becomes a directory.
const invalidPathChars = `<>:"/\|?*`

/*
Sanitize converts a series title into a filesystem-safe directory segment.
Invalid characters become underscores, surrounding dots and spaces are
trimmed, and the result is capped at 200 runes.

Parameters:
  - name: string (Raw series title)

Returns:
  - string: Safe directory segment, "untitled" when nothing survives
*/
func Sanitize(name string) string {
	replaced := strings.Map(func(r rune) rune {
		if strings.ContainsRune(invalidPathChars, r) {
			return '_'
		}
		return r
	}, name)

	trimmed := strings.Trim(replaced, ". ")

	runes := []rune(trimmed)
	if len(runes) > 200 {
		trimmed = string(runes[:200])
	}

	if trimmed == "" {
		return "untitled"
	}
	return trimmed
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package imaging

import (
	"image"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/taibuivan/yakura/internal/ocr"
)

// # Typesetting

const (
	minFontSize = 10
	maxFontSize = 40
	// lineSpacing stretches the face's natural line height.
	lineSpacing = 1.2
)

// fontCache holds the parsed font, which is immutable and shareable.
// Faces are built per use: a font.Face carries internal glyph state that
// is not safe for concurrent pages.
type fontCache struct {
	font *sfnt.Font
	name string
}

// loadFonts picks the first parseable TTF/OTF from dir, falling back to
// the embedded Go Regular face. A missing or empty directory is normal.
func loadFonts(dir string, logger *slog.Logger) (*fontCache, error) {
	if dir != "" {
		if cache := loadFontDir(dir, logger); cache != nil {
			return cache, nil
		}
	}

	parsed, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, err
	}
	return &fontCache{font: parsed, name: "goregular"}, nil
}

func loadFontDir(dir string, logger *slog.Logger) *fontCache {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn("imaging_font_dir_unreadable",
			slog.String("dir", dir),
			slog.String("error", err.Error()))
		return nil
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".ttf" || ext == ".otf" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		parsed, err := opentype.Parse(data)
		if err != nil {
			logger.Warn("imaging_font_unparseable", slog.String("font", name))
			continue
		}
		logger.Info("imaging_font_loaded", slog.String("font", name))
		return &fontCache{font: parsed, name: name}
	}
	return nil
}

func (cache *fontCache) face(size int) (font.Face, error) {
	return opentype.NewFace(cache.font, &opentype.FaceOptions{
		Size:    float64(size),
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

/*
Render typesets translations into their blocks on a cleaned raster.

Description: For each non-empty translation, the largest font size in
[10, 40] whose wrapped lines fit the block is found by binary search.
Lines are centered horizontally and the line stack is centered
vertically. Each line is drawn four times in white at the diagonal
1 px offsets and once in black on top, so text stays readable over
imperfectly cleaned art. Blocks past the end of the translation list
stay blank.

Parameters:
  - dst: *image.RGBA (Cleaned raster, drawn on in place)
  - blocks: []ocr.TextBlock
  - translations: []string (Aligned with blocks)

Returns:
  - *image.RGBA: dst, for composition
*/
func (processor *Processor) Render(dst *image.RGBA, blocks []ocr.TextBlock, translations []string) *image.RGBA {
	for i, block := range blocks {
		if i >= len(translations) {
			break
		}
		text := strings.TrimSpace(translations[i])
		if text == "" {
			continue
		}
		processor.drawBlock(dst, block.BBox, text)
	}
	return dst
}

func (processor *Processor) drawBlock(dst *image.RGBA, box ocr.BBox, text string) {
	size, lines, err := processor.fitText(text, box.W, box.H)
	if err != nil {
		processor.logger.Warn("imaging_face_failed", slog.String("error", err.Error()))
		return
	}

	face, err := processor.fonts.face(size)
	if err != nil {
		processor.logger.Warn("imaging_face_failed", slog.String("error", err.Error()))
		return
	}
	defer face.Close()

	metrics := face.Metrics()
	lineHeight := scaledLineHeight(metrics)
	ascent := metrics.Ascent.Ceil()
	startY := box.Y + (box.H-lineHeight*len(lines))/2

	for lineIndex, line := range lines {
		lineWidth := font.MeasureString(face, line).Ceil()
		x := box.X + (box.W-lineWidth)/2
		y := startY + lineIndex*lineHeight + ascent

		for _, offset := range [4][2]int{{-1, -1}, {-1, 1}, {1, -1}, {1, 1}} {
			drawLine(dst, face, image.White, line, x+offset[0], y+offset[1])
		}
		drawLine(dst, face, image.Black, line, x, y)
	}
}

func drawLine(dst *image.RGBA, face font.Face, src *image.Uniform, line string, x, y int) {
	drawer := font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  fixed.P(x, y),
	}
	drawer.DrawString(line)
}

// fitText binary-searches the largest size whose wrapped lines fit the
// box. When even the minimum overflows, the minimum is used anyway;
// clipped text beats a silent blank bubble.
func (processor *Processor) fitText(text string, width, height int) (int, []string, error) {
	bestSize := minFontSize
	var bestLines []string

	lo, hi := minFontSize, maxFontSize
	for lo <= hi {
		mid := (lo + hi) / 2
		face, err := processor.fonts.face(mid)
		if err != nil {
			return 0, nil, err
		}

		lines := wrapText(text, width, face)
		fits := fitsBox(lines, width, height, face)
		_ = face.Close()

		if fits {
			bestSize = mid
			bestLines = lines
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}

	if bestLines == nil {
		face, err := processor.fonts.face(minFontSize)
		if err != nil {
			return 0, nil, err
		}
		defer face.Close()
		bestLines = wrapText(text, width, face)
	}
	return bestSize, bestLines, nil
}

func fitsBox(lines []string, width, height int, face font.Face) bool {
	if scaledLineHeight(face.Metrics())*len(lines) > height {
		return false
	}
	for _, line := range lines {
		if font.MeasureString(face, line).Ceil() > width {
			return false
		}
	}
	return true
}

func scaledLineHeight(metrics font.Metrics) int {
	return int(math.Round(float64(metrics.Height.Ceil()) * lineSpacing))
}

// wrapText word-wraps text to the pixel width, hard-breaking words that
// are wider than the box on their own.
func wrapText(text string, width int, face font.Face) []string {
	var (
		lines   []string
		current string
	)

	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if font.MeasureString(face, candidate).Ceil() <= width {
			current = candidate
			continue
		}

		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		if font.MeasureString(face, word).Ceil() > width {
			lines, current = breakWord(lines, word, width, face)
			continue
		}
		current = word
	}

	if current != "" {
		lines = append(lines, current)
	}
	if len(lines) == 0 {
		return []string{text}
	}
	return lines
}

// breakWord splits an overlong word into width-sized pieces. The last
// piece stays open so following words can join it.
func breakWord(lines []string, word string, width int, face font.Face) ([]string, string) {
	piece := ""
	for _, r := range word {
		next := piece + string(r)
		if piece != "" && font.MeasureString(face, next).Ceil() > width {
			lines = append(lines, piece)
			piece = string(r)
			continue
		}
		piece = next
	}
	return lines, piece
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package imaging_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/imaging"
	"github.com/taibuivan/yakura/internal/ocr"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestProcessor(t *testing.T, format string) *imaging.Processor {
	t.Helper()
	processor, err := imaging.NewProcessor(imaging.Config{Format: format}, testLogger())
	require.NoError(t, err)
	return processor
}

// uniformPage builds a single-color page with a darker rectangle where
// the source text would be.
func uniformPage(width, height int, fill color.RGBA, inked *ocr.BBox) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	if inked != nil {
		for y := inked.Y; y < inked.Y+inked.H; y++ {
			for x := inked.X; x < inked.X+inked.W; x++ {
				img.SetRGBA(x, y, color.RGBA{A: 255})
			}
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

/*
TestClean_ErasesBoxes checks that the masked region collapses to the
surrounding fill and pixels outside the padded mask stay untouched.
*/
func TestClean_ErasesBoxes(t *testing.T) {
	fill := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	box := ocr.BBox{X: 12, Y: 12, W: 8, H: 8}
	page := uniformPage(40, 40, fill, &box)

	cleaned := imaging.Clean(page, []ocr.BBox{box})

	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			require.Equal(t, fill, cleaned.RGBAAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestClean_CopiesWithoutBoxes(t *testing.T) {
	fill := color.RGBA{R: 10, G: 20, B: 30, A: 255}
	page := uniformPage(8, 8, fill, nil)

	cleaned := imaging.Clean(page, nil)
	require.Equal(t, fill, cleaned.RGBAAt(3, 3))

	cleaned.SetRGBA(3, 3, color.RGBA{A: 255})
	assert.Equal(t, fill, page.RGBAAt(3, 3), "cleaning must not alias the source")
}

/*
TestProcessor_Process runs a page end to end: the inked source block is
erased and the translation is typeset with a black fill and white
outline inside the block.
*/
func TestProcessor_Process(t *testing.T) {
	fill := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	box := ocr.BBox{X: 20, Y: 20, W: 90, H: 50}
	page := encodePNG(t, uniformPage(130, 90, fill, &box))

	processor := newTestProcessor(t, "png")
	blocks := []ocr.TextBlock{{Text: "원문", BBox: box, Confidence: 0.9}}

	data, format, err := processor.Process(context.Background(), page, blocks, []string{"Hi"})
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 130, 90), img.Bounds())

	corner := color.RGBAModel.Convert(img.At(box.X+1, box.Y+1)).(color.RGBA)
	assert.Equal(t, fill, corner, "box corner should be cleaned, text is centered")

	blackInBox, whiteInBox := 0, 0
	for y := box.Y; y < box.Y+box.H; y++ {
		for x := box.X; x < box.X+box.W; x++ {
			pixel := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if pixel.R == 0 && pixel.G == 0 && pixel.B == 0 {
				blackInBox++
			}
			if pixel.R == 255 && pixel.G == 255 && pixel.B == 255 {
				whiteInBox++
			}
		}
	}
	assert.Greater(t, blackInBox, 0, "translation fill missing")
	assert.Greater(t, whiteInBox, 0, "translation outline missing")
}

/*
TestProcessor_ProcessPage verifies the cleaned intermediate: it has the
text erased but nothing typeset, while the final page carries the
translation.
*/
func TestProcessor_ProcessPage(t *testing.T) {
	fill := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	box := ocr.BBox{X: 20, Y: 20, W: 90, H: 50}
	page := encodePNG(t, uniformPage(130, 90, fill, &box))

	processor := newTestProcessor(t, "png")
	blocks := []ocr.TextBlock{{Text: "원문", BBox: box, Confidence: 0.9}}

	result, err := processor.ProcessPage(context.Background(), page, blocks, []string{"Hi"})
	require.NoError(t, err)
	assert.Equal(t, "png", result.Format)
	assert.NotEqual(t, result.Cleaned, result.Final)

	cleanedImg, err := png.Decode(bytes.NewReader(result.Cleaned))
	require.NoError(t, err)
	for y := 0; y < 90; y++ {
		for x := 0; x < 130; x++ {
			pixel := color.RGBAModel.Convert(cleanedImg.At(x, y)).(color.RGBA)
			require.Equal(t, fill, pixel, "cleaned pixel (%d,%d)", x, y)
		}
	}

	finalImg, err := png.Decode(bytes.NewReader(result.Final))
	require.NoError(t, err)
	blackInBox := 0
	for y := box.Y; y < box.Y+box.H; y++ {
		for x := box.X; x < box.X+box.W; x++ {
			pixel := color.RGBAModel.Convert(finalImg.At(x, y)).(color.RGBA)
			if pixel.R == 0 && pixel.G == 0 && pixel.B == 0 {
				blackInBox++
			}
		}
	}
	assert.Greater(t, blackInBox, 0, "translation missing from final page")
}

func TestProcessor_ProcessPage_NoBlocksPassesThrough(t *testing.T) {
	page := encodePNG(t, uniformPage(16, 16, color.RGBA{R: 9, G: 8, B: 7, A: 255}, nil))

	processor := newTestProcessor(t, "png")
	result, err := processor.ProcessPage(context.Background(), page, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, page, result.Final)
	assert.Equal(t, page, result.Cleaned)
	assert.Equal(t, "png", result.Format)
}

func TestProcessor_Process_NoBlocksPassesThrough(t *testing.T) {
	page := encodePNG(t, uniformPage(16, 16, color.RGBA{R: 1, G: 2, B: 3, A: 255}, nil))

	processor := newTestProcessor(t, "png")
	data, format, err := processor.Process(context.Background(), page, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, page, data, "untouched pages must not be re-encoded")
	assert.Equal(t, "png", format)
}

func TestProcessor_Process_EmptyTranslationOnlyCleans(t *testing.T) {
	fill := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	box := ocr.BBox{X: 10, Y: 10, W: 30, H: 20}
	page := encodePNG(t, uniformPage(60, 50, fill, &box))

	processor := newTestProcessor(t, "png")
	blocks := []ocr.TextBlock{{Text: "원문", BBox: box, Confidence: 0.9}}

	data, _, err := processor.Process(context.Background(), page, blocks, []string{""})
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	for y := 0; y < 50; y++ {
		for x := 0; x < 60; x++ {
			pixel := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			require.Equal(t, fill, pixel, "pixel (%d,%d)", x, y)
		}
	}
}

func TestProcessor_Process_JPEGOutput(t *testing.T) {
	fill := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	box := ocr.BBox{X: 10, Y: 10, W: 40, H: 30}
	page := encodePNG(t, uniformPage(60, 50, fill, &box))

	processor := newTestProcessor(t, "jpeg")
	blocks := []ocr.TextBlock{{Text: "원문", BBox: box, Confidence: 0.9}}

	data, format, err := processor.Process(context.Background(), page, blocks, []string{"Ok"})
	require.NoError(t, err)
	assert.Equal(t, "jpg", format)

	img, err := jpeg.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 60, 50), img.Bounds())
}

func TestProcessor_Process_BadPage(t *testing.T) {
	processor := newTestProcessor(t, "png")
	blocks := []ocr.TextBlock{{Text: "x", BBox: ocr.BBox{W: 5, H: 5}, Confidence: 0.9}}

	_, _, err := processor.Process(context.Background(), []byte("not an image"), blocks, []string{"y"})
	assert.Error(t, err)
}

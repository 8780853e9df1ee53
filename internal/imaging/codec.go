// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"net/http"

	"github.com/chai2010/webp"

	// Registers WEBP decoding with image.Decode; scraped pages are
	// frequently served as webp.
	_ "golang.org/x/image/webp"
)

// # Page Codec

// decodePage decodes an encoded page into a raster plus its source
// format tag.
func decodePage(page []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(page))
	if err != nil {
		return nil, "", fmt.Errorf("imaging: failed to decode page: %w", err)
	}
	return img, normalizeFormat(format), nil
}

// encode writes the raster in the configured output format. A webp
// encoder failure degrades to jpeg so a chapter never dies on one
// encoder.
func (processor *Processor) encode(img image.Image) ([]byte, string, error) {
	var buf bytes.Buffer

	switch processor.format {
	case "webp":
		err := webp.Encode(&buf, img, &webp.Options{Quality: float32(processor.quality)})
		if err == nil {
			return buf.Bytes(), "webp", nil
		}
		processor.logger.Warn("imaging_webp_fallback", slog.String("error", err.Error()))
		buf.Reset()
		fallthrough
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: processor.quality}); err != nil {
			return nil, "", fmt.Errorf("imaging: failed to encode page: %w", err)
		}
		return buf.Bytes(), "jpg", nil
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("imaging: failed to encode page: %w", err)
		}
		return buf.Bytes(), "png", nil
	default:
		return nil, "", fmt.Errorf("imaging: unknown output format %q", processor.format)
	}
}

// sniffPageFormat tags untouched pages from their magic bytes so
// passthrough pages keep a truthful extension.
func sniffPageFormat(page []byte) string {
	switch http.DetectContentType(page) {
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	case "image/gif":
		return "gif"
	default:
		return "jpg"
	}
}

func normalizeFormat(format string) string {
	if format == "jpeg" {
		return "jpg"
	}
	return format
}

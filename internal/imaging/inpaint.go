// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package imaging

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/taibuivan/yakura/internal/ocr"
)

// # Inpainting

// inpaintRadius is the circular neighborhood consulted when repairing a
// masked pixel.
const inpaintRadius = 3

/*
Clean erases the given text boxes from a page raster.

Description: Builds a binary mask from the boxes inflated by the padding
margin and clamped to the page, then inpaints the masked region by
peeling it from the boundary inward: each repaired pixel becomes the
distance-weighted average of already known pixels within the inpaint
radius. Speech bubble interiors collapse to the bubble fill this way,
and gradients bleed in smoothly from the edges.

Parameters:
  - img: image.Image (Decoded page)
  - boxes: []ocr.BBox (Text regions in page pixel coordinates)

Returns:
  - *image.RGBA: The cleaned raster, always a copy
*/
func Clean(img image.Image, boxes []ocr.BBox) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	mask, unknown := buildMask(bounds.Dx(), bounds.Dy(), boxes)
	if unknown == 0 {
		return dst
	}

	inpaint(dst, mask, unknown)
	return dst
}

// buildMask rasterizes the padded boxes into a page-sized bitmap and
// counts the masked pixels.
func buildMask(width, height int, boxes []ocr.BBox) ([]bool, int) {
	mask := make([]bool, width*height)
	count := 0

	for _, box := range boxes {
		x1 := max(0, box.X-maskPadding)
		y1 := max(0, box.Y-maskPadding)
		x2 := min(width, box.X+box.W+maskPadding)
		y2 := min(height, box.Y+box.H+maskPadding)

		for y := y1; y < y2; y++ {
			row := y * width
			for x := x1; x < x2; x++ {
				if !mask[row+x] {
					mask[row+x] = true
					count++
				}
			}
		}
	}

	return mask, count
}

// inpaint repairs the masked pixels of dst in place, one boundary layer
// per pass. Each pass reads only pixels known before the pass started,
// so the fill front moves inward uniformly.
func inpaint(dst *image.RGBA, mask []bool, unknown int) {
	width := dst.Rect.Dx()
	height := dst.Rect.Dy()

	type fill struct {
		index int
		pixel color.RGBA
	}

	for unknown > 0 {
		var fills []fill

		for index, masked := range mask {
			if !masked {
				continue
			}
			x := index % width
			y := index / width
			if !hasKnownNeighbor(mask, width, height, x, y) {
				continue
			}
			if pixel, ok := repair(dst, mask, width, height, x, y); ok {
				fills = append(fills, fill{index: index, pixel: pixel})
			}
		}

		// No boundary progress means the remaining region is unreachable,
		// which a rectangular mask cannot produce; bail rather than spin.
		if len(fills) == 0 {
			return
		}

		for _, f := range fills {
			x := f.index % width
			y := f.index / width
			dst.SetRGBA(dst.Rect.Min.X+x, dst.Rect.Min.Y+y, f.pixel)
			mask[f.index] = false
		}
		unknown -= len(fills)
	}
}

// hasKnownNeighbor reports whether any 8-neighbor of (x, y) is already
// known.
func hasKnownNeighbor(mask []bool, width, height, x, y int) bool {
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= width || ny >= height {
				continue
			}
			if !mask[ny*width+nx] {
				return true
			}
		}
	}
	return false
}

// repair computes the distance-weighted average of the known pixels
// within the inpaint radius of (x, y).
func repair(dst *image.RGBA, mask []bool, width, height, x, y int) (color.RGBA, bool) {
	var rSum, gSum, bSum, aSum, weightSum float64

	for dy := -inpaintRadius; dy <= inpaintRadius; dy++ {
		for dx := -inpaintRadius; dx <= inpaintRadius; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || ny < 0 || nx >= width || ny >= height {
				continue
			}
			if mask[ny*width+nx] {
				continue
			}

			distance := math.Sqrt(float64(dx*dx + dy*dy))
			if distance > inpaintRadius {
				continue
			}

			pixel := dst.RGBAAt(dst.Rect.Min.X+nx, dst.Rect.Min.Y+ny)
			weight := 1 / distance
			rSum += weight * float64(pixel.R)
			gSum += weight * float64(pixel.G)
			bSum += weight * float64(pixel.B)
			aSum += weight * float64(pixel.A)
			weightSum += weight
		}
	}

	if weightSum == 0 {
		return color.RGBA{}, false
	}
	return color.RGBA{
		R: uint8(math.Round(rSum / weightSum)),
		G: uint8(math.Round(gSum / weightSum)),
		B: uint8(math.Round(bSum / weightSum)),
		A: uint8(math.Round(aSum / weightSum)),
	}, true
}

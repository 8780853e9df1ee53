// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package ocr turns page images into positioned text blocks.
//
// # Architecture
//
// Detection itself runs in an external engine (an OCR sidecar speaking
// HTTP). [Engine] is the transport port; [Reader] wraps an engine with the
// policy the pipeline relies on: confidence filtering, polygon
// normalization, and stable block order. Engines are expensive to warm up,
// so [Shared] hands every caller the same lazily constructed reader.
package ocr

import (
	"context"
	"strings"
	"sync"
)

// # Types

// Point is one polygon vertex in pixel coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Detection is a raw engine result: a text candidate with its polygon.
type Detection struct {
	Polygon    []Point `json:"polygon"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// BBox is an axis-aligned box in (x, y, w, h) form.
type BBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// TextBlock is one accepted piece of page text with its bounding box.
type TextBlock struct {
	Text       string  `json:"text"`
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// Engine detects text candidates in one image.
type Engine interface {

	/*
		Detect runs text detection on a single image.

		Parameters:
		  - context: context.Context
		  - image: []byte (Encoded image bytes)

		Returns:
		  - []Detection: Candidates in engine order, may be empty
		  - error: Transport or engine failures
	*/
	Detect(context context.Context, image []byte) ([]Detection, error)
}

// # Reader

// MinConfidence is the default floor below which detections are discarded.
const MinConfidence = 0.5

// Reader applies pipeline policy on top of a detection engine.
type Reader struct {
	engine        Engine
	minConfidence float64
}

// NewReader wraps an engine with the given confidence floor.
func NewReader(engine Engine, minConfidence float64) *Reader {
	if minConfidence <= 0 {
		minConfidence = MinConfidence
	}
	return &Reader{engine: engine, minConfidence: minConfidence}
}

var (
	sharedReader *Reader
	sharedOnce   sync.Once
)

/*
Shared returns the process-wide reader, constructing it on first use.

Engines hold warmed-up models, so every pipeline in the process shares one
reader instead of paying the warm-up per job. The first caller's arguments
win; later arguments are ignored.

Parameters:
  - engine: Engine
  - minConfidence: float64 (Zero selects the default)

Returns:
  - *Reader: The singleton reader
*/
func Shared(engine Engine, minConfidence float64) *Reader {
	sharedOnce.Do(func() {
		sharedReader = NewReader(engine, minConfidence)
	})
	return sharedReader
}

/*
DetectBlocks detects text blocks in one page image.

Description: Runs the engine, drops candidates under the confidence floor
or with empty text, normalizes polygons to axis-aligned boxes, and keeps
the engine's ordering. A page without text yields an empty slice, not an
error.

Parameters:
  - context: context.Context
  - image: []byte (Encoded page bytes)

Returns:
  - []TextBlock: Accepted blocks in engine order
  - error: Engine failures only
*/
func (reader *Reader) DetectBlocks(context context.Context, image []byte) ([]TextBlock, error) {
	detections, err := reader.engine.Detect(context, image)
	if err != nil {
		return nil, err
	}

	blocks := make([]TextBlock, 0, len(detections))
	for _, detection := range detections {
		if detection.Confidence < reader.minConfidence {
			continue
		}

		text := strings.TrimSpace(detection.Text)
		if text == "" {
			continue
		}

		blocks = append(blocks, TextBlock{
			Text:       text,
			BBox:       boundingBox(detection.Polygon),
			Confidence: detection.Confidence,
		})
	}

	return blocks, nil
}

// boundingBox reduces a polygon to its axis-aligned (x, y, w, h) box.
func boundingBox(polygon []Point) BBox {
	if len(polygon) == 0 {
		return BBox{}
	}

	minX, minY := polygon[0].X, polygon[0].Y
	maxX, maxY := polygon[0].X, polygon[0].Y
	for _, point := range polygon[1:] {
		if point.X < minX {
			minX = point.X
		}
		if point.Y < minY {
			minY = point.Y
		}
		if point.X > maxX {
			maxX = point.X
		}
		if point.Y > maxY {
			maxY = point.Y
		}
	}

	return BBox{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

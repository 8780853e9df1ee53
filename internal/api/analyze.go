// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taibuivan/yakura/internal/batch"
	"github.com/taibuivan/yakura/internal/pipeline"
	requestutil "github.com/taibuivan/yakura/internal/platform/request"
	"github.com/taibuivan/yakura/internal/platform/respond"
	"github.com/taibuivan/yakura/internal/platform/validate"
	"github.com/taibuivan/yakura/internal/scrape"
)

// # Analyze Handler

// AnalyzeHandler inspects a chapter URL without running the pipeline.
// Operators use it to check which site adapter and language detection a
// URL resolves to before committing a batch.
type AnalyzeHandler struct {
	scraper *scrape.Service
}

// NewAnalyzeHandler constructs an [AnalyzeHandler].
func NewAnalyzeHandler(scraper *scrape.Service) *AnalyzeHandler {
	return &AnalyzeHandler{scraper: scraper}
}

// Routes returns a [chi.Router] with the analyze endpoint.
func (handler *AnalyzeHandler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/", handler.analyze)

	return router
}

// # Payloads

// analyzeRequest defines the inbound JSON schema for URL inspection.
type analyzeRequest struct {
	URL string `json:"url"`
}

// analyzeResponse reports what the worker would derive from a chapter URL.
type analyzeResponse struct {
	URL            string `json:"url"`
	Site           string `json:"site"`
	SourceLang     string `json:"source_lang"`
	ChapterNumber  int    `json:"chapter_number"`
	NextChapterURL string `json:"next_chapter_url"`
}

// # Endpoint

/*
POST /internal/v1/analyze.

Description: Resolves a chapter URL to its site adapter, the language the
URL pattern suggests, and the chapter numbering a batch expansion would use.
No network request leaves the worker.

Request (Body):
  - analyzeRequest: JSON object

Response:
  - 200: analyzeResponse: Success
  - 400: 400: ErrInvalidJSON/Validation: Invalid URL
*/
func (handler *AnalyzeHandler) analyze(writer http.ResponseWriter, request *http.Request) {
	// Strict JSON decoding
	var input analyzeRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Syntactic validation
	validator := &validate.Validator{}
	validator.Required("url", input.URL)
	if input.URL != "" {
		validator.URL("url", input.URL)
	}
	if err := validator.Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Static URL analysis
	adapter := handler.scraper.AdapterFor(input.URL)
	chapterNumber := batch.ChapterNumber(input.URL)

	// Structured API Response
	respond.OK(writer, analyzeResponse{
		URL:            input.URL,
		Site:           adapter.Name(),
		SourceLang:     pipeline.DetectSourceLang(input.URL),
		ChapterNumber:  chapterNumber,
		NextChapterURL: batch.ChapterURL(input.URL, chapterNumber+1),
	})
}

// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	googleuuid "github.com/google/uuid"

	"github.com/taibuivan/yakura/internal/glossary"
	requestutil "github.com/taibuivan/yakura/internal/platform/request"
	"github.com/taibuivan/yakura/internal/platform/respond"
	"github.com/taibuivan/yakura/internal/platform/validate"
	"github.com/taibuivan/yakura/pkg/pagination"
	"github.com/taibuivan/yakura/pkg/slice"
)

// # Glossaries Handler

// GlossariesHandler exposes read-only access to the per-series term
// dictionaries built up by translation runs. Writes happen only inside
// the pipeline; operators use these endpoints to inspect what a series
// has accumulated.
type GlossariesHandler struct {
	service *glossary.Service
}

// NewGlossariesHandler constructs a [GlossariesHandler].
func NewGlossariesHandler(service *glossary.Service) *GlossariesHandler {
	return &GlossariesHandler{service: service}
}

// Routes returns a [chi.Router] with the glossary read endpoints.
func (handler *GlossariesHandler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/{series}", handler.getStats)
	router.Get("/{series}/entries", handler.listEntries)

	return router
}

// # Response Payloads

// glossaryEntryResponse is the outbound JSON schema for one dictionary entry.
type glossaryEntryResponse struct {
	ID          string    `json:"id"`
	Original    string    `json:"original"`
	Translation string    `json:"translation"`
	ProperNoun  string    `json:"proper_noun"`
	UsageCount  int       `json:"usage_count"`
	LastUsedAt  time.Time `json:"last_used_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// glossaryStatsResponse is the outbound JSON schema for dictionary stats.
type glossaryStatsResponse struct {
	DictionaryID string                  `json:"dictionary_id"`
	EntryCount   int                     `json:"entry_count"`
	ProperNouns  int                     `json:"proper_nouns"`
	MostUsed     []glossaryEntryResponse `json:"most_used"`
}

func toEntryResponse(entry glossary.Entry) glossaryEntryResponse {
	return glossaryEntryResponse{
		ID:          entry.ID,
		Original:    entry.Original,
		Translation: entry.Translation,
		ProperNoun:  entry.ProperNoun.String(),
		UsageCount:  entry.UsageCount,
		LastUsedAt:  entry.LastUsedAt,
		CreatedAt:   entry.CreatedAt,
	}
}

// # Read Endpoints

/*
GET /internal/v1/glossaries/{series}.

Description: Retrieves aggregate stats for a series' dictionary in a given
language pair. The series segment accepts either the dictionary series UUID
or a plain series title, which is normalized to its stable key.

Request:
  - series: string (UUID or title)
  - source_lang: string (ISO 639-1)
  - target_lang: string (ISO 639-1)

Response:
  - 200: glossaryStatsResponse: Success
  - 400: 400: Validation: Missing or malformed language pair
  - 404: 404: ErrNotFound: Series has no dictionary for this pair
*/
func (handler *GlossariesHandler) getStats(writer http.ResponseWriter, request *http.Request) {
	// Extract identifiers
	seriesID := resolveSeriesID(requestutil.ID(request, "series"))
	sourceLang, targetLang, err := languagePair(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Domain Logic Execution
	stats, err := handler.service.StatsBySeries(request.Context(), seriesID, sourceLang, targetLang)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	mostUsed := make([]glossaryEntryResponse, 0, len(stats.MostUsed))
	for _, entry := range stats.MostUsed {
		mostUsed = append(mostUsed, toEntryResponse(entry))
	}
	respond.OK(writer, glossaryStatsResponse{
		DictionaryID: stats.DictionaryID,
		EntryCount:   stats.EntryCount,
		ProperNouns:  stats.ProperNouns,
		MostUsed:     mostUsed,
	})
}

/*
GET /internal/v1/glossaries/{series}/entries.

Description: Retrieves one page of a series' dictionary entries, most used
first.

Request:
  - series: string (UUID or title)
  - source_lang: string (ISO 639-1)
  - target_lang: string (ISO 639-1)
  - limit: int
  - page: int

Response:
  - 200: []glossaryEntryResponse: Paginated list
  - 400: 400: Validation: Missing or malformed language pair
  - 404: 404: ErrNotFound: Series has no dictionary for this pair
*/
func (handler *GlossariesHandler) listEntries(writer http.ResponseWriter, request *http.Request) {
	// Extract identifiers
	seriesID := resolveSeriesID(requestutil.ID(request, "series"))
	sourceLang, targetLang, err := languagePair(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Pagination extraction using pkg/pagination
	paginationParams := pagination.FromRequest(request)

	// Domain Logic Execution
	entries, total, err := handler.service.EntriesBySeries(request.Context(), seriesID, sourceLang, targetLang, paginationParams)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	items := slice.Map(entries, toEntryResponse)
	respond.Paginated(writer, items, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

// # Helpers

// resolveSeriesID maps the path segment to a dictionary series id. A UUID
// passes through unchanged; anything else is treated as a series title.
// Routers hand the segment over percent-encoded, so titles with spaces
// decode before key derivation.
func resolveSeriesID(identifier string) string {
	if decoded, err := url.PathUnescape(identifier); err == nil {
		identifier = decoded
	}
	if googleuuid.Validate(identifier) == nil {
		return identifier
	}
	return glossary.SeriesKey(identifier)
}

// languagePair reads and validates the mandatory language pair query params.
func languagePair(request *http.Request) (sourceLang, targetLang string, err error) {
	queryParams := request.URL.Query()
	sourceLang = queryParams.Get("source_lang")
	targetLang = queryParams.Get("target_lang")

	validator := &validate.Validator{}
	validator.Required("source_lang", sourceLang)
	if sourceLang != "" {
		validator.Lang("source_lang", sourceLang)
	}
	validator.Required("target_lang", targetLang)
	if targetLang != "" {
		validator.Lang("target_lang", targetLang)
	}
	if err := validator.Err(); err != nil {
		return "", "", err
	}
	return sourceLang, targetLang, nil
}

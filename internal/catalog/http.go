// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	requestutil "github.com/taibuivan/yakura/internal/platform/request"
	"github.com/taibuivan/yakura/internal/platform/respond"
	"github.com/taibuivan/yakura/pkg/pagination"
)

// # Handler Implementation

// Handler implements the HTTP layer for catalog browsing.
// It translates web requests into domain service calls.
type Handler struct {
	service *Service
}

// NewHandler constructs a catalog [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with the catalog's endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Get("/", handler.listSeries)
	router.Get("/{identifier}", handler.getSeries)
	router.Get("/{seriesID}/chapters", handler.listChapters)

	return router
}

// # Series Endpoints

/*
GET /internal/v1/series.

Description: Retrieves a paginated list of published series. Supports
free-text title search and filtering by scrape origin.

Request:
  - q: string (Title search)
  - site: string (Source site hostname)
  - sort: string (latest, az, za)
  - limit: int
  - page: int

Response:
  - 200: []Series: Paginated list of series
*/
func (handler *Handler) listSeries(writer http.ResponseWriter, request *http.Request) {
	// Pagination extraction using pkg/pagination
	paginationParams := pagination.FromRequest(request)

	// Query filter assembly
	queryParams := request.URL.Query()
	filter := Filter{
		Query:      queryParams.Get("q"),
		SourceSite: queryParams.Get("site"),
		Sort:       queryParams.Get("sort"),
	}

	// Domain Logic Execution
	seriesList, total, err := handler.service.ListSeries(request.Context(), filter, paginationParams)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.Paginated(writer, seriesList, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /internal/v1/series/{identifier}.

Description: Retrieves one series using either its UUID or its slug.
UUID lookups take precedence.

Request:
  - identifier: string (UUID or slug)

Response:
  - 200: Series: Success
  - 404: 404: ErrNotFound: Series not found
*/
func (handler *Handler) getSeries(writer http.ResponseWriter, request *http.Request) {
	// Extract identifier from URL
	identifier := requestutil.ID(request, "identifier")

	// Domain Logic Execution
	series, err := handler.service.GetSeries(request.Context(), identifier)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.OK(writer, series)
}

/*
GET /internal/v1/series/{seriesID}/chapters.

Description: Returns a paginated roster of a series' chapters, each with
the language pairs it was rendered in and their storage paths.

Request:
  - seriesID: string (UUID)
  - limit: int
  - page: int

Response:
  - 200: []Chapter: Paginated list, chapter number ascending
*/
func (handler *Handler) listChapters(writer http.ResponseWriter, request *http.Request) {
	// Extract series ID from URL
	seriesID := requestutil.ID(request, "seriesID")

	// Pagination extraction using pkg/pagination
	paginationParams := pagination.FromRequest(request)

	// Domain Logic Execution
	chapters, total, err := handler.service.ListChapters(request.Context(), seriesID, paginationParams)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	// Structured API Response
	respond.Paginated(writer, chapters, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

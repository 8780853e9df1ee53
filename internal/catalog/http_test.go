// Copyright (c) 2026 Yakura. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/yakura/internal/catalog"
	"github.com/taibuivan/yakura/internal/platform/apperr"
	"github.com/taibuivan/yakura/pkg/pagination"
)

// # Test Doubles

// fakeStore is a canned [catalog.Store] for handler tests.
type fakeStore struct {
	series   []catalog.Series
	chapters []catalog.Chapter

	filters    []catalog.Filter
	idLookups  []string
	slugLookup []string
	chapterIDs []string
}

func (f *fakeStore) ListSeries(_ context.Context, filter catalog.Filter, _ pagination.Params) ([]catalog.Series, int, error) {
	f.filters = append(f.filters, filter)
	return f.series, len(f.series), nil
}

func (f *fakeStore) SeriesByID(_ context.Context, id string) (*catalog.Series, error) {
	f.idLookups = append(f.idLookups, id)
	for index := range f.series {
		if f.series[index].ID == id {
			return &f.series[index], nil
		}
	}
	return nil, apperr.NotFound("series")
}

func (f *fakeStore) SeriesBySlug(_ context.Context, slug string) (*catalog.Series, error) {
	f.slugLookup = append(f.slugLookup, slug)
	for index := range f.series {
		if f.series[index].Slug == slug {
			return &f.series[index], nil
		}
	}
	return nil, apperr.NotFound("series")
}

func (f *fakeStore) ListChapters(_ context.Context, seriesID string, _ pagination.Params) ([]catalog.Chapter, int, error) {
	f.chapterIDs = append(f.chapterIDs, seriesID)
	return f.chapters, len(f.chapters), nil
}

// # Fixtures

const seriesID = "3f8e4d2a-1111-7222-8333-444455556666"

func seededStore() *fakeStore {
	published := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	return &fakeStore{
		series: []catalog.Series{{
			ID:           seriesID,
			Title:        "Solo Leveling",
			Slug:         "solo-leveling",
			SourceSite:   "asurascans.com",
			ChapterCount: 2,
			CreatedAt:    published,
			UpdatedAt:    published,
		}},
		chapters: []catalog.Chapter{{
			ID:            "chapter-1",
			SeriesID:      seriesID,
			ChapterNumber: 7,
			PageCount:     42,
			SourceURL:     "https://asurascans.com/solo-leveling-chapter-7",
			CreatedAt:     published,
			Translations: []catalog.Translation{{
				ID:          "translation-1",
				SourceLang:  "ko",
				TargetLang:  "tr",
				Backend:     1,
				StoragePath: "/results/solo-leveling/ko-tr/007",
				PageCount:   42,
				PublishedAt: published,
			}},
		}},
	}
}

func newRouter(store *fakeStore) http.Handler {
	return catalog.NewHandler(catalog.NewService(store)).Routes()
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, path, nil))
	return recorder
}

func decode[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&value))
	return value
}

// # Tests

/*
TestListSeries verifies series listing normalizes the free-text query the
same way the publisher normalizes titles before it reaches the store.
*/
func TestListSeries(t *testing.T) {
	store := seededStore()
	router := newRouter(store)

	recorder := get(t, router, "/?q=Solo-Leveling%21%21&site=asurascans.com&sort=az")

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decode[struct {
		Data []struct {
			Title        string `json:"title"`
			Slug         string `json:"slug"`
			ChapterCount int    `json:"chapter_count"`
		} `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}](t, recorder)

	require.Len(t, body.Data, 1)
	assert.Equal(t, "Solo Leveling", body.Data[0].Title)
	assert.Equal(t, 2, body.Data[0].ChapterCount)
	assert.Equal(t, 1, body.Meta.Total)

	require.Len(t, store.filters, 1)
	assert.Equal(t, "sololeveling", store.filters[0].Query)
	assert.Equal(t, "asurascans.com", store.filters[0].SourceSite)
	assert.Equal(t, "az", store.filters[0].Sort)
}

/*
TestGetSeries verifies the identifier segment routes UUIDs to the primary
key lookup and everything else to the slug lookup.
*/
func TestGetSeries(t *testing.T) {
	t.Run("by_uuid", func(t *testing.T) {
		store := seededStore()
		recorder := get(t, newRouter(store), "/"+seriesID)

		require.Equal(t, http.StatusOK, recorder.Code)
		assert.Equal(t, []string{seriesID}, store.idLookups)
		assert.Empty(t, store.slugLookup)
	})

	t.Run("by_slug", func(t *testing.T) {
		store := seededStore()
		recorder := get(t, newRouter(store), "/solo-leveling")

		require.Equal(t, http.StatusOK, recorder.Code)
		body := decode[struct {
			Data struct {
				ID   string `json:"id"`
				Slug string `json:"slug"`
			} `json:"data"`
		}](t, recorder)
		assert.Equal(t, seriesID, body.Data.ID)
		assert.Equal(t, []string{"solo-leveling"}, store.slugLookup)
		assert.Empty(t, store.idLookups)
	})

	t.Run("not_found", func(t *testing.T) {
		recorder := get(t, newRouter(seededStore()), "/unknown-series")

		require.Equal(t, http.StatusNotFound, recorder.Code)
	})
}

/*
TestListChapters verifies the chapter roster carries each chapter's
published language pairs with their storage paths.
*/
func TestListChapters(t *testing.T) {
	store := seededStore()
	recorder := get(t, newRouter(store), "/"+seriesID+"/chapters")

	require.Equal(t, http.StatusOK, recorder.Code)
	body := decode[struct {
		Data []struct {
			ChapterNumber int `json:"chapter_number"`
			PageCount     int `json:"page_count"`
			Translations  []struct {
				SourceLang  string `json:"source_lang"`
				TargetLang  string `json:"target_lang"`
				Backend     int    `json:"backend"`
				StoragePath string `json:"storage_path"`
			} `json:"translations"`
		} `json:"data"`
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}](t, recorder)

	require.Len(t, body.Data, 1)
	assert.Equal(t, 7, body.Data[0].ChapterNumber)
	assert.Equal(t, 42, body.Data[0].PageCount)
	require.Len(t, body.Data[0].Translations, 1)
	assert.Equal(t, "ko", body.Data[0].Translations[0].SourceLang)
	assert.Equal(t, "tr", body.Data[0].Translations[0].TargetLang)
	assert.Equal(t, 1, body.Data[0].Translations[0].Backend)
	assert.Equal(t, "/results/solo-leveling/ko-tr/007", body.Data[0].Translations[0].StoragePath)

	assert.Equal(t, []string{seriesID}, store.chapterIDs)
}

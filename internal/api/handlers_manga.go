// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/mangashelf/internal/cache"
	"github.com/tomtom215/mangashelf/internal/mangadex"
	"github.com/tomtom215/mangashelf/internal/validation"
)

// List defaults.
const (
	defaultMangaLimit = 12
	defaultFeedLimit  = 100
)

// Public order names that pin the route's ordering.
const (
	orderPopular = "popular"
	orderLatest  = "latest"
)

var (
	mangaIncludes   = []string{mangadex.RelCoverArt, mangadex.RelAuthor, mangadex.RelArtist}
	chapterIncludes = []string{mangadex.RelManga, mangadex.RelScanlationGroup}
)

// SearchManga lists manga, optionally filtered by title.
//
// @Summary Search manga
// @Description Lists manga with chapters available in the requested language. Results are cached for five minutes.
// @Tags Manga
// @Produce json
// @Param limit query int false "Page size (1-100)" default(12)
// @Param offset query int false "Offset; limit+offset must not exceed 10000" default(0)
// @Param language query string false "Language code" default(vi)
// @Param title query string false "Title search"
// @Param order query string false "latest, popular, newest, relevance (with title), rating or title"
// @Param contentRating query []string false "safe, suggestive, erotica, pornographic" collectionFormat(csv)
// @Success 200 {object} APIResponse{data=[]mangadex.MangaSummary}
// @Failure 400 {object} APIResponse "Validation error"
// @Failure 500 {object} APIResponse "MangaDex call failed"
// @Router /manga [get]
func (h *Handler) SearchManga(w http.ResponseWriter, r *http.Request) {
	h.listManga(w, r, getStringParam(r, "order", ""))
}

// PopularManga lists the most followed manga.
//
// @Summary Popular manga
// @Tags Manga
// @Produce json
// @Param limit query int false "Page size (1-100)" default(12)
// @Param offset query int false "Offset" default(0)
// @Param language query string false "Language code" default(vi)
// @Success 200 {object} APIResponse{data=[]mangadex.MangaSummary}
// @Router /manga/popular [get]
func (h *Handler) PopularManga(w http.ResponseWriter, r *http.Request) {
	h.listManga(w, r, orderPopular)
}

// LatestManga lists manga by most recent chapter upload.
//
// @Summary Latest updates
// @Tags Manga
// @Produce json
// @Param limit query int false "Page size (1-100)" default(12)
// @Param offset query int false "Offset" default(0)
// @Param language query string false "Language code" default(vi)
// @Success 200 {object} APIResponse{data=[]mangadex.MangaSummary}
// @Router /manga/latest [get]
func (h *Handler) LatestManga(w http.ResponseWriter, r *http.Request) {
	h.listManga(w, r, orderLatest)
}

func (h *Handler) listManga(w http.ResponseWriter, r *http.Request, order string) {
	rw := NewResponseWriter(w, r)

	page, err := readPage(r, defaultMangaLimit)
	if err != nil {
		rw.Fail(err)
		return
	}
	req := MangaListRequest{
		Page:          page,
		Language:      getStringParam(r, "language", h.defaultLanguage()),
		Title:         getStringParam(r, "title", ""),
		Order:         order,
		ContentRating: getListParam(r, "contentRating", mangadex.DefaultContentRatings),
	}
	if err := validate(&req); err != nil {
		rw.Fail(err)
		return
	}
	if req.Order == "relevance" && req.Title == "" {
		rw.Fail(validation.NewFieldError("order", "relevance", req.Order, "order relevance requires a title"))
		return
	}

	q := mangadex.NewQuery().
		Limit(req.Limit).
		Offset(req.Offset).
		Title(req.Title).
		AvailableTranslatedLanguage(req.Language).
		ContentRating(req.ContentRating...).
		Includes(mangadex.RelCoverArt)
	if field, ok := mangadex.OrderField(req.Order); ok {
		dir := mangadex.Desc
		if req.Order == "title" {
			dir = mangadex.Asc
		}
		q.Order(field, dir)
	}

	resp, err := callCached[mangadex.CollectionResponse[mangadex.MangaAttributes]](r, h.gateway, "/manga", q)
	if err != nil {
		rw.Fail(err)
		return
	}

	data := h.reshaper.MangaSummaries(resp.Data, req.Language)
	rw.SuccessWithPagination(data, NewPagination(resp.Total, len(data), req.Offset, req.Limit))
}

// ListTags returns every MangaDex tag.
//
// @Summary Manga tags
// @Tags Manga
// @Produce json
// @Param language query string false "Language code" default(vi)
// @Success 200 {object} APIResponse{data=[]mangadex.Tag}
// @Router /manga/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := LanguageRequest{Language: getStringParam(r, "language", h.defaultLanguage())}
	if err := validate(&req); err != nil {
		rw.Fail(err)
		return
	}

	resp, err := callCached[mangadex.CollectionResponse[mangadex.TagAttributes]](r, h.gateway, "/manga/tag", mangadex.NewQuery())
	if err != nil {
		rw.Fail(err)
		return
	}
	rw.Success(mangadex.Tags(resp.Data, req.Language))
}

// GetManga returns one manga with its cover, authors and artists.
//
// @Summary Manga detail
// @Tags Manga
// @Produce json
// @Param id path string true "Manga UUID"
// @Param language query string false "Language code" default(vi)
// @Success 200 {object} APIResponse{data=mangadex.MangaDetail}
// @Failure 404 {object} APIResponse "Unknown manga"
// @Router /manga/{id} [get]
func (h *Handler) GetManga(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, lang, err := h.entityParams(r)
	if err != nil {
		rw.Fail(err)
		return
	}

	q := mangadex.NewQuery().Includes(mangaIncludes...)
	resp, err := callCached[mangadex.EntityResponse[mangadex.MangaAttributes]](r, h.gateway, "/manga/"+id, q)
	if err != nil {
		rw.Fail(err)
		return
	}
	rw.Success(h.reshaper.MangaDetail(resp.Data, lang))
}

// GetMangaFeed lists the chapters of a manga.
//
// @Summary Chapter feed
// @Tags Manga
// @Produce json
// @Param id path string true "Manga UUID"
// @Param limit query int false "Page size (1-100)" default(100)
// @Param offset query int false "Offset" default(0)
// @Param language query string false "Chapter language" default(vi)
// @Param order query string false "asc or desc by chapter number" default(asc)
// @Success 200 {object} APIResponse{data=[]mangadex.ChapterSummary}
// @Router /manga/{id}/feed [get]
func (h *Handler) GetMangaFeed(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := chi.URLParam(r, "id")
	if err := validate(&IDRequest{ID: id}); err != nil {
		rw.Fail(err)
		return
	}
	page, err := readPage(r, defaultFeedLimit)
	if err != nil {
		rw.Fail(err)
		return
	}
	req := FeedRequest{
		Page:     page,
		Language: getStringParam(r, "language", h.defaultLanguage()),
		Order:    getStringParam(r, "order", mangadex.Asc),
	}
	if err := validate(&req); err != nil {
		rw.Fail(err)
		return
	}

	q := mangadex.NewQuery().
		Limit(req.Limit).
		Offset(req.Offset).
		TranslatedLanguage(req.Language).
		Includes(mangadex.RelScanlationGroup).
		Order("chapter", req.Order)

	resp, err := callCached[mangadex.CollectionResponse[mangadex.ChapterAttributes]](r, h.gateway, "/manga/"+id+"/feed", q)
	if err != nil {
		rw.Fail(err)
		return
	}

	data := mangadex.ChapterSummaries(resp.Data)
	rw.SuccessWithPagination(data, NewPagination(resp.Total, len(data), req.Offset, req.Limit))
}

// GetChapter returns one chapter with its manga and scanlation group.
//
// @Summary Chapter detail
// @Tags Chapters
// @Produce json
// @Param id path string true "Chapter UUID"
// @Param language query string false "Language for the manga title" default(vi)
// @Success 200 {object} APIResponse{data=mangadex.ChapterDetail}
// @Router /chapter/{id} [get]
func (h *Handler) GetChapter(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id, lang, err := h.entityParams(r)
	if err != nil {
		rw.Fail(err)
		return
	}

	q := mangadex.NewQuery().Includes(chapterIncludes...)
	resp, err := callCached[mangadex.EntityResponse[mangadex.ChapterAttributes]](r, h.gateway, "/chapter/"+id, q)
	if err != nil {
		rw.Fail(err)
		return
	}
	rw.Success(mangadex.ChapterDetailFrom(resp.Data, lang))
}

// GetAtHomeServer returns the page image URLs of a chapter. MangaDex@Home
// URLs expire, so this route is never cached.
//
// @Summary Chapter pages
// @Tags Chapters
// @Produce json
// @Param id path string true "Chapter UUID"
// @Param dataSaver query bool false "Use the compressed image set" default(false)
// @Success 200 {object} APIResponse{data=mangadex.PageSet}
// @Router /at-home/server/{id} [get]
func (h *Handler) GetAtHomeServer(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	id := chi.URLParam(r, "id")
	if err := validate(&IDRequest{ID: id}); err != nil {
		rw.Fail(err)
		return
	}
	dataSaver, err := getBoolParam(r, "dataSaver", false)
	if err != nil {
		rw.Fail(err)
		return
	}

	resp, err := mangadex.CallJSON[mangadex.AtHomeResponse](r.Context(), h.gateway, "/at-home/server/"+id, nil, "")
	if err != nil {
		rw.Fail(err)
		return
	}
	rw.Success(mangadex.PageSetFrom(id, resp, dataSaver))
}

// entityParams validates the {id} path parameter and the language query.
func (h *Handler) entityParams(r *http.Request) (id, lang string, err error) {
	id = chi.URLParam(r, "id")
	if err := validate(&IDRequest{ID: id}); err != nil {
		return "", "", err
	}
	req := LanguageRequest{Language: getStringParam(r, "language", h.defaultLanguage())}
	if err := validate(&req); err != nil {
		return "", "", err
	}
	return id, req.Language, nil
}

// callCached fetches path through the gateway under a key derived from the
// path and the upstream query, so every distinct upstream request is cached
// once whatever language the response is reshaped into.
func callCached[T any](r *http.Request, gw *mangadex.Gateway, path string, q *mangadex.Query) (*T, error) {
	params := q.Values()
	key := cache.GenerateKey("mangadex:"+path, params)
	return mangadex.CallJSON[T](r.Context(), gw, path, params, key)
}

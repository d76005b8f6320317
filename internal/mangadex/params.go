// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package mangadex

import (
	"net/url"
	"strconv"
)

// Order directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// DefaultContentRatings excludes erotica and pornographic titles.
var DefaultContentRatings = []string{"safe", "suggestive"}

// Named list orders accepted by the search route.
var searchOrders = map[string]string{
	"latest":    "latestUploadedChapter",
	"popular":   "followedCount",
	"newest":    "createdAt",
	"relevance": "relevance",
	"rating":    "rating",
	"title":     "title",
}

// OrderField maps a public order name ("popular") to the MangaDex field.
func OrderField(name string) (string, bool) {
	field, ok := searchOrders[name]
	return field, ok
}

// Query builds MangaDex query strings, including the bracketed array keys.
//
//	q := mangadex.NewQuery().Limit(12).TranslatedLanguage("vi").Order("followedCount", mangadex.Desc)
type Query struct {
	v url.Values
}

// NewQuery returns an empty query.
func NewQuery() *Query {
	return &Query{v: url.Values{}}
}

func (q *Query) Limit(n int) *Query {
	q.v.Set("limit", strconv.Itoa(n))
	return q
}

func (q *Query) Offset(n int) *Query {
	q.v.Set("offset", strconv.Itoa(n))
	return q
}

// Title sets the title search; empty is ignored.
func (q *Query) Title(title string) *Query {
	if title != "" {
		q.v.Set("title", title)
	}
	return q
}

// TranslatedLanguage filters chapters by language.
func (q *Query) TranslatedLanguage(langs ...string) *Query {
	return q.add("translatedLanguage[]", langs)
}

// AvailableTranslatedLanguage filters manga that have chapters in a language.
func (q *Query) AvailableTranslatedLanguage(langs ...string) *Query {
	return q.add("availableTranslatedLanguage[]", langs)
}

func (q *Query) ContentRating(ratings ...string) *Query {
	return q.add("contentRating[]", ratings)
}

// Includes expands relationship types (cover_art, author, ...).
func (q *Query) Includes(types ...string) *Query {
	return q.add("includes[]", types)
}

// Order sets order[field]=dir.
func (q *Query) Order(field, dir string) *Query {
	q.v.Set("order["+field+"]", dir)
	return q
}

// Values returns the built query.
func (q *Query) Values() url.Values {
	return q.v
}

func (q *Query) add(key string, values []string) *Query {
	for _, v := range values {
		if v != "" {
			q.v.Add(key, v)
		}
	}
	return q
}

// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package testinfra

import (
	"fmt"
	"strings"
)

// Fixture identifiers shared by MangaDex payloads.
const (
	FixtureMangaID   = "a1c7c817-4e59-43b7-9365-09675a149a6f"
	FixtureChapterID = "0d2a8a1c-1b5c-4d6e-9f3a-2b7c8d9e0f11"
	FixtureCoverFile = "5f0c9b5e-cover.jpg"
	FixtureAtHomeURL = "https://cdn.example.org"
	FixtureHash      = "3f1d9c0a7b"
)

// FixtureID returns a deterministic UUID for the i-th generated entity.
func FixtureID(i int) string {
	return fmt.Sprintf("00000000-0000-4000-8000-%012d", i)
}

// MangaEntityJSON is one manga entity with cover_art, author and artist expanded.
func MangaEntityJSON(id, title string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "type": "manga",
  "attributes": {
    "title": {"en": %q},
    "altTitles": [{"vi": "%s (VI)"}, {"ja": "%s JA"}],
    "description": {"en": "An English description.", "vi": "Mô tả tiếng Việt."},
    "links": {"al": "30013"},
    "originalLanguage": "ja",
    "lastVolume": "",
    "lastChapter": "",
    "publicationDemographic": "shounen",
    "status": "ongoing",
    "year": 2020,
    "contentRating": "safe",
    "tags": [
      {"id": "391b0423-d847-456f-aff0-8b0cfc03066b", "type": "tag", "attributes": {"name": {"en": "Action"}, "group": "genre"}, "relationships": []}
    ],
    "availableTranslatedLanguages": ["en", "vi"],
    "latestUploadedChapter": %q,
    "createdAt": "2020-01-01T00:00:00+00:00",
    "updatedAt": "2024-05-01T00:00:00+00:00"
  },
  "relationships": [
    {"id": "11111111-1111-4111-8111-111111111111", "type": "author", "attributes": {"name": "Author Name"}},
    {"id": "22222222-2222-4222-8222-222222222222", "type": "artist", "attributes": {"name": "Artist Name"}},
    {"id": "33333333-3333-4333-8333-333333333333", "type": "cover_art", "attributes": {"fileName": %q, "volume": "1", "locale": "ja"}}
  ]
}`, id, title, title, title, FixtureChapterID, FixtureCoverFile)
}

// MangaResponseJSON wraps a manga entity in the single-entity envelope.
func MangaResponseJSON(id, title string) string {
	return `{"result":"ok","response":"entity","data":` + MangaEntityJSON(id, title) + `}`
}

// MangaCollectionJSON is a manga list page with n entries.
func MangaCollectionJSON(n, limit, offset, total int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, MangaEntityJSON(FixtureID(offset+i), fmt.Sprintf("Manga %d", offset+i)))
	}
	return fmt.Sprintf(`{"result":"ok","response":"collection","data":[%s],"limit":%d,"offset":%d,"total":%d}`,
		strings.Join(items, ","), limit, offset, total)
}

// BareMangaCollectionJSON carries only data and total, without the limit
// and offset echo.
func BareMangaCollectionJSON(n, total int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, MangaEntityJSON(FixtureID(i), fmt.Sprintf("Manga %d", i)))
	}
	return fmt.Sprintf(`{"data":[%s],"total":%d}`, strings.Join(items, ","), total)
}

// ChapterEntityJSON is one chapter with scanlation_group and manga expanded.
func ChapterEntityJSON(id, number string) string {
	return fmt.Sprintf(`{
  "id": %q,
  "type": "chapter",
  "attributes": {
    "volume": "1",
    "chapter": %q,
    "title": "Chapter %s",
    "translatedLanguage": "vi",
    "externalUrl": null,
    "publishAt": "2024-05-01T00:00:00+00:00",
    "readableAt": "2024-05-01T00:00:00+00:00",
    "createdAt": "2024-05-01T00:00:00+00:00",
    "updatedAt": "2024-05-01T00:00:00+00:00",
    "pages": 20
  },
  "relationships": [
    {"id": "44444444-4444-4444-8444-444444444444", "type": "scanlation_group", "attributes": {"name": "Group Name"}},
    {"id": %q, "type": "manga", "attributes": {"title": {"en": "Fixture Manga"}}}
  ]
}`, id, number, number, FixtureMangaID)
}

// ChapterResponseJSON wraps a chapter entity in the single-entity envelope.
func ChapterResponseJSON(id string) string {
	return `{"result":"ok","response":"entity","data":` + ChapterEntityJSON(id, "1") + `}`
}

// ChapterFeedJSON is a feed page with n chapters.
func ChapterFeedJSON(n, limit, offset, total int) string {
	items := make([]string, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, ChapterEntityJSON(FixtureID(offset+i), fmt.Sprint(offset+i+1)))
	}
	return fmt.Sprintf(`{"result":"ok","response":"collection","data":[%s],"limit":%d,"offset":%d,"total":%d}`,
		strings.Join(items, ","), limit, offset, total)
}

// TagListJSON is the /manga/tag answer with two tags.
func TagListJSON() string {
	return `{"result":"ok","response":"collection","data":[
  {"id":"391b0423-d847-456f-aff0-8b0cfc03066b","type":"tag","attributes":{"name":{"en":"Action"},"group":"genre"},"relationships":[]},
  {"id":"caaa44eb-cd40-4177-b930-79d3ef2afe87","type":"tag","attributes":{"name":{"en":"School Life"},"group":"theme"},"relationships":[]}
],"limit":100,"offset":0,"total":2}`
}

// AtHomeJSON is the /at-home/server answer with two pages.
func AtHomeJSON() string {
	return fmt.Sprintf(`{"result":"ok","baseUrl":%q,"chapter":{"hash":%q,"data":["1-a.png","2-b.png"],"dataSaver":["1-a.jpg","2-b.jpg"]}}`,
		FixtureAtHomeURL, FixtureHash)
}

// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package mangadex

import (
	"sort"

	"github.com/goccy/go-json"
)

// Relationship types used by the reshape functions.
const (
	RelCoverArt        = "cover_art"
	RelAuthor          = "author"
	RelArtist          = "artist"
	RelManga           = "manga"
	RelScanlationGroup = "scanlation_group"
	RelUser            = "user"
)

// LocalizedString maps language codes to text, e.g. {"en": "Berserk"}.
type LocalizedString map[string]string

// Pick returns the first non-empty value among langs, then "en", then the
// alphabetically first language present.
func (l LocalizedString) Pick(langs ...string) string {
	for _, lang := range langs {
		if v := l[lang]; v != "" {
			return v
		}
	}
	if v := l["en"]; v != "" {
		return v
	}
	keys := make([]string, 0, len(l))
	for k, v := range l {
		if v != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)
	return l[keys[0]]
}

// Relationship links an entity to another. Attributes are present only for
// types requested with includes[].
type Relationship struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Related    string          `json:"related,omitempty"`
	Attributes json.RawMessage `json:"attributes,omitempty"`
}

// decode unmarshals expanded attributes into v; false when not expanded.
func (r Relationship) decode(v interface{}) bool {
	if len(r.Attributes) == 0 || string(r.Attributes) == "null" {
		return false
	}
	return json.Unmarshal(r.Attributes, v) == nil
}

// Entity is the common MangaDex object envelope.
type Entity[A any] struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Attributes    A              `json:"attributes"`
	Relationships []Relationship `json:"relationships"`
}

// related returns relationships of the given type in upstream order.
func related[A any](e Entity[A], typ string) []Relationship {
	var out []Relationship
	for _, r := range e.Relationships {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}

// MangaAttributes is the attributes object of a manga entity.
type MangaAttributes struct {
	Title                  LocalizedString   `json:"title"`
	AltTitles              []LocalizedString `json:"altTitles"`
	Description            LocalizedString   `json:"description"`
	Links                  map[string]string `json:"links"`
	OriginalLanguage       string            `json:"originalLanguage"`
	LastVolume             string            `json:"lastVolume"`
	LastChapter            string            `json:"lastChapter"`
	PublicationDemographic string            `json:"publicationDemographic"`
	Status                 string            `json:"status"`
	Year                   *int              `json:"year"`
	ContentRating          string            `json:"contentRating"`
	Tags                   []TagEntity       `json:"tags"`
	AvailableLanguages     []string          `json:"availableTranslatedLanguages"`
	LatestUploadedChapter  string            `json:"latestUploadedChapter"`
	CreatedAt              string            `json:"createdAt"`
	UpdatedAt              string            `json:"updatedAt"`
}

// TagAttributes is the attributes object of a tag entity.
type TagAttributes struct {
	Name  LocalizedString `json:"name"`
	Group string          `json:"group"`
}

// ChapterAttributes is the attributes object of a chapter entity.
type ChapterAttributes struct {
	Title              *string `json:"title"`
	Volume             *string `json:"volume"`
	Chapter            *string `json:"chapter"`
	Pages              int     `json:"pages"`
	TranslatedLanguage string  `json:"translatedLanguage"`
	ExternalURL        *string `json:"externalUrl"`
	PublishAt          string  `json:"publishAt"`
	ReadableAt         string  `json:"readableAt"`
	CreatedAt          string  `json:"createdAt"`
	UpdatedAt          string  `json:"updatedAt"`
}

// CoverAttributes is the expanded cover_art relationship.
type CoverAttributes struct {
	FileName string  `json:"fileName"`
	Volume   *string `json:"volume"`
	Locale   string  `json:"locale"`
}

// NamedAttributes covers expanded author, artist and scanlation_group
// relationships.
type NamedAttributes struct {
	Name string `json:"name"`
}

// Entity aliases for the types this service reads.
type (
	MangaEntity   = Entity[MangaAttributes]
	ChapterEntity = Entity[ChapterAttributes]
	TagEntity     = Entity[TagAttributes]
)

// EntityResponse is the envelope of single-entity endpoints.
type EntityResponse[A any] struct {
	Result   string    `json:"result"`
	Response string    `json:"response"`
	Data     Entity[A] `json:"data"`
}

// CollectionResponse is the envelope of list endpoints.
type CollectionResponse[A any] struct {
	Result   string      `json:"result"`
	Response string      `json:"response"`
	Data     []Entity[A] `json:"data"`
	Limit    int         `json:"limit"`
	Offset   int         `json:"offset"`
	Total    int         `json:"total"`
}

// AtHomeResponse is the answer of /at-home/server/{chapterID}.
type AtHomeResponse struct {
	Result  string `json:"result"`
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

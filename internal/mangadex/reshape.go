// Mangashelf - MangaDex Reading Gateway
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/mangashelf

package mangadex

import (
	"strings"
)

// Tag is a flattened MangaDex tag.
type Tag struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// MangaSummary is the list-view shape of a manga.
type MangaSummary struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Status             string   `json:"status"`
	Year               *int     `json:"year,omitempty"`
	ContentRating      string   `json:"contentRating"`
	CoverFileName      string   `json:"coverFileName,omitempty"`
	CoverURL           string   `json:"coverUrl,omitempty"`
	Tags               []string `json:"tags"`
	AvailableLanguages []string `json:"availableLanguages"`
	LatestChapterID    string   `json:"latestChapterId,omitempty"`
	UpdatedAt          string   `json:"updatedAt,omitempty"`
}

// MangaDetail is the single-manga shape.
type MangaDetail struct {
	MangaSummary
	AltTitles        []string          `json:"altTitles"`
	Authors          []string          `json:"authors"`
	Artists          []string          `json:"artists"`
	Genres           []Tag             `json:"genres"`
	OriginalLanguage string            `json:"originalLanguage"`
	Demographic      string            `json:"demographic,omitempty"`
	LastVolume       string            `json:"lastVolume,omitempty"`
	LastChapter      string            `json:"lastChapter,omitempty"`
	Links            map[string]string `json:"links,omitempty"`
	CreatedAt        string            `json:"createdAt,omitempty"`
}

// ChapterSummary is one feed entry.
type ChapterSummary struct {
	ID          string `json:"id"`
	Chapter     string `json:"chapter"`
	Volume      string `json:"volume"`
	Title       string `json:"title"`
	Language    string `json:"language"`
	Pages       int    `json:"pages"`
	ExternalURL string `json:"externalUrl,omitempty"`
	Group       string `json:"group,omitempty"`
	PublishAt   string `json:"publishAt"`
	ReadableAt  string `json:"readableAt,omitempty"`
}

// ChapterDetail is a chapter with its parent manga.
type ChapterDetail struct {
	ChapterSummary
	MangaID    string `json:"mangaId"`
	MangaTitle string `json:"mangaTitle,omitempty"`
}

// PageSet lists the image URLs of a chapter.
type PageSet struct {
	ChapterID string   `json:"chapterId"`
	Hash      string   `json:"hash"`
	BaseURL   string   `json:"baseUrl"`
	DataSaver bool     `json:"dataSaver"`
	Pages     []string `json:"pages"`
}

// Reshaper flattens MangaDex entities. UploadsURL is the cover CDN base.
type Reshaper struct {
	UploadsURL string
}

// NewReshaper returns a Reshaper for the given uploads base URL.
func NewReshaper(uploadsURL string) *Reshaper {
	return &Reshaper{UploadsURL: strings.TrimRight(uploadsURL, "/")}
}

// CoverURL builds the public URL of a cover file.
func (r *Reshaper) CoverURL(mangaID, fileName string) string {
	if fileName == "" {
		return ""
	}
	return r.UploadsURL + "/covers/" + mangaID + "/" + fileName
}

// MangaSummary flattens m, preferring text in lang.
func (r *Reshaper) MangaSummary(m MangaEntity, lang string) MangaSummary {
	a := m.Attributes
	s := MangaSummary{
		ID:                 m.ID,
		Title:              a.Title.Pick(lang),
		Description:        a.Description.Pick(lang),
		Status:             a.Status,
		Year:               a.Year,
		ContentRating:      a.ContentRating,
		Tags:               make([]string, 0, len(a.Tags)),
		AvailableLanguages: a.AvailableLanguages,
		LatestChapterID:    a.LatestUploadedChapter,
		UpdatedAt:          a.UpdatedAt,
	}
	if s.Title == "" {
		s.Title = altTitle(a.AltTitles, lang)
	}
	if s.AvailableLanguages == nil {
		s.AvailableLanguages = []string{}
	}
	for _, t := range a.Tags {
		s.Tags = append(s.Tags, t.Attributes.Name.Pick(lang))
	}
	for _, rel := range related(m, RelCoverArt) {
		var cover CoverAttributes
		if rel.decode(&cover) && cover.FileName != "" {
			s.CoverFileName = cover.FileName
			s.CoverURL = r.CoverURL(m.ID, cover.FileName)
			break
		}
	}
	return s
}

// MangaSummaries flattens a list.
func (r *Reshaper) MangaSummaries(list []MangaEntity, lang string) []MangaSummary {
	out := make([]MangaSummary, 0, len(list))
	for _, m := range list {
		out = append(out, r.MangaSummary(m, lang))
	}
	return out
}

// MangaDetail flattens m including people and alternative titles.
func (r *Reshaper) MangaDetail(m MangaEntity, lang string) MangaDetail {
	a := m.Attributes
	d := MangaDetail{
		MangaSummary:     r.MangaSummary(m, lang),
		AltTitles:        make([]string, 0, len(a.AltTitles)),
		Authors:          names(m, RelAuthor),
		Artists:          names(m, RelArtist),
		Genres:           Tags(a.Tags, lang),
		OriginalLanguage: a.OriginalLanguage,
		Demographic:      a.PublicationDemographic,
		LastVolume:       a.LastVolume,
		LastChapter:      a.LastChapter,
		Links:            a.Links,
		CreatedAt:        a.CreatedAt,
	}
	for _, alt := range a.AltTitles {
		for _, v := range alt {
			if v != "" {
				d.AltTitles = append(d.AltTitles, v)
			}
		}
	}
	return d
}

// TagFrom flattens a tag entity.
func TagFrom(t TagEntity, lang string) Tag {
	return Tag{ID: t.ID, Name: t.Attributes.Name.Pick(lang), Group: t.Attributes.Group}
}

// Tags flattens a tag list.
func Tags(list []TagEntity, lang string) []Tag {
	out := make([]Tag, 0, len(list))
	for _, t := range list {
		out = append(out, TagFrom(t, lang))
	}
	return out
}

// ChapterSummaryFrom flattens a chapter entity.
func ChapterSummaryFrom(c ChapterEntity) ChapterSummary {
	a := c.Attributes
	s := ChapterSummary{
		ID:          c.ID,
		Chapter:     deref(a.Chapter),
		Volume:      deref(a.Volume),
		Title:       deref(a.Title),
		Language:    a.TranslatedLanguage,
		Pages:       a.Pages,
		ExternalURL: deref(a.ExternalURL),
		PublishAt:   a.PublishAt,
		ReadableAt:  a.ReadableAt,
	}
	if groups := names(c, RelScanlationGroup); len(groups) > 0 {
		s.Group = strings.Join(groups, ", ")
	}
	return s
}

// ChapterSummaries flattens a feed.
func ChapterSummaries(list []ChapterEntity) []ChapterSummary {
	out := make([]ChapterSummary, 0, len(list))
	for _, c := range list {
		out = append(out, ChapterSummaryFrom(c))
	}
	return out
}

// ChapterDetailFrom flattens c and its manga relationship.
func ChapterDetailFrom(c ChapterEntity, lang string) ChapterDetail {
	d := ChapterDetail{ChapterSummary: ChapterSummaryFrom(c)}
	if rels := related(c, RelManga); len(rels) > 0 {
		d.MangaID = rels[0].ID
		var manga MangaAttributes
		if rels[0].decode(&manga) {
			d.MangaTitle = manga.Title.Pick(lang)
		}
	}
	return d
}

// PageSetFrom assembles page URLs: {baseUrl}/data/{hash}/{file}, or
// data-saver for the compressed set.
func PageSetFrom(chapterID string, a *AtHomeResponse, dataSaver bool) PageSet {
	files, segment := a.Chapter.Data, "data"
	if dataSaver {
		files, segment = a.Chapter.DataSaver, "data-saver"
	}
	base := strings.TrimRight(a.BaseURL, "/")

	p := PageSet{
		ChapterID: chapterID,
		Hash:      a.Chapter.Hash,
		BaseURL:   base,
		DataSaver: dataSaver,
		Pages:     make([]string, 0, len(files)),
	}
	for _, f := range files {
		p.Pages = append(p.Pages, base+"/"+segment+"/"+a.Chapter.Hash+"/"+f)
	}
	return p
}

func names[A any](e Entity[A], typ string) []string {
	out := []string{}
	for _, rel := range related(e, typ) {
		var n NamedAttributes
		if rel.decode(&n) && n.Name != "" {
			out = append(out, n.Name)
		}
	}
	return out
}

func altTitle(alts []LocalizedString, lang string) string {
	for _, want := range []string{lang, "en"} {
		for _, alt := range alts {
			if v := alt[want]; v != "" {
				return v
			}
		}
	}
	if len(alts) > 0 {
		return alts[0].Pick()
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model persisted as the single library document:
// shelves hold books, books hold pages grouped by chapter, and pages carry
// their entry content blob plus the annotations anchored into it.
// JSON keys match the stored document so older libraries load unchanged.

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// Library is the whole persisted document: an ordered list of shelves.
type Library struct {
	Shelves []*Shelf
}

// MarshalJSON writes the library as a bare JSON array of shelves.
func (l Library) MarshalJSON() ([]byte, error) {
	if l.Shelves == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Shelves)
}

// UnmarshalJSON is strict; tolerant decoding of stored documents lives in storage.
func (l *Library) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &l.Shelves)
}

// Shelf groups books.
type Shelf struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Cover      string  `json:"cover,omitempty"`
	CoverColor string  `json:"coverColor,omitempty"`
	Books      []*Book `json:"books"`
	BookCount  int     `json:"bookCount"`
	CreatedAt  Millis  `json:"createdAt"`
	UpdatedAt  Millis  `json:"updatedAt"`
}

// Book owns pages and the glossary shared by all of them.
type Book struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Volume    string `json:"volume,omitempty"`
	Cover     string `json:"cover,omitempty"`
	CreatedAt Millis `json:"createdAt"`
	UpdatedAt Millis `json:"updatedAt"`

	Pages             []*Page                  `json:"pages"`
	Glossary          map[string]GlossaryEntry `json:"glossary"`
	CurrentChapter    Chapter                  `json:"currentChapter"`
	CurrentPage       int                      `json:"currentPage"`
	LastPageByChapter map[string]int           `json:"lastPageByChapter"`
}

// Page is one numbered page inside a chapter. Content is the serialized entry
// sequence and never contains highlight decoration.
type Page struct {
	ID                 string       `json:"id"`
	Chapter            Chapter      `json:"ch"`
	Number             int          `json:"n"`
	Title              string       `json:"title"`
	Content            string       `json:"content"`
	Annotations        []Annotation `json:"annotations"`
	SuppressedGlossary []string     `json:"suppressedGlossary"`
	UpdatedAt          Millis       `json:"updatedAt"`
}

// Annotation marks [Start,End) of one entry's plain text.
type Annotation struct {
	ID          string      `json:"id"`
	EntryID     string      `json:"entryId"`
	Start       int         `json:"startOffset"`
	End         int         `json:"endOffset"`
	Text        string      `json:"text"`
	Reading     string      `json:"reading"`
	ReadingType ReadingType `json:"readingType"`
	Meaning     string      `json:"meaning"`
	Notes       string      `json:"notes"`
	UpdatedAt   Millis      `json:"updatedAt"`
	Source      Source      `json:"source,omitempty"`
}

// GlossaryEntry is keyed in Book.Glossary by its literal Text.
type GlossaryEntry struct {
	Text        string      `json:"text"`
	Reading     string      `json:"reading"`
	Meaning     string      `json:"meaning"`
	Notes       string      `json:"notes"`
	ReadingType ReadingType `json:"readingType"`
	UpdatedAt   Millis      `json:"updatedAt"`
}

// ReadingType is the phonetic reading category of an annotation.
type ReadingType string

const (
	ReadingOn  ReadingType = "on"
	ReadingKun ReadingType = "kun"
)

// NormalizeReadingType maps anything but "on"/"kun" to def (kun when def is invalid).
func NormalizeReadingType(s string, def ReadingType) ReadingType {
	switch ReadingType(strings.ToLower(strings.TrimSpace(s))) {
	case ReadingOn:
		return ReadingOn
	case ReadingKun:
		return ReadingKun
	}
	if def == ReadingOn {
		return ReadingOn
	}
	return ReadingKun
}

// Source records who created an annotation. Empty means user.
type Source string

const (
	SourceUser     Source = "user"
	SourceGlossary Source = "glossary"
)

// IsGlossary reports whether the annotation was inserted by the glossary propagator.
func (a Annotation) IsGlossary() bool { return a.Source == SourceGlossary }

// Overlaps reports whether [a.Start,a.End) intersects [start,end).
func (a Annotation) Overlaps(start, end int) bool {
	return !(a.End <= start || a.Start >= end)
}

// Chapter is a chapter number >= 1; NoChapter (0) is the "none" chapter.
// It serializes as null for NoChapter.
type Chapter int

const NoChapter Chapter = 0

// NormalizeChapter clamps n to a valid chapter (max(1,n)).
func NormalizeChapter(n int) Chapter {
	if n < 1 {
		return 1
	}
	return Chapter(n)
}

// ParseChapter reads user input: blank or "none" is NoChapter, otherwise max(1, n).
func ParseChapter(s string) (Chapter, bool) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" || s == "none" || s == "-" {
		return NoChapter, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return NoChapter, false
	}
	return NormalizeChapter(n), true
}

// Key is the lastPageByChapter map key.
func (c Chapter) Key() string {
	if c == NoChapter {
		return "none"
	}
	return strconv.Itoa(int(c))
}

// ParseChapterKey inverts Key.
func ParseChapterKey(key string) (Chapter, bool) {
	if key == "none" || key == "null" {
		return NoChapter, true
	}
	n, err := strconv.Atoi(key)
	if err != nil || n < 1 {
		return NoChapter, false
	}
	return Chapter(n), true
}

func (c Chapter) String() string {
	if c == NoChapter {
		return "no chapter"
	}
	return "chapter " + strconv.Itoa(int(c))
}

func (c Chapter) MarshalJSON() ([]byte, error) {
	if c == NoChapter {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(c))), nil
}

// UnmarshalJSON never fails: anything that is not a positive number is NoChapter.
func (c *Chapter) UnmarshalJSON(b []byte) error {
	*c = NoChapter
	var f float64
	if err := json.Unmarshal(bytes.TrimSpace(b), &f); err != nil {
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 1 {
		return nil
	}
	*c = Chapter(int(math.Floor(f)))
	return nil
}

// Millis is a Unix timestamp in milliseconds.
type Millis int64

// At converts t to Millis.
func At(t time.Time) Millis { return Millis(t.UnixMilli()) }

// Time converts m back to a time.Time.
func (m Millis) Time() time.Time { return time.UnixMilli(int64(m)) }

// FindBook looks a book up across all shelves.
func (l *Library) FindBook(bookID string) (*Shelf, *Book) {
	if l == nil {
		return nil, nil
	}
	for _, s := range l.Shelves {
		for _, b := range s.Books {
			if b != nil && b.ID == bookID {
				return s, b
			}
		}
	}
	return nil, nil
}

// FindShelf returns the shelf with the given id.
func (l *Library) FindShelf(shelfID string) *Shelf {
	if l == nil {
		return nil
	}
	for _, s := range l.Shelves {
		if s.ID == shelfID {
			return s
		}
	}
	return nil
}

// PageByID returns the page with the given id.
func (b *Book) PageByID(id string) *Page {
	for _, p := range b.Pages {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// AnnotationByID returns the index of the annotation with id, or -1.
func (p *Page) AnnotationByID(id string) int {
	for i := range p.Annotations {
		if p.Annotations[i].ID == id {
			return i
		}
	}
	return -1
}

// IsSuppressed reports whether term is on the page's suppression list.
func (p *Page) IsSuppressed(term string) bool {
	term = strings.TrimSpace(term)
	for _, s := range p.SuppressedGlossary {
		if strings.TrimSpace(s) == term {
			return true
		}
	}
	return false
}

// Suppress adds term to the suppression list (once).
func (p *Page) Suppress(term string) {
	term = strings.TrimSpace(term)
	if term == "" || p.IsSuppressed(term) {
		return
	}
	p.SuppressedGlossary = append(p.SuppressedGlossary, term)
}

// Unsuppress removes term from the suppression list.
func (p *Page) Unsuppress(term string) {
	term = strings.TrimSpace(term)
	out := p.SuppressedGlossary[:0]
	for _, s := range p.SuppressedGlossary {
		if strings.TrimSpace(s) != term {
			out = append(out, s)
		}
	}
	p.SuppressedGlossary = out
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package pages keeps a book's pages ordered by chapter and densely numbered.
// Every mutation renumbers the chapters it touches before returning.
package pages

import (
	"errors"
	"sort"
	"strconv"
	"strings"

	"shiori/internal/domain"
	"shiori/internal/entry"
)

var (
	// ErrLastPageInChapter rejects deleting the only page of a chapter.
	ErrLastPageInChapter = errors.New("a chapter must keep at least one page")
	// ErrLastChapter rejects deleting the only chapter that still has pages.
	ErrLastChapter = errors.New("a book must keep at least one chapter")
)

// InChapter returns the chapter's pages sorted by number. The slice is fresh;
// the pages are shared with the book.
func InChapter(b *domain.Book, ch domain.Chapter) []*domain.Page {
	var out []*domain.Page
	for _, p := range b.Pages {
		if p.Chapter == ch {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func Get(b *domain.Book, ch domain.Chapter, n int) *domain.Page {
	for _, p := range b.Pages {
		if p.Chapter == ch && p.Number == n {
			return p
		}
	}
	return nil
}

func NextNumber(b *domain.Book, ch domain.Chapter) int {
	last := 0
	for _, p := range b.Pages {
		if p.Chapter == ch && p.Number > last {
			last = p.Number
		}
	}
	return last + 1
}

// Chapters lists the distinct chapters present, the unchaptered group first.
func Chapters(b *domain.Book) []domain.Chapter {
	seen := map[domain.Chapter]bool{}
	var out []domain.Chapter
	for _, p := range b.Pages {
		if !seen[p.Chapter] {
			seen[p.Chapter] = true
			out = append(out, p.Chapter)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Renumber assigns 1..N to the chapter's pages in their current order.
func Renumber(b *domain.Book, ch domain.Chapter) {
	for i, p := range InChapter(b, ch) {
		p.Number = i + 1
	}
}

func RenumberAll(b *domain.Book) {
	for _, ch := range Chapters(b) {
		Renumber(b, ch)
	}
}

func blank(id string, ch domain.Chapter, n int, now domain.Millis) *domain.Page {
	return &domain.Page{
		ID:                 id,
		Chapter:            ch,
		Number:             n,
		Annotations:        []domain.Annotation{},
		SuppressedGlossary: []string{},
		UpdatedAt:          now,
	}
}

// New appends an empty page at the end of the chapter.
func New(b *domain.Book, ch domain.Chapter, id string, now domain.Millis) *domain.Page {
	p := blank(id, ch, NextNumber(b, ch), now)
	b.Pages = append(b.Pages, p)
	Renumber(b, ch)
	return p
}

// Ensure returns the page at (ch, n), creating an empty one when missing.
func Ensure(b *domain.Book, ch domain.Chapter, n int, id string, now domain.Millis) *domain.Page {
	if p := Get(b, ch, n); p != nil {
		return p
	}
	p := blank(id, ch, n, now)
	b.Pages = append(b.Pages, p)
	Renumber(b, ch)
	return p
}

// IsBlank reports whether the page has neither a title nor any text.
func IsBlank(p *domain.Page) bool {
	return strings.TrimSpace(p.Title) == "" && PlainText(p) == ""
}

// PlainText is the page's text with entries separated by newlines.
func PlainText(p *domain.Page) string {
	if strings.TrimSpace(p.Content) == "" {
		return ""
	}
	doc, err := entry.Parse(p.Content)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

// ChangeChapter picks the page to open after switching to ch: page 1 of a
// new chapter, the trailing blank page of an existing one, or a fresh page
// appended after it.
func ChangeChapter(b *domain.Book, ch domain.Chapter, newID func() string, now domain.Millis) (p *domain.Page, created bool) {
	existing := InChapter(b, ch)
	if len(existing) == 0 {
		return Ensure(b, ch, 1, newID(), now), true
	}
	last := existing[len(existing)-1]
	if IsBlank(last) {
		return last, false
	}
	return New(b, ch, newID(), now), true
}

// Delete removes page (ch, n) and renumbers the chapter. It returns a deep
// copy of the removed page and its zero-based position within the chapter.
// A missing page is not an error; p is nil.
func Delete(b *domain.Book, ch domain.Chapter, n int) (p *domain.Page, index int, err error) {
	inCh := InChapter(b, ch)
	if len(inCh) <= 1 {
		return nil, -1, ErrLastPageInChapter
	}
	target := Get(b, ch, n)
	if target == nil {
		return nil, -1, nil
	}
	for i, q := range inCh {
		if q == target {
			index = i
			break
		}
	}
	kept := b.Pages[:0]
	for _, q := range b.Pages {
		if q != target {
			kept = append(kept, q)
		}
	}
	b.Pages = kept
	Renumber(b, ch)
	return target.Clone(), index, nil
}

// DeleteChapter removes every page of ch. It returns how many were removed.
func DeleteChapter(b *domain.Book, ch domain.Chapter) (int, error) {
	n := len(InChapter(b, ch))
	if n == 0 {
		return 0, nil
	}
	if len(b.Pages) <= n {
		return 0, ErrLastChapter
	}
	kept := b.Pages[:0]
	for _, p := range b.Pages {
		if p.Chapter != ch {
			kept = append(kept, p)
		}
	}
	b.Pages = kept
	delete(b.LastPageByChapter, ch.Key())
	return n, nil
}

// Restore re-inserts a deleted page at its chapter position, clamped to the
// chapter's current length, and renumbers. The book gets a deep copy.
func Restore(b *domain.Book, snap *domain.Page, index int, newID func() string) *domain.Page {
	p := snap.Clone()
	if p.ID == "" || b.PageByID(p.ID) != nil {
		p.ID = newID()
	}
	inCh := InChapter(b, p.Chapter)
	if index < 0 {
		index = 0
	}
	if index > len(inCh) {
		index = len(inCh)
	}
	ordered := make([]*domain.Page, 0, len(inCh)+1)
	ordered = append(ordered, inCh[:index]...)
	ordered = append(ordered, p)
	ordered = append(ordered, inCh[index:]...)
	for i, q := range ordered {
		q.Number = i + 1
	}
	b.Pages = append(b.Pages, p)
	return p
}

func LastVisited(b *domain.Book, ch domain.Chapter) int {
	if n, ok := b.LastPageByChapter[ch.Key()]; ok && n > 0 {
		return n
	}
	return 1
}

func SetLastVisited(b *domain.Book, ch domain.Chapter, n int) {
	if b.LastPageByChapter == nil {
		b.LastPageByChapter = map[string]int{}
	}
	b.LastPageByChapter[ch.Key()] = n
}

const previewLimit = 42

// Preview is the title, or the start of the page's text on one line.
func Preview(p *domain.Page) string {
	if p.Title != "" {
		return p.Title
	}
	text := strings.Join(strings.Fields(PlainText(p)), " ")
	if text == "" {
		return "(empty)"
	}
	if r := []rune(text); len(r) > previewLimit {
		return string(r[:previewLimit]) + "…"
	}
	return text
}

// Section is one chapter of the table of contents.
type Section struct {
	Chapter domain.Chapter
	Pages   []*domain.Page
}

// Filter builds the table of contents, keeping pages whose chapter label,
// number, title or text contain query. A chapter whose label matches is kept
// even when none of its pages do.
func Filter(b *domain.Book, query string) []Section {
	q := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	chapters := Chapters(b)
	if len(chapters) == 0 {
		chapters = []domain.Chapter{domain.NoChapter}
	}
	var out []Section
	for _, ch := range chapters {
		inCh := InChapter(b, ch)
		if q == "" {
			out = append(out, Section{Chapter: ch, Pages: inCh})
			continue
		}
		label := ch.String()
		var hits []*domain.Page
		for _, p := range inCh {
			hay := strings.Join([]string{label, "pg", strconv.Itoa(p.Number), p.Title, PlainText(p)}, " ")
			hay = strings.Join(strings.Fields(strings.ToLower(hay)), " ")
			if strings.Contains(hay, q) {
				hits = append(hits, p)
			}
		}
		if len(hits) == 0 && !strings.Contains(label, q) {
			continue
		}
		out = append(out, Section{Chapter: ch, Pages: hits})
	}
	return out
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf16"

	"shiori/internal/domain"
	"shiori/internal/entry"
	"shiori/internal/pages"
)

// Decode parses a stored library document of any known shape. Problems
// that can be healed are reported as notes, not errors; only input that is
// not JSON at all fails.
func Decode(data []byte, newID func() string, now domain.Millis) (domain.Library, []string, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Library{}, nil, fmt.Errorf("parse library: %w", err)
	}
	var notes []string
	note := func(format string, args ...any) { notes = append(notes, fmt.Sprintf(format, args...)) }

	shelves, ok := raw.([]any)
	if !ok {
		note("library is not a list of shelves; starting empty")
		shelves = []any{}
	}
	kept := make([]any, 0, len(shelves))
	for _, s := range shelves {
		if sm, ok := s.(map[string]any); ok {
			migrateShelf(sm, now, note)
			kept = append(kept, sm)
		} else {
			note("dropped malformed shelf")
		}
	}
	fixed, err := json.Marshal(kept)
	if err != nil {
		return domain.Library{}, notes, fmt.Errorf("re-encode library: %w", err)
	}
	var lib domain.Library
	if err := json.Unmarshal(fixed, &lib); err != nil {
		return domain.Library{}, notes, fmt.Errorf("decode library: %w", err)
	}
	notes = append(notes, Normalize(&lib, newID, now)...)
	return lib, notes, nil
}

func migrateShelf(s map[string]any, now domain.Millis, note func(string, ...any)) {
	fixStrings(s, "id", "name", "cover", "coverColor")
	fixMillis(s, "createdAt", "updatedAt")
	delete(s, "bookCount")
	books, _ := s["books"].([]any)
	kept := make([]any, 0, len(books))
	for _, b := range books {
		bm, ok := b.(map[string]any)
		if !ok {
			note("dropped malformed book")
			continue
		}
		migrateBook(bm, now, note)
		kept = append(kept, bm)
	}
	s["books"] = kept
}

func migrateBook(b map[string]any, now domain.Millis, note func(string, ...any)) {
	fixStrings(b, "id", "title", "author", "volume", "cover")
	fixMillis(b, "createdAt", "updatedAt")
	if _, ok := b["pages"].([]any); !ok {
		content, _ := b["content"].(string)
		updated, ok := b["updatedAt"].(float64)
		if !ok {
			updated = float64(now)
		}
		b["pages"] = []any{map[string]any{
			"ch":        nil,
			"n":         1.0,
			"title":     "",
			"content":   content,
			"updatedAt": updated,
		}}
		note("migrated content-only book %v to a single page", b["id"])
	}
	delete(b, "content")

	ps := b["pages"].([]any)
	kept := make([]any, 0, len(ps))
	for _, p := range ps {
		pm, ok := p.(map[string]any)
		if !ok {
			note("dropped malformed page in book %v", b["id"])
			continue
		}
		migratePage(pm)
		kept = append(kept, pm)
	}
	rankNumbers(kept)
	b["pages"] = kept

	if g, ok := b["glossary"].(map[string]any); ok {
		for k, v := range g {
			vm, ok := v.(map[string]any)
			if !ok {
				delete(g, k)
				continue
			}
			fixStrings(vm, "text", "reading", "readingType", "meaning", "notes")
			fixMillis(vm, "updatedAt")
		}
	} else {
		b["glossary"] = map[string]any{}
	}
	if m, ok := b["lastPageByChapter"].(map[string]any); ok {
		for k, v := range m {
			f, ok := v.(float64)
			if !ok || f < 1 {
				delete(m, k)
				continue
			}
			m[k] = math.Floor(f)
		}
	} else {
		b["lastPageByChapter"] = map[string]any{}
	}
	if f, ok := b["currentPage"].(float64); ok && f >= 1 {
		b["currentPage"] = math.Floor(f)
	} else {
		b["currentPage"] = 1.0
	}
}

func migratePage(p map[string]any) {
	fixStrings(p, "id", "title", "content")
	fixMillis(p, "updatedAt")
	if _, ok := p["n"].(float64); !ok {
		p["n"] = 1.0
	}
	anns, _ := p["annotations"].([]any)
	kept := make([]any, 0, len(anns))
	for _, a := range anns {
		am, ok := a.(map[string]any)
		if !ok {
			continue
		}
		fixStrings(am, "id", "entryId", "text", "reading", "readingType", "meaning", "notes", "source")
		fixMillis(am, "updatedAt")
		s, sok := am["startOffset"].(float64)
		e, eok := am["endOffset"].(float64)
		if !sok || !eok {
			continue
		}
		am["startOffset"], am["endOffset"] = math.Floor(s), math.Floor(e)
		kept = append(kept, am)
	}
	p["annotations"] = kept
	terms, _ := p["suppressedGlossary"].([]any)
	strs := make([]any, 0, len(terms))
	for _, t := range terms {
		if s, ok := t.(string); ok {
			strs = append(strs, s)
		}
	}
	p["suppressedGlossary"] = strs
}

// fromUTF16 rewrites annotation offsets written in UTF-16 code units, as
// browsers count them, into code points. An annotation is converted only
// when its text does not match at the stored offsets but does match once
// they are read as UTF-16. Both counts agree on text without astral
// characters, so such pages are left alone.
func fromUTF16(p *domain.Page) int {
	if len(p.Annotations) == 0 || p.Content == "" {
		return 0
	}
	doc, err := entry.Parse(p.Content)
	if err != nil {
		return 0
	}
	n := 0
	for i, a := range p.Annotations {
		e := doc.Entry(a.EntryID)
		if e == nil || a.Text == "" {
			continue
		}
		plain := e.Text()
		if entry.SliceRunes(plain, a.Start, a.End) == a.Text {
			continue
		}
		start, ok1 := unitsToRunes(plain, a.Start)
		end, ok2 := unitsToRunes(plain, a.End)
		if !ok1 || !ok2 || entry.SliceRunes(plain, start, end) != a.Text {
			continue
		}
		p.Annotations[i].Start, p.Annotations[i].End = start, end
		n++
	}
	return n
}

// unitsToRunes maps a UTF-16 offset into s to a code point offset. It fails
// when the offset splits a surrogate pair or lies past the end.
func unitsToRunes(s string, units int) (int, bool) {
	u, i := 0, 0
	for _, r := range s {
		if u == units {
			return i, true
		}
		if u > units {
			return 0, false
		}
		u += utf16.RuneLen(r)
		i++
	}
	return i, u == units
}

// rankNumbers replaces each page's possibly fractional number with its rank
// inside its chapter.
func rankNumbers(ps []any) {
	byChapter := map[domain.Chapter][]map[string]any{}
	var order []domain.Chapter
	for _, p := range ps {
		pm := p.(map[string]any)
		var ch domain.Chapter
		raw, _ := json.Marshal(pm["ch"])
		_ = ch.UnmarshalJSON(raw)
		if _, ok := byChapter[ch]; !ok {
			order = append(order, ch)
		}
		byChapter[ch] = append(byChapter[ch], pm)
	}
	for _, ch := range order {
		group := byChapter[ch]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i]["n"].(float64) < group[j]["n"].(float64)
		})
		for i, pm := range group {
			pm["n"] = float64(i + 1)
		}
	}
}

func fixStrings(m map[string]any, keys ...string) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if _, isStr := v.(string); !isStr {
				delete(m, k)
			}
		}
	}
}

func fixMillis(m map[string]any, keys ...string) {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			f, isNum := v.(float64)
			if !isNum || f < 0 || math.IsInf(f, 0) {
				delete(m, k)
				continue
			}
			m[k] = math.Floor(f)
		}
	}
}

// Normalize fills defaults on a decoded library: ids, empty collections,
// reading types, glossary keys, dense page numbers and a valid current page.
func Normalize(lib *domain.Library, newID func() string, now domain.Millis) []string {
	var notes []string
	seen := map[string]bool{}
	fresh := func(id string) string {
		if strings.TrimSpace(id) == "" || seen[id] {
			id = newID()
		}
		seen[id] = true
		return id
	}
	for _, s := range lib.Shelves {
		s.ID = fresh(s.ID)
		if s.Books == nil {
			s.Books = []*domain.Book{}
		}
		s.BookCount = len(s.Books)
		for _, b := range s.Books {
			b.ID = fresh(b.ID)
			notes = append(notes, normalizeBook(b, fresh, now)...)
		}
	}
	if lib.Shelves == nil {
		lib.Shelves = []*domain.Shelf{}
	}
	return notes
}

func normalizeBook(b *domain.Book, fresh func(string) string, now domain.Millis) []string {
	var notes []string
	if len(b.Pages) == 0 {
		b.Pages = []*domain.Page{{Chapter: domain.NoChapter, Number: 1, UpdatedAt: now}}
		notes = append(notes, fmt.Sprintf("book %s had no pages; added an empty one", b.ID))
	}
	for _, p := range b.Pages {
		p.ID = fresh(p.ID)
		if p.SuppressedGlossary == nil {
			p.SuppressedGlossary = []string{}
		}
		anns := make([]domain.Annotation, 0, len(p.Annotations))
		for _, a := range p.Annotations {
			if a.Start < 0 || a.End <= a.Start || a.EntryID == "" {
				continue
			}
			a.ID = fresh(a.ID)
			a.ReadingType = domain.NormalizeReadingType(string(a.ReadingType), domain.ReadingKun)
			if a.Source != domain.SourceGlossary && a.Source != domain.SourceUser {
				a.Source = ""
			}
			anns = append(anns, a)
		}
		if dropped := len(p.Annotations) - len(anns); dropped > 0 {
			notes = append(notes, fmt.Sprintf("page %s: dropped %d invalid annotations", p.ID, dropped))
		}
		p.Annotations = anns
		if n := fromUTF16(p); n > 0 {
			notes = append(notes, fmt.Sprintf("page %s: converted %d UTF-16 offsets", p.ID, n))
		}
	}
	pages.RenumberAll(b)

	gl := make(map[string]domain.GlossaryEntry, len(b.Glossary))
	for k, g := range b.Glossary {
		key := strings.TrimSpace(k)
		if key == "" {
			continue
		}
		g.Text = key
		g.ReadingType = domain.NormalizeReadingType(string(g.ReadingType), domain.ReadingKun)
		gl[key] = g
	}
	b.Glossary = gl
	if b.LastPageByChapter == nil {
		b.LastPageByChapter = map[string]int{}
	}
	if b.CurrentPage < 1 {
		b.CurrentPage = 1
	}
	if pages.Get(b, b.CurrentChapter, b.CurrentPage) == nil {
		if pages.Get(b, b.CurrentChapter, 1) != nil {
			b.CurrentPage = 1
		} else {
			first := pages.InChapter(b, pages.Chapters(b)[0])[0]
			b.CurrentChapter, b.CurrentPage = first.Chapter, first.Number
		}
	}
	return notes
}

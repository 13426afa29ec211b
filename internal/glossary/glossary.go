/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package glossary keeps the book-wide term list and propagates it onto
// pages as glossary-sourced annotations.
package glossary

import (
	"sort"
	"strings"

	"shiori/internal/annotate"
	"shiori/internal/domain"
	"shiori/internal/entry"
)

// Key normalizes a term into its glossary key.
func Key(text string) string { return strings.TrimSpace(text) }

// Upsert records the annotation's metadata under its text. Blank terms are
// ignored.
func Upsert(b *domain.Book, a domain.Annotation, now domain.Millis) (domain.GlossaryEntry, bool) {
	key := Key(a.Text)
	if key == "" {
		return domain.GlossaryEntry{}, false
	}
	if b.Glossary == nil {
		b.Glossary = map[string]domain.GlossaryEntry{}
	}
	g := domain.GlossaryEntry{
		Text:        key,
		Reading:     a.Reading,
		Meaning:     a.Meaning,
		Notes:       a.Notes,
		ReadingType: domain.NormalizeReadingType(string(a.ReadingType), domain.ReadingKun),
		UpdatedAt:   now,
	}
	b.Glossary[key] = g
	return g, true
}

// Remove deletes a term from the glossary. Existing annotations stay.
func Remove(b *domain.Book, term string) bool {
	key := Key(term)
	if _, ok := b.Glossary[key]; !ok {
		return false
	}
	delete(b.Glossary, key)
	return true
}

// Sorted returns the glossary entries ordered by term.
func Sorted(b *domain.Book) []domain.GlossaryEntry {
	out := make([]domain.GlossaryEntry, 0, len(b.Glossary))
	for k, g := range b.Glossary {
		g.Text = Key(k)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Text < out[j].Text })
	return out
}

// Candidates lists the terms eligible on page p: not suppressed there,
// longest first so a longer term wins over a shorter one it contains.
func Candidates(b *domain.Book, p *domain.Page) []domain.GlossaryEntry {
	suppressed := map[string]bool{}
	for _, s := range p.SuppressedGlossary {
		if k := Key(s); k != "" {
			suppressed[k] = true
		}
	}
	var out []domain.GlossaryEntry
	for k, g := range b.Glossary {
		key := Key(k)
		if key == "" || suppressed[key] {
			continue
		}
		g.Text = key
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := entry.RuneLen(out[i].Text), entry.RuneLen(out[j].Text)
		if li != lj {
			return li > lj
		}
		return out[i].Text < out[j].Text
	})
	return out
}

// AutoApply annotates every non-overlapping occurrence of every candidate
// term in every entry of doc, skipping spots already covered. It returns the
// number of annotations added; a second call without edits adds none.
func AutoApply(b *domain.Book, p *domain.Page, doc *entry.Document, newID func() string, now domain.Millis) int {
	terms := Candidates(b, p)
	if len(terms) == 0 {
		return 0
	}
	added := 0
	for _, e := range doc.Entries() {
		plain := e.Text()
		if plain == "" {
			continue
		}
		for _, g := range terms {
			n := entry.RuneLen(g.Text)
			for _, pos := range annotate.IndexAll(plain, g.Text, false) {
				a := domain.Annotation{
					ID:          newID(),
					EntryID:     e.ID,
					Start:       pos,
					End:         pos + n,
					Text:        g.Text,
					Reading:     g.Reading,
					ReadingType: domain.NormalizeReadingType(string(g.ReadingType), domain.ReadingKun),
					Meaning:     g.Meaning,
					Notes:       g.Notes,
					UpdatedAt:   now,
					Source:      domain.SourceGlossary,
				}
				if annotate.Insert(p, a) {
					added++
				}
			}
		}
	}
	return added
}

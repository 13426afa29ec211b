/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package annotate attaches reading/meaning metadata to character ranges of
// page entries. Offsets are code points over an entry's decoration-free
// plain text (see entry.PlainText).
package annotate

import (
	"errors"
	"sort"
	"strings"

	"shiori/internal/domain"
	"shiori/internal/entry"
)

var (
	ErrNoEntry      = errors.New("entry not found")
	ErrInvalidRange = errors.New("invalid annotation range")
	ErrOverlap      = errors.New("range overlaps an existing annotation")
)

// Selection is what an editing surface hands over when the user asks to
// annotate: an entry and a half-open range over its plain text.
type Selection struct {
	EntryID string
	Start   int
	End     int
	Text    string
}

// Input holds the user-editable annotation fields.
type Input struct {
	Reading     string
	ReadingType domain.ReadingType
	Meaning     string
	Notes       string
}

// GroupSeparator joins the fields of a group key. It does not occur in
// normal input.
const GroupSeparator = "␟"

// Conflicts reports whether [start,end) on entryID is identical to or
// overlaps any annotation other than ignoreID.
func Conflicts(anns []domain.Annotation, entryID string, start, end int, ignoreID string) bool {
	for _, a := range anns {
		if a.EntryID != entryID || (ignoreID != "" && a.ID == ignoreID) {
			continue
		}
		if (a.Start == start && a.End == end) || a.Overlaps(start, end) {
			return true
		}
	}
	return false
}

// Insert appends a when its range is valid and free. It is the single gate
// every annotation passes, manual or glossary-derived.
func Insert(p *domain.Page, a domain.Annotation) bool {
	if a.Start < 0 || a.Start >= a.End || a.EntryID == "" {
		return false
	}
	if Conflicts(p.Annotations, a.EntryID, a.Start, a.End, "") {
		return false
	}
	p.Annotations = append(p.Annotations, a)
	return true
}

// resolve validates sel against doc and returns the exact covered text.
func resolve(doc *entry.Document, sel Selection) (string, error) {
	e := doc.Entry(sel.EntryID)
	if e == nil {
		return "", ErrNoEntry
	}
	if sel.Start < 0 || sel.Start >= sel.End || sel.End > entry.RuneLen(e.Text()) {
		return "", ErrInvalidRange
	}
	return entry.SliceRunes(e.Text(), sel.Start, sel.End), nil
}

func apply(a *domain.Annotation, in Input, def domain.ReadingType) {
	a.Reading = strings.TrimSpace(in.Reading)
	a.Meaning = strings.TrimSpace(in.Meaning)
	a.Notes = strings.TrimSpace(in.Notes)
	a.ReadingType = domain.NormalizeReadingType(string(in.ReadingType), def)
}

// Create adds a user annotation for sel. The term is removed from the page's
// suppression list so the glossary may apply it again.
func Create(p *domain.Page, doc *entry.Document, sel Selection, in Input, id string, now domain.Millis) (domain.Annotation, error) {
	text, err := resolve(doc, sel)
	if err != nil {
		return domain.Annotation{}, err
	}
	a := domain.Annotation{
		ID:        id,
		EntryID:   sel.EntryID,
		Start:     sel.Start,
		End:       sel.End,
		Text:      text,
		UpdatedAt: now,
		Source:    domain.SourceUser,
	}
	apply(&a, in, domain.ReadingKun)
	if !Insert(p, a) {
		return domain.Annotation{}, ErrOverlap
	}
	p.Unsuppress(text)
	return a, nil
}

// Edit updates annotation id in place. Anchor fields change only when sel is
// non-nil. ok is false when the id is unknown.
func Edit(p *domain.Page, doc *entry.Document, id string, in Input, sel *Selection, now domain.Millis) (domain.Annotation, bool, error) {
	idx := p.AnnotationByID(id)
	if idx < 0 {
		return domain.Annotation{}, false, nil
	}
	a := p.Annotations[idx]
	if sel != nil {
		text, err := resolve(doc, *sel)
		if err != nil {
			return a, true, err
		}
		if Conflicts(p.Annotations, sel.EntryID, sel.Start, sel.End, id) {
			return a, true, ErrOverlap
		}
		a.EntryID, a.Start, a.End, a.Text = sel.EntryID, sel.Start, sel.End, text
	}
	apply(&a, in, a.ReadingType)
	a.UpdatedAt = now
	p.Annotations[idx] = a
	p.Unsuppress(a.Text)
	return a, true, nil
}

// Delete removes one annotation and suppresses its term on the page.
func Delete(p *domain.Page, id string) (domain.Annotation, bool) {
	idx := p.AnnotationByID(id)
	if idx < 0 {
		return domain.Annotation{}, false
	}
	a := p.Annotations[idx]
	p.Annotations = append(p.Annotations[:idx], p.Annotations[idx+1:]...)
	p.Suppress(a.Text)
	return a, true
}

// GroupKey identifies annotations that display as one group.
func GroupKey(a domain.Annotation) string {
	return strings.Join([]string{
		strings.TrimSpace(a.Text),
		strings.TrimSpace(a.Reading),
		strings.TrimSpace(a.Meaning),
		strings.TrimSpace(a.Notes),
		strings.TrimSpace(string(a.ReadingType)),
	}, GroupSeparator)
}

// Group is a set of identical annotations on one page.
type Group struct {
	Key         string
	Text        string
	Reading     string
	ReadingType domain.ReadingType
	Meaning     string
	Notes       string
	UpdatedAt   domain.Millis
	Members     []domain.Annotation
}

// Groups buckets the page's annotations by GroupKey, most recently updated
// group first.
func Groups(p *domain.Page) []Group {
	idx := map[string]int{}
	var out []Group
	for _, a := range p.Annotations {
		k := GroupKey(a)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, Group{
				Key:         k,
				Text:        strings.TrimSpace(a.Text),
				Reading:     a.Reading,
				ReadingType: a.ReadingType,
				Meaning:     a.Meaning,
				Notes:       a.Notes,
			})
		}
		g := &out[i]
		g.Members = append(g.Members, a)
		if a.UpdatedAt > g.UpdatedAt {
			g.UpdatedAt = a.UpdatedAt
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt > out[j].UpdatedAt })
	return out
}

// DeleteGroup removes every annotation with key and suppresses the group's
// term on the page. It returns how many annotations were removed.
func DeleteGroup(p *domain.Page, key string) int {
	var text string
	kept := p.Annotations[:0]
	removed := 0
	for _, a := range p.Annotations {
		if GroupKey(a) == key {
			text = a.Text
			removed++
			continue
		}
		kept = append(kept, a)
	}
	p.Annotations = kept
	if removed > 0 {
		p.Suppress(text)
	}
	return removed
}

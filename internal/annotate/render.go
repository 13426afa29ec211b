/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package annotate

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"shiori/internal/domain"
	"shiori/internal/entry"
)

// Tooltip joins meaning and notes the way the highlight hover shows them.
func Tooltip(a domain.Annotation) string {
	var parts []string
	if m := strings.TrimSpace(a.Meaning); m != "" {
		parts = append(parts, m)
	}
	if n := strings.TrimSpace(a.Notes); n != "" {
		parts = append(parts, n)
	}
	return strings.Join(parts, " • ")
}

func highlight(a domain.Annotation) (*html.Node, *html.Node) {
	outer := entry.Element(atom.Span,
		html.Attribute{Key: "class", Val: entry.ClassHighlight},
		html.Attribute{Key: entry.AttrAnnotationID, Val: a.ID},
	)
	if tip := Tooltip(a); tip != "" {
		outer.Attr = append(outer.Attr, html.Attribute{Key: entry.AttrTooltip, Val: tip})
	}
	if r := strings.TrimSpace(a.Reading); r != "" {
		furi := entry.Element(atom.Span,
			html.Attribute{Key: "class", Val: entry.ClassFurigana},
			html.Attribute{Key: "aria-hidden", Val: "true"},
		)
		furi.AppendChild(entry.Text(r))
		outer.AppendChild(furi)
	}
	text := entry.Element(atom.Span, html.Attribute{Key: "class", Val: entry.ClassHighlightText})
	outer.AppendChild(text)
	return outer, text
}

// Valid reports whether a still fits the current plain text of its entry.
func Valid(doc *entry.Document, a domain.Annotation) bool {
	e := doc.Entry(a.EntryID)
	if e == nil {
		return false
	}
	plain := e.Text()
	if a.Start < 0 || a.Start >= a.End || a.End > entry.RuneLen(plain) {
		return false
	}
	got := entry.SliceRunes(plain, a.Start, a.End)
	return a.Text == "" || got == a.Text || strings.TrimSpace(got) == strings.TrimSpace(a.Text)
}

// Decorate strips old decoration from doc and wraps every valid annotation
// in highlight markup. Invalid or conflicting annotations are skipped. It
// returns how many highlights were drawn.
func Decorate(doc *entry.Document, anns []domain.Annotation) int {
	doc.StripDecorations()
	ordered := append([]domain.Annotation(nil), anns...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].EntryID != ordered[j].EntryID {
			return ordered[i].EntryID < ordered[j].EntryID
		}
		return ordered[i].Start < ordered[j].Start
	})
	var drawn []domain.Annotation
	for _, a := range ordered {
		if !Valid(doc, a) || Conflicts(drawn, a.EntryID, a.Start, a.End, "") {
			continue
		}
		e := doc.Entry(a.EntryID)
		if entry.Wrap(e.Inner, a.Start, a.End, func() (*html.Node, *html.Node) { return highlight(a) }) {
			drawn = append(drawn, a)
		}
	}
	return len(drawn)
}

// Render returns content with highlights for anns. content itself is not
// modified.
func Render(doc *entry.Document, anns []domain.Annotation) string {
	c := doc.Clone()
	Decorate(c, anns)
	return c.HTML()
}

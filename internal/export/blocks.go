/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"sort"
	"strconv"
	"strings"

	"shiori/internal/domain"
	"shiori/internal/entry"
	"shiori/internal/pages"
	"shiori/internal/textlayout"
)

// block is one entry ready for output: its type and its text cut into runs,
// annotated spans carrying their reading.
type block struct {
	Type entry.Type
	Runs []textlayout.Run
}

func (b block) text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// inline joins the runs, writing readings as open+reading+close after the
// annotated text. pre is written before annotated text that has a reading.
func (b block) inline(pre, open, close string) string {
	var sb strings.Builder
	for _, r := range b.Runs {
		if r.Ruby == "" {
			sb.WriteString(r.Text)
			continue
		}
		sb.WriteString(pre + r.Text + open + r.Ruby + close)
	}
	return sb.String()
}

// blocks reads a page's entries. Blank entries are skipped.
func blocks(p *domain.Page) []block {
	doc, err := entry.Parse(p.Content)
	if err != nil {
		return nil
	}
	byEntry := map[string][]domain.Annotation{}
	for _, a := range p.Annotations {
		byEntry[a.EntryID] = append(byEntry[a.EntryID], a)
	}
	var out []block
	for _, e := range doc.Entries() {
		text := e.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, split(e.Type, text, byEntry[e.ID]))
	}
	return out
}

// split cuts text at annotation boundaries. Annotations whose range no
// longer fits are ignored.
func split(t entry.Type, text string, anns []domain.Annotation) block {
	sort.Slice(anns, func(i, j int) bool { return anns[i].Start < anns[j].Start })
	rs := []rune(text)
	b := block{Type: t}
	add := func(r textlayout.Run) {
		if r.Text != "" {
			b.Runs = append(b.Runs, r)
		}
	}
	pos := 0
	for _, a := range anns {
		if a.Start < pos || a.End > len(rs) || a.Start >= a.End {
			continue
		}
		add(textlayout.Run{Text: string(rs[pos:a.Start])})
		add(textlayout.Run{Text: string(rs[a.Start:a.End]), Ruby: strings.TrimSpace(a.Reading)})
		pos = a.End
	}
	add(textlayout.Run{Text: string(rs[pos:])})
	return b
}

// section is one chapter of the book in reading order.
type section struct {
	Chapter domain.Chapter
	Pages   []*domain.Page
}

func sections(b *domain.Book) []section {
	var out []section
	for _, ch := range pages.Chapters(b) {
		out = append(out, section{Chapter: ch, Pages: pages.InChapter(b, ch)})
	}
	return out
}

func chapterHeading(ch domain.Chapter) string {
	if ch == domain.NoChapter {
		return "No chapter"
	}
	return "Chapter " + ch.Key()
}

func pageHeading(p *domain.Page) string {
	h := "Page " + strconv.Itoa(p.Number)
	if t := strings.TrimSpace(p.Title); t != "" {
		h += ": " + t
	}
	return h
}

func byline(b *domain.Book) string {
	var parts []string
	if a := strings.TrimSpace(b.Author); a != "" {
		parts = append(parts, a)
	}
	if v := strings.TrimSpace(b.Volume); v != "" {
		parts = append(parts, "Vol. "+v)
	}
	return strings.Join(parts, " · ")
}

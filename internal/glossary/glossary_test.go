/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package glossary

import (
	"fmt"
	"testing"

	"shiori/internal/annotate"
	"shiori/internal/domain"
	"shiori/internal/entry"
)

func page(t *testing.T, text string) (*domain.Page, *entry.Document) {
	t.Helper()
	d, err := entry.Parse(`<div class="entry entry--narration" data-entry-id="e1"><div class="entry-inner">` + text + `</div></div>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return &domain.Page{ID: "p", Content: d.HTML()}, d
}

func ids() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("g%d", n)
	}
}

func TestUpsertNormalizesKey(t *testing.T) {
	b := &domain.Book{}
	g, ok := Upsert(b, domain.Annotation{Text: "  ねこ ", Reading: "neko", ReadingType: "weird"}, 7)
	if !ok || g.Text != "ねこ" || g.ReadingType != domain.ReadingKun || g.UpdatedAt != 7 {
		t.Fatalf("upsert = %+v ok=%v", g, ok)
	}
	if _, ok := b.Glossary["ねこ"]; !ok {
		t.Fatalf("glossary keys %v", b.Glossary)
	}
	if _, ok := Upsert(b, domain.Annotation{Text: "   "}, 8); ok {
		t.Fatalf("blank term accepted")
	}
	if !Remove(b, " ねこ") || Remove(b, "ねこ") {
		t.Fatalf("remove semantics wrong")
	}
}

func TestAutoApplyPropagatesAcrossPages(t *testing.T) {
	b := &domain.Book{}
	first, d1 := page(t, "ねこです")
	a, err := annotate.Create(first, d1, annotate.Selection{EntryID: "e1", Start: 0, End: 2}, annotate.Input{Reading: "neko", Meaning: "cat"}, "m1", 1)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	Upsert(b, a, 1)

	second, d2 := page(t, "ねこと、ねこ")
	if n := AutoApply(b, second, d2, ids(), 2); n != 2 {
		t.Fatalf("auto-applied %d, want 2", n)
	}
	for _, got := range second.Annotations {
		if got.Source != domain.SourceGlossary || got.Reading != "neko" || got.Meaning != "cat" || got.Text != "ねこ" {
			t.Fatalf("glossary annotation %+v", got)
		}
	}
	if second.Annotations[1].Start != 4 || second.Annotations[1].End != 6 {
		t.Fatalf("second occurrence at %d..%d", second.Annotations[1].Start, second.Annotations[1].End)
	}
	if n := AutoApply(b, second, d2, ids(), 3); n != 0 {
		t.Fatalf("re-running added %d", n)
	}
}

func TestAutoApplyPrefersLongerTerms(t *testing.T) {
	b := &domain.Book{Glossary: map[string]domain.GlossaryEntry{
		"猫":  {Text: "猫", Reading: "ねこ"},
		"猫又": {Text: "猫又", Reading: "ねこまた"},
	}}
	p, d := page(t, "猫又と猫")
	if n := AutoApply(b, p, d, ids(), 1); n != 2 {
		t.Fatalf("auto-applied %d", n)
	}
	got := map[string][2]int{}
	for _, a := range p.Annotations {
		got[a.Text] = [2]int{a.Start, a.End}
	}
	if got["猫又"] != [2]int{0, 2} || got["猫"] != [2]int{3, 4} {
		t.Fatalf("annotations %v", got)
	}
}

func TestSuppressionUntilManualSave(t *testing.T) {
	b := &domain.Book{Glossary: map[string]domain.GlossaryEntry{"ねこ": {Text: "ねこ", Reading: "neko"}}}
	p, d := page(t, "ねこと、ねこ")
	AutoApply(b, p, d, ids(), 1)

	groups := annotate.Groups(p)
	if len(groups) != 1 {
		t.Fatalf("groups %d", len(groups))
	}
	if n := annotate.DeleteGroup(p, groups[0].Key); n != 2 {
		t.Fatalf("deleted %d", n)
	}
	if n := AutoApply(b, p, d, ids(), 2); n != 0 {
		t.Fatalf("suppressed term re-applied %d", n)
	}
	if len(Candidates(b, p)) != 0 {
		t.Fatalf("suppressed term still a candidate")
	}

	if _, err := annotate.Create(p, d, annotate.Selection{EntryID: "e1", Start: 0, End: 2}, annotate.Input{Reading: "neko"}, "m1", 3); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if n := AutoApply(b, p, d, ids(), 4); n != 1 {
		t.Fatalf("after manual save auto-applied %d, want 1", n)
	}
}

func TestSortedAndCandidates(t *testing.T) {
	b := &domain.Book{Glossary: map[string]domain.GlossaryEntry{
		"b":   {Reading: "x"},
		"abc": {},
		" a ": {},
	}}
	s := Sorted(b)
	if len(s) != 3 || s[0].Text != "a" || s[2].Text != "b" {
		t.Fatalf("sorted %+v", s)
	}
	c := Candidates(b, &domain.Page{SuppressedGlossary: []string{"b"}})
	if len(c) != 2 || c[0].Text != "abc" {
		t.Fatalf("candidates %+v", c)
	}
}

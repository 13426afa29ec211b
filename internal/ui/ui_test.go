/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"shiori/internal/domain"
	"shiori/internal/entry"
	"shiori/internal/session"
)

func seq(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func newModel(t *testing.T, texts ...string) (Model, *session.Session) {
	t.Helper()
	b := &domain.Book{ID: "b", Title: "Night Train", CurrentChapter: 1, CurrentPage: 1}
	ids := seq("e")
	for i, tx := range texts {
		d := entry.New(entry.WithIDs(ids))
		d.Append(entry.Narration, tx)
		b.Pages = append(b.Pages, &domain.Page{ID: fmt.Sprintf("id%d", i+1), Chapter: 1, Number: i + 1, Content: d.HTML()})
	}
	lib := &domain.Library{Shelves: []*domain.Shelf{{ID: "s", Name: "Shelf", Books: []*domain.Book{b}}}}
	s, err := session.Open(lib, "b", session.Options{Debounce: time.Hour, NewID: seq("n"), EntryIDs: seq("x")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return New(s), s
}

func send(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		m = next.(Model)
	}
	return m
}

func keys(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func TestNewDeleteUndo(t *testing.T) {
	m, s := newModel(t, "いち", "に")
	m = send(m, keys("n"))
	if got := s.Current().Number; got != 3 {
		t.Fatalf("after new page current = %d", got)
	}
	m = send(m, keys("x"))
	if got := len(s.Pages(1)); got != 2 {
		t.Fatalf("pages after delete = %d", got)
	}
	m = send(m, keys("u"))
	if got := len(s.Pages(1)); got != 3 {
		t.Fatalf("pages after undo = %d", got)
	}
	if m.status != "page restored" || m.failed {
		t.Fatalf("status = %q failed=%v", m.status, m.failed)
	}
	m = send(m, keys("u"))
	if m.status != "nothing to undo" {
		t.Fatalf("status = %q", m.status)
	}
}

func TestDeleteLastPageShowsRejection(t *testing.T) {
	m, s := newModel(t, "ひとつ")
	m = send(m, keys("x"))
	if !m.failed || !strings.Contains(m.status, "at least one page") {
		t.Fatalf("status = %q failed=%v", m.status, m.failed)
	}
	if len(s.Pages(1)) != 1 {
		t.Fatalf("page was deleted")
	}
	if !strings.Contains(m.View(), "at least one page") {
		t.Fatalf("rejection not shown")
	}
}

func TestChapterPrompt(t *testing.T) {
	m, s := newModel(t, "いち")
	m = send(m, keys("c"))
	if m.prompt != promptChapter {
		t.Fatalf("prompt = %v", m.prompt)
	}
	m = send(m, keys("3"), enter)
	if m.prompt != promptNone {
		t.Fatalf("prompt still open")
	}
	if cur := s.Current(); cur.Chapter != 3 || cur.Number != 1 {
		t.Fatalf("current = ch%d p%d", cur.Chapter, cur.Number)
	}
	if !strings.Contains(m.View(), "Chapter 3") {
		t.Fatalf("header does not show the chapter:\n%s", m.View())
	}
}

func TestEscCancelsPrompt(t *testing.T) {
	m, s := newModel(t, "いち")
	m = send(m, keys("t"), keys("ignored"), esc)
	if m.prompt != promptNone || s.Current().Title != "" {
		t.Fatalf("prompt = %v title = %q", m.prompt, s.Current().Title)
	}
	m = send(m, keys("t"), keys("Arrival"), enter)
	if got := s.Current().Title; got != "Arrival" {
		t.Fatalf("title = %q", got)
	}
}

func TestAnnotateAndUnmark(t *testing.T) {
	m, s := newModel(t, "ねこがいる")
	m = send(m, keys("a"), keys("1 0 2 neko cat"), enter)
	anns := s.Annotations()
	if len(anns) != 1 || anns[0].Text != "ねこ" || anns[0].Reading != "neko" || anns[0].Meaning != "cat" {
		t.Fatalf("annotations = %+v", anns)
	}
	if !strings.Contains(m.View(), "neko") {
		t.Fatalf("reading not rendered:\n%s", m.View())
	}

	m = send(m, keys("a"), keys("1 1 3 x"), enter)
	if !m.failed || len(s.Annotations()) != 1 {
		t.Fatalf("overlap accepted: status %q", m.status)
	}

	m = send(m, keys("a"), keys("9 0 1 x"), enter)
	if !m.failed || !strings.Contains(m.status, "no entry 9") {
		t.Fatalf("status = %q", m.status)
	}

	m = send(m, keys("r"), keys("1"), enter)
	if len(s.Annotations()) != 0 {
		t.Fatalf("group not removed")
	}
	m = send(m, keys("r"), keys("4"), enter)
	if !m.failed {
		t.Fatalf("expected failure for unknown group")
	}
}

func TestEditGroup(t *testing.T) {
	m, s := newModel(t, "ねこがねこを見た")
	m = send(m, keys("a"), keys("1 0 2 neko"), enter)
	if n := len(s.Annotations()); n != 2 {
		t.Fatalf("glossary did not propagate: %d annotations", n)
	}
	m = send(m, keys("e"), keys("1 nyanko small cat"), enter)
	if m.failed {
		t.Fatalf("status = %q", m.status)
	}
	for _, a := range s.Annotations() {
		if a.Reading != "nyanko" || a.Meaning != "small cat" {
			t.Fatalf("member not edited: %+v", a)
		}
	}
	if gs := s.Groups(); len(gs) != 1 || len(gs[0].Members) != 2 {
		t.Fatalf("groups = %+v", gs)
	}
	m = send(m, keys("e"), keys("5 x"), enter)
	if !m.failed || m.status != "no such group" {
		t.Fatalf("status = %q", m.status)
	}
	m = send(m, keys("e"), keys("1"), enter)
	if !m.failed {
		t.Fatalf("edit without a reading accepted")
	}
}

func TestSplitAndRetype(t *testing.T) {
	m, s := newModel(t, "ねこがいる")
	m = send(m, keys("s"), keys("1 3"), enter)
	es := s.Entries()
	if len(es) != 2 || es[0].Text != "ねこが" || es[1].Text != "いる" {
		t.Fatalf("entries = %+v", es)
	}
	m = send(m, keys("s"), keys("7 1"), enter)
	if !m.failed || len(s.Entries()) != 2 {
		t.Fatalf("split of unknown entry: status %q", m.status)
	}

	m = send(m, keys("y"), keys("1,2 d"), enter)
	for _, e := range s.Entries() {
		if e.Type != entry.Dialogue {
			t.Fatalf("entry not retyped: %+v", e)
		}
	}
	m = send(m, keys("y"), keys("2 sfx"), enter)
	if got := s.Entries()[1].Type; got != entry.SFX || m.failed {
		t.Fatalf("type = %v status %q", got, m.status)
	}
	m = send(m, keys("y"), keys("1 q"), enter)
	if !m.failed || s.Entries()[0].Type != entry.Dialogue {
		t.Fatalf("unknown type accepted: status %q", m.status)
	}
}

func TestWriteEntry(t *testing.T) {
	m, s := newModel(t, "いち")
	m = send(m, keys("w"), keys("d:こんにちは"), enter)
	es := s.Entries()
	if len(es) != 2 || es[1].Type != entry.Dialogue || es[1].Text != "こんにちは" {
		t.Fatalf("entries = %+v", es)
	}
	_ = send(m, keys("w"), keys("   "), enter)
	if len(s.Entries()) != 2 {
		t.Fatalf("blank entry appended")
	}
}

func TestFilterSidebar(t *testing.T) {
	m, s := newModel(t, "りんご", "みかん")
	m = send(m, keys("/"), keys("みかん"), enter)
	v := m.renderSidebar(s.Current())
	if !strings.Contains(v, "みかん") || strings.Contains(v, "りんご") {
		t.Fatalf("filter not applied:\n%s", v)
	}
}

func TestParseWrite(t *testing.T) {
	cases := []struct {
		in   string
		t    entry.Type
		text string
	}{
		{"plain", entry.Narration, "plain"},
		{"s: ドン", entry.SFX, "ドン"},
		{"t:hm", entry.Thought, "hm"},
		{"x:keep", entry.Narration, "x:keep"},
	}
	for _, c := range cases {
		gt, gtext := parseWrite(c.in)
		if gt != c.t || gtext != c.text {
			t.Fatalf("parseWrite(%q) = %v %q", c.in, gt, gtext)
		}
	}
}

func TestQuit(t *testing.T) {
	m, _ := newModel(t, "いち")
	_, cmd := m.Update(keys("q"))
	if cmd == nil {
		t.Fatalf("no quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("cmd is not quit")
	}
}

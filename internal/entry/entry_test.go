/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entry

import (
	"fmt"
	"strings"
	"testing"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const decorated = `<div class="entry entry--narration" data-type="narration" data-entry-id="e1"><div class="entry-inner">ab<b>cd</b><span class="annotation-highlight" data-annotation-id="a1"><span class="annotation-furigana" aria-hidden="true">ねこ</span><span class="annotation-highlight__text">猫</span></span>ef</div></div>`

func seqIDs() Option {
	n := 0
	return WithIDs(func() string {
		n++
		return fmt.Sprintf("gen%d", n)
	})
}

func mustParse(t *testing.T, s string) *Document {
	t.Helper()
	d, err := Parse(s, seqIDs())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return d
}

func findText(n *html.Node, data string) *html.Node {
	if n.Type == html.TextNode && n.Data == data {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findText(c, data); f != nil {
			return f
		}
	}
	return nil
}

func renderChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&b, c)
	}
	return b.String()
}

func TestPlainTextExcludesReadingGlyphs(t *testing.T) {
	d := mustParse(t, decorated)
	e := d.Entry("e1")
	if e == nil {
		t.Fatalf("entry e1 missing")
	}
	if got, want := e.Text(), "abcd猫ef"; got != want {
		t.Fatalf("Text() = %q, want %q", got, want)
	}
}

func TestMeasureLocateRoundTrip(t *testing.T) {
	d := mustParse(t, decorated)
	inner := d.Entry("e1").Inner
	total := RuneLen(PlainText(inner, IsDecoration))
	for k := 0; k <= total; k++ {
		pos, ok := Locate(inner, k, IsDecoration)
		if !ok {
			t.Fatalf("Locate(%d) failed", k)
		}
		got, ok := Measure(inner, pos, IsDecoration)
		if !ok || got != k {
			t.Fatalf("Measure(Locate(%d)) = %d,%v", k, got, ok)
		}
		again, _ := Locate(inner, got, IsDecoration)
		if again != pos {
			t.Fatalf("Locate(Measure(p)) moved for offset %d", k)
		}
	}
}

func TestMeasureBoundaryPoints(t *testing.T) {
	d := mustParse(t, decorated)
	inner := d.Entry("e1").Inner
	furi := findText(inner, "ねこ")
	bold := inner.FirstChild.NextSibling

	cases := []struct {
		name string
		pos  Position
		want int
	}{
		{"inside reading glyph", Position{Node: furi, Offset: 1}, 4},
		{"before highlight", Position{Node: inner, Offset: 2}, 4},
		{"end of container", Position{Node: inner, Offset: 4}, 7},
		{"end of bold", Position{Node: bold, Offset: 1}, 4},
		{"offset clamps", Position{Node: findText(inner, "ef"), Offset: 99}, 7},
	}
	for _, c := range cases {
		got, ok := Measure(inner, c.pos, IsDecoration)
		if !ok || got != c.want {
			t.Fatalf("%s: Measure = %d,%v want %d", c.name, got, ok, c.want)
		}
	}
	if _, ok := Measure(inner, Position{Node: Text("detached")}, IsDecoration); ok {
		t.Fatalf("expected detached node to fail")
	}
}

func TestLocateWithoutText(t *testing.T) {
	d := mustParse(t, "")
	if _, ok := Locate(d.Entries()[0].Inner, 0, IsDecoration); ok {
		t.Fatalf("expected Locate to fail on an entry without text")
	}
	pos, ok := Locate(mustParse(t, decorated).Entry("e1").Inner, 100, IsDecoration)
	if !ok || pos.Node.Data != "ef" || pos.Offset != 2 {
		t.Fatalf("past-end locate should clamp to last node end, got %+v", pos)
	}
}

func TestNormalizeWrapsStrayContent(t *testing.T) {
	d := mustParse(t, `hello <b>x</b><p>   </p>`)
	es := d.Entries()
	if len(es) != 2 {
		t.Fatalf("expected 2 entries, got %d: %s", len(es), d.HTML())
	}
	if es[0].Text() != "hello " || es[1].Text() != "x" {
		t.Fatalf("unexpected texts %q %q", es[0].Text(), es[1].Text())
	}
	for _, e := range es {
		if e.Type != Narration || e.ID == "" {
			t.Fatalf("bad entry %+v", e)
		}
	}
}

func TestEmptyPageIsOneBlankNarration(t *testing.T) {
	d := mustParse(t, "   ")
	es := d.Entries()
	if len(es) != 1 || es[0].Type != Narration || es[0].Text() != "" {
		t.Fatalf("unexpected entries: %s", d.HTML())
	}
	if got, want := d.HTML(), `<div class="entry entry--narration" data-type="narration" data-entry-id="gen1"><div class="entry-inner"><br/></div></div>`; got != want {
		t.Fatalf("HTML() = %s\nwant %s", got, want)
	}
	if !d.IsBlank() {
		t.Fatalf("expected blank document")
	}
}

func TestNormalizeFixesIdsAndTypes(t *testing.T) {
	d := mustParse(t, `<div class="entry" data-type="poem" data-entry-id="x"><div class="entry-inner">a</div></div><div class="entry entry--sfx" data-entry-id="x">b</div>`)
	es := d.Entries()
	if len(es) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(es))
	}
	if es[0].ID != "x" || es[0].Type != Narration {
		t.Fatalf("first entry: %+v", es[0])
	}
	if es[1].ID == "x" || es[1].Type != SFX {
		t.Fatalf("duplicate id not replaced or type lost: %+v", es[1])
	}
	if es[1].Inner == es[1].Node || es[1].Text() != "b" {
		t.Fatalf("inner container not created")
	}
}

func TestSplitKeepsFormattingOnBothSides(t *testing.T) {
	d := mustParse(t, `<div class="entry entry--dialogue" data-type="dialogue" data-entry-id="e1"><div class="entry-inner">ab<b>cd</b>ef</div></div>`)
	ne, ok := d.Split("e1", 3)
	if !ok {
		t.Fatalf("Split failed")
	}
	es := d.Entries()
	if len(es) != 2 || es[1].ID != ne.ID {
		t.Fatalf("new entry not inserted after the original")
	}
	if es[0].Text() != "abc" || es[1].Text() != "def" {
		t.Fatalf("split texts %q / %q", es[0].Text(), es[1].Text())
	}
	if es[1].Type != Dialogue || es[1].ID == "e1" {
		t.Fatalf("new entry should keep type and get a fresh id: %+v", es[1])
	}
	if got := renderChildren(es[1].Inner); got != "<b>d</b>ef" {
		t.Fatalf("tail markup = %s", got)
	}
}

func TestSplitAtEdgesLeavesPlaceholder(t *testing.T) {
	d := mustParse(t, `<div class="entry" data-type="thought" data-entry-id="e1"><div class="entry-inner">abc</div></div>`)
	if _, ok := d.Split("e1", 3); !ok {
		t.Fatalf("split at end failed")
	}
	es := d.Entries()
	if es[0].Text() != "abc" || es[1].Text() != "" || es[1].Inner.FirstChild.Data != "br" {
		t.Fatalf("split at end: %s", d.HTML())
	}
	if _, ok := d.Split("e1", 0); !ok {
		t.Fatalf("split at start failed")
	}
	es = d.Entries()
	if len(es) != 3 || es[0].Text() != "" || es[1].Text() != "abc" {
		t.Fatalf("split at start: %s", d.HTML())
	}
	if _, ok := d.Split("missing", 1); ok {
		t.Fatalf("split of unknown entry should fail")
	}
}

func TestRetypeInPlace(t *testing.T) {
	d := mustParse(t, `<div class="entry entry--narration custom" data-type="narration" data-entry-id="e1"><div class="entry-inner">a</div></div><div class="entry" data-type="narration" data-entry-id="e2"><div class="entry-inner">b</div></div>`)
	if n := d.Retype([]string{"e1", "e2", "nope"}, SFX); n != 2 {
		t.Fatalf("Retype touched %d entries", n)
	}
	for _, e := range d.Entries() {
		if e.Type != SFX {
			t.Fatalf("entry %s type %s", e.ID, e.Type)
		}
	}
	if got := attr(d.Entry("e1").Node, "class"); got != "entry custom entry--sfx" {
		t.Fatalf("class = %q", got)
	}
}

func TestStripDecorations(t *testing.T) {
	d := mustParse(t, decorated)
	d.StripDecorations()
	e := d.Entry("e1")
	if e.Text() != "abcd猫ef" {
		t.Fatalf("text changed: %q", e.Text())
	}
	if findText(e.Inner, "ねこ") != nil || findText(e.Inner, "猫ef") == nil {
		t.Fatalf("decoration not stripped: %s", d.HTML())
	}
}

func TestWrapSplitsCrossingElements(t *testing.T) {
	d := mustParse(t, `<div class="entry" data-type="narration" data-entry-id="e1"><div class="entry-inner">ab<b>cd</b>ef</div></div>`)
	inner := d.Entry("e1").Inner
	ok := Wrap(inner, 1, 3, func() (*html.Node, *html.Node) {
		s := Element(atom.Span)
		return s, s
	})
	if !ok {
		t.Fatalf("Wrap failed")
	}
	if got, want := renderChildren(inner), "a<span>b<b>c</b></span><b>d</b>ef"; got != want {
		t.Fatalf("wrapped = %s, want %s", got, want)
	}
	if PlainText(inner, IsDecoration) != "abcdef" {
		t.Fatalf("plain text changed")
	}
	if Wrap(inner, 4, 99, func() (*html.Node, *html.Node) { return Text("x"), Text("x") }) {
		t.Fatalf("out of range wrap should fail")
	}
}

func TestSanitizeDropsScripts(t *testing.T) {
	out := Sanitize(`<div class="entry" data-type="dialogue" data-entry-id="e1" onclick="x()"><div class="entry-inner">hi<script>alert(1)</script></div></div>`)
	if strings.Contains(out, "<script") || strings.Contains(out, "onclick") || strings.Contains(out, "alert") {
		t.Fatalf("unsafe markup survived: %s", out)
	}
	d := mustParse(t, out)
	if e := d.Entry("e1"); e == nil || e.Type != Dialogue || e.Text() != "hi" {
		t.Fatalf("entry lost in sanitize: %s", out)
	}
}

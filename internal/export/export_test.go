/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shiori/internal/domain"
	"shiori/internal/entry"
)

func entryHTML(id string, t entry.Type, text string) string {
	return `<div class="entry entry--` + string(t) + `" data-type="` + string(t) + `" data-entry-id="` + id + `"><div class="entry-inner">` + text + `</div></div>`
}

func sampleBook() *domain.Book {
	b := domain.NewBook("Night Train", "Aoi", "2", 1)
	p1 := b.Pages[0]
	p1.Chapter = 1
	p1.Title = "Departure"
	p1.Content = entryHTML("e1", entry.Narration, "漢字です") + entryHTML("e2", entry.Dialogue, "行こう") + entryHTML("e3", entry.SFX, "<br>")
	p1.Annotations = []domain.Annotation{
		{ID: "a1", EntryID: "e1", Start: 0, End: 2, Text: "漢字", Reading: "かんじ", ReadingType: domain.ReadingOn, Meaning: "kanji"},
		{ID: "a2", EntryID: "e2", Start: 0, End: 9, Text: "bogus"},
	}
	b.Pages = append(b.Pages, &domain.Page{ID: "p2", Chapter: domain.NoChapter, Number: 1, Content: entryHTML("x", entry.Thought, "静かだ")})
	b.Glossary = map[string]domain.GlossaryEntry{"漢字": {Text: "漢字", Reading: "かんじ", ReadingType: domain.ReadingOn, Meaning: "kanji"}}
	b.CurrentChapter, b.CurrentPage = 1, 1
	return b
}

func TestFileName(t *testing.T) {
	b := sampleBook()
	if got := FileName(b, Markdown); got != "night-train-v2.md" {
		t.Fatalf("FileName = %q", got)
	}
	b.Title, b.Volume = "  ", ""
	if got := FileName(b, PDF); got != "book.pdf" {
		t.Fatalf("FileName = %q", got)
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"md": Markdown, " Markdown ": Markdown, "PDF": PDF, "png": PNG} {
		if got, err := ParseFormat(in); err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("epub"); !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestBlocksSplitOnAnnotations(t *testing.T) {
	bs := blocks(sampleBook().Pages[0])
	if len(bs) != 2 {
		t.Fatalf("expected blank entry skipped, got %d blocks", len(bs))
	}
	if len(bs[0].Runs) != 2 || bs[0].Runs[0].Ruby != "かんじ" || bs[0].text() != "漢字です" {
		t.Fatalf("runs = %+v", bs[0].Runs)
	}
	if got := bs[0].inline("｜", "《", "》"); got != "｜漢字《かんじ》です" {
		t.Fatalf("inline = %q", got)
	}
	if len(bs[1].Runs) != 1 || bs[1].text() != "行こう" {
		t.Fatalf("out-of-range annotation not ignored: %+v", bs[1].Runs)
	}
}

func TestWriteMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, sampleBook()); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	md := buf.String()
	for _, want := range []string{"# Night Train", "Aoi · Vol. 2", "## No chapter", "## Chapter 1", "### Page 1: Departure", "｜漢字《かんじ》です", "「行こう」", "静かだ", "## Glossary", "kanji"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown lacks %q:\n%s", want, md)
		}
	}
	if strings.Index(md, "No chapter") > strings.Index(md, "Chapter 1") {
		t.Fatalf("unchaptered pages should come first:\n%s", md)
	}
}

func TestWritePDF(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePDF(&buf, sampleBook(), Options{}); err != nil {
		t.Fatalf("WritePDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", buf.Bytes()[:16])
	}
	err := WritePDF(&bytes.Buffer{}, sampleBook(), Options{FontPath: filepath.Join(t.TempDir(), "none.ttf")})
	if err == nil {
		t.Fatalf("expected error for a missing font")
	}
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	if err := WritePNG(&buf, sampleBook(), Options{Width: 400}); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() <= 2*pngPadding {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	found := false
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y && !found; y++ {
		for x := img.Bounds().Min.X; x < img.Bounds().Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r>>8 == uint32(highlight.R) && g>>8 == uint32(highlight.G) && b>>8 == uint32(highlight.B) {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatalf("annotated span not highlighted")
	}
	if err := WritePNG(&bytes.Buffer{}, sampleBook(), Options{PageID: "missing"}); !errors.Is(err, ErrNoPage) {
		t.Fatalf("expected ErrNoPage, got %v", err)
	}
}

func TestToDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	for _, f := range Formats() {
		path, err := ToDir(dir, f, sampleBook(), Options{})
		if err != nil {
			t.Fatalf("ToDir(%s): %v", f, err)
		}
		if filepath.Base(path) != "night-train-v2."+f.Ext() {
			t.Fatalf("path = %s", path)
		}
		if st, err := os.Stat(path); err != nil || st.Size() == 0 {
			t.Fatalf("stat %s: %v", path, err)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 3 {
		t.Fatalf("leftover temp files: %v", entries)
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package textlayout breaks annotated text into lines for raster output.
// Runs carrying a reading are kept whole so the reading can be drawn
// centered above them; plain text breaks between any two CJK characters and
// at spaces between Latin words.
package textlayout

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string
	SizePt float32
}

// Metrics are font metrics in pixels for the resolved face.
type Metrics struct {
	Ascent, Descent, LineGap float32
}

// Height is one line of this face without extra leading.
func (m Metrics) Height() float32 { return m.Ascent + m.Descent + m.LineGap }

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// BasicProvider uses x/image/basicfont Face7x13 for deterministic tests. It
// ignores the requested size.
type BasicProvider struct{}

func (BasicProvider) Resolve(FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	return f, metricsOf(f)
}

func metricsOf(f font.Face) Metrics {
	m := f.Metrics()
	return Metrics{
		Ascent:  float32(m.Ascent.Round()),
		Descent: float32(m.Descent.Round()),
		LineGap: float32(m.Height.Round() - m.Ascent.Round() - m.Descent.Round()),
	}
}

// Run is a piece of text. A run with Ruby is never broken.
type Run struct {
	Text string
	Ruby string
}

// Piece is a run placed on a line. X is the offset from the line start.
type Piece struct {
	Run
	X     float32
	Width float32
	// BaseWidth is the width of Text alone; Width also covers the reading.
	BaseWidth float32
}

type Line struct {
	Pieces []Piece
	Width  float32
}

// Box is the result of laying out runs into a width.
type Box struct {
	Lines []Line
	Width float32
	// LineHeight includes the band reserved for readings.
	LineHeight float32
	RubyBand   float32
	Body, Ruby Metrics
}

func (b Box) Height() float32 { return float32(len(b.Lines)) * b.LineHeight }

// Layouter wraps runs using faces from Provider.
type Layouter struct {
	Provider Provider
	Body     FontSpec
	// Ruby defaults to half the body size.
	Ruby    FontSpec
	Leading float32
}

// no line may start with these
const noLineStart = "、。，．・：；？！ー…‥）」』】〕〉》｝〙〗ゝゞヽヾっゃゅょァィゥェォッャュョ,.!?:;)]}"

// Layout breaks runs into lines no wider than maxWidth. maxWidth <= 0 means
// one line per paragraph. A "\n" in plain text ends the line.
func (l Layouter) Layout(runs []Run, maxWidth float32) Box {
	p := l.Provider
	if p == nil {
		p = BasicProvider{}
	}
	rubySpec := l.Ruby
	if rubySpec.SizePt <= 0 {
		rubySpec = FontSpec{Family: l.Body.Family, SizePt: l.Body.SizePt / 2}
	}
	body, bm := p.Resolve(l.Body)
	ruby, rm := p.Resolve(rubySpec)
	box := Box{Body: bm, Ruby: rm, RubyBand: rm.Ascent + rm.Descent}
	box.LineHeight = box.RubyBand + bm.Height() + l.Leading

	var cur Line
	flush := func() {
		// trailing spaces do not count
		for len(cur.Pieces) > 0 && strings.TrimSpace(cur.Pieces[len(cur.Pieces)-1].Text) == "" && cur.Pieces[len(cur.Pieces)-1].Ruby == "" {
			cur.Width -= cur.Pieces[len(cur.Pieces)-1].Width
			cur.Pieces = cur.Pieces[:len(cur.Pieces)-1]
		}
		if cur.Width > box.Width {
			box.Width = cur.Width
		}
		box.Lines = append(box.Lines, cur)
		cur = Line{}
	}
	place := func(r Run) {
		bw := Measure(body, r.Text)
		w := bw
		if r.Ruby != "" {
			if rw := Measure(ruby, r.Ruby); rw > w {
				w = rw
			}
		}
		blank := r.Ruby == "" && strings.TrimSpace(r.Text) == ""
		if len(cur.Pieces) == 0 && blank {
			return
		}
		fits := maxWidth <= 0 || cur.Width+w <= maxWidth
		if !fits && len(cur.Pieces) > 0 && !blank && !forbiddenStart(r.Text) {
			flush()
		}
		cur.Pieces = append(cur.Pieces, Piece{Run: r, X: cur.Width, Width: w, BaseWidth: bw})
		cur.Width += w
	}
	for _, r := range runs {
		if r.Ruby != "" {
			place(r)
			continue
		}
		for i, para := range strings.Split(r.Text, "\n") {
			if i > 0 {
				flush()
			}
			for _, tok := range tokens(para) {
				place(Run{Text: tok})
			}
		}
	}
	if len(cur.Pieces) > 0 || len(box.Lines) == 0 {
		flush()
	}
	return box
}

func forbiddenStart(tok string) bool {
	r, _ := utf8.DecodeRuneInString(tok)
	return r != utf8.RuneError && strings.ContainsRune(noLineStart, r)
}

// tokens splits plain text into unbreakable pieces: Latin words, single
// spaces and single characters of everything else.
func tokens(s string) []string {
	var out []string
	word := -1
	for i, r := range s {
		latin := r < 0x2E80 && !unicode.IsSpace(r)
		if latin {
			if word < 0 {
				word = i
			}
			continue
		}
		if word >= 0 {
			out = append(out, s[word:i])
			word = -1
		}
		out = append(out, string(r))
	}
	if word >= 0 {
		out = append(out, s[word:])
	}
	return out
}

// Measure returns the advance of s in pixels.
func Measure(face font.Face, s string) float32 {
	d := &font.Drawer{Face: face}
	return float32(d.MeasureString(s)) / 64
}

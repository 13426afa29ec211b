/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"shiori/internal/domain"
	"shiori/internal/pages"
	"shiori/internal/textlayout"
)

// ErrNoPage is returned when the requested PNG page does not exist.
var ErrNoPage = errors.New("page not found")

const (
	pngWidth   = 800
	pngPadding = 32
	pngGap     = 10
	bodySize   = 18
)

var (
	paper     = color.RGBA{255, 255, 255, 255}
	headingFg = color.RGBA{110, 110, 110, 255}
	highlight = color.RGBA{255, 241, 168, 255}
)

// WritePNG renders one page with readings drawn above annotated text.
func WritePNG(w io.Writer, b *domain.Book, opt Options) error {
	p := previewPage(b, opt.PageID)
	if p == nil {
		return ErrNoPage
	}
	provider, err := providerFor(opt.FontPath)
	if err != nil {
		return err
	}
	img := renderPage(p, provider, opt.Width)
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func previewPage(b *domain.Book, id string) *domain.Page {
	if id != "" {
		return b.PageByID(id)
	}
	if p := pages.Get(b, b.CurrentChapter, b.CurrentPage); p != nil {
		return p
	}
	for _, ch := range pages.Chapters(b) {
		return pages.InChapter(b, ch)[0]
	}
	return nil
}

func providerFor(fontPath string) (textlayout.Provider, error) {
	if fontPath == "" {
		return textlayout.BasicProvider{}, nil
	}
	lib := textlayout.NewFontLibrary()
	if err := lib.LoadTTF(pdfFontFamily, fontPath); err != nil {
		return nil, err
	}
	return textlayout.OTProvider{Lib: lib}, nil
}

type laidOut struct {
	style textlayout.TextStyle
	box   textlayout.Box
}

func renderPage(p *domain.Page, provider textlayout.Provider, width int) *image.RGBA {
	if width <= 0 {
		width = pngWidth
	}
	body := textlayout.FontSpec{Family: pdfFontFamily, SizePt: bodySize}
	lay := textlayout.Layouter{Provider: provider, Body: body, Leading: 4}
	headFace, hm := provider.Resolve(textlayout.FontSpec{Family: pdfFontFamily, SizePt: bodySize * 0.7})
	bodyFace, _ := provider.Resolve(body)
	rubyFace, _ := provider.Resolve(textlayout.FontSpec{Family: pdfFontFamily, SizePt: bodySize / 2})

	var items []laidOut
	height := float32(pngPadding*2) + hm.Height() + pngGap
	for _, bl := range blocks(p) {
		st := textlayout.StyleFor(string(bl.Type))
		runs := bl.Runs
		if st.Open != "" || st.Close != "" {
			runs = append([]textlayout.Run{{Text: st.Open}}, runs...)
			runs = append(runs, textlayout.Run{Text: st.Close})
		}
		box := lay.Layout(runs, float32(width-2*pngPadding)-st.Indent)
		items = append(items, laidOut{style: st, box: box})
		height += box.Height() + pngGap
	}

	img := image.NewRGBA(image.Rect(0, 0, width, int(math.Ceil(float64(height)))))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: paper}, image.Point{}, draw.Src)

	y := float32(pngPadding)
	drawString(img, headFace, headingFg, pngPadding, y+hm.Ascent, chapterHeading(p.Chapter)+" · "+pageHeading(p))
	y += hm.Height() + pngGap

	for _, it := range items {
		x0 := float32(pngPadding) + it.style.Indent
		for _, ln := range it.box.Lines {
			base := y + it.box.RubyBand + it.box.Body.Ascent
			for _, pc := range ln.Pieces {
				bx := x0 + pc.X + (pc.Width-pc.BaseWidth)/2
				if pc.Ruby != "" {
					top := int(y + it.box.RubyBand)
					fillRect(img, int(x0+pc.X), top, int(x0+pc.X+pc.Width), top+int(it.box.Body.Height()), highlight)
					rw := textlayout.Measure(rubyFace, pc.Ruby)
					drawString(img, rubyFace, it.style.Color, x0+pc.X+(pc.Width-rw)/2, y+it.box.Ruby.Ascent, pc.Ruby)
				}
				drawString(img, bodyFace, it.style.Color, bx, base, pc.Text)
			}
			y += it.box.LineHeight
		}
		y += pngGap
	}
	return img
}

func drawString(img draw.Image, face font.Face, c color.RGBA, x, baseline float32, s string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.Int26_6(x * 64), Y: fixed.Int26_6(baseline * 64)},
	}
	d.DrawString(s)
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	draw.Draw(img, image.Rect(x0, y0, x1, y1).Intersect(img.Bounds()), &image.Uniform{C: c}, image.Point{}, draw.Src)
}

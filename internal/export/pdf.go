/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"os"

	"github.com/jung-kurt/gofpdf"

	"shiori/internal/domain"
	"shiori/internal/glossary"
	"shiori/internal/textlayout"
)

const (
	pdfFontFamily = "body"
	pdfLine       = 6.0 // mm
)

// pdfDoc wraps gofpdf with the font choice made once.
type pdfDoc struct {
	*gofpdf.Fpdf
	family string
	tr     func(string) string
}

func newPDF(b *domain.Book, fontPath string) (*pdfDoc, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	d := &pdfDoc{Fpdf: pdf, family: "Helvetica", tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if fontPath != "" {
		if _, err := os.Stat(fontPath); err != nil {
			return nil, fmt.Errorf("font: %w", err)
		}
		pdf.AddUTF8Font(pdfFontFamily, "", fontPath)
		d.family = pdfFontFamily
		d.tr = func(s string) string { return s }
	}
	pdf.SetTitle(b.Title, true)
	if b.Author != "" {
		pdf.SetAuthor(b.Author, true)
	}
	pdf.SetCreator("shiori", false)
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	return d, nil
}

func (d *pdfDoc) font(size float64) { d.SetFont(d.family, "", size) }

func (d *pdfDoc) color(c [3]int) { d.SetTextColor(c[0], c[1], c[2]) }

// WritePDF writes the book as an A4 PDF: a title page, one PDF page per
// book page, and the glossary. Readings follow the base text in brackets.
func WritePDF(w io.Writer, b *domain.Book, opt Options) error {
	d, err := newPDF(b, opt.FontPath)
	if err != nil {
		return err
	}
	black, grey := [3]int{0, 0, 0}, [3]int{110, 110, 110}

	d.AddPage()
	d.font(24)
	d.Ln(60)
	d.MultiCell(0, 12, d.tr(b.Title), "", "C", false)
	if by := byline(b); by != "" {
		d.font(12)
		d.color(grey)
		d.MultiCell(0, 8, d.tr(by), "", "C", false)
		d.color(black)
	}

	left, _, _, _ := d.GetMargins()
	for _, sec := range sections(b) {
		for _, p := range sec.Pages {
			d.AddPage()
			d.font(9)
			d.color(grey)
			d.CellFormat(0, 5, d.tr(chapterHeading(sec.Chapter)+" · "+pageHeading(p)), "B", 1, "L", false, 0, "")
			d.Ln(4)
			for _, bl := range blocks(p) {
				st := textlayout.StyleFor(string(bl.Type))
				d.color([3]int{int(st.Color.R), int(st.Color.G), int(st.Color.B)})
				d.font(11)
				indent := float64(st.Indent) / 3
				d.SetLeftMargin(left + indent)
				d.SetX(left + indent)
				d.MultiCell(0, pdfLine, d.tr(st.Open+bl.inline("", "（", "）")+st.Close), "", "L", false)
				d.SetLeftMargin(left)
				d.Ln(2)
			}
			d.color(black)
		}
	}

	if terms := glossary.Sorted(b); len(terms) > 0 {
		d.AddPage()
		d.font(16)
		d.CellFormat(0, 10, "Glossary", "", 1, "L", false, 0, "")
		d.font(10)
		widths := []float64{35, 35, 15, 40, 45}
		for i, h := range []string{"Term", "Reading", "Type", "Meaning", "Notes"} {
			d.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
		}
		d.Ln(-1)
		for _, g := range terms {
			for i, v := range []string{g.Text, g.Reading, string(g.ReadingType), g.Meaning, g.Notes} {
				d.CellFormat(widths[i], 7, d.tr(truncate(v, 24)), "1", 0, "L", false, 0, "")
			}
			d.Ln(-1)
		}
	}
	if err := d.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	if err := d.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}

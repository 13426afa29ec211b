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
	"html"
	"io"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"shiori/internal/domain"
	"shiori/internal/entry"
	"shiori/internal/glossary"
)

func newConverter() *converter.Converter {
	return converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
}

// WriteMarkdown writes the book as Markdown. Readings use the ｜base《reading》
// notation; the glossary becomes a table at the end.
func WriteMarkdown(w io.Writer, b *domain.Book) error {
	md, err := newConverter().ConvertString(bookHTML(b))
	if err != nil {
		return fmt.Errorf("convert markdown: %w", err)
	}
	_, err = io.WriteString(w, strings.TrimSpace(md)+"\n")
	return err
}

// bookHTML lays the book out as plain HTML for the converter.
func bookHTML(b *domain.Book) string {
	var sb strings.Builder
	esc := html.EscapeString
	fmt.Fprintf(&sb, "<h1>%s</h1>\n", esc(b.Title))
	if by := byline(b); by != "" {
		fmt.Fprintf(&sb, "<p>%s</p>\n", esc(by))
	}
	for _, sec := range sections(b) {
		fmt.Fprintf(&sb, "<h2>%s</h2>\n", esc(chapterHeading(sec.Chapter)))
		for _, p := range sec.Pages {
			fmt.Fprintf(&sb, "<h3>%s</h3>\n", esc(pageHeading(p)))
			for _, bl := range blocks(p) {
				text := esc(bl.inline("｜", "《", "》"))
				switch bl.Type {
				case entry.Dialogue:
					fmt.Fprintf(&sb, "<p>「%s」</p>\n", text)
				case entry.Thought:
					fmt.Fprintf(&sb, "<p><em>%s</em></p>\n", text)
				case entry.SFX:
					fmt.Fprintf(&sb, "<p><strong>%s</strong></p>\n", text)
				default:
					fmt.Fprintf(&sb, "<p>%s</p>\n", text)
				}
			}
		}
	}
	if terms := glossary.Sorted(b); len(terms) > 0 {
		sb.WriteString("<h2>Glossary</h2>\n<table><thead><tr><th>Term</th><th>Reading</th><th>Type</th><th>Meaning</th><th>Notes</th></tr></thead><tbody>\n")
		for _, g := range terms {
			fmt.Fprintf(&sb, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				esc(g.Text), esc(g.Reading), esc(string(g.ReadingType)), esc(g.Meaning), esc(g.Notes))
		}
		sb.WriteString("</tbody></table>\n")
	}
	return sb.String()
}

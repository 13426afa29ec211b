/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"shiori/internal/domain"
	"shiori/internal/entry"
	"shiori/internal/pages"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229"))
	markStyle    = lipgloss.NewStyle().Background(lipgloss.Color("58")).Foreground(lipgloss.Color("230"))
	rubyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("111"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	sidebarStyle = lipgloss.NewStyle().Width(sidebarWidth).PaddingRight(1).
			BorderStyle(lipgloss.NormalBorder()).BorderRight(true).BorderForeground(lipgloss.Color("238"))

	typeTags = map[entry.Type]string{
		entry.Narration: "N",
		entry.Dialogue:  "D",
		entry.SFX:       "S",
		entry.Thought:   "T",
	}
)

func (m Model) View() string {
	b := m.sess.Book()
	cur := m.sess.Current()
	inCh := m.sess.Pages(cur.Chapter)

	header := titleStyle.Render(b.Title) + dimStyle.Render(fmt.Sprintf("  %s · page %d/%d", chapterLabel(cur.Chapter), cur.Number, len(inCh)))
	if cur.Title != "" {
		header += dimStyle.Render(" · " + cur.Title)
	}

	main := lipgloss.JoinHorizontal(lipgloss.Top, sidebarStyle.Render(m.renderSidebar(cur)), m.body.View())

	var footer string
	switch {
	case m.prompt != promptNone:
		footer = m.input.View()
	case m.status != "" && m.failed:
		footer = errorStyle.Render(m.status)
	case m.status != "":
		footer = okStyle.Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, main, footer, m.help.View(m.keys))
}

func (m Model) renderSidebar(cur *domain.Page) string {
	var sb strings.Builder
	if m.filter != "" {
		sb.WriteString(dimStyle.Render("filter: "+m.filter) + "\n")
	}
	for _, sec := range m.sess.TOC(m.filter) {
		sb.WriteString(dimStyle.Render(chapterLabel(sec.Chapter)) + "\n")
		for _, p := range sec.Pages {
			line := fmt.Sprintf("%3d %s", p.Number, truncate(pages.Preview(p), sidebarWidth-6))
			if p.ID == cur.ID {
				sb.WriteString(currentStyle.Render("> "+line) + "\n")
				continue
			}
			sb.WriteString("  " + line + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m Model) renderBody() string {
	anns := m.sess.Annotations()
	byEntry := map[string][]domain.Annotation{}
	for _, a := range anns {
		byEntry[a.EntryID] = append(byEntry[a.EntryID], a)
	}

	var sb strings.Builder
	entries := m.sess.Entries()
	if len(entries) == 0 {
		sb.WriteString(dimStyle.Render("(empty page, press w to write)") + "\n")
	}
	for i, e := range entries {
		fmt.Fprintf(&sb, "%s %s %s\n", dimStyle.Render(fmt.Sprintf("%2d", i+1)), typeTags[e.Type], withReadings(e.Text, byEntry[e.ID]))
	}

	if groups := m.sess.Groups(); len(groups) > 0 {
		sb.WriteString("\n" + dimStyle.Render("annotations") + "\n")
		for i, g := range groups {
			line := fmt.Sprintf("%2d %s", i+1, g.Text)
			if g.Reading != "" {
				line += " " + rubyStyle.Render(g.Reading) + dimStyle.Render(" ("+string(g.ReadingType)+")")
			}
			if g.Meaning != "" {
				line += " " + g.Meaning
			}
			if n := len(g.Members); n > 1 {
				line += dimStyle.Render(fmt.Sprintf(" ×%d", n))
			}
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}

// withReadings highlights annotated spans of text and appends their
// reading. Spans that fall outside text are skipped.
func withReadings(text string, anns []domain.Annotation) string {
	if len(anns) == 0 {
		return text
	}
	sort.Slice(anns, func(i, j int) bool { return anns[i].Start < anns[j].Start })
	r := []rune(text)
	var sb strings.Builder
	pos := 0
	for _, a := range anns {
		if a.Start < pos || a.End > len(r) || a.Start >= a.End {
			continue
		}
		sb.WriteString(string(r[pos:a.Start]))
		sb.WriteString(markStyle.Render(string(r[a.Start:a.End])))
		if a.Reading != "" {
			sb.WriteString(rubyStyle.Render("(" + a.Reading + ")"))
		}
		pos = a.End
	}
	sb.WriteString(string(r[pos:]))
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

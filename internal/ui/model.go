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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"shiori/internal/annotate"
	"shiori/internal/domain"
	"shiori/internal/entry"
	"shiori/internal/session"
)

type prompt int

const (
	promptNone prompt = iota
	promptChapter
	promptTitle
	promptWrite
	promptAnnotate
	promptEdit
	promptUnmark
	promptSplit
	promptRetype
	promptFilter
)

var promptLabels = map[prompt]string{
	promptChapter:  "chapter (number or blank for none): ",
	promptTitle:    "title: ",
	promptWrite:    "entry ([n|d|s|t]:text): ",
	promptAnnotate: "annotate (entry start end reading [meaning]): ",
	promptEdit:     "edit group (# reading [meaning]): ",
	promptUnmark:   "remove group #: ",
	promptSplit:    "split (entry offset): ",
	promptRetype:   "retype (entry[,entry] n|d|s|t): ",
	promptFilter:   "filter: ",
}

const (
	sidebarWidth = 28
	chromeLines  = 4
)

// Model is the bubbletea model of the editor.
type Model struct {
	sess  *session.Session
	keys  keyMap
	help  help.Model
	input textinput.Model
	body  viewport.Model

	prompt prompt
	filter string
	status string
	failed bool

	width, height int
}

// New builds the editor over sess.
func New(sess *session.Session) Model {
	in := textinput.New()
	in.CharLimit = 500
	m := Model{
		sess:   sess,
		keys:   defaultKeys(),
		help:   help.New(),
		input:  in,
		body:   viewport.New(80-sidebarWidth, 24-chromeLines),
		width:  80,
		height: 24,
	}
	m.refresh()
	return m
}

// Run starts the editor full screen and blocks until the user quits.
func Run(ctx context.Context, sess *session.Session, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(sess), opts...).Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.body.Width = max(msg.Width-sidebarWidth-1, 10)
		m.body.Height = max(msg.Height-chromeLines, 3)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.prompt != promptNone {
			return m.updatePrompt(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Prev):
			m.apply(m.sess.Prev())
		case key.Matches(msg, m.keys.Next):
			m.apply(m.sess.Next())
		case key.Matches(msg, m.keys.NewPage):
			m.apply(m.sess.NewPage())
		case key.Matches(msg, m.keys.Delete):
			cur := m.sess.Current()
			m.apply(m.sess.DeletePage(cur.Chapter, cur.Number))
		case key.Matches(msg, m.keys.Undo):
			m.apply(m.sess.Undo())
		case key.Matches(msg, m.keys.Chapter):
			return m.startPrompt(promptChapter, "")
		case key.Matches(msg, m.keys.Title):
			return m.startPrompt(promptTitle, m.sess.Current().Title)
		case key.Matches(msg, m.keys.Write):
			return m.startPrompt(promptWrite, "")
		case key.Matches(msg, m.keys.Annotate):
			return m.startPrompt(promptAnnotate, "")
		case key.Matches(msg, m.keys.Edit):
			return m.startPrompt(promptEdit, "")
		case key.Matches(msg, m.keys.Unmark):
			return m.startPrompt(promptUnmark, "")
		case key.Matches(msg, m.keys.Split):
			return m.startPrompt(promptSplit, "")
		case key.Matches(msg, m.keys.Retype):
			return m.startPrompt(promptRetype, "")
		case key.Matches(msg, m.keys.Filter):
			return m.startPrompt(promptFilter, m.filter)
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		default:
			var cmd tea.Cmd
			m.body, cmd = m.body.Update(msg)
			return m, cmd
		}
		m.refresh()
		return m, nil
	}
	return m, nil
}

func (m Model) startPrompt(p prompt, value string) (tea.Model, tea.Cmd) {
	m.prompt = p
	m.input.Prompt = promptLabels[p]
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "ctrl+c":
		m.endPrompt()
		return m, nil
	case "enter":
		p, v := m.prompt, m.input.Value()
		m.endPrompt()
		m.submit(p, v)
		m.refresh()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) endPrompt() {
	m.prompt = promptNone
	m.input.Blur()
	m.input.Reset()
}

func (m *Model) submit(p prompt, v string) {
	switch p {
	case promptChapter:
		m.apply(m.sess.ChangeChapter(v))
	case promptTitle:
		m.apply(m.sess.SetTitle(strings.TrimSpace(v)))
	case promptWrite:
		t, text := parseWrite(v)
		if text == "" {
			return
		}
		_, res := m.sess.AppendEntry(t, text)
		m.apply(res)
	case promptAnnotate:
		sel, in, err := parseAnnotate(v, m.sess.Entries())
		if err != nil {
			m.fail(err.Error())
			return
		}
		_, res := m.sess.Annotate(sel, in)
		if !res.Changed() && !res.Rejected() {
			m.fail("nothing annotated")
			return
		}
		m.apply(res)
	case promptUnmark:
		gs := m.sess.Groups()
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 1 || n > len(gs) {
			m.fail("no such group")
			return
		}
		m.apply(m.sess.DeleteGroup(gs[n-1].Key))
	case promptEdit:
		m.editGroup(v)
	case promptSplit:
		f := strings.Fields(v)
		es := m.sess.Entries()
		if len(f) != 2 {
			m.fail("usage: entry offset")
			return
		}
		n, err := strconv.Atoi(f[0])
		if err != nil || n < 1 || n > len(es) {
			m.fail("no such entry")
			return
		}
		off, err := strconv.Atoi(f[1])
		if err != nil {
			m.fail(fmt.Sprintf("not a number: %q", f[1]))
			return
		}
		m.apply(m.sess.SplitEntry(es[n-1].ID, off))
	case promptRetype:
		ids, t, err := parseRetype(v, m.sess.Entries())
		if err != nil {
			m.fail(err.Error())
			return
		}
		m.apply(m.sess.RetypeEntries(ids, t))
	case promptFilter:
		m.filter = strings.TrimSpace(v)
		m.status, m.failed = "", false
	}
}

// editGroup sets reading and meaning on every member of a display group.
// Reading type and notes are kept.
func (m *Model) editGroup(v string) {
	f := strings.Fields(v)
	gs := m.sess.Groups()
	if len(f) < 2 {
		m.fail("usage: # reading [meaning]")
		return
	}
	n, err := strconv.Atoi(f[0])
	if err != nil || n < 1 || n > len(gs) {
		m.fail("no such group")
		return
	}
	g := gs[n-1]
	in := annotate.Input{Reading: f[1], ReadingType: g.ReadingType, Meaning: strings.Join(f[2:], " "), Notes: g.Notes}
	var res session.Result
	applied := 0
	for _, a := range g.Members {
		_, r := m.sess.EditAnnotation(a.ID, in, nil)
		if r.Rejected() {
			m.apply(r)
			return
		}
		applied += r.AutoApplied
		res = r
	}
	res.AutoApplied = applied
	m.apply(res)
}

func (m *Model) apply(res session.Result) {
	switch {
	case res.Rejected():
		m.fail(res.Rejection.Message)
	case res.Notice != "":
		m.status, m.failed = res.Notice, false
	case res.AutoApplied > 0:
		m.status, m.failed = fmt.Sprintf("glossary added %d", res.AutoApplied), false
	default:
		m.status, m.failed = "", false
	}
}

func (m *Model) fail(msg string) { m.status, m.failed = msg, true }

func (m *Model) refresh() { m.body.SetContent(m.renderBody()) }

var shortTypes = map[byte]entry.Type{
	'n': entry.Narration,
	'd': entry.Dialogue,
	's': entry.SFX,
	't': entry.Thought,
}

// parseWrite reads "[n|d|s|t]:text"; without a prefix the entry is narration.
func parseWrite(v string) (entry.Type, string) {
	v = strings.TrimSpace(v)
	if len(v) > 2 && v[1] == ':' {
		if t, ok := shortTypes[v[0]]; ok {
			return t, strings.TrimSpace(v[2:])
		}
	}
	return entry.Narration, v
}

// parseRetype reads "entry[,entry...] type" where type is a letter of
// n, d, s, t or a full type name.
func parseRetype(v string, entries []session.EntryView) ([]string, entry.Type, error) {
	f := strings.Fields(v)
	if len(f) != 2 {
		return nil, "", errors.New("usage: entry[,entry] n|d|s|t")
	}
	t, ok := shortTypes[f[1][0]]
	if len(f[1]) > 1 {
		t = entry.Type(f[1])
		ok = entry.NormalizeType(f[1]) == t
	}
	if !ok {
		return nil, "", fmt.Errorf("unknown type %q", f[1])
	}
	var ids []string
	for _, s := range strings.Split(f[0], ",") {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > len(entries) {
			return nil, "", fmt.Errorf("no entry %q", s)
		}
		ids = append(ids, entries[n-1].ID)
	}
	return ids, t, nil
}

// parseAnnotate reads "entry start end reading [meaning...]". entry is the
// 1-based position on the page; end is exclusive.
func parseAnnotate(v string, entries []session.EntryView) (annotate.Selection, annotate.Input, error) {
	f := strings.Fields(v)
	if len(f) < 4 {
		return annotate.Selection{}, annotate.Input{}, errors.New("usage: entry start end reading [meaning]")
	}
	nums := make([]int, 3)
	for i := range nums {
		n, err := strconv.Atoi(f[i])
		if err != nil {
			return annotate.Selection{}, annotate.Input{}, fmt.Errorf("not a number: %q", f[i])
		}
		nums[i] = n
	}
	if nums[0] < 1 || nums[0] > len(entries) {
		return annotate.Selection{}, annotate.Input{}, fmt.Errorf("no entry %d", nums[0])
	}
	sel := annotate.Selection{EntryID: entries[nums[0]-1].ID, Start: nums[1], End: nums[2]}
	in := annotate.Input{Reading: f[3], Meaning: strings.Join(f[4:], " ")}
	return sel, in, nil
}

func chapterLabel(ch domain.Chapter) string {
	if ch == domain.NoChapter {
		return "No chapter"
	}
	return "Chapter " + ch.Key()
}

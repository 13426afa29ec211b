/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	cli "github.com/urfave/cli/v3"

	"shiori/internal/annotate"
	"shiori/internal/domain"
	"shiori/internal/entry"
	"shiori/internal/pages"
	"shiori/internal/session"
)

func pageFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "chapter", Aliases: []string{"c"}, Usage: "chapter `NUMBER` (none for unchaptered pages)"},
		&cli.IntFlag{Name: "page", Aliases: []string{"p"}, Usage: "page `NUMBER` within the chapter (default 1 with --chapter)"},
		&cli.StringFlag{Name: "page-id", Usage: "page `ID`"},
	}
}

// onPage opens the book named by the first argument and moves to the page
// selected by the page flags. Without flags the book's current page is used.
func (a *app) onPage(ctx context.Context, cmd *cli.Command) (*session.Session, error) {
	if cmd.NArg() < 1 {
		return nil, errArgs
	}
	sess, err := a.openBook(ctx, cmd.Args().First())
	if err != nil {
		return nil, err
	}
	if id := cmd.String("page-id"); id != "" {
		sess.GotoID(id)
		if sess.Current().ID != id {
			return nil, fmt.Errorf("no page with id %s", id)
		}
		return sess, nil
	}
	if !cmd.IsSet("chapter") && !cmd.IsSet("page") {
		return sess, nil
	}
	ch := sess.Current().Chapter
	if cmd.IsSet("chapter") {
		c, ok := domain.ParseChapter(cmd.String("chapter"))
		if !ok {
			return nil, fmt.Errorf("invalid chapter %q", cmd.String("chapter"))
		}
		ch = c
	}
	n := 1
	if cmd.IsSet("page") {
		n = cmd.Int("page")
	}
	sess.Goto(ch, n)
	if cur := sess.Current(); cur.Chapter != ch || cur.Number != n {
		return nil, fmt.Errorf("no page %d in %s", n, ch)
	}
	return sess, nil
}

// report turns a rejected result into an error and prints notices.
func (a *app) report(res session.Result) error {
	if res.Rejected() {
		return res.Rejection
	}
	if res.Notice != "" {
		fmt.Fprintln(a.out, res.Notice)
	}
	if res.AutoApplied > 0 {
		fmt.Fprintf(a.out, "glossary added %d annotation(s)\n", res.AutoApplied)
	}
	return nil
}

func tocCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "pages",
		Usage:     "print the table of contents of a book",
		ArgsUsage: "BOOK",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "filter", Aliases: []string{"f"}, Usage: "keep pages whose chapter, number, title or text contain `TEXT`"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return errArgs
			}
			sess, err := a.openBook(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			cur := sess.Current()
			t := newTable("CHAPTER", "PAGE", "", "TITLE / TEXT", "ANN")
			for _, sec := range sess.TOC(cmd.String("filter")) {
				for _, p := range sec.Pages {
					mark := ""
					if p.ID == cur.ID {
						mark = "*"
					}
					t.Row(sec.Chapter.Key(), strconv.Itoa(p.Number), mark, pages.Preview(p), strconv.Itoa(len(p.Annotations)))
				}
			}
			return printTable(a.out, t)
		},
	}
}

func showCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "print a page with its readings",
		ArgsUsage: "BOOK",
		Flags:     pageFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sess, err := a.onPage(ctx, cmd)
			if err != nil {
				return err
			}
			cur := sess.Current()
			fmt.Fprintf(a.out, "%s · page %d", cur.Chapter, cur.Number)
			if cur.Title != "" {
				fmt.Fprintf(a.out, " · %s", cur.Title)
			}
			fmt.Fprintf(a.out, "\n\n")
			byEntry := map[string][]domain.Annotation{}
			for _, an := range cur.Annotations {
				byEntry[an.EntryID] = append(byEntry[an.EntryID], an)
			}
			for i, e := range sess.Entries() {
				fmt.Fprintf(a.out, "%2d %-9s %s\n", i+1, e.Type, withReadings(e.Text, byEntry[e.ID]))
			}
			groups := sess.Groups()
			if len(groups) == 0 {
				return nil
			}
			fmt.Fprintln(a.out)
			t := newTable("#", "TEXT", "READING", "TYPE", "MEANING", "COUNT")
			for i, g := range groups {
				t.Row(strconv.Itoa(i+1), g.Text, g.Reading, string(g.ReadingType), g.Meaning, strconv.Itoa(len(g.Members)))
			}
			return printTable(a.out, t)
		},
	}
}

// withReadings writes each annotated span as text(reading).
func withReadings(text string, anns []domain.Annotation) string {
	sort.Slice(anns, func(i, j int) bool { return anns[i].Start < anns[j].Start })
	r := []rune(text)
	var sb strings.Builder
	pos := 0
	for _, an := range anns {
		if an.Start < pos || an.End > len(r) || an.Start >= an.End {
			continue
		}
		sb.WriteString(string(r[pos:an.End]))
		if an.Reading != "" {
			sb.WriteString("(" + an.Reading + ")")
		}
		pos = an.End
	}
	sb.WriteString(string(r[pos:]))
	return sb.String()
}

func pageCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "page",
		Usage: "create, delete and title pages",
		Commands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "append a page to the current chapter, or to --chapter",
				ArgsUsage: "BOOK",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "chapter", Aliases: []string{"c"}, Usage: "chapter `NUMBER` (none for unchaptered pages)"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 1 {
						return errArgs
					}
					sess, err := a.openBook(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					if cmd.IsSet("chapter") {
						sess.ChangeChapter(cmd.String("chapter"))
					}
					sess.NewPage()
					cur := sess.Current()
					_, err = fmt.Fprintf(a.out, "%s page %d (%s)\n", cur.Chapter, cur.Number, cur.ID)
					return err
				},
			},
			{
				Name:      "rm",
				Usage:     "delete a page; the last page of a chapter is kept",
				ArgsUsage: "BOOK",
				Flags:     pageFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					sess, err := a.onPage(ctx, cmd)
					if err != nil {
						return err
					}
					cur := sess.Current()
					return a.report(sess.DeletePage(cur.Chapter, cur.Number))
				},
			},
			{
				Name:      "title",
				Usage:     "set the page title",
				ArgsUsage: "BOOK TITLE",
				Flags:     pageFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					sess, err := a.onPage(ctx, cmd)
					if err != nil {
						return err
					}
					return a.report(sess.SetTitle(strings.Join(cmd.Args().Tail(), " ")))
				},
			},
		},
	}
}

func chapterCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "chapter",
		Usage: "switch or delete chapters",
		Commands: []*cli.Command{
			{
				Name:      "go",
				Usage:     "make CHAPTER current, creating its first page when needed",
				ArgsUsage: "BOOK CHAPTER",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 1 {
						return errArgs
					}
					sess, err := a.openBook(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					sess.ChangeChapter(cmd.Args().Get(1))
					cur := sess.Current()
					_, err = fmt.Fprintf(a.out, "%s page %d\n", cur.Chapter, cur.Number)
					return err
				},
			},
			{
				Name:      "rm",
				Usage:     "delete every page of CHAPTER",
				ArgsUsage: "BOOK CHAPTER",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 2 {
						return errArgs
					}
					ch, ok := domain.ParseChapter(cmd.Args().Get(1))
					if !ok {
						return fmt.Errorf("invalid chapter %q", cmd.Args().Get(1))
					}
					sess, err := a.openBook(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					res := sess.DeleteChapter(ch)
					if !res.Changed() && !res.Rejected() {
						return fmt.Errorf("%s has no pages", ch)
					}
					return a.report(res)
				},
			},
		},
	}
}

func writeCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "write",
		Usage:     "append an entry to a page, or replace the page with --html",
		ArgsUsage: "BOOK [TEXT]",
		Flags: append(pageFlags(),
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Value: string(entry.Narration), Usage: "entry `TYPE`: narration, dialogue, sfx or thought"},
			&cli.StringFlag{Name: "html", Usage: "replace the page content with the HTML in `FILE` (- for stdin)"},
			&cli.StringFlag{Name: "split", Usage: "split entry N at rune offset OFF, as `N:OFF`"},
			&cli.StringFlag{Name: "retype", Usage: "change the type of entries, as `N[,N...]:TYPE`"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sess, err := a.onPage(ctx, cmd)
			if err != nil {
				return err
			}
			if path := cmd.String("html"); path != "" {
				data, err := readInput(path)
				if err != nil {
					return err
				}
				return a.report(sess.CommitContent(string(data)))
			}
			if arg := cmd.String("split"); arg != "" {
				return a.split(sess, arg)
			}
			if arg := cmd.String("retype"); arg != "" {
				return a.retype(sess, arg)
			}
			text := strings.TrimSpace(strings.Join(cmd.Args().Tail(), " "))
			if text == "" {
				return errors.New("nothing to write")
			}
			_, res := sess.AppendEntry(entry.NormalizeType(cmd.String("type")), text)
			return a.report(res)
		},
	}
}

func (a *app) split(sess *session.Session, arg string) error {
	n, off, ok := strings.Cut(arg, ":")
	if !ok {
		return fmt.Errorf("bad split %q, want N:OFF", arg)
	}
	ids, err := entryIDs(sess.Entries(), n)
	if err != nil {
		return err
	}
	at, err := strconv.Atoi(strings.TrimSpace(off))
	if err != nil {
		return fmt.Errorf("bad offset %q", off)
	}
	return a.report(sess.SplitEntry(ids[0], at))
}

func (a *app) retype(sess *session.Session, arg string) error {
	ns, typ, ok := strings.Cut(arg, ":")
	if !ok || strings.TrimSpace(typ) == "" {
		return fmt.Errorf("bad retype %q, want N[,N...]:TYPE", arg)
	}
	ids, err := entryIDs(sess.Entries(), ns)
	if err != nil {
		return err
	}
	return a.report(sess.RetypeEntries(ids, entry.NormalizeType(typ)))
}

// entryIDs maps a comma separated list of 1-based entry numbers to ids.
func entryIDs(entries []session.EntryView, list string) ([]string, error) {
	var ids []string
	for _, f := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 1 || n > len(entries) {
			return nil, fmt.Errorf("no entry %q", f)
		}
		ids = append(ids, entries[n-1].ID)
	}
	return ids, nil
}

func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

func annotateCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "annotate",
		Usage:     "annotate text on a page and record it in the glossary",
		ArgsUsage: "BOOK TEXT",
		Flags: append(pageFlags(),
			&cli.IntFlag{Name: "entry", Aliases: []string{"e"}, Usage: "search only entry `N` (1-based)"},
			&cli.IntFlag{Name: "nth", Value: 1, Usage: "annotate the `N`th occurrence"},
			&cli.StringFlag{Name: "reading", Aliases: []string{"r"}, Usage: "furigana `READING`"},
			&cli.StringFlag{Name: "reading-type", Usage: "on or kun (default from config)"},
			&cli.StringFlag{Name: "meaning", Aliases: []string{"m"}, Usage: "`MEANING`"},
			&cli.StringFlag{Name: "notes", Usage: "free-form `NOTES`"},
			&cli.StringFlag{Name: "edit", Usage: "update annotation `ID` instead of creating one; TEXT moves it"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if id := cmd.String("edit"); id != "" {
				return a.editAnnotation(ctx, cmd, id)
			}
			if cmd.NArg() < 2 {
				return errArgs
			}
			sess, err := a.onPage(ctx, cmd)
			if err != nil {
				return err
			}
			sel, err := locate(sess.Entries(), cmd.Args().Get(1), cmd.Int("entry"), cmd.Int("nth"))
			if err != nil {
				return err
			}
			in := annotate.Input{
				Reading:     cmd.String("reading"),
				ReadingType: domain.ReadingType(cmd.String("reading-type")),
				Meaning:     cmd.String("meaning"),
				Notes:       cmd.String("notes"),
			}
			an, res := sess.Annotate(sel, in)
			if err := a.report(res); err != nil {
				return err
			}
			if !res.Changed() {
				return errors.New("nothing annotated")
			}
			_, err = fmt.Fprintf(a.out, "annotated %s [%d,%d) %s\n", an.Text, an.Start, an.End, an.ID)
			return err
		},
	}
}

// editAnnotation changes only the fields whose flags are set.
func (a *app) editAnnotation(ctx context.Context, cmd *cli.Command, id string) error {
	sess, err := a.onPage(ctx, cmd)
	if err != nil {
		return err
	}
	var cur *domain.Annotation
	for _, x := range sess.Annotations() {
		if x.ID == id {
			cur = &x
			break
		}
	}
	if cur == nil {
		return fmt.Errorf("no annotation %s on this page", id)
	}
	in := annotate.Input{Reading: cur.Reading, ReadingType: cur.ReadingType, Meaning: cur.Meaning, Notes: cur.Notes}
	if cmd.IsSet("reading") {
		in.Reading = cmd.String("reading")
	}
	if cmd.IsSet("reading-type") {
		in.ReadingType = domain.ReadingType(cmd.String("reading-type"))
	}
	if cmd.IsSet("meaning") {
		in.Meaning = cmd.String("meaning")
	}
	if cmd.IsSet("notes") {
		in.Notes = cmd.String("notes")
	}
	var sel *annotate.Selection
	if text := cmd.Args().Get(1); text != "" {
		at, err := locate(sess.Entries(), text, cmd.Int("entry"), cmd.Int("nth"))
		if err != nil {
			return err
		}
		sel = &at
	}
	an, res := sess.EditAnnotation(id, in, sel)
	if err := a.report(res); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "updated %s [%d,%d) %s\n", an.Text, an.Start, an.End, an.ID)
	return err
}

// locate finds the nth occurrence of text in the page's entries and returns
// it as a selection in rune offsets.
func locate(entries []session.EntryView, text string, entryN, nth int) (annotate.Selection, error) {
	if text == "" {
		return annotate.Selection{}, errors.New("empty text")
	}
	if entryN < 0 || entryN > len(entries) {
		return annotate.Selection{}, fmt.Errorf("no entry %d", entryN)
	}
	if entryN > 0 {
		entries = entries[entryN-1 : entryN]
	}
	nth = max(nth, 1)
	size := utf8.RuneCountInString(text)
	for _, e := range entries {
		for _, at := range annotate.IndexAll(e.Text, text, false) {
			if nth--; nth == 0 {
				return annotate.Selection{EntryID: e.ID, Start: at, End: at + size, Text: text}, nil
			}
		}
	}
	return annotate.Selection{}, fmt.Errorf("%q not found on this page", text)
}

func unmarkCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "unmark",
		Usage:     "remove annotation group N (as numbered by show), or one annotation by --id",
		ArgsUsage: "BOOK [N]",
		Flags: append(pageFlags(),
			&cli.StringFlag{Name: "id", Usage: "annotation `ID`"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			sess, err := a.onPage(ctx, cmd)
			if err != nil {
				return err
			}
			if id := cmd.String("id"); id != "" {
				if !sess.DeleteAnnotation(id).Changed() {
					return fmt.Errorf("no annotation %s on this page", id)
				}
				return nil
			}
			groups := sess.Groups()
			n, err := strconv.Atoi(cmd.Args().Get(1))
			if err != nil || n < 1 || n > len(groups) {
				return fmt.Errorf("no annotation group %q", cmd.Args().Get(1))
			}
			return a.report(sess.DeleteGroup(groups[n-1].Key))
		},
	}
}

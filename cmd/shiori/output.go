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
	"log/slog"
	"strconv"
	"strings"

	cli "github.com/urfave/cli/v3"

	"shiori/internal/export"
	applog "shiori/internal/log"
	"shiori/internal/storage"
	"shiori/internal/ui"
)

func glossaryCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "glossary",
		Usage:     "list the glossary of a book",
		ArgsUsage: "BOOK",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return errArgs
			}
			sess, err := a.openBook(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			t := newTable("TERM", "READING", "TYPE", "MEANING", "NOTES", "UPDATED")
			for _, g := range sess.Glossary() {
				t.Row(g.Text, g.Reading, string(g.ReadingType), g.Meaning, g.Notes, when(g.UpdatedAt))
			}
			return printTable(a.out, t)
		},
		Commands: []*cli.Command{
			{
				Name:      "rm",
				Usage:     "remove a term; existing annotations stay",
				ArgsUsage: "BOOK TERM",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 2 {
						return errArgs
					}
					sess, err := a.openBook(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					term := strings.Join(cmd.Args().Tail(), " ")
					if !sess.RemoveGlossaryTerm(term).Changed() {
						return fmt.Errorf("%q is not in the glossary", term)
					}
					return nil
				},
			},
		},
	}
}

func exportCommand(a *app) *cli.Command {
	names := make([]string, 0, len(export.Formats()))
	for _, f := range export.Formats() {
		names = append(names, string(f))
	}
	return &cli.Command{
		Name:      "export",
		Usage:     "export a book as " + strings.Join(names, ", "),
		ArgsUsage: "BOOK",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(export.Markdown), Usage: "output `FORMAT`: " + strings.Join(names, ", ")},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output `DIR` (default from config)"},
			&cli.StringFlag{Name: "page-id", Usage: "page `ID` to render for png (default current page)"},
			&cli.IntFlag{Name: "width", Usage: "png width in `PIXELS`"},
			&cli.StringFlag{Name: "font", Usage: "TTF `FILE` with CJK glyphs (overrides config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return errArgs
			}
			f, err := export.ParseFormat(cmd.String("format"))
			if err != nil {
				return err
			}
			sess, err := a.openBook(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			dir := cmd.String("out")
			if dir == "" {
				dir = a.cfg.ExportDir()
			}
			opt := export.Options{FontPath: a.cfg.Export.FontPath, PageID: cmd.String("page-id"), Width: cmd.Int("width")}
			if font := cmd.String("font"); font != "" {
				opt.FontPath = font
			}
			path, err := export.ToDir(dir, f, sess.Book().Clone(), opt)
			if err != nil {
				return err
			}
			applog.WithOperation(a.log, "export").Info("book exported", slog.String("format", string(f)), slog.String("path", path))
			_, err = fmt.Fprintln(a.out, path)
			return err
		},
	}
}

func searchCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "full-text page search (sqlite backend)",
		ArgsUsage: "TEXT",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "book", Aliases: []string{"b"}, Usage: "restrict to `BOOK`"},
			&cli.IntFlag{Name: "limit", Value: 50, Usage: "at most `N` results"},
			&cli.IntFlag{Name: "offset", Usage: "skip `N` results"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return errArgs
			}
			if err := a.open(ctx); err != nil {
				return err
			}
			q := storage.SearchQuery{Text: strings.Join(cmd.Args().Slice(), " "), Limit: cmd.Int("limit"), Offset: cmd.Int("offset")}
			if ref := cmd.String("book"); ref != "" {
				b, err := findBook(&a.lib, ref)
				if err != nil {
					return err
				}
				q.BookID = b.ID
			}
			hits, err := a.store.Search(ctx, q)
			if errors.Is(err, storage.ErrSearchUnsupported) {
				return fmt.Errorf("%w (run with --backend sqlite)", err)
			}
			if err != nil {
				return err
			}
			t := newTable("BOOK", "CHAPTER", "PAGE", "TITLE", "MATCH")
			for _, h := range hits {
				t.Row(h.BookTitle, h.Chapter.Key(), strconv.Itoa(h.Number), h.Title, h.Snippet)
			}
			return printTable(a.out, t)
		},
	}
}

func tuiCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:      "tui",
		Usage:     "open a book in the terminal editor",
		ArgsUsage: "BOOK",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() < 1 {
				return errArgs
			}
			// console output would tear the full-screen view; a log file keeps working
			opts := a.logOptions()
			opts.Format = "off"
			applog.Init(opts)
			a.log = applog.WithComponent("cli")
			sess, err := a.openBook(ctx, cmd.Args().First())
			if err != nil {
				return err
			}
			return ui.Run(ctx, sess)
		},
	}
}

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
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	cli "github.com/urfave/cli/v3"

	"shiori/internal/domain"
)

var errArgs = errors.New("missing arguments")

// findShelf matches a shelf by id, unique id prefix, or case-insensitive name.
func findShelf(lib *domain.Library, ref string) (*domain.Shelf, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrShelfNotFound
	}
	var hits []*domain.Shelf
	for _, s := range lib.Shelves {
		if s.ID == ref {
			return s, nil
		}
		if strings.HasPrefix(s.ID, ref) || strings.EqualFold(s.Name, ref) {
			hits = append(hits, s)
		}
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: %s", domain.ErrShelfNotFound, ref)
	case 1:
		return hits[0], nil
	}
	return nil, fmt.Errorf("shelf %q is ambiguous (%d matches)", ref, len(hits))
}

// findBook matches a book by id, unique id prefix, or case-insensitive title.
func findBook(lib *domain.Library, ref string) (*domain.Book, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrBookNotFound
	}
	var hits []*domain.Book
	for _, s := range lib.Shelves {
		for _, b := range s.Books {
			if b.ID == ref {
				return b, nil
			}
			if strings.HasPrefix(b.ID, ref) || strings.EqualFold(b.Title, ref) {
				hits = append(hits, b)
			}
		}
	}
	switch len(hits) {
	case 0:
		return nil, fmt.Errorf("%w: %s", domain.ErrBookNotFound, ref)
	case 1:
		return hits[0], nil
	}
	return nil, fmt.Errorf("book %q is ambiguous (%d matches)", ref, len(hits))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderRow(false).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().Bold(true).Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
}

func printTable(w io.Writer, t *table.Table) error {
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func when(m domain.Millis) string {
	if m == 0 {
		return "-"
	}
	return m.Time().Local().Format(time.DateTime)
}

func now() domain.Millis { return domain.At(time.Now()) }

func shelfCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "shelf",
		Usage: "manage shelves",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list shelves",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := a.open(ctx); err != nil {
						return err
					}
					t := newTable("ID", "NAME", "BOOKS", "UPDATED")
					for _, s := range a.lib.Shelves {
						t.Row(shortID(s.ID), s.Name, strconv.Itoa(len(s.Books)), when(s.UpdatedAt))
					}
					return printTable(a.out, t)
				},
			},
			{
				Name:      "add",
				Usage:     "create a shelf",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.open(ctx); err != nil {
						return err
					}
					s, err := a.lib.AddShelf(strings.Join(cmd.Args().Slice(), " "), now())
					if err != nil {
						return err
					}
					if err := a.save(ctx); err != nil {
						return err
					}
					_, err = fmt.Fprintln(a.out, s.ID)
					return err
				},
			},
			{
				Name:      "rename",
				Usage:     "rename a shelf",
				ArgsUsage: "SHELF NAME",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 2 {
						return errArgs
					}
					if err := a.open(ctx); err != nil {
						return err
					}
					s, err := findShelf(&a.lib, cmd.Args().First())
					if err != nil {
						return err
					}
					if err := a.lib.RenameShelf(s.ID, strings.Join(cmd.Args().Tail(), " "), now()); err != nil {
						return err
					}
					return a.save(ctx)
				},
			},
			{
				Name:      "rm",
				Usage:     "delete a shelf and all of its books",
				ArgsUsage: "SHELF",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.open(ctx); err != nil {
						return err
					}
					s, err := findShelf(&a.lib, cmd.Args().First())
					if err != nil {
						return err
					}
					if err := a.lib.DeleteShelf(s.ID); err != nil {
						return err
					}
					return a.save(ctx)
				},
			},
		},
	}
}

func bookCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:  "book",
		Usage: "manage books",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list books, optionally of one shelf",
				ArgsUsage: "[SHELF]",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.open(ctx); err != nil {
						return err
					}
					shelves := a.lib.Shelves
					if cmd.NArg() > 0 {
						s, err := findShelf(&a.lib, cmd.Args().First())
						if err != nil {
							return err
						}
						shelves = []*domain.Shelf{s}
					}
					t := newTable("ID", "SHELF", "TITLE", "AUTHOR", "VOL", "PAGES", "UPDATED")
					for _, s := range shelves {
						for _, b := range s.Books {
							t.Row(shortID(b.ID), s.Name, b.Title, b.Author, b.Volume, strconv.Itoa(len(b.Pages)), when(b.UpdatedAt))
						}
					}
					return printTable(a.out, t)
				},
			},
			{
				Name:      "add",
				Usage:     "add a book to a shelf",
				ArgsUsage: "SHELF TITLE",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "author", Usage: "author `NAME`"},
					&cli.StringFlag{Name: "volume", Usage: "volume `LABEL`"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() < 2 {
						return errArgs
					}
					if err := a.open(ctx); err != nil {
						return err
					}
					s, err := findShelf(&a.lib, cmd.Args().First())
					if err != nil {
						return err
					}
					b, err := a.lib.AddBook(s.ID, strings.Join(cmd.Args().Tail(), " "), cmd.String("author"), cmd.String("volume"), now())
					if err != nil {
						return err
					}
					if err := a.save(ctx); err != nil {
						return err
					}
					_, err = fmt.Fprintln(a.out, b.ID)
					return err
				},
			},
			{
				Name:      "rm",
				Usage:     "delete a book",
				ArgsUsage: "BOOK",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if err := a.open(ctx); err != nil {
						return err
					}
					b, err := findBook(&a.lib, cmd.Args().First())
					if err != nil {
						return err
					}
					if err := a.lib.DeleteBook(b.ID, now()); err != nil {
						return err
					}
					return a.save(ctx)
				},
			},
		},
	}
}

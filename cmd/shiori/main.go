/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Command shiori is a reading notebook for Japanese books: shelves of books,
// pages of typed entries and furigana annotations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"

	"shiori/internal/config"
	"shiori/internal/crash"
	"shiori/internal/domain"
	applog "shiori/internal/log"
	"shiori/internal/session"
	"shiori/internal/storage"
	"shiori/internal/version"
)

// app carries what one invocation needs. The store and library are opened
// on first use so that version and help never touch the disk.
type app struct {
	cfg    config.AppConfig
	cfgErr error
	out    io.Writer
	logOut io.Writer // console log destination; stderr when nil
	log    *slog.Logger

	store *storage.Store
	lib   domain.Library
	sess  *session.Session
}

// Flush writes the pending save of the open book, if any.
func (a *app) Flush(ctx context.Context) error {
	if a.sess == nil {
		return nil
	}
	return a.sess.Flush(ctx)
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if dir := strings.TrimSpace(cmd.String("data-dir")); dir != "" {
		a.cfg.Storage.Dir = dir
	}
	if b := strings.TrimSpace(cmd.String("backend")); b != "" {
		a.cfg.Storage.Backend = strings.ToLower(b)
	}
	if cmd.Bool("verbose") {
		a.cfg.Logging.Level = "debug"
	}
	applog.Init(a.logOptions())
	a.log = applog.WithComponent("cli")
	if a.cfgErr != nil {
		a.log.Warn("config file ignored", slog.Any("err", a.cfgErr))
	}
	a.log.Debug("start", slog.String("ver", version.String()), slog.String("data_dir", a.cfg.Storage.Dir), slog.String("backend", a.cfg.Storage.Backend))
	return ctx, nil
}

func (a *app) logOptions() applog.Options {
	return applog.Options{
		Level:     a.cfg.Logging.Level,
		Format:    a.cfg.Logging.Format,
		AddSource: a.cfg.Logging.Source,
		File:      a.cfg.Logging.File,
		Writer:    a.logOut,
	}
}

// after closes the open book and the store even when the command failed or
// the context was cancelled.
func (a *app) after(ctx context.Context, _ *cli.Command) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	if a.sess != nil {
		err = multierr.Append(err, a.sess.Close(ctx))
		a.sess = nil
	}
	if a.store != nil {
		err = multierr.Append(err, a.store.Close())
		a.store = nil
	}
	return err
}

func (a *app) open(ctx context.Context) error {
	if a.store != nil {
		return nil
	}
	st, err := storage.Open(a.cfg.Storage)
	if err != nil {
		return fmt.Errorf("open library: %w", err)
	}
	lib, err := st.Load(ctx)
	if err != nil {
		return multierr.Append(err, st.Close())
	}
	a.store, a.lib = st, lib
	return nil
}

func (a *app) save(ctx context.Context) error { return a.store.Save(ctx, a.lib) }

// openBook starts a session on the book named by ref.
func (a *app) openBook(ctx context.Context, ref string) (*session.Session, error) {
	if err := a.open(ctx); err != nil {
		return nil, err
	}
	b, err := findBook(&a.lib, ref)
	if err != nil {
		return nil, err
	}
	sess, err := session.Open(&a.lib, b.ID, session.Options{
		Store:              a.store,
		Debounce:           a.cfg.Storage.Debounce(),
		UndoCapacity:       a.cfg.Editor.UndoCapacity,
		DefaultReadingType: domain.ReadingType(a.cfg.Editor.DefaultReadingType),
	})
	if err != nil {
		return nil, err
	}
	a.sess = sess
	return sess, nil
}

func newCommand(a *app) *cli.Command {
	return &cli.Command{
		Name:            "shiori",
		Usage:           "reading notebook for Japanese books",
		Version:         version.String(),
		HideHelpCommand: true,
		Writer:          a.out,
		Before:          a.before,
		After:           a.after,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", Usage: "library `DIR` (overrides config and " + config.EnvStorageDir + ")"},
			&cli.StringFlag{Name: "backend", Usage: "storage `BACKEND`: file or sqlite"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "debug logging"},
		},
		Commands: []*cli.Command{
			shelfCommand(a),
			bookCommand(a),
			tocCommand(a),
			showCommand(a),
			pageCommand(a),
			chapterCommand(a),
			writeCommand(a),
			annotateCommand(a),
			unmarkCommand(a),
			glossaryCommand(a),
			exportCommand(a),
			searchCommand(a),
			tuiCommand(a),
			{
				Name:  "version",
				Usage: "print the version",
				Action: func(_ context.Context, _ *cli.Command) error {
					_, err := fmt.Fprintln(a.out, "shiori", version.String())
					return err
				},
			},
		},
	}
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{out: os.Stdout}
	a.cfg, a.cfgErr = config.Load()
	defer crash.Recover(a.cfg.Storage.Dir, a)

	if err := newCommand(a).Run(ctx, os.Args); err != nil {
		if a.log != nil {
			a.log.Error("command failed", slog.Any("err", err))
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, context.Canceled) {
			return 130
		}
		return 1
	}
	return 0
}

func main() { os.Exit(run()) }

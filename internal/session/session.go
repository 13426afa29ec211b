/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package session is the editing context for one open book. It owns the
// current page, its parsed content, the undo log and the debounced save, and
// exposes every query and mutation the editing surface needs. All methods
// are safe for concurrent use; mutations run one at a time.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"shiori/internal/annotate"
	"shiori/internal/domain"
	"shiori/internal/entry"
	applog "shiori/internal/log"
	"shiori/internal/pages"
	"shiori/internal/storage"
	"shiori/internal/undo"
)

// Options configures a Session. Zero values pick defaults.
type Options struct {
	// Store receives debounced saves; nil keeps everything in memory.
	Store              *storage.Store
	Debounce           time.Duration
	UndoCapacity       int
	DefaultReadingType domain.ReadingType
	Now                func() time.Time
	NewID              func() string
	EntryIDs           func() string
}

type Session struct {
	mu sync.Mutex

	lib   *domain.Library
	shelf *domain.Shelf
	book  *domain.Book
	page  *domain.Page
	doc   *entry.Document

	undo  *undo.Manager
	store *storage.Store
	saver *storage.Debouncer

	now         func() time.Time
	newID       func() string
	entryIDs    func() string
	readingType domain.ReadingType

	base context.Context // book attrs
	ctx  context.Context // base plus the current page
	log  *slog.Logger
}

// Open starts editing bookID inside lib and loads the book's current page.
// The session mutates lib in place.
func Open(lib *domain.Library, bookID string, opts Options) (*Session, error) {
	shelf, book := lib.FindBook(bookID)
	if book == nil {
		return nil, ErrBookNotFound
	}
	s := &Session{
		lib:         lib,
		shelf:       shelf,
		book:        book,
		undo:        undo.NewManager(undo.Config{Capacity: opts.UndoCapacity}),
		store:       opts.Store,
		now:         opts.Now,
		newID:       opts.NewID,
		entryIDs:    opts.EntryIDs,
		readingType: domain.NormalizeReadingType(string(opts.DefaultReadingType), domain.ReadingKun),
		log:         applog.WithComponent("session"),
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = domain.NewID
	}
	if s.entryIDs == nil {
		s.entryIDs = entry.NewID
	}
	s.base = applog.ContextWith(context.Background(), slog.String("book", book.ID))
	s.ctx = s.base
	s.saver = storage.NewDebouncer(opts.Debounce, s.save)

	if len(book.Pages) == 0 {
		pages.New(book, domain.NoChapter, s.newID(), s.stamp())
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pages.Get(book, book.CurrentChapter, book.CurrentPage)
	if p == nil {
		p = pages.Get(book, book.CurrentChapter, 1)
	}
	if p == nil {
		p = pages.InChapter(book, pages.Chapters(book)[0])[0]
	}
	s.load(p)
	return s, nil
}

func (s *Session) stamp() domain.Millis { return domain.At(s.now()) }

func (s *Session) parse(content string) *entry.Document {
	d, err := entry.Parse(content, entry.WithIDs(s.entryIDs))
	if err != nil {
		s.log.WarnContext(s.ctx, "unreadable page content replaced", slog.Any("err", err))
		return entry.New(entry.WithIDs(s.entryIDs))
	}
	return d
}

// load makes p current, normalizes its content and runs the glossary over it.
func (s *Session) load(p *domain.Page) Result {
	s.page = p
	s.doc = s.parse(p.Content)
	s.doc.StripDecorations()
	changed := false
	if html := s.doc.HTML(); html != p.Content {
		p.Content = html
		changed = true
	}
	if r := annotate.Reconcile(p, s.doc); r.Changed() {
		changed = true
	}
	s.book.CurrentChapter = p.Chapter
	s.book.CurrentPage = p.Number
	pages.SetLastVisited(s.book, p.Chapter, p.Number)
	s.ctx = applog.ContextWith(s.base, slog.String("page", p.ID))

	if changed {
		p.UpdatedAt = s.stamp()
	}
	s.touch()
	added := s.autoApply()
	res := invalidate(allViews...)
	res.AutoApplied = added
	return res
}

// touch stamps the book and schedules a save.
func (s *Session) touch() {
	s.lib.Touch(s.book.ID, s.stamp())
	s.saver.Schedule()
}

func (s *Session) save(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	s.mu.Lock()
	snap := s.lib.Clone()
	s.mu.Unlock()
	return s.store.Save(ctx, snap)
}

// Flush writes any pending save now.
func (s *Session) Flush(ctx context.Context) error { return s.saver.Flush(ctx) }

// Close flushes and stops scheduling saves. The store stays open.
func (s *Session) Close(ctx context.Context) error { return s.saver.Close(ctx) }

// Book returns the open book. Callers must not mutate it directly.
func (s *Session) Book() *domain.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book
}

func (s *Session) Shelf() *domain.Shelf { return s.shelf }

// Current returns a copy of the current page.
func (s *Session) Current() *domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page.Clone()
}

func (s *Session) Chapters() []domain.Chapter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return pages.Chapters(s.book)
}

// Pages lists a chapter's pages as copies.
func (s *Session) Pages(ch domain.Chapter) []*domain.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*domain.Page
	for _, p := range pages.InChapter(s.book, ch) {
		out = append(out, p.Clone())
	}
	return out
}

// TOC returns the table of contents filtered by query.
func (s *Session) TOC(query string) []pages.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	secs := pages.Filter(s.book, query)
	for i := range secs {
		for j, p := range secs[i].Pages {
			secs[i].Pages[j] = p.Clone()
		}
	}
	return secs
}

// EntryView is a read-only projection of one entry.
type EntryView struct {
	ID   string
	Type entry.Type
	Text string
}

func (s *Session) Entries() []EntryView {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []EntryView
	for _, e := range s.doc.Entries() {
		out = append(out, EntryView{ID: e.ID, Type: e.Type, Text: e.Text()})
	}
	return out
}

func (s *Session) Annotations() []domain.Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Annotation(nil), s.page.Annotations...)
}

func (s *Session) Groups() []annotate.Group {
	s.mu.Lock()
	defer s.mu.Unlock()
	return annotate.Groups(s.page)
}

// Rendered is the current page content with highlights drawn.
func (s *Session) Rendered() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return annotate.Render(s.doc, s.page.Annotations)
}

// Document returns a copy of the current page's parsed content.
func (s *Session) Document() *entry.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

func (s *Session) UndoDepth() int { return s.undo.Len() }

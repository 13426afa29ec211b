/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package session

import (
	"errors"
	"log/slog"
	"strings"

	"shiori/internal/annotate"
	"shiori/internal/domain"
	"shiori/internal/entry"
	"shiori/internal/pages"
)

// Goto opens page n of chapter ch. Unknown pages are a no-op.
func (s *Session) Goto(ch domain.Chapter, n int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pages.Get(s.book, ch, n)
	if p == nil {
		return Result{}
	}
	return s.load(p)
}

// GotoID opens the page with the given id.
func (s *Session) GotoID(pageID string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.book.PageByID(pageID)
	if p == nil {
		return Result{}
	}
	return s.load(p)
}

// Next and Prev step within the current chapter.
func (s *Session) Next() Result { return s.step(1) }

func (s *Session) Prev() Result { return s.step(-1) }

func (s *Session) step(d int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pages.Get(s.book, s.page.Chapter, s.page.Number+d)
	if p == nil {
		return Result{}
	}
	return s.load(p)
}

// NewPage appends an empty page to the current chapter and opens it.
func (s *Session) NewPage() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := pages.New(s.book, s.page.Chapter, s.newID(), s.stamp())
	s.log.DebugContext(s.ctx, "page created", slog.String("chapter", p.Chapter.Key()), slog.Int("n", p.Number))
	return s.load(p)
}

// ChangeChapter moves to the chapter typed by the user. Blank or
// unparseable input means no chapter.
func (s *Session) ChangeChapter(input string) Result {
	ch, ok := domain.ParseChapter(input)
	if !ok {
		ch = domain.NoChapter
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if ch == s.page.Chapter {
		return Result{}
	}
	p, created := pages.ChangeChapter(s.book, ch, s.newID, s.stamp())
	if created {
		s.log.DebugContext(s.ctx, "page created", slog.String("chapter", ch.Key()), slog.Int("n", p.Number))
	}
	return s.load(p)
}

// DeletePage removes page n of chapter ch and records it for undo. The last
// page of a chapter cannot be deleted.
func (s *Session) DeletePage(ch domain.Chapter, n int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	curCh, curN := s.page.Chapter, s.page.Number
	snap, idx, err := pages.Delete(s.book, ch, n)
	if errors.Is(err, pages.ErrLastPageInChapter) {
		s.log.InfoContext(s.ctx, "page delete rejected", slog.String("chapter", ch.Key()), slog.Int("n", n))
		return rejected(err, "a chapter must keep at least one page")
	}
	if snap == nil {
		return Result{}
	}
	s.undo.PushPageDelete(snap, idx)
	s.log.DebugContext(s.ctx, "page deleted", slog.String("page_id", snap.ID), slog.Int("undo", s.undo.Len()))

	if ch != curCh {
		s.touch()
		return invalidate(ViewPageList, ViewHeader)
	}
	if n < curN {
		curN--
	}
	p := pages.Get(s.book, ch, curN)
	if p == nil {
		inCh := pages.InChapter(s.book, ch)
		p = inCh[min(n, len(inCh))-1]
	}
	return s.load(p)
}

// DeleteChapter removes every page of ch. It clears the undo log. The book
// must keep at least one page.
func (s *Session) DeleteChapter(ch domain.Chapter) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo.Clear()
	removed, err := pages.DeleteChapter(s.book, ch)
	if errors.Is(err, pages.ErrLastChapter) {
		s.log.InfoContext(s.ctx, "chapter delete rejected", slog.String("chapter", ch.Key()))
		return rejected(err, "the book must keep at least one chapter")
	}
	if removed == 0 {
		return Result{}
	}
	s.log.DebugContext(s.ctx, "chapter deleted", slog.String("chapter", ch.Key()), slog.Int("pages", removed))
	if s.page.Chapter != ch {
		s.touch()
		return invalidate(ViewPageList, ViewHeader)
	}
	first := pages.Chapters(s.book)[0]
	p := pages.Get(s.book, first, pages.LastVisited(s.book, first))
	if p == nil {
		p = pages.InChapter(s.book, first)[0]
	}
	return s.load(p)
}

// Undo reverses the most recent page delete.
func (s *Session) Undo() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.undo.Pop()
	if !ok {
		return Result{Notice: "nothing to undo"}
	}
	p := pages.Restore(s.book, a.Page, a.Index, s.newID)
	s.log.DebugContext(s.ctx, "page restored", slog.String("page_id", p.ID), slog.Int("n", p.Number))
	res := s.load(p)
	res.Notice = "page restored"
	return res
}

// SetTitle renames the current page.
func (s *Session) SetTitle(title string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.page.Title == title {
		return Result{}
	}
	s.page.Title = title
	s.page.UpdatedAt = s.stamp()
	s.touch()
	return invalidate(ViewTitle, ViewPageList)
}

// CommitContent replaces the current page's content with an edited blob.
// The blob may carry highlight decoration; it is sanitized and stripped, and
// annotations are re-anchored to the new text. Any content edit clears undo.
func (s *Session) CommitContent(content string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo.Clear()
	s.doc = s.parse(entry.Sanitize(content))
	s.doc.StripDecorations()
	return s.commit()
}

// commit stores s.doc into the current page after reconciling annotations.
func (s *Session) commit() Result {
	r := annotate.Reconcile(s.page, s.doc)
	if r.Changed() {
		s.log.DebugContext(s.ctx, "annotations reconciled", slog.Int("moved", r.Moved), slog.Int("dropped", r.Dropped))
	}
	s.page.Content = s.doc.HTML()
	s.page.UpdatedAt = s.stamp()
	s.touch()
	return invalidate(ViewEditor, ViewPageList, ViewAnnotations)
}

// SplitEntry breaks an entry at a plain-text offset. Annotations after the
// caret follow the text into the new entry. offset is clamped to the
// entry's text.
func (s *Session) SplitEntry(entryID string, offset int) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.doc.Entry(entryID)
	if src == nil {
		return Result{}
	}
	offset = min(max(offset, 0), entry.RuneLen(src.Text()))
	e, ok := s.doc.Split(entryID, offset)
	if !ok {
		return Result{}
	}
	s.undo.Clear()
	annotate.MoveForSplit(s.page, entryID, e.ID, offset)
	return s.commit()
}

// RetypeEntries changes the type of the listed entries, keeping their ids.
func (s *Session) RetypeEntries(ids []string, t entry.Type) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc.Retype(ids, t) == 0 {
		return Result{}
	}
	s.undo.Clear()
	return s.commit()
}

// AppendEntry adds an entry with plain text at the end of the page.
func (s *Session) AppendEntry(t entry.Type, text string) (string, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.undo.Clear()
	e := s.doc.Append(t, strings.TrimRight(text, "\n"))
	res := s.commit()
	added := s.autoApply()
	res.AutoApplied = added
	return e.ID, res
}

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

	"shiori/internal/annotate"
	"shiori/internal/domain"
	"shiori/internal/glossary"
)

// autoApply runs the glossary over the current page.
func (s *Session) autoApply() int {
	added := glossary.AutoApply(s.book, s.page, s.doc, s.newID, s.stamp())
	if added > 0 {
		s.log.DebugContext(s.ctx, "glossary applied", slog.Int("added", added))
		s.page.UpdatedAt = s.stamp()
		s.touch()
	}
	return added
}

func (s *Session) input(in annotate.Input) annotate.Input {
	if in.ReadingType == "" {
		in.ReadingType = s.readingType
	}
	return in
}

func (s *Session) annotationRejected(err error) Result {
	if errors.Is(err, annotate.ErrOverlap) {
		s.log.InfoContext(s.ctx, "annotation rejected", slog.Any("err", err))
		return rejected(err, "that text overlaps an existing annotation")
	}
	// stale entry ids or empty ranges
	return Result{}
}

// Annotate creates a user annotation for sel, records the term in the
// glossary and propagates it over the page.
func (s *Session) Annotate(sel annotate.Selection, in annotate.Input) (domain.Annotation, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := annotate.Create(s.page, s.doc, sel, s.input(in), s.newID(), s.stamp())
	if err != nil {
		return domain.Annotation{}, s.annotationRejected(err)
	}
	return a, s.afterSave(a)
}

// EditAnnotation updates annotation id. Its anchor moves only when sel is
// non-nil.
func (s *Session) EditAnnotation(id string, in annotate.Input, sel *annotate.Selection) (domain.Annotation, Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok, err := annotate.Edit(s.page, s.doc, id, in, sel, s.stamp())
	if !ok {
		return domain.Annotation{}, Result{}
	}
	if err != nil {
		return a, s.annotationRejected(err)
	}
	return a, s.afterSave(a)
}

func (s *Session) afterSave(a domain.Annotation) Result {
	glossary.Upsert(s.book, a, s.stamp())
	s.page.UpdatedAt = s.stamp()
	s.touch()
	res := invalidate(ViewEditor, ViewAnnotations)
	res.AutoApplied = s.autoApply()
	return res
}

// DeleteAnnotation removes one annotation and stops the glossary from
// re-adding its term on this page.
func (s *Session) DeleteAnnotation(id string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := annotate.Delete(s.page, id); !ok {
		return Result{}
	}
	s.page.UpdatedAt = s.stamp()
	s.touch()
	return invalidate(ViewEditor, ViewAnnotations)
}

// DeleteGroup removes every annotation of a display group.
func (s *Session) DeleteGroup(key string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if annotate.DeleteGroup(s.page, key) == 0 {
		return Result{}
	}
	s.page.UpdatedAt = s.stamp()
	s.touch()
	return invalidate(ViewEditor, ViewAnnotations)
}

// Glossary returns the book's glossary sorted by term.
func (s *Session) Glossary() []domain.GlossaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return glossary.Sorted(s.book)
}

// RemoveGlossaryTerm deletes a glossary definition. Existing annotations stay.
func (s *Session) RemoveGlossaryTerm(term string) Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !glossary.Remove(s.book, term) {
		return Result{}
	}
	s.touch()
	return invalidate(ViewAnnotations)
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// NewID returns a time-ordered UUIDv7 string.
func NewID() string { return uuid.Must(uuid.NewV7()).String() }

var (
	ErrShelfNotFound = errors.New("shelf not found")
	ErrBookNotFound  = errors.New("book not found")
	ErrEmptyName     = errors.New("name is required")
)

// AddShelf prepends a new empty shelf.
func (l *Library) AddShelf(name string, now Millis) (*Shelf, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	s := &Shelf{ID: NewID(), Name: name, Books: []*Book{}, CreatedAt: now, UpdatedAt: now}
	l.Shelves = append([]*Shelf{s}, l.Shelves...)
	return s, nil
}

// RenameShelf changes a shelf name.
func (l *Library) RenameShelf(shelfID, name string, now Millis) error {
	s := l.FindShelf(shelfID)
	if s == nil {
		return ErrShelfNotFound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	s.Name = name
	s.UpdatedAt = now
	return nil
}

// DeleteShelf removes a shelf with all its books.
func (l *Library) DeleteShelf(shelfID string) error {
	for i, s := range l.Shelves {
		if s.ID == shelfID {
			l.Shelves = append(l.Shelves[:i], l.Shelves[i+1:]...)
			return nil
		}
	}
	return ErrShelfNotFound
}

// NewBook builds a book with a single empty page in the "none" chapter.
func NewBook(title, author, volume string, now Millis) *Book {
	return &Book{
		ID:        NewID(),
		Title:     strings.TrimSpace(title),
		Author:    strings.TrimSpace(author),
		Volume:    strings.TrimSpace(volume),
		CreatedAt: now,
		UpdatedAt: now,
		Pages: []*Page{{
			ID:                 NewID(),
			Chapter:            NoChapter,
			Number:             1,
			Annotations:        []Annotation{},
			SuppressedGlossary: []string{},
			UpdatedAt:          now,
		}},
		Glossary:          map[string]GlossaryEntry{},
		CurrentChapter:    NoChapter,
		CurrentPage:       1,
		LastPageByChapter: map[string]int{},
	}
}

// AddBook appends a new book to the shelf.
func (l *Library) AddBook(shelfID, title, author, volume string, now Millis) (*Book, error) {
	s := l.FindShelf(shelfID)
	if s == nil {
		return nil, ErrShelfNotFound
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyName
	}
	b := NewBook(title, author, volume, now)
	s.Books = append(s.Books, b)
	s.BookCount = len(s.Books)
	s.UpdatedAt = now
	return b, nil
}

// DeleteBook removes a book from whichever shelf holds it.
func (l *Library) DeleteBook(bookID string, now Millis) error {
	for _, s := range l.Shelves {
		for i, b := range s.Books {
			if b.ID == bookID {
				s.Books = append(s.Books[:i], s.Books[i+1:]...)
				s.BookCount = len(s.Books)
				s.UpdatedAt = now
				return nil
			}
		}
	}
	return ErrBookNotFound
}

// Touch stamps the book and its shelf as modified.
func (l *Library) Touch(bookID string, now Millis) {
	s, b := l.FindBook(bookID)
	if b == nil {
		return
	}
	b.UpdatedAt = now
	s.BookCount = len(s.Books)
	s.UpdatedAt = now
}

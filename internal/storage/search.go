/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"unicode/utf8"

	"shiori/internal/domain"
	"shiori/internal/pages"
)

// SearchQuery is a full-text page search. Text of three or more characters
// uses the trigram index; shorter text falls back to a substring scan.
// BookID optionally restricts results to one book.
type SearchQuery struct {
	Text   string
	BookID string
	Limit  int
	Offset int
}

// SearchResult is one matching page. Snippet marks hits with [ ] when the
// index was used.
type SearchResult struct {
	BookID    string
	BookTitle string
	PageID    string
	Chapter   domain.Chapter
	Number    int
	Title     string
	Snippet   string
}

// IndexLibrary replaces the page index with the pages of lib.
func (s *SQLiteKV) IndexLibrary(ctx context.Context, lib domain.Library) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM page_fts;"); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear page index: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, "INSERT INTO page_fts(book_id, page_id, chapter, number, book_title, title, body) VALUES(?,?,?,?,?,?,?);")
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, sh := range lib.Shelves {
		for _, b := range sh.Books {
			for _, p := range b.Pages {
				if _, err := ins.ExecContext(ctx, b.ID, p.ID, int(p.Chapter), p.Number, b.Title, p.Title, pages.PlainText(p)); err != nil {
					_ = tx.Rollback()
					return fmt.Errorf("index page %s: %w", p.ID, err)
				}
			}
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteKV) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, nil
	}
	var args []any
	var sb strings.Builder
	if utf8.RuneCountInString(text) >= 3 {
		sb.WriteString("SELECT book_id, book_title, page_id, chapter, number, title, snippet(page_fts, 6, '[', ']', '…', 12)\n")
		sb.WriteString("FROM page_fts WHERE page_fts MATCH ?\n")
		args = append(args, phrase(text))
	} else {
		sb.WriteString("SELECT book_id, book_title, page_id, chapter, number, title, substr(body, 1, 60)\n")
		sb.WriteString("FROM page_fts WHERE (title LIKE ? OR body LIKE ?)\n")
		args = append(args, likeContains(text), likeContains(text))
	}
	if q.BookID != "" {
		sb.WriteString(" AND book_id = ?\n")
		args = append(args, q.BookID)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY book_title, chapter, number\nLIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var ch int
		var sn sql.NullString
		if err := rows.Scan(&r.BookID, &r.BookTitle, &r.PageID, &ch, &r.Number, &r.Title, &sn); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		r.Chapter = domain.Chapter(ch)
		r.Snippet = sn.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// phrase quotes text as a single FTS5 string so operators are not parsed.
func phrase(text string) string {
	return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
}

func likeContains(s string) string { return "%" + s + "%" }

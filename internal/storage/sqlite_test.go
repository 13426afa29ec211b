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
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"shiori/internal/domain"
)

func content(text string) string {
	return `<div class="entry entry--narration" data-type="narration" data-entry-id="e1"><div class="entry-inner">` + text + `</div></div>`
}

func searchLibrary() domain.Library {
	b := domain.NewBook("Night Train", "", "", 1)
	b.Pages[0].Content = content("The black cat waited on the platform.")
	b.Pages = append(b.Pages, &domain.Page{
		ID: "p2", Chapter: 2, Number: 1, Title: "Arrival", Content: content("猫が駅に着いた"),
		Annotations: []domain.Annotation{}, SuppressedGlossary: []string{},
	})
	return domain.Library{Shelves: []*domain.Shelf{{ID: "s1", Name: "Shelf", Books: []*domain.Book{b}, BookCount: 1}}}
}

func TestSQLiteKVRoundTrip(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), SQLiteFileName))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	defer kv.Close()
	ctx := context.Background()
	if _, err := kv.Get(ctx, "k"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := kv.Set(ctx, "k", []byte("one")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Set(ctx, "k", []byte("two")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := kv.Get(ctx, "k")
	if err != nil || string(got) != "two" {
		t.Fatalf("Get = %q, %v", got, err)
	}
}

func TestSQLiteMigratesToCurrentSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), SQLiteFileName)
	kv, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	kv.Close()

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s", filepath.ToSlash(path)))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	var schema int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("expected schema %d, got %d", schemaVersion, schema)
	}
	var cnt int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE name='page_fts'`).Scan(&cnt); err != nil || cnt != 1 {
		t.Fatalf("page_fts missing: %d %v", cnt, err)
	}
}

func TestStoreSearchUsesPageIndex(t *testing.T) {
	kv, err := OpenSQLite(filepath.Join(t.TempDir(), SQLiteFileName))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	st := NewStore(kv)
	defer st.Close()
	ctx := context.Background()
	lib := searchLibrary()
	if err := st.Save(ctx, lib); err != nil {
		t.Fatalf("Save: %v", err)
	}

	res, err := st.Search(ctx, SearchQuery{Text: "black cat"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(res) != 1 || res[0].BookTitle != "Night Train" || res[0].Chapter != domain.NoChapter || res[0].Number != 1 {
		t.Fatalf("results %+v", res)
	}

	// two characters: substring fallback
	res, err = st.Search(ctx, SearchQuery{Text: "駅に"})
	if err != nil {
		t.Fatalf("Search short: %v", err)
	}
	if len(res) != 1 || res[0].PageID != "p2" || res[0].Chapter != 2 {
		t.Fatalf("short results %+v", res)
	}

	res, _ = st.Search(ctx, SearchQuery{Text: "black cat", BookID: "other"})
	if len(res) != 0 {
		t.Fatalf("book filter ignored: %+v", res)
	}
}

func TestFileStoreHasNoSearch(t *testing.T) {
	kv, _ := OpenFile(t.TempDir(), 1)
	if _, err := NewStore(kv).Search(context.Background(), SearchQuery{Text: "x"}); err != ErrSearchUnsupported {
		t.Fatalf("expected ErrSearchUnsupported, got %v", err)
	}
}

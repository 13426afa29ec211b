/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shiori/internal/config"
	"shiori/internal/storage"
)

func runCLI(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvConfigPath, filepath.Join(dir, "absent.yaml"))
	var out bytes.Buffer
	a := &app{out: &out, logOut: io.Discard}
	a.cfg, a.cfgErr = config.Load()
	err := newCommand(a).Run(context.Background(), append([]string{"shiori", "--data-dir", dir}, args...))
	return out.String(), err
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := runCLI(t, dir, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func seedBook(t *testing.T, dir string, extra ...string) {
	t.Helper()
	mustRun(t, dir, append(extra, "shelf", "add", "Novels")...)
	mustRun(t, dir, append(extra, "book", "add", "--author", "Aoi", "Novels", "Night Train")...)
}

func TestLibraryLifecycle(t *testing.T) {
	dir := t.TempDir()
	seedBook(t, dir)

	out := mustRun(t, dir, "book", "list")
	if !strings.Contains(out, "Night Train") || !strings.Contains(out, "Aoi") {
		t.Fatalf("book list:\n%s", out)
	}
	mustRun(t, dir, "shelf", "rename", "novels", "Fiction")
	if out := mustRun(t, dir, "shelf", "list"); !strings.Contains(out, "Fiction") {
		t.Fatalf("shelf list:\n%s", out)
	}
	if _, err := runCLI(t, dir, "book", "rm", "Missing"); err == nil {
		t.Fatalf("removing an unknown book succeeded")
	}
	mustRun(t, dir, "shelf", "rm", "Fiction")
	if out := mustRun(t, dir, "book", "list"); strings.Contains(out, "Night Train") {
		t.Fatalf("book survived its shelf:\n%s", out)
	}
}

func TestWriteAnnotateShow(t *testing.T) {
	dir := t.TempDir()
	seedBook(t, dir)

	mustRun(t, dir, "write", "Night Train", "漢字です")
	mustRun(t, dir, "write", "--type", "dialogue", "Night Train", "漢字ですか")
	out := mustRun(t, dir, "annotate", "--reading", "かんじ", "--meaning", "kanji", "Night Train", "漢字")
	if !strings.Contains(out, "annotated 漢字 [0,2)") {
		t.Fatalf("annotate output:\n%s", out)
	}
	if !strings.Contains(out, "glossary added 1") {
		t.Fatalf("second occurrence not propagated:\n%s", out)
	}

	out = mustRun(t, dir, "show", "Night Train")
	if strings.Count(out, "漢字(かんじ)") != 2 || !strings.Contains(out, "dialogue") {
		t.Fatalf("show:\n%s", out)
	}
	if out := mustRun(t, dir, "glossary", "Night Train"); !strings.Contains(out, "kanji") {
		t.Fatalf("glossary:\n%s", out)
	}

	if _, err := runCLI(t, dir, "annotate", "--reading", "x", "Night Train", "字で"); err == nil {
		t.Fatalf("overlapping annotation accepted")
	}
	if _, err := runCLI(t, dir, "annotate", "Night Train", "ない"); err == nil {
		t.Fatalf("missing text accepted")
	}

	mustRun(t, dir, "unmark", "Night Train", "1")
	if out := mustRun(t, dir, "show", "Night Train"); strings.Contains(out, "(かんじ)") {
		t.Fatalf("group not removed:\n%s", out)
	}
	mustRun(t, dir, "glossary", "rm", "Night Train", "漢字")
	if out := mustRun(t, dir, "glossary", "Night Train"); strings.Contains(out, "kanji") {
		t.Fatalf("term not removed:\n%s", out)
	}
}

func line(out, sub string) string {
	for _, l := range strings.Split(out, "\n") {
		if strings.Contains(l, sub) {
			return l
		}
	}
	return ""
}

func TestEditSplitRetype(t *testing.T) {
	dir := t.TempDir()
	seedBook(t, dir)
	mustRun(t, dir, "write", "Night Train", "ねこがいる")
	out := mustRun(t, dir, "annotate", "--reading", "neko", "Night Train", "ねこ")
	fields := strings.Fields(line(out, "annotated"))
	if len(fields) == 0 {
		t.Fatalf("annotate output:\n%s", out)
	}
	id := fields[len(fields)-1]

	out = mustRun(t, dir, "annotate", "--edit", id, "--meaning", "cat", "Night Train")
	if !strings.Contains(out, "updated ねこ [0,2) "+id) {
		t.Fatalf("edit output:\n%s", out)
	}
	if out := mustRun(t, dir, "glossary", "Night Train"); !strings.Contains(out, "cat") || !strings.Contains(out, "neko") {
		t.Fatalf("edit dropped unset fields:\n%s", out)
	}
	if _, err := runCLI(t, dir, "annotate", "--edit", "nope", "--meaning", "x", "Night Train"); err == nil {
		t.Fatalf("editing an unknown annotation succeeded")
	}

	mustRun(t, dir, "write", "--split", "1:3", "Night Train")
	out = mustRun(t, dir, "show", "Night Train")
	if l := line(out, " 2 "); !strings.Contains(l, "いる") || strings.Contains(l, "ねこ") {
		t.Fatalf("split:\n%s", out)
	}
	if !strings.Contains(line(out, " 1 "), "ねこ(neko)が") {
		t.Fatalf("annotation lost by split:\n%s", out)
	}

	mustRun(t, dir, "write", "--retype", "2:dialogue", "Night Train")
	out = mustRun(t, dir, "show", "Night Train")
	if !strings.Contains(line(out, "いる"), "dialogue") || strings.Contains(line(out, "ねこ"), "dialogue") {
		t.Fatalf("retype:\n%s", out)
	}
	for _, bad := range []string{"9:sfx", "1", "x:sfx"} {
		if _, err := runCLI(t, dir, "write", "--retype", bad, "Night Train"); err == nil {
			t.Fatalf("retype %q accepted", bad)
		}
	}
	if _, err := runCLI(t, dir, "write", "--split", "1:x", "Night Train"); err == nil {
		t.Fatalf("split with a bad offset accepted")
	}

	out = mustRun(t, dir, "annotate", "--edit", id, "Night Train", "いる")
	if !strings.Contains(out, "updated いる [0,2) "+id) {
		t.Fatalf("move output:\n%s", out)
	}
}

func TestPagesAndChapters(t *testing.T) {
	dir := t.TempDir()
	seedBook(t, dir)

	if out := mustRun(t, dir, "page", "new", "Night Train"); !strings.Contains(out, "no chapter page 2") {
		t.Fatalf("page new: %s", out)
	}
	mustRun(t, dir, "page", "title", "--page", "2", "Night Train", "Platform")
	if out := mustRun(t, dir, "pages", "--filter", "platform", "Night Train"); !strings.Contains(out, "Platform") {
		t.Fatalf("pages:\n%s", out)
	}

	if out := mustRun(t, dir, "chapter", "go", "Night Train", "3"); !strings.Contains(out, "chapter 3 page 1") {
		t.Fatalf("chapter go: %s", out)
	}
	_, err := runCLI(t, dir, "page", "rm", "--chapter", "3", "Night Train")
	if err == nil || !strings.Contains(err.Error(), "at least one page") {
		t.Fatalf("deleting the only page of a chapter: %v", err)
	}
	mustRun(t, dir, "chapter", "rm", "Night Train", "3")
	if out := mustRun(t, dir, "pages", "Night Train"); strings.Contains(out, "│ 3 ") {
		t.Fatalf("chapter 3 survived:\n%s", out)
	}
	mustRun(t, dir, "page", "rm", "--chapter", "none", "--page", "2", "Night Train")
	if out := mustRun(t, dir, "pages", "Night Train"); strings.Contains(out, "Platform") {
		t.Fatalf("page not deleted:\n%s", out)
	}
}

func TestWriteHTMLIsSanitized(t *testing.T) {
	dir := t.TempDir()
	seedBook(t, dir)
	src := filepath.Join(dir, "page.html")
	html := `<div class="entry entry--sfx" data-type="sfx"><div class="entry-inner">ドン<script>alert(1)</script></div></div>`
	if err := os.WriteFile(src, []byte(html), 0o644); err != nil {
		t.Fatal(err)
	}
	mustRun(t, dir, "write", "--html", src, "Night Train")
	out := mustRun(t, dir, "show", "Night Train")
	if !strings.Contains(out, "ドン") || strings.Contains(out, "alert") {
		t.Fatalf("show:\n%s", out)
	}
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	seedBook(t, dir)
	mustRun(t, dir, "write", "Night Train", "静かな夜")
	outDir := filepath.Join(dir, "out")
	out := mustRun(t, dir, "export", "--format", "md", "--out", outDir, "Night Train")
	path := strings.TrimSpace(out)
	if filepath.Base(path) != "night-train.md" {
		t.Fatalf("export path = %q", path)
	}
	b, err := os.ReadFile(path)
	if err != nil || !strings.Contains(string(b), "静かな夜") {
		t.Fatalf("export content: %v\n%s", err, b)
	}
	if _, err := runCLI(t, dir, "export", "--format", "docx", "Night Train"); err == nil {
		t.Fatalf("unknown format accepted")
	}
}

func TestSearch(t *testing.T) {
	dir := t.TempDir()
	seedBook(t, dir)
	if _, err := runCLI(t, dir, "search", "夜"); !errors.Is(err, storage.ErrSearchUnsupported) {
		t.Fatalf("file backend search err = %v", err)
	}

	sq := t.TempDir()
	seedBook(t, sq, "--backend", "sqlite")
	mustRun(t, sq, "--backend", "sqlite", "write", "Night Train", "静かな夜の汽車")
	out := mustRun(t, sq, "--backend", "sqlite", "search", "夜の汽車")
	if !strings.Contains(out, "Night Train") {
		t.Fatalf("search:\n%s", out)
	}
}

func TestVersion(t *testing.T) {
	if out := mustRun(t, t.TempDir(), "version"); !strings.HasPrefix(out, "shiori ") {
		t.Fatalf("version = %q", out)
	}
}

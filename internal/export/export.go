/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders a book to Markdown, PDF and a PNG page preview.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gosimple/slug"

	"shiori/internal/domain"
)

// Format is an output format.
type Format string

const (
	Markdown Format = "markdown"
	PDF      Format = "pdf"
	PNG      Format = "png"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Formats lists every format in stable order.
func Formats() []Format { return []Format{Markdown, PDF, PNG} }

// ParseFormat accepts the format names and their file extensions.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "markdown", "md":
		return Markdown, nil
	case "pdf":
		return PDF, nil
	case "png":
		return PNG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) Ext() string {
	if f == Markdown {
		return "md"
	}
	return string(f)
}

// Options controls rendering.
type Options struct {
	// FontPath is a TTF with CJK coverage. Without it PDF falls back to
	// Helvetica (Latin-1 only) and PNG to a bitmap face.
	FontPath string
	// PageID selects the page for PNG; empty means the book's current page.
	PageID string
	// Width of the PNG in pixels; 800 if zero.
	Width int
}

// FileName is <slug(title)>[-v<slug(volume)>].<ext>.
func FileName(b *domain.Book, f Format) string {
	base := slug.Make(b.Title)
	if base == "" {
		base = "book"
	}
	if v := slug.Make(b.Volume); v != "" {
		base += "-v" + v
	}
	return base + "." + f.Ext()
}

// Write renders b in format f.
func Write(w io.Writer, f Format, b *domain.Book, opt Options) error {
	switch f {
	case Markdown:
		return WriteMarkdown(w, b)
	case PDF:
		return WritePDF(w, b, opt)
	case PNG:
		return WritePNG(w, b, opt)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

// ToDir renders b into dir under FileName and returns the written path. The
// file appears atomically.
func ToDir(dir string, f Format, b *domain.Book, opt Options) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure out dir: %w", err)
	}
	path := filepath.Join(dir, FileName(b, f))
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if err := Write(tmp, f, b, opt); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("export %s: %w", f, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("rename: %w", err)
	}
	return path, nil
}

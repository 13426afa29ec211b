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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"shiori/internal/config"
	"shiori/internal/domain"
	applog "shiori/internal/log"
)

// ErrSearchUnsupported is returned by Store.Search on backends without an index.
var ErrSearchUnsupported = errors.New("search requires the sqlite backend")

// Indexer is implemented by backends that keep a page index.
type Indexer interface {
	IndexLibrary(ctx context.Context, lib domain.Library) error
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, error)
}

// Store loads and saves the library document through a KV backend.
type Store struct {
	kv    KV
	now   func() time.Time
	newID func() string
	log   *slog.Logger
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv, now: time.Now, newID: domain.NewID, log: applog.WithComponent("storage")}
}

// Open builds the backend named by cfg.
func Open(cfg config.StorageConfig) (*Store, error) {
	switch cfg.Backend {
	case "", config.BackendFile:
		kv, err := OpenFile(cfg.Dir, cfg.Backups)
		if err != nil {
			return nil, err
		}
		return NewStore(kv), nil
	case config.BackendSQLite:
		kv, err := OpenSQLite(filepath.Join(cfg.Dir, SQLiteFileName))
		if err != nil {
			return nil, err
		}
		return NewStore(kv), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Load reads the library. A store that was never written yields an empty
// library. Schema violations and migrations are logged and healed.
func (s *Store) Load(ctx context.Context) (domain.Library, error) {
	l := applog.WithOperation(s.log, "load")
	data, err := s.kv.Get(ctx, LibraryKey)
	if errors.Is(err, ErrNotFound) {
		l.Debug("no library stored yet")
		return domain.Library{Shelves: []*domain.Shelf{}}, nil
	}
	if err != nil {
		return domain.Library{}, fmt.Errorf("load library: %w", err)
	}
	if violations, verr := Validate(data); verr != nil {
		l.Warn("schema check failed", slog.Any("err", verr))
	} else if len(violations) > 0 {
		l.Warn("stored library does not match schema", slog.Int("violations", len(violations)), slog.String("first", violations[0]))
	}
	lib, notes, err := Decode(data, s.newID, domain.At(s.now()))
	if err != nil {
		return domain.Library{}, err
	}
	for _, n := range notes {
		l.Warn("healed stored library", slog.String("note", n))
	}
	return lib, nil
}

// Save writes the library and refreshes the page index when the backend
// has one. Index failures are logged; the document write is what counts.
func (s *Store) Save(ctx context.Context, lib domain.Library) error {
	data, err := json.Marshal(lib)
	if err != nil {
		return fmt.Errorf("marshal library: %w", err)
	}
	if err := s.kv.Set(ctx, LibraryKey, data); err != nil {
		return fmt.Errorf("save library: %w", err)
	}
	if ix, ok := s.kv.(Indexer); ok {
		if err := ix.IndexLibrary(ctx, lib); err != nil {
			applog.WithOperation(s.log, "index").Warn("page index update failed", slog.Any("err", err))
		}
	}
	return nil
}

// Search runs a full-text page search on backends that support it.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	ix, ok := s.kv.(Indexer)
	if !ok {
		return nil, ErrSearchUnsupported
	}
	return ix.Search(ctx, q)
}

func (s *Store) Close() error { return s.kv.Close() }

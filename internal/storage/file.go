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
	"io"
	"io/fs"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "shiori/internal/log"
)

const (
	BackupsDirName = "backups"
	// DefaultBackups is how many backups per key FileKV keeps when unset.
	DefaultBackups = 10
)

// FileKV stores each key as <Dir>/<key>.json. Every Set copies the previous
// value to backups/<key>.json.<stamp>.bak and replaces the file through a
// temp file and rename. Get falls back to the newest backup when the main
// file is missing or not valid JSON.
type FileKV struct {
	Dir     string
	Backups int
	now     func() time.Time
}

// OpenFile prepares dir and its backups folder.
func OpenFile(dir string, backups int) (*FileKV, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage dir is required")
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	if backups <= 0 {
		backups = DefaultBackups
	}
	return &FileKV{Dir: dir, Backups: backups, now: time.Now}, nil
}

func (f *FileKV) path(key string) string { return filepath.Join(f.Dir, key+".json") }

func (f *FileKV) Get(_ context.Context, key string) ([]byte, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "file_get").With(slog.String("key", key))
	b, err := os.ReadFile(f.path(key))
	if err == nil && json.Valid(b) {
		return b, nil
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		l.Warn("read failed, trying backup", slog.Any("err", err))
	} else if err == nil {
		l.Warn("document is not valid JSON, trying backup")
	}
	bak, berr := f.latestBackup(key)
	switch {
	case berr == nil:
		l.Info("restored from backup")
		return bak, nil
	case err != nil && errors.Is(err, fs.ErrNotExist) && errors.Is(berr, ErrNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("read %s: %w; backup attempt: %v", key, err, berr)
	default:
		return nil, fmt.Errorf("parse %s: invalid JSON; backup attempt: %w", key, berr)
	}
}

func (f *FileKV) Set(_ context.Context, key string, value []byte) error {
	target := f.path(key)
	bdir := filepath.Join(f.Dir, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(target); statErr == nil {
		stamp := f.now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.json.%s.bak", key, stamp))
		if err := copyFile(target, bpath); err != nil {
			return fmt.Errorf("backup %s: %w", key, err)
		}
		f.prune(key)
	}
	temp := filepath.Join(f.Dir, fmt.Sprintf(".%s.tmp-%d-%d", key, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, value); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp %s: %w", key, err)
	}
	if err := os.Rename(temp, target); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", key, err)
	}
	return nil
}

func (f *FileKV) Close() error { return nil }

func (f *FileKV) backups(key string) []string {
	bdir := filepath.Join(f.Dir, BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, key+".json.") && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	// stamps sort lexicographically
	sort.Strings(out)
	return out
}

// prune keeps the newest f.Backups backups of key.
func (f *FileKV) prune(key string) {
	all := f.backups(key)
	for len(all) > f.Backups {
		_ = os.Remove(all[0])
		all = all[1:]
	}
}

func (f *FileKV) latestBackup(key string) ([]byte, error) {
	all := f.backups(key)
	for i := len(all) - 1; i >= 0; i-- {
		b, err := os.ReadFile(all[i])
		if err == nil && json.Valid(b) {
			return b, nil
		}
	}
	return nil, ErrNotFound
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sf.Close()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

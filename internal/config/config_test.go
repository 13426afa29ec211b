/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(EnvConfigPath, filepath.Join(dir, "config.yaml"))
	return dir
}

func TestDefaultsWhenNoFile(t *testing.T) {
	isolate(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.DebounceMs != 250 {
		t.Fatalf("unexpected storage defaults: %#v", cfg.Storage)
	}
	if cfg.Editor.UndoCapacity != 20 || cfg.Editor.DefaultReadingType != "kun" {
		t.Fatalf("unexpected editor defaults: %#v", cfg.Editor)
	}
	if got, want := cfg.Storage.Debounce(), 250*time.Millisecond; got != want {
		t.Fatalf("Debounce() = %v, want %v", got, want)
	}
}

func TestEnvOverridesStorage(t *testing.T) {
	isolate(t)
	t.Setenv(EnvStorageBackend, "SQLite")
	t.Setenv(EnvDebounceMs, "40")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Storage.Backend, "sqlite"; got != want {
		t.Fatalf("Storage.Backend = %q, want %q", got, want)
	}
	if cfg.Storage.DebounceMs != 40 {
		t.Fatalf("Storage.DebounceMs = %d, want 40", cfg.Storage.DebounceMs)
	}
	if env, ok := EnvOverrideFor("storage.backend"); !ok || env != EnvStorageBackend {
		t.Fatalf("EnvOverrideFor(storage.backend) = %q, %v", env, ok)
	}
	if _, ok := EnvOverrideFor("editor.undo_capacity"); ok {
		t.Fatalf("undo capacity should not be reported as overridden")
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	isolate(t)
	cfg := Defaults()
	cfg.Editor.DefaultReadingType = "on"
	cfg.Export.FontPath = "/fonts/NotoSansJP.ttf"
	cfg.Storage.Backups = 3
	if err := Save(cfg); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	got, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.Editor.DefaultReadingType != "on" || got.Export.FontPath != "/fonts/NotoSansJP.ttf" || got.Storage.Backups != 3 {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestMalformedFileKeepsDefaults(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage: [oops"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load()
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Storage.Backend != "file" {
		t.Fatalf("defaults not kept: %#v", cfg.Storage)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "DEBUG"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/shiori.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/shiori.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestMergeIgnoresInvalidReadingType(t *testing.T) {
	dst := Defaults()
	src := AppConfig{Editor: EditorConfig{DefaultReadingType: "nanori"}}
	mergeInto(&dst, &src)
	if dst.Editor.DefaultReadingType != "kun" {
		t.Fatalf("DefaultReadingType = %q, want kun", dst.Editor.DefaultReadingType)
	}
}

func TestExportDirDefaultsUnderData(t *testing.T) {
	cfg := Defaults()
	cfg.Storage.Dir = "/data/shiori"
	if got, want := cfg.ExportDir(), filepath.Join("/data/shiori", "exports"); got != want {
		t.Fatalf("ExportDir() = %q, want %q", got, want)
	}
}

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	applog "shiori/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

type StorageConfig struct {
	Backend    string `yaml:"backend"` // BackendFile | BackendSQLite
	Dir        string `yaml:"dir"`
	DebounceMs int    `yaml:"debounce_ms"`
	Backups    int    `yaml:"backups"` // number of timestamped backups kept by the file backend
}

type EditorConfig struct {
	UndoCapacity       int    `yaml:"undo_capacity"`
	DefaultReadingType string `yaml:"default_reading_type"` // "on" | "kun"
}

type ExportConfig struct {
	Dir      string `yaml:"dir"`
	FontPath string `yaml:"font_path"` // optional TTF with CJK coverage for PDF/PNG
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Storage       StorageConfig `yaml:"storage"`
	Editor        EditorConfig  `yaml:"editor"`
	Export        ExportConfig  `yaml:"export"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Storage:       StorageConfig{Backend: BackendFile, Dir: defaultDataDir(), DebounceMs: 250, Backups: 10},
		Editor:        EditorConfig{UndoCapacity: 20, DefaultReadingType: "kun"},
		Export:        ExportConfig{Dir: "", FontPath: ""},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "SHIORI_CONFIG"
	EnvStorageBackend = "SHIORI_STORAGE_BACKEND"
	EnvStorageDir     = "SHIORI_DATA_DIR"
	EnvDebounceMs     = "SHIORI_DEBOUNCE_MS"
	EnvUndoCapacity   = "SHIORI_UNDO_CAPACITY"
	EnvExportDir      = "SHIORI_EXPORT_DIR"
	EnvFontPath       = "SHIORI_FONT"
	EnvLogLevel       = applog.EnvLevel
	EnvLogFormat      = applog.EnvFormat
	EnvLogSource      = applog.EnvSource
	EnvLogFile        = applog.EnvFile
)

// ConfigPath returns the per-user config file path. SHIORI_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	base := userDir(configRoot)
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

const (
	configRoot = iota
	dataRoot
)

func userDir(kind int) string {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		return filepath.Join(base, "Shiori")
	case "darwin":
		return filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Shiori")
	default: // linux and others
		if kind == dataRoot {
			if x := os.Getenv("XDG_DATA_HOME"); x != "" {
				return filepath.Join(x, "shiori")
			}
			return filepath.Join(os.Getenv("HOME"), ".local", "share", "shiori")
		}
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			return filepath.Join(x, "shiori")
		}
		return filepath.Join(os.Getenv("HOME"), ".config", "shiori")
	}
}

func defaultDataDir() string { return userDir(dataRoot) }

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// A malformed file is reported but the defaults (plus env) are still returned.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	var loadErr error
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		} else {
			loadErr = fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, loadErr
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); v != "" {
		dst.Storage.Backend = v
	}
	if v := strings.TrimSpace(src.Storage.Dir); v != "" {
		dst.Storage.Dir = v
	}
	if src.Storage.DebounceMs > 0 {
		dst.Storage.DebounceMs = src.Storage.DebounceMs
	}
	if src.Storage.Backups > 0 {
		dst.Storage.Backups = src.Storage.Backups
	}
	if src.Editor.UndoCapacity > 0 {
		dst.Editor.UndoCapacity = src.Editor.UndoCapacity
	}
	if v := strings.ToLower(strings.TrimSpace(src.Editor.DefaultReadingType)); v == "on" || v == "kun" {
		dst.Editor.DefaultReadingType = v
	}
	if v := strings.TrimSpace(src.Export.Dir); v != "" {
		dst.Export.Dir = v
	}
	if v := strings.TrimSpace(src.Export.FontPath); v != "" {
		dst.Export.FontPath = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageDir)); v != "" {
		cfg.Storage.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebounceMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Storage.DebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvUndoCapacity)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.UndoCapacity = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvExportDir)); v != "" {
		cfg.Export.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontPath)); v != "" {
		cfg.Export.FontPath = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	var env string
	switch key {
	case "storage.backend":
		env = EnvStorageBackend
	case "storage.dir":
		env = EnvStorageDir
	case "storage.debounce_ms":
		env = EnvDebounceMs
	case "editor.undo_capacity":
		env = EnvUndoCapacity
	case "export.dir":
		env = EnvExportDir
	case "export.font_path":
		env = EnvFontPath
	case "logging.level":
		env = EnvLogLevel
	case "logging.format":
		env = EnvLogFormat
	case "logging.source":
		env = EnvLogSource
	case "logging.file":
		env = EnvLogFile
	default:
		return "", false
	}
	if os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// Debounce returns the persistence debounce window.
func (s StorageConfig) Debounce() time.Duration {
	if s.DebounceMs < 0 {
		return 0
	}
	return time.Duration(s.DebounceMs) * time.Millisecond
}

// ExportDir resolves the export directory, defaulting to <data dir>/exports.
func (c AppConfig) ExportDir() string {
	if strings.TrimSpace(c.Export.Dir) != "" {
		return c.Export.Dir
	}
	return filepath.Join(c.Storage.Dir, "exports")
}

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
	"log/slog"
	"sync"
	"time"

	"go.uber.org/multierr"

	applog "shiori/internal/log"
)

// DefaultDebounce is the quiet period before a scheduled save runs.
const DefaultDebounce = 250 * time.Millisecond

// Debouncer coalesces bursts of Schedule calls into one save that runs after
// a quiet period. Each Schedule supersedes the pending timer. Saves never
// overlap.
type Debouncer struct {
	delay time.Duration
	save  func(ctx context.Context) error

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	closed  bool
	lastErr error

	saveMu sync.Mutex
}

func NewDebouncer(delay time.Duration, save func(ctx context.Context) error) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{delay: delay, save: save}
}

// Schedule marks the state dirty and (re)starts the timer.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	if err := d.Flush(context.Background()); err != nil {
		applog.WithOperation(applog.WithComponent("storage"), "autosave").Error("debounced save failed", slog.Any("err", err))
	}
}

// Pending reports whether a save is scheduled but not yet written.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Flush runs the pending save now, if any.
func (d *Debouncer) Flush(ctx context.Context) error {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	pending := d.pending
	d.pending = false
	d.mu.Unlock()
	if !pending {
		return nil
	}
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	err := d.save(ctx)
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
	return err
}

// Err is the result of the most recent save.
func (d *Debouncer) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

// Close flushes and stops accepting new schedules. Any error of an earlier
// background save is reported along with the final flush.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	prev := d.lastErr
	d.mu.Unlock()
	err := d.Flush(ctx)
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	if err != nil {
		return multierr.Append(prev, err)
	}
	return prev
}

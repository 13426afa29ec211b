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
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalesces(t *testing.T) {
	var saves int32
	d := NewDebouncer(20*time.Millisecond, func(context.Context) error {
		atomic.AddInt32(&saves, 1)
		return nil
	})
	for i := 0; i < 10; i++ {
		d.Schedule()
	}
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&saves) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&saves); n != 1 {
		t.Fatalf("expected one save, got %d", n)
	}
	if d.Pending() {
		t.Fatalf("nothing should be pending")
	}
}

func TestDebouncerFlushAndClose(t *testing.T) {
	var saves int32
	d := NewDebouncer(time.Hour, func(context.Context) error {
		atomic.AddInt32(&saves, 1)
		return nil
	})
	if err := d.Flush(context.Background()); err != nil || saves != 0 {
		t.Fatalf("flush without pending work saved: %d %v", saves, err)
	}
	d.Schedule()
	if !d.Pending() {
		t.Fatalf("expected pending save")
	}
	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if atomic.LoadInt32(&saves) != 1 {
		t.Fatalf("close should flush, saves=%d", saves)
	}
	d.Schedule()
	if d.Pending() {
		t.Fatalf("closed debouncer accepted work")
	}
}

func TestDebouncerReportsErrors(t *testing.T) {
	boom := errors.New("disk full")
	d := NewDebouncer(time.Hour, func(context.Context) error { return boom })
	d.Schedule()
	if err := d.Flush(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Flush err = %v", err)
	}
	if !errors.Is(d.Err(), boom) {
		t.Fatalf("Err() = %v", d.Err())
	}
	d.Schedule()
	if err := d.Close(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Close err = %v", err)
	}
}

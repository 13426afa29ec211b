/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"fmt"
	"testing"
	"time"

	"shiori/internal/domain"
)

func TestPushPopOrder(t *testing.T) {
	m := NewManager(Config{})
	m.PushPageDelete(&domain.Page{ID: "a"}, 0)
	m.PushPageDelete(&domain.Page{ID: "b"}, 3)
	if m.Len() != 2 {
		t.Fatalf("expected 2 actions, got %d", m.Len())
	}
	a, ok := m.Pop()
	if !ok || a.Page.ID != "b" || a.Index != 3 || a.Kind != PageDelete || a.At.IsZero() {
		t.Fatalf("pop = %+v ok=%v", a, ok)
	}
	if a, _ := m.Pop(); a.Page.ID != "a" {
		t.Fatalf("expected a, got %s", a.Page.ID)
	}
	if _, ok := m.Pop(); ok {
		t.Fatalf("expected empty stack")
	}
}

func TestSnapshotIsDeep(t *testing.T) {
	m := NewManager(Config{})
	p := &domain.Page{ID: "x", Title: "before", Annotations: []domain.Annotation{{ID: "a1"}}}
	m.PushPageDelete(p, 0)
	p.Title = "after"
	p.Annotations[0].ID = "changed"
	a, _ := m.Peek()
	if a.Page.Title != "before" || a.Page.Annotations[0].ID != "a1" {
		t.Fatalf("snapshot aliased: %+v", a.Page)
	}
}

func TestCapacityDropsOldest(t *testing.T) {
	m := NewManager(Config{Capacity: 3})
	t0 := time.Unix(100, 0)
	for i := 0; i < 5; i++ {
		m.Push(Action{Kind: PageDelete, Page: &domain.Page{ID: fmt.Sprint(i)}, At: t0.Add(time.Duration(i) * time.Second)})
	}
	if m.Len() != 3 {
		t.Fatalf("expected cap 3, got %d", m.Len())
	}
	var ids string
	for {
		a, ok := m.Pop()
		if !ok {
			break
		}
		ids += a.Page.ID
	}
	if ids != "432" {
		t.Fatalf("expected newest three, got %q", ids)
	}
}

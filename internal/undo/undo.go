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
	"sync"
	"time"

	"shiori/internal/domain"
)

// Kind names a reversible action.
type Kind string

const PageDelete Kind = "page_delete"

// DefaultCapacity is used when Config.Capacity is not set.
const DefaultCapacity = 20

// Action is one reversible step. Page is a deep copy taken before the
// delete; Index is its zero-based position within its chapter.
type Action struct {
	Kind  Kind
	Page  *domain.Page
	Index int
	At    time.Time
}

// Config controls the depth cap.
type Config struct {
	// Capacity is the number of actions kept; the oldest is dropped on overflow.
	Capacity int
}

// Manager is a bounded undo stack. There is no redo: any content edit or
// chapter delete clears it. It is safe for concurrent use.
type Manager struct {
	cfg   Config
	mu    sync.Mutex
	stack []Action
	now   func() time.Time
}

func NewManager(cfg Config) *Manager {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	return &Manager{cfg: cfg, now: time.Now}
}

// Push records an action, stamping At if unset.
func (m *Manager) Push(a Action) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a.At.IsZero() {
		a.At = m.now()
	}
	m.stack = append(m.stack, a)
	if over := len(m.stack) - m.cfg.Capacity; over > 0 {
		m.stack = append([]Action(nil), m.stack[over:]...)
	}
}

// PushPageDelete snapshots a deleted page.
func (m *Manager) PushPageDelete(p *domain.Page, index int) {
	m.Push(Action{Kind: PageDelete, Page: p.Clone(), Index: index})
}

// Pop removes and returns the most recent action.
func (m *Manager) Pop() (Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.stack)
	if n == 0 {
		return Action{}, false
	}
	a := m.stack[n-1]
	m.stack = m.stack[:n-1]
	return a, true
}

// Peek returns the most recent action without removing it.
func (m *Manager) Peek() (Action, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.stack) == 0 {
		return Action{}, false
	}
	return m.stack[len(m.stack)-1], true
}

func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stack = nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stack)
}

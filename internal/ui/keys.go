/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui is the interactive terminal editor over one session.
package ui

import (
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Prev     key.Binding
	Next     key.Binding
	NewPage  key.Binding
	Delete   key.Binding
	Undo     key.Binding
	Chapter  key.Binding
	Title    key.Binding
	Write    key.Binding
	Annotate key.Binding
	Edit     key.Binding
	Unmark   key.Binding
	Split    key.Binding
	Retype   key.Binding
	Filter   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Prev:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev page")),
		Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next page")),
		NewPage:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new page")),
		Delete:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete page")),
		Undo:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Chapter:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "chapter")),
		Title:    key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "title")),
		Write:    key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "write entry")),
		Annotate: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "annotate")),
		Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit group")),
		Unmark:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "remove group")),
		Split:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "split entry")),
		Retype:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "entry type")),
		Filter:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter pages")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.NewPage, k.Delete, k.Undo, k.Annotate, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Prev, k.Next, k.NewPage, k.Delete, k.Undo},
		{k.Chapter, k.Title, k.Write, k.Split, k.Retype},
		{k.Annotate, k.Edit, k.Unmark, k.Filter},
		{k.Help, k.Quit},
	}
}

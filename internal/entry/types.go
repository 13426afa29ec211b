/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package entry models a page's content as an ordered sequence of typed
// entries stored as an HTML fragment. Each entry is addressable by a stable id
// and exposes a plain-text projection used for annotation offsets.
package entry

import (
	"github.com/google/uuid"
)

// Type tags an entry block.
type Type string

const (
	Narration Type = "narration"
	Dialogue  Type = "dialogue"
	SFX       Type = "sfx"
	Thought   Type = "thought"
)

// Types lists every entry type in menu order.
var Types = []Type{Narration, Dialogue, SFX, Thought}

// NormalizeType maps unknown tags to Narration.
func NormalizeType(s string) Type {
	switch t := Type(s); t {
	case Narration, Dialogue, SFX, Thought:
		return t
	}
	return Narration
}

// Markup classes and attributes shared with the rendering layer.
const (
	ClassEntry            = "entry"
	ClassInner            = "entry-inner"
	ClassTypePrefix       = "entry--"
	ClassHighlight        = "annotation-highlight"
	ClassHighlightText    = "annotation-highlight__text"
	ClassHighlightContent = "annotation-highlight__content"
	ClassFurigana         = "annotation-furigana"

	AttrType         = "data-type"
	AttrEntryID      = "data-entry-id"
	AttrAnnotationID = "data-annotation-id"
	AttrTooltip      = "data-tooltip"
)

// NewID returns a fresh entry id.
func NewID() string { return "entry_" + uuid.Must(uuid.NewV7()).String() }

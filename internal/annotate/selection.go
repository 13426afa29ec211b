/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package annotate

import (
	"strings"
	"unicode"

	"shiori/internal/entry"
)

// SelectionFromRange maps a boundary-point range over doc (for example the
// rendered, decorated tree) onto entry-relative offsets. The range is clamped
// to the entry holding its start and trimmed of surrounding whitespace. ok is
// false when nothing annotatable is selected.
func SelectionFromRange(doc *entry.Document, start, end entry.Position) (Selection, bool) {
	e := doc.EntryOf(start.Node)
	if e == nil {
		return Selection{}, false
	}
	s, ok := entry.Measure(e.Inner, start, entry.IsDecoration)
	if !ok {
		return Selection{}, false
	}
	plain := e.Text()
	total := entry.RuneLen(plain)
	eoff := total
	if other := doc.EntryOf(end.Node); other != nil && other.ID == e.ID {
		if v, ok := entry.Measure(e.Inner, end, entry.IsDecoration); ok {
			eoff = v
		}
	}
	if eoff < s {
		s, eoff = eoff, s
	}
	runes := []rune(plain)
	for s < eoff && unicode.IsSpace(runes[s]) {
		s++
	}
	for eoff > s && unicode.IsSpace(runes[eoff-1]) {
		eoff--
	}
	if s >= eoff {
		return Selection{}, false
	}
	text := string(runes[s:eoff])
	if strings.TrimSpace(text) == "" {
		return Selection{}, false
	}
	return Selection{EntryID: e.ID, Start: s, End: eoff, Text: text}, true
}

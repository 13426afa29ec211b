/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import "image/color"

// TextStyle is how one kind of entry is drawn.
type TextStyle struct {
	Name   string
	Color  color.RGBA
	Indent float32 // px
	// Open and Close wrap the entry text, e.g. quotation brackets.
	Open, Close string
}

var builtinStyles = map[string]TextStyle{
	"narration": {Name: "narration", Color: color.RGBA{A: 255}},
	"dialogue":  {Name: "dialogue", Color: color.RGBA{A: 255}, Indent: 12, Open: "「", Close: "」"},
	"sfx":       {Name: "sfx", Color: color.RGBA{R: 176, G: 32, B: 32, A: 255}},
	"thought":   {Name: "thought", Color: color.RGBA{R: 96, G: 96, B: 96, A: 255}, Indent: 12, Open: "（", Close: "）"},
}

// GetStyle returns the style for an entry type name.
func GetStyle(name string) (TextStyle, bool) { s, ok := builtinStyles[name]; return s, ok }

// StyleFor is GetStyle with narration as the fallback.
func StyleFor(name string) TextStyle {
	if s, ok := builtinStyles[name]; ok {
		return s
	}
	return builtinStyles["narration"]
}

// ListStyles lists the style names in stable order.
func ListStyles() []string { return []string{"narration", "dialogue", "sfx", "thought"} }

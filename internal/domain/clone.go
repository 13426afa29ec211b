/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}
	cp := *p
	cp.Annotations = append([]Annotation(nil), p.Annotations...)
	cp.SuppressedGlossary = append([]string(nil), p.SuppressedGlossary...)
	if cp.Annotations == nil {
		cp.Annotations = []Annotation{}
	}
	if cp.SuppressedGlossary == nil {
		cp.SuppressedGlossary = []string{}
	}
	return &cp
}

// Clone returns a deep copy of the book including pages and glossary.
func (b *Book) Clone() *Book {
	if b == nil {
		return nil
	}
	cp := *b
	cp.Pages = make([]*Page, len(b.Pages))
	for i, p := range b.Pages {
		cp.Pages[i] = p.Clone()
	}
	cp.Glossary = make(map[string]GlossaryEntry, len(b.Glossary))
	for k, v := range b.Glossary {
		cp.Glossary[k] = v
	}
	cp.LastPageByChapter = make(map[string]int, len(b.LastPageByChapter))
	for k, v := range b.LastPageByChapter {
		cp.LastPageByChapter[k] = v
	}
	return &cp
}

// Clone returns a deep copy of the library.
func (l Library) Clone() Library {
	out := Library{Shelves: make([]*Shelf, len(l.Shelves))}
	for i, s := range l.Shelves {
		cs := *s
		cs.Books = make([]*Book, len(s.Books))
		for j, b := range s.Books {
			cs.Books[j] = b.Clone()
		}
		out.Shelves[i] = &cs
	}
	return out
}

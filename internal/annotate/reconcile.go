/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package annotate

import (
	"shiori/internal/domain"
	"shiori/internal/entry"
)

// Report summarizes a Reconcile pass.
type Report struct {
	Kept    int
	Moved   int
	Dropped int
}

// Changed reports whether the annotation list was modified.
func (r Report) Changed() bool { return r.Moved > 0 || r.Dropped > 0 }

// Reconcile revalidates the page's annotations against edited content. Every
// annotation whose range still covers its cached text stays. The others are
// then moved to the occurrence of their text closest to the old start that
// does not collide with anything kept, or dropped when there is none or the
// entry is gone. List order is preserved.
func Reconcile(p *domain.Page, doc *entry.Document) Report {
	var r Report
	placed := make([]bool, len(p.Annotations))
	var kept []domain.Annotation
	for i, a := range p.Annotations {
		e := doc.Entry(a.EntryID)
		if e == nil || a.Text == "" {
			continue
		}
		plain := e.Text()
		if a.Start >= 0 && a.Start < a.End && a.End <= entry.RuneLen(plain) &&
			entry.SliceRunes(plain, a.Start, a.End) == a.Text &&
			!Conflicts(kept, a.EntryID, a.Start, a.End, "") {
			kept = append(kept, a)
			placed[i] = true
			r.Kept++
		}
	}

	out := make([]domain.Annotation, 0, len(p.Annotations))
	for i, a := range p.Annotations {
		if placed[i] {
			out = append(out, a)
			continue
		}
		e := doc.Entry(a.EntryID)
		if e == nil || a.Text == "" {
			r.Dropped++
			continue
		}
		best := -1
		n := entry.RuneLen(a.Text)
		for _, pos := range IndexAll(e.Text(), a.Text, false) {
			if Conflicts(kept, a.EntryID, pos, pos+n, "") {
				continue
			}
			if best < 0 || abs(pos-a.Start) < abs(best-a.Start) {
				best = pos
			}
		}
		if best < 0 {
			r.Dropped++
			continue
		}
		a.Start, a.End = best, best+n
		kept = append(kept, a)
		out = append(out, a)
		r.Moved++
	}
	p.Annotations = out
	return r
}

// MoveForSplit re-anchors annotations after entry from was split at offset
// into a new entry to. Annotations after the caret follow the text, ones
// spanning it are dropped.
func MoveForSplit(p *domain.Page, from, to string, offset int) int {
	dropped := 0
	kept := p.Annotations[:0]
	for _, a := range p.Annotations {
		if a.EntryID == from {
			switch {
			case a.End <= offset:
			case a.Start >= offset:
				a.EntryID = to
				a.Start -= offset
				a.End -= offset
			default:
				dropped++
				continue
			}
		}
		kept = append(kept, a)
	}
	p.Annotations = kept
	return dropped
}

// IndexAll returns the code-point offsets of needle in haystack. When
// overlapping is false the scan resumes after each match.
func IndexAll(haystack, needle string, overlapping bool) []int {
	if haystack == "" || needle == "" {
		return nil
	}
	h := []rune(haystack)
	nd := []rune(needle)
	var out []int
	for i := 0; i+len(nd) <= len(h); {
		if equalRunes(h[i:i+len(nd)], nd) {
			out = append(out, i)
			if overlapping {
				i++
			} else {
				i += len(nd)
			}
			continue
		}
		i++
	}
	return out
}

func equalRunes(a, b []rune) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

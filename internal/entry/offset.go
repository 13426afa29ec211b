/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entry

import (
	"strings"

	"golang.org/x/net/html"
)

// Skip marks subtrees excluded from the plain-text projection.
type Skip func(*html.Node) bool

// IsDecoration matches injected reading glyphs. Their text never counts
// toward offsets.
func IsDecoration(n *html.Node) bool { return HasClass(n, ClassFurigana) }

// Position is a DOM-style boundary point: inside a text node Offset counts
// code points; inside an element it is a child index.
type Position struct {
	Node   *html.Node
	Offset int
}

// walkText visits accepted text nodes under root in document order until fn
// returns false.
func walkText(root *html.Node, skip Skip, fn func(*html.Node) bool) bool {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if skip != nil && skip(c) {
			continue
		}
		switch c.Type {
		case html.TextNode:
			if !fn(c) {
				return false
			}
		case html.ElementNode:
			if !walkText(c, skip, fn) {
				return false
			}
		}
	}
	return true
}

// PlainText concatenates the accepted text under root.
func PlainText(root *html.Node, skip Skip) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	walkText(root, skip, func(t *html.Node) bool {
		b.WriteString(t.Data)
		return true
	})
	return b.String()
}

// skippedAncestor returns the outermost skipped node between n and root.
func skippedAncestor(root, n *html.Node, skip Skip) *html.Node {
	if skip == nil {
		return nil
	}
	var out *html.Node
	for p := n; p != nil && p != root; p = p.Parent {
		if skip(p) {
			out = p
		}
	}
	return out
}

// Measure converts a boundary point under root into a plain-text offset.
// A point inside a skipped subtree measures as the text preceding it.
func Measure(root *html.Node, p Position, skip Skip) (int, bool) {
	if root == nil || p.Node == nil || !isAncestor(root, p.Node) {
		return 0, false
	}
	// stop before this node, or after the subtree of end.
	var stop, end *html.Node
	extra := 0
	switch {
	case skippedAncestor(root, p.Node, skip) != nil:
		stop = skippedAncestor(root, p.Node, skip)
	case p.Node.Type == html.TextNode:
		stop = p.Node
		extra = clamp(p.Offset, 0, RuneLen(p.Node.Data))
	default:
		kids := children(p.Node)
		if p.Offset < 0 {
			p.Offset = 0
		}
		if p.Offset < len(kids) {
			stop = kids[p.Offset]
		} else {
			end = p.Node
		}
	}

	total := 0
	done := false
	var visit func(n *html.Node)
	visit = func(n *html.Node) {
		for c := n.FirstChild; c != nil && !done; c = c.NextSibling {
			if c == stop {
				done = true
				return
			}
			if skip != nil && skip(c) {
				continue
			}
			if c.Type == html.TextNode {
				total += RuneLen(c.Data)
				continue
			}
			visit(c)
			if c == end {
				done = true
			}
		}
	}
	if end == root {
		total = RuneLen(PlainText(root, skip))
	} else {
		visit(root)
	}
	return total + extra, true
}

// Locate finds the boundary point at target. The first accepted text node
// whose cumulative length reaches target wins, so a boundary between two
// nodes resolves to the end of the earlier one. Targets past the end clamp to
// the end of the last text node. ok is false when root has no text nodes.
func Locate(root *html.Node, target int, skip Skip) (Position, bool) {
	if root == nil {
		return Position{}, false
	}
	if target < 0 {
		target = 0
	}
	remaining := target
	var found, last *html.Node
	walkText(root, skip, func(t *html.Node) bool {
		l := RuneLen(t.Data)
		if l == 0 {
			if last == nil {
				last = t
			}
			return true
		}
		last = t
		if remaining <= l {
			found = t
			return false
		}
		remaining -= l
		return true
	})
	if found != nil {
		return Position{Node: found, Offset: remaining}, true
	}
	if last != nil {
		return Position{Node: last, Offset: RuneLen(last.Data)}, true
	}
	return Position{}, false
}

// nextText returns the first accepted, non-empty text node after t in
// document order, staying under root.
func nextText(root, t *html.Node, skip Skip) *html.Node {
	passed := false
	var out *html.Node
	walkText(root, skip, func(n *html.Node) bool {
		if passed && n.Data != "" {
			out = n
			return false
		}
		if n == t {
			passed = true
		}
		return true
	})
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

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
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func classes(n *html.Node) []string { return strings.Fields(attr(n, "class")) }

// HasClass reports whether n is an element carrying class cls.
func HasClass(n *html.Node, cls string) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	for _, c := range classes(n) {
		if c == cls {
			return true
		}
	}
	return false
}

func setClasses(n *html.Node, cs []string) { setAttr(n, "class", strings.Join(cs, " ")) }

// Element builds a detached element node.
func Element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

// Text builds a detached text node.
func Text(s string) *html.Node { return &html.Node{Type: html.TextNode, Data: s} }

func shallowClone(n *html.Node) *html.Node {
	return &html.Node{Type: n.Type, DataAtom: n.DataAtom, Data: n.Data, Namespace: n.Namespace, Attr: append([]html.Attribute(nil), n.Attr...)}
}

func deepClone(n *html.Node) *html.Node {
	c := shallowClone(n)
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(deepClone(ch))
	}
	return c
}

func detach(n *html.Node) *html.Node {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
	return n
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func removeChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// insertAfter places n right after ref under ref's parent.
func insertAfter(ref, n *html.Node) {
	ref.Parent.InsertBefore(n, ref.NextSibling)
}

// unwrap replaces n by its children.
func unwrap(n *html.Node) {
	p := n.Parent
	if p == nil {
		return
	}
	for _, c := range children(n) {
		n.RemoveChild(c)
		p.InsertBefore(c, n)
	}
	p.RemoveChild(n)
}

// mergeText joins adjacent text nodes and drops empty ones below n.
func mergeText(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.TextNode && c.Data == "":
			n.RemoveChild(c)
		case c.Type == html.TextNode && next != nil && next.Type == html.TextNode:
			c.Data += next.Data
			n.RemoveChild(next)
			continue
		case c.Type == html.ElementNode:
			mergeText(c)
		}
		c = next
	}
}

// splitText cuts a text node at rune offset off and returns the node that
// starts at off. When off is 0 that is t itself; when off is past the end a
// new empty node is inserted after t.
func splitText(t *html.Node, off int) *html.Node {
	if off <= 0 {
		return t
	}
	b := byteOffset(t.Data, off)
	right := Text(t.Data[b:])
	t.Data = t.Data[:b]
	insertAfter(t, right)
	return right
}

func byteOffset(s string, runes int) int {
	if runes <= 0 {
		return 0
	}
	i := 0
	for b := range s {
		if i == runes {
			return b
		}
		i++
	}
	return len(s)
}

// RuneLen counts code points; all offsets are in code points.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }

// SliceRunes returns s[start:end] in code points, clamped to bounds.
func SliceRunes(s string, start, end int) string {
	n := RuneLen(s)
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start >= end {
		return ""
	}
	return s[byteOffset(s, start):byteOffset(s, end)]
}

func isAncestor(anc, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == anc {
			return true
		}
	}
	return false
}

func commonAncestor(a, b *html.Node) *html.Node {
	seen := map[*html.Node]bool{}
	for p := a; p != nil; p = p.Parent {
		seen[p] = true
	}
	for p := b; p != nil; p = p.Parent {
		if seen[p] {
			return p
		}
	}
	return nil
}

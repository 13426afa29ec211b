/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entry

import "golang.org/x/net/html"

// Wrap surrounds the plain-text range [start,end) of inner with markup from
// build. build returns the outer wrapper and the node receiving the wrapped
// content (the wrapper itself or one of its descendants). Elements crossing
// a range boundary are split so the wrapper nests cleanly. It returns false
// when the range cannot be mapped onto the tree.
func Wrap(inner *html.Node, start, end int, build func() (outer, content *html.Node)) bool {
	if inner == nil || start < 0 || end <= start {
		return false
	}
	if end > RuneLen(PlainText(inner, IsDecoration)) {
		return false
	}
	sp, ok := Locate(inner, start, IsDecoration)
	if !ok {
		return false
	}
	ep, ok := Locate(inner, end, IsDecoration)
	if !ok {
		return false
	}
	// a start sitting at the end of a node belongs to the next one
	if sp.Offset >= RuneLen(sp.Node.Data) {
		n := nextText(inner, sp.Node, IsDecoration)
		if n == nil {
			return false
		}
		sp = Position{Node: n, Offset: 0}
	}

	// cut the end first so the start node keeps its offsets
	if ep.Offset < RuneLen(ep.Node.Data) {
		splitText(ep.Node, ep.Offset)
	}
	first, last := sp.Node, ep.Node
	if sp.Offset > 0 {
		first = splitText(sp.Node, sp.Offset)
		if sp.Node == ep.Node {
			last = first
		}
	}

	ca := first.Parent
	if first != last {
		ca = commonAncestor(first, last)
	}
	if ca == nil || !isAncestor(inner, ca) {
		return false
	}
	top := isolate(first, ca, true)
	bottom := isolate(last, ca, false)

	outer, content := build()
	ca.InsertBefore(outer, top)
	for n := top; n != nil; {
		next := n.NextSibling
		ca.RemoveChild(n)
		content.AppendChild(n)
		if n == bottom {
			break
		}
		n = next
	}
	return true
}

// isolate splits the ancestors of n below ca so that n's branch starts
// (leading) or ends (trailing) the range, and returns the child of ca holding n.
func isolate(n, ca *html.Node, leading bool) *html.Node {
	cur := n
	for cur.Parent != ca {
		p := cur.Parent
		if leading && cur.PrevSibling != nil {
			left := shallowClone(p)
			for c := p.FirstChild; c != cur; {
				next := c.NextSibling
				p.RemoveChild(c)
				left.AppendChild(c)
				c = next
			}
			p.Parent.InsertBefore(left, p)
		}
		if !leading && cur.NextSibling != nil {
			right := shallowClone(p)
			for c := cur.NextSibling; c != nil; {
				next := c.NextSibling
				p.RemoveChild(c)
				right.AppendChild(c)
				c = next
			}
			insertAfter(p, right)
		}
		cur = p
	}
	return cur
}

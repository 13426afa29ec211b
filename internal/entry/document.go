/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package entry

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Entry is a live view of one entry block inside a Document.
type Entry struct {
	ID    string
	Type  Type
	Node  *html.Node // outer block
	Inner *html.Node // text container
}

// Text is the entry's plain text with decoration excluded.
func (e *Entry) Text() string { return PlainText(e.Inner, IsDecoration) }

// Document is a parsed content blob. The zero value is not usable; use Parse
// or New.
type Document struct {
	root  *html.Node
	newID func() string
}

// Option configures a Document.
type Option func(*Document)

// WithIDs overrides entry id generation (tests).
func WithIDs(fn func() string) Option { return func(d *Document) { d.newID = fn } }

// New returns a document holding one empty narration entry.
func New(opts ...Option) *Document {
	d := newDoc(opts)
	d.Normalize()
	return d
}

func newDoc(opts []Option) *Document {
	d := &Document{root: Element(atom.Div), newID: NewID}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Parse reads a content blob and normalizes it into top-level entries.
func Parse(content string, opts ...Option) (*Document, error) {
	d := newDoc(opts)
	ctx := Element(atom.Body)
	nodes, err := html.ParseFragment(strings.NewReader(content), ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		d.root.AppendChild(detach(n))
	}
	d.Normalize()
	return d, nil
}

// Root exposes the container holding the entry blocks.
func (d *Document) Root() *html.Node { return d.root }

// Clone deep-copies the document.
func (d *Document) Clone() *Document {
	return &Document{root: deepClone(d.root), newID: d.newID}
}

// HTML serializes the entry blocks.
func (d *Document) HTML() string {
	var buf bytes.Buffer
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// Entries returns the entries in reading order.
func (d *Document) Entries() []*Entry {
	var out []*Entry
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if e := asEntry(c); e != nil {
			out = append(out, e)
		}
	}
	return out
}

// Entry finds an entry by id.
func (d *Document) Entry(id string) *Entry {
	if id == "" {
		return nil
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if HasClass(c, ClassEntry) && attr(c, AttrEntryID) == id {
			return asEntry(c)
		}
	}
	return nil
}

// EntryOf returns the entry containing n.
func (d *Document) EntryOf(n *html.Node) *Entry {
	for p := n; p != nil; p = p.Parent {
		if p.Parent == d.root {
			return asEntry(p)
		}
	}
	return nil
}

// Text returns the page text with entries separated by newlines.
func (d *Document) Text() string {
	var parts []string
	for _, e := range d.Entries() {
		parts = append(parts, e.Text())
	}
	return strings.Join(parts, "\n")
}

// IsBlank reports whether no entry carries visible text.
func (d *Document) IsBlank() bool { return strings.TrimSpace(d.Text()) == "" }

func asEntry(n *html.Node) *Entry {
	if !HasClass(n, ClassEntry) {
		return nil
	}
	e := &Entry{ID: attr(n, AttrEntryID), Type: NormalizeType(attr(n, AttrType)), Node: n}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if HasClass(c, ClassInner) {
			e.Inner = c
			break
		}
	}
	if e.Inner == nil {
		e.Inner = n
	}
	return e
}

// Normalize enforces the document shape: only entry blocks at the top level,
// each with a unique id, a known type and an inner container; at least one
// entry overall.
func (d *Document) Normalize() {
	seen := map[string]bool{}
	for _, c := range children(d.root) {
		switch {
		case c.Type == html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				d.root.InsertBefore(d.block(Narration, c.Data), c)
			}
			d.root.RemoveChild(c)
		case HasClass(c, ClassEntry):
			d.fixEntry(c, seen)
		case c.Type == html.ElementNode:
			if txt := PlainText(c, IsDecoration); strings.TrimSpace(txt) != "" {
				d.root.InsertBefore(d.block(Narration, strings.TrimSpace(txt)), c)
			}
			d.root.RemoveChild(c)
		default:
			d.root.RemoveChild(c)
		}
	}
	if d.root.FirstChild == nil {
		d.root.AppendChild(d.block(Narration, ""))
	}
	// ids for blocks created above
	for _, c := range children(d.root) {
		if attr(c, AttrEntryID) == "" {
			d.fixEntry(c, seen)
		}
	}
}

func (d *Document) fixEntry(n *html.Node, seen map[string]bool) {
	id := attr(n, AttrEntryID)
	if id == "" || seen[id] {
		id = d.newID()
		setAttr(n, AttrEntryID, id)
	}
	seen[id] = true
	t := attr(n, AttrType)
	if t == "" {
		for _, c := range classes(n) {
			if strings.HasPrefix(c, ClassTypePrefix) {
				t = strings.TrimPrefix(c, ClassTypePrefix)
			}
		}
	}
	setType(n, NormalizeType(t))

	var inner *html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if HasClass(c, ClassInner) {
			inner = c
			break
		}
	}
	if inner == nil {
		inner = Element(atom.Div, html.Attribute{Key: "class", Val: ClassInner})
		for _, c := range children(n) {
			n.RemoveChild(c)
			inner.AppendChild(c)
		}
		n.AppendChild(inner)
	}
	if inner.FirstChild == nil {
		inner.AppendChild(Element(atom.Br))
	}
}

func setType(n *html.Node, t Type) {
	kept := []string{ClassEntry}
	for _, c := range classes(n) {
		if c == ClassEntry || strings.HasPrefix(c, ClassTypePrefix) {
			continue
		}
		kept = append(kept, c)
	}
	kept = append(kept, ClassTypePrefix+string(t))
	setClasses(n, kept)
	setAttr(n, AttrType, string(t))
}

// block creates an entry block without id; Normalize assigns it.
func (d *Document) block(t Type, text string) *html.Node {
	n := Element(atom.Div,
		html.Attribute{Key: "class", Val: ClassEntry + " " + ClassTypePrefix + string(t)},
		html.Attribute{Key: AttrType, Val: string(t)},
	)
	inner := Element(atom.Div, html.Attribute{Key: "class", Val: ClassInner})
	if text == "" {
		inner.AppendChild(Element(atom.Br))
	} else {
		inner.AppendChild(Text(text))
	}
	n.AppendChild(inner)
	return n
}

// Append adds an entry with plain text at the end of the document. A document
// holding only its single blank placeholder entry is replaced.
func (d *Document) Append(t Type, text string) *Entry {
	if es := d.Entries(); len(es) == 1 && es[0].Text() == "" && d.root.FirstChild == d.root.LastChild {
		d.root.RemoveChild(es[0].Node)
	}
	n := d.block(NormalizeType(string(t)), text)
	setAttr(n, AttrEntryID, d.newID())
	d.root.AppendChild(n)
	return asEntry(n)
}

// Retype changes the type of every listed entry in place and returns how
// many entries were touched. Ids and content are preserved.
func (d *Document) Retype(ids []string, t Type) int {
	t = NormalizeType(string(t))
	n := 0
	for _, id := range ids {
		if e := d.Entry(id); e != nil {
			setType(e.Node, t)
			n++
		}
	}
	return n
}

// Split cuts entry id at plain-text offset into two entries of the same
// type. Content after the caret moves verbatim, nested formatting included,
// into a new entry inserted right after. It returns the new entry.
func (d *Document) Split(id string, offset int) (*Entry, bool) {
	e := d.Entry(id)
	if e == nil || e.Inner == e.Node {
		return nil, false
	}
	var start *html.Node
	if offset <= 0 {
		start = e.Inner.FirstChild
	} else if pos, ok := Locate(e.Inner, offset, IsDecoration); ok {
		start = splitText(pos.Node, pos.Offset)
	}
	tail := Element(atom.Div, html.Attribute{Key: "class", Val: ClassInner})
	if start != nil {
		tail = extractFrom(e.Inner, start)
	}
	mergeText(e.Inner)
	mergeText(tail)
	for _, part := range []*html.Node{e.Inner, tail} {
		if PlainText(part, IsDecoration) == "" {
			removeChildren(part)
			part.AppendChild(Element(atom.Br))
		}
	}

	n := shallowClone(e.Node)
	setAttr(n, AttrEntryID, d.newID())
	n.AppendChild(tail)
	insertAfter(e.Node, n)
	return asEntry(n), true
}

// extractFrom moves start and everything after it (within container) into a
// shallow clone of container, cloning the ancestors in between so nested
// formatting is kept on both sides.
func extractFrom(container, start *html.Node) *html.Node {
	var carried *html.Node
	cur, ref := start.Parent, start
	for cur != nil {
		clone := shallowClone(cur)
		if carried != nil {
			clone.AppendChild(carried)
		}
		for n := ref; n != nil; {
			next := n.NextSibling
			cur.RemoveChild(n)
			clone.AppendChild(n)
			n = next
		}
		if cur == container {
			return clone
		}
		carried = clone
		ref = cur.NextSibling
		cur = cur.Parent
	}
	return shallowClone(container)
}

// StripDecorations removes highlight wrappers and reading glyphs, leaving the
// annotated text in place.
func (d *Document) StripDecorations() {
	stripDecorations(d.root)
	mergeText(d.root)
}

func stripDecorations(n *html.Node) {
	for _, c := range children(n) {
		if c.Type != html.ElementNode {
			continue
		}
		if HasClass(c, ClassFurigana) {
			n.RemoveChild(c)
			continue
		}
		stripDecorations(c)
		if HasClass(c, ClassHighlightText) || HasClass(c, ClassHighlightContent) || HasClass(c, ClassHighlight) {
			unwrap(c)
		}
	}
}

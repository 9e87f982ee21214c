// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mjml provides a mutable, addressable tree over MJML markup.
// Nodes are addressed by their data-id attribute; the tree serializes back
// to MJML deterministically so the structured view and the source string
// never drift apart.
package mjml

import (
	"strings"
)

// Pseudo tags used for non-element nodes.
const (
	TextTag    = "#text"
	CommentTag = "#comment"
)

// IDAttr is the attribute that makes a node addressable by edit operations.
const IDAttr = "data-id"

// endingTags hold raw HTML content instead of MJML children.
var endingTags = map[string]bool{
	"mj-text":            true,
	"mj-button":          true,
	"mj-raw":             true,
	"mj-table":           true,
	"mj-navbar-link":     true,
	"mj-accordion-title": true,
	"mj-accordion-text":  true,
	"mj-social-element":  true,
	"mj-title":           true,
	"mj-preview":         true,
	"mj-style":           true,
	"mj-html-attribute":  true,
}

// IsEndingTag reports whether tag keeps raw HTML content.
func IsEndingTag(tag string) bool {
	return endingTags[strings.ToLower(tag)]
}

// Attr is a single attribute. Values are stored unescaped.
type Attr struct {
	Name  string
	Value string
}

// Node is an element, text run or comment in an MJML document.
type Node struct {
	Tag      string
	Attrs    []Attr
	Children []*Node
	// Content is the raw inner markup of ending tags, or the text of
	// text and comment nodes.
	Content string

	parent *Node
}

// NewElement creates a detached element node.
func NewElement(tag string, attrs ...Attr) *Node {
	return &Node{Tag: tag, Attrs: attrs}
}

// IsElement reports whether n is a real element (not text or comment).
func (n *Node) IsElement() bool {
	return n.Tag != TextTag && n.Tag != CommentTag
}

// Parent returns the node's parent, or nil for a root or detached node.
func (n *Node) Parent() *Node {
	return n.parent
}

// Attr returns the value of the named attribute.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// SetAttr sets an attribute, keeping the position of an existing one.
func (n *Node) SetAttr(name, value string) {
	for i := range n.Attrs {
		if n.Attrs[i].Name == name {
			n.Attrs[i].Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, Attr{Name: name, Value: value})
}

// ID returns the node's data-id, or "" when it has none.
func (n *Node) ID() string {
	v, _ := n.Attr(IDAttr)
	return v
}

// AppendChild attaches child as the last child of n.
func (n *Node) AppendChild(child *Node) {
	child.parent = n
	n.Children = append(n.Children, child)
}

// Walk visits n and its descendants depth-first in document order.
// Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Find returns the node with the given data-id in n's subtree, or nil.
func (n *Node) Find(id string) *Node {
	if id == "" {
		return nil
	}
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.IsElement() && c.ID() == id {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindTag returns the first node (n included) with the given tag.
func (n *Node) FindTag(tag string) *Node {
	var found *Node
	n.Walk(func(c *Node) bool {
		if found != nil {
			return false
		}
		if c.Tag == tag {
			found = c
			return false
		}
		return true
	})
	return found
}

// FindAll returns every node in n's subtree with the given tag.
func (n *Node) FindAll(tag string) []*Node {
	var out []*Node
	n.Walk(func(c *Node) bool {
		if c.Tag == tag {
			out = append(out, c)
		}
		return true
	})
	return out
}

// Index maps every data-id in the subtree to its node. Ids that appear
// more than once are returned in dups, in document order.
func (n *Node) Index() (ids map[string]*Node, dups []string) {
	ids = make(map[string]*Node)
	n.Walk(func(c *Node) bool {
		if !c.IsElement() {
			return true
		}
		id := c.ID()
		if id == "" {
			return true
		}
		if _, ok := ids[id]; ok {
			dups = append(dups, id)
			return true
		}
		ids[id] = c
		return true
	})
	return ids, dups
}

// IDs returns the data-ids of the subtree in document order.
func (n *Node) IDs() []string {
	var out []string
	n.Walk(func(c *Node) bool {
		if c.IsElement() && c.ID() != "" {
			out = append(out, c.ID())
		}
		return true
	})
	return out
}

// Body returns the mj-body element of a document, or nil.
func (n *Node) Body() *Node {
	return n.FindTag("mj-body")
}

// sectionTags are the top-level blocks that make up a plan's sections.
var sectionTags = map[string]bool{
	"mj-section": true,
	"mj-wrapper": true,
	"mj-hero":    true,
	"mj-raw":     true,
}

// IsSectionTag reports whether tag can be a top-level section.
func IsSectionTag(tag string) bool {
	return sectionTags[tag]
}

// Sections returns the top-level blocks under mj-body in order.
func (n *Node) Sections() []*Node {
	body := n.Body()
	if body == nil {
		return nil
	}
	var out []*Node
	for _, c := range body.Children {
		if c.IsElement() && IsSectionTag(c.Tag) {
			out = append(out, c)
		}
	}
	return out
}

// index returns the position of n among its parent's children, or -1.
func (n *Node) index() int {
	if n.parent == nil {
		return -1
	}
	for i, c := range n.parent.Children {
		if c == n {
			return i
		}
	}
	return -1
}

// InsertBefore attaches sibling directly before n.
func (n *Node) InsertBefore(sibling *Node) bool {
	i := n.index()
	if i < 0 {
		return false
	}
	n.parent.insertAt(i, sibling)
	return true
}

// InsertAfter attaches sibling directly after n.
func (n *Node) InsertAfter(sibling *Node) bool {
	i := n.index()
	if i < 0 {
		return false
	}
	n.parent.insertAt(i+1, sibling)
	return true
}

func (n *Node) insertAt(i int, child *Node) {
	child.parent = n
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
}

// Remove detaches n from its parent.
func (n *Node) Remove() bool {
	i := n.index()
	if i < 0 {
		return false
	}
	p := n.parent
	p.Children = append(p.Children[:i], p.Children[i+1:]...)
	n.parent = nil
	return true
}

// ReplaceWith puts other in n's position and detaches n.
func (n *Node) ReplaceWith(other *Node) bool {
	i := n.index()
	if i < 0 {
		return false
	}
	other.parent = n.parent
	n.parent.Children[i] = other
	n.parent = nil
	return true
}

// ElementSiblings returns the element children of n's parent, n included.
func (n *Node) ElementSiblings() []*Node {
	if n.parent == nil {
		return []*Node{n}
	}
	var out []*Node
	for _, c := range n.parent.Children {
		if c.IsElement() {
			out = append(out, c)
		}
	}
	return out
}

// MoveTo moves n to position index among its element siblings.
func (n *Node) MoveTo(index int) bool {
	sibs := n.ElementSiblings()
	if n.parent == nil || index < 0 || index >= len(sibs) {
		return false
	}
	p := n.parent
	n.Remove()

	// Rebuild the position in terms of the full child list, which may
	// also contain text and comment nodes.
	remaining := 0
	for i, c := range p.Children {
		if !c.IsElement() {
			continue
		}
		if remaining == index {
			p.insertAt(i, n)
			return true
		}
		remaining++
	}
	p.AppendChild(n)
	return true
}

// Clone returns a detached deep copy of n.
func (n *Node) Clone() *Node {
	c := &Node{Tag: n.Tag, Content: n.Content}
	if len(n.Attrs) > 0 {
		c.Attrs = make([]Attr, len(n.Attrs))
		copy(c.Attrs, n.Attrs)
	}
	for _, child := range n.Children {
		c.AppendChild(child.Clone())
	}
	return c
}

// InnerText returns the content with markup tags stripped, for ending tags
// and text nodes.
func (n *Node) InnerText() string {
	var b strings.Builder
	inTag := false
	for _, r := range n.Content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

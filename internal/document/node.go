// Package document encodes a note's editable state into the single content
// string persisted on a Note, and decodes it back.
//
// Content is held as a small markup tree. Parsed nodes keep their original
// bytes so that an unmodified tree renders back to exactly the input.
package document

import (
	"html"
	"strings"
)

// NodeType discriminates Node variants.
type NodeType int

const (
	// TextNode holds character data.
	TextNode NodeType = iota
	// ElementNode is a tag with attributes and children.
	ElementNode
	// RawNode is markup passed through verbatim: comments, doctypes and
	// end tags that close nothing.
	RawNode
)

// Attr is one element attribute. Val is unescaped.
type Attr struct {
	Key string
	Val string
}

// Node is one node of a markup tree.
type Node struct {
	Type     NodeType
	Tag      string
	Attrs    []Attr
	Children []*Node
	// Data is the unescaped text of a TextNode or the markup of a RawNode.
	Data string

	raw    string // original start tag or text bytes
	endRaw string // original end tag bytes, empty when never closed
}

var voidElements = map[string]bool{
	"area": true, "base": true, "br": true, "col": true, "embed": true,
	"hr": true, "img": true, "input": true, "link": true, "meta": true,
	"source": true, "track": true, "wbr": true,
}

// NewElement returns an element that renders with freshly built tags.
func NewElement(tag string, attrs []Attr, children ...*Node) *Node {
	return &Node{Type: ElementNode, Tag: tag, Attrs: attrs, Children: children}
}

// NewText returns a text node; data is escaped when rendered.
func NewText(data string) *Node {
	return &Node{Type: TextNode, Data: data}
}

// Attr returns the value of the attribute named key.
func (n *Node) Attr(key string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether the class attribute lists name.
func (n *Node) HasClass(name string) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == name {
			return true
		}
	}
	return false
}

// Text returns the concatenated character data below n.
func (n *Node) Text() string {
	var b strings.Builder
	n.appendText(&b)
	return b.String()
}

func (n *Node) appendText(b *strings.Builder) {
	switch n.Type {
	case TextNode:
		b.WriteString(n.Data)
	case ElementNode:
		for _, c := range n.Children {
			c.appendText(b)
		}
	}
}

// Walk calls fn for every node in pre-order. Returning false skips the
// node's children.
func Walk(nodes []*Node, fn func(*Node) bool) {
	for _, n := range nodes {
		if fn(n) && n.Type == ElementNode {
			Walk(n.Children, fn)
		}
	}
}

// Rewrite returns nodes with every node for which fn reports ok replaced by
// repl. Replaced nodes are not descended into. Children of kept elements are
// rewritten in place.
func Rewrite(nodes []*Node, fn func(*Node) (repl []*Node, ok bool)) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if repl, ok := fn(n); ok {
			out = append(out, repl...)
			continue
		}
		if n.Type == ElementNode && len(n.Children) > 0 {
			n.Children = Rewrite(n.Children, fn)
		}
		out = append(out, n)
	}
	return out
}

// Render serializes nodes back to markup.
func Render(nodes []*Node) string {
	var b strings.Builder
	for _, n := range nodes {
		n.render(&b)
	}
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	switch n.Type {
	case TextNode:
		if n.raw != "" {
			b.WriteString(n.raw)
		} else {
			b.WriteString(html.EscapeString(n.Data))
		}
	case RawNode:
		b.WriteString(n.Data)
	case ElementNode:
		if n.raw != "" {
			b.WriteString(n.raw)
		} else {
			b.WriteByte('<')
			b.WriteString(n.Tag)
			for _, a := range n.Attrs {
				b.WriteByte(' ')
				b.WriteString(a.Key)
				b.WriteString(`="`)
				b.WriteString(html.EscapeString(a.Val))
				b.WriteByte('"')
			}
			b.WriteByte('>')
		}
		for _, c := range n.Children {
			c.render(b)
		}
		switch {
		case n.endRaw != "":
			b.WriteString(n.endRaw)
		case n.raw == "" && !voidElements[n.Tag]:
			b.WriteString("</" + n.Tag + ">")
		}
	}
}

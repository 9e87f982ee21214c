// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mjml

import (
	"strings"
)

// attrEscaper escapes attribute values for double-quoted output.
var attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", `<`, "&lt;", `>`, "&gt;")

// textEscaper escapes plain text placed into ending tags.
var textEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;")

// EscapeText escapes s for use as the content of an ending tag.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// Render serializes n and its subtree. Output is indented with two spaces
// per level and is stable: rendering a parsed document twice yields the
// same string.
func Render(n *Node) string {
	var b strings.Builder
	render(&b, n, 0)
	return b.String()
}

// String implements fmt.Stringer.
func (n *Node) String() string {
	return Render(n)
}

func render(b *strings.Builder, n *Node, depth int) {
	indent := strings.Repeat("  ", depth)

	switch n.Tag {
	case TextTag:
		b.WriteString(indent)
		b.WriteString(n.Content)
		b.WriteByte('\n')
		return
	case CommentTag:
		b.WriteString(indent)
		b.WriteString("<!--")
		b.WriteString(n.Content)
		b.WriteString("-->\n")
		return
	}

	b.WriteString(indent)
	b.WriteByte('<')
	b.WriteString(n.Tag)
	for _, a := range n.Attrs {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(attrEscaper.Replace(a.Value))
		b.WriteByte('"')
	}

	if IsEndingTag(n.Tag) {
		b.WriteByte('>')
		b.WriteString(n.Content)
		b.WriteString("</")
		b.WriteString(n.Tag)
		b.WriteString(">\n")
		return
	}

	if len(n.Children) == 0 {
		b.WriteString(" />\n")
		return
	}

	b.WriteString(">\n")
	for _, c := range n.Children {
		render(b, c, depth+1)
	}
	b.WriteString(indent)
	b.WriteString("</")
	b.WriteString(n.Tag)
	b.WriteString(">\n")
}

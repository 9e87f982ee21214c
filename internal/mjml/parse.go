// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package mjml

import (
	"errors"
	"fmt"
	"html"
	"strings"
)

// ErrMalformed is returned when markup cannot be parsed into a tree.
var ErrMalformed = errors.New("malformed mjml")

// Parse reads a complete MJML document. The root element must be <mjml>.
func Parse(src string) (*Node, error) {
	root, err := parseSingle(src)
	if err != nil {
		return nil, err
	}
	if root.Tag != "mjml" {
		return nil, fmt.Errorf("%w: root element is <%s>, want <mjml>", ErrMalformed, root.Tag)
	}
	return root, nil
}

// ParseFragment reads a serialized node such as the nodeMjml payload of an
// insert or replace operation. It must contain exactly one element.
func ParseFragment(src string) (*Node, error) {
	return parseSingle(src)
}

func parseSingle(src string) (*Node, error) {
	doc, err := parseDocument(src)
	if err != nil {
		return nil, err
	}
	var root *Node
	for _, c := range doc.Children {
		switch {
		case c.Tag == CommentTag:
			continue
		case c.Tag == TextTag:
			return nil, fmt.Errorf("%w: text outside of an element", ErrMalformed)
		case root != nil:
			return nil, fmt.Errorf("%w: more than one root element", ErrMalformed)
		default:
			root = c
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no element found", ErrMalformed)
	}
	root.parent = nil
	return root, nil
}

// parser is a small tokenizer tailored to MJML: container tags hold child
// elements, ending tags (mj-text, mj-button, ...) hold raw HTML that is kept
// verbatim.
type parser struct {
	src string
	pos int
}

func parseDocument(src string) (*Node, error) {
	p := &parser{src: src}
	doc := &Node{Tag: "#document"}
	stack := []*Node{doc}

	for p.pos < len(p.src) {
		top := stack[len(stack)-1]

		lt := strings.IndexByte(p.src[p.pos:], '<')
		if lt < 0 {
			p.addText(top, p.src[p.pos:])
			break
		}
		if lt > 0 {
			p.addText(top, p.src[p.pos:p.pos+lt])
			p.pos += lt
		}

		rest := p.src[p.pos:]
		switch {
		case strings.HasPrefix(rest, "<!--"):
			end := strings.Index(rest[4:], "-->")
			if end < 0 {
				return nil, p.errorf("unterminated comment")
			}
			top.AppendChild(&Node{Tag: CommentTag, Content: rest[4 : 4+end]})
			p.pos += 4 + end + 3

		case strings.HasPrefix(rest, "<?"), strings.HasPrefix(rest, "<!"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return nil, p.errorf("unterminated declaration")
			}
			p.pos += end + 1

		case strings.HasPrefix(rest, "</"):
			end := strings.IndexByte(rest, '>')
			if end < 0 {
				return nil, p.errorf("unterminated closing tag")
			}
			name := strings.ToLower(strings.TrimSpace(rest[2:end]))
			if len(stack) == 1 {
				return nil, p.errorf("unexpected closing tag </%s>", name)
			}
			if top.Tag != name {
				return nil, p.errorf("closing tag </%s> does not match <%s>", name, top.Tag)
			}
			stack = stack[:len(stack)-1]
			p.pos += end + 1

		default:
			node, selfClosing, err := p.startTag()
			if err != nil {
				return nil, err
			}
			top.AppendChild(node)
			if selfClosing {
				continue
			}
			if IsEndingTag(node.Tag) {
				if err := p.endingContent(node); err != nil {
					return nil, err
				}
				continue
			}
			stack = append(stack, node)
		}
	}

	if len(stack) > 1 {
		return nil, fmt.Errorf("%w: unclosed tag <%s>", ErrMalformed, stack[len(stack)-1].Tag)
	}
	return doc, nil
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d", ErrMalformed, fmt.Sprintf(format, args...), p.pos)
}

// addText keeps non-blank text runs; formatting whitespace is dropped.
func (p *parser) addText(parent *Node, s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	parent.AppendChild(&Node{Tag: TextTag, Content: strings.TrimSpace(s)})
}

// startTag reads "<name attr="v" ...>" or the self-closing form.
func (p *parser) startTag() (*Node, bool, error) {
	i := p.pos + 1
	start := i
	for i < len(p.src) && isNameChar(p.src[i]) {
		i++
	}
	if i == start {
		return nil, false, p.errorf("invalid tag name")
	}
	node := NewElement(strings.ToLower(p.src[start:i]))

	for {
		i = skipSpace(p.src, i)
		if i >= len(p.src) {
			return nil, false, p.errorf("unterminated tag <%s>", node.Tag)
		}
		switch {
		case p.src[i] == '>':
			p.pos = i + 1
			return node, false, nil
		case strings.HasPrefix(p.src[i:], "/>"):
			p.pos = i + 2
			return node, true, nil
		}

		nameStart := i
		for i < len(p.src) && isNameChar(p.src[i]) {
			i++
		}
		if i == nameStart {
			p.pos = i
			return nil, false, p.errorf("invalid attribute in <%s>", node.Tag)
		}
		name := strings.ToLower(p.src[nameStart:i])

		i = skipSpace(p.src, i)
		if i >= len(p.src) || p.src[i] != '=' {
			node.Attrs = append(node.Attrs, Attr{Name: name})
			continue
		}
		i = skipSpace(p.src, i+1)
		if i >= len(p.src) {
			return nil, false, p.errorf("missing value for %s", name)
		}

		var value string
		if q := p.src[i]; q == '"' || q == '\'' {
			end := strings.IndexByte(p.src[i+1:], q)
			if end < 0 {
				p.pos = i
				return nil, false, p.errorf("unterminated value for %s", name)
			}
			value = p.src[i+1 : i+1+end]
			i += end + 2
		} else {
			vs := i
			for i < len(p.src) && !isSpace(p.src[i]) && p.src[i] != '>' && !strings.HasPrefix(p.src[i:], "/>") {
				i++
			}
			value = p.src[vs:i]
		}
		node.Attrs = append(node.Attrs, Attr{Name: name, Value: html.UnescapeString(value)})
	}
}

// endingContent captures everything up to the matching closing tag as raw
// content. Ending tags never nest inside themselves.
func (p *parser) endingContent(node *Node) error {
	closing := "</" + node.Tag
	idx := indexFold(p.src[p.pos:], closing)
	if idx < 0 {
		return p.errorf("unclosed tag <%s>", node.Tag)
	}
	node.Content = strings.TrimSpace(p.src[p.pos : p.pos+idx])
	p.pos += idx
	end := strings.IndexByte(p.src[p.pos:], '>')
	if end < 0 {
		return p.errorf("unterminated closing tag </%s>", node.Tag)
	}
	p.pos += end + 1
	return nil
}

// indexFold is a case-insensitive strings.Index for ASCII needles.
func indexFold(s, sub string) int {
	n := len(sub)
	for i := 0; i+n <= len(s); i++ {
		if strings.EqualFold(s[i:i+n], sub) {
			return i
		}
	}
	return -1
}

func isNameChar(c byte) bool {
	return c == '-' || c == '_' || c == ':' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func skipSpace(s string, i int) int {
	for i < len(s) && isSpace(s[i]) {
		i++
	}
	return i
}

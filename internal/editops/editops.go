// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package editops applies batches of structured edit operations to a
// template plan. A batch is all-or-nothing: it runs against a private copy
// and the caller only sees the result when every operation succeeded.
package editops

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"mailsmithery/internal/mjml"
	"mailsmithery/internal/models"
	"mailsmithery/internal/plan"
)

// Sentinel errors. Every failure returned by Apply wraps one of them inside
// a *BatchError.
var (
	ErrTargetNotFound   = errors.New("target not found")
	ErrMalformedNode    = errors.New("malformed node")
	ErrDuplicateID      = errors.New("duplicate data-id")
	ErrInvalidOperation = errors.New("invalid operation")
)

// BatchError names the operation that made a batch fail.
type BatchError struct {
	Index    int
	Op       models.OpKind
	TargetID string
	Err      error
}

func (e *BatchError) Error() string {
	if e.TargetID != "" {
		return fmt.Sprintf("op %d (%s on %q): %v", e.Index, e.Op, e.TargetID, e.Err)
	}
	return fmt.Sprintf("op %d (%s): %v", e.Index, e.Op, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

var styleProperty = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

// Validate checks that op carries the fields its kind requires.
func Validate(op models.EditOperation) error {
	switch op.Op {
	case models.OpUpdateAttr, models.OpUpdateStyle, models.OpReplaceText,
		models.OpInsertAfter, models.OpInsertBefore, models.OpRemove,
		models.OpReplaceNode, models.OpReorder:
		if strings.TrimSpace(op.TargetID) == "" {
			return fmt.Errorf("%w: targetId is required", ErrInvalidOperation)
		}
	case models.OpApplyTheme:
	case "":
		return fmt.Errorf("%w: op is required", ErrInvalidOperation)
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, op.Op)
	}

	switch op.Op {
	case models.OpUpdateAttr, models.OpUpdateStyle:
		tag, prop, err := splitPath(op.Path)
		if err != nil {
			return err
		}
		if op.Value == nil {
			return fmt.Errorf("%w: value is required", ErrInvalidOperation)
		}
		if prop == mjml.IDAttr {
			return fmt.Errorf("%w: %s.%s cannot be edited", ErrInvalidOperation, tag, prop)
		}
		if op.Op == models.OpUpdateStyle && !styleProperty.MatchString(prop) {
			return fmt.Errorf("%w: %q is not a style property", ErrInvalidOperation, prop)
		}
	case models.OpReplaceText:
		if op.Value == nil {
			return fmt.Errorf("%w: value is required", ErrInvalidOperation)
		}
	case models.OpInsertAfter, models.OpInsertBefore, models.OpReplaceNode:
		if strings.TrimSpace(op.NodeMJML) == "" {
			return fmt.Errorf("%w: nodeMjml is required", ErrInvalidOperation)
		}
	case models.OpReorder:
		if op.Index == nil {
			return fmt.Errorf("%w: index is required", ErrInvalidOperation)
		}
		if *op.Index < 0 {
			return fmt.Errorf("%w: index must not be negative", ErrInvalidOperation)
		}
	case models.OpApplyTheme:
		if op.Theme == nil {
			return fmt.Errorf("%w: theme is required", ErrInvalidOperation)
		}
		if err := op.Theme.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidOperation, err)
		}
	}
	return nil
}

func splitPath(path string) (tag, prop string, err error) {
	tag, prop, ok := strings.Cut(strings.TrimSpace(path), ".")
	if !ok || tag == "" || prop == "" {
		return "", "", fmt.Errorf("%w: path %q must be elementTag.propertyName", ErrInvalidOperation, path)
	}
	return strings.ToLower(tag), strings.ToLower(prop), nil
}

// Apply runs ops in order against a copy of p. On success the returned plan
// has the edited MJML and a section list re-derived from it; p is never
// modified. A failing op yields a *BatchError naming it. A document whose
// ids already repeat is rejected with ErrDuplicateID before any op runs.
func Apply(p *models.TemplatePlan, ops []models.EditOperation) (*models.TemplatePlan, error) {
	out, err := p.Clone()
	if err != nil {
		return nil, err
	}
	root, err := parseDocument(out.MJML)
	if err != nil {
		return nil, err
	}

	for i, op := range ops {
		if err := applyOne(root, op); err != nil {
			return nil, &BatchError{Index: i, Op: op.Op, TargetID: op.TargetID, Err: err}
		}
		if op.Op == models.OpApplyTheme {
			out.Brand = *op.Theme
		}
	}

	out.Sections = plan.Rebuild(root, out.Sections)
	out.MJML = mjml.Render(root)
	return out, nil
}

// ApplyMJML runs ops against a raw MJML document and returns the new markup.
func ApplyMJML(src string, ops []models.EditOperation) (string, error) {
	root, err := parseDocument(src)
	if err != nil {
		return "", err
	}
	for i, op := range ops {
		if err := applyOne(root, op); err != nil {
			return "", &BatchError{Index: i, Op: op.Op, TargetID: op.TargetID, Err: err}
		}
	}
	return mjml.Render(root), nil
}

func parseDocument(src string) (*mjml.Node, error) {
	root, err := mjml.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("parse mjml: %w", err)
	}
	if _, dups := root.Index(); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %q appears more than once in the document", ErrDuplicateID, dups[0])
	}
	return root, nil
}

func applyOne(root *mjml.Node, op models.EditOperation) error {
	if err := Validate(op); err != nil {
		return err
	}
	if op.Op == models.OpApplyTheme {
		applyTheme(root, *op.Theme)
		return nil
	}

	target := root.Find(op.TargetID)
	if target == nil {
		return fmt.Errorf("%w: no node with data-id %q", ErrTargetNotFound, op.TargetID)
	}

	switch op.Op {
	case models.OpUpdateAttr, models.OpUpdateStyle:
		tag, prop, _ := splitPath(op.Path)
		el := target.FindTag(tag)
		if el == nil {
			return fmt.Errorf("%w: no <%s> under %q", ErrTargetNotFound, tag, op.TargetID)
		}
		el.SetAttr(prop, *op.Value)

	case models.OpReplaceText:
		el := textHolder(target)
		if el == nil {
			return fmt.Errorf("%w: %q has no text content", ErrInvalidOperation, op.TargetID)
		}
		el.Content = mjml.EscapeText(*op.Value)

	case models.OpInsertAfter, models.OpInsertBefore:
		if structural(target) {
			return fmt.Errorf("%w: cannot insert next to <%s>", ErrInvalidOperation, target.Tag)
		}
		node, err := fragment(root, target, nil, op.NodeMJML)
		if err != nil {
			return err
		}
		if op.Op == models.OpInsertAfter {
			target.InsertAfter(node)
		} else {
			target.InsertBefore(node)
		}

	case models.OpReplaceNode:
		if structural(target) {
			return fmt.Errorf("%w: cannot replace <%s>", ErrInvalidOperation, target.Tag)
		}
		node, err := fragment(root, target, target, op.NodeMJML)
		if err != nil {
			return err
		}
		target.ReplaceWith(node)

	case models.OpRemove:
		if structural(target) {
			return fmt.Errorf("%w: cannot remove <%s>", ErrInvalidOperation, target.Tag)
		}
		target.Remove()

	case models.OpReorder:
		if !target.MoveTo(*op.Index) {
			return fmt.Errorf("%w: index %d out of range (%d siblings)", ErrInvalidOperation, *op.Index, len(target.ElementSiblings()))
		}
	}
	return nil
}

// structural reports whether n is part of the document skeleton.
func structural(n *mjml.Node) bool {
	return n.Parent() == nil || n.Tag == "mjml" || n.Tag == "mj-body" || n.Tag == "mj-head"
}

// textHolder is the node whose content replace-text rewrites: the target
// itself when it is an ending tag, otherwise its first text-bearing
// descendant.
func textHolder(target *mjml.Node) *mjml.Node {
	if mjml.IsEndingTag(target.Tag) {
		return target
	}
	var found *mjml.Node
	target.Walk(func(n *mjml.Node) bool {
		if found != nil {
			return false
		}
		if n != target && (n.Tag == "mj-text" || n.Tag == "mj-button") {
			found = n
			return false
		}
		return true
	})
	return found
}

// fragment parses a node that will be placed next to (or instead of)
// sibling and checks that none of its ids clash with the tree. Ids inside
// released (a node about to be replaced) do not count as taken.
func fragment(root, sibling, released *mjml.Node, src string) (*mjml.Node, error) {
	node, err := mjml.ParseFragment(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedNode, err)
	}
	if _, dups := node.Index(); len(dups) > 0 {
		return nil, fmt.Errorf("%w: %q repeats inside the node", ErrDuplicateID, dups[0])
	}
	if p := sibling.Parent(); p != nil && p.Tag == "mj-body" && !mjml.IsSectionTag(node.Tag) {
		return nil, fmt.Errorf("%w: <%s> cannot sit directly under mj-body", ErrMalformedNode, node.Tag)
	}

	taken, _ := root.Index()
	if released != nil {
		for _, id := range released.IDs() {
			delete(taken, id)
		}
	}
	for _, id := range node.IDs() {
		if _, ok := taken[id]; ok {
			return nil, fmt.Errorf("%w: %q already exists", ErrDuplicateID, id)
		}
	}
	return node, nil
}

func applyTheme(root *mjml.Node, t models.BrandTokens) {
	if body := root.Body(); body != nil {
		body.SetAttr("background-color", t.Background)
	}
	for _, b := range root.FindAll("mj-button") {
		b.SetAttr("background-color", t.Primary)
		b.SetAttr("border-radius", t.RadiusPx())
		b.SetAttr("font-family", t.FontStack)
	}
	for _, tx := range root.FindAll("mj-text") {
		tx.SetAttr("color", t.Text)
		tx.SetAttr("font-family", t.FontStack)
	}
	for _, d := range root.FindAll("mj-divider") {
		d.SetAttr("border-color", t.Secondary)
	}
	for _, all := range root.FindAll("mj-all") {
		all.SetAttr("font-family", t.FontStack)
	}
}

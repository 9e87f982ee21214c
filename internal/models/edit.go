// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// OpKind discriminates the EditOperation tagged union.
type OpKind string

const (
	OpUpdateAttr   OpKind = "update-attr"
	OpUpdateStyle  OpKind = "update-style"
	OpReplaceText  OpKind = "replace-text"
	OpInsertAfter  OpKind = "insert-after"
	OpInsertBefore OpKind = "insert-before"
	OpRemove       OpKind = "remove"
	OpReplaceNode  OpKind = "replace-node"
	OpReorder      OpKind = "reorder"
	OpApplyTheme   OpKind = "apply-theme"
)

// EditOperation describes one mutation of a plan's MJML tree. Which fields
// are required depends on Op:
//
//	update-attr, update-style       TargetID, Path, Value
//	replace-text                    TargetID, Value
//	insert-after, insert-before     TargetID, NodeMJML
//	replace-node                    TargetID, NodeMJML
//	remove                          TargetID
//	reorder                         TargetID, Index
//	apply-theme                     Theme
type EditOperation struct {
	Op       OpKind       `json:"op"`
	TargetID string       `json:"targetId,omitempty"`
	Path     string       `json:"path,omitempty"`
	Value    *string      `json:"value,omitempty"`
	NodeMJML string       `json:"nodeMjml,omitempty"`
	Index    *int         `json:"index,omitempty"`
	Theme    *BrandTokens `json:"theme,omitempty"`
}

// TemplateEdit is the edit collaborator's answer: the operations it applied
// and the resulting MJML, which is authoritative.
type TemplateEdit struct {
	TargetTemplateID string          `json:"targetTemplateId"`
	Ops              []EditOperation `json:"ops"`
	MJML             string          `json:"mjml"`
	Notes            string          `json:"notes"`
}

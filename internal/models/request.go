// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import "github.com/google/uuid"

// PlanRequest asks the planner for a new template plan.
type PlanRequest struct {
	ProjectID uuid.UUID    `json:"projectId"`
	EmailType string       `json:"emailType"`
	Subject   string       `json:"subject,omitempty"`
	Tone      string       `json:"tone,omitempty"`
	Prompt    string       `json:"prompt"`
	Brand     *BrandTokens `json:"brandTokens,omitempty"`
	UserID    uuid.UUID    `json:"userId"`
}

// EditRequest asks the edit collaborator to apply ops and/or a free-text
// instruction to a template's latest plan.
type EditRequest struct {
	TemplateID uuid.UUID       `json:"templateId"`
	Ops        []EditOperation `json:"ops"`
	Prompt     string          `json:"prompt,omitempty"`
	UserID     uuid.UUID       `json:"userId"`
	Plan       *TemplatePlan   `json:"plan,omitempty"`
}

// LintRequest carries the markup a linter inspects. HTML may be empty, in
// which case the linter compiles MJML itself when it can.
type LintRequest struct {
	MJML      string `json:"mjml"`
	HTML      string `json:"html,omitempty"`
	Subject   string `json:"subject,omitempty"`
	Preheader string `json:"preheader,omitempty"`
}

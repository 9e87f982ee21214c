// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Template is a named, typed container that accumulates versions.
// LatestVersionID is a back-reference maintained on every recorded version.
type Template struct {
	ID              uuid.UUID  `json:"id"`
	ProjectID       uuid.UUID  `json:"project_id"`
	Name            string     `json:"name"`
	Type            string     `json:"type"`
	UserID          uuid.UUID  `json:"user_id"`
	LatestVersionID *uuid.UUID `json:"latest_version_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Version is an immutable snapshot of a template's plan, MJML source and
// compiled HTML. Seq is the insertion order used to break created_at ties.
type Version struct {
	ID         uuid.UUID    `json:"id"`
	TemplateID uuid.UUID    `json:"template_id"`
	IRJSON     TemplatePlan `json:"ir_json"`
	MJML       string       `json:"mjml"`
	HTML       string       `json:"html"`
	Seq        int64        `json:"-"`
	CreatedAt  time.Time    `json:"created_at"`
}

// SavedTemplate identifies the rows created by a save.
type SavedTemplate struct {
	TemplateID uuid.UUID `json:"templateId"`
	VersionID  uuid.UUID `json:"versionId"`
}

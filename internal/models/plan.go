// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"encoding/json"
	"fmt"
)

// SectionType names the kind of content block a section holds.
type SectionType string

const (
	SectionHeader      SectionType = "header"
	SectionHero        SectionType = "hero"
	SectionContent     SectionType = "content"
	SectionProducts    SectionType = "products"
	SectionFooter      SectionType = "footer"
	SectionTestimonial SectionType = "testimonial"
	SectionCTA         SectionType = "cta"
)

// SectionTypes lists every valid section type.
var SectionTypes = []SectionType{
	SectionHeader, SectionHero, SectionContent, SectionProducts,
	SectionFooter, SectionTestimonial, SectionCTA,
}

// Valid reports whether t is one of the known section types.
func (t SectionType) Valid() bool {
	for _, st := range SectionTypes {
		if st == t {
			return true
		}
	}
	return false
}

// PlanMeta carries the email-level settings chosen at generation time.
type PlanMeta struct {
	EmailType string `json:"emailType"`
	Subject   string `json:"subject"`
	Preheader string `json:"preheader"`
	Tone      string `json:"tone"`
}

// TemplateSection is an addressable block of a plan. Props is an open
// mapping produced by the AI planner; its shape is not guaranteed.
type TemplateSection struct {
	ID    string         `json:"id"`
	Type  SectionType    `json:"type"`
	Props map[string]any `json:"props"`
}

// TemplatePlan is one generated or edited state of a template. Sections are
// a structured view over the same content MJML serializes.
type TemplatePlan struct {
	Meta     PlanMeta          `json:"meta"`
	Brand    BrandTokens       `json:"brand"`
	Sections []TemplateSection `json:"sections"`
	MJML     string            `json:"mjml"`
}

// Clone returns a deep copy of the plan. Props values are copied through a
// JSON round trip, which is their wire representation anyway.
func (p *TemplatePlan) Clone() (*TemplatePlan, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("clone plan: %w", err)
	}
	var out TemplatePlan
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("clone plan: %w", err)
	}
	return &out, nil
}

// SectionIDs returns the section ids in order.
func (p *TemplatePlan) SectionIDs() []string {
	ids := make([]string, 0, len(p.Sections))
	for _, s := range p.Sections {
		ids = append(ids, s.ID)
	}
	return ids
}

// Section returns the section with the given id, or nil.
func (p *TemplatePlan) Section(id string) *TemplateSection {
	for i := range p.Sections {
		if p.Sections[i].ID == id {
			return &p.Sections[i]
		}
	}
	return nil
}

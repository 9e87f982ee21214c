// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and the value types exchanged with the AI, compile and lint collaborators.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// BrandTokens is the minimal design-system vocabulary applied to generated
// templates. It is a value type: edits replace the whole struct.
type BrandTokens struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Text       string `json:"text"`
	Background string `json:"background"`
	FontStack  string `json:"fontStack"`
	Radius     int    `json:"radius"`
	LogoLight  string `json:"logoLight,omitempty"`
	LogoDark   string `json:"logoDark,omitempty"`
}

// DefaultBrandTokens returns the tokens a new project starts with.
func DefaultBrandTokens() BrandTokens {
	return BrandTokens{
		Primary:    "#0C7C59",
		Secondary:  "#F2B705",
		Text:       "#111111",
		Background: "#FFFFFF",
		FontStack:  "Arial, Helvetica, sans-serif",
		Radius:     8,
	}
}

// ErrInvalidBrandTokens is returned by Validate for unusable token sets.
var ErrInvalidBrandTokens = errors.New("invalid brand tokens")

// Validate checks that every required token is present. Color legality is
// left to the compiler; only emptiness and the radius sign are checked here.
func (b BrandTokens) Validate() error {
	colors := []struct{ name, value string }{
		{"primary", b.Primary},
		{"secondary", b.Secondary},
		{"text", b.Text},
		{"background", b.Background},
	}
	for _, c := range colors {
		if strings.TrimSpace(c.value) == "" {
			return fmt.Errorf("%w: %s color is required", ErrInvalidBrandTokens, c.name)
		}
	}
	if len(b.FontFamilies()) == 0 {
		return fmt.Errorf("%w: font stack is required", ErrInvalidBrandTokens)
	}
	if b.Radius < 0 {
		return fmt.Errorf("%w: radius must not be negative", ErrInvalidBrandTokens)
	}
	return nil
}

// FontFamilies splits the comma-separated font stack into ordered names.
func (b BrandTokens) FontFamilies() []string {
	var out []string
	for _, f := range strings.Split(b.FontStack, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// RadiusPx renders the radius as an MJML length.
func (b BrandTokens) RadiusPx() string {
	return fmt.Sprintf("%dpx", b.Radius)
}

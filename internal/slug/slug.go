// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug turns subject lines and template names into file-system and
// URL friendly names for exported templates.
package slug

import (
	"regexp"
	"strings"
)

// maxLen bounds generated slugs; long subjects are cut at a word boundary.
const maxLen = 80

var (
	// nonAlphanumeric matches anything that isn't a letter, digit, space or hyphen.
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespace runs become a single hyphen.
	whitespace = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a slug from s.
// Example: "Welcome to Acme, Jane!" → "welcome-to-acme-jane"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(s))
	result = nonAlphanumeric.ReplaceAllString(result, "")
	result = whitespace.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	if len(result) > maxLen {
		result = result[:maxLen]
		if i := strings.LastIndexByte(result, '-'); i > 0 {
			result = result[:i]
		}
	}
	return result
}

// Filename returns "<slug>.<ext>" for the first candidate that yields a
// non-empty slug, or "template.<ext>" when none does.
func Filename(ext string, candidates ...string) string {
	for _, c := range candidates {
		if s := Generate(c); s != "" {
			return s + "." + ext
		}
	}
	return "template." + ext
}

package brand

import (
	"regexp"

	"mailsmithery/internal/models"
)

// Fallback colors used when a page yields fewer than three.
const (
	DefaultPrimary   = "#1a73e8"
	DefaultSecondary = "#34a853"
	DefaultAccent    = "#fbbc04"

	maxPalette = 10
)

var colorRe = regexp.MustCompile(`#[0-9a-fA-F]{6}|#[0-9a-fA-F]{3}|rgb\(\s*\d+\s*,\s*\d+\s*,\s*\d+\s*\)|rgba\(\s*\d+\s*,\s*\d+\s*,\s*\d+\s*,\s*[\d.]+\s*\)`)

// ExtractColorsFromContent collects color literals from html in first-seen
// order. The first three become primary, secondary and accent.
func ExtractColorsFromContent(html string) models.ExtractedColors {
	out := models.ExtractedColors{
		Primary:   DefaultPrimary,
		Secondary: DefaultSecondary,
		Accent:    DefaultAccent,
		Palette:   []string{},
	}

	seen := make(map[string]bool)
	for _, c := range colorRe.FindAllString(html, -1) {
		if seen[c] {
			continue
		}
		seen[c] = true
		out.Palette = append(out.Palette, c)
		if len(out.Palette) == maxPalette {
			break
		}
	}

	if len(out.Palette) > 0 {
		out.Primary = out.Palette[0]
	}
	if len(out.Palette) > 1 {
		out.Secondary = out.Palette[1]
	}
	if len(out.Palette) > 2 {
		out.Accent = out.Palette[2]
	}
	return out
}

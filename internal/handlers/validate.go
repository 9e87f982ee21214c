package handlers

import (
	"strings"
	"unicode/utf8"
)

// Validation limits for request fields.
const (
	maxProjectNameLen  = 200
	maxTemplateNameLen = 200
	maxPromptLen       = 4_000
	maxMJMLLen         = 500_000
	maxOpsPerBatch     = 200
)

// validateProject checks a project name and returns the first error found.
func validateProject(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Project name is required."
	}
	if utf8.RuneCountInString(name) > maxProjectNameLen {
		return "Project name is too long (max 200 characters)."
	}
	return ""
}

// validateTemplateName checks the name a template is saved under.
func validateTemplateName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Template name is required."
	}
	if utf8.RuneCountInString(name) > maxTemplateNameLen {
		return "Template name is too long (max 200 characters)."
	}
	return ""
}

// validatePrompt checks a free-text instruction. Empty prompts are allowed
// where the caller also sends operations.
func validatePrompt(prompt string) string {
	if utf8.RuneCountInString(prompt) > maxPromptLen {
		return "Prompt is too long (max 4,000 characters)."
	}
	return ""
}

// validateMJML checks raw MJML sent for compile or lint.
func validateMJML(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return "MJML source is required."
	}
	if len(src) > maxMJMLLen {
		return "MJML source is too long (max 500,000 bytes)."
	}
	return ""
}

// validateOps bounds the size of an edit batch.
func validateOps(n int) string {
	if n > maxOpsPerBatch {
		return "Too many operations in one batch (max 200)."
	}
	return ""
}

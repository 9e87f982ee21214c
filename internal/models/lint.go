// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

// CompileResult is the output of turning MJML into email HTML.
type CompileResult struct {
	HTML     string   `json:"html"`
	Size     int      `json:"size"`
	Warnings []string `json:"warnings"`
}

// LintIssue is a single finding reported by the linter.
type LintIssue struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Location string `json:"location,omitempty"`
	Fix      string `json:"fix,omitempty"`
}

// ContrastIssue records a text/background pair below the WCAG AA ratio.
type ContrastIssue struct {
	Element        string  `json:"element"`
	Ratio          float64 `json:"ratio"`
	Recommendation string  `json:"recommendation"`
}

// HeadingIssue records a problem with the document heading outline.
type HeadingIssue struct {
	Issue          string `json:"issue"`
	Recommendation string `json:"recommendation"`
}

// AccessibilityReport groups accessibility metrics.
type AccessibilityReport struct {
	AltTextCoverage  float64         `json:"altTextCoverage"`
	ContrastIssues   []ContrastIssue `json:"contrastIssues"`
	HeadingStructure []HeadingIssue  `json:"headingStructure"`
}

// PerformanceReport groups size and image metrics.
type PerformanceReport struct {
	SizeKB            float64  `json:"sizeKB"`
	SizeGrade         string   `json:"sizeGrade"`
	ImageOptimization []string `json:"imageOptimization"`
}

// DeliverabilityReport groups inbox-placement checks.
type DeliverabilityReport struct {
	HasUnsubscribe bool     `json:"hasUnsubscribe"`
	InlineStyles   bool     `json:"inlineStyles"`
	Issues         []string `json:"issues"`
}

// LintResult is derived, ephemeral analysis of a compiled version. It is
// recomputed on every compile and never persisted.
type LintResult struct {
	Errors         []LintIssue          `json:"errors"`
	Warnings       []LintIssue          `json:"warnings"`
	Suggestions    []LintIssue          `json:"suggestions"`
	Accessibility  AccessibilityReport  `json:"accessibility"`
	Performance    PerformanceReport    `json:"performance"`
	Deliverability DeliverabilityReport `json:"deliverability"`
}

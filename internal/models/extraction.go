// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionStatus tracks a brand extraction through its lifecycle.
type ExtractionStatus string

const (
	ExtractionProcessing ExtractionStatus = "processing"
	ExtractionCompleted  ExtractionStatus = "completed"
	ExtractionFailed     ExtractionStatus = "failed"
)

// ExtractedColors is the palette derived from a scraped page.
type ExtractedColors struct {
	Primary   string   `json:"primary"`
	Secondary string   `json:"secondary"`
	Accent    string   `json:"accent"`
	Palette   []string `json:"palette"`
}

// PageMetadata is what the scraper reports about the page itself.
type PageMetadata struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Keywords      string `json:"keywords"`
	OGTitle       string `json:"ogTitle"`
	OGDescription string `json:"ogDescription"`
	OGImage       string `json:"ogImage"`
	Domain        string `json:"domain"`
}

// BrandExtraction records one scrape of a project's website.
type BrandExtraction struct {
	ID              uuid.UUID        `json:"id"`
	ProjectID       uuid.UUID        `json:"project_id"`
	URL             string           `json:"url"`
	Status          ExtractionStatus `json:"status"`
	PageMetadata    *PageMetadata    `json:"page_metadata,omitempty"`
	ExtractedColors *ExtractedColors `json:"extracted_colors,omitempty"`
	Error           *string          `json:"error,omitempty"`
	DurationMS      *int64           `json:"extraction_duration_ms,omitempty"`
	StartedAt       time.Time        `json:"extraction_started_at"`
	CompletedAt     *time.Time       `json:"extraction_completed_at,omitempty"`
}

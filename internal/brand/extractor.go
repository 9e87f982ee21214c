// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package brand derives brand tokens from a project's website.
package brand

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"mailsmithery/internal/models"
	"mailsmithery/internal/store"
)

// ErrInvalidURL is returned for URLs that cannot be scraped.
var ErrInvalidURL = errors.New("invalid website url")

// Scraper fetches a web page.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Page, error)
}

// ProjectRepo is the project persistence the extractor needs.
type ProjectRepo interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Project, error)
	ApplyExtraction(ctx context.Context, userID, id uuid.UUID, tokens models.BrandTokens, source json.RawMessage) error
}

// ExtractionRepo records extraction attempts.
type ExtractionRepo interface {
	Start(ctx context.Context, userID, projectID uuid.UUID, url string) (*models.BrandExtraction, error)
	Complete(ctx context.Context, id uuid.UUID, meta *models.PageMetadata, colors *models.ExtractedColors, durationMS int64) error
	Fail(ctx context.Context, id uuid.UUID, message string, durationMS int64) error
}

// Result is the outcome of a successful extraction.
type Result struct {
	ExtractionID uuid.UUID          `json:"extractionId"`
	Status       string             `json:"status"`
	DurationMS   int64              `json:"duration"`
	BrandTokens  models.BrandTokens `json:"brandTokens"`
	Source       json.RawMessage    `json:"brandSource"`
}

// Extractor scrapes a site, derives colors and rewrites the project brand.
type Extractor struct {
	projects    ProjectRepo
	extractions ExtractionRepo
	scraper     Scraper
	now         func() time.Time
}

// NewExtractor wires an extractor.
func NewExtractor(projects ProjectRepo, extractions ExtractionRepo, scraper Scraper) *Extractor {
	return &Extractor{projects: projects, extractions: extractions, scraper: scraper, now: time.Now}
}

// Extract runs one extraction for the user's project. The project's
// primary and secondary colors are replaced from the page palette; the
// other tokens are kept.
func (e *Extractor) Extract(ctx context.Context, userID, projectID uuid.UUID, rawURL string) (*Result, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	project, err := e.projects.Get(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, store.ErrNotFound
	}

	started := e.now()
	rec, err := e.extractions.Start(ctx, userID, projectID, u.String())
	if err != nil {
		return nil, fmt.Errorf("record extraction: %w", err)
	}

	page, err := e.scraper.Scrape(ctx, u.String())
	if err != nil {
		elapsed := e.now().Sub(started).Milliseconds()
		// The request context may be gone; the failure still gets recorded.
		if ferr := e.extractions.Fail(context.WithoutCancel(ctx), rec.ID, err.Error(), elapsed); ferr != nil {
			slog.Error("mark extraction failed", "extraction_id", rec.ID, "error", ferr)
		}
		return nil, err
	}

	meta := page.Metadata
	meta.Domain = u.Hostname()
	colors := ExtractColorsFromContent(page.HTML)
	finished := e.now()
	elapsed := finished.Sub(started).Milliseconds()

	if err := e.extractions.Complete(ctx, rec.ID, &meta, &colors, elapsed); err != nil {
		slog.Warn("update extraction record", "extraction_id", rec.ID, "error", err)
	}

	tokens := project.BrandTokens
	tokens.Primary = colors.Primary
	tokens.Secondary = colors.Secondary

	source, err := json.Marshal(brandSource(u.String(), finished, meta, colors))
	if err != nil {
		return nil, fmt.Errorf("marshal brand source: %w", err)
	}
	if err := e.projects.ApplyExtraction(ctx, userID, projectID, tokens, source); err != nil {
		return nil, fmt.Errorf("apply extraction: %w", err)
	}

	slog.Info("brand extracted", "project_id", projectID, "domain", meta.Domain, "colors", len(colors.Palette), "duration_ms", elapsed)
	return &Result{
		ExtractionID: rec.ID,
		Status:       string(models.ExtractionCompleted),
		DurationMS:   elapsed,
		BrandTokens:  tokens,
		Source:       source,
	}, nil
}

// brandSource is the raw extraction kept alongside the tokens.
func brandSource(pageURL string, at time.Time, meta models.PageMetadata, colors models.ExtractedColors) map[string]any {
	var keywords []string
	for _, k := range strings.Split(meta.Keywords, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return map[string]any{
		"extraction": map[string]any{
			"url":         pageURL,
			"extractedAt": at.UTC().Format(time.RFC3339),
			"status":      models.ExtractionCompleted,
			"metadata":    meta,
		},
		"visual": map[string]any{"colors": colors},
		"content": map[string]any{
			"brand": map[string]any{
				"name":        meta.Title,
				"description": meta.Description,
				"domain":      meta.Domain,
			},
			"messaging": map[string]any{"keywords": keywords},
		},
	}
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"mailsmithery/internal/models"
)

// extractionColumns lists all columns for brand_extractions SELECTs.
const extractionColumns = `id, project_id, url, status, page_metadata, extracted_colors,
	error, duration_ms, started_at, completed_at`

// ExtractionStore records brand extraction runs.
type ExtractionStore struct {
	db *sql.DB
}

// NewExtractionStore creates a new ExtractionStore backed by the given database.
func NewExtractionStore(db *sql.DB) *ExtractionStore {
	return &ExtractionStore{db: db}
}

func scanExtraction(s scanner) (*models.BrandExtraction, error) {
	var (
		e            models.BrandExtraction
		meta, colors []byte
		errMsg       sql.NullString
		duration     sql.NullInt64
		completed    sql.NullTime
	)
	err := s.Scan(&e.ID, &e.ProjectID, &e.URL, &e.Status, &meta, &colors,
		&errMsg, &duration, &e.StartedAt, &completed)
	if err != nil {
		return nil, err
	}
	if e.PageMetadata, err = decodeJSON[models.PageMetadata](meta); err != nil {
		return nil, err
	}
	if e.ExtractedColors, err = decodeJSON[models.ExtractedColors](colors); err != nil {
		return nil, err
	}
	if errMsg.Valid {
		e.Error = &errMsg.String
	}
	if duration.Valid {
		e.DurationMS = &duration.Int64
	}
	if completed.Valid {
		e.CompletedAt = &completed.Time
	}
	return &e, nil
}

// Start records a new extraction in the processing state.
func (s *ExtractionStore) Start(ctx context.Context, userID, projectID uuid.UUID, url string) (*models.BrandExtraction, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO brand_extractions (project_id, url, status)
		SELECT p.id, $3, $4
		FROM projects p
		WHERE p.id = $1 AND p.user_id = $2
		RETURNING `+extractionColumns,
		projectID, userID, url, models.ExtractionProcessing,
	)
	e, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("start extraction: project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("start extraction: %w", err)
	}
	return e, nil
}

// Complete marks the extraction completed with its results.
func (s *ExtractionStore) Complete(ctx context.Context, id uuid.UUID, meta *models.PageMetadata, colors *models.ExtractedColors, durationMS int64) error {
	metaRaw, err := nullableJSON(meta)
	if err != nil {
		return err
	}
	colorsRaw, err := nullableJSON(colors)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE brand_extractions
		SET status = $1, page_metadata = $2, extracted_colors = $3,
			duration_ms = $4, completed_at = now()
		WHERE id = $5
	`, models.ExtractionCompleted, metaRaw, colorsRaw, durationMS, id)
	if err != nil {
		return fmt.Errorf("complete extraction: %w", err)
	}
	return affectedOne(res, "complete extraction")
}

// Fail marks the extraction failed with the collaborator's message.
func (s *ExtractionStore) Fail(ctx context.Context, id uuid.UUID, message string, durationMS int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE brand_extractions
		SET status = $1, error = $2, duration_ms = $3, completed_at = now()
		WHERE id = $4
	`, models.ExtractionFailed, message, durationMS, id)
	if err != nil {
		return fmt.Errorf("fail extraction: %w", err)
	}
	return affectedOne(res, "fail extraction")
}

// Latest returns the most recent extraction for the project, or nil.
func (s *ExtractionStore) Latest(ctx context.Context, userID, projectID uuid.UUID) (*models.BrandExtraction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+extractionColumns+`
		FROM brand_extractions
		WHERE project_id = $1
		  AND EXISTS (SELECT 1 FROM projects p WHERE p.id = project_id AND p.user_id = $2)
		ORDER BY started_at DESC
		LIMIT 1
	`, projectID, userID)
	e, err := scanExtraction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest extraction: %w", err)
	}
	return e, nil
}

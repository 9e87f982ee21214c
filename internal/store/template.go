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

// templateColumns lists all columns for templates SELECTs.
const templateColumns = `id, project_id, name, type, user_id, latest_version_id, created_at`

// TemplateStore handles template rows and the save-with-first-version flow.
type TemplateStore struct {
	db *sql.DB
}

// NewTemplateStore creates a new TemplateStore with the given database connection.
func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

func scanTemplate(s scanner) (*models.Template, error) {
	var t models.Template
	err := s.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Type, &t.UserID, &t.LatestVersionID, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// insertTemplate creates a template under a project the user owns.
func insertTemplate(ctx context.Context, q querier, userID, projectID uuid.UUID, name, typ string) (*models.Template, error) {
	row := q.QueryRowContext(ctx, `
		INSERT INTO templates (project_id, name, type, user_id)
		SELECT p.id, $3, $4, p.user_id
		FROM projects p
		WHERE p.id = $1 AND p.user_id = $2
		RETURNING `+templateColumns,
		projectID, userID, name, typ,
	)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("create template: project %s: %w", projectID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("create template: %w", err)
	}
	return t, nil
}

// Create inserts an empty template. The project must belong to userID.
func (s *TemplateStore) Create(ctx context.Context, userID, projectID uuid.UUID, name, typ string) (*models.Template, error) {
	return insertTemplate(ctx, s.db, userID, projectID, name, typ)
}

// ListByProject returns the project's templates, newest first.
func (s *TemplateStore) ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*models.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE project_id = $1 AND user_id = $2
		ORDER BY created_at DESC
	`, projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	templates := []*models.Template{}
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	return templates, rows.Err()
}

// Get retrieves a template by its UUID. Returns nil if not found or not
// owned by userID.
func (s *TemplateStore) Get(ctx context.Context, userID, id uuid.UUID) (*models.Template, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+templateColumns+`
		FROM templates
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

// SetLatestVersion moves the template's latest-version pointer.
func (s *TemplateStore) SetLatestVersion(ctx context.Context, userID, templateID, versionID uuid.UUID) error {
	return setLatestVersion(ctx, s.db, userID, templateID, versionID)
}

func setLatestVersion(ctx context.Context, q querier, userID, templateID, versionID uuid.UUID) error {
	res, err := q.ExecContext(ctx, `
		UPDATE templates SET latest_version_id = $1
		WHERE id = $2 AND user_id = $3
	`, versionID, templateID, userID)
	if err != nil {
		return fmt.Errorf("set latest version: %w", err)
	}
	return affectedOne(res, "set latest version")
}

// SaveTemplate creates a template and its first version in one
// transaction. Nothing is written when the project is not the user's.
func (s *TemplateStore) SaveTemplate(ctx context.Context, userID, projectID uuid.UUID, name, typ string, plan *models.TemplatePlan, mjml, html string) (*models.SavedTemplate, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("save template: begin: %w", err)
	}
	defer tx.Rollback()

	t, err := insertTemplate(ctx, tx, userID, projectID, name, typ)
	if err != nil {
		return nil, err
	}
	v, err := insertVersion(ctx, tx, userID, t.ID, plan, mjml, html)
	if err != nil {
		return nil, err
	}
	if err := setLatestVersion(ctx, tx, userID, t.ID, v.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("save template: commit: %w", err)
	}
	return &models.SavedTemplate{TemplateID: t.ID, VersionID: v.ID}, nil
}

// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"mailsmithery/internal/models"
)

// projectColumns lists all columns for projects SELECTs.
const projectColumns = `id, name, brand_tokens, brand_source, user_id, created_at`

// ProjectStore provides access to projects in PostgreSQL.
type ProjectStore struct {
	db *sql.DB
}

// NewProjectStore creates a new ProjectStore backed by the given database.
func NewProjectStore(db *sql.DB) *ProjectStore {
	return &ProjectStore{db: db}
}

func scanProject(s scanner) (*models.Project, error) {
	var (
		p      models.Project
		tokens []byte
		source []byte
	)
	if err := s.Scan(&p.ID, &p.Name, &tokens, &source, &p.UserID, &p.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(tokens, &p.BrandTokens); err != nil {
		return nil, fmt.Errorf("decode brand tokens: %w", err)
	}
	if len(source) > 0 {
		p.BrandSource = json.RawMessage(source)
	}
	return &p, nil
}

// Create inserts a project owned by userID.
func (s *ProjectStore) Create(ctx context.Context, userID uuid.UUID, name string, tokens models.BrandTokens) (*models.Project, error) {
	raw, err := jsonValue(tokens)
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO projects (name, brand_tokens, user_id)
		VALUES ($1, $2, $3)
		RETURNING `+projectColumns,
		name, raw, userID,
	)
	p, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// List returns the user's projects, newest first.
func (s *ProjectStore) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []*models.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Get returns the project, or nil when it does not exist or belongs to
// another user.
func (s *ProjectStore) Get(ctx context.Context, userID, id uuid.UUID) (*models.Project, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+projectColumns+`
		FROM projects
		WHERE id = $1 AND user_id = $2
	`, id, userID)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get project: %w", err)
	}
	return p, nil
}

// UpdateBrandTokens replaces the project's tokens wholesale.
func (s *ProjectStore) UpdateBrandTokens(ctx context.Context, userID, id uuid.UUID, tokens models.BrandTokens) error {
	raw, err := jsonValue(tokens)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET brand_tokens = $1
		WHERE id = $2 AND user_id = $3
	`, raw, id, userID)
	if err != nil {
		return fmt.Errorf("update brand tokens: %w", err)
	}
	return affectedOne(res, "update brand tokens")
}

// ApplyExtraction stores new tokens together with the raw extraction they
// were derived from.
func (s *ProjectStore) ApplyExtraction(ctx context.Context, userID, id uuid.UUID, tokens models.BrandTokens, source json.RawMessage) error {
	raw, err := jsonValue(tokens)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE projects SET brand_tokens = $1, brand_source = $2
		WHERE id = $3 AND user_id = $4
	`, raw, []byte(source), id, userID)
	if err != nil {
		return fmt.Errorf("apply brand extraction: %w", err)
	}
	return affectedOne(res, "apply brand extraction")
}

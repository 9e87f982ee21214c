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
	"log/slog"

	"github.com/google/uuid"

	"mailsmithery/internal/models"
)

// versionColumns lists all columns for versions SELECTs. Queries alias the
// table as v so ownership can be checked through templates.
const versionColumns = `v.id, v.template_id, v.ir_json, v.mjml, v.html, v.seq, v.created_at`

// VersionStore is the append-only version history. It has no update or
// delete methods.
type VersionStore struct {
	db *sql.DB
}

// NewVersionStore creates a new VersionStore backed by the given database.
func NewVersionStore(db *sql.DB) *VersionStore {
	return &VersionStore{db: db}
}

func scanVersion(s scanner) (*models.Version, error) {
	var (
		v  models.Version
		ir []byte
	)
	if err := s.Scan(&v.ID, &v.TemplateID, &ir, &v.MJML, &v.HTML, &v.Seq, &v.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ir, &v.IRJSON); err != nil {
		return nil, fmt.Errorf("decode ir_json: %w", err)
	}
	return &v, nil
}

func insertVersion(ctx context.Context, q querier, userID, templateID uuid.UUID, plan *models.TemplatePlan, mjml, html string) (*models.Version, error) {
	ir, err := jsonValue(plan)
	if err != nil {
		return nil, err
	}
	row := q.QueryRowContext(ctx, `
		INSERT INTO versions AS v (template_id, ir_json, mjml, html)
		SELECT t.id, $3, $4, $5
		FROM templates t
		WHERE t.id = $1 AND t.user_id = $2
		RETURNING `+versionColumns,
		templateID, userID, ir, mjml, html,
	)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("record version: template %s: %w", templateID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("record version: %w", err)
	}
	return v, nil
}

// RecordVersion appends a snapshot to the template's history and moves the
// template's latest-version pointer. The pointer update is best-effort: the
// version is already durable, so a failure there is only logged.
func (s *VersionStore) RecordVersion(ctx context.Context, userID, templateID uuid.UUID, plan *models.TemplatePlan, mjml, html string) (*models.Version, error) {
	v, err := insertVersion(ctx, s.db, userID, templateID, plan, mjml, html)
	if err != nil {
		return nil, err
	}
	if err := setLatestVersion(ctx, s.db, userID, templateID, v.ID); err != nil {
		slog.Warn("latest version pointer not updated",
			"template_id", templateID, "version_id", v.ID, "error", err)
	}
	return v, nil
}

// Latest returns the newest version of the template, or nil when it has
// none or is not the user's.
func (s *VersionStore) Latest(ctx context.Context, userID, templateID uuid.UUID) (*models.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions v
		JOIN templates t ON t.id = v.template_id
		WHERE v.template_id = $1 AND t.user_id = $2
		ORDER BY v.created_at DESC, v.seq DESC
		LIMIT 1
	`, templateID, userID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest version: %w", err)
	}
	return v, nil
}

// List returns the template's versions, newest first.
func (s *VersionStore) List(ctx context.Context, userID, templateID uuid.UUID) ([]*models.Version, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions v
		JOIN templates t ON t.id = v.template_id
		WHERE v.template_id = $1 AND t.user_id = $2
		ORDER BY v.created_at DESC, v.seq DESC
	`, templateID, userID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	versions := []*models.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Count returns the number of versions of the template.
func (s *VersionStore) Count(ctx context.Context, userID, templateID uuid.UUID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM versions v
		JOIN templates t ON t.id = v.template_id
		WHERE v.template_id = $1 AND t.user_id = $2
	`, templateID, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count versions: %w", err)
	}
	return count, nil
}

// Get returns one version, checking ownership through its template.
func (s *VersionStore) Get(ctx context.Context, userID, id uuid.UUID) (*models.Version, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+versionColumns+`
		FROM versions v
		JOIN templates t ON t.id = v.template_id
		WHERE v.id = $1 AND t.user_id = $2
	`, id, userID)
	v, err := scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get version: %w", err)
	}
	return v, nil
}

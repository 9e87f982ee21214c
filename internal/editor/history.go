// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package editor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"mailsmithery/internal/functions"
	"mailsmithery/internal/metrics"
	"mailsmithery/internal/models"
	"mailsmithery/internal/plan"
	"mailsmithery/internal/slug"
	"mailsmithery/internal/storage"
	"mailsmithery/internal/store"
)

func recordBatch(ops []models.EditOperation, ok bool) {
	if !ok {
		metrics.EditBatches.WithLabelValues("rejected").Inc()
		return
	}
	metrics.EditBatches.WithLabelValues("applied").Inc()
	for _, op := range ops {
		metrics.EditOps.WithLabelValues(string(op.Op)).Inc()
	}
}

// SaveRequest names a new template and its first plan.
type SaveRequest struct {
	ProjectID uuid.UUID            `json:"projectId"`
	Name      string               `json:"name"`
	Type      string               `json:"type"`
	Plan      *models.TemplatePlan `json:"plan"`
}

// Save compiles the plan and stores it as a new template with one version.
func (s *Service) Save(ctx context.Context, userID uuid.UUID, req SaveRequest) (*models.SavedTemplate, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if req.Plan == nil {
		return nil, fmt.Errorf("%w: plan is required", ErrInvalidInput)
	}
	if req.Type == "" {
		req.Type = req.Plan.Meta.EmailType
	}
	if err := plan.CheckConsistent(req.Plan); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	compiled, err := s.Compiler.Compile(ctx, req.Plan.MJML)
	if err != nil {
		return nil, err
	}
	saved, err := s.Templates.SaveTemplate(ctx, userID, req.ProjectID, strings.TrimSpace(req.Name), req.Type, req.Plan, req.Plan.MJML, compiled.HTML)
	if err != nil {
		return nil, err
	}
	metrics.VersionsRecorded.Inc()
	slog.Info("template saved", "template_id", saved.TemplateID, "version_id", saved.VersionID)
	return saved, nil
}

// Commit records p as a new version of an existing template.
func (s *Service) Commit(ctx context.Context, userID, templateID uuid.UUID, p *models.TemplatePlan) (*models.Version, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: plan is required", ErrInvalidInput)
	}
	if err := plan.CheckConsistent(p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	compiled, err := s.Compiler.Compile(ctx, p.MJML)
	if err != nil {
		return nil, err
	}
	return s.record(ctx, userID, templateID, p, compiled.HTML)
}

func (s *Service) record(ctx context.Context, userID, templateID uuid.UUID, p *models.TemplatePlan, html string) (*models.Version, error) {
	v, err := s.Versions.RecordVersion(ctx, userID, templateID, p, p.MJML, html)
	if err != nil {
		return nil, err
	}
	metrics.VersionsRecorded.Inc()
	return v, nil
}

// EditRequest is one edit of a saved template: a batch of operations, a
// free-text instruction, or both.
type EditRequest struct {
	Ops    []models.EditOperation `json:"ops"`
	Prompt string                 `json:"prompt,omitempty"`
}

// EditResult is the version an edit produced.
type EditResult struct {
	Version *models.Version       `json:"version"`
	Compile *models.CompileResult `json:"compile"`
	Lint    *models.LintResult    `json:"lint,omitempty"`
	Notes   string                `json:"notes,omitempty"`
}

// Edit applies req to the template's latest version and records the result
// as a new version. Nothing is recorded unless every step succeeds.
func (s *Service) Edit(ctx context.Context, userID, templateID uuid.UUID, req EditRequest) (*EditResult, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if len(req.Ops) == 0 && prompt == "" {
		return nil, fmt.Errorf("%w: ops or prompt is required", ErrInvalidInput)
	}
	if prompt != "" && s.Editor == nil {
		return nil, fmt.Errorf("%w: free-text edits are not available", ErrInvalidInput)
	}

	latest, err := s.Versions.Latest(ctx, userID, templateID)
	if err != nil {
		return nil, fmt.Errorf("load latest version: %w", err)
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}

	next, err := s.apply(&latest.IRJSON, req.Ops)
	if err != nil {
		return nil, err
	}

	var notes string
	if prompt != "" {
		edit, err := s.Editor.Edit(ctx, models.EditRequest{
			TemplateID: templateID,
			Prompt:     prompt,
			UserID:     userID,
			Plan:       next,
		})
		if err != nil {
			return nil, err
		}
		if next, err = plan.SyncSections(next, edit.MJML); err != nil {
			return nil, badOutput(functions.FuncEdit, err)
		}
		notes = edit.Notes
	}

	compiled, err := s.Compiler.Compile(ctx, next.MJML)
	if err != nil {
		return nil, err
	}
	v, err := s.record(ctx, userID, templateID, next, compiled.HTML)
	if err != nil {
		return nil, err
	}
	slog.Info("template edited", "template_id", templateID, "version_id", v.ID, "ops", len(req.Ops), "prompt", prompt != "")
	return &EditResult{Version: v, Compile: compiled, Lint: s.lint(ctx, next, compiled.HTML), Notes: notes}, nil
}

// History lists a template's versions, newest first.
func (s *Service) History(ctx context.Context, userID, templateID uuid.UUID) ([]*models.Version, error) {
	t, err := s.Templates.Get(ctx, userID, templateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	if t == nil {
		return nil, store.ErrNotFound
	}
	return s.Versions.List(ctx, userID, templateID)
}

// Latest returns the newest version of a template.
func (s *Service) Latest(ctx context.Context, userID, templateID uuid.UUID) (*models.Version, error) {
	v, err := s.Versions.Latest(ctx, userID, templateID)
	if err != nil {
		return nil, fmt.Errorf("load latest version: %w", err)
	}
	if v == nil {
		return nil, store.ErrNotFound
	}
	return v, nil
}

// Version returns one version.
func (s *Service) Version(ctx context.Context, userID, versionID uuid.UUID) (*models.Version, error) {
	v, err := s.Versions.Get(ctx, userID, versionID)
	if err != nil {
		return nil, fmt.Errorf("load version: %w", err)
	}
	if v == nil {
		return nil, store.ErrNotFound
	}
	return v, nil
}

// Export is a downloadable rendition of a version.
type Export struct {
	Filename string `json:"filename"`
	HTML     string `json:"html"`
	MJML     string `json:"mjml"`

	templateID uuid.UUID
	versionID  uuid.UUID
}

// Export returns a version's HTML with a filename derived from its subject,
// falling back to the template name.
func (s *Service) Export(ctx context.Context, userID, versionID uuid.UUID) (*Export, error) {
	v, err := s.Version(ctx, userID, versionID)
	if err != nil {
		return nil, err
	}
	t, err := s.Templates.Get(ctx, userID, v.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}
	name := ""
	if t != nil {
		name = t.Name
	}
	return &Export{
		Filename:   slug.Filename("html", v.IRJSON.Meta.Subject, name),
		HTML:       v.HTML,
		MJML:       v.MJML,
		templateID: v.TemplateID,
		versionID:  v.ID,
	}, nil
}

// Published is the location of an uploaded export.
type Published struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Publish uploads a version's HTML to object storage.
func (s *Service) Publish(ctx context.Context, userID, versionID uuid.UUID) (*Published, error) {
	if s.Publisher == nil {
		return nil, ErrPublishDisabled
	}
	exp, err := s.Export(ctx, userID, versionID)
	if err != nil {
		return nil, err
	}
	key := storage.ExportKey(exp.templateID.String(), exp.versionID.String(), exp.Filename)
	url, err := s.Publisher.Publish(ctx, key, []byte(exp.HTML))
	if err != nil {
		return nil, fmt.Errorf("publish version: %w", err)
	}
	slog.Info("version published", "version_id", versionID, "key", key)
	return &Published{Key: key, URL: url}, nil
}

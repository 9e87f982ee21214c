// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package editor orchestrates the interactive template flows: generate a
// plan, preview edits, apply edit batches to saved templates and keep the
// version history. Every call is scoped to one user; each request stands
// alone and the last one to finish wins.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"mailsmithery/internal/editops"
	"mailsmithery/internal/functions"
	"mailsmithery/internal/models"
	"mailsmithery/internal/plan"
	"mailsmithery/internal/store"
)

var (
	// ErrInvalidInput is returned for requests that can never succeed as sent.
	ErrInvalidInput = errors.New("invalid input")
	// ErrPublishDisabled is returned by Publish when no storage is configured.
	ErrPublishDisabled = errors.New("publishing is not configured")
)

// Planner produces a new template plan.
type Planner interface {
	Plan(ctx context.Context, req models.PlanRequest) (*models.TemplatePlan, error)
}

// Editor applies a free-text instruction to a plan. Its MJML is
// authoritative.
type Editor interface {
	Edit(ctx context.Context, req models.EditRequest) (*models.TemplateEdit, error)
}

// Compiler turns MJML into HTML.
type Compiler interface {
	Compile(ctx context.Context, mjml string) (*models.CompileResult, error)
}

// Linter analyses compiled output.
type Linter interface {
	Lint(ctx context.Context, req models.LintRequest) (*models.LintResult, error)
}

// Publisher stores exported HTML and returns a link to it.
type Publisher interface {
	Publish(ctx context.Context, key string, html []byte) (string, error)
}

// ProjectRepo loads projects.
type ProjectRepo interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Project, error)
}

// TemplateRepo loads and creates templates.
type TemplateRepo interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Template, error)
	SaveTemplate(ctx context.Context, userID, projectID uuid.UUID, name, typ string, p *models.TemplatePlan, mjml, html string) (*models.SavedTemplate, error)
}

// VersionRepo is the append-only version history.
type VersionRepo interface {
	RecordVersion(ctx context.Context, userID, templateID uuid.UUID, p *models.TemplatePlan, mjml, html string) (*models.Version, error)
	Latest(ctx context.Context, userID, templateID uuid.UUID) (*models.Version, error)
	List(ctx context.Context, userID, templateID uuid.UUID) ([]*models.Version, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Version, error)
}

// Deps bundles the collaborators of a Service. Editor and Publisher are
// optional.
type Deps struct {
	Projects  ProjectRepo
	Templates TemplateRepo
	Versions  VersionRepo
	Planner   Planner
	Editor    Editor
	Compiler  Compiler
	Linter    Linter
	Publisher Publisher
}

// Service implements the editor flows.
type Service struct {
	Deps
}

// New creates a Service.
func New(deps Deps) *Service {
	return &Service{Deps: deps}
}

// Generated is a freshly planned template. It is not persisted until saved.
type Generated struct {
	Plan    *models.TemplatePlan  `json:"plan"`
	Compile *models.CompileResult `json:"compile"`
	Lint    *models.LintResult    `json:"lint,omitempty"`
}

// Generate plans a new template for the user's project, compiles it and
// lints the result. The project's brand tokens are used unless the request
// carries its own.
func (s *Service) Generate(ctx context.Context, userID, projectID uuid.UUID, req models.PlanRequest) (*Generated, error) {
	project, err := s.Projects.Get(ctx, userID, projectID)
	if err != nil {
		return nil, fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil, store.ErrNotFound
	}

	req.ProjectID, req.UserID = projectID, userID
	if req.Brand == nil {
		tokens := project.BrandTokens
		req.Brand = &tokens
	}

	planned, err := s.Planner.Plan(ctx, req)
	if err != nil {
		return nil, err
	}
	// Remote planners are not trusted to emit addressable markup.
	p, err := plan.Normalize(planned)
	if err != nil {
		return nil, badOutput(functions.FuncPlan, err)
	}

	compiled, err := s.Compiler.Compile(ctx, p.MJML)
	if err != nil {
		return nil, err
	}
	slog.Info("template generated", "project_id", projectID, "email_type", req.EmailType, "sections", len(p.Sections), "size", compiled.Size)
	return &Generated{Plan: p, Compile: compiled, Lint: s.lint(ctx, p, compiled.HTML)}, nil
}

// Preview applies ops to a draft plan without persisting anything.
func (s *Service) Preview(ctx context.Context, p *models.TemplatePlan, ops []models.EditOperation) (*Generated, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: plan is required", ErrInvalidInput)
	}
	next, err := s.apply(p, ops)
	if err != nil {
		return nil, err
	}
	compiled, err := s.Compiler.Compile(ctx, next.MJML)
	if err != nil {
		return nil, err
	}
	return &Generated{Plan: next, Compile: compiled}, nil
}

// Compile compiles raw MJML.
func (s *Service) Compile(ctx context.Context, mjml string) (*models.CompileResult, error) {
	return s.Compiler.Compile(ctx, mjml)
}

// Lint lints raw MJML and, when given, its compiled HTML.
func (s *Service) Lint(ctx context.Context, req models.LintRequest) (*models.LintResult, error) {
	if req.HTML == "" {
		compiled, err := s.Compiler.Compile(ctx, req.MJML)
		if err != nil {
			return nil, err
		}
		req.HTML = compiled.HTML
	}
	return s.Linter.Lint(ctx, req)
}

// badOutput reports collaborator markup that cannot be made into a plan.
func badOutput(function string, err error) error {
	return &functions.Error{Function: function, Code: "bad_output", Message: err.Error(), Status: http.StatusBadGateway}
}

// lint runs the linter as a best-effort extra; failures are logged.
func (s *Service) lint(ctx context.Context, p *models.TemplatePlan, html string) *models.LintResult {
	if s.Linter == nil {
		return nil
	}
	res, err := s.Linter.Lint(ctx, models.LintRequest{MJML: p.MJML, HTML: html, Subject: p.Meta.Subject, Preheader: p.Meta.Preheader})
	if err != nil {
		slog.Warn("lint failed", "error", err)
		return nil
	}
	return res
}

// apply validates and applies a batch, recording the outcome.
func (s *Service) apply(p *models.TemplatePlan, ops []models.EditOperation) (*models.TemplatePlan, error) {
	if len(ops) == 0 {
		return p.Clone()
	}
	next, err := editops.Apply(p, ops)
	if err != nil {
		recordBatch(ops, false)
		return nil, err
	}
	recordBatch(ops, true)
	return next, nil
}

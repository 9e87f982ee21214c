// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"mailsmithery/internal/models"
	"mailsmithery/internal/store"
)

type createProjectRequest struct {
	Name        string              `json:"name"`
	BrandTokens *models.BrandTokens `json:"brandTokens,omitempty"`
}

// ListProjects returns the user's projects, newest first.
func (a *API) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := a.projects.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if projects == nil {
		projects = []*models.Project{}
	}
	writeJSON(w, http.StatusOK, projects)
}

// CreateProject creates a project. Brand tokens default when omitted.
func (a *API) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validateProject(req.Name); msg != "" {
		invalid(w, msg)
		return
	}
	tokens := models.DefaultBrandTokens()
	if req.BrandTokens != nil {
		tokens = *req.BrandTokens
	}
	if err := tokens.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := a.projects.Create(r.Context(), userID(r), strings.TrimSpace(req.Name), tokens)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("project created", "project_id", p.ID)
	writeJSON(w, http.StatusCreated, p)
}

// GetProject returns one project.
func (a *API) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.projects.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p == nil {
		writeError(w, r, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// UpdateBrand replaces a project's brand tokens.
func (a *API) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var tokens models.BrandTokens
	if err := decode(w, r, &tokens); err != nil {
		writeError(w, r, err)
		return
	}
	if err := tokens.Validate(); err != nil {
		writeError(w, r, err)
		return
	}

	uid := userID(r)
	if err := a.projects.UpdateBrandTokens(r.Context(), uid, id, tokens); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := a.projects.Get(r.Context(), uid, id)
	if err != nil || p == nil {
		writeError(w, r, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type extractBrandRequest struct {
	URL string `json:"url"`
}

// ExtractBrand scrapes a website and stores the derived brand tokens on
// the project.
func (a *API) ExtractBrand(w http.ResponseWriter, r *http.Request) {
	if a.brand == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "brand extraction is not configured"})
		return
	}
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req extractBrandRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := a.brand.Extract(r.Context(), userID(r), id, req.URL)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListTemplates returns the templates of one project.
func (a *API) ListTemplates(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	uid := userID(r)
	p, err := a.projects.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p == nil {
		writeError(w, r, store.ErrNotFound)
		return
	}
	templates, err := a.templates.ListByProject(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if templates == nil {
		templates = []*models.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

// GeneratePlan asks the planner for a new template in the project.
func (a *API) GeneratePlan(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req models.PlanRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validatePrompt(req.Prompt); msg != "" {
		invalid(w, msg)
		return
	}
	gen, err := a.editor.Generate(r.Context(), userID(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gen)
}

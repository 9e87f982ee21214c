// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"errors"
	"net/http"

	"mailsmithery/internal/editor"
	"mailsmithery/internal/models"
	"mailsmithery/internal/store"
)

// SaveTemplate stores a generated plan as a new template with its first
// version.
func (a *API) SaveTemplate(w http.ResponseWriter, r *http.Request) {
	var req editor.SaveRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validateTemplateName(req.Name); msg != "" {
		invalid(w, msg)
		return
	}
	saved, err := a.editor.Save(r.Context(), userID(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

type templateResponse struct {
	*models.Template
	Latest *models.Version `json:"latest,omitempty"`
}

// GetTemplate returns a template with its latest version.
func (a *API) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	uid := userID(r)
	t, err := a.templates.Get(r.Context(), uid, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if t == nil {
		writeError(w, r, store.ErrNotFound)
		return
	}
	latest, err := a.editor.Latest(r.Context(), uid, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, templateResponse{Template: t, Latest: latest})
}

// EditTemplate applies operations and/or a free-text instruction to the
// latest version and records the result.
func (a *API) EditTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req editor.EditRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validatePrompt(req.Prompt); msg != "" {
		invalid(w, msg)
		return
	}
	if msg := validateOps(len(req.Ops)); msg != "" {
		invalid(w, msg)
		return
	}
	res, err := a.editor.Edit(r.Context(), userID(r), id, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ListVersions returns a template's history, newest first.
func (a *API) ListVersions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	versions, err := a.editor.History(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if versions == nil {
		versions = []*models.Version{}
	}
	writeJSON(w, http.StatusOK, versions)
}

type commitRequest struct {
	Plan *models.TemplatePlan `json:"plan"`
}

// CommitVersion records a client-side plan as a new version.
func (a *API) CommitVersion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req commitRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := a.editor.Commit(r.Context(), userID(r), id, req.Plan)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, v)
}

// LatestVersion returns the newest version of a template.
func (a *API) LatestVersion(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	v, err := a.editor.Latest(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

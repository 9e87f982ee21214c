// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"mailsmithery/internal/models"
)

type applyRequest struct {
	Plan *models.TemplatePlan   `json:"plan"`
	Ops  []models.EditOperation `json:"ops"`
}

// ApplyOps previews an edit batch on a draft plan. Nothing is stored.
func (a *API) ApplyOps(w http.ResponseWriter, r *http.Request) {
	var req applyRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validateOps(len(req.Ops)); msg != "" {
		invalid(w, msg)
		return
	}
	res, err := a.editor.Preview(r.Context(), req.Plan, req.Ops)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type compileRequest struct {
	MJML string `json:"mjml"`
}

// Compile turns raw MJML into HTML.
func (a *API) Compile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validateMJML(req.MJML); msg != "" {
		invalid(w, msg)
		return
	}
	res, err := a.editor.Compile(r.Context(), req.MJML)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Lint checks MJML (and optionally its HTML) for email-client problems.
func (a *API) Lint(w http.ResponseWriter, r *http.Request) {
	var req models.LintRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if msg := validateMJML(req.MJML); msg != "" {
		invalid(w, msg)
		return
	}
	res, err := a.editor.Lint(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

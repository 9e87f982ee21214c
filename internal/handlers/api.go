// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON API. Every handler reads the
// authenticated user from the request context and scopes all data access
// to that user.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"mailsmithery/internal/brand"
	"mailsmithery/internal/editops"
	"mailsmithery/internal/editor"
	"mailsmithery/internal/functions"
	"mailsmithery/internal/middleware"
	"mailsmithery/internal/models"
	"mailsmithery/internal/plan"
	"mailsmithery/internal/planner"
	"mailsmithery/internal/store"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 4 << 20

// ProjectStore is the project persistence the API needs.
type ProjectStore interface {
	Create(ctx context.Context, userID uuid.UUID, name string, tokens models.BrandTokens) (*models.Project, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Project, error)
	UpdateBrandTokens(ctx context.Context, userID, id uuid.UUID, tokens models.BrandTokens) error
}

// TemplateStore lists and loads templates.
type TemplateStore interface {
	ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*models.Template, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Template, error)
}

// BrandExtractor derives brand tokens from a website.
type BrandExtractor interface {
	Extract(ctx context.Context, userID, projectID uuid.UUID, rawURL string) (*brand.Result, error)
}

// API groups the JSON handlers and their dependencies.
type API struct {
	projects  ProjectStore
	templates TemplateStore
	editor    *editor.Service
	brand     BrandExtractor // nil when scraping is not configured
}

// NewAPI creates the API handlers.
func NewAPI(projects ProjectStore, templates TemplateStore, svc *editor.Service, extractor BrandExtractor) *API {
	return &API{projects: projects, templates: templates, editor: svc, brand: extractor}
}

// errBadRequest marks request bodies or parameters that could not be read.
var errBadRequest = errors.New("bad request")

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	OpIndex *int   `json:"opIndex,omitempty"`
}

// writeJSON sends a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("encode response", "error", err)
	}
}

// writeError maps err to a status code and writes it. Not-found and
// foreign-owned rows look the same to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		batch *editops.BatchError
		fe    *functions.Error
	)
	switch {
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.As(err, &batch):
		idx := batch.Index
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: batch.Error(), Code: "edit_rejected", OpIndex: &idx})
	case errors.As(err, &fe):
		slog.Warn("collaborator failed", "function", fe.Function, "code", fe.Code, "status", fe.Status, "path", r.URL.Path)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: fe.Message, Code: fe.Code})
	case errors.Is(err, editor.ErrInvalidInput),
		errors.Is(err, planner.ErrInvalidRequest),
		errors.Is(err, planner.ErrUnsafePrompt),
		errors.Is(err, brand.ErrInvalidURL),
		errors.Is(err, plan.ErrInvalidPlan),
		errors.Is(err, models.ErrInvalidBrandTokens),
		errors.Is(err, editops.ErrInvalidOperation),
		errors.Is(err, editops.ErrTargetNotFound),
		errors.Is(err, editops.ErrMalformedNode),
		errors.Is(err, editops.ErrDuplicateID):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.Is(err, editor.ErrPublishDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: err.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody{Error: "request timed out"})
	case errors.Is(err, context.Canceled):
		// The client went away; nobody reads the answer.
		slog.Debug("request canceled", "path", r.URL.Path)
	default:
		slog.Error("request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal Server Error"})
	}
}

// invalid writes a 422 with a validation message.
func invalid(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: msg})
}

// decode reads a JSON request body into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", errBadRequest, err)
	}
	return nil
}

// idParam parses a UUID route parameter.
func idParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s is not a valid id", errBadRequest, name)
	}
	return id, nil
}

// userID returns the authenticated user. RequireAuth guarantees it is set.
func userID(r *http.Request) uuid.UUID {
	return middleware.UserIDFromCtx(r.Context())
}

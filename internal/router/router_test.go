// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains, and the health endpoint.
package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"mailsmithery/internal/editor"
	"mailsmithery/internal/handlers"
	"mailsmithery/internal/middleware"
	"mailsmithery/internal/models"
)

func TestHealthHandler(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/health", nil)

	healthHandler(w, r)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct != "application/json" {
		t.Errorf("content-type: got %q, want %q", ct, "application/json")
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field: got %q, want %q", body["status"], "ok")
	}
}

// emptyProjects answers every lookup with nothing.
type emptyProjects struct{}

func (emptyProjects) Create(ctx context.Context, userID uuid.UUID, name string, tokens models.BrandTokens) (*models.Project, error) {
	return &models.Project{ID: uuid.New(), UserID: userID, Name: name, BrandTokens: tokens}, nil
}
func (emptyProjects) List(ctx context.Context, userID uuid.UUID) ([]*models.Project, error) {
	return nil, nil
}
func (emptyProjects) Get(ctx context.Context, userID, id uuid.UUID) (*models.Project, error) {
	return nil, nil
}
func (emptyProjects) UpdateBrandTokens(ctx context.Context, userID, id uuid.UUID, tokens models.BrandTokens) error {
	return nil
}

type emptyTemplates struct{}

func (emptyTemplates) ListByProject(ctx context.Context, userID, projectID uuid.UUID) ([]*models.Template, error) {
	return nil, nil
}
func (emptyTemplates) Get(ctx context.Context, userID, id uuid.UUID) (*models.Template, error) {
	return nil, nil
}

const testSecret = "router-test-secret"

func newTestRouter(t *testing.T, limit int) (http.Handler, string) {
	t.Helper()
	svc := editor.New(editor.Deps{Projects: emptyProjects{}})
	api := handlers.NewAPI(emptyProjects{}, emptyTemplates{}, svc, nil)
	auth := middleware.NewAuthenticator(testSecret, "")
	limiter := middleware.NewRateLimiter(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	token, err := auth.Issue(uuid.New(), jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return New(api, auth, limiter, time.Minute), token
}

func TestPublicRoutes(t *testing.T) {
	h, _ := newTestRouter(t, 10)

	for _, path := range []string{"/health", "/metrics"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: got %d, want 200", path, rr.Code)
		}
	}
}

func TestAPIRequiresToken(t *testing.T) {
	h, token := newTestRouter(t, 10)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/projects", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("without token: got %d, want 401", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("with token: got %d, want 200 (%s)", rr.Code, rr.Body.String())
	}
	if got := strings.TrimSpace(rr.Body.String()); got != "[]" {
		t.Errorf("body: got %s", got)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

func TestRoutesAreMounted(t *testing.T) {
	h, token := newTestRouter(t, 100)
	id := uuid.New().String()

	// Unknown ids for the caller: every route answers 404 from a handler,
	// never 405 from the router.
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/projects/" + id},
		{http.MethodGet, "/api/projects/" + id + "/templates"},
		{http.MethodGet, "/api/templates/" + id},
	}
	for _, rt := range routes {
		req := httptest.NewRequest(rt.method, rt.path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s %s: got %d, want 404", rt.method, rt.path, rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"error"`) {
			t.Errorf("%s %s: expected JSON error body, got %s", rt.method, rt.path, rr.Body.String())
		}
	}
}

func TestPlanRouteIsRateLimited(t *testing.T) {
	h, token := newTestRouter(t, 2)
	path := "/api/projects/" + uuid.New().String() + "/plan"

	var codes []int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"emailType":"welcome"}`))
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}
	want := []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes: got %v, want %v", codes, want)
		}
	}

	// Non-AI routes keep working.
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("list projects after limit: got %d", rr.Code)
	}
}
